package api

import (
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func (h *Handler) Routes(m *Middleware, corsOrigins []string, rateLimitRPM int, timeout time.Duration) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware
	r.Use(m.RequestID)
	r.Use(m.RequestLogger)
	r.Use(m.Recoverer)
	r.Use(m.SecurityHeaders)
	r.Use(m.Compress)
	r.Use(m.Timeout(timeout))
	r.Use(middleware.Heartbeat("/ping"))

	r.Use(m.CORS(corsOrigins))
	r.Use(m.RateLimit(rateLimitRPM))

	// Health endpoints
	r.Get("/healthz", h.Healthz)
	r.Get("/readyz", h.Readyz)

	// JSON-RPC endpoint
	r.Post("/rpc", h.HandleJSONRPC)

	r.Route("/cache/{store}", func(r chi.Router) {
		r.Put("/", h.CreateStore)
		r.Delete("/", h.DestroyStore)
		r.Post("/", h.CreateDoc)

		r.Get("/_query", h.ListDocs)
		r.Post("/_query", h.ListDocs)
		r.Post("/_index", h.IndexDocs)

		r.Get("/{key}", h.GetDoc)
		r.Put("/{key}", h.UpdateDoc)
		r.Delete("/{key}", h.DeleteDoc)
	})

	return r
}

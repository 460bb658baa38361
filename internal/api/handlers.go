package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/leafsii/cache-redis/internal/cache"
	"go.uber.org/zap"
)

const maxBodyBytes = 8 << 20

// reservedKeys are path segments routed to store level endpoints, so documents
// with these keys could not be read back over HTTP
var reservedKeys = map[string]bool{"_query": true, "_index": true}

func checkReservedKey(key string) error {
	if reservedKeys[key] {
		return badRequest(fmt.Sprintf("document key %q is reserved", key), nil)
	}
	return nil
}

// MetricsInterface defines the interface for metrics recording
type MetricsInterface interface {
	RecordHTTPRequest(ctx context.Context, method, path string, status int, duration time.Duration)
	IncrementInFlight(ctx context.Context)
	DecrementInFlight(ctx context.Context)
}

// CacheService is the cache port served over HTTP
type CacheService interface {
	CreateStore(ctx context.Context, name string) error
	DestroyStore(ctx context.Context, name string) error
	CreateDoc(ctx context.Context, in cache.DocInput) (json.RawMessage, error)
	GetDoc(ctx context.Context, ref cache.DocRef) (json.RawMessage, error)
	UpdateDoc(ctx context.Context, in cache.DocInput) error
	DeleteDoc(ctx context.Context, ref cache.DocRef) error
	ListDocs(ctx context.Context, q cache.Query) ([]cache.Doc, error)
	IndexDocs(ctx context.Context, store string) error
	Ping(ctx context.Context) error
	HashSlot() bool
	PageSize() int64
}

var _ CacheService = (*cache.Adapter)(nil)

type Handler struct {
	cache  CacheService
	logger *zap.SugaredLogger
}

func NewHandler(cache CacheService, logger *zap.SugaredLogger) *Handler {
	return &Handler{
		cache:  cache,
		logger: logger,
	}
}

// Store endpoints

func (h *Handler) CreateStore(w http.ResponseWriter, r *http.Request) {
	if err := h.cache.CreateStore(r.Context(), pathParam(r, "store")); err != nil {
		h.writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, cache.OK())
}

func (h *Handler) DestroyStore(w http.ResponseWriter, r *http.Request) {
	if err := h.cache.DestroyStore(r.Context(), pathParam(r, "store")); err != nil {
		h.writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cache.OK())
}

// Document endpoints

func (h *Handler) CreateDoc(w http.ResponseWriter, r *http.Request) {
	var req CreateDocRequest
	if err := decodeBody(w, r, &req); err != nil {
		h.writeFailure(w, r, err)
		return
	}
	if len(req.Value) == 0 {
		h.writeFailure(w, r, badRequest("value is required", nil))
		return
	}
	if err := checkReservedKey(req.Key); err != nil {
		h.writeFailure(w, r, err)
		return
	}

	doc, err := h.cache.CreateDoc(r.Context(), cache.DocInput{
		Store: pathParam(r, "store"),
		Key:   req.Key,
		Value: req.Value,
		TTL:   req.TTL,
	})
	if err != nil {
		h.writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, cache.OKDoc(doc))
}

func (h *Handler) GetDoc(w http.ResponseWriter, r *http.Request) {
	key := pathParam(r, "key")

	doc, err := h.cache.GetDoc(r.Context(), cache.DocRef{Store: pathParam(r, "store"), Key: key})
	if err != nil {
		h.writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cache.OKDoc(doc))
}

func (h *Handler) UpdateDoc(w http.ResponseWriter, r *http.Request) {
	key := pathParam(r, "key")
	if err := checkReservedKey(key); err != nil {
		h.writeFailure(w, r, err)
		return
	}
	ttl, err := ttlParam(r)
	if err != nil {
		h.writeFailure(w, r, err)
		return
	}

	var value json.RawMessage
	if err := decodeBody(w, r, &value); err != nil {
		h.writeFailure(w, r, err)
		return
	}

	err = h.cache.UpdateDoc(r.Context(), cache.DocInput{
		Store: pathParam(r, "store"),
		Key:   key,
		Value: value,
		TTL:   ttl,
	})
	if err != nil {
		h.writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cache.OK())
}

func (h *Handler) DeleteDoc(w http.ResponseWriter, r *http.Request) {
	key := pathParam(r, "key")

	if err := h.cache.DeleteDoc(r.Context(), cache.DocRef{Store: pathParam(r, "store"), Key: key}); err != nil {
		h.writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cache.OK())
}

// ListDocs takes the pattern from the query string or, for POST, from an
// optional {"pattern"} body
func (h *Handler) ListDocs(w http.ResponseWriter, r *http.Request) {
	pattern := r.URL.Query().Get("pattern")
	if pattern == "" && r.Method == http.MethodPost && r.ContentLength != 0 {
		var req QueryRequest
		if err := decodeBody(w, r, &req); err != nil {
			h.writeFailure(w, r, err)
			return
		}
		pattern = req.Pattern
	}

	docs, err := h.cache.ListDocs(r.Context(), cache.Query{Store: pathParam(r, "store"), Pattern: pattern})
	if err != nil {
		h.writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cache.OKDocs(docs))
}

func (h *Handler) IndexDocs(w http.ResponseWriter, r *http.Request) {
	h.writeFailure(w, r, h.cache.IndexDocs(r.Context(), pathParam(r, "store")))
}

// Health and ops endpoints
func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

func (h *Handler) Readyz(w http.ResponseWriter, r *http.Request) {
	if err := h.cache.Ping(r.Context()); err != nil {
		h.writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ReadyDTO{
		Status:   "READY",
		HashSlot: h.cache.HashSlot(),
		PageSize: h.cache.PageSize(),
	})
}

// Utility methods

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func (h *Handler) writeFailure(w http.ResponseWriter, r *http.Request, err error) {
	res := cache.Failure(err)
	if res.Status >= http.StatusInternalServerError && res.Status != http.StatusNotImplemented {
		h.logger.Errorw("API error",
			"request_id", middleware.GetReqID(r.Context()),
			"method", r.Method,
			"path", r.URL.Path,
			"status", res.Status,
			"error", err,
		)
	}
	writeJSON(w, res.Status, res)
}

func badRequest(msg string, err error) error {
	return &cache.Error{Kind: cache.KindBadRequest, Status: http.StatusBadRequest, Msg: msg, Err: err}
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) error {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(body)
	if err := dec.Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.Is(err, io.EOF):
			return badRequest("request body is required", nil)
		case errors.As(err, &tooLarge):
			return badRequest(fmt.Sprintf("request body exceeds %d bytes", tooLarge.Limit), nil)
		default:
			return badRequest("invalid JSON body", err)
		}
	}
	if dec.More() {
		return badRequest("request body must hold a single JSON value", nil)
	}
	return nil
}

// pathParam returns a decoded path segment. chi routes on r.URL.RawPath when
// the request carries escapes such as %2F, and on the already decoded
// r.URL.Path otherwise, so only the former needs unescaping.
func pathParam(r *http.Request, name string) string {
	value := chi.URLParam(r, name)
	if r.URL.RawPath == "" {
		return value
	}
	if unescaped, err := url.PathUnescape(value); err == nil {
		return unescaped
	}
	return value
}

func ttlParam(r *http.Request) (*int64, error) {
	raw := strings.TrimSpace(r.URL.Query().Get("ttl"))
	if raw == "" {
		return nil, nil
	}
	ttl, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil, badRequest("ttl must be an integer number of milliseconds", err)
	}
	return &ttl, nil
}

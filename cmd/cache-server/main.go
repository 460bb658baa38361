package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"slices"
	"syscall"
	"time"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/leafsii/cache-redis/internal/api"
	"github.com/leafsii/cache-redis/internal/cache"
	"github.com/leafsii/cache-redis/internal/config"
	"github.com/leafsii/cache-redis/internal/log"
	"github.com/leafsii/cache-redis/internal/metrics"
	"github.com/leafsii/cache-redis/pkg/kv"
	_ "github.com/leafsii/cache-redis/pkg/kv/memory"
	_ "github.com/leafsii/cache-redis/pkg/kv/redis"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger, err := log.NewSugar(cfg.Env, cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Infow("Starting cache server",
		"env", cfg.Env,
		"addr", cfg.HTTPAddr,
		"backend", cfg.Backend.Kind,
		"cluster", cfg.Backend.RedisCluster,
		"hash_slot", cfg.Adapter.HashSlot,
		"scan_count", cfg.Adapter.ScanCount,
	)

	metricsObj, metricsHandler, err := metrics.Setup("cache-server")
	if err != nil {
		logger.Fatalw("Failed to setup metrics", "error", err)
	}

	store, err := kv.NewStoreFromConfig(cfg.KV())
	if err != nil {
		logger.Fatalw("Failed to connect cache backend", "backend", cfg.Backend.Kind, "error", err)
	}
	defer store.Close()
	logger.Infow("Cache backend connected", "backend", cfg.Backend.Kind)

	adapter := cache.New(store,
		cache.WithPageSize(cfg.Adapter.ScanCount),
		cache.WithHashSlot(cfg.Adapter.HashSlot),
		cache.WithLogger(logger),
		cache.WithMetrics(metricsObj),
	)

	handler := api.NewHandler(adapter, logger)
	middleware := api.NewMiddleware(logger, metricsObj)

	router := handler.Routes(middleware, cfg.Security.CORSAllowedOrigins, cfg.Security.RateLimitRPM, cfg.RequestTimeout)
	router.Handle("/metrics", metricsHandler)
	if cfg.IsDev() {
		router.Mount("/debug", chimiddleware.Profiler())
		logger.Infow("Profiler mounted", "path", "/debug/pprof/")
	}

	logger.Infow("CORS configured", "allowed_origins", cfg.Security.CORSAllowedOrigins)
	if cfg.IsProd() && slices.Contains(cfg.Security.CORSAllowedOrigins, "*") {
		logger.Warnw("CORS allows every origin in prod", "hint", "set CACHE_CORS_ALLOWED_ORIGINS")
	}

	server := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.RequestTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Infow("Cache server listening", "addr", server.Addr)
		serverErrors <- server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		logger.Fatalw("Server startup failed", "error", err)
	case sig := <-shutdown:
		logger.Infow("Shutdown signal received", "signal", sig.String())

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			logger.Errorw("Graceful shutdown failed", "error", err)
			server.Close()
		}

		logger.Infow("Server stopped")
	}
}

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/leafsii/cache-redis/internal/cache"
	"github.com/leafsii/cache-redis/internal/cli"
	"github.com/leafsii/cache-redis/internal/config"
	"github.com/leafsii/cache-redis/internal/log"
	"github.com/leafsii/cache-redis/pkg/kv"
	_ "github.com/leafsii/cache-redis/pkg/kv/memory"
	_ "github.com/leafsii/cache-redis/pkg/kv/redis"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := cli.Execute(ctx, open, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		os.Exit(1)
	}
}

// open connects to the backend named by the CACHE_* environment
func open(ctx context.Context) (*cache.Adapter, func() error, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, reportf("load config: %w", err)
	}

	level := cfg.LogLevel
	if level == "" {
		level = "warn"
	}
	logger, err := log.NewSugar(cfg.Env, level)
	if err != nil {
		return nil, nil, reportf("create logger: %w", err)
	}

	store, err := kv.NewStoreFromConfig(cfg.KV())
	if err != nil {
		return nil, nil, reportf("connect %s backend: %w", cfg.Backend.Kind, err)
	}

	adapter := cache.New(store,
		cache.WithPageSize(cfg.Adapter.ScanCount),
		cache.WithHashSlot(cfg.Adapter.HashSlot),
		cache.WithLogger(logger),
	)
	return adapter, func() error {
		logger.Sync()
		return store.Close()
	}, nil
}

func reportf(format string, args ...any) error {
	err := fmt.Errorf(format, args...)
	fmt.Fprintf(os.Stderr, "cachectl: %v\n", err)
	return err
}

package kv

import (
	"context"
	"fmt"
	"time"
)

// Backend represents the storage backend type
type Backend string

const (
	// BackendMemory uses the in-memory store
	BackendMemory Backend = "memory"
	// BackendRedis uses Redis as the backend
	BackendRedis Backend = "redis"
)

// Config holds configuration for creating a Store instance
type Config struct {
	// Backend specifies which storage backend to use
	Backend Backend

	// RedisURL is the connection string for Redis (required when Backend is "redis")
	// Format: redis://localhost:6379/0 or redis://:password@localhost:6379/1
	// A bare host:port is accepted as well.
	RedisURL string

	// RedisCluster connects with a cluster client instead of a single node client.
	// RedisURL then names any seed node of the cluster.
	RedisCluster bool

	// JanitorInterval controls how often the in-memory store cleans up expired keys
	// Set to 0 to disable background cleanup (not recommended for production)
	// Default: 30 seconds
	JanitorInterval time.Duration

	// StartupProbeTimeout controls how long to wait for Redis at startup
	// Default: 5 seconds
	StartupProbeTimeout time.Duration
}

// StoreFactory defines a function that creates a Store instance
type StoreFactory func(cfg Config) (Store, error)

// factories holds registered store factories
var factories = make(map[Backend]StoreFactory)

// RegisterBackend registers a store factory for a given backend
func RegisterBackend(backend Backend, factory StoreFactory) {
	factories[backend] = factory
}

// NewStoreFromConfig creates a new Store instance based on the provided configuration
func NewStoreFromConfig(cfg Config) (Store, error) {
	// Set defaults
	if cfg.JanitorInterval == 0 {
		cfg.JanitorInterval = 30 * time.Second
	}
	if cfg.StartupProbeTimeout == 0 {
		cfg.StartupProbeTimeout = 5 * time.Second
	}

	switch cfg.Backend {
	case BackendMemory:
		factory, exists := factories[BackendMemory]
		if !exists {
			return nil, fmt.Errorf("memory backend not registered")
		}
		return factory(cfg)

	case BackendRedis:
		return createRedisStore(cfg)

	default:
		return nil, fmt.Errorf("unsupported backend: %s (supported: %s, %s)",
			cfg.Backend, BackendMemory, BackendRedis)
	}
}

// createRedisStore creates a Redis store and verifies it answers PING.
// Redis being down at startup is an error: the adapter never silently swaps
// in another backend.
func createRedisStore(cfg Config) (Store, error) {
	if cfg.RedisURL == "" {
		return nil, fmt.Errorf("redis URL is required when backend is 'redis'")
	}

	redisFactory, exists := factories[BackendRedis]
	if !exists {
		return nil, fmt.Errorf("redis backend not registered")
	}

	store, err := redisFactory(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create redis store: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.StartupProbeTimeout)
	defer cancel()

	if err := store.Ping(ctx); err != nil {
		store.Close()
		return nil, fmt.Errorf("redis health check failed at startup: %w", err)
	}

	return store, nil
}

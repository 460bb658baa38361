package kv

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a key is not found
var ErrNotFound = errors.New("not found")

// ErrBackendUnavailable is returned when the backend storage is unavailable
var ErrBackendUnavailable = errors.New("backend unavailable")

// ErrCrossSlot is returned when a multi-key command spans more than one
// cluster hash slot
var ErrCrossSlot = errors.New("keys in request don't hash to the same slot")

// Store defines the subset of Redis commands the cache adapter relies on
type Store interface {
	// Set stores value under key. A ttl greater than zero sets a millisecond
	// precision expiry (PX); no ttl means the key never expires.
	Set(ctx context.Context, key string, value []byte, ttl ...time.Duration) error
	// Get returns ErrNotFound for missing or expired keys.
	Get(ctx context.Context, key string) ([]byte, error)

	Del(ctx context.Context, keys ...string) (int64, error)

	// MGet returns one entry per key; missing keys are nil.
	MGet(ctx context.Context, keys ...string) ([][]byte, error)

	// Scan performs one SCAN round trip. A returned cursor of 0 means the
	// iteration is complete.
	Scan(ctx context.Context, cursor uint64, match string, count int64) ([]string, uint64, error)

	// Health check
	Ping(ctx context.Context) error

	// Cleanup
	Close() error
}

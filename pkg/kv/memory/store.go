package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/leafsii/cache-redis/pkg/kv"
	"github.com/ryanuber/go-glob"
)

// Store is an in-memory implementation of the kv.Store interface
type Store struct {
	mu          sync.RWMutex
	strings     map[string][]byte
	expirations map[string]time.Time

	janitorInterval time.Duration
	janitorStop     chan struct{}
	janitorDone     chan struct{}
	closeOnce       sync.Once
}

// New creates a new in-memory store with optional janitor for TTL cleanup
func New(janitorInterval time.Duration) *Store {
	s := &Store{
		strings:         make(map[string][]byte),
		expirations:     make(map[string]time.Time),
		janitorInterval: janitorInterval,
		janitorStop:     make(chan struct{}),
		janitorDone:     make(chan struct{}),
	}

	if janitorInterval > 0 {
		go s.janitor()
	} else {
		close(s.janitorDone)
	}

	return s
}

// janitor runs background expiration cleanup
func (s *Store) janitor() {
	defer close(s.janitorDone)
	ticker := time.NewTicker(s.janitorInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.evictExpired()
		case <-s.janitorStop:
			return
		}
	}
}

// evictExpired removes all expired keys
func (s *Store) evictExpired() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	for key, expiry := range s.expirations {
		if now.After(expiry) {
			s.deleteKeyUnsafe(key)
		}
	}
}

// isExpired checks if a key has expired (must hold read lock)
func (s *Store) isExpired(key string, now time.Time) bool {
	if expiry, exists := s.expirations[key]; exists {
		return now.After(expiry)
	}
	return false
}

// deleteKeyUnsafe removes a key and its expiry (must hold write lock)
func (s *Store) deleteKeyUnsafe(key string) {
	delete(s.strings, key)
	delete(s.expirations, key)
}

// lookup returns the live value for key (must hold read lock)
func (s *Store) lookup(key string, now time.Time) ([]byte, bool) {
	if s.isExpired(key, now) {
		return nil, false
	}
	value, exists := s.strings[key]
	return value, exists
}

// String operations

func (s *Store) Set(ctx context.Context, key string, value []byte, ttl ...time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := make([]byte, len(value))
	copy(stored, value)
	s.strings[key] = stored

	// SET without expiry clears any previous TTL, like Redis
	if len(ttl) > 0 && ttl[0] > 0 {
		s.expirations[key] = time.Now().Add(ttl[0])
	} else {
		delete(s.expirations, key)
	}

	return nil
}

func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	value, exists := s.lookup(key, time.Now())
	if !exists {
		return nil, kv.ErrNotFound
	}

	return value, nil
}

// Key operations

func (s *Store) Del(ctx context.Context, keys ...string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	var deleted int64
	for _, key := range keys {
		if _, exists := s.lookup(key, now); exists {
			deleted++
		}
		s.deleteKeyUnsafe(key)
	}

	return deleted, nil
}

// Multi operations

func (s *Store) MGet(ctx context.Context, keys ...string) ([][]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	now := time.Now()
	values := make([][]byte, len(keys))
	for i, key := range keys {
		if value, exists := s.lookup(key, now); exists {
			values[i] = value
		}
	}

	return values, nil
}

// Scan walks the live keys matching match in lexical order. The cursor is the
// offset into that ordering and count caps the number of keys per page. Keys
// written between calls may be missed or repeated, as with Redis SCAN.
func (s *Store) Scan(ctx context.Context, cursor uint64, match string, count int64) ([]string, uint64, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}
	if match == "" {
		match = "*"
	}
	if count <= 0 {
		count = 10
	}

	s.mu.RLock()
	now := time.Now()
	matched := make([]string, 0)
	for key := range s.strings {
		if s.isExpired(key, now) {
			continue
		}
		if glob.Glob(match, key) {
			matched = append(matched, key)
		}
	}
	s.mu.RUnlock()

	sort.Strings(matched)

	start := cursor
	if start >= uint64(len(matched)) {
		return []string{}, 0, nil
	}
	end := start + uint64(count)
	if end >= uint64(len(matched)) {
		return matched[start:], 0, nil
	}

	return matched[start:end], end, nil
}

// Ping always succeeds for the in-memory store
func (s *Store) Ping(ctx context.Context) error {
	return nil
}

// Close stops the janitor
func (s *Store) Close() error {
	s.closeOnce.Do(func() {
		close(s.janitorStop)
		<-s.janitorDone
	})
	return nil
}

// Len returns the number of live keys, mainly for tests and diagnostics
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	now := time.Now()
	n := 0
	for key := range s.strings {
		if !s.isExpired(key, now) {
			n++
		}
	}
	return n
}

// PTTL reports the remaining time to live of key. It returns -1 for keys
// without expiry and kv.ErrNotFound for missing keys.
func (s *Store) PTTL(ctx context.Context, key string) (time.Duration, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	now := time.Now()
	if _, exists := s.lookup(key, now); !exists {
		return 0, kv.ErrNotFound
	}
	expiry, hasExpiry := s.expirations[key]
	if !hasExpiry {
		return -1, nil
	}
	return expiry.Sub(now), nil
}

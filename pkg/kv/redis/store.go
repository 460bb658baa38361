package redis

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/leafsii/cache-redis/pkg/kv"
	"github.com/redis/go-redis/v9"
)

// Store is a Redis-backed implementation of the kv.Store interface.
// It drives either a single node client or a cluster client.
type Store struct {
	client redis.UniversalClient
}

// IsConnectionError checks if an error is a connection-related error
func IsConnectionError(err error) bool {
	if err == nil {
		return false
	}

	// Don't treat redis.Nil as a connection error (it means "key not found")
	if errors.Is(err, redis.Nil) {
		return false
	}

	// Context cancellation or deadline by caller is not a backend failure
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	var sysErr syscall.Errno
	if errors.As(err, &sysErr) {
		switch sysErr {
		case syscall.ECONNREFUSED, syscall.ECONNRESET, syscall.ECONNABORTED, syscall.ETIMEDOUT:
			return true
		}
	}

	errStr := err.Error()
	connectionErrors := []string{
		"connection refused",
		"connection reset",
		"broken pipe",
		"no such host",
		"network is unreachable",
		"timeout",
		"connection closed",
		"client is closed",
		"EOF",
	}

	for _, connErr := range connectionErrors {
		if strings.Contains(errStr, connErr) {
			return true
		}
	}

	return false
}

// IsCrossSlotError reports whether Redis rejected a multi-key command because
// its keys live in different cluster hash slots
func IsCrossSlotError(err error) bool {
	return err != nil && strings.HasPrefix(err.Error(), "CROSSSLOT")
}

// wrapError maps driver errors onto the kv sentinel errors
func (s *Store) wrapError(err error) error {
	if err == nil {
		return nil
	}
	if IsCrossSlotError(err) {
		return fmt.Errorf("%w: %v", kv.ErrCrossSlot, err)
	}
	if IsConnectionError(err) {
		return fmt.Errorf("%w: %v", kv.ErrBackendUnavailable, err)
	}
	return err
}

// ParseOptions turns a redis:// URL or a bare host:port into client options
func ParseOptions(redisURL string) (*redis.Options, error) {
	opt, err := redis.ParseURL(redisURL)
	if err == nil {
		return opt, nil
	}

	// Fallback for simple address format
	u, parseErr := url.Parse("redis://" + redisURL)
	if parseErr != nil {
		return nil, err // Return original error
	}

	db := 0
	if u.Path != "" && u.Path != "/" {
		if dbNum, dbErr := strconv.Atoi(u.Path[1:]); dbErr == nil {
			db = dbNum
		}
	}

	opt = &redis.Options{
		Addr: u.Host,
		DB:   db,
	}

	if u.User != nil {
		opt.Username = u.User.Username()
		if password, hasPassword := u.User.Password(); hasPassword {
			opt.Password = password
		}
	}

	return opt, nil
}

// New creates a new Redis-backed store. With cluster set, redisURL names a
// seed node and a cluster client discovers the rest of the topology.
func New(redisURL string, cluster bool) (*Store, error) {
	opt, err := ParseOptions(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}

	if !cluster {
		opt.DialTimeout = 5 * time.Second
		opt.ReadTimeout = 3 * time.Second
		opt.WriteTimeout = 3 * time.Second
		return NewFromClient(redis.NewClient(opt)), nil
	}

	client := redis.NewClusterClient(&redis.ClusterOptions{
		Addrs:        []string{opt.Addr},
		Username:     opt.Username,
		Password:     opt.Password,
		TLSConfig:    opt.TLSConfig,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})
	return NewFromClient(client), nil
}

// NewFromClient wraps an already configured go-redis client
func NewFromClient(client redis.UniversalClient) *Store {
	return &Store{client: client}
}

// String operations

func (s *Store) Set(ctx context.Context, key string, value []byte, ttl ...time.Duration) error {
	var expiration time.Duration
	if len(ttl) > 0 && ttl[0] > 0 {
		expiration = ttl[0]
	}
	return s.wrapError(s.client.Set(ctx, key, value, expiration).Err())
}

func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	result, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, kv.ErrNotFound
		}
		return nil, s.wrapError(err)
	}
	return result, nil
}

// Key operations

func (s *Store) Del(ctx context.Context, keys ...string) (int64, error) {
	if len(keys) == 0 {
		return 0, nil
	}
	n, err := s.client.Del(ctx, keys...).Result()
	return n, s.wrapError(err)
}

// Multi operations

func (s *Store) MGet(ctx context.Context, keys ...string) ([][]byte, error) {
	if len(keys) == 0 {
		return nil, nil
	}
	result, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, s.wrapError(err)
	}

	values := make([][]byte, len(result))
	for i, value := range result {
		if str, ok := value.(string); ok {
			values[i] = []byte(str)
		}
		// nil values remain nil (representing missing keys)
	}

	return values, nil
}

// Scan performs a single SCAN round trip.
//
// On a cluster client a pattern carrying a hash tag is sent to the master that
// owns the tag's slot, so the cursor stays meaningful across calls. Patterns
// without a hash tag are gathered from every master in one call and the
// returned cursor is always 0.
func (s *Store) Scan(ctx context.Context, cursor uint64, match string, count int64) ([]string, uint64, error) {
	cc, ok := s.client.(*redis.ClusterClient)
	if !ok {
		keys, next, err := s.client.Scan(ctx, cursor, match, count).Result()
		return keys, next, s.wrapError(err)
	}

	if tag, ok := hashTag(match); ok {
		node, err := cc.MasterForKey(ctx, "{"+tag+"}")
		if err != nil {
			return nil, 0, s.wrapError(err)
		}
		keys, next, err := node.Scan(ctx, cursor, match, count).Result()
		return keys, next, s.wrapError(err)
	}

	keys, err := s.scanMasters(ctx, cc, match, count)
	return keys, 0, err
}

func (s *Store) scanMasters(ctx context.Context, cc *redis.ClusterClient, match string, count int64) ([]string, error) {
	var (
		mu   sync.Mutex
		keys []string
	)
	err := cc.ForEachMaster(ctx, func(ctx context.Context, node *redis.Client) error {
		var cursor uint64
		for {
			page, next, err := node.Scan(ctx, cursor, match, count).Result()
			if err != nil {
				return err
			}
			mu.Lock()
			keys = append(keys, page...)
			mu.Unlock()
			if next == 0 {
				return nil
			}
			cursor = next
		}
	})
	if err != nil {
		return nil, s.wrapError(err)
	}
	return keys, nil
}

// hashTag extracts the cluster hash tag from a key or pattern using the same
// rule as Redis: the content between the first '{' and the next '}', if non-empty.
func hashTag(s string) (string, bool) {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return "", false
	}
	end := strings.IndexByte(s[start+1:], '}')
	if end <= 0 {
		return "", false
	}
	return s[start+1 : start+1+end], true
}

// Ping checks if Redis is reachable
func (s *Store) Ping(ctx context.Context) error {
	return s.wrapError(s.client.Ping(ctx).Err())
}

// Close closes the Redis connection
func (s *Store) Close() error {
	return s.client.Close()
}

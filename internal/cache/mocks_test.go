package cache

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/leafsii/cache-redis/pkg/kv"
	"github.com/stretchr/testify/mock"
)

// MockStore records every command the adapter sends
type MockStore struct {
	mock.Mock
}

func (m *MockStore) Set(ctx context.Context, key string, value []byte, ttl ...time.Duration) error {
	args := m.Called(ctx, key, string(value), ttl)
	return args.Error(0)
}

func (m *MockStore) Get(ctx context.Context, key string) ([]byte, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return []byte(args.String(0)), args.Error(1)
}

func (m *MockStore) Del(ctx context.Context, keys ...string) (int64, error) {
	args := m.Called(ctx, keys)
	return int64(args.Int(0)), args.Error(1)
}

func (m *MockStore) MGet(ctx context.Context, keys ...string) ([][]byte, error) {
	args := m.Called(ctx, keys)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([][]byte), args.Error(1)
}

func (m *MockStore) Scan(ctx context.Context, cursor uint64, match string, count int64) ([]string, uint64, error) {
	args := m.Called(ctx, cursor, match, count)
	var keys []string
	if args.Get(0) != nil {
		keys = args.Get(0).([]string)
	}
	return keys, args.Get(1).(uint64), args.Error(2)
}

func (m *MockStore) Ping(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *MockStore) Close() error {
	return nil
}

var _ kv.Store = (*MockStore)(nil)

// countingStore wraps a real store and counts round trips per command
type countingStore struct {
	kv.Store

	scans, gets, mgets, dels atomic.Int64

	inflight    atomic.Int64
	maxInflight atomic.Int64
}

func (c *countingStore) enter() func() {
	n := c.inflight.Add(1)
	for {
		cur := c.maxInflight.Load()
		if n <= cur || c.maxInflight.CompareAndSwap(cur, n) {
			break
		}
	}
	return func() { c.inflight.Add(-1) }
}

func (c *countingStore) Scan(ctx context.Context, cursor uint64, match string, count int64) ([]string, uint64, error) {
	c.scans.Add(1)
	return c.Store.Scan(ctx, cursor, match, count)
}

func (c *countingStore) Get(ctx context.Context, key string) ([]byte, error) {
	defer c.enter()()
	c.gets.Add(1)
	return c.Store.Get(ctx, key)
}

func (c *countingStore) MGet(ctx context.Context, keys ...string) ([][]byte, error) {
	defer c.enter()()
	c.mgets.Add(1)
	return c.Store.MGet(ctx, keys...)
}

func (c *countingStore) Del(ctx context.Context, keys ...string) (int64, error) {
	defer c.enter()()
	c.dels.Add(1)
	return c.Store.Del(ctx, keys...)
}

// recorder captures metrics callbacks
type recorder struct {
	mu        sync.Mutex
	ops       map[string][]string
	scanPages int
	bulkPages map[string][]int
}

func newRecorder() *recorder {
	return &recorder{ops: make(map[string][]string), bulkPages: make(map[string][]int)}
}

func (r *recorder) RecordCacheOp(_ context.Context, op, outcome string, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ops[op] = append(r.ops[op], outcome)
}

func (r *recorder) RecordScanPage(context.Context, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.scanPages++
}

func (r *recorder) RecordBulkPage(_ context.Context, op string, keys int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.bulkPages[op] = append(r.bulkPages[op], keys)
}

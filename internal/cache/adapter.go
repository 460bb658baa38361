// Package cache implements the cache port on top of a Redis-like kv.Store.
//
// Redis has no namespaces, so a store is emulated twice over: a marker key
// ("store_<name>") records that the store exists, and every document of the
// store lives under the prefix "<name>_" or, with hash slots enabled,
// "{<name>}_" so that a Redis Cluster keeps all of a store's keys on one node.
//
// Enumeration uses SCAN cursors and bulk reads and deletes are split into
// bounded pages; both are driven by explicit loops, never by recursion.
package cache

import (
	"context"
	"time"

	"github.com/leafsii/cache-redis/pkg/kv"
	"go.uber.org/zap"
)

// DefaultPageSize is the SCAN COUNT and bulk page size used when none is configured
const DefaultPageSize = 10000

// Recorder receives operational measurements from the adapter
type Recorder interface {
	RecordCacheOp(ctx context.Context, op, outcome string, duration time.Duration)
	RecordScanPage(ctx context.Context, keys int)
	RecordBulkPage(ctx context.Context, op string, keys int)
}

type nopRecorder struct{}

func (nopRecorder) RecordCacheOp(context.Context, string, string, time.Duration) {}
func (nopRecorder) RecordScanPage(context.Context, int)                         {}
func (nopRecorder) RecordBulkPage(context.Context, string, int)                 {}

// Adapter maps cache port operations onto kv.Store commands
type Adapter struct {
	store    kv.Store
	pageSize int64
	hashSlot bool
	logger   *zap.SugaredLogger
	metrics  Recorder

	pager    *pager
	resolver *resolver
}

// Option configures an Adapter
type Option func(*Adapter)

// WithPageSize sets the SCAN COUNT hint and the bulk page size. Values below
// one are ignored.
func WithPageSize(n int64) Option {
	return func(a *Adapter) {
		if n > 0 {
			a.pageSize = n
		}
	}
}

// WithHashSlot toggles hash-tagged document keys. Enabled by default.
func WithHashSlot(enabled bool) Option {
	return func(a *Adapter) {
		a.hashSlot = enabled
	}
}

func WithLogger(logger *zap.SugaredLogger) Option {
	return func(a *Adapter) {
		if logger != nil {
			a.logger = logger
		}
	}
}

func WithMetrics(r Recorder) Option {
	return func(a *Adapter) {
		if r != nil {
			a.metrics = r
		}
	}
}

// New builds an Adapter over an already connected store
func New(store kv.Store, opts ...Option) *Adapter {
	a := &Adapter{
		store:    store,
		pageSize: DefaultPageSize,
		hashSlot: true,
		logger:   zap.NewNop().Sugar(),
		metrics:  nopRecorder{},
	}
	for _, opt := range opts {
		opt(a)
	}

	a.pager = &pager{
		scanner:  store,
		pageSize: a.pageSize,
		onPage:   a.metrics.RecordScanPage,
	}
	a.resolver = &resolver{
		store:    store,
		pageSize: int(a.pageSize),
		hashSlot: a.hashSlot,
		onPage:   a.metrics.RecordBulkPage,
	}
	return a
}

// HashSlot reports whether document keys are hash-tagged
func (a *Adapter) HashSlot() bool {
	return a.hashSlot
}

// PageSize reports the configured page size
func (a *Adapter) PageSize() int64 {
	return a.pageSize
}

// Ping checks the backend
func (a *Adapter) Ping(ctx context.Context) error {
	if err := a.store.Ping(ctx); err != nil {
		return Classify(err)
	}
	return nil
}

// observe records the outcome of a public operation and normalises its error
// to *Error
func (a *Adapter) observe(ctx context.Context, op string, start time.Time, err *error) {
	outcome := "ok"
	if *err != nil {
		e := Classify(*err)
		*err = e
		outcome = string(e.Kind)
		if e.Kind == KindBackend {
			a.logger.Errorw("Cache operation failed", "op", op, "error", e.Err)
		}
	}
	a.metrics.RecordCacheOp(ctx, op, outcome, time.Since(start))
}

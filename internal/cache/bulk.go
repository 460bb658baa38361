package cache

import (
	"context"
	"errors"
	"fmt"

	"github.com/leafsii/cache-redis/pkg/kv"
	"golang.org/x/sync/errgroup"
)

// maxUnslottedPageSize bounds how many single-key commands are in flight at
// once when keys may live in different cluster slots.
const maxUnslottedPageSize = 2500

// resolver fetches or deletes a key set in bounded pages.
//
// With hash slots enabled every key of a store shares one slot, so a page is a
// single MGET or DEL. Otherwise each key gets its own command, run
// concurrently within the page. Pages themselves run one after another.
type resolver struct {
	store    kv.Store
	pageSize int
	hashSlot bool
	onPage   func(ctx context.Context, op string, keys int)
}

func (r *resolver) effectivePageSize() int {
	if r.hashSlot {
		return r.pageSize
	}
	return min(r.pageSize, maxUnslottedPageSize)
}

// forEachPage calls fn for consecutive slices of keys of at most
// effectivePageSize entries, stopping at the first error
func (r *resolver) forEachPage(ctx context.Context, op string, keys []string, fn func(ctx context.Context, start int, page []string) error) error {
	size := r.effectivePageSize()
	for start := 0; start < len(keys); start += size {
		if err := ctx.Err(); err != nil {
			return err
		}
		end := min(start+size, len(keys))
		if err := fn(ctx, start, keys[start:end]); err != nil {
			return err
		}
		if r.onPage != nil {
			r.onPage(ctx, op, end-start)
		}
	}
	return nil
}

// getMany returns one value per key, nil where the key is missing
func (r *resolver) getMany(ctx context.Context, keys []string) ([][]byte, error) {
	values := make([][]byte, len(keys))
	err := r.forEachPage(ctx, "get", keys, func(ctx context.Context, start int, page []string) error {
		return r.getPage(ctx, page, values[start:start+len(page)])
	})
	if err != nil {
		return nil, err
	}
	return values, nil
}

func (r *resolver) getPage(ctx context.Context, page []string, out [][]byte) error {
	if r.hashSlot {
		values, err := r.store.MGet(ctx, page...)
		if err != nil {
			return fmt.Errorf("mget %d keys: %w", len(page), err)
		}
		if len(values) != len(page) {
			return fmt.Errorf("mget %d keys: got %d values", len(page), len(values))
		}
		copy(out, values)
		return nil
	}

	g, gctx := errgroup.WithContext(ctx)
	for i, key := range page {
		g.Go(func() error {
			value, err := r.store.Get(gctx, key)
			if errors.Is(err, kv.ErrNotFound) {
				return nil
			}
			if err != nil {
				return fmt.Errorf("get %q: %w", key, err)
			}
			out[i] = value
			return nil
		})
	}
	return g.Wait()
}

// delMany removes every key
func (r *resolver) delMany(ctx context.Context, keys []string) error {
	return r.forEachPage(ctx, "del", keys, func(ctx context.Context, _ int, page []string) error {
		return r.delPage(ctx, page)
	})
}

func (r *resolver) delPage(ctx context.Context, page []string) error {
	if r.hashSlot {
		if _, err := r.store.Del(ctx, page...); err != nil {
			return fmt.Errorf("del %d keys: %w", len(page), err)
		}
		return nil
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, key := range page {
		g.Go(func() error {
			if _, err := r.store.Del(gctx, key); err != nil {
				return fmt.Errorf("del %q: %w", key, err)
			}
			return nil
		})
	}
	return g.Wait()
}

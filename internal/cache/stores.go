package cache

import (
	"context"
	"fmt"
	"time"
)

const storeActive = "active"

// CreateStore writes the store marker. Creating a store that already exists
// succeeds and leaves its documents untouched.
func (a *Adapter) CreateStore(ctx context.Context, name string) (err error) {
	defer a.observe(ctx, "createStore", time.Now(), &err)

	if err := validateStore(name); err != nil {
		return err
	}

	if err := a.store.Set(ctx, storeMarkerKey(name), []byte(storeActive)); err != nil {
		return fmt.Errorf("create store %q: %w", name, err)
	}

	a.logger.Debugw("Store created", "store", name)
	return nil
}

// DestroyStore deletes every document of the store and then its marker.
// Destroying a store that does not exist succeeds.
func (a *Adapter) DestroyStore(ctx context.Context, name string) (err error) {
	defer a.observe(ctx, "destroyStore", time.Now(), &err)

	if err := validateStore(name); err != nil {
		return err
	}

	keys, err := a.pager.all(ctx, matchPattern(name, "*", a.hashSlot))
	if err != nil {
		return fmt.Errorf("destroy store %q: %w", name, err)
	}

	if len(keys) > 0 {
		if err := a.resolver.delMany(ctx, keys); err != nil {
			return fmt.Errorf("destroy store %q: %w", name, err)
		}
	}

	if _, err := a.store.Del(ctx, storeMarkerKey(name)); err != nil {
		return fmt.Errorf("destroy store %q: delete marker: %w", name, err)
	}

	a.logger.Debugw("Store destroyed", "store", name, "documents", len(keys))
	return nil
}

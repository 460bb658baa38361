package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/leafsii/cache-redis/pkg/kv"
)

// DocInput carries a document write. TTL is in milliseconds; nil means the
// document never expires.
type DocInput struct {
	Store string
	Key   string
	Value any
	TTL   *int64
}

// DocRef addresses a single document
type DocRef struct {
	Store string
	Key   string
}

// Query selects documents of a store by glob pattern. An empty pattern
// matches every document.
type Query struct {
	Store   string
	Pattern string
}

// maxTTL is the longest TTL in milliseconds a time.Duration can hold
const maxTTL = math.MaxInt64 / int64(time.Millisecond)

// expiry converts a TTL in milliseconds into the kv.Store ttl argument.
// Zero and negative TTLs become 1ms so the document expires almost at once
// instead of living forever. TTLs beyond maxTTL are clamped to it.
func expiry(ttl *int64) []time.Duration {
	if ttl == nil {
		return nil
	}
	ms := min(max(*ttl, 1), maxTTL)
	return []time.Duration{time.Duration(ms) * time.Millisecond}
}

// globChars are the SCAN MATCH metacharacters. A store name carrying one
// would match the keys of other stores.
const globChars = `*?[]\`

func validateStore(store string) error {
	if store == "" {
		return badRequest("store name is required", nil)
	}
	if strings.ContainsAny(store, globChars) {
		return badRequest(fmt.Sprintf("store name must not contain any of %q", globChars), nil)
	}
	return nil
}

func validateRef(store, key string) error {
	if err := validateStore(store); err != nil {
		return err
	}
	if key == "" {
		return badRequest("document key is required", nil)
	}
	return nil
}

// checkStore fails with ErrStoreNotFound unless the store marker exists
func (a *Adapter) checkStore(ctx context.Context, store string) error {
	_, err := a.store.Get(ctx, storeMarkerKey(store))
	if errors.Is(err, kv.ErrNotFound) {
		return ErrStoreNotFound
	}
	if err != nil {
		return fmt.Errorf("lookup store %q: %w", store, err)
	}
	return nil
}

func marshalValue(value any) ([]byte, error) {
	data, err := json.Marshal(value)
	if err != nil {
		return nil, badRequest("value is not JSON serializable", err)
	}
	return data, nil
}

// CreateDoc stores a new document and returns its serialized value.
//
// The existence check and the write are separate round trips, so two
// concurrent creates of one key can both succeed.
func (a *Adapter) CreateDoc(ctx context.Context, in DocInput) (doc json.RawMessage, err error) {
	defer a.observe(ctx, "createDoc", time.Now(), &err)

	if err := validateRef(in.Store, in.Key); err != nil {
		return nil, err
	}
	if err := a.checkStore(ctx, in.Store); err != nil {
		return nil, err
	}

	key := makeKey(in.Store, in.Key, a.hashSlot)
	_, err = a.store.Get(ctx, key)
	switch {
	case err == nil:
		return nil, ErrDocumentConflict
	case !errors.Is(err, kv.ErrNotFound):
		return nil, fmt.Errorf("create doc %q: %w", key, err)
	}

	data, err := marshalValue(in.Value)
	if err != nil {
		return nil, err
	}
	if err := a.store.Set(ctx, key, data, expiry(in.TTL)...); err != nil {
		return nil, fmt.Errorf("create doc %q: %w", key, err)
	}

	return json.RawMessage(data), nil
}

// GetDoc returns the stored JSON of a document
func (a *Adapter) GetDoc(ctx context.Context, ref DocRef) (doc json.RawMessage, err error) {
	defer a.observe(ctx, "getDoc", time.Now(), &err)

	if err := validateRef(ref.Store, ref.Key); err != nil {
		return nil, err
	}
	if err := a.checkStore(ctx, ref.Store); err != nil {
		return nil, err
	}

	key := makeKey(ref.Store, ref.Key, a.hashSlot)
	data, err := a.store.Get(ctx, key)
	if errors.Is(err, kv.ErrNotFound) {
		return nil, ErrDocumentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get doc %q: %w", key, err)
	}
	if !json.Valid(data) {
		return nil, fmt.Errorf("get doc %q: stored value is not valid JSON", key)
	}

	return json.RawMessage(data), nil
}

// UpdateDoc writes a document whether or not it exists
func (a *Adapter) UpdateDoc(ctx context.Context, in DocInput) (err error) {
	defer a.observe(ctx, "updateDoc", time.Now(), &err)

	if err := validateRef(in.Store, in.Key); err != nil {
		return err
	}
	if err := a.checkStore(ctx, in.Store); err != nil {
		return err
	}

	data, err := marshalValue(in.Value)
	if err != nil {
		return err
	}

	key := makeKey(in.Store, in.Key, a.hashSlot)
	if err := a.store.Set(ctx, key, data, expiry(in.TTL)...); err != nil {
		return fmt.Errorf("update doc %q: %w", key, err)
	}
	return nil
}

// DeleteDoc removes a document. Deleting a missing document succeeds.
func (a *Adapter) DeleteDoc(ctx context.Context, ref DocRef) (err error) {
	defer a.observe(ctx, "deleteDoc", time.Now(), &err)

	if err := validateRef(ref.Store, ref.Key); err != nil {
		return err
	}
	if err := a.checkStore(ctx, ref.Store); err != nil {
		return err
	}

	key := makeKey(ref.Store, ref.Key, a.hashSlot)
	if _, err := a.store.Del(ctx, key); err != nil {
		return fmt.Errorf("delete doc %q: %w", key, err)
	}
	return nil
}

// ListDocs returns the documents of a store whose keys match q.Pattern.
//
// The store marker is not consulted: listing a store that does not exist
// yields no documents. Keys that vanish between the SCAN and the fetch, and
// values that are not valid JSON, are left out of the result.
func (a *Adapter) ListDocs(ctx context.Context, q Query) (docs []Doc, err error) {
	defer a.observe(ctx, "listDocs", time.Now(), &err)

	if err := validateStore(q.Store); err != nil {
		return nil, err
	}
	pattern := q.Pattern
	if pattern == "" {
		pattern = "*"
	}

	keys, err := a.pager.all(ctx, matchPattern(q.Store, pattern, a.hashSlot))
	if err != nil {
		return nil, fmt.Errorf("list docs %q: %w", q.Store, err)
	}

	values, err := a.resolver.getMany(ctx, keys)
	if err != nil {
		return nil, fmt.Errorf("list docs %q: %w", q.Store, err)
	}

	prefix := storePrefix(q.Store, a.hashSlot)
	docs = make([]Doc, 0, len(keys))
	for i, physical := range keys {
		value := values[i]
		if value == nil {
			a.logger.Debugw("Skipping key removed during list", "store", q.Store, "key", physical)
			continue
		}
		if !json.Valid(value) {
			a.logger.Warnw("Skipping key with invalid JSON value", "store", q.Store, "key", physical)
			continue
		}
		key, ok := parseKey(prefix, physical)
		if !ok {
			continue
		}
		docs = append(docs, Doc{Key: key, Value: json.RawMessage(value)})
	}

	return docs, nil
}

// IndexDocs is part of the cache port but not supported by this adapter
func (a *Adapter) IndexDocs(ctx context.Context, store string) (err error) {
	defer a.observe(ctx, "indexDocs", time.Now(), &err)
	return ErrNotImplemented
}

// Package kvtest provides conformance tests for kv.Store implementations
package kvtest

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sort"
	"testing"
	"time"

	"github.com/leafsii/cache-redis/pkg/kv"
)

// StoreFactory creates a fresh Store instance for testing
type StoreFactory func(t *testing.T) kv.Store

// RunConformanceTests runs all conformance tests against a Store implementation
func RunConformanceTests(t *testing.T, factory StoreFactory) {
	RunConformanceTestsWithClock(t, factory, time.Sleep)
}

// RunConformanceTestsWithClock runs the suite with a custom way of letting
// time pass, for backends whose expiry is driven by a fake clock.
func RunConformanceTestsWithClock(t *testing.T, factory StoreFactory, sleep func(time.Duration)) {
	t.Run("StringOperations", func(t *testing.T) {
		run(t, factory, sleep, []namedTest{
			{"SetGet", testSetGet},
			{"GetNonExistent", testGetNonExistent},
			{"Overwrite", testOverwrite},
		})
	})
	t.Run("KeyOperations", func(t *testing.T) {
		run(t, factory, sleep, []namedTest{
			{"Del", testDel},
			{"DelMany", testDelMany},
			{"DelMissing", testDelMissing},
		})
	})
	t.Run("TTLOperations", func(t *testing.T) {
		run(t, factory, sleep, []namedTest{
			{"SetWithTTL", testSetWithTTL},
			{"SetClearsTTL", testSetClearsTTL},
		})
	})
	t.Run("MultiOperations", func(t *testing.T) {
		run(t, factory, sleep, []namedTest{
			{"MGet", testMGet},
		})
	})
	t.Run("ScanOperations", func(t *testing.T) {
		run(t, factory, sleep, []namedTest{
			{"ScanMatch", testScanMatch},
			{"ScanPaged", testScanPaged},
			{"ScanEmpty", testScanEmpty},
		})
	})
	t.Run("HealthCheck", func(t *testing.T) {
		run(t, factory, sleep, []namedTest{
			{"Ping", testPing},
		})
	})
}

type namedTest struct {
	name string
	test func(t *testing.T, store kv.Store, sleep func(time.Duration))
}

func run(t *testing.T, factory StoreFactory, sleep func(time.Duration), tests []namedTest) {
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := factory(t)
			defer store.Close()
			tt.test(t, store, sleep)
		})
	}
}

func testSetGet(t *testing.T, store kv.Store, _ func(time.Duration)) {
	ctx := context.Background()
	key := "test:string"
	value := []byte("hello world")

	if err := store.Set(ctx, key, value); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	result, err := store.Get(ctx, key)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}

	if !reflect.DeepEqual(result, value) {
		t.Fatalf("Expected %v, got %v", value, result)
	}
}

func testGetNonExistent(t *testing.T, store kv.Store, _ func(time.Duration)) {
	_, err := store.Get(context.Background(), "test:nonexistent")
	if !errors.Is(err, kv.ErrNotFound) {
		t.Fatalf("Expected ErrNotFound, got %v", err)
	}
}

func testOverwrite(t *testing.T, store kv.Store, _ func(time.Duration)) {
	ctx := context.Background()
	key := "test:overwrite"

	store.Set(ctx, key, []byte("one"))
	store.Set(ctx, key, []byte("two"))

	result, err := store.Get(ctx, key)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if string(result) != "two" {
		t.Fatalf("Expected %q, got %q", "two", result)
	}
}

func testDel(t *testing.T, store kv.Store, _ func(time.Duration)) {
	ctx := context.Background()
	key1, key2 := "test:del1", "test:del2"
	value := []byte("test")

	store.Set(ctx, key1, value)
	store.Set(ctx, key2, value)

	deleted, err := store.Del(ctx, key1)
	if err != nil {
		t.Fatalf("Del failed: %v", err)
	}
	if deleted != 1 {
		t.Fatalf("Expected 1 deleted, got %d", deleted)
	}

	if _, err = store.Get(ctx, key1); !errors.Is(err, kv.ErrNotFound) {
		t.Fatalf("Expected ErrNotFound for deleted key, got %v", err)
	}

	if _, err = store.Get(ctx, key2); err != nil {
		t.Fatalf("Expected key2 to still exist, got %v", err)
	}
}

func testDelMany(t *testing.T, store kv.Store, _ func(time.Duration)) {
	ctx := context.Background()
	keys := []string{"{test}:a", "{test}:b", "{test}:c"}
	for _, key := range keys {
		store.Set(ctx, key, []byte("x"))
	}

	deleted, err := store.Del(ctx, keys...)
	if err != nil {
		t.Fatalf("Del failed: %v", err)
	}
	if deleted != int64(len(keys)) {
		t.Fatalf("Expected %d deleted, got %d", len(keys), deleted)
	}
}

func testDelMissing(t *testing.T, store kv.Store, _ func(time.Duration)) {
	deleted, err := store.Del(context.Background(), "test:never-set")
	if err != nil {
		t.Fatalf("Del of a missing key failed: %v", err)
	}
	if deleted != 0 {
		t.Fatalf("Expected 0 deleted, got %d", deleted)
	}
}

func testSetWithTTL(t *testing.T, store kv.Store, sleep func(time.Duration)) {
	ctx := context.Background()
	key := "test:ttl"

	if err := store.Set(ctx, key, []byte("expires"), 100*time.Millisecond); err != nil {
		t.Fatalf("Set with TTL failed: %v", err)
	}

	if _, err := store.Get(ctx, key); err != nil {
		t.Fatalf("Expected key to exist initially, got %v", err)
	}

	sleep(150 * time.Millisecond)

	if _, err := store.Get(ctx, key); !errors.Is(err, kv.ErrNotFound) {
		t.Fatalf("Expected key to be expired, got %v", err)
	}
}

func testSetClearsTTL(t *testing.T, store kv.Store, sleep func(time.Duration)) {
	ctx := context.Background()
	key := "test:ttl-cleared"

	store.Set(ctx, key, []byte("short"), 100*time.Millisecond)
	store.Set(ctx, key, []byte("forever"))

	sleep(150 * time.Millisecond)

	result, err := store.Get(ctx, key)
	if err != nil {
		t.Fatalf("Expected key without TTL to survive, got %v", err)
	}
	if string(result) != "forever" {
		t.Fatalf("Expected %q, got %q", "forever", result)
	}
}

func testMGet(t *testing.T, store kv.Store, _ func(time.Duration)) {
	ctx := context.Background()
	store.Set(ctx, "{mget}:1", []byte("one"))
	store.Set(ctx, "{mget}:3", []byte("three"))

	values, err := store.MGet(ctx, "{mget}:1", "{mget}:2", "{mget}:3")
	if err != nil {
		t.Fatalf("MGet failed: %v", err)
	}
	if len(values) != 3 {
		t.Fatalf("Expected 3 values, got %d", len(values))
	}
	if string(values[0]) != "one" || values[1] != nil || string(values[2]) != "three" {
		t.Fatalf("Unexpected MGet result: %q", values)
	}
}

// scanAll drains a SCAN iteration and returns the sorted distinct keys
func scanAll(t *testing.T, store kv.Store, match string, count int64) ([]string, int) {
	t.Helper()
	ctx := context.Background()

	seen := make(map[string]struct{})
	var cursor uint64
	calls := 0
	for {
		keys, next, err := store.Scan(ctx, cursor, match, count)
		if err != nil {
			t.Fatalf("Scan failed: %v", err)
		}
		calls++
		for _, key := range keys {
			seen[key] = struct{}{}
		}
		if next == 0 {
			break
		}
		cursor = next
	}

	keys := make([]string, 0, len(seen))
	for key := range seen {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys, calls
}

func testScanMatch(t *testing.T, store kv.Store, _ func(time.Duration)) {
	ctx := context.Background()
	store.Set(ctx, "scan_a", []byte("1"))
	store.Set(ctx, "scan_b", []byte("2"))
	store.Set(ctx, "other_c", []byte("3"))

	keys, _ := scanAll(t, store, "scan_*", 100)
	expected := []string{"scan_a", "scan_b"}
	if !reflect.DeepEqual(keys, expected) {
		t.Fatalf("Expected %v, got %v", expected, keys)
	}
}

func testScanPaged(t *testing.T, store kv.Store, _ func(time.Duration)) {
	ctx := context.Background()
	expected := make([]string, 0, 25)
	for i := 0; i < 25; i++ {
		key := fmt.Sprintf("paged_%02d", i)
		store.Set(ctx, key, []byte("v"))
		expected = append(expected, key)
	}

	keys, _ := scanAll(t, store, "paged_*", 4)
	if !reflect.DeepEqual(keys, expected) {
		t.Fatalf("Expected %d keys, got %d: %v", len(expected), len(keys), keys)
	}
}

func testScanEmpty(t *testing.T, store kv.Store, _ func(time.Duration)) {
	keys, calls := scanAll(t, store, "nothing-here_*", 10)
	if len(keys) != 0 {
		t.Fatalf("Expected no keys, got %v", keys)
	}
	if calls < 1 {
		t.Fatalf("Expected at least one SCAN call, got %d", calls)
	}
}

func testPing(t *testing.T, store kv.Store, _ func(time.Duration)) {
	if err := store.Ping(context.Background()); err != nil {
		t.Fatalf("Ping failed: %v", err)
	}
}

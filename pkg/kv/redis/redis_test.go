package redis

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/leafsii/cache-redis/pkg/kv"
	"github.com/leafsii/cache-redis/pkg/kv/kvtest"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisStore(t *testing.T) {
	redisURL := os.Getenv("REDIS_URL")
	if redisURL == "" {
		t.Skip("REDIS_URL not set, skipping Redis tests")
	}

	factory := func(t *testing.T) kv.Store {
		store, err := New(redisURL, false)
		if err != nil {
			t.Fatalf("Failed to create Redis store: %v", err)
		}
		if err := store.client.FlushDB(context.Background()).Err(); err != nil {
			t.Fatalf("Failed to flush Redis: %v", err)
		}
		return store
	}

	kvtest.RunConformanceTests(t, factory)
}

func TestMiniredisStore(t *testing.T) {
	mr := miniredis.RunT(t)

	factory := func(t *testing.T) kv.Store {
		mr.FlushAll()
		store, err := New(mr.Addr(), false)
		require.NoError(t, err)
		return store
	}

	kvtest.RunConformanceTestsWithClock(t, factory, mr.FastForward)
}

func TestSetUsesMillisecondExpiry(t *testing.T) {
	mr := miniredis.RunT(t)
	store := NewFromClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	defer store.Close()

	ctx := context.Background()
	require.NoError(t, store.Set(ctx, "{foo}_bar", []byte(`{"a":1}`), 5000*time.Millisecond))

	assert.Equal(t, 5*time.Second, mr.TTL("{foo}_bar"))
	got, err := mr.Get("{foo}_bar")
	require.NoError(t, err)
	assert.Equal(t, `{"a":1}`, got)

	require.NoError(t, store.Set(ctx, "{foo}_short", []byte("1"), time.Millisecond))
	assert.Equal(t, time.Millisecond, mr.TTL("{foo}_short"))
}

func TestConnectionErrorsMapToBackendUnavailable(t *testing.T) {
	mr := miniredis.RunT(t)
	store, err := New(mr.Addr(), false)
	require.NoError(t, err)
	defer store.Close()

	mr.Close()

	_, err = store.Get(context.Background(), "anything")
	assert.True(t, errors.Is(err, kv.ErrBackendUnavailable), "got %v", err)
}

func TestParseOptions(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		addr     string
		db       int
		password string
	}{
		{"url", "redis://localhost:6379/2", "localhost:6379", 2, ""},
		{"url with password", "redis://:secret@cache:6380/0", "cache:6380", 0, "secret"},
		{"bare address", "127.0.0.1:6379", "127.0.0.1:6379", 0, ""},
		{"bare address with db", "user:pass@127.0.0.1:6379/3", "127.0.0.1:6379", 3, "pass"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opt, err := ParseOptions(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.addr, opt.Addr)
			assert.Equal(t, tt.db, opt.DB)
			assert.Equal(t, tt.password, opt.Password)
		})
	}
}

func TestHashTag(t *testing.T) {
	tests := []struct {
		in  string
		tag string
		ok  bool
	}{
		{"{foo}_*", "foo", true},
		{"{foo}_bar", "foo", true},
		{"foo_*", "", false},
		{"{}_*", "", false},
		{"x{a}{b}", "a", true},
		{"{unterminated", "", false},
	}

	for _, tt := range tests {
		tag, ok := hashTag(tt.in)
		assert.Equal(t, tt.ok, ok, tt.in)
		assert.Equal(t, tt.tag, tag, tt.in)
	}
}

func TestErrorClassification(t *testing.T) {
	assert.False(t, IsConnectionError(nil))
	assert.False(t, IsConnectionError(redis.Nil))
	assert.False(t, IsConnectionError(context.Canceled))
	assert.False(t, IsConnectionError(context.DeadlineExceeded))
	assert.True(t, IsConnectionError(errors.New("dial tcp: connection refused")))

	crossSlot := errors.New("CROSSSLOT Keys in request don't hash to the same slot")
	assert.True(t, IsCrossSlotError(crossSlot))

	s := &Store{}
	assert.True(t, errors.Is(s.wrapError(crossSlot), kv.ErrCrossSlot))
}

func TestClusterScan(t *testing.T) {
	mr := miniredis.RunT(t)
	store, err := New(mr.Addr(), true)
	require.NoError(t, err)
	defer store.Close()

	_, isCluster := store.client.(*redis.ClusterClient)
	require.True(t, isCluster)

	ctx := context.Background()
	for _, key := range []string{"{foo}_a", "{foo}_b", "bar_c", "bar_d", "store_foo"} {
		require.NoError(t, store.Set(ctx, key, []byte("1")))
	}

	t.Run("hash tag routes to the owning master", func(t *testing.T) {
		var (
			cursor uint64
			keys   []string
		)
		for {
			page, next, err := store.Scan(ctx, cursor, "{foo}_*", 1)
			require.NoError(t, err)
			keys = append(keys, page...)
			if next == 0 {
				break
			}
			cursor = next
		}
		assert.ElementsMatch(t, []string{"{foo}_a", "{foo}_b"}, keys)
	})

	t.Run("untagged pattern scans every master in one call", func(t *testing.T) {
		keys, next, err := store.Scan(ctx, 0, "bar_*", 1)
		require.NoError(t, err)
		assert.Equal(t, uint64(0), next)
		assert.ElementsMatch(t, []string{"bar_c", "bar_d"}, keys)
	})

	t.Run("mget within one slot", func(t *testing.T) {
		values, err := store.MGet(ctx, "{foo}_a", "{foo}_missing", "{foo}_b")
		require.NoError(t, err)
		assert.Equal(t, [][]byte{[]byte("1"), nil, []byte("1")}, values)
	})

	n, err := store.Del(ctx, "{foo}_a", "{foo}_b")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.False(t, mr.Exists("{foo}_a"))
}

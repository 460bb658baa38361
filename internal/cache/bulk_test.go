package cache

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/leafsii/cache-redis/pkg/kv"
	"github.com/leafsii/cache-redis/pkg/kv/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func seed(t *testing.T, store kv.Store, n int) []string {
	t.Helper()
	keys := make([]string, 0, n)
	for i := 0; i < n; i++ {
		key := fmt.Sprintf("{s}_%05d", i)
		require.NoError(t, store.Set(context.Background(), key, []byte(fmt.Sprintf("%d", i))))
		keys = append(keys, key)
	}
	return keys
}

func TestEffectivePageSize(t *testing.T) {
	assert.Equal(t, 10000, (&resolver{pageSize: 10000, hashSlot: true}).effectivePageSize())
	assert.Equal(t, 2500, (&resolver{pageSize: 10000, hashSlot: false}).effectivePageSize())
	assert.Equal(t, 100, (&resolver{pageSize: 100, hashSlot: false}).effectivePageSize())
}

func TestGetManyHashSlotUsesOneMGetPerPage(t *testing.T) {
	mem := memory.New(0)
	defer mem.Close()
	store := &countingStore{Store: mem}
	keys := seed(t, mem, 10)

	r := &resolver{store: store, pageSize: 4, hashSlot: true}
	values, err := r.getMany(context.Background(), append(keys, "{s}_missing"))
	require.NoError(t, err)

	require.Len(t, values, 11)
	for i := 0; i < 10; i++ {
		assert.Equal(t, fmt.Sprintf("%d", i), string(values[i]))
	}
	assert.Nil(t, values[10])
	assert.EqualValues(t, 3, store.mgets.Load())
	assert.EqualValues(t, 0, store.gets.Load())
}

func TestGetManyWithoutHashSlotUsesSingleGets(t *testing.T) {
	mem := memory.New(0)
	defer mem.Close()
	store := &countingStore{Store: mem}
	keys := seed(t, mem, 10)

	r := &resolver{store: store, pageSize: 4, hashSlot: false}
	values, err := r.getMany(context.Background(), keys)
	require.NoError(t, err)

	for i, value := range values {
		assert.Equal(t, fmt.Sprintf("%d", i), string(value))
	}
	assert.EqualValues(t, 10, store.gets.Load())
	assert.EqualValues(t, 0, store.mgets.Load())
	assert.LessOrEqual(t, store.maxInflight.Load(), int64(4))
}

func TestUnslottedPagesAreCappedAt2500(t *testing.T) {
	mem := memory.New(0)
	defer mem.Close()
	keys := seed(t, mem, 6000)

	var pages []int
	r := &resolver{store: mem, pageSize: 10000, hashSlot: false, onPage: func(_ context.Context, op string, n int) {
		pages = append(pages, n)
	}}
	require.NoError(t, r.delMany(context.Background(), keys))

	assert.Equal(t, []int{2500, 2500, 1000}, pages)
	assert.Equal(t, 0, mem.Len())
}

func TestDelManyHashSlotUsesOneDelPerPage(t *testing.T) {
	mem := memory.New(0)
	defer mem.Close()
	store := &countingStore{Store: mem}
	keys := seed(t, mem, 9)

	r := &resolver{store: store, pageSize: 3, hashSlot: true}
	require.NoError(t, r.delMany(context.Background(), keys))

	assert.EqualValues(t, 3, store.dels.Load())
	assert.Equal(t, 0, mem.Len())
}

func TestGetManyPropagatesBackendError(t *testing.T) {
	m := &MockStore{}
	m.On("Get", mock.Anything, "{s}_a").Return(nil, kv.ErrBackendUnavailable)
	m.On("Get", mock.Anything, mock.Anything).Return("1", nil).Maybe()

	r := &resolver{store: m, pageSize: 10, hashSlot: false}
	_, err := r.getMany(context.Background(), []string{"{s}_a", "{s}_b"})
	assert.True(t, errors.Is(err, kv.ErrBackendUnavailable))
}

func TestGetManyRejectsShortMGetReply(t *testing.T) {
	m := &MockStore{}
	m.On("MGet", mock.Anything, []string{"{s}_a", "{s}_b"}).Return([][]byte{[]byte("1")}, nil)

	r := &resolver{store: m, pageSize: 10, hashSlot: true}
	_, err := r.getMany(context.Background(), []string{"{s}_a", "{s}_b"})
	assert.ErrorContains(t, err, "got 1 values")
}

func TestBulkStopsOnCancelledContext(t *testing.T) {
	m := &MockStore{}
	ctx, cancel := context.WithTimeout(context.Background(), time.Nanosecond)
	defer cancel()
	<-ctx.Done()

	r := &resolver{store: m, pageSize: 10, hashSlot: true}
	err := r.delMany(ctx, []string{"{s}_a"})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	m.AssertNotCalled(t, "Del", mock.Anything, mock.Anything)
}

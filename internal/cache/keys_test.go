package cache

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMakeKey(t *testing.T) {
	assert.Equal(t, "{foo}_bar", makeKey("foo", "bar", true))
	assert.Equal(t, "foo_bar", makeKey("foo", "bar", false))
	assert.Equal(t, "{foo}_*", matchPattern("foo", "*", true))
	assert.Equal(t, "foo_user-*", matchPattern("foo", "user-*", false))
}

func TestStoreMarkerKeyIgnoresHashSlot(t *testing.T) {
	assert.Equal(t, "store_foo", storeMarkerKey("foo"))
}

func TestParseKeyInvertsMakeKey(t *testing.T) {
	keys := []string{"bar", "with_underscore", "{braced}", "", "a_b_c"}
	for _, hashSlot := range []bool{true, false} {
		prefix := storePrefix("foo", hashSlot)
		for _, key := range keys {
			got, ok := parseKey(prefix, makeKey("foo", key, hashSlot))
			assert.True(t, ok)
			assert.Equal(t, key, got)
		}
	}
}

func TestParseKeyRejectsForeignPrefix(t *testing.T) {
	_, ok := parseKey("{foo}", "foo_bar")
	assert.False(t, ok)
	_, ok = parseKey("foo", "other_bar")
	assert.False(t, ok)
}

func TestHashSlotKeysShareToken(t *testing.T) {
	for _, key := range []string{"a", "b", "some/long/key"} {
		physical := makeKey("orders", key, true)
		assert.True(t, strings.HasPrefix(physical, "{orders}_"), physical)
	}
	for _, key := range []string{"a", "b"} {
		physical := makeKey("orders", key, false)
		assert.True(t, strings.HasPrefix(physical, "orders_"), physical)
		assert.NotContains(t, physical, "{")
	}
}

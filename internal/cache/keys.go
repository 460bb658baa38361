package cache

import "strings"

const (
	// markerPrefix namespaces the keys whose presence means a store exists
	markerPrefix = "store"
	// separator joins a store prefix and a document key
	separator = "_"
)

// storePrefix returns the physical prefix shared by every document key of a
// store. With hash slots enabled the name is wrapped in braces so a cluster
// routes all of the store's keys to one slot.
func storePrefix(store string, hashSlot bool) string {
	if hashSlot {
		return "{" + store + "}"
	}
	return store
}

// makeKey builds the physical key for a document
func makeKey(store, key string, hashSlot bool) string {
	return storePrefix(store, hashSlot) + separator + key
}

// storeMarkerKey is always the plain form: the marker is a single key that no
// multi-key command touches.
func storeMarkerKey(store string) string {
	return markerPrefix + separator + store
}

// matchPattern is the SCAN MATCH pattern for document keys of a store
func matchPattern(store, pattern string, hashSlot bool) string {
	return makeKey(store, pattern, hashSlot)
}

// parseKey strips exactly "<prefix>_" from a physical key
func parseKey(prefix, physical string) (string, bool) {
	return strings.CutPrefix(physical, prefix+separator)
}

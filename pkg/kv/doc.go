// Package kv provides the Redis-like key-value port that the cache adapter
// drives, with in-memory and Redis-backed implementations.
//
// The Store interface covers exactly the commands the adapter issues: string
// GET/SET with millisecond expiry, DEL, MGET and cursor-based SCAN.
//
// Example usage:
//
//	cfg := Config{
//		Backend:  BackendRedis,
//		RedisURL: "redis://localhost:6379/0",
//	}
//	store, err := NewStoreFromConfig(cfg)
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer store.Close()
//
//	ctx := context.Background()
//	var cursor uint64
//	for {
//		keys, next, err := store.Scan(ctx, cursor, "users_*", 1000)
//		if err != nil {
//			log.Fatal(err)
//		}
//		process(keys)
//		if next == 0 {
//			break
//		}
//		cursor = next
//	}
//
// The in-memory implementation mirrors Redis semantics closely enough for
// development and tests, including TTL expiry and SCAN cursors. The Redis
// adapter wraps go-redis/v9 and works against a single node or a cluster.
package kv

package db

import (
	"context"
	"time"
)

// Store is the database facade combining all sub-interfaces.
// Consumers depend on the narrow sub-interfaces.
type Store interface {
	Pinger
	HashStore
	KVStore
	IndexStore
	Close()
	WaitForReady(ctx context.Context, timeout time.Duration) error
}

// Pinger checks database connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HashSetItem holds a single key+fields pair for pipelined HSET.
type HashSetItem struct {
	Key    string
	Fields map[string]string
}

// HashStore provides hash-based record operations.
type HashStore interface {
	HSet(ctx context.Context, key string, fields map[string]string) error
	HSetMulti(ctx context.Context, items []HashSetItem) error
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	HGetAllMulti(ctx context.Context, keys []string) ([]map[string]string, error)
	Del(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
}

// KVStore provides simple key-value operations.
type KVStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	// Set writes value; ttl <= 0 means no expiry.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Del(ctx context.Context, key string) error
	// IncrByExpire increments a counter and sets ttl on its first write.
	IncrByExpire(ctx context.Context, key string, val int64, ttl time.Duration) (int64, error)
}

// IndexStore keeps a lexicographically ordered set of members (sorted set, score 0).
// Used for ID indexes that support cursor pagination without SCAN.
type IndexStore interface {
	IndexAdd(ctx context.Context, key string, members ...string) error
	IndexRemove(ctx context.Context, key string, members ...string) error
	// IndexRange returns up to limit members strictly greater than after ("" = from the start).
	IndexRange(ctx context.Context, key, after string, limit int) ([]string, error)
	IndexCount(ctx context.Context, key string) (int, error)
}

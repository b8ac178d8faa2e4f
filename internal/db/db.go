package db

import (
	"context"
	"time"
)

// KV is the minimal backend a session cache needs. Both the Redis store and
// the in-process store implement it.
type KV interface {
	Pinger
	KVStore
	Close()
}

// Pinger checks database connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// KVStore provides key-value operations with per-entry expiry.
type KVStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Del(ctx context.Context, key string) error
}

package filter

import (
	"context"
	"encoding/json"
)

// SnapshotStore reads source snapshots and publishes filtered ones.
type SnapshotStore interface {
	Lookup(ctx context.Context, id string, prefixes ...string) (json.RawMessage, string, error)
	GenerateKey(prefix string) string
	Put(ctx context.Context, prefix, id string, payload any) error
}

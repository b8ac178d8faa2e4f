package compare

import (
	"context"
	"encoding/json"
)

// SnapshotStore reads source snapshots and publishes comparisons.
type SnapshotStore interface {
	Lookup(ctx context.Context, id string, prefixes ...string) (json.RawMessage, string, error)
	GenerateKey(prefix string) string
	Put(ctx context.Context, prefix, id string, payload any) error
}

// Catalog resolves product URNs to item payloads. Missing URNs are absent from the map.
type Catalog interface {
	GetByURNs(ctx context.Context, urns []string) (map[string]json.RawMessage, error)
}

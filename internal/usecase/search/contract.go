package search

import (
	"context"
	"encoding/json"

	"github.com/kailas-cloud/prodscout/internal/domain/hit"
)

// IndexBackend is one retrieval index (dense or sparse).
type IndexBackend interface {
	Search(ctx context.Context, query string, topK int, f hit.Filters) ([]hit.Hit, error)
}

// Catalog resolves product URNs to item payloads. Missing URNs are absent from the map.
type Catalog interface {
	GetByURNs(ctx context.Context, urns []string) (map[string]json.RawMessage, error)
}

// SnapshotStore publishes result snapshots.
type SnapshotStore interface {
	GenerateKey(prefix string) string
	Put(ctx context.Context, prefix, id string, payload any) error
}

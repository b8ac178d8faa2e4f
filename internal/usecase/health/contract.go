package health

import (
	"context"
	"encoding/json"
)

// Pinger checks a backend's availability (session cache, index, catalog).
type Pinger interface {
	Ping(ctx context.Context) error
}

// EmbeddingChecker checks embedding provider availability.
type EmbeddingChecker interface {
	HealthCheck(ctx context.Context) error
}

// SessionCache is the snapshot store round-tripped by the session cache check.
type SessionCache interface {
	GenerateKey(prefix string) string
	Put(ctx context.Context, prefix, id string, payload any) error
	Get(ctx context.Context, prefix, id string) (json.RawMessage, error)
	Delete(ctx context.Context, prefix, id string) error
}

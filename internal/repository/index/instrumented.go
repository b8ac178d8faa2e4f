package index

import (
	"context"
	"time"

	"github.com/kailas-cloud/prodscout/internal/domain/hit"
	"github.com/kailas-cloud/prodscout/internal/metrics"
)

// backend is the shape shared by all index adapters.
type backend interface {
	Search(ctx context.Context, query string, topK int, f hit.Filters) ([]hit.Hit, error)
}

// Instrumented records call latency and outcome per backend.
type Instrumented struct {
	inner backend
	name  string
}

// Instrument wraps b; name labels the metrics ("dense" / "sparse").
func Instrument(name string, b backend) *Instrumented {
	return &Instrumented{inner: b, name: name}
}

// Search implements the index backend.
func (i *Instrumented) Search(ctx context.Context, query string, topK int, f hit.Filters) ([]hit.Hit, error) {
	start := time.Now()
	hits, err := i.inner.Search(ctx, query, topK, f)
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	metrics.IndexRequestDuration.WithLabelValues(i.name, outcome).Observe(time.Since(start).Seconds())
	return hits, err //nolint:wrapcheck // transparent decorator
}

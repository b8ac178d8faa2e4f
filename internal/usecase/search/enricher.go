package search

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"github.com/kailas-cloud/prodscout/internal/domain/hit"
	"github.com/kailas-cloud/prodscout/internal/domain/product"
	"github.com/kailas-cloud/prodscout/internal/logger"
	"github.com/kailas-cloud/prodscout/internal/metrics"
)

// Enricher joins fused hits with their catalog records.
type Enricher struct {
	catalog Catalog
}

// NewEnricher creates an enricher. A nil catalog leaves every hit on index metadata.
func NewEnricher(c Catalog) *Enricher {
	return &Enricher{catalog: c}
}

// Enrich resolves all hit ids in one catalog call. Output order and length
// match the input: a hit the catalog cannot resolve is kept with
// metadata-derived fields, never dropped.
func (e *Enricher) Enrich(ctx context.Context, hits []hit.Hit) []product.Enriched {
	out := make([]product.Enriched, 0, len(hits))
	if len(hits) == 0 {
		return out
	}

	records := e.lookup(ctx, hits)
	for _, h := range hits {
		if raw, ok := records[h.ID]; ok {
			en, err := product.Resolved(h, raw)
			if err == nil {
				metrics.CatalogLookupTotal.WithLabelValues("resolved").Inc()
				out = append(out, en)
				continue
			}
			logger.FromContext(ctx).Warn("catalog record undecodable, using index metadata",
				zap.String("id", h.ID), zap.Error(err))
		}
		metrics.CatalogLookupTotal.WithLabelValues("unresolved").Inc()
		out = append(out, fallback(ctx, h))
	}
	return out
}

func (e *Enricher) lookup(ctx context.Context, hits []hit.Hit) map[string]json.RawMessage {
	if e.catalog == nil {
		return nil
	}
	ids := make([]string, len(hits))
	for i, h := range hits {
		ids[i] = h.ID
	}
	records, err := e.catalog.GetByURNs(ctx, ids)
	if err != nil {
		metrics.CatalogLookupTotal.WithLabelValues("error").Inc()
		logger.FromContext(ctx).Warn("catalog lookup failed, using index metadata",
			zap.Int("hits", len(ids)), zap.Error(err))
		return nil
	}
	return records
}

func fallback(ctx context.Context, h hit.Hit) product.Enriched {
	en, err := product.Unresolved(h)
	if err != nil {
		logger.FromContext(ctx).Warn("fallback item marshal failed", zap.String("id", h.ID), zap.Error(err))
		return product.Enriched{Hit: h, Item: product.FromHit(h)}
	}
	return en
}

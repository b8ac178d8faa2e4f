package index

import (
	"context"
	"fmt"
	"strings"

	"github.com/kailas-cloud/prodscout/internal/db"
	"github.com/kailas-cloud/prodscout/internal/domain"
	"github.com/kailas-cloud/prodscout/internal/domain/hit"
)

// knnStore is the consumer interface for dense search (ISP).
type knnStore interface {
	SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
}

// textStore is the consumer interface for sparse search (ISP).
type textStore interface {
	SearchBM25(ctx context.Context, q *db.TextQuery) (*db.SearchResult, error)
}

// RedisOptions name the FT index and the key prefix stripped from document keys.
type RedisOptions struct {
	IndexName string
	KeyPrefix string
}

// RedisDense embeds the query and runs an FT.SEARCH KNN over the product vectors.
type RedisDense struct {
	store    knnStore
	embedder domain.Embedder
	opts     RedisOptions
}

// NewRedisDense creates the RediSearch dense backend.
func NewRedisDense(s knnStore, embedder domain.Embedder, opts RedisOptions) *RedisDense {
	return &RedisDense{store: s, embedder: embedder, opts: opts}
}

// Search implements the dense index backend.
func (r *RedisDense) Search(ctx context.Context, query string, topK int, f hit.Filters) ([]hit.Hit, error) {
	emb, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	sr, err := r.store.SearchKNN(ctx, &db.KNNQuery{
		IndexName:    r.opts.IndexName,
		Filter:       toDBFilter(f),
		Vector:       emb.Embedding,
		K:            topK,
		ReturnFields: returnFields,
	})
	if err != nil {
		return nil, fmt.Errorf("search knn %s: %w", r.opts.IndexName, backendErr(err))
	}

	return entriesToHits(sr, r.opts.KeyPrefix, hit.NewDense), nil
}

// RedisSparse runs a BM25 FT.SEARCH over the product text fields.
type RedisSparse struct {
	store textStore
	opts  RedisOptions
}

// NewRedisSparse creates the RediSearch sparse backend.
func NewRedisSparse(s textStore, opts RedisOptions) *RedisSparse {
	return &RedisSparse{store: s, opts: opts}
}

// Search implements the sparse index backend.
func (r *RedisSparse) Search(ctx context.Context, query string, topK int, f hit.Filters) ([]hit.Hit, error) {
	sr, err := r.store.SearchBM25(ctx, &db.TextQuery{
		IndexName:    r.opts.IndexName,
		Query:        query,
		Filter:       toDBFilter(f),
		TopK:         topK,
		ReturnFields: returnFields,
	})
	if err != nil {
		return nil, fmt.Errorf("search bm25 %s: %w", r.opts.IndexName, backendErr(err))
	}

	return entriesToHits(sr, r.opts.KeyPrefix, hit.NewSparse), nil
}

func toDBFilter(f hit.Filters) db.Filter {
	return db.Filter{Category: f.Category, PriceMax: f.PriceMax}
}

// backendErr tags storage failures as ErrBackend while keeping the cause
// visible to rate-limit classification.
func backendErr(err error) error {
	return fmt.Errorf("%w: %w", domain.ErrBackend, err)
}

func entriesToHits(
	sr *db.SearchResult, keyPrefix string,
	newHit func(id string, score float64, meta map[string]any) hit.Hit,
) []hit.Hit {
	if sr == nil || len(sr.Entries) == 0 {
		return []hit.Hit{}
	}
	hits := make([]hit.Hit, 0, len(sr.Entries))
	for _, e := range sr.Entries {
		id := strings.TrimPrefix(e.Key, keyPrefix)
		hits = append(hits, newHit(id, e.Score, metadataFromFields(e.Fields)))
	}
	return hits
}

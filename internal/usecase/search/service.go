package search

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/kailas-cloud/prodscout/internal/domain"
	"github.com/kailas-cloud/prodscout/internal/domain/hit"
	"github.com/kailas-cloud/prodscout/internal/domain/product"
	"github.com/kailas-cloud/prodscout/internal/domain/snapshot"
	"github.com/kailas-cloud/prodscout/internal/logger"
)

// Query limits.
const (
	MaxQueryLen  = 500
	DefaultLimit = 20
	MaxLimit     = 100
)

// Query is a product search request. Limit 0 means DefaultLimit.
type Query struct {
	Text    string
	Limit   int
	Skip    int
	Filters hit.Filters
}

// Service runs the retrieval pipeline: dispatch, fuse, page, enrich, publish.
type Service struct {
	dispatcher *Dispatcher
	enricher   *Enricher
	store      SnapshotStore
	rrfK       int
	now        func() time.Time
}

// New creates a search service.
func New(d *Dispatcher, e *Enricher, store SnapshotStore) *Service {
	return &Service{
		dispatcher: d,
		enricher:   e,
		store:      store,
		rrfK:       DefaultRRFK,
		now:        time.Now,
	}
}

// WithRRFK overrides the fusion constant. Non-positive values keep the default.
func (s *Service) WithRRFK(k int) *Service {
	if k > 0 {
		s.rrfK = k
	}
	return s
}

// Search executes q and publishes the page as a search snapshot. The snapshot
// is returned even when publishing fails.
func (s *Service) Search(ctx context.Context, q Query) (*snapshot.ItemList, error) {
	if err := normalize(&q); err != nil {
		return nil, err
	}

	topK := q.Skip + q.Limit
	dense, sparse, err := s.dispatcher.Dispatch(ctx, q.Text, topK, q.Filters)
	if err != nil {
		return nil, fmt.Errorf("dispatch: %w", err)
	}

	fused := FuseRRF(dense, sparse, s.rrfK, 0)
	total := len(fused)
	page := fused[min(q.Skip, total):min(topK, total)]
	enriched := s.enricher.Enrich(ctx, page)

	list, err := s.buildList(q, enriched, total)
	if err != nil {
		return nil, err
	}

	log := logger.FromContext(ctx)
	list.RequestID = s.store.GenerateKey(snapshot.PrefixSearch)
	cached := true
	if err := s.store.Put(ctx, snapshot.PrefixSearch, list.RequestID, list); err != nil {
		cached = false
		log.Warn("search snapshot not cached", zap.String("request_id", list.RequestID), zap.Error(err))
	}
	log.Info("search completed",
		zap.String("request_id", list.RequestID),
		zap.Int("dense", len(dense)),
		zap.Int("sparse", len(sparse)),
		zap.Int("fused", total),
		zap.Int("returned", len(enriched)),
		zap.Bool("cached", cached),
	)
	return list, nil
}

func (s *Service) buildList(q Query, enriched []product.Enriched, total int) (*snapshot.ItemList, error) {
	list := snapshot.NewItemList(s.now())
	list.Query = q.Text
	list.TotalResults = total
	list.Pagination = snapshot.NewPagination(q.Skip, q.Limit, total)

	for i, en := range enriched {
		raw := en.Raw
		if raw == nil {
			b, err := json.Marshal(en.Item)
			if err != nil {
				return nil, fmt.Errorf("marshal item %s: %w", en.Hit.ID, err)
			}
			raw = b
		}
		score := en.Hit.FusedScore
		list.ItemListElement = append(list.ItemListElement, snapshot.ListItem{
			Type:     "ListItem",
			Position: q.Skip + i + 1,
			Item:     raw,
			Score:    &score,
		})
	}
	return list, nil
}

func normalize(q *Query) error {
	q.Text = strings.TrimSpace(q.Text)
	if q.Text == "" {
		return domain.NewValidation(domain.ReasonInvalidQuery, "Search query cannot be empty")
	}
	if utf8.RuneCountInString(q.Text) > MaxQueryLen {
		return domain.NewValidation(domain.ReasonInvalidQuery,
			fmt.Sprintf("Search query must be at most %d characters", MaxQueryLen))
	}
	if q.Limit == 0 {
		q.Limit = DefaultLimit
	}
	if q.Limit < 1 || q.Limit > MaxLimit {
		return domain.NewValidation(domain.ReasonValidationFailed,
			fmt.Sprintf("limit must be between 1 and %d", MaxLimit))
	}
	if q.Skip < 0 {
		return domain.NewValidation(domain.ReasonValidationFailed, "skip must be non-negative")
	}
	if q.Filters.PriceMax != nil && *q.Filters.PriceMax < 0 {
		return domain.NewValidation(domain.ReasonInvalidPrice, "price_max must be non-negative")
	}
	q.Filters.Category = strings.TrimSpace(q.Filters.Category)
	return nil
}

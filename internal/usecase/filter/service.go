// Package filter narrows a cached result snapshot by text criteria and price
// and publishes the survivors as a new snapshot.
package filter

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/kailas-cloud/prodscout/internal/domain"
	"github.com/kailas-cloud/prodscout/internal/domain/product"
	"github.com/kailas-cloud/prodscout/internal/domain/requestid"
	"github.com/kailas-cloud/prodscout/internal/domain/snapshot"
	"github.com/kailas-cloud/prodscout/internal/logger"
)

// Criteria limits.
const (
	MaxCriteriaLen = 200
	MaxLimit       = 100
)

// SourcePrefixes are tried in order to resolve a source id. Filtered snapshots are
// included so a filter can be re-applied to its own output.
var SourcePrefixes = snapshot.ComparablePrefixes

// Criteria selects items. At least one of Pattern, MinPrice and MaxPrice is
// required; Limit truncates the returned list only.
type Criteria struct {
	Pattern  *string
	MinPrice *float64
	MaxPrice *float64
	Limit    *int
}

// HasPrice reports whether a price bound is set.
func (c Criteria) HasPrice() bool {
	return c.MinPrice != nil || c.MaxPrice != nil
}

// Validate checks the criteria before any store access.
func (c Criteria) Validate() error {
	hasPattern := c.Pattern != nil && strings.TrimSpace(*c.Pattern) != ""
	if !hasPattern && !c.HasPrice() {
		return domain.NewValidation(domain.ReasonMissingCriteria,
			"At least one of filter_criteria, min_price or max_price is required")
	}
	if c.Pattern != nil && utf8.RuneCountInString(*c.Pattern) > MaxCriteriaLen {
		return domain.NewValidation(domain.ReasonValidationFailed,
			fmt.Sprintf("filter_criteria must be at most %d characters", MaxCriteriaLen))
	}
	if hasPattern && !strings.ContainsFunc(*c.Pattern, isWordRune) {
		return domain.NewValidation(domain.ReasonValidationFailed,
			"filter_criteria must contain at least one letter or digit")
	}
	if (c.MinPrice != nil && *c.MinPrice < 0) || (c.MaxPrice != nil && *c.MaxPrice < 0) {
		return domain.NewValidation(domain.ReasonInvalidPrice, "Prices must be non-negative")
	}
	if c.MinPrice != nil && c.MaxPrice != nil && *c.MinPrice > *c.MaxPrice {
		return domain.NewValidation(domain.ReasonInvalidPrice, "min_price cannot be greater than max_price")
	}
	if c.Limit != nil && (*c.Limit < 1 || *c.Limit > MaxLimit) {
		return domain.NewValidation(domain.ReasonValidationFailed,
			fmt.Sprintf("limit must be between 1 and %d", MaxLimit))
	}
	return nil
}

// Service filters cached snapshots.
type Service struct {
	store SnapshotStore
	now   func() time.Time
}

// New creates a filter service.
func New(store SnapshotStore) *Service {
	return &Service{store: store, now: time.Now}
}

// Filter resolves sourceID, keeps the items matching c and publishes them
// under a new filter snapshot. Items that cannot be decoded are reported in
// cmp:skipped and never fail the batch.
func (s *Service) Filter(ctx context.Context, sourceID string, c Criteria) (*snapshot.ItemList, error) {
	if !requestid.Validate(sourceID) {
		return nil, domain.NewValidation(domain.ReasonInvalidRequestID, "Invalid request ID format")
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}

	data, prefix, err := s.store.Lookup(ctx, sourceID, SourcePrefixes...)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.NewNotFound("Cached response not found")
		}
		return nil, fmt.Errorf("lookup %s: %w", sourceID, err)
	}
	source, err := snapshot.DecodeItemList(data)
	if err != nil {
		return nil, fmt.Errorf("source %s:%s: %w", prefix, sourceID, err)
	}

	kept, skipped := Apply(source.ItemListElement, c)
	total := len(kept)
	if c.Limit != nil && len(kept) > *c.Limit {
		kept = kept[:*c.Limit]
	}

	out := snapshot.NewItemList(s.now())
	out.ItemListElement = kept
	out.TotalResults = total
	out.OriginalRequestID = sourceID
	out.Skipped = skipped
	out.FilterApplied = &snapshot.FilterApplied{
		Criteria:      c.Pattern,
		MinPrice:      c.MinPrice,
		MaxPrice:      c.MaxPrice,
		OriginalTotal: originalTotal(source),
	}

	log := logger.FromContext(ctx)
	out.RequestID = s.store.GenerateKey(snapshot.PrefixFilter)
	if err := s.store.Put(ctx, snapshot.PrefixFilter, out.RequestID, out); err != nil {
		log.Warn("filter snapshot not cached", zap.String("request_id", out.RequestID), zap.Error(err))
	}
	log.Info("filter applied",
		zap.String("source", prefix+":"+sourceID),
		zap.String("request_id", out.RequestID),
		zap.Int("original", len(source.ItemListElement)),
		zap.Int("matched", total),
		zap.Int("skipped", len(skipped)),
	)
	return out, nil
}

// Apply returns the list items matching c in source order. Entries are passed
// through unchanged.
func Apply(items []snapshot.ListItem, c Criteria) ([]snapshot.ListItem, []snapshot.Skipped) {
	var m *Matcher
	if c.Pattern != nil && strings.TrimSpace(*c.Pattern) != "" {
		m = NewMatcher(*c.Pattern)
	}

	kept := make([]snapshot.ListItem, 0, len(items))
	var skipped []snapshot.Skipped
	for i, li := range items {
		if len(bytes.TrimSpace(li.Item)) == 0 || bytes.Equal(bytes.TrimSpace(li.Item), []byte("null")) {
			skipped = append(skipped, snapshot.Skipped{Position: position(li, i), Reason: "missing item"})
			continue
		}
		it, err := product.Decode(li.Item)
		if err != nil {
			skipped = append(skipped, snapshot.Skipped{Position: position(li, i), Reason: err.Error()})
			continue
		}
		if m != nil && !matchesText(&it, m) {
			continue
		}
		if c.HasPrice() && !it.HasPriceWithin(c.MinPrice, c.MaxPrice) {
			continue
		}
		kept = append(kept, li)
	}
	return kept, skipped
}

func matchesText(it *product.Item, m *Matcher) bool {
	if m.Match(it.SearchText()) {
		return true
	}
	switch it.Type {
	case product.TypeProduct:
		return m.Match(it.VariantText())
	case product.TypeProductGroup:
		return m.Match(strings.Join(it.VariesBy, " "))
	}
	return false
}

func position(li snapshot.ListItem, i int) int {
	if li.Position > 0 {
		return li.Position
	}
	return i + 1
}

func originalTotal(l *snapshot.ItemList) int {
	if l.TotalResults > 0 {
		return l.TotalResults
	}
	return len(l.ItemListElement)
}

// Package compare builds side-by-side comparisons of 2 to 5 products taken
// from a cached snapshot or resolved from the catalog.
package compare

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/prodscout/internal/domain"
	"github.com/kailas-cloud/prodscout/internal/domain/product"
	"github.com/kailas-cloud/prodscout/internal/domain/requestid"
	"github.com/kailas-cloud/prodscout/internal/domain/snapshot"
	"github.com/kailas-cloud/prodscout/internal/logger"
)

// Selection bounds.
const (
	MinItems = 2
	MaxItems = 5
)

const urnScheme = "urn:"

// Options tune the output. Empty Aspects triggers auto-detection; empty
// Format means table.
type Options struct {
	Aspects []string
	Format  string
}

// Service compares products.
type Service struct {
	store   SnapshotStore
	catalog Catalog
	now     func() time.Time
}

// New creates a comparison service.
func New(store SnapshotStore, catalog Catalog) *Service {
	return &Service{store: store, catalog: catalog, now: time.Now}
}

// CompareByIndices compares the items at 0-based positions of the snapshot sourceID.
func (s *Service) CompareByIndices(
	ctx context.Context, sourceID string, indices []int, opts Options,
) (*snapshot.Comparison, error) {
	if !requestid.Validate(sourceID) {
		return nil, domain.NewValidation(domain.ReasonInvalidRequestID, "Invalid request ID format")
	}
	if err := validateCount(len(indices), "indices"); err != nil {
		return nil, err
	}
	if dup := duplicates(indices); len(dup) > 0 {
		return nil, domain.NewValidation(domain.ReasonDuplicateIndices,
			fmt.Sprintf("Duplicate indices are not allowed: %v", dup))
	}
	opts, err := normalizeOptions(opts)
	if err != nil {
		return nil, err
	}

	source, err := s.source(ctx, sourceID)
	if err != nil {
		return nil, err
	}
	size := len(source.ItemListElement)
	if size == 0 {
		return nil, domain.NewNotFound("No products found in cached results")
	}

	var bad []int
	for _, idx := range indices {
		if idx < 0 || idx >= size {
			bad = append(bad, idx)
		}
	}
	if len(bad) > 0 {
		return nil, domain.NewIndexOutOfRange(bad, size)
	}

	items := make([]product.Item, len(indices))
	raws := make([]json.RawMessage, len(indices))
	for i, idx := range indices {
		raw := source.ItemListElement[idx].Item
		it, err := product.Decode(raw)
		if err != nil {
			return nil, fmt.Errorf("cached product %s[%d]: %w", sourceID, idx, err)
		}
		items[i], raws[i] = it, raw
	}

	return s.publish(ctx, sourceID, indices, items, raws, opts)
}

// CompareByURNs compares catalog items. When sourceID is set and the snapshot
// holds every URN, the snapshot payloads are used; otherwise all URNs are
// resolved from the catalog in one call and any miss is a not found.
func (s *Service) CompareByURNs(
	ctx context.Context, urns []string, sourceID string, opts Options,
) (*snapshot.Comparison, error) {
	if err := validateCount(len(urns), "URNs"); err != nil {
		return nil, err
	}
	for _, u := range urns {
		if !strings.HasPrefix(u, urnScheme) {
			return nil, domain.NewValidation(domain.ReasonInvalidURN,
				fmt.Sprintf("Invalid URN format: %q (must start with %q)", u, urnScheme))
		}
	}
	if dup := duplicates(urns); len(dup) > 0 {
		return nil, domain.NewValidation(domain.ReasonDuplicateURNs,
			fmt.Sprintf("Duplicate URNs are not allowed: %s", strings.Join(dup, ", ")))
	}
	if sourceID != "" && !requestid.Validate(sourceID) {
		return nil, domain.NewValidation(domain.ReasonInvalidRequestID, "Invalid request ID format")
	}
	opts, err := normalizeOptions(opts)
	if err != nil {
		return nil, err
	}

	raws := s.fromSnapshot(ctx, sourceID, urns)
	if raws == nil {
		if raws, err = s.fromCatalog(ctx, urns); err != nil {
			return nil, err
		}
	}

	items := make([]product.Item, len(raws))
	for i, raw := range raws {
		it, err := product.Decode(raw)
		if err != nil {
			return nil, fmt.Errorf("product %s: %w: %w", urns[i], domain.ErrBackend, err)
		}
		items[i] = it
	}

	indices := make([]int, len(urns))
	for i := range indices {
		indices[i] = i
	}
	return s.publish(ctx, sourceID, indices, items, raws, opts)
}

func (s *Service) source(ctx context.Context, id string) (*snapshot.ItemList, error) {
	data, prefix, err := s.store.Lookup(ctx, id, snapshot.ComparablePrefixes...)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.NewNotFound("Cached response not found")
		}
		return nil, fmt.Errorf("lookup %s: %w", id, err)
	}
	l, err := snapshot.DecodeItemList(data)
	if err != nil {
		return nil, fmt.Errorf("source %s:%s: %w", prefix, id, err)
	}
	return l, nil
}

// fromSnapshot returns payloads for urns in order, or nil unless the snapshot
// holds all of them.
func (s *Service) fromSnapshot(ctx context.Context, sourceID string, urns []string) []json.RawMessage {
	if sourceID == "" {
		return nil
	}
	l, err := s.source(ctx, sourceID)
	if err != nil {
		logger.FromContext(ctx).Debug("compare source unavailable, using catalog",
			zap.String("source", sourceID), zap.Error(err))
		return nil
	}

	byURN := make(map[string]json.RawMessage, len(l.ItemListElement))
	for _, li := range l.ItemListElement {
		var ref struct {
			ID string `json:"@id"`
		}
		if json.Unmarshal(li.Item, &ref) == nil && ref.ID != "" {
			byURN[ref.ID] = li.Item
		}
	}

	out := make([]json.RawMessage, len(urns))
	for i, u := range urns {
		raw, ok := byURN[u]
		if !ok {
			return nil
		}
		out[i] = raw
	}
	return out
}

func (s *Service) fromCatalog(ctx context.Context, urns []string) ([]json.RawMessage, error) {
	if s.catalog == nil {
		return nil, fmt.Errorf("catalog lookup: %w", domain.ErrBackend)
	}
	records, err := s.catalog.GetByURNs(ctx, urns)
	if err != nil {
		return nil, fmt.Errorf("catalog lookup: %w", err)
	}
	out := make([]json.RawMessage, len(urns))
	for i, u := range urns {
		raw, ok := records[u]
		if !ok {
			return nil, domain.NewNotFound(fmt.Sprintf("Product with URN '%s' not found", u))
		}
		out[i] = raw
	}
	return out, nil
}

func (s *Service) publish(
	ctx context.Context, sourceID string, indices []int,
	items []product.Item, raws []json.RawMessage, opts Options,
) (*snapshot.Comparison, error) {
	aspects := opts.Aspects
	if len(aspects) == 0 {
		aspects = DetectAspects(items)
	}
	labels := Labels(items)
	matrix := BuildMatrix(items, labels, aspects)

	c := snapshot.NewComparison(s.now())
	c.OriginalRequestID = sourceID
	c.ComparedIndices = indices
	c.ComparisonAspects = aspects
	c.Format = opts.Format
	c.Products = raws
	c.ComparisonMatrix = matrix
	c.Narrative = Narrative(labels, matrix)
	c.Recommendations = Recommend(items, indices)

	log := logger.FromContext(ctx)
	c.RequestID = s.store.GenerateKey(snapshot.PrefixCompare)
	if err := s.store.Put(ctx, snapshot.PrefixCompare, c.RequestID, c); err != nil {
		log.Warn("comparison snapshot not cached", zap.String("request_id", c.RequestID), zap.Error(err))
	}
	log.Info("comparison built",
		zap.String("request_id", c.RequestID),
		zap.String("source", sourceID),
		zap.Int("products", len(items)),
		zap.Strings("aspects", aspects),
	)
	return c, nil
}

func validateCount(n int, what string) error {
	if n < MinItems {
		return domain.NewValidation(domain.ReasonTooFewItems,
			fmt.Sprintf("At least %d products required for comparison", MinItems))
	}
	if n > MaxItems {
		return domain.NewValidation(domain.ReasonTooManyItems,
			fmt.Sprintf("Maximum %d products can be compared. Received %d %s.", MaxItems, n, what))
	}
	return nil
}

func normalizeOptions(o Options) (Options, error) {
	switch o.Format {
	case "":
		o.Format = snapshot.FormatTable
	case snapshot.FormatTable, snapshot.FormatNarrative, snapshot.FormatProsCons:
	default:
		return o, domain.NewValidation(domain.ReasonValidationFailed,
			fmt.Sprintf("format must be one of %s, %s, %s",
				snapshot.FormatTable, snapshot.FormatNarrative, snapshot.FormatProsCons))
	}

	var aspects []string
	seen := make(map[string]bool, len(o.Aspects))
	for _, a := range o.Aspects {
		a = strings.ToLower(strings.TrimSpace(a))
		if a == "" || seen[a] {
			continue
		}
		if !knownAspects[a] {
			return o, domain.NewValidation(domain.ReasonValidationFailed,
				fmt.Sprintf("Unknown comparison aspect %q", a))
		}
		seen[a] = true
		aspects = append(aspects, a)
	}
	o.Aspects = aspects
	return o, nil
}

func duplicates[T comparable](vs []T) []T {
	seen := make(map[T]bool, len(vs))
	var dup []T
	for _, v := range vs {
		if seen[v] {
			dup = append(dup, v)
		}
		seen[v] = true
	}
	return dup
}

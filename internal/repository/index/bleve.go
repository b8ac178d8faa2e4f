package index

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/blevesearch/bleve/v2/mapping"
	blevequery "github.com/blevesearch/bleve/v2/search/query"

	"github.com/kailas-cloud/prodscout/internal/domain/hit"
)

// Document is what the lexical index stores per product.
type Document struct {
	URN         string   `json:"urn"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Brand       string   `json:"brand"`
	Category    string   `json:"category"`
	Price       *float64 `json:"price,omitempty"`
	Currency    string   `json:"currency,omitempty"`
	URL         string   `json:"url,omitempty"`
}

// Bleve is the sparse backend on a local Bleve index.
type Bleve struct {
	index bleve.Index
}

func productMapping() mapping.IndexMapping {
	im := bleve.NewIndexMapping()

	doc := bleve.NewDocumentMapping()
	// standard analyzer: lowercase + tokenize, no stemming
	text := bleve.NewTextFieldMapping()
	text.Analyzer = standard.Name
	doc.AddFieldMappingsAt("name", text)
	doc.AddFieldMappingsAt("description", text)
	doc.AddFieldMappingsAt("brand", text)

	tag := bleve.NewTextFieldMapping()
	tag.Analyzer = keyword.Name
	doc.AddFieldMappingsAt("category", tag)

	stored := bleve.NewTextFieldMapping()
	stored.Index = false
	stored.IncludeInAll = false
	doc.AddFieldMappingsAt("urn", stored)
	doc.AddFieldMappingsAt("currency", stored)
	doc.AddFieldMappingsAt("url", stored)

	doc.AddFieldMappingsAt("price", bleve.NewNumericFieldMapping())

	im.AddDocumentMapping("product", doc)
	im.DefaultType = "product"
	im.DefaultMapping = doc
	return im
}

// OpenBleve opens the index at path, creating it when missing. Remove the
// directory after changing the mapping to force a rebuild.
func OpenBleve(path string) (*Bleve, error) {
	if _, err := os.Stat(path); err == nil {
		idx, openErr := bleve.Open(path)
		if openErr != nil {
			return nil, fmt.Errorf("open bleve index: %w", openErr)
		}
		return &Bleve{index: idx}, nil
	}

	idx, err := bleve.New(path, productMapping())
	if err != nil {
		return nil, fmt.Errorf("create bleve index: %w", err)
	}
	return &Bleve{index: idx}, nil
}

// NewMemBleve creates an in-memory index.
func NewMemBleve() (*Bleve, error) {
	idx, err := bleve.NewMemOnly(productMapping())
	if err != nil {
		return nil, fmt.Errorf("create bleve index: %w", err)
	}
	return &Bleve{index: idx}, nil
}

// Index adds or replaces documents in one batch.
func (b *Bleve) Index(_ context.Context, docs ...Document) error {
	batch := b.index.NewBatch()
	for _, d := range docs {
		if d.URN == "" {
			return errors.New("document urn is required")
		}
		if err := batch.Index(d.URN, d); err != nil {
			return fmt.Errorf("index %s: %w", d.URN, err)
		}
	}
	if err := b.index.Batch(batch); err != nil {
		return fmt.Errorf("bleve batch: %w", err)
	}
	return nil
}

// Close releases the index.
func (b *Bleve) Close() error {
	return b.index.Close() //nolint:wrapcheck // passthrough
}

// Search implements the sparse index backend.
func (b *Bleve) Search(_ context.Context, query string, topK int, f hit.Filters) ([]hit.Hit, error) {
	req := bleve.NewSearchRequestOptions(buildBleveQuery(query, f), topK, 0, false)
	req.Fields = returnFields

	res, err := b.index.Search(req)
	if err != nil {
		return nil, fmt.Errorf("bleve search: %w", backendErr(err))
	}

	hits := make([]hit.Hit, 0, len(res.Hits))
	for _, h := range res.Hits {
		hits = append(hits, hit.NewSparse(h.ID, h.Score, bleveMetadata(h.Fields)))
	}
	return hits, nil
}

func buildBleveQuery(query string, f hit.Filters) blevequery.Query {
	match := bleve.NewMatchQuery(query)
	if f.IsEmpty() {
		return match
	}

	conj := bleve.NewConjunctionQuery(match)
	if f.Category != "" {
		tq := bleve.NewTermQuery(f.Category)
		tq.SetField("category")
		conj.AddQuery(tq)
	}
	if f.PriceMax != nil {
		inclusive := true
		rq := bleve.NewNumericRangeInclusiveQuery(nil, f.PriceMax, nil, &inclusive)
		rq.SetField("price")
		conj.AddQuery(rq)
	}
	return conj
}

func bleveMetadata(fields map[string]interface{}) map[string]any {
	meta := make(map[string]any, len(fields))
	for _, k := range returnFields {
		switch v := fields[k].(type) {
		case string:
			if v != "" {
				meta[k] = v
			}
		case float64:
			meta[k] = v
		}
	}
	return meta
}

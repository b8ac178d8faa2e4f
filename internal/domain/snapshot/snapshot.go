// Package snapshot defines the payloads stored in the session cache. Snapshots
// are write-once: derived operations always publish a new snapshot under a new
// id with a back-reference to their source.
package snapshot

import (
	"encoding/json"
	"fmt"
	"time"
)

// Cache key prefixes, one per producer.
const (
	PrefixSearch    = "search"
	PrefixProduct   = "product"
	PrefixMCPSearch = "mcp-search"
	PrefixFilter    = "filter"
	PrefixMCPFilter = "mcp-filter"
	PrefixCompare   = "compare"
)

// Lookup orders used when a reader holds only a bare id.
var (
	// RetrievalPrefixes are tried by the cache endpoint.
	RetrievalPrefixes = []string{PrefixSearch, PrefixProduct, PrefixMCPSearch}
	// ComparablePrefixes are tried by filter and compare, which also accept filtered snapshots.
	ComparablePrefixes = []string{PrefixSearch, PrefixProduct, PrefixMCPSearch, PrefixFilter, PrefixMCPFilter}
)

// Context is the JSON-LD context attached to every snapshot.
var Context = map[string]string{
	"schema": "https://schema.org",
	"cmp":    "https://schema.commercemesh.ai/ns#",
}

// NodeVersion is echoed in cmp:nodeVersion.
const NodeVersion = "v1.0.0"

// ListItem is one entry of itemListElement. Item is kept opaque so derived
// snapshots carry the producer's payload through unchanged.
type ListItem struct {
	Type     string          `json:"@type"`
	Position int             `json:"position"`
	Item     json.RawMessage `json:"item"`
	Score    *float64        `json:"cmp:score,omitempty"`
}

// Pagination is present on search snapshots.
type Pagination struct {
	Skip         int  `json:"cmp:skip"`
	Limit        int  `json:"cmp:limit"`
	HasNext      bool `json:"cmp:hasNext"`
	NextSkip     *int `json:"cmp:nextSkip,omitempty"`
	HasPrevious  bool `json:"cmp:hasPrevious"`
	PreviousSkip *int `json:"cmp:previousSkip,omitempty"`
}

// NewPagination computes navigation fields for a page of size limit at skip
// within total fused results.
func NewPagination(skip, limit, total int) *Pagination {
	p := &Pagination{Skip: skip, Limit: limit}
	if skip+limit < total {
		next := skip + limit
		p.HasNext = true
		p.NextSkip = &next
	}
	if skip > 0 {
		prev := max(0, skip-limit)
		p.HasPrevious = true
		p.PreviousSkip = &prev
	}
	return p
}

// FilterApplied echoes filter criteria on a filtered snapshot.
type FilterApplied struct {
	Criteria      *string  `json:"criteria"`
	MinPrice      *float64 `json:"minPrice"`
	MaxPrice      *float64 `json:"maxPrice"`
	OriginalTotal int      `json:"originalTotal"`
}

// ItemList is the schema.org ItemList published by search and filter.
type ItemList struct {
	Context           any            `json:"@context"`
	Type              string         `json:"@type"`
	ItemListElement   []ListItem     `json:"itemListElement"`
	TotalResults      int            `json:"cmp:totalResults"`
	NodeVersion       string         `json:"cmp:nodeVersion,omitempty"`
	RequestID         string         `json:"cmp:requestId,omitempty"`
	OriginalRequestID string         `json:"cmp:originalRequestId,omitempty"`
	Query             string         `json:"cmp:query,omitempty"`
	FilterApplied     *FilterApplied `json:"cmp:filterApplied,omitempty"`
	Skipped           []Skipped      `json:"cmp:skipped,omitempty"`
	DatePublished     string         `json:"datePublished,omitempty"`
	*Pagination
}

// Skipped records an item that could not be processed by a derived operation.
type Skipped struct {
	Position int    `json:"position"`
	Reason   string `json:"reason"`
}

// NewItemList creates an empty ItemList stamped with the given time.
func NewItemList(now time.Time) *ItemList {
	return &ItemList{
		Context:         Context,
		Type:            "ItemList",
		ItemListElement: []ListItem{},
		NodeVersion:     NodeVersion,
		DatePublished:   Published(now),
	}
}

// DecodeItemList parses a cached payload. Missing itemListElement decodes as empty.
func DecodeItemList(data []byte) (*ItemList, error) {
	var l ItemList
	if err := json.Unmarshal(data, &l); err != nil {
		return nil, fmt.Errorf("decode item list: %w", err)
	}
	if l.ItemListElement == nil {
		l.ItemListElement = []ListItem{}
	}
	return &l, nil
}

// Published formats a timestamp the way snapshots carry datePublished.
func Published(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000Z")
}

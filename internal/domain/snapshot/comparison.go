package snapshot

import (
	"encoding/json"
	"time"
)

// Comparison output formats. All formats carry the matrix and the narrative;
// the value tells clients which rendering was requested.
const (
	FormatTable     = "table"
	FormatNarrative = "narrative"
	FormatProsCons  = "pros_cons"
)

// Matrix maps aspect -> item label -> value, plus synthetic "winner"/"summary" keys.
type Matrix map[string]map[string]any

// Recommendations reference positions in the original selection.
type Recommendations struct {
	BestValue     int `json:"best_value"`
	PremiumChoice int `json:"premium_choice"`
	BudgetOption  int `json:"budget_option"`
}

// Comparison is the payload published under the compare prefix.
type Comparison struct {
	Context           any               `json:"@context"`
	Type              string            `json:"@type"`
	RequestID         string            `json:"cmp:requestId"`
	OriginalRequestID string            `json:"cmp:originalRequestId"`
	ComparedIndices   []int             `json:"cmp:comparedIndices"`
	ComparisonAspects []string          `json:"cmp:comparisonAspects"`
	Format            string            `json:"cmp:format"`
	Products          []json.RawMessage `json:"products"`
	ComparisonMatrix  Matrix            `json:"comparisonMatrix"`
	Narrative         string            `json:"narrative"`
	Recommendations   Recommendations   `json:"recommendations"`
	DatePublished     string            `json:"datePublished"`
}

// NewComparison creates a comparison payload stamped with the given time.
func NewComparison(now time.Time) *Comparison {
	return &Comparison{
		Context:       Context,
		Type:          "ComparisonResult",
		Format:        FormatTable,
		DatePublished: Published(now),
	}
}

// Package hit holds retrieval results as produced by the index backends.
package hit

// Metadata keys that backends populate when the indexed record carries them.
const (
	MetaName     = "name"
	MetaBrand    = "brand"
	MetaCategory = "category"
	MetaPrice    = "price"
	MetaCurrency = "currency"
	MetaURL      = "url"
)

// Hit is a single ranked candidate. Scores are backend-native; FusedScore is
// set by rank fusion.
type Hit struct {
	ID          string
	DenseScore  *float64
	SparseScore *float64
	FusedScore  float64
	Metadata    map[string]any
}

// NewDense creates a hit from the dense (semantic) index.
func NewDense(id string, score float64, meta map[string]any) Hit {
	return Hit{ID: id, DenseScore: &score, Metadata: meta}
}

// NewSparse creates a hit from the sparse (lexical) index.
func NewSparse(id string, score float64, meta map[string]any) Hit {
	return Hit{ID: id, SparseScore: &score, Metadata: meta}
}

// MetaString returns a string metadata value or "".
func (h Hit) MetaString(key string) string {
	if v, ok := h.Metadata[key].(string); ok {
		return v
	}
	return ""
}

// MetaFloat returns a numeric metadata value.
func (h Hit) MetaFloat(key string) (float64, bool) {
	switch v := h.Metadata[key].(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	}
	return 0, false
}

// Filters are optional pre-filters pushed down to both index backends.
type Filters struct {
	Category string
	PriceMax *float64
}

// IsEmpty reports whether no filter is set.
func (f Filters) IsEmpty() bool {
	return f.Category == "" && f.PriceMax == nil
}

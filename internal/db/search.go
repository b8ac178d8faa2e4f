package db

// Pre-filter field names in the product FT index.
const (
	FieldCategory = "category"
	FieldPrice    = "price"
)

// Filter is an FT pre-filter: a category tag match and an upper price bound.
type Filter struct {
	Category string
	PriceMax *float64
}

// IsEmpty reports whether the filter constrains nothing.
func (f Filter) IsEmpty() bool { return f.Category == "" && f.PriceMax == nil }

// KNNQuery is the input for vector similarity search.
type KNNQuery struct {
	IndexName    string
	Filter       Filter
	Vector       []float32
	K            int
	ReturnFields []string
}

// TextQuery is the input for BM25 text search.
type TextQuery struct {
	IndexName    string
	Query        string
	Filter       Filter
	TopK         int
	ReturnFields []string
}

// SearchResult is the output of a search operation.
type SearchResult struct {
	Total   int
	Entries []SearchEntry
}

// SearchEntry is a single document hit from a search.
type SearchEntry struct {
	Key    string
	Score  float64
	Fields map[string]string
}

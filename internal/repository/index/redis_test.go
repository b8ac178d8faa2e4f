package index

import (
	"context"
	"errors"
	"testing"

	"github.com/kailas-cloud/prodscout/internal/db"
	"github.com/kailas-cloud/prodscout/internal/domain"
	"github.com/kailas-cloud/prodscout/internal/domain/hit"
)

var testOpts = RedisOptions{IndexName: "prodscout:products:idx", KeyPrefix: "prodscout:product:"}

func TestRedisDense_HappyPath(t *testing.T) {
	emb := &mockEmbedder{vec: []float32{0.1, 0.2}}
	ms := &mockStore{
		searchKNNFn: func(_ context.Context, q *db.KNNQuery) (*db.SearchResult, error) {
			if q.IndexName != "prodscout:products:idx" {
				t.Errorf("unexpected index: %s", q.IndexName)
			}
			if q.K != 40 {
				t.Errorf("unexpected K: %d", q.K)
			}
			if q.Filter.Category != "boots" || q.Filter.PriceMax == nil || *q.Filter.PriceMax != 150 {
				t.Errorf("filter not forwarded: %+v", q.Filter)
			}
			if len(q.Vector) != 2 {
				t.Errorf("query vector not forwarded: %v", q.Vector)
			}
			return &db.SearchResult{
				Total: 2,
				Entries: []db.SearchEntry{
					{Key: "prodscout:product:urn:p:1", Score: 0.91, Fields: map[string]string{
						"name": "Alpine Boot", "brand": "Peak", "price": "129.5", "category": "boots",
					}},
					{Key: "prodscout:product:urn:p:2", Score: 0.55, Fields: map[string]string{
						"name": "Trail Boot", "price": "n/a",
					}},
				},
			}, nil
		},
	}

	d := NewRedisDense(ms, emb, testOpts)
	hits, err := d.Search(context.Background(), "waterproof boots", 40, hit.Filters{Category: "boots", PriceMax: ptr(150)})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(emb.texts) != 1 || emb.texts[0] != "waterproof boots" {
		t.Fatalf("expected query embedded once, got %v", emb.texts)
	}
	if len(hits) != 2 {
		t.Fatalf("expected 2 hits, got %d", len(hits))
	}
	if hits[0].ID != "urn:p:1" {
		t.Errorf("key prefix not trimmed: %s", hits[0].ID)
	}
	if hits[0].DenseScore == nil || *hits[0].DenseScore != 0.91 || hits[0].SparseScore != nil {
		t.Errorf("unexpected scores: %+v", hits[0])
	}
	if p, ok := hits[0].MetaFloat(hit.MetaPrice); !ok || p != 129.5 {
		t.Errorf("price not parsed: %v", hits[0].Metadata)
	}
	if _, ok := hits[1].Metadata[hit.MetaPrice]; ok {
		t.Error("unparsable price must be dropped")
	}
}

func TestRedisDense_EmbedError(t *testing.T) {
	emb := &mockEmbedder{err: domain.ErrRateLimited}
	d := NewRedisDense(&mockStore{}, emb, testOpts)

	_, err := d.Search(context.Background(), "q", 10, hit.Filters{})
	if !errors.Is(err, domain.ErrRateLimited) {
		t.Fatalf("expected rate limit to propagate, got %v", err)
	}
}

func TestRedisDense_StoreError(t *testing.T) {
	cause := errors.New("ERR 429 too many requests")
	ms := &mockStore{
		searchKNNFn: func(_ context.Context, _ *db.KNNQuery) (*db.SearchResult, error) {
			return nil, &db.Error{Op: db.OpSearch, Err: cause}
		},
	}
	d := NewRedisDense(ms, &mockEmbedder{vec: []float32{1}}, testOpts)

	_, err := d.Search(context.Background(), "q", 10, hit.Filters{})
	if !errors.Is(err, domain.ErrBackend) {
		t.Errorf("expected ErrBackend, got %v", err)
	}
	if !errors.Is(err, cause) {
		t.Errorf("cause must stay visible, got %v", err)
	}
}

func TestRedisSparse_HappyPath(t *testing.T) {
	ms := &mockStore{
		searchBM25Fn: func(_ context.Context, q *db.TextQuery) (*db.SearchResult, error) {
			if q.Query != "rain jacket" || q.TopK != 10 {
				t.Errorf("unexpected query: %+v", q)
			}
			if !q.Filter.IsEmpty() {
				t.Errorf("expected empty filter, got %+v", q.Filter)
			}
			return &db.SearchResult{Total: 1, Entries: []db.SearchEntry{
				{Key: "prodscout:product:urn:p:9", Score: 7.25, Fields: map[string]string{"name": "Rain Jacket"}},
			}}, nil
		},
	}

	s := NewRedisSparse(ms, testOpts)
	hits, err := s.Search(context.Background(), "rain jacket", 10, hit.Filters{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(hits) != 1 || hits[0].ID != "urn:p:9" {
		t.Fatalf("unexpected hits: %+v", hits)
	}
	if hits[0].SparseScore == nil || *hits[0].SparseScore != 7.25 || hits[0].DenseScore != nil {
		t.Errorf("unexpected scores: %+v", hits[0])
	}
	if hits[0].MetaString(hit.MetaName) != "Rain Jacket" {
		t.Errorf("unexpected metadata: %v", hits[0].Metadata)
	}
}

func TestRedisSparse_EmptyResult(t *testing.T) {
	s := NewRedisSparse(&mockStore{}, testOpts)
	hits, err := s.Search(context.Background(), "nothing", 10, hit.Filters{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if hits == nil || len(hits) != 0 {
		t.Errorf("expected empty non-nil slice, got %v", hits)
	}
}

func TestInstrumented_PassesThrough(t *testing.T) {
	want := errors.New("boom")
	ms := &mockStore{
		searchBM25Fn: func(_ context.Context, _ *db.TextQuery) (*db.SearchResult, error) {
			return nil, want
		},
	}
	b := Instrument("sparse", NewRedisSparse(ms, testOpts))
	if _, err := b.Search(context.Background(), "q", 1, hit.Filters{}); !errors.Is(err, want) {
		t.Fatalf("expected inner error, got %v", err)
	}
}

package search

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/kailas-cloud/prodscout/internal/domain"
	"github.com/kailas-cloud/prodscout/internal/domain/hit"
	"github.com/kailas-cloud/prodscout/internal/domain/snapshot"
)

func newTestService(dn, sp *mockBackend, cat *mockCatalog, store *mockSnapshots) *Service {
	s := New(fastDispatcher(dn, sp), NewEnricher(cat), store)
	s.now = func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }
	return s
}

func TestSearch_FusesEnrichesAndPublishes(t *testing.T) {
	dn := &mockBackend{hits: dense("A", "B")}
	sp := &mockBackend{hits: sparse("B", "C")}
	cat := &mockCatalog{records: map[string]json.RawMessage{
		"B": json.RawMessage(`{"@type":"Product","@id":"B","name":"Catalog B"}`),
	}}
	store := &mockSnapshots{id: "K3M9X2"}

	list, err := newTestService(dn, sp, cat, store).Search(context.Background(), Query{Text: " rain jacket "})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if list.RequestID != "K3M9X2" {
		t.Errorf("request id = %q", list.RequestID)
	}
	if _, ok := store.puts["search:K3M9X2"]; !ok {
		t.Errorf("snapshot not published, last key %q", store.lastKey)
	}
	if list.TotalResults != 3 || len(list.ItemListElement) != 3 {
		t.Fatalf("total %d, items %d", list.TotalResults, len(list.ItemListElement))
	}

	first := list.ItemListElement[0]
	if first.Position != 1 || !strings.Contains(string(first.Item), "Catalog B") {
		t.Errorf("first item = %+v %s", first, first.Item)
	}
	if !strings.Contains(string(list.ItemListElement[1].Item), "dense A") {
		t.Errorf("second item should fall back to index metadata: %s", list.ItemListElement[1].Item)
	}
	if list.Query != "rain jacket" || list.DatePublished != "2026-03-01T12:00:00.000Z" {
		t.Errorf("query %q date %q", list.Query, list.DatePublished)
	}
	if list.Limit != DefaultLimit || list.HasNext || list.HasPrevious {
		t.Errorf("pagination = %+v", list.Pagination)
	}
	if dn.topKs[0] != 40 {
		t.Errorf("fetch size = %d, want 40", dn.topKs[0])
	}
}

func TestSearch_Pagination(t *testing.T) {
	dn := &mockBackend{hits: dense("a", "b", "c", "d", "e")}
	sp := &mockBackend{hits: sparse()}
	store := &mockSnapshots{id: "PAGE01"}

	list, err := newTestService(dn, sp, &mockCatalog{}, store).
		Search(context.Background(), Query{Text: "q", Limit: 2, Skip: 2})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(list.ItemListElement) != 2 {
		t.Fatalf("expected 2 items, got %d", len(list.ItemListElement))
	}
	if list.ItemListElement[0].Position != 3 {
		t.Errorf("position = %d, want 3", list.ItemListElement[0].Position)
	}
	if !strings.Contains(string(list.ItemListElement[0].Item), `"@id":"c"`) {
		t.Errorf("page starts at wrong item: %s", list.ItemListElement[0].Item)
	}
	if !list.HasNext || *list.NextSkip != 4 || !list.HasPrevious || *list.PreviousSkip != 0 {
		t.Errorf("pagination = %+v", list.Pagination)
	}
}

func TestSearch_SkipBeyondResults(t *testing.T) {
	list, err := newTestService(&mockBackend{hits: dense("a")}, &mockBackend{}, &mockCatalog{}, &mockSnapshots{id: "EMPTY1"}).
		Search(context.Background(), Query{Text: "q", Skip: 10})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(list.ItemListElement) != 0 {
		t.Errorf("expected empty page, got %d", len(list.ItemListElement))
	}
}

func TestSearch_CacheFailureDoesNotFail(t *testing.T) {
	store := &mockSnapshots{id: "NOCACH", err: domain.ErrCacheUnavailable}
	list, err := newTestService(&mockBackend{hits: dense("a")}, &mockBackend{}, &mockCatalog{}, store).
		Search(context.Background(), Query{Text: "q"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if list.RequestID != "NOCACH" {
		t.Errorf("request id = %q", list.RequestID)
	}
}

func TestSearch_BackendFailure(t *testing.T) {
	store := &mockSnapshots{id: "FAIL01"}
	_, err := newTestService(&mockBackend{hits: dense("a")}, &mockBackend{err: domain.ErrBackend}, &mockCatalog{}, store).
		Search(context.Background(), Query{Text: "q"})
	if !errors.Is(err, domain.ErrBackend) {
		t.Fatalf("expected ErrBackend, got %v", err)
	}
	if len(store.puts) != 0 {
		t.Error("nothing should be published on failure")
	}
}

func TestSearch_Validation(t *testing.T) {
	tests := []struct {
		name   string
		q      Query
		reason string
	}{
		{"empty", Query{Text: "   "}, domain.ReasonInvalidQuery},
		{"too long", Query{Text: strings.Repeat("x", MaxQueryLen+1)}, domain.ReasonInvalidQuery},
		{"limit too high", Query{Text: "q", Limit: 101}, domain.ReasonValidationFailed},
		{"negative limit", Query{Text: "q", Limit: -1}, domain.ReasonValidationFailed},
		{"negative skip", Query{Text: "q", Skip: -1}, domain.ReasonValidationFailed},
		{"negative price", Query{Text: "q", Filters: hit.Filters{PriceMax: ptr(-1.0)}}, domain.ReasonInvalidPrice},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dn := &mockBackend{}
			_, err := newTestService(dn, &mockBackend{}, &mockCatalog{}, &mockSnapshots{}).
				Search(context.Background(), tt.q)
			var ve *domain.ValidationError
			if !errors.As(err, &ve) || ve.Reason != tt.reason {
				t.Fatalf("expected %s, got %v", tt.reason, err)
			}
			if dn.calls.Load() != 0 {
				t.Error("backends must not be called on invalid input")
			}
		})
	}
}

func TestSearch_PublishedSnapshotDecodes(t *testing.T) {
	store := &mockSnapshots{id: "RT0001"}
	_, err := newTestService(&mockBackend{hits: dense("a")}, &mockBackend{hits: sparse("b")}, &mockCatalog{}, store).
		Search(context.Background(), Query{Text: "q"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	data, err := json.Marshal(store.puts["search:RT0001"])
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	got, err := snapshot.DecodeItemList(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.RequestID != "RT0001" || len(got.ItemListElement) != 2 {
		t.Errorf("decoded = %+v", got)
	}
}

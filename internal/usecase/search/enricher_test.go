package search

import (
	"context"
	"encoding/json"
	"errors"
	"reflect"
	"testing"

	"github.com/kailas-cloud/prodscout/internal/domain/hit"
)

func TestEnricher_SingleBatchedCall(t *testing.T) {
	cat := &mockCatalog{records: map[string]json.RawMessage{
		"urn:p:1": json.RawMessage(`{"@type":"Product","@id":"urn:p:1","name":"Trail Boot","brand":"Acme"}`),
		"urn:p:3": json.RawMessage(`{"@type":"Product","@id":"urn:p:3","name":"Rain Shell"}`),
	}}
	hits := []hit.Hit{
		hit.NewDense("urn:p:1", 0.9, nil),
		hit.NewDense("urn:p:2", 0.8, map[string]any{hit.MetaName: "Index Name", hit.MetaPrice: 42.0}),
		hit.NewDense("urn:p:3", 0.7, nil),
	}

	out := NewEnricher(cat).Enrich(context.Background(), hits)

	if cat.calls != 1 {
		t.Fatalf("catalog calls = %d, want 1", cat.calls)
	}
	if !reflect.DeepEqual(cat.lastIDs, []string{"urn:p:1", "urn:p:2", "urn:p:3"}) {
		t.Errorf("ids = %v", cat.lastIDs)
	}
	if len(out) != 3 {
		t.Fatalf("expected 3 items, got %d", len(out))
	}
	if !out[0].Resolved || out[0].Item.BrandName() != "Acme" {
		t.Errorf("item 0 not resolved: %+v", out[0])
	}
	if out[1].Resolved {
		t.Error("item 1 should be unresolved")
	}
	if out[1].Item.Name != "Index Name" {
		t.Errorf("fallback name = %q", out[1].Item.Name)
	}
	if p, ok := out[1].Item.Price(); !ok || p != 42 {
		t.Errorf("fallback price = %v %v", p, ok)
	}
	if out[2].Item.Name != "Rain Shell" {
		t.Errorf("order not preserved: %q", out[2].Item.Name)
	}
}

func TestEnricher_CatalogFailureKeepsHits(t *testing.T) {
	cat := &mockCatalog{err: errors.New("catalog down")}
	hits := []hit.Hit{
		hit.NewDense("urn:p:1", 0.9, map[string]any{hit.MetaName: "A"}),
		hit.NewSparse("urn:p:2", 3.1, map[string]any{hit.MetaName: "B"}),
	}

	out := NewEnricher(cat).Enrich(context.Background(), hits)
	if len(out) != 2 {
		t.Fatalf("hits dropped: got %d", len(out))
	}
	for i, en := range out {
		if en.Resolved || en.Raw == nil {
			t.Errorf("item %d: expected metadata fallback with payload, got %+v", i, en)
		}
	}
	if out[1].Item.Name != "B" {
		t.Errorf("got %q", out[1].Item.Name)
	}
}

func TestEnricher_UndecodableRecordFallsBack(t *testing.T) {
	cat := &mockCatalog{records: map[string]json.RawMessage{
		"urn:p:1": json.RawMessage(`{"@type":"Product","offers":"not an offer"}`),
	}}
	out := NewEnricher(cat).Enrich(context.Background(), []hit.Hit{
		hit.NewDense("urn:p:1", 0.9, map[string]any{hit.MetaName: "A"}),
	})
	if len(out) != 1 || out[0].Resolved || out[0].Item.Name != "A" {
		t.Fatalf("unexpected %+v", out)
	}
}

func TestEnricher_NoCatalogAndEmpty(t *testing.T) {
	out := NewEnricher(nil).Enrich(context.Background(), []hit.Hit{hit.NewDense("urn:p:1", 1, nil)})
	if len(out) != 1 || out[0].Resolved {
		t.Fatalf("unexpected %+v", out)
	}

	cat := &mockCatalog{}
	if got := NewEnricher(cat).Enrich(context.Background(), nil); got == nil || len(got) != 0 {
		t.Fatalf("expected empty slice, got %v", got)
	}
	if cat.calls != 0 {
		t.Error("catalog should not be called for no hits")
	}
}

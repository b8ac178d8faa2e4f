package search

import (
	"math"
	"reflect"
	"testing"

	"github.com/kailas-cloud/prodscout/internal/domain/hit"
)

func TestFuseRRF_DisjointLists(t *testing.T) {
	results := FuseRRF(dense("a", "b"), sparse("c", "d"), 60, 10)
	if len(results) != 4 {
		t.Fatalf("expected 4 results, got %d", len(results))
	}

	// Equal ranks tie; dense order first, then sparse.
	want := []string{"a", "c", "b", "d"}
	if got := ids(results); !reflect.DeepEqual(got, want) {
		t.Errorf("order = %v, want %v", got, want)
	}
}

func TestFuseRRF_OverlapRanksFirst(t *testing.T) {
	// B is rank 1 dense and rank 0 sparse: 1/62 + 1/61 beats single-list A and C.
	results := FuseRRF(dense("A", "B"), sparse("B", "C"), 60, 10)

	want := []string{"B", "A", "C"}
	if got := ids(results); !reflect.DeepEqual(got, want) {
		t.Fatalf("order = %v, want %v", got, want)
	}

	wantB := 1.0/62 + 1.0/61
	if math.Abs(results[0].FusedScore-wantB) > 1e-12 {
		t.Errorf("B score = %v, want %v", results[0].FusedScore, wantB)
	}
	if results[0].DenseScore == nil || results[0].SparseScore == nil {
		t.Error("overlapping hit should keep both native scores")
	}
	if results[1].SparseScore != nil {
		t.Error("dense-only hit should have no sparse score")
	}
}

func TestFuseRRF_ScoreIsSumOfContributions(t *testing.T) {
	d := dense("a", "b", "c", "d")
	s := sparse("d", "x", "a")
	results := FuseRRF(d, s, 60, 0)

	expected := map[string]float64{}
	for rank, h := range d {
		expected[h.ID] += 1.0 / float64(60+rank+1)
	}
	for rank, h := range s {
		expected[h.ID] += 1.0 / float64(60+rank+1)
	}

	if len(results) != len(expected) {
		t.Fatalf("expected %d results, got %d", len(expected), len(results))
	}
	for _, r := range results {
		if math.Abs(r.FusedScore-expected[r.ID]) > 1e-12 {
			t.Errorf("%s: score %v, want %v", r.ID, r.FusedScore, expected[r.ID])
		}
	}
	for i := 1; i < len(results); i++ {
		if results[i].FusedScore > results[i-1].FusedScore {
			t.Errorf("results not sorted at index %d", i)
		}
	}
}

func TestFuseRRF_Deterministic(t *testing.T) {
	d := dense("a", "b", "c", "d", "e")
	s := sparse("e", "f", "b", "g")

	first := ids(FuseRRF(d, s, 60, 0))
	for range 20 {
		if got := ids(FuseRRF(d, s, 60, 0)); !reflect.DeepEqual(got, first) {
			t.Fatalf("non-deterministic order: %v vs %v", got, first)
		}
	}
}

func TestFuseRRF_EmptyInputs(t *testing.T) {
	t.Run("both empty", func(t *testing.T) {
		results := FuseRRF(nil, nil, 60, 10)
		if results == nil || len(results) != 0 {
			t.Fatalf("expected empty non-nil slice, got %v", results)
		}
	})

	t.Run("dense empty", func(t *testing.T) {
		results := FuseRRF(nil, sparse("a", "b"), 60, 10)
		if got := ids(results); !reflect.DeepEqual(got, []string{"a", "b"}) {
			t.Fatalf("got %v", got)
		}
	})

	t.Run("sparse empty", func(t *testing.T) {
		results := FuseRRF(dense("a"), nil, 60, 10)
		if len(results) != 1 {
			t.Fatalf("expected 1 result, got %d", len(results))
		}
	})
}

func TestFuseRRF_TopKLimiting(t *testing.T) {
	results := FuseRRF(dense("a", "b", "c"), sparse("d", "e", "f"), 60, 3)
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
}

func TestFuseRRF_DefaultK(t *testing.T) {
	results := FuseRRF(dense("a"), sparse("a"), 0, 10)
	// rank 0 in both: 1/(60+1) + 1/(60+1) = 2/61
	expected := 2.0 / 61.0
	if math.Abs(results[0].FusedScore-expected) > 1e-10 {
		t.Errorf("expected score %f, got %f", expected, results[0].FusedScore)
	}
}

func TestFuseRRF_MetadataMerge(t *testing.T) {
	d := []hit.Hit{hit.NewDense("a", 0.9, map[string]any{hit.MetaName: "Dense Name"})}
	s := []hit.Hit{hit.NewSparse("a", 4.2, map[string]any{hit.MetaName: "Sparse Name", hit.MetaBrand: "Acme"})}

	results := FuseRRF(d, s, 60, 10)
	md := results[0].Metadata
	if md[hit.MetaName] != "Dense Name" {
		t.Errorf("dense metadata should win, got %v", md[hit.MetaName])
	}
	if md[hit.MetaBrand] != "Acme" {
		t.Errorf("missing keys should be filled from sparse, got %v", md[hit.MetaBrand])
	}
	if _, ok := d[0].Metadata[hit.MetaBrand]; ok {
		t.Error("input metadata must not be mutated")
	}
}

func TestFuseRRF_DuplicateWithinList(t *testing.T) {
	results := FuseRRF(dense("a", "a", "b"), nil, 60, 10)
	if got := ids(results); !reflect.DeepEqual(got, []string{"a", "b"}) {
		t.Fatalf("got %v", got)
	}
	if math.Abs(results[0].FusedScore-1.0/61) > 1e-12 {
		t.Errorf("duplicate should count once, got %v", results[0].FusedScore)
	}
}

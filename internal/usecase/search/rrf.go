package search

import (
	"cmp"
	"maps"
	"slices"

	"github.com/kailas-cloud/prodscout/internal/domain/hit"
)

// DefaultRRFK is the Reciprocal Rank Fusion constant (Cormack et al. 2009).
const DefaultRRFK = 60

// FuseRRF merges dense and sparse rankings via Reciprocal Rank Fusion.
// score(d) = sum of 1/(k + rank_i(d) + 1) over the lists containing d, rank 0-based.
// Equal scores keep first-appearance order: dense list first, then sparse.
// k <= 0 means DefaultRRFK; topK <= 0 keeps every fused hit.
func FuseRRF(dense, sparse []hit.Hit, k, topK int) []hit.Hit {
	if k <= 0 {
		k = DefaultRRFK
	}

	merged := make(map[string]*hit.Hit, len(dense)+len(sparse))
	order := make([]string, 0, len(dense)+len(sparse))

	for rank, h := range dense {
		if _, dup := merged[h.ID]; dup {
			continue
		}
		fused := h
		fused.Metadata = maps.Clone(h.Metadata)
		fused.FusedScore = rrfTerm(k, rank)
		merged[h.ID] = &fused
		order = append(order, h.ID)
	}

	seenSparse := make(map[string]struct{}, len(sparse))
	for rank, h := range sparse {
		if _, dup := seenSparse[h.ID]; dup {
			continue
		}
		seenSparse[h.ID] = struct{}{}

		if existing, ok := merged[h.ID]; ok {
			existing.FusedScore += rrfTerm(k, rank)
			existing.SparseScore = h.SparseScore
			// dense metadata wins; sparse only fills gaps
			for key, v := range h.Metadata {
				if _, has := existing.Metadata[key]; !has {
					if existing.Metadata == nil {
						existing.Metadata = make(map[string]any, len(h.Metadata))
					}
					existing.Metadata[key] = v
				}
			}
			continue
		}

		fused := h
		fused.Metadata = maps.Clone(h.Metadata)
		fused.FusedScore = rrfTerm(k, rank)
		merged[h.ID] = &fused
		order = append(order, h.ID)
	}

	results := make([]hit.Hit, 0, len(order))
	for _, id := range order {
		results = append(results, *merged[id])
	}

	slices.SortStableFunc(results, func(a, b hit.Hit) int {
		return cmp.Compare(b.FusedScore, a.FusedScore)
	})

	if topK > 0 && len(results) > topK {
		results = results[:topK]
	}
	return results
}

func rrfTerm(k, rank int) float64 {
	return 1.0 / float64(k+rank+1)
}

package search

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"

	"github.com/kailas-cloud/prodscout/internal/domain/hit"
)

// --- Mocks ---

type mockBackend struct {
	mu       sync.Mutex
	calls    atomic.Int32
	topKs    []int
	filters  []hit.Filters
	searchFn func(ctx context.Context, query string, topK int) ([]hit.Hit, error)
	hits     []hit.Hit
	err      error
}

func (m *mockBackend) Search(ctx context.Context, query string, topK int, f hit.Filters) ([]hit.Hit, error) {
	m.calls.Add(1)
	m.mu.Lock()
	m.topKs = append(m.topKs, topK)
	m.filters = append(m.filters, f)
	m.mu.Unlock()
	if m.searchFn != nil {
		return m.searchFn(ctx, query, topK)
	}
	return m.hits, m.err
}

type mockCatalog struct {
	records map[string]json.RawMessage
	err     error
	calls   int
	lastIDs []string
}

func (m *mockCatalog) GetByURNs(_ context.Context, urns []string) (map[string]json.RawMessage, error) {
	m.calls++
	m.lastIDs = append([]string(nil), urns...)
	if m.err != nil {
		return nil, m.err
	}
	out := make(map[string]json.RawMessage)
	for _, u := range urns {
		if r, ok := m.records[u]; ok {
			out[u] = r
		}
	}
	return out, nil
}

type mockSnapshots struct {
	id      string
	err     error
	puts    map[string]any
	lastKey string
}

func (m *mockSnapshots) GenerateKey(_ string) string { return m.id }

func (m *mockSnapshots) Put(_ context.Context, prefix, id string, payload any) error {
	if m.puts == nil {
		m.puts = make(map[string]any)
	}
	m.lastKey = prefix + ":" + id
	if m.err != nil {
		return m.err
	}
	m.puts[m.lastKey] = payload
	return nil
}

// --- Helpers ---

func dense(ids ...string) []hit.Hit {
	out := make([]hit.Hit, len(ids))
	for i, id := range ids {
		out[i] = hit.NewDense(id, 1-float64(i)*0.1, map[string]any{hit.MetaName: "dense " + id})
	}
	return out
}

func sparse(ids ...string) []hit.Hit {
	out := make([]hit.Hit, len(ids))
	for i, id := range ids {
		out[i] = hit.NewSparse(id, 10-float64(i), map[string]any{hit.MetaName: "sparse " + id})
	}
	return out
}

func ids(hits []hit.Hit) []string {
	out := make([]string, len(hits))
	for i, h := range hits {
		out[i] = h.ID
	}
	return out
}

func ptr[T any](v T) *T { return &v }

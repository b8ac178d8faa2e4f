package compare

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/kailas-cloud/prodscout/internal/domain"
	"github.com/kailas-cloud/prodscout/internal/domain/snapshot"
)

// --- Mocks ---

type mockStore struct {
	data    map[string]json.RawMessage
	putErr  error
	nextID  string
	puts    map[string]any
	lookups int
}

func (m *mockStore) Lookup(_ context.Context, id string, prefixes ...string) (json.RawMessage, string, error) {
	m.lookups++
	for _, p := range prefixes {
		if d, ok := m.data[p+":"+id]; ok {
			return d, p, nil
		}
	}
	return nil, "", fmt.Errorf("snapshot %s: %w", id, domain.ErrNotFound)
}

func (m *mockStore) GenerateKey(_ string) string { return m.nextID }

func (m *mockStore) Put(_ context.Context, prefix, id string, payload any) error {
	if m.putErr != nil {
		return m.putErr
	}
	if m.puts == nil {
		m.puts = make(map[string]any)
	}
	m.puts[prefix+":"+id] = payload
	return nil
}

type mockCatalog struct {
	records map[string]json.RawMessage
	err     error
	calls   int
}

func (m *mockCatalog) GetByURNs(_ context.Context, urns []string) (map[string]json.RawMessage, error) {
	m.calls++
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

// --- Fixtures ---

const (
	itemA = `{"@type":"Product","@id":"urn:p:a","name":"Alpine Jacket","brand":"Acme","category":"Outerwear",` +
		`"offers":{"price":150,"availability":"https://schema.org/InStock"},` +
		`"additionalProperty":[{"name":"fill","value":"down"},{"name":"weight","value":"400g"}]}`
	itemB = `{"@type":"Product","@id":"urn:p:b","name":"Budget Parka","brand":{"@type":"Brand","name":"Zed"},` +
		`"category":"Outerwear","offers":[{"price":"60","availability":"OutOfStock"}]}`
	itemC = `{"@type":"Product","@id":"urn:p:c","name":"Trail Vest","brand":"Acme",` +
		`"offers":{"price":80},"additionalProperty":[{"name":"fill","value":"synthetic"}]}`
	itemD = `{"@type":"Product","@id":"urn:p:d","name":"Rain Shell"}`
	itemE = `{"@type":"Product","@id":"urn:p:e","name":"Fleece"}`
)

func listOf(t *testing.T, items ...string) json.RawMessage {
	t.Helper()
	l := snapshot.NewItemList(time.Now())
	for i, it := range items {
		l.ItemListElement = append(l.ItemListElement, snapshot.ListItem{
			Type: "ListItem", Position: i + 1, Item: json.RawMessage(it),
		})
	}
	l.TotalResults = len(items)
	data, err := json.Marshal(l)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return data
}

func fiveItemStore(t *testing.T) *mockStore {
	t.Helper()
	return &mockStore{
		data:   map[string]json.RawMessage{"search:K3M9X2": listOf(t, itemA, itemB, itemC, itemD, itemE)},
		nextID: "CMP001",
	}
}

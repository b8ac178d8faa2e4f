package snapshot

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestNewPagination(t *testing.T) {
	tests := []struct {
		name               string
		skip, limit, total int
		hasNext, hasPrev   bool
		nextSkip, prevSkip int
	}{
		{"first page", 0, 10, 25, true, false, 10, 0},
		{"middle page", 10, 10, 25, true, true, 20, 0},
		{"last page", 20, 10, 25, false, true, 0, 10},
		{"single page", 0, 10, 5, false, false, 0, 0},
		{"short skip", 3, 10, 25, true, true, 13, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewPagination(tt.skip, tt.limit, tt.total)
			if p.HasNext != tt.hasNext {
				t.Errorf("HasNext = %v, want %v", p.HasNext, tt.hasNext)
			}
			if p.HasPrevious != tt.hasPrev {
				t.Errorf("HasPrevious = %v, want %v", p.HasPrevious, tt.hasPrev)
			}
			if tt.hasNext && *p.NextSkip != tt.nextSkip {
				t.Errorf("NextSkip = %d, want %d", *p.NextSkip, tt.nextSkip)
			}
			if tt.hasPrev && *p.PreviousSkip != tt.prevSkip {
				t.Errorf("PreviousSkip = %d, want %d", *p.PreviousSkip, tt.prevSkip)
			}
		})
	}
}

func TestItemList_RoundTrip(t *testing.T) {
	l := NewItemList(time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC))
	l.RequestID = "K3M9X2"
	l.TotalResults = 1
	l.ItemListElement = []ListItem{{Type: "ListItem", Position: 1, Item: json.RawMessage(`{"@type":"Product","name":"A"}`)}}
	l.Pagination = NewPagination(0, 20, 1)

	data, err := json.Marshal(l)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !strings.Contains(string(data), `"cmp:hasNext":false`) {
		t.Errorf("expected flattened pagination fields, got %s", data)
	}

	got, err := DecodeItemList(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.RequestID != "K3M9X2" || len(got.ItemListElement) != 1 {
		t.Errorf("unexpected decoded list: %+v", got)
	}
	if got.DatePublished != "2026-01-02T03:04:05.000Z" {
		t.Errorf("unexpected datePublished %q", got.DatePublished)
	}
}

func TestDecodeItemList_MissingElements(t *testing.T) {
	got, err := DecodeItemList([]byte(`{"@type":"ItemList"}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.ItemListElement == nil || len(got.ItemListElement) != 0 {
		t.Errorf("expected empty non-nil list, got %v", got.ItemListElement)
	}
}

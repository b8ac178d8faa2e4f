package product

import (
	"encoding/json"
	"fmt"

	"github.com/kailas-cloud/prodscout/internal/domain/hit"
)

// Enriched is a fused hit joined with its catalog record. Resolved is false when
// the catalog had no record and Item was derived from index metadata only.
type Enriched struct {
	Hit      hit.Hit
	Item     Item
	Raw      json.RawMessage
	Resolved bool
}

// FromHit builds a minimal item from backend metadata.
func FromHit(h hit.Hit) Item {
	it := Item{
		Type:     TypeProduct,
		ID:       h.ID,
		Name:     h.MetaString(hit.MetaName),
		Category: h.MetaString(hit.MetaCategory),
		URL:      h.MetaString(hit.MetaURL),
	}
	if b := h.MetaString(hit.MetaBrand); b != "" {
		it.Brand = &Brand{Type: "Brand", Name: b}
	}
	if p, ok := h.MetaFloat(hit.MetaPrice); ok {
		it.Offers = Offers{{
			Type:          "Offer",
			Price:         &p,
			PriceCurrency: h.MetaString(hit.MetaCurrency),
		}}
	}
	return it
}

// Unresolved wraps a hit that the catalog could not resolve.
func Unresolved(h hit.Hit) (Enriched, error) {
	it := FromHit(h)
	raw, err := json.Marshal(it)
	if err != nil {
		return Enriched{}, fmt.Errorf("marshal fallback item %s: %w", h.ID, err)
	}
	return Enriched{Hit: h, Item: it, Raw: raw}, nil
}

// Resolved wraps a hit with its catalog payload.
func Resolved(h hit.Hit, raw json.RawMessage) (Enriched, error) {
	it, err := Decode(raw)
	if err != nil {
		return Enriched{}, err
	}
	return Enriched{Hit: h, Item: it, Raw: raw, Resolved: true}, nil
}

// Package product models the schema.org-style catalog items carried in
// session snapshots. Decoding is tolerant: brand may be a string or an object,
// offers a single object or a list, prices numbers or numeric strings.
package product

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Schema.org types used by the catalog.
const (
	TypeProduct      = "Product"
	TypeProductGroup = "ProductGroup"
)

// maxLabelLen bounds item labels used as comparison matrix keys.
const maxLabelLen = 50

// Brand is a schema.org Brand.
type Brand struct {
	Type string `json:"@type,omitempty"`
	Name string `json:"name"`
}

// UnmarshalJSON accepts either a bare string or a Brand object.
func (b *Brand) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("brand string: %w", err)
		}
		*b = Brand{Type: "Brand", Name: s}
		return nil
	}
	type plain Brand
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return fmt.Errorf("brand object: %w", err)
	}
	*b = Brand(p)
	return nil
}

// Offer is a schema.org Offer.
type Offer struct {
	Type          string   `json:"@type,omitempty"`
	Price         *float64 `json:"price,omitempty"`
	PriceCurrency string   `json:"priceCurrency,omitempty"`
	Availability  string   `json:"availability,omitempty"`
	URL           string   `json:"url,omitempty"`
}

// UnmarshalJSON accepts price as a number or a numeric string.
func (o *Offer) UnmarshalJSON(data []byte) error {
	var raw struct {
		Type          string          `json:"@type"`
		Price         json.RawMessage `json:"price"`
		PriceCurrency string          `json:"priceCurrency"`
		Availability  string          `json:"availability"`
		URL           string          `json:"url"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("offer: %w", err)
	}
	*o = Offer{
		Type:          raw.Type,
		PriceCurrency: raw.PriceCurrency,
		Availability:  raw.Availability,
		URL:           raw.URL,
	}
	o.Price = parsePrice(raw.Price)
	return nil
}

func parsePrice(raw json.RawMessage) *float64 {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return &f
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if f, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
			return &f
		}
	}
	return nil
}

// Offers is a list of offers; a single offer object decodes as a one-element list.
type Offers []Offer

// UnmarshalJSON accepts an offer object, a list of offers, or null.
func (o *Offers) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case len(data) == 0 || bytes.Equal(data, []byte("null")):
		*o = nil
		return nil
	case data[0] == '{':
		var one Offer
		if err := json.Unmarshal(data, &one); err != nil {
			return err
		}
		*o = Offers{one}
		return nil
	}
	var many []Offer
	if err := json.Unmarshal(data, &many); err != nil {
		return fmt.Errorf("offers: %w", err)
	}
	*o = many
	return nil
}

// Property is a schema.org PropertyValue.
type Property struct {
	Type  string `json:"@type,omitempty"`
	Name  string `json:"name"`
	Value any    `json:"value"`
}

// Item is a catalog item as published in itemListElement[].item.
type Item struct {
	Type               string          `json:"@type"`
	ID                 string          `json:"@id,omitempty"`
	Name               string          `json:"name,omitempty"`
	Description        string          `json:"description,omitempty"`
	Category           string          `json:"category,omitempty"`
	URL                string          `json:"url,omitempty"`
	Image              json.RawMessage `json:"image,omitempty"`
	Brand              *Brand          `json:"brand,omitempty"`
	Offers             Offers          `json:"offers,omitempty"`
	AdditionalProperty []Property      `json:"additionalProperty,omitempty"`
	VariantAttributes  map[string]any  `json:"variant_attributes,omitempty"`
	VariesBy           []string        `json:"variesBy,omitempty"`
}

// Decode parses a raw item payload.
func Decode(raw json.RawMessage) (Item, error) {
	var it Item
	if err := json.Unmarshal(raw, &it); err != nil {
		return Item{}, fmt.Errorf("decode item: %w", err)
	}
	return it, nil
}

// BrandName returns the brand name or "".
func (it *Item) BrandName() string {
	if it.Brand == nil {
		return ""
	}
	return it.Brand.Name
}

// Price returns the first offer price.
func (it *Item) Price() (float64, bool) {
	for _, o := range it.Offers {
		if o.Price != nil {
			return *o.Price, true
		}
	}
	return 0, false
}

// Availability returns the first offer availability, reduced to the last path
// segment of a schema.org URL ("https://schema.org/InStock" -> "InStock").
func (it *Item) Availability() string {
	for _, o := range it.Offers {
		if o.Availability == "" {
			continue
		}
		if i := strings.LastIndex(o.Availability, "/"); i >= 0 {
			return o.Availability[i+1:]
		}
		return o.Availability
	}
	return ""
}

// HasOffers reports whether the item carries at least one offer.
func (it *Item) HasOffers() bool { return len(it.Offers) > 0 }

// HasPriceWithin reports whether any offer price lies in [minPrice, maxPrice].
// Nil bounds are open.
func (it *Item) HasPriceWithin(minPrice, maxPrice *float64) bool {
	for _, o := range it.Offers {
		if o.Price == nil {
			continue
		}
		p := *o.Price
		if minPrice != nil && p < *minPrice {
			continue
		}
		if maxPrice != nil && p > *maxPrice {
			continue
		}
		return true
	}
	return false
}

// HasFeatures reports whether the item has additional or variant properties.
func (it *Item) HasFeatures() bool {
	return len(it.AdditionalProperty) > 0 || len(it.VariantAttributes) > 0 || len(it.VariesBy) > 0
}

// Features flattens additional properties, variant attributes and variesBy
// dimensions into "name: value" strings.
func (it *Item) Features() []string {
	var out []string
	for _, p := range it.AdditionalProperty {
		v := valueString(p.Value)
		if p.Name != "" && v != "" {
			out = append(out, p.Name+": "+v)
		}
	}
	for _, k := range sortedKeys(it.VariantAttributes) {
		v := valueString(it.VariantAttributes[k])
		if k != "" && v != "" {
			out = append(out, k+": "+v)
		}
	}
	if len(it.VariesBy) > 0 {
		out = append(out, "Varies by: "+strings.Join(it.VariesBy, ", "))
	}
	return out
}

// SearchText composes the text a filter pattern is matched against.
func (it *Item) SearchText() string {
	parts := []string{it.Name, it.Description, it.Category, it.BrandName()}
	for _, p := range it.AdditionalProperty {
		parts = append(parts, p.Name+" "+valueString(p.Value))
	}
	return strings.Join(parts, " ")
}

// VariantText returns "key value" pairs of variant attributes.
func (it *Item) VariantText() string {
	keys := sortedKeys(it.VariantAttributes)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+" "+valueString(it.VariantAttributes[k]))
	}
	return strings.Join(parts, " ")
}

// Label is the display key for the item in a comparison; position is 0-based.
func (it *Item) Label(position int) string {
	if it.Name == "" {
		return fmt.Sprintf("Product %d", position+1)
	}
	r := []rune(it.Name)
	if len(r) > maxLabelLen {
		return string(r[:maxLabelLen]) + "..."
	}
	return it.Name
}

func valueString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return fmt.Sprint(t)
	}
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Package catalog resolves product URNs to full catalog payloads.
package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/kailas-cloud/prodscout/internal/domain"
	"github.com/kailas-cloud/prodscout/internal/domain/product"
)

// FieldJSONLD holds a complete item payload; when present it wins over the flat fields.
const FieldJSONLD = "jsonld"

// hashStore is the consumer interface for the Redis catalog (ISP).
type hashStore interface {
	HGetAllMulti(ctx context.Context, keys []string) ([]map[string]string, error)
}

// Redis reads products stored as hashes under {prefix}{urn}.
type Redis struct {
	store     hashStore
	keyPrefix string
}

// NewRedis creates the hash-backed catalog.
func NewRedis(s hashStore, keyPrefix string) *Redis {
	return &Redis{store: s, keyPrefix: keyPrefix}
}

// GetByURNs fetches all URNs in one pipelined round-trip. Missing URNs are absent
// from the result.
func (r *Redis) GetByURNs(ctx context.Context, urns []string) (map[string]json.RawMessage, error) {
	out := make(map[string]json.RawMessage, len(urns))
	if len(urns) == 0 {
		return out, nil
	}

	keys := make([]string, len(urns))
	for i, urn := range urns {
		keys[i] = r.keyPrefix + urn
	}

	records, err := r.store.HGetAllMulti(ctx, keys)
	if err != nil {
		return nil, fmt.Errorf("catalog lookup: %w: %w", domain.ErrBackend, err)
	}

	for i, fields := range records {
		if i >= len(urns) || len(fields) == 0 {
			continue
		}
		raw, err := hashToItem(urns[i], fields)
		if err != nil {
			continue
		}
		out[urns[i]] = raw
	}
	return out, nil
}

func hashToItem(urn string, fields map[string]string) (json.RawMessage, error) {
	if doc := fields[FieldJSONLD]; doc != "" {
		if !json.Valid([]byte(doc)) {
			return nil, fmt.Errorf("invalid jsonld for %s", urn)
		}
		return json.RawMessage(doc), nil
	}

	it := product.Item{
		Type:        product.TypeProduct,
		ID:          urn,
		Name:        fields["name"],
		Description: fields["description"],
		Category:    fields["category"],
		URL:         fields["url"],
	}
	if t := fields["type"]; t != "" {
		it.Type = t
	}
	if img := fields["image"]; img != "" {
		it.Image, _ = json.Marshal(img)
	}
	if b := fields["brand"]; b != "" {
		it.Brand = &product.Brand{Type: "Brand", Name: b}
	}
	offer := product.Offer{
		Type:          "Offer",
		PriceCurrency: fields["currency"],
		Availability:  fields["availability"],
	}
	if p, err := strconv.ParseFloat(fields["price"], 64); err == nil {
		offer.Price = &p
	}
	if offer.Price != nil || offer.Availability != "" {
		it.Offers = product.Offers{offer}
	}

	raw, err := json.Marshal(it)
	if err != nil {
		return nil, fmt.Errorf("marshal %s: %w", urn, err)
	}
	return raw, nil
}

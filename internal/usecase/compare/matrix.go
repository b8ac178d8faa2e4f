package compare

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/kailas-cloud/prodscout/internal/domain/product"
	"github.com/kailas-cloud/prodscout/internal/domain/snapshot"
)

// Comparison aspects.
const (
	AspectPrice        = "price"
	AspectBrand        = "brand"
	AspectCategory     = "category"
	AspectFeatures     = "features"
	AspectAvailability = "availability"
	AspectName         = "name"
	AspectDescription  = "description"
)

// Synthetic matrix keys.
const (
	keyWinner  = "winner"
	keySummary = "summary"

	valueNA      = "N/A"
	valueUnknown = "Unknown"
	inStock      = "InStock"
)

var knownAspects = map[string]bool{
	AspectPrice:        true,
	AspectBrand:        true,
	AspectCategory:     true,
	AspectFeatures:     true,
	AspectAvailability: true,
	AspectName:         true,
	AspectDescription:  true,
}

// DetectAspects picks the aspects that carry information for items.
func DetectAspects(items []product.Item) []string {
	var aspects []string

	hasPrice, hasCategory, hasFeatures, hasAvailability := false, false, false, false
	brands := make(map[string]struct{})
	for i := range items {
		it := &items[i]
		if _, ok := it.Price(); ok {
			hasPrice = true
		}
		if b := it.BrandName(); b != "" {
			brands[b] = struct{}{}
		}
		hasCategory = hasCategory || it.Category != ""
		hasFeatures = hasFeatures || it.HasFeatures()
		hasAvailability = hasAvailability || it.Availability() != ""
	}

	if hasPrice {
		aspects = append(aspects, AspectPrice)
	}
	if len(brands) > 1 {
		aspects = append(aspects, AspectBrand)
	}
	if hasCategory {
		aspects = append(aspects, AspectCategory)
	}
	if hasFeatures {
		aspects = append(aspects, AspectFeatures)
	}
	if hasAvailability {
		aspects = append(aspects, AspectAvailability)
	}
	if len(aspects) == 0 {
		aspects = []string{AspectName, AspectDescription}
	}
	return aspects
}

// Labels returns the matrix key of each item. Labels that repeat, or that
// collide with the synthetic winner and summary keys, get a " (n)" suffix so
// no column is overwritten.
func Labels(items []product.Item) []string {
	out := make([]string, len(items))
	taken := map[string]bool{keyWinner: true, keySummary: true}
	for i := range items {
		base := items[i].Label(i)
		l := base
		for n := 2; taken[l]; n++ {
			l = fmt.Sprintf("%s (%d)", base, n)
		}
		taken[l] = true
		out[i] = l
	}
	return out
}

// BuildMatrix fills one row per aspect keyed by item label.
func BuildMatrix(items []product.Item, labels, aspects []string) snapshot.Matrix {
	m := make(snapshot.Matrix, len(aspects))
	for _, aspect := range aspects {
		row := make(map[string]any, len(items)+1)
		switch aspect {
		case AspectPrice:
			winner, best := "", 0.0
			for i := range items {
				p, ok := items[i].Price()
				if !ok {
					row[labels[i]] = valueNA
					continue
				}
				row[labels[i]] = p
				if winner == "" || p < best {
					winner, best = labels[i], p
				}
			}
			if winner != "" {
				row[keyWinner] = winner
			}
		case AspectFeatures:
			leader, most := "", -1
			for i := range items {
				f := items[i].Features()
				if f == nil {
					f = []string{}
				}
				row[labels[i]] = f
				if len(f) > most {
					leader, most = labels[i], len(f)
				}
			}
			if leader != "" {
				row[keySummary] = fmt.Sprintf("%s has the most features (%d)", leader, most)
			}
		default:
			for i := range items {
				row[labels[i]] = orUnknown(attribute(&items[i], aspect))
			}
		}
		m[aspect] = row
	}
	return m
}

func attribute(it *product.Item, aspect string) string {
	switch aspect {
	case AspectBrand:
		return it.BrandName()
	case AspectCategory:
		return it.Category
	case AspectAvailability:
		return it.Availability()
	case AspectName:
		return it.Name
	case AspectDescription:
		return it.Description
	}
	return ""
}

func orUnknown(s string) string {
	if s == "" {
		return valueUnknown
	}
	return s
}

// Narrative renders the matrix as a short templated paragraph.
func Narrative(labels []string, m snapshot.Matrix) string {
	parts := []string{
		fmt.Sprintf("Comparing %d products: %s.", len(labels), strings.Join(labels, ", ")),
	}

	if row, ok := m[AspectPrice]; ok {
		if winner, ok := row[keyWinner].(string); ok {
			var prices []string
			for _, l := range labels {
				if p, ok := row[l].(float64); ok {
					prices = append(prices, l+" at $"+formatPrice(p))
				}
			}
			parts = append(parts, fmt.Sprintf(
				"In terms of pricing, %s offers the best value. Price comparison: %s.",
				winner, strings.Join(prices, ", ")))
		}
	}

	if row, ok := m[AspectFeatures]; ok {
		if summary, ok := row[keySummary].(string); ok {
			parts = append(parts, fmt.Sprintf("For features, %s.", summary))
		}
	}

	if row, ok := m[AspectBrand]; ok {
		var brands []string
		seen := make(map[string]bool)
		for _, l := range labels {
			b, _ := row[l].(string)
			if !seen[b] {
				seen[b] = true
				brands = append(brands, b)
			}
		}
		if len(brands) > 1 {
			parts = append(parts, fmt.Sprintf("The products come from different brands: %s.", strings.Join(brands, ", ")))
		}
	}

	if row, ok := m[AspectAvailability]; ok {
		var stocked []string
		for _, l := range labels {
			if row[l] == inStock {
				stocked = append(stocked, l)
			}
		}
		if len(stocked) > 0 {
			parts = append(parts, fmt.Sprintf("Currently in stock: %s.", strings.Join(stocked, ", ")))
		}
	}

	return strings.Join(parts, " ")
}

func formatPrice(p float64) string {
	return strconv.FormatFloat(p, 'f', 2, 64)
}

// Recommend picks best value (features per unit price), premium (most
// features) and budget (lowest price) among items. Results are entries of
// indices; ties go to the earlier item.
func Recommend(items []product.Item, indices []int) snapshot.Recommendations {
	rec := snapshot.Recommendations{
		BestValue:     indices[0],
		PremiumChoice: indices[0],
		BudgetOption:  indices[0],
	}

	bestValue, mostFeatures := -1.0, -1
	cheapest, hasPrice := 0.0, false
	for i := range items {
		features := len(items[i].Features())
		price, ok := items[i].Price()

		value := float64(features)
		if ok && price > 0 {
			value = float64(features) / price
		}
		if value > bestValue {
			bestValue, rec.BestValue = value, indices[i]
		}
		if features > mostFeatures {
			mostFeatures, rec.PremiumChoice = features, indices[i]
		}
		if ok && (!hasPrice || price < cheapest) {
			cheapest, hasPrice, rec.BudgetOption = price, true, indices[i]
		}
	}
	return rec
}

// Package index adapts the dense and sparse product indexes to hit lists.
// Each backend answers one query with up to topK hits ordered best first.
package index

import (
	"strconv"

	"github.com/kailas-cloud/prodscout/internal/domain/hit"
)

// returnFields are the display fields every backend tries to surface as hit metadata.
var returnFields = []string{
	hit.MetaName,
	hit.MetaBrand,
	hit.MetaCategory,
	hit.MetaPrice,
	hit.MetaCurrency,
	hit.MetaURL,
}

// metadataFromFields keeps the known display fields. Price is parsed as a number
// and dropped when it does not parse.
func metadataFromFields(fields map[string]string) map[string]any {
	meta := make(map[string]any, len(returnFields))
	for _, k := range returnFields {
		v, ok := fields[k]
		if !ok || v == "" {
			continue
		}
		if k == hit.MetaPrice {
			if f, err := strconv.ParseFloat(v, 64); err == nil {
				meta[k] = f
			}
			continue
		}
		meta[k] = v
	}
	return meta
}

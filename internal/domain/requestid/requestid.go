// Package requestid generates and validates short session identifiers.
package requestid

import "math/rand/v2"

// Length is the number of characters in a request id.
const Length = 6

const alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// Generate returns a random id drawn uniformly from [A-Z0-9]{6}.
// Uniqueness is probabilistic: 36^6 ids against a 15 minute lifetime.
func Generate() string {
	b := make([]byte, Length)
	for i := range b {
		b[i] = alphabet[rand.IntN(len(alphabet))] //nolint:gosec // ids are opaque handles, not secrets
	}
	return string(b)
}

// Validate reports whether id is exactly six characters from [A-Z0-9].
func Validate(id string) bool {
	if len(id) != Length {
		return false
	}
	for i := 0; i < len(id); i++ {
		c := id[i]
		if (c < 'A' || c > 'Z') && (c < '0' || c > '9') {
			return false
		}
	}
	return true
}

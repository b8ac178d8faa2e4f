package domain

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	// ErrValidation signals a malformed request rejected before any backend call.
	ErrValidation = errors.New("validation failed")
	// ErrNotFound signals a missing snapshot or catalog item.
	ErrNotFound = errors.New("not found")
	// ErrBackend signals an index or catalog backend failure.
	ErrBackend = errors.New("backend unavailable")
	// ErrRateLimited signals a rate limit or quota hit on a backend.
	ErrRateLimited = errors.New("rate limited")
	// ErrCacheUnavailable signals a session cache failure. Never returned to HTTP callers.
	ErrCacheUnavailable = errors.New("cache unavailable")
	// ErrEmbeddingProviderError signals an embedding provider failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
)

// Validation reasons reported to callers.
const (
	ReasonInvalidRequestID = "invalid_request_id"
	ReasonValidationFailed = "validation_failed"
	ReasonMissingCriteria  = "missing_filter_criteria"
	ReasonInvalidPrice     = "invalid_price_range"
	ReasonTooFewItems      = "too_few_items"
	ReasonTooManyItems     = "too_many_items"
	ReasonIndexOutOfRange  = "index_out_of_range"
	ReasonDuplicateIndices = "duplicate_indices"
	ReasonDuplicateURNs    = "duplicate_urns"
	ReasonInvalidURN       = "invalid_urn"
	ReasonInvalidQuery     = "invalid_query"
)

// ValidationError carries a machine-checkable reason and, for range failures,
// the valid index range so a client can correct itself.
type ValidationError struct {
	Reason         string
	Message        string
	AvailableRange []int
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s: %s", ErrValidation.Error(), e.Reason, e.Message)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// NewValidation creates a validation error.
func NewValidation(reason, message string) error {
	return &ValidationError{Reason: reason, Message: message}
}

// NewIndexOutOfRange reports indices outside [0, size-1].
func NewIndexOutOfRange(bad []int, size int) error {
	return &ValidationError{
		Reason:         ReasonIndexOutOfRange,
		Message:        fmt.Sprintf("Indices %s are out of range. Available products: 0-%d", formatInts(bad), size-1),
		AvailableRange: []int{0, size - 1},
	}
}

// NotFoundError wraps ErrNotFound with a message that is safe to show to clients.
type NotFoundError struct {
	Message string
}

func (e *NotFoundError) Error() string { return ErrNotFound.Error() + ": " + e.Message }

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// NewNotFound creates a not found error.
func NewNotFound(message string) error {
	return &NotFoundError{Message: message}
}

func formatInts(v []int) string {
	parts := make([]string, len(v))
	for i, n := range v {
		parts[i] = strconv.Itoa(n)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

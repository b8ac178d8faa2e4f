package chi

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/kailas-cloud/prodscout/internal/domain"
)

// FilterRequest is the body of POST /filter.
type FilterRequest struct {
	RequestID      string   `json:"request_id"`
	FilterCriteria *string  `json:"filter_criteria,omitempty" validate:"omitempty,max=200"`
	MinPrice       *float64 `json:"min_price,omitempty"`
	MaxPrice       *float64 `json:"max_price,omitempty"`
	Limit          *int     `json:"limit,omitempty" validate:"omitempty,min=1,max=100"`
}

// CompareRequest is the body of POST /compare.
type CompareRequest struct {
	RequestID         string   `json:"request_id"`
	Indices           []int    `json:"indices"`
	ComparisonAspects []string `json:"comparison_aspects,omitempty" validate:"omitempty,max=10,dive,required"`
	Format            string   `json:"format,omitempty" validate:"omitempty,oneof=table narrative pros_cons"`
}

// CompareProductsRequest is the body of POST /compare/products.
type CompareProductsRequest struct {
	URNs              []string `json:"urns"`
	RequestID         *string  `json:"request_id,omitempty"`
	ComparisonAspects []string `json:"comparison_aspects,omitempty" validate:"omitempty,max=10,dive,required"`
	Format            string   `json:"format,omitempty" validate:"omitempty,oneof=table narrative pros_cons"`
}

// ErrorResponse is the error body of every endpoint.
type ErrorResponse struct {
	Code           string `json:"code"`
	Message        string `json:"message"`
	AvailableRange []int  `json:"available_range,omitempty"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// validateBody runs struct tag validation and reports the first failing
// field as a validation_failed domain error.
func validateBody(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !asValidationErrors(err, &verrs) || len(verrs) == 0 {
		return domain.NewValidation(domain.ReasonValidationFailed, "Invalid request body")
	}
	fe := verrs[0]
	field := jsonFieldName(fe.Namespace())
	switch fe.Tag() {
	case "required":
		return domain.NewValidation(domain.ReasonValidationFailed, field+" is required")
	case "oneof":
		return domain.NewValidation(domain.ReasonValidationFailed,
			fmt.Sprintf("%s must be one of: %s", field, strings.ReplaceAll(fe.Param(), " ", ", ")))
	case "min", "max":
		return domain.NewValidation(domain.ReasonValidationFailed,
			fmt.Sprintf("%s violates %s=%s", field, fe.Tag(), fe.Param()))
	default:
		return domain.NewValidation(domain.ReasonValidationFailed, field+" is invalid")
	}
}

func asValidationErrors(err error, target *validator.ValidationErrors) bool {
	verrs, ok := err.(validator.ValidationErrors) //nolint:errorlint // validator returns the concrete type
	if ok {
		*target = verrs
	}
	return ok
}

// jsonFieldName maps "CompareRequest.ComparisonAspects[0]" to "comparison_aspects[0]".
func jsonFieldName(ns string) string {
	if _, rest, ok := strings.Cut(ns, "."); ok {
		ns = rest
	}
	idx := ""
	if i := strings.IndexByte(ns, '['); i >= 0 {
		ns, idx = ns[:i], ns[i:]
	}
	return fieldNames[ns] + idx
}

var fieldNames = map[string]string{
	"RequestID":         "request_id",
	"FilterCriteria":    "filter_criteria",
	"MinPrice":          "min_price",
	"MaxPrice":          "max_price",
	"Limit":             "limit",
	"Indices":           "indices",
	"URNs":              "urns",
	"ComparisonAspects": "comparison_aspects",
	"Format":            "format",
}

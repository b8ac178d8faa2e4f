// Package chi exposes the search pipeline over HTTP.
package chi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	gochi "github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/runtime"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kailas-cloud/prodscout/internal/domain"
	"github.com/kailas-cloud/prodscout/internal/domain/requestid"
	"github.com/kailas-cloud/prodscout/internal/domain/snapshot"
	compareuc "github.com/kailas-cloud/prodscout/internal/usecase/compare"
	filteruc "github.com/kailas-cloud/prodscout/internal/usecase/filter"
	healthuc "github.com/kailas-cloud/prodscout/internal/usecase/health"
	searchuc "github.com/kailas-cloud/prodscout/internal/usecase/search"
	"github.com/kailas-cloud/prodscout/internal/usecase/session"
)

// maxBodyBytes caps JSON request bodies.
const maxBodyBytes = 1 << 20

// Server holds the HTTP handlers.
type Server struct {
	search        *searchuc.Service
	filter        *filteruc.Service
	compare       *compareuc.Service
	sessions      *session.Store
	health        *healthuc.Service
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(
	search *searchuc.Service,
	filter *filteruc.Service,
	compare *compareuc.Service,
	sessions *session.Store,
	health *healthuc.Service,
) *Server {
	return &Server{
		search:        search,
		filter:        filter,
		compare:       compare,
		sessions:      sessions,
		health:        health,
		errorHandlers: defaultErrorHandlers(),
	}
}

// Routes registers every endpoint on r.
func (s *Server) Routes(r gochi.Router) {
	r.Get("/search", s.Search)
	r.Get("/cache/{request_id}", s.GetCached)
	r.Get("/v1/cache/{request_id}", s.GetCached)
	r.Post("/filter", s.Filter)
	r.Post("/compare", s.Compare)
	r.Post("/compare/products", s.CompareProducts)
	r.Get("/health", s.HealthCheck)
	r.Handle("/metrics", promhttp.Handler())
	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, codeNotFound, "Route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, codeBadRequest, "Method not allowed")
	})
}

// Handler returns a router with all routes mounted.
func (s *Server) Handler() http.Handler {
	r := gochi.NewRouter()
	s.Routes(r)
	return r
}

// Search handles GET /search?q=&limit=&skip=&category=&price_max=.
func (s *Server) Search(w http.ResponseWriter, r *http.Request) {
	params := r.URL.Query()
	q := searchuc.Query{Text: params.Get("q")}

	var priceMax *float64
	binds := []struct {
		name string
		dest any
	}{
		{"limit", &q.Limit},
		{"skip", &q.Skip},
		{"category", &q.Filters.Category},
		{"price_max", &priceMax},
	}
	for _, b := range binds {
		if err := runtime.BindQueryParameter("form", true, false, b.name, params, b.dest); err != nil {
			writeError(w, http.StatusBadRequest, domain.ReasonValidationFailed,
				"Invalid format for parameter "+b.name)
			return
		}
	}
	q.Filters.PriceMax = priceMax

	list, err := s.search.Search(r.Context(), q)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// GetCached handles GET /cache/{request_id}. The stored payload is returned verbatim.
func (s *Server) GetCached(w http.ResponseWriter, r *http.Request) {
	var id string
	err := runtime.BindStyledParameterWithOptions("simple", "request_id", gochi.URLParam(r, "request_id"), &id,
		runtime.BindStyledParameterOptions{ParamLocation: runtime.ParamLocationPath, Explode: false, Required: true})
	if err != nil || !requestid.Validate(id) {
		writeError(w, http.StatusBadRequest, domain.ReasonInvalidRequestID, "Invalid request ID format")
		return
	}

	data, _, err := s.sessions.Lookup(r.Context(), id, snapshot.RetrievalPrefixes...)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			s.handleDomainError(w, r, domain.NewNotFound("Cached response not found"))
			return
		}
		s.handleDomainError(w, r, err)
		return
	}
	writeRawJSON(w, http.StatusOK, data)
}

// Filter handles POST /filter.
func (s *Server) Filter(w http.ResponseWriter, r *http.Request) {
	var req FilterRequest
	if !s.decode(w, r, &req) {
		return
	}

	list, err := s.filter.Filter(r.Context(), req.RequestID, filteruc.Criteria{
		Pattern:  req.FilterCriteria,
		MinPrice: req.MinPrice,
		MaxPrice: req.MaxPrice,
		Limit:    req.Limit,
	})
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// Compare handles POST /compare.
func (s *Server) Compare(w http.ResponseWriter, r *http.Request) {
	var req CompareRequest
	if !s.decode(w, r, &req) {
		return
	}

	cmp, err := s.compare.CompareByIndices(r.Context(), req.RequestID, req.Indices, compareuc.Options{
		Aspects: req.ComparisonAspects,
		Format:  req.Format,
	})
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cmp)
}

// CompareProducts handles POST /compare/products.
func (s *Server) CompareProducts(w http.ResponseWriter, r *http.Request) {
	var req CompareProductsRequest
	if !s.decode(w, r, &req) {
		return
	}

	sourceID := ""
	if req.RequestID != nil {
		sourceID = *req.RequestID
	}
	cmp, err := s.compare.CompareByURNs(r.Context(), req.URNs, sourceID, compareuc.Options{
		Aspects: req.ComparisonAspects,
		Format:  req.Format,
	})
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cmp)
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, HealthResponse{
		Status: string(report.Status),
		Checks: checks,
	})
}

// decode reads a JSON body into v and validates its tags. On failure the
// error response is written and false is returned.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, msgInvalidBodyPrefix+err.Error())
		return false
	}
	if err := validateBody(v); err != nil {
		s.handleDomainError(w, r, err)
		return false
	}
	return true
}

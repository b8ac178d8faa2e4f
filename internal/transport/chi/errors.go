package chi

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/kailas-cloud/prodscout/internal/domain"
	"github.com/kailas-cloud/prodscout/internal/logger"
)

// Error codes not carried by domain.ValidationError.
const (
	codeNotFound         = "not_found"
	codeEmbeddingError   = "embedding_provider_error"
	codeBackendError     = "backend_unavailable"
	codeInternalError    = "internal_error"
	codeBadRequest       = "bad_request"
	msgInternalError     = "internal error"
	msgBackendError      = "Search backend unavailable"
	msgEmbeddingError    = "Embedding provider unavailable"
	msgDefaultNotFound   = "Resource not found"
	msgInvalidBodyPrefix = "Invalid request body: "
)

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error) bool

func defaultErrorHandlers() []errorHandler {
	return []errorHandler{
		validationHandler,
		notFoundHandler,
		sentinelHandler(domain.ErrEmbeddingProviderError, http.StatusBadGateway, codeEmbeddingError, msgEmbeddingError),
		sentinelHandler(domain.ErrBackend, http.StatusBadGateway, codeBackendError, msgBackendError),
	}
}

// validationHandler maps domain.ValidationError to 400 with its reason code and,
// for out-of-range selections, the valid index range.
func validationHandler(w http.ResponseWriter, err error) bool {
	var ve *domain.ValidationError
	if !errors.As(err, &ve) {
		return false
	}
	writeJSON(w, http.StatusBadRequest, ErrorResponse{
		Code:           ve.Reason,
		Message:        ve.Message,
		AvailableRange: ve.AvailableRange,
	})
	return true
}

func notFoundHandler(w http.ResponseWriter, err error) bool {
	if !errors.Is(err, domain.ErrNotFound) {
		return false
	}
	msg := msgDefaultNotFound
	var nf *domain.NotFoundError
	if errors.As(err, &nf) {
		msg = nf.Message
	}
	writeError(w, http.StatusNotFound, codeNotFound, msg)
	return true
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
// The client sees msg; the cause stays in the logs.
func sentinelHandler(sentinel error, status int, code, msg string) errorHandler {
	return func(w http.ResponseWriter, err error) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, r *http.Request, err error) {
	log := logger.FromContext(r.Context())
	if errors.Is(err, domain.ErrValidation) || errors.Is(err, domain.ErrNotFound) {
		log.Info("request rejected", zap.Error(err))
	} else {
		log.Warn("domain error", zap.Error(err))
	}
	for _, h := range s.errorHandlers {
		if h(w, err) {
			return
		}
	}
	log.Error("unhandled error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, codeInternalError, msgInternalError)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeRawJSON(w http.ResponseWriter, status int, data []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, ErrorResponse{Code: code, Message: message})
}

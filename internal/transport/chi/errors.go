package chi

import (
	"errors"
	"net/http"

	"github.com/kailas-cloud/kbsearch/internal/domain"
)

// ErrorCode is the machine-readable error identifier in API responses.
type ErrorCode string

// Error codes.
const (
	CodeBadRequest           ErrorCode = "bad_request"
	CodeUnauthorized         ErrorCode = "unauthorized"
	CodeNotFound             ErrorCode = "not_found"
	CodeInvalidQuery         ErrorCode = "invalid_query"
	CodeEmbeddingUnavailable ErrorCode = "embedding_unavailable"
	CodeRetrievalUnavailable ErrorCode = "retrieval_unavailable"
	CodeRetrievalTimeout     ErrorCode = "retrieval_timeout"
	CodePayloadFormat        ErrorCode = "payload_format_error"
	CodeCanceled             ErrorCode = "canceled"
	CodeInternalError        ErrorCode = "internal_error"
)

// statusClientClosedRequest is the nginx convention for requests the client abandoned.
const statusClientClosedRequest = 499

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Timeout is checked first: a deadline hit inside a field search also carries ErrRetrievalService.
func defaultErrorHandlers() []errorHandler {
	return []errorHandler{
		sentinelHandler(domain.ErrRetrievalTimeout, http.StatusGatewayTimeout, CodeRetrievalTimeout),
		sentinelHandler(domain.ErrInvalidQuery, http.StatusBadRequest, CodeInvalidQuery),
		sentinelHandler(domain.ErrEmbeddingService, http.StatusBadGateway, CodeEmbeddingUnavailable),
		sentinelHandler(domain.ErrRetrievalService, http.StatusBadGateway, CodeRetrievalUnavailable),
		sentinelHandler(domain.ErrPayloadFormat, http.StatusInternalServerError, CodePayloadFormat),
	}
}

// safeDomainMessage returns a sentinel error message for the client without exposing internals.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrRetrievalTimeout,
		domain.ErrInvalidQuery,
		domain.ErrEmbeddingService,
		domain.ErrRetrievalService,
		domain.ErrPayloadFormat,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code ErrorCode) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

func writeError(w http.ResponseWriter, status int, code ErrorCode, message string) {
	writeJSON(w, status, ErrorResponse{Code: code, Message: message})
}

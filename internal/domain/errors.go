package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidQuery signals an empty or whitespace-only query. Not retryable.
	ErrInvalidQuery = errors.New("invalid query")
	// ErrEmbeddingService signals an embedding provider failure.
	ErrEmbeddingService = errors.New("embedding service error")
	// ErrRetrievalService signals a vector index failure.
	ErrRetrievalService = errors.New("retrieval service error")
	// ErrRetrievalTimeout signals that the retrieval deadline elapsed before all searches returned.
	ErrRetrievalTimeout = errors.New("retrieval timeout")
	// ErrPayloadFormat signals a malformed payload stored in the index.
	ErrPayloadFormat = errors.New("payload format error")
	// ErrInvalidRequest signals a malformed internal request (bad field, non-positive limit).
	ErrInvalidRequest = errors.New("invalid request")
)

// PayloadFormatError wraps ErrPayloadFormat with the offending payload attribute.
type PayloadFormatError struct {
	Field string
	Type  string
}

func (e *PayloadFormatError) Error() string {
	return fmt.Sprintf("%s: field %q has type %s, want string", ErrPayloadFormat.Error(), e.Field, e.Type)
}

func (e *PayloadFormatError) Unwrap() error { return ErrPayloadFormat }

// NewPayloadFormat creates a payload format error for a field holding a value of type typ.
func NewPayloadFormat(field, typ string) error {
	return &PayloadFormatError{Field: field, Type: typ}
}

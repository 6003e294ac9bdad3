package kbsearch

import "github.com/kailas-cloud/kbsearch/internal/domain"

// Sentinel errors re-exported from the domain layer.
// Use errors.Is() to check.
var (
	ErrInvalidQuery     = domain.ErrInvalidQuery
	ErrEmbeddingService = domain.ErrEmbeddingService
	ErrRetrievalService = domain.ErrRetrievalService
	ErrRetrievalTimeout = domain.ErrRetrievalTimeout
	ErrPayloadFormat    = domain.ErrPayloadFormat
)

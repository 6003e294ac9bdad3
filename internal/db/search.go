package db

import "github.com/kailas-cloud/kbsearch/internal/domain/search/filter"

// FieldQuery is the input for a similarity search over one named vector.
type FieldQuery struct {
	Collection    string
	VectorName    string
	Vector        []float32
	Filter        filter.Match
	Limit         int
	WithPayload   bool
	PayloadFields []string // empty means every attribute
}

// SearchResult is the output of a search operation.
type SearchResult struct {
	Entries []SearchEntry
}

// SearchEntry is a single hit. Score is a similarity (higher is better).
type SearchEntry struct {
	ID      string
	Score   float64
	Payload map[string]any
}

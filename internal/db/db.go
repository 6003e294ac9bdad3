package db

import (
	"context"
	"time"
)

// Store is the vector index facade used by the engine. It is read-only:
// entries are written by an external ingestion pipeline.
type Store interface {
	Pinger
	FieldSearcher
	Close()
	WaitForReady(ctx context.Context, timeout time.Duration) error
}

// Pinger checks index connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// FieldSearcher runs a similarity query against one named vector space.
type FieldSearcher interface {
	SearchField(ctx context.Context, q *FieldQuery) (*SearchResult, error)
}

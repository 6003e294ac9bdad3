package db

import "errors"

// Sentinel errors for index operations.
var (
	ErrCollectionNotFound = errors.New("db: collection not found")
	ErrInvalidQuery       = errors.New("db: invalid query")
)

// Op names for error context.
const (
	OpSearch = "search"
	OpPing   = "ping"
)

// Error wraps an underlying error with the operation name for diagnostics.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string { return e.Op + ": " + e.Err.Error() }
func (e *Error) Unwrap() error { return e.Err }

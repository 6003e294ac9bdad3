package qdrant

// NewStoreForTest creates a Store over the provided RPC clients (test-only).
func NewStoreForTest(points pointsSearcher, health healthChecker) *Store {
	return &Store{points: points, health: health}
}

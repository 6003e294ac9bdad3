package result

import (
	"fmt"

	"github.com/kailas-cloud/kbsearch/internal/domain"
	"github.com/kailas-cloud/kbsearch/internal/domain/search/field"
)

// Payload holds the non-vector attributes of an entry exactly as the index returned them.
type Payload map[string]any

// StringField returns the string stored under key.
// Missing or null values yield "". Any other type is a format error.
func (p Payload) StringField(key string) (string, error) {
	v, ok := p[key]
	if !ok || v == nil {
		return "", nil
	}
	s, ok := v.(string)
	if !ok {
		return "", domain.NewPayloadFormat(key, fmt.Sprintf("%T", v))
	}
	return s, nil
}

// Candidate is a single hit from one field search.
type Candidate struct {
	id      string
	field   field.Field
	score   float64
	payload Payload
}

// NewCandidate creates a field search hit.
func NewCandidate(id string, f field.Field, score float64, payload Payload) Candidate {
	return Candidate{id: id, field: f, score: score, payload: payload}
}

// ID returns the entry identifier.
func (c *Candidate) ID() string { return c.id }

// Field returns the vector field the hit came from.
func (c *Candidate) Field() field.Field { return c.field }

// Score returns the raw similarity score in the index's native range.
func (c *Candidate) Score() float64 { return c.score }

// Payload returns the entry payload.
func (c *Candidate) Payload() Payload { return c.payload }

// Ranked is a fused hit. Its ID is unique within one ranking.
type Ranked struct {
	id      string
	score   float64
	payload Payload
}

// NewRanked creates a fused hit.
func NewRanked(id string, score float64, payload Payload) Ranked {
	return Ranked{id: id, score: score, payload: payload}
}

// ID returns the entry identifier.
func (r *Ranked) ID() string { return r.id }

// Score returns the fused score.
func (r *Ranked) Score() float64 { return r.score }

// Payload returns the entry payload.
func (r *Ranked) Payload() Payload { return r.payload }

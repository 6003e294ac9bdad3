// Package knowledge turns fused search hits into presentation-ready records.
package knowledge

import (
	"fmt"
	"strings"

	"github.com/kailas-cloud/kbsearch/internal/domain/search/result"
)

// Payload attribute names shared by every index backend.
const (
	PayloadTitle   = "title"
	PayloadSummary = "summary"
	PayloadText    = "text"
)

// Text markers written by the ingestion pipeline.
const (
	NewlineToken   = "<n>"
	EmphasisMarker = "*"
	Bullet         = "•"
)

// PayloadFields lists the attributes an index must return for assembly.
func PayloadFields() []string {
	return []string{PayloadTitle, PayloadSummary, PayloadText}
}

// Record is a single retrieved passage ready for a grounding context.
type Record struct {
	ID      string  `json:"id"`
	Score   float64 `json:"score"`
	Title   string  `json:"title"`
	Summary string  `json:"summary"`
	Text    string  `json:"text"`
}

var normalizer = strings.NewReplacer(
	NewlineToken, "\n",
	EmphasisMarker, Bullet,
)

// Normalize expands newline tokens and rewrites emphasis markers as bullets.
// No other characters change.
func Normalize(s string) string {
	return normalizer.Replace(s)
}

// Assemble maps ranked hits to records, preserving order.
// Missing or null payload attributes become "". A non-string attribute fails with
// domain.ErrPayloadFormat.
func Assemble(ranked []result.Ranked) ([]Record, error) {
	records := make([]Record, 0, len(ranked))
	for i := range ranked {
		rec, err := assembleOne(&ranked[i])
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}

func assembleOne(r *result.Ranked) (Record, error) {
	p := r.Payload()

	title, err := p.StringField(PayloadTitle)
	if err != nil {
		return Record{}, fmt.Errorf("entry %s: %w", r.ID(), err)
	}
	summary, err := p.StringField(PayloadSummary)
	if err != nil {
		return Record{}, fmt.Errorf("entry %s: %w", r.ID(), err)
	}
	text, err := p.StringField(PayloadText)
	if err != nil {
		return Record{}, fmt.Errorf("entry %s: %w", r.ID(), err)
	}

	return Record{
		ID:      r.ID(),
		Score:   r.Score(),
		Title:   title,
		Summary: Normalize(summary),
		Text:    Normalize(text),
	}, nil
}

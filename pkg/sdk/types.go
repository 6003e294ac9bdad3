package kbsearch

import "github.com/kailas-cloud/kbsearch/internal/domain/knowledge"

// Strategy selects how per-field results are fused.
type Strategy string

// Strategy constants.
const (
	// StrategyWeighted sums weighted scores from three unfiltered field searches.
	StrategyWeighted Strategy = "weighted"
	// StrategyCascade narrows title -> summary -> chunk with payload filters.
	StrategyCascade Strategy = "cascade"
)

// Record is a retrieved passage with normalized text.
type Record struct {
	ID      string
	Score   float64
	Title   string
	Summary string
	Text    string
}

// Weights are the per-field multipliers for StrategyWeighted.
type Weights struct {
	Title   float64
	Summary float64
	Chunk   float64
}

func fromRecords(rs []knowledge.Record) []Record {
	out := make([]Record, len(rs))
	for i, r := range rs {
		out[i] = Record{ID: r.ID, Score: r.Score, Title: r.Title, Summary: r.Summary, Text: r.Text}
	}
	return out
}

func toRecords(rs []Record) []knowledge.Record {
	out := make([]knowledge.Record, len(rs))
	for i, r := range rs {
		out[i] = knowledge.Record{ID: r.ID, Score: r.Score, Title: r.Title, Summary: r.Summary, Text: r.Text}
	}
	return out
}

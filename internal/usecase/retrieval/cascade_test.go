package retrieval

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"testing"

	"github.com/kailas-cloud/kbsearch/internal/domain"
	"github.com/kailas-cloud/kbsearch/internal/domain/search/field"
	"github.com/kailas-cloud/kbsearch/internal/domain/search/result"
	"github.com/kailas-cloud/kbsearch/internal/domain/search/strategy"
)

func funnelSearcher() *mockSearcher {
	ms := newMockSearcher()
	ms.byField[field.Title] = []result.Candidate{
		cand("t1", field.Title, 0.9, "title", "A"),
		cand("t2", field.Title, 0.8, "title", "C"),
		cand("t3", field.Title, 0.7, "title", "A"),
		cand("t4", field.Title, 0.6, "title", "B"),
	}
	ms.byFilter[filterKey(field.Summary, "A")] = []result.Candidate{
		cand("s1", field.Summary, 0.9, "summary", "S1"),
		cand("s2", field.Summary, 0.8, "summary", "S2"),
		cand("s3", field.Summary, 0.5, "summary", "S3"),
	}
	ms.byFilter[filterKey(field.Summary, "B")] = []result.Candidate{
		cand("s7", field.Summary, 0.99, "summary", "S7"),
	}
	ms.byFilter[filterKey(field.Summary, "C")] = []result.Candidate{
		cand("s4", field.Summary, 0.7, "summary", "S4"),
		cand("s5", field.Summary, 0.6, "summary", "S5"),
		cand("s6", field.Summary, 0.1, "summary", "S6"),
	}
	ms.byFilter[filterKey(field.Chunk, "S1")] = []result.Candidate{cand("c1", field.Chunk, 0.4, "text", "one")}
	ms.byFilter[filterKey(field.Chunk, "S2")] = []result.Candidate{cand("c2", field.Chunk, 0.9, "text", "two")}
	ms.byFilter[filterKey(field.Chunk, "S3")] = []result.Candidate{cand("c1", field.Chunk, 0.6, "text", "one")}
	ms.byFilter[filterKey(field.Chunk, "S4")] = []result.Candidate{cand("c4", field.Chunk, 0.3, "text", "four")}
	ms.byFilter[filterKey(field.Chunk, "S5")] = []result.Candidate{cand("c5", field.Chunk, 0.2, "text", "five")}
	ms.byFilter[filterKey(field.Chunk, "S6")] = []result.Candidate{cand("c6", field.Chunk, 0.95, "text", "six")}
	return ms
}

func TestCascadeRanker_Funnel(t *testing.T) {
	ms := funnelSearcher()
	r := NewCascadeRanker(ms, DefaultCascadeConfig())
	if r.Strategy() != strategy.Cascade {
		t.Errorf("strategy = %s", r.Strategy())
	}

	got, err := r.Rank(context.Background(), []float32{0.1})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !slices.Equal(ids(got), []string{"c2", "c1"}) {
		t.Errorf("order = %v, want [c2 c1]", ids(got))
	}
	if !approx(got[1].Score(), 0.6) {
		t.Errorf("expected dedupe to keep the highest raw score 0.6, got %f", got[1].Score())
	}

	title := ms.callsFor(field.Title)
	if len(title) != 1 || title[0].limit != 3 || !title[0].match.IsEmpty() {
		t.Errorf("unexpected title calls: %+v", title)
	}

	summary := ms.callsFor(field.Summary)
	var titleFilters []string
	for _, c := range summary {
		if c.limit != 3 || c.match.Key() != "title" {
			t.Errorf("unexpected summary call: %+v", c)
		}
		titleFilters = append(titleFilters, c.match.Value())
	}
	slices.Sort(titleFilters)
	// t4 ("B") ranks below the title limit and is never expanded.
	if !slices.Equal(titleFilters, []string{"A", "C"}) {
		t.Errorf("summary filters = %v, want distinct titles [A C]", titleFilters)
	}

	// 6 unique summaries come back; only the top 5 feed the chunk stage.
	chunk := ms.callsFor(field.Chunk)
	if len(chunk) != 5 {
		t.Fatalf("expected 5 chunk searches, got %d", len(chunk))
	}
	for _, c := range chunk {
		if c.limit != 1 || c.match.Key() != "summary" {
			t.Errorf("unexpected chunk call: %+v", c)
		}
		if c.match.Value() == "S6" || c.match.Value() == "S7" {
			t.Errorf("summary %s outside the keep limit reached the chunk stage", c.match.Value())
		}
	}
}

func TestCascadeRanker_OutputBounded(t *testing.T) {
	ms := funnelSearcher()
	cfg := DefaultCascadeConfig()
	cfg.ChunkLimit = 3

	got, err := NewCascadeRanker(ms, cfg).Rank(context.Background(), []float32{0.1})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) > 2 {
		t.Errorf("expected at most 2 results, got %d", len(got))
	}
	seen := map[string]bool{}
	for _, id := range ids(got) {
		if seen[id] {
			t.Errorf("duplicate id %s", id)
		}
		seen[id] = true
	}
}

func TestCascadeRanker_EmptyTitleStage(t *testing.T) {
	ms := newMockSearcher()

	got, err := NewCascadeRanker(ms, DefaultCascadeConfig()).Rank(context.Background(), []float32{0.1})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if got == nil || len(got) != 0 {
		t.Errorf("expected empty result, got %v", got)
	}
	if n := len(ms.callsFor(field.Summary)) + len(ms.callsFor(field.Chunk)); n != 0 {
		t.Errorf("expected no further searches, got %d", n)
	}
}

func TestCascadeRanker_BlankTitlesSkipped(t *testing.T) {
	ms := newMockSearcher()
	ms.byField[field.Title] = []result.Candidate{
		cand("t1", field.Title, 0.9, "title", ""),
		cand("t2", field.Title, 0.8),
		cand("t3", field.Title, 0.7, "title", nil),
	}

	got, err := NewCascadeRanker(ms, DefaultCascadeConfig()).Rank(context.Background(), []float32{0.1})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("expected empty result, got %v", ids(got))
	}
	if n := len(ms.callsFor(field.Summary)); n != 0 {
		t.Errorf("blank titles must not become filters, got %d summary calls", n)
	}
}

func TestCascadeRanker_NonStringFilterValue(t *testing.T) {
	ms := newMockSearcher()
	ms.byField[field.Title] = []result.Candidate{cand("t1", field.Title, 0.9, "title", 42)}

	_, err := NewCascadeRanker(ms, DefaultCascadeConfig()).Rank(context.Background(), []float32{0.1})
	if !errors.Is(err, domain.ErrPayloadFormat) {
		t.Errorf("expected ErrPayloadFormat, got %v", err)
	}
}

func TestCascadeRanker_StageFailureAborts(t *testing.T) {
	ms := funnelSearcher()
	ms.errs[field.Chunk] = fmt.Errorf("search chunk: %w", domain.ErrRetrievalService)

	_, err := NewCascadeRanker(ms, DefaultCascadeConfig()).Rank(context.Background(), []float32{0.1})
	if !errors.Is(err, domain.ErrRetrievalService) {
		t.Errorf("expected ErrRetrievalService, got %v", err)
	}
}

func TestDedupe_KeepsHighestThenFirstSeen(t *testing.T) {
	in := []result.Candidate{
		cand("a", field.Summary, 0.5, "summary", "first"),
		cand("b", field.Summary, 0.7),
		cand("a", field.Summary, 0.5, "summary", "second"),
		cand("b", field.Summary, 0.9),
	}
	got := dedupe(in)
	if len(got) != 2 {
		t.Fatalf("expected 2 unique, got %d", len(got))
	}
	if got[0].ID() != "b" || !approx(got[0].Score(), 0.9) {
		t.Errorf("expected b with 0.9 first, got %s %f", got[0].ID(), got[0].Score())
	}
	if s, _ := got[1].Payload().StringField("summary"); s != "first" {
		t.Errorf("expected first-seen payload on tie, got %q", s)
	}
}

func TestDistinctValues(t *testing.T) {
	in := []result.Candidate{
		cand("1", field.Title, 0.9, "title", "B"),
		cand("2", field.Title, 0.8, "title", "A"),
		cand("3", field.Title, 0.7, "title", "B"),
		cand("4", field.Title, 0.6, "title", ""),
	}
	got, err := distinctValues(in, "title")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !slices.Equal(got, []string{"B", "A"}) {
		t.Errorf("got %v, want [B A]", got)
	}
}

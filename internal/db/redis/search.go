package redis

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/redis/rueidis"

	"github.com/kailas-cloud/kbsearch/internal/db"
	"github.com/kailas-cloud/kbsearch/internal/domain/search/filter"
)

const scoreField = "__vector_score"

// SearchField runs a KNN search over one vector attribute via FT.SEARCH.
// The collection name is used as the index name.
func (s *Store) SearchField(ctx context.Context, q *db.FieldQuery) (*db.SearchResult, error) {
	if err := validate(q); err != nil {
		return nil, err
	}

	args := []string{q.Collection, buildQuery(q)}
	args = append(args, returnArgs(q)...)
	args = append(args,
		"SORTBY", scoreField, "ASC",
		"LIMIT", "0", strconv.Itoa(q.Limit),
		"PARAMS", "2", "BLOB", vectorToBytes(q.Vector),
		"DIALECT", "2",
	)

	cmd := s.client.B().Arbitrary("FT.SEARCH").Args(args...).Build()
	raw, err := s.client.Do(ctx, cmd).ToArray()
	if err != nil {
		if isRedisErr(err, "no such index") || isRedisErr(err, "unknown index name") {
			return nil, &db.Error{Op: db.OpSearch, Err: fmt.Errorf("%s: %w", q.Collection, db.ErrCollectionNotFound)}
		}
		return nil, &db.Error{Op: db.OpSearch, Err: err}
	}

	return s.parseKNNResult(raw, q.WithPayload)
}

func validate(q *db.FieldQuery) error {
	if q.Collection == "" {
		return fmt.Errorf("collection is required: %w", db.ErrInvalidQuery)
	}
	if q.VectorName == "" {
		return fmt.Errorf("vector name is required: %w", db.ErrInvalidQuery)
	}
	if len(q.Vector) == 0 {
		return fmt.Errorf("vector is required: %w", db.ErrInvalidQuery)
	}
	if q.Limit <= 0 {
		return fmt.Errorf("limit must be positive: %w", db.ErrInvalidQuery)
	}
	return nil
}

// buildQuery renders "(<prefilter>)=>[KNN k @vec $BLOB AS __vector_score]".
func buildQuery(q *db.FieldQuery) string {
	knn := fmt.Sprintf("[KNN %d @%s $BLOB AS %s]", q.Limit, q.VectorName, scoreField)
	if pre := buildFilter(q.Filter); pre != "" {
		return fmt.Sprintf("(%s)=>%s", pre, knn)
	}
	return "*=>" + knn
}

func returnArgs(q *db.FieldQuery) []string {
	if !q.WithPayload {
		return []string{"RETURN", "1", scoreField}
	}
	if len(q.PayloadFields) == 0 {
		return nil
	}
	args := []string{"RETURN", strconv.Itoa(len(q.PayloadFields) + 1)}
	args = append(args, q.PayloadFields...)
	return append(args, scoreField)
}

// parseKNNResult decodes the RESP2 reply [total, key1, fields1, key2, fields2, ...].
func (s *Store) parseKNNResult(raw []rueidis.RedisMessage, withPayload bool) (*db.SearchResult, error) {
	if len(raw) == 0 {
		return &db.SearchResult{}, nil
	}

	total, err := raw[0].AsInt64()
	if err != nil {
		return nil, &db.Error{Op: db.OpSearch, Err: fmt.Errorf("parse total: %w", err)}
	}
	if total == 0 {
		return &db.SearchResult{}, nil
	}

	entries := make([]db.SearchEntry, 0, total)
	for i := 1; i+1 < len(raw); i += 2 {
		key, err := raw[i].ToString()
		if err != nil {
			return nil, &db.Error{Op: db.OpSearch, Err: fmt.Errorf("parse key at %d: %w", i, err)}
		}
		fields, err := raw[i+1].ToArray()
		if err != nil {
			return nil, &db.Error{Op: db.OpSearch, Err: fmt.Errorf("parse fields of %s: %w", key, err)}
		}

		attrs, err := parseFieldPairs(fields)
		if err != nil {
			return nil, &db.Error{Op: db.OpSearch, Err: fmt.Errorf("parse fields of %s: %w", key, err)}
		}
		d, err := strconv.ParseFloat(attrs[scoreField], 64)
		if err != nil {
			return nil, &db.Error{Op: db.OpSearch, Err: fmt.Errorf("parse score of %s: %w", key, err)}
		}
		entry := db.SearchEntry{
			ID:    strings.TrimPrefix(key, s.keyPrefix),
			Score: max(0, 1.0-d), // cosine distance to similarity, clamped at 0
		}
		delete(attrs, scoreField)

		if withPayload {
			entry.Payload = make(map[string]any, len(attrs))
			for k, v := range attrs {
				if strings.HasSuffix(k, "_vector") {
					continue
				}
				entry.Payload[k] = v
			}
		}
		entries = append(entries, entry)
	}

	return &db.SearchResult{Entries: entries}, nil
}

func parseFieldPairs(fields []rueidis.RedisMessage) (map[string]string, error) {
	m := make(map[string]string, len(fields)/2)
	for j := 0; j+1 < len(fields); j += 2 {
		name, err := fields[j].ToString()
		if err != nil {
			return nil, fmt.Errorf("field name at %d: %w", j, err)
		}
		value, err := fields[j+1].ToString()
		if err != nil {
			return nil, fmt.Errorf("value of %s: %w", name, err)
		}
		m[name] = value
	}
	return m, nil
}

// buildFilter renders a keyword match as a TAG pre-filter.
func buildFilter(m filter.Match) string {
	if m.IsEmpty() {
		return ""
	}
	return fmt.Sprintf("@%s:{%s}", m.Key(), tagEscaper.Replace(m.Value()))
}

var tagEscaper = strings.NewReplacer(
	`\`, `\\`,
	",", `\,`,
	".", `\.`,
	"<", `\<`,
	">", `\>`,
	"{", `\{`,
	"}", `\}`,
	"[", `\[`,
	"]", `\]`,
	`"`, `\"`,
	"'", `\'`,
	":", `\:`,
	";", `\;`,
	"!", `\!`,
	"@", `\@`,
	"#", `\#`,
	"$", `\$`,
	"%", `\%`,
	"^", `\^`,
	"&", `\&`,
	"*", `\*`,
	"(", `\(`,
	")", `\)`,
	"-", `\-`,
	"+", `\+`,
	"=", `\=`,
	"~", `\~`,
	"|", `\|`,
	"/", `\/`,
	"?", `\?`,
	" ", `\ `,
)

func vectorToBytes(v []float32) string {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return string(buf)
}

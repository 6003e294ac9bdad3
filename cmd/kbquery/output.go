package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/kailas-cloud/kbsearch/internal/domain/knowledge"
)

const (
	formatJSON    = "json"
	formatContext = "context"
)

type jsonOutput struct {
	Strategy string             `json:"strategy"`
	Results  []knowledge.Record `json:"results"`
}

func validateFormat(format string) error {
	switch format {
	case formatJSON, formatContext:
		return nil
	default:
		return fmt.Errorf("unknown format %q (want %s or %s)", format, formatJSON, formatContext)
	}
}

func writeResults(w io.Writer, format, strategy string, records []knowledge.Record) error {
	if records == nil {
		records = []knowledge.Record{}
	}
	switch format {
	case formatContext:
		_, err := fmt.Fprintln(w, knowledge.FormatContext(records))
		return err //nolint:wrapcheck // terminal write
	default:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(jsonOutput{Strategy: strategy, Results: records}) //nolint:wrapcheck // terminal write
	}
}

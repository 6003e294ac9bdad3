package knowledge

import (
	"strconv"
	"strings"
)

// contextSeparator sits between records in a grounding context.
const contextSeparator = "\n---\n"

// FormatContext renders records as the grounding block handed to an answer generator.
func FormatContext(records []Record) string {
	parts := make([]string, 0, len(records))
	for _, r := range records {
		var b strings.Builder
		b.WriteString("Title: ")
		b.WriteString(r.Title)
		b.WriteString("\nSummary: ")
		b.WriteString(r.Summary)
		b.WriteString("\nDetails: ")
		b.WriteString(r.Text)
		b.WriteString("\nScore: ")
		b.WriteString(strconv.FormatFloat(r.Score, 'g', -1, 64))
		b.WriteString("\n")
		parts = append(parts, b.String())
	}
	return strings.Join(parts, contextSeparator)
}

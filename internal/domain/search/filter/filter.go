package filter

import "fmt"

// Match is an exact equality condition on a payload attribute.
// The zero value means "no filter".
type Match struct {
	key   string
	value string
}

// NewMatch creates an equality condition. Both key and value are required.
func NewMatch(key, value string) (Match, error) {
	if key == "" {
		return Match{}, fmt.Errorf("filter key is required")
	}
	if value == "" {
		return Match{}, fmt.Errorf("match value is required for key %q", key)
	}
	return Match{key: key, value: value}, nil
}

// Key returns the payload attribute name.
func (m Match) Key() string { return m.key }

// Value returns the exact value the attribute must equal.
func (m Match) Value() string { return m.value }

// IsEmpty reports whether the condition is unset.
func (m Match) IsEmpty() bool { return m.key == "" }

func (m Match) String() string {
	if m.IsEmpty() {
		return "<none>"
	}
	return fmt.Sprintf("%s=%q", m.key, m.value)
}

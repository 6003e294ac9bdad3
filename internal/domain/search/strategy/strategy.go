package strategy

// Strategy selects how per-field rankings are fused.
type Strategy string

// Strategy constants.
const (
	// Weighted runs three unfiltered field searches and sums weighted scores.
	Weighted Strategy = "weighted"
	// Cascade narrows title -> summary -> chunk with payload equality filters.
	Cascade Strategy = "cascade"
)

// IsValid checks if the strategy is one of the supported values.
func (s Strategy) IsValid() bool {
	return s == Weighted || s == Cascade
}

func (s Strategy) String() string { return string(s) }

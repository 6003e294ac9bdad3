package field

// Field is one of the independently embedded attributes of a knowledge entry.
type Field string

// Field constants.
const (
	Title   Field = "title"
	Summary Field = "summary"
	// Chunk is the full-text passage.
	Chunk Field = "chunk"
)

// All returns the fields in fusion order: title, summary, chunk.
func All() []Field {
	return []Field{Title, Summary, Chunk}
}

// IsValid checks if the field is one of the supported values.
func (f Field) IsValid() bool {
	return f == Title || f == Summary || f == Chunk
}

// VectorName returns the default named vector for the field, e.g. "title_vector".
func (f Field) VectorName() string {
	return string(f) + "_vector"
}

func (f Field) String() string { return string(f) }

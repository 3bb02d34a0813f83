package mode

// Mode is the retrieval strategy.
type Mode string

// Search mode constants.
const (
	// Vector ranks products by aggregated chunk similarity only.
	Vector  Mode = "vector"
	Keyword Mode = "keyword"
	// Hybrid fuses vector and keyword scores with configurable weights.
	Hybrid Mode = "hybrid"
)

// IsValid checks if the mode is one of the supported values.
func (m Mode) IsValid() bool {
	return m == Vector || m == Keyword || m == Hybrid
}

// UsesVector reports whether the mode needs a query embedding.
func (m Mode) UsesVector() bool { return m == Vector || m == Hybrid }

// UsesKeyword reports whether the mode runs lexical retrieval.
func (m Mode) UsesKeyword() bool { return m == Keyword || m == Hybrid }

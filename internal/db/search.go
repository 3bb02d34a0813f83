package db

import "github.com/kailas-cloud/catalogsearch/internal/domain/search/filter"

// KNNQuery is the input for vector similarity search.
type KNNQuery struct {
	IndexName    string
	VectorField  string // defaults to "embedding"
	Filter       filter.Predicate
	Vector       []float32
	K            int
	ReturnFields []string
}

// ListQuery is the input for a filter-only search that pages through matching records.
type ListQuery struct {
	IndexName    string
	Filter       filter.Predicate
	Offset       int
	Limit        int
	ReturnFields []string
}

// SearchResult is the output of a search operation.
type SearchResult struct {
	Total   int
	Entries []SearchEntry
}

// SearchEntry is a single document hit from a search. Score is the raw
// __vector_score (cosine distance) for KNN hits and zero otherwise.
type SearchEntry struct {
	Key    string
	Score  float64
	Fields map[string]string
}

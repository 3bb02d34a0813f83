package search

import (
	"context"

	"github.com/kailas-cloud/catalogsearch/internal/domain"
	"github.com/kailas-cloud/catalogsearch/internal/domain/product"
	"github.com/kailas-cloud/catalogsearch/internal/domain/search/filter"
	"github.com/kailas-cloud/catalogsearch/internal/domain/search/result"
)

// ChunkStore returns the chunks most similar to a query vector.
type ChunkStore interface {
	// QueryBySimilarity returns at most topN chunks of predicate-matching
	// products whose cosine similarity is strictly above threshold,
	// ordered by similarity descending.
	QueryBySimilarity(
		ctx context.Context, vector []float32,
		pred filter.Predicate, threshold float64, topN int,
	) ([]result.ChunkHit, error)
}

// LexicalStore scores products by string similarity to the raw query.
type LexicalStore interface {
	// QueryByText returns predicate-matching products with a positive score,
	// ordered by score descending, skipping offset and keeping at most topN.
	QueryByText(
		ctx context.Context, text string,
		pred filter.Predicate, topN, offset int,
	) ([]result.LexicalHit, error)
}

// MetadataStore resolves product ids. Unknown ids are omitted from the result.
type MetadataStore interface {
	GetByIDs(ctx context.Context, ids []string) ([]product.Product, error)
}

// CorpusInspector reports the embedding dimension of the stored chunks.
type CorpusInspector interface {
	Dimensions(ctx context.Context) (int, error)
}

// Store is a backend serving every retrieval contract.
type Store interface {
	ChunkStore
	LexicalStore
	MetadataStore
	CorpusInspector
}

// Embedder vectorizes text into embeddings.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}

// Package memcatalog keeps a whole catalog in memory and serves every
// retrieval contract by brute force. It backs the memory driver and tests.
package memcatalog

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/kailas-cloud/catalogsearch/internal/domain"
	"github.com/kailas-cloud/catalogsearch/internal/domain/product"
	"github.com/kailas-cloud/catalogsearch/internal/domain/search/filter"
	"github.com/kailas-cloud/catalogsearch/internal/domain/search/result"
	"github.com/kailas-cloud/catalogsearch/internal/textsim"
)

// Catalog is a concurrency-safe in-memory product and chunk store.
type Catalog struct {
	mu       sync.RWMutex
	products map[string]product.Product
	chunks   []product.Chunk
	dims     int
}

// New creates an empty catalog.
func New() *Catalog {
	return &Catalog{products: make(map[string]product.Product)}
}

// Add stores a product with its embedded chunks, replacing any previous
// version. All chunk embeddings in the catalog share one dimension.
func (c *Catalog) Add(p product.Product, chunks []product.Chunk) error {
	if err := p.Validate(); err != nil {
		return fmt.Errorf("add product: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	dims := c.dims
	for i := range chunks {
		n := len(chunks[i].Embedding)
		if n == 0 {
			return fmt.Errorf("product %s: chunk %d has no embedding", p.ID, i)
		}
		if dims == 0 {
			dims = n
		}
		if n != dims {
			return fmt.Errorf("product %s: chunk %d has %d dimensions, catalog has %d: %w",
				p.ID, i, n, dims, domain.ErrVectorDimMismatch)
		}
	}

	c.removeChunks(p.ID)
	for i := range chunks {
		ch := chunks[i]
		ch.ProductID = p.ID
		if ch.ID == "" {
			ch.ID = product.ChunkID(p.ID, ch.Position)
		}
		c.chunks = append(c.chunks, ch)
	}
	c.products[p.ID] = p
	c.dims = dims
	return nil
}

func (c *Catalog) removeChunks(productID string) {
	kept := c.chunks[:0]
	for _, ch := range c.chunks {
		if ch.ProductID != productID {
			kept = append(kept, ch)
		}
	}
	c.chunks = kept
}

// Len returns the number of products.
func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.products)
}

// Ping always succeeds.
func (c *Catalog) Ping(context.Context) error { return nil }

// QueryBySimilarity scores every chunk of a matching product by cosine similarity.
func (c *Catalog) QueryBySimilarity(
	ctx context.Context, vector []float32,
	pred filter.Predicate, threshold float64, topN int,
) ([]result.ChunkHit, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("query chunks: %w", err)
	}
	if topN <= 0 {
		return []result.ChunkHit{}, nil
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.dims != 0 && len(vector) != c.dims {
		return nil, fmt.Errorf("query has %d dimensions, catalog has %d: %w",
			len(vector), c.dims, domain.ErrVectorDimMismatch)
	}

	hits := []result.ChunkHit{}
	for i := range c.chunks {
		ch := &c.chunks[i]
		p := c.products[ch.ProductID]
		if !pred.Match(&p) {
			continue
		}
		sim, ok := cosine(vector, ch.Embedding)
		if !ok || sim <= threshold {
			continue
		}
		hits = append(hits, result.ChunkHit{
			ProductID:  ch.ProductID,
			ChunkID:    ch.ID,
			ChunkType:  ch.Type,
			Content:    ch.Text,
			Position:   ch.Position,
			Similarity: sim,
		})
	}

	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].Similarity != hits[j].Similarity {
			return hits[i].Similarity > hits[j].Similarity
		}
		return hits[i].ChunkID < hits[j].ChunkID
	})
	if len(hits) > topN {
		hits = hits[:topN]
	}
	return hits, nil
}

// QueryByText scores every matching product by trigram similarity of its
// display fields.
func (c *Catalog) QueryByText(
	ctx context.Context, text string,
	pred filter.Predicate, topN, offset int,
) ([]result.LexicalHit, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("query products by text: %w", err)
	}
	if topN <= 0 {
		return []result.LexicalHit{}, nil
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	scorer := textsim.NewScorer(text)
	var hits []result.LexicalHit
	for id := range c.products {
		p := c.products[id]
		if !pred.Match(&p) {
			continue
		}
		score := scorer.Best(p.Name, p.Description, p.Category, p.Brand)
		if score > 0 {
			hits = append(hits, result.LexicalHit{ProductID: p.ID, Name: p.Name, Score: score})
		}
	}
	return result.RankLexical(hits, topN, offset), nil
}

// GetByIDs returns known products in request order.
func (c *Catalog) GetByIDs(ctx context.Context, ids []string) ([]product.Product, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("get products: %w", err)
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]product.Product, 0, len(ids))
	for _, id := range ids {
		if p, ok := c.products[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

// Dimensions reports the chunk embedding dimension. A catalog without
// chunks is domain.ErrCorpusNotFound.
func (c *Catalog) Dimensions(context.Context) (int, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if len(c.chunks) == 0 {
		return 0, fmt.Errorf("memory catalog has no chunks: %w", domain.ErrCorpusNotFound)
	}
	return c.dims, nil
}

// cosine returns the cosine similarity of a and b; ok is false for
// mismatched lengths or zero-magnitude vectors.
func cosine(a, b []float32) (float64, bool) {
	if len(a) != len(b) || len(a) == 0 {
		return 0, false
	}
	var dot, na2, nb2 float64
	for i := range a {
		va := float64(a[i])
		vb := float64(b[i])
		dot += va * vb
		na2 += va * va
		nb2 += vb * vb
	}
	if na2 == 0 || nb2 == 0 {
		return 0, false
	}
	sim := dot / (math.Sqrt(na2) * math.Sqrt(nb2))
	if math.IsNaN(sim) || math.IsInf(sim, 0) {
		return 0, false
	}
	return sim, true
}

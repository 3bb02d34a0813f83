package search

import (
	"math"
	"sort"

	"github.com/kailas-cloud/catalogsearch/internal/domain/search/result"
)

// Blend of best-chunk and mean-chunk similarity in a product's vector score.
const (
	maxWeight = 0.7
	avgWeight = 0.3
)

// scored is a product with its ranking score and supporting chunks.
type scored struct {
	productID string
	score     float64
	chunks    []result.ChunkHit
}

// aggregateChunks groups chunk hits by product and scores each product as
// 0.7*max + 0.3*mean of its chunk similarities. Non-finite similarities are
// ignored. Each product keeps its top chunks, best first. The output is
// sorted by score descending, then product id.
func aggregateChunks(hits []result.ChunkHit) []scored {
	type acc struct {
		best, sum float64
		n         int
		chunks    []result.ChunkHit
	}

	byProduct := make(map[string]*acc)
	var order []string
	for _, h := range hits {
		if math.IsNaN(h.Similarity) || math.IsInf(h.Similarity, 0) {
			continue
		}
		a, ok := byProduct[h.ProductID]
		if !ok {
			a = &acc{best: h.Similarity}
			byProduct[h.ProductID] = a
			order = append(order, h.ProductID)
		}
		if h.Similarity > a.best {
			a.best = h.Similarity
		}
		a.sum += h.Similarity
		a.n++
		a.chunks = append(a.chunks, h)
	}

	out := make([]scored, 0, len(order))
	for _, id := range order {
		a := byProduct[id]
		sortChunks(a.chunks)
		if len(a.chunks) > result.MaxChunksPerResult {
			a.chunks = a.chunks[:result.MaxChunksPerResult]
		}
		out = append(out, scored{
			productID: id,
			score:     maxWeight*a.best + avgWeight*(a.sum/float64(a.n)),
			chunks:    a.chunks,
		})
	}
	sortScored(out)
	return out
}

// sortChunks orders chunks by similarity descending, then position, then id.
func sortChunks(chunks []result.ChunkHit) {
	sort.SliceStable(chunks, func(i, j int) bool {
		a, b := chunks[i], chunks[j]
		if a.Similarity != b.Similarity {
			return a.Similarity > b.Similarity
		}
		if a.Position != b.Position {
			return a.Position < b.Position
		}
		return a.ChunkID < b.ChunkID
	})
}

// sortScored orders products by score descending; equal scores fall back to
// product id so repeated searches return the same order.
func sortScored(s []scored) {
	sort.SliceStable(s, func(i, j int) bool {
		if s[i].score != s[j].score {
			return s[i].score > s[j].score
		}
		return s[i].productID < s[j].productID
	})
}

// page skips offset entries and keeps at most limit.
func page(s []scored, offset, limit int) []scored {
	if offset >= len(s) {
		return nil
	}
	s = s[offset:]
	if len(s) > limit {
		s = s[:limit]
	}
	return s
}

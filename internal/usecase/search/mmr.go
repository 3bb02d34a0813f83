package search

import (
	"math"

	"github.com/kailas-cloud/catalogsearch/internal/domain/search/result"
)

// Lambda is the MMR trade-off between relevance (1) and diversity (0).
const Lambda = 0.7

// Attribute similarity weights.
const (
	sameCategoryWeight = 0.3
	sameBrandWeight    = 0.3
	priceWeight        = 0.4
)

// Similarity measures how alike two results are, for diversity penalties.
type Similarity interface {
	Similarity(a, b *result.SearchResult) float64
}

// SimilarityFunc adapts a function to Similarity.
type SimilarityFunc func(a, b *result.SearchResult) float64

// Similarity calls f(a, b).
func (f SimilarityFunc) Similarity(a, b *result.SearchResult) float64 { return f(a, b) }

// AttributeSimilarity compares category, brand and price:
// 0.3 for the same category, 0.3 for the same brand and up to 0.4 for
// close prices when both results have one.
type AttributeSimilarity struct{}

// Similarity implements Similarity.
func (AttributeSimilarity) Similarity(a, b *result.SearchResult) float64 {
	sim := 0.0
	if a.Category != "" && a.Category == b.Category {
		sim += sameCategoryWeight
	}
	if a.Brand != "" && a.Brand == b.Brand {
		sim += sameBrandWeight
	}
	if a.Price != nil && b.Price != nil {
		pa, pb := *a.Price, *b.Price
		if hi := math.Max(pa, pb); hi > 0 {
			sim += priceWeight * (1 - math.Abs(pa-pb)/hi)
		} else if pa == pb {
			sim += priceWeight
		}
	}
	return sim
}

// Rerank reorders relevance-sorted results by Maximal Marginal Relevance.
// The first result is kept; each next pick maximizes
// lambda*relevance - (1-lambda)*max similarity to the already picked ones.
// Ties keep input order. The output is always a permutation of the input.
func Rerank(results []result.SearchResult, lambda float64, sim Similarity) []result.SearchResult {
	if len(results) < 3 {
		return results
	}
	if sim == nil {
		sim = AttributeSimilarity{}
	}

	pool := make([]int, len(results)-1)
	for i := range pool {
		pool[i] = i + 1
	}
	// penalty[i] is the max similarity of results[i] to anything selected so far.
	penalty := make([]float64, len(results))
	out := make([]result.SearchResult, 0, len(results))
	out = append(out, results[0])
	last := &results[0]

	for len(pool) > 0 {
		bestPos, bestScore := -1, math.Inf(-1)
		for pos, idx := range pool {
			if s := sim.Similarity(&results[idx], last); s > penalty[idx] || len(out) == 1 {
				penalty[idx] = s
			}
			score := lambda*results[idx].Similarity - (1-lambda)*penalty[idx]
			if bestPos < 0 || score > bestScore {
				bestPos, bestScore = pos, score
			}
		}
		idx := pool[bestPos]
		out = append(out, results[idx])
		last = &results[idx]
		pool = append(pool[:bestPos], pool[bestPos+1:]...)
	}
	return out
}

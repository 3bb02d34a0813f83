package search

import (
	"math"

	"github.com/kailas-cloud/catalogsearch/internal/domain/search/result"
)

// fuse merges vector product scores with lexical product scores:
// final = vector*vectorWeight + lexical*keywordWeight. The product sets are
// unioned and a missing side contributes 0. Weights are applied as given,
// without normalization. The result is sorted and truncated to limit.
func fuse(vector []scored, lexical []result.LexicalHit, vectorWeight, keywordWeight float64, limit int) []scored {
	merged := make(map[string]*scored, len(vector)+len(lexical))
	out := make([]*scored, 0, len(vector)+len(lexical))

	for _, v := range vector {
		s := &scored{productID: v.productID, score: v.score * vectorWeight, chunks: v.chunks}
		merged[v.productID] = s
		out = append(out, s)
	}
	lexSeen := make(map[string]struct{}, len(lexical))
	for _, h := range lexical {
		if !finite(h.Score) {
			continue
		}
		if _, dup := lexSeen[h.ProductID]; dup {
			continue
		}
		lexSeen[h.ProductID] = struct{}{}
		if s, ok := merged[h.ProductID]; ok {
			s.score += h.Score * keywordWeight
			continue
		}
		s := &scored{productID: h.ProductID, score: h.Score * keywordWeight}
		merged[h.ProductID] = s
		out = append(out, s)
	}

	fused := make([]scored, len(out))
	for i, s := range out {
		fused[i] = *s
	}
	sortScored(fused)
	return page(fused, 0, limit)
}

// fromLexical ranks lexical hits on their own (keyword-only mode).
func fromLexical(hits []result.LexicalHit, limit int) []scored {
	out := make([]scored, 0, len(hits))
	seen := make(map[string]struct{}, len(hits))
	for _, h := range hits {
		if !finite(h.Score) {
			continue
		}
		if _, dup := seen[h.ProductID]; dup {
			continue
		}
		seen[h.ProductID] = struct{}{}
		out = append(out, scored{productID: h.ProductID, score: h.Score})
	}
	sortScored(out)
	return page(out, 0, limit)
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

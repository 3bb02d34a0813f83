package search

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/kailas-cloud/catalogsearch/internal/domain/product"
	"github.com/kailas-cloud/catalogsearch/internal/domain/search/result"
	"github.com/kailas-cloud/catalogsearch/internal/logger"
)

// assemble resolves ranked product ids to full results in rank order.
// Ids the metadata store no longer knows are dropped.
func (s *Service) assemble(ctx context.Context, ranked []scored, includeChunks bool) ([]result.SearchResult, error) {
	if len(ranked) == 0 {
		return []result.SearchResult{}, nil
	}

	ids := make([]string, len(ranked))
	for i, r := range ranked {
		ids[i] = r.productID
	}

	products, err := s.meta.GetByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("get products: %w", storeErr(err))
	}
	byID := make(map[string]*product.Product, len(products))
	for i := range products {
		byID[products[i].ID] = &products[i]
	}

	out := make([]result.SearchResult, 0, len(ranked))
	var orphans []string
	for _, r := range ranked {
		p, ok := byID[r.productID]
		if !ok {
			orphans = append(orphans, r.productID)
			continue
		}
		var chunks []result.ChunkResult
		if includeChunks && len(r.chunks) > 0 {
			chunks = make([]result.ChunkResult, len(r.chunks))
			for i, h := range r.chunks {
				chunks[i] = result.FromHit(h)
			}
		}
		out = append(out, result.New(p, r.score, chunks))
	}

	if len(orphans) > 0 {
		logger.FromContext(ctx).Warn("dropped products without metadata",
			zap.Strings("product_ids", orphans))
	}
	return out, nil
}

package catalogsearch

import (
	"context"
	"fmt"
	"time"

	"github.com/kailas-cloud/catalogsearch/internal/domain/product"
	"github.com/kailas-cloud/catalogsearch/internal/domain/search/filter"
	"github.com/kailas-cloud/catalogsearch/internal/domain/search/mode"
	"github.com/kailas-cloud/catalogsearch/internal/domain/search/request"
	"github.com/kailas-cloud/catalogsearch/internal/domain/search/result"
	"github.com/kailas-cloud/catalogsearch/internal/logger"
)

// Search ranks products for query in opts.Mode (vector by default).
// An empty result is a nil error with no results.
func (c *Client) Search(ctx context.Context, query string, opts *SearchOptions) (res []SearchResult, err error) {
	start := time.Now()
	defer func() { c.obs.observe("search", start, err) }()

	req, err := c.request(query, opts)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	results, err := c.searchSvc.Search(c.withLogger(ctx), &req)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	return fromSearchResults(results), nil
}

// HybridSearch ranks products by the weighted sum of their vector and
// keyword scores. opts.Mode is ignored.
func (c *Client) HybridSearch(ctx context.Context, query string, opts *SearchOptions) (res []SearchResult, err error) {
	start := time.Now()
	defer func() { c.obs.observe("hybrid_search", start, err) }()

	req, err := c.request(query, opts)
	if err != nil {
		return nil, fmt.Errorf("hybrid search: %w", err)
	}
	results, err := c.searchSvc.HybridSearch(c.withLogger(ctx), &req)
	if err != nil {
		return nil, fmt.Errorf("hybrid search: %w", err)
	}
	return fromSearchResults(results), nil
}

func (c *Client) request(query string, opts *SearchOptions) (request.Request, error) {
	req, err := request.New(toParams(query, opts).WithDefaults(c.defaults))
	if err != nil {
		return request.Request{}, fmt.Errorf("build request: %w", err)
	}
	return req, nil
}

func (c *Client) withLogger(ctx context.Context) context.Context {
	if c.obs == nil || c.obs.logger == nil {
		return ctx
	}
	return logger.ContextWithLogger(ctx, c.obs.logger)
}

func toParams(query string, opts *SearchOptions) request.Params {
	if opts == nil {
		return request.Params{Query: query}
	}
	return request.Params{
		Query:         query,
		Mode:          mode.Mode(opts.Mode),
		Limit:         opts.Limit,
		Offset:        opts.Offset,
		Threshold:     opts.Threshold,
		Filters:       toFilters(opts.Filters),
		IncludeChunks: opts.IncludeChunks,
		Rerank:        opts.Rerank,
		VectorWeight:  opts.VectorWeight,
		KeywordWeight: opts.KeywordWeight,
	}
}

func toFilters(f *Filters) *filter.Filters {
	if f == nil {
		return nil
	}
	out := &filter.Filters{
		Categories: f.Categories,
		Brands:     f.Brands,
	}
	if f.ShopID != "" {
		shop := f.ShopID
		out.ShopID = &shop
	}
	if f.PriceRange != nil {
		out.PriceRange = &filter.PriceRange{Min: f.PriceRange.Min, Max: f.PriceRange.Max}
	}
	for _, a := range f.Availability {
		out.Availability = append(out.Availability, product.Availability(a))
	}
	for _, t := range f.ProductTypes {
		out.ProductTypes = append(out.ProductTypes, product.Type(t))
	}
	return out
}

func fromSearchResults(results []result.SearchResult) []SearchResult {
	out := make([]SearchResult, len(results))
	for i := range results {
		r := &results[i]
		out[i] = SearchResult{
			ProductID:      r.ProductID,
			Name:           r.Name,
			Description:    r.Description,
			URL:            r.URL,
			Brand:          r.Brand,
			Category:       r.Category,
			Subcategory:    r.Metadata.Subcategory,
			Price:          r.Price,
			Currency:       r.Currency,
			Availability:   Availability(r.Metadata.Availability),
			ProductType:    ProductType(r.Metadata.ProductType),
			Similarity:     r.Similarity,
			Claims:         r.Metadata.Claims,
			Specifications: fromSpecifications(r.Metadata.Specifications),
			Images:         r.Metadata.Images,
			Chunks:         fromChunks(r.Chunks),
		}
		if rt := r.Metadata.Rating; rt != nil {
			out[i].Rating = &Rating{Value: rt.Value, Count: rt.Count}
		}
	}
	return out
}

func fromChunks(chunks []result.ChunkResult) []Chunk {
	if len(chunks) == 0 {
		return nil
	}
	out := make([]Chunk, len(chunks))
	for i, ch := range chunks {
		out[i] = Chunk{
			ID:         ch.ChunkID,
			Type:       string(ch.ChunkType),
			Content:    ch.Content,
			Similarity: ch.Similarity,
			Position:   ch.Position,
		}
	}
	return out
}

func fromSpecifications(specs map[string]product.Value) map[string]Value {
	if len(specs) == 0 {
		return nil
	}
	out := make(map[string]Value, len(specs))
	for k, v := range specs {
		out[k] = v
	}
	return out
}

package catalogsearch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kailas-cloud/catalogsearch/internal/backend"
	"github.com/kailas-cloud/catalogsearch/internal/domain"
	"github.com/kailas-cloud/catalogsearch/internal/domain/search/request"
	"github.com/kailas-cloud/catalogsearch/internal/domain/search/result"
	healthuc "github.com/kailas-cloud/catalogsearch/internal/usecase/health"
	searchuc "github.com/kailas-cloud/catalogsearch/internal/usecase/search"
)

// Internal interfaces, swapped for mocks in tests.
type searchUseCase interface {
	Search(ctx context.Context, req *request.Request) ([]result.SearchResult, error)
	HybridSearch(ctx context.Context, req *request.Request) ([]result.SearchResult, error)
}

type healthUseCase interface {
	Check(ctx context.Context) healthuc.Report
}

type store interface {
	Ping(ctx context.Context) error
	Close()
}

// Client is the catalogsearch SDK entry point.
type Client struct {
	store     store
	searchSvc searchUseCase
	healthSvc healthUseCase
	defaults  request.Params
	obs       *observer
}

// New connects to the catalog store and verifies it. The provided context is
// used for the readiness wait, seed loading and the corpus check.
func New(ctx context.Context, opts ...Option) (*Client, error) {
	cfg := &clientConfig{}
	for _, o := range opts {
		o.apply(cfg)
	}

	if cfg.store.Driver == "" {
		return nil, errors.New(
			"catalogsearch: catalog store required (use WithRedis, WithValkey, WithPostgres or WithMemory)",
		)
	}

	obs, err := newObserver(cfg.logger, cfg.metricsReg)
	if err != nil {
		return nil, err
	}

	var emb domain.Embedder = noopEmbedder{}
	if cfg.embedder != nil {
		emb = &embedderAdapter{inner: cfg.embedder}
	}

	b, err := backend.Open(ctx, cfg.store, emb)
	if err != nil {
		return nil, fmt.Errorf("catalogsearch: %w", err)
	}

	c, err := wireClient(ctx, b, emb, cfg, obs)
	if err != nil {
		b.Close()
		return nil, err
	}
	return c, nil
}

func wireClient(
	ctx context.Context, b *backend.Backend, emb domain.Embedder, cfg *clientConfig, obs *observer,
) (*Client, error) {
	var opts []searchuc.Option
	if cfg.dimensions > 0 {
		opts = append(opts, searchuc.WithCorpusCheck(b.Store, cfg.dimensions))
	}
	searchSvc := searchuc.New(b.Store, b.Store, b.Store, emb, opts...)
	if err := searchSvc.Verify(ctx); err != nil {
		return nil, fmt.Errorf("catalogsearch: %w", err)
	}

	// Pass a nil interface, not a typed nil, when the embedder has no health check.
	var embCheck healthuc.EmbeddingChecker
	if a, ok := emb.(*embedderAdapter); ok {
		embCheck = a
	}

	return &Client{
		store:     b,
		searchSvc: searchSvc,
		healthSvc: healthuc.New(b, embCheck, searchSvc),
		defaults:  toParams("", &cfg.defaults),
		obs:       obs,
	}, nil
}

// Close releases all resources.
func (c *Client) Close() {
	if c.store != nil {
		c.store.Close()
	}
}

// Ping checks catalog store connectivity.
func (c *Client) Ping(ctx context.Context) (err error) {
	start := time.Now()
	defer func() { c.obs.observe("ping", start, err) }()

	if err = c.store.Ping(ctx); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// Health checks the store, the embedding provider and the corpus.
func (c *Client) Health(ctx context.Context) HealthStatus {
	report := c.healthSvc.Check(ctx)
	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}
	return HealthStatus{
		Status: string(report.Status),
		Checks: checks,
	}
}

// embedderAdapter wraps the public Embedder to satisfy domain.Embedder.
type embedderAdapter struct {
	inner Embedder
}

func (a *embedderAdapter) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	r, err := a.inner.Embed(ctx, text)
	if err != nil {
		return domain.EmbeddingResult{}, fmt.Errorf("embed: %w", err)
	}
	return domain.EmbeddingResult{
		Embedding:    r.Embedding,
		PromptTokens: r.PromptTokens,
		TotalTokens:  r.TotalTokens,
	}, nil
}

// BatchEmbed uses the inner BatchEmbedder when present and embeds one by one otherwise.
func (a *embedderAdapter) BatchEmbed(ctx context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	be, ok := a.inner.(BatchEmbedder)
	if !ok {
		out := domain.BatchEmbeddingResult{Embeddings: make([][]float32, len(texts))}
		for i, text := range texts {
			r, err := a.Embed(ctx, text)
			if err != nil {
				return domain.BatchEmbeddingResult{}, fmt.Errorf("embed [%d]: %w", i, err)
			}
			out.Embeddings[i] = r.Embedding
			out.PromptTokens += r.PromptTokens
			out.TotalTokens += r.TotalTokens
		}
		return out, nil
	}

	r, err := be.BatchEmbed(ctx, texts)
	if err != nil {
		return domain.BatchEmbeddingResult{}, fmt.Errorf("batch embed: %w", err)
	}
	return domain.BatchEmbeddingResult{
		Embeddings:   r.Embeddings,
		PromptTokens: r.PromptTokens,
		TotalTokens:  r.TotalTokens,
	}, nil
}

// HealthCheck forwards to the inner embedder when it supports health checks.
func (a *embedderAdapter) HealthCheck(ctx context.Context) error {
	if hc, ok := a.inner.(HealthChecker); ok {
		return hc.HealthCheck(ctx) //nolint:wrapcheck // transparent adapter
	}
	return nil
}

// noopEmbedder returns an error on Embed call (used when no embedder configured).
type noopEmbedder struct{}

func (noopEmbedder) Embed(_ context.Context, _ string) (domain.EmbeddingResult, error) {
	return domain.EmbeddingResult{}, errors.New(
		"catalogsearch: embedder not configured (use WithEmbedder for vector and hybrid search)",
	)
}

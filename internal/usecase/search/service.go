package search

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kailas-cloud/catalogsearch/internal/domain"
	"github.com/kailas-cloud/catalogsearch/internal/domain/search/mode"
	"github.com/kailas-cloud/catalogsearch/internal/domain/search/request"
	"github.com/kailas-cloud/catalogsearch/internal/domain/search/result"
	"github.com/kailas-cloud/catalogsearch/internal/logger"
	"github.com/kailas-cloud/catalogsearch/internal/metrics"
)

// Service ranks catalog products for natural-language queries.
type Service struct {
	chunks  ChunkStore
	lexical LexicalStore
	meta    MetadataStore
	embed   Embedder

	corpus     CorpusInspector
	dimensions int
	similarity Similarity
}

// Option configures a Service.
type Option func(*Service)

// WithCorpusCheck enables the dimension check in Verify and on every query
// embedding.
func WithCorpusCheck(corpus CorpusInspector, dimensions int) Option {
	return func(s *Service) {
		s.corpus = corpus
		s.dimensions = dimensions
	}
}

// WithSimilarity replaces the pairwise similarity used by MMR reranking.
func WithSimilarity(sim Similarity) Option {
	return func(s *Service) { s.similarity = sim }
}

// New creates a search service.
func New(chunks ChunkStore, lexical LexicalStore, meta MetadataStore, embed Embedder, opts ...Option) *Service {
	s := &Service{
		chunks:     chunks,
		lexical:    lexical,
		meta:       meta,
		embed:      embed,
		similarity: AttributeSimilarity{},
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Verify checks that the stored corpus exists and that its embedding
// dimension matches the embedder. Call once at startup; an error is fatal.
func (s *Service) Verify(ctx context.Context) error {
	if s.corpus == nil {
		return nil
	}
	dims, err := s.corpus.Dimensions(ctx)
	if err != nil {
		return fmt.Errorf("inspect corpus: %w", err)
	}
	if dims != s.dimensions {
		return fmt.Errorf("%w: corpus has %d dimensions, embedder produces %d",
			domain.ErrVectorDimMismatch, dims, s.dimensions)
	}
	return nil
}

// Search ranks products in the request's mode (vector by default).
func (s *Service) Search(ctx context.Context, req *request.Request) ([]result.SearchResult, error) {
	return s.run(ctx, req, req.Mode())
}

// HybridSearch ranks products by fused vector and lexical scores regardless
// of the request's mode.
func (s *Service) HybridSearch(ctx context.Context, req *request.Request) ([]result.SearchResult, error) {
	if req.VectorWeight() == 0 && req.KeywordWeight() == 0 {
		return nil, fmt.Errorf("%w: vector and keyword weights cannot both be zero", domain.ErrInvalidRequest)
	}
	return s.run(ctx, req, mode.Hybrid)
}

func (s *Service) run(ctx context.Context, req *request.Request, m mode.Mode) (results []result.SearchResult, err error) {
	start := time.Now()
	defer func() {
		metrics.ObserveSearch(string(m), err, time.Since(start), len(results))
	}()

	var vector []float32
	if m.UsesVector() {
		vector, err = s.vectorize(ctx, req.Query())
		if err != nil {
			return nil, err
		}
	}

	chunkHits, lexHits, err := s.retrieve(ctx, req, m, vector)
	if err != nil {
		return nil, err
	}

	ranked := s.rank(req, m, chunkHits, lexHits)

	assembleStart := time.Now()
	results, err = s.assemble(ctx, ranked, req.IncludeChunks())
	if err != nil {
		return nil, err
	}
	metrics.ObserveStage("assemble", assembleStart)

	if req.Rerank() {
		rerankStart := time.Now()
		results = Rerank(results, Lambda, s.similarity)
		metrics.ObserveStage("rerank", rerankStart)
	}

	logger.FromContext(ctx).Debug("search completed",
		zap.String("mode", string(m)),
		zap.Int("chunk_hits", len(chunkHits)),
		zap.Int("lexical_hits", len(lexHits)),
		zap.Int("results", len(results)),
		zap.Duration("took", time.Since(start)),
	)
	return results, nil
}

func (s *Service) vectorize(ctx context.Context, query string) ([]float32, error) {
	defer metrics.ObserveStage("embed", time.Now())

	res, err := s.embed.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("vectorize query: %w", kindErr(domain.ErrEmbeddingProviderError, err))
	}
	if s.dimensions > 0 && len(res.Embedding) != s.dimensions {
		return nil, fmt.Errorf("vectorize query: %w: %w: got %d dimensions, want %d",
			domain.ErrEmbeddingProviderError, domain.ErrVectorDimMismatch, len(res.Embedding), s.dimensions)
	}
	return res.Embedding, nil
}

// retrieve runs vector and lexical retrieval concurrently over the same
// predicate. Either failure cancels the other.
func (s *Service) retrieve(
	ctx context.Context, req *request.Request, m mode.Mode, vector []float32,
) ([]result.ChunkHit, []result.LexicalHit, error) {
	defer metrics.ObserveStage("retrieve", time.Now())

	var (
		chunkHits []result.ChunkHit
		lexHits   []result.LexicalHit
	)
	g, gctx := errgroup.WithContext(ctx)

	if m.UsesVector() {
		g.Go(func() error {
			hits, err := s.chunks.QueryBySimilarity(gctx, vector, req.Predicate(), req.Threshold(), req.CandidateCount(m))
			if err != nil {
				return fmt.Errorf("vector retrieval: %w", storeErr(err))
			}
			chunkHits = hits
			return nil
		})
	}
	if m.UsesKeyword() {
		// Hybrid fusion ranks from the top; the offset only pages keyword-only results.
		offset := 0
		if m == mode.Keyword {
			offset = req.Offset()
		}
		g.Go(func() error {
			hits, err := s.lexical.QueryByText(gctx, req.Query(), req.Predicate(), req.Limit(), offset)
			if err != nil {
				return fmt.Errorf("lexical retrieval: %w", storeErr(err))
			}
			lexHits = hits
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, nil, err //nolint:wrapcheck // wrapped inside the goroutines
	}
	return chunkHits, lexHits, nil
}

func (s *Service) rank(
	req *request.Request, m mode.Mode, chunkHits []result.ChunkHit, lexHits []result.LexicalHit,
) []scored {
	defer metrics.ObserveStage("fuse", time.Now())

	switch m {
	case mode.Keyword:
		return fromLexical(lexHits, req.Limit())
	case mode.Hybrid:
		return fuse(aggregateChunks(chunkHits), lexHits, req.VectorWeight(), req.KeywordWeight(), req.Limit())
	default:
		return page(aggregateChunks(chunkHits), req.Offset(), req.Limit())
	}
}

// kindErr tags err with kind unless it already carries it.
func kindErr(kind, err error) error {
	if errors.Is(err, kind) {
		return err
	}
	return fmt.Errorf("%w: %w", kind, err)
}

func storeErr(err error) error {
	return kindErr(domain.ErrStoreUnavailable, err)
}

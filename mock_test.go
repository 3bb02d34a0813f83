package catalogsearch

import (
	"context"
	"strings"

	"github.com/kailas-cloud/catalogsearch/internal/domain/search/request"
	"github.com/kailas-cloud/catalogsearch/internal/domain/search/result"
	healthuc "github.com/kailas-cloud/catalogsearch/internal/usecase/health"
)

// --- searchUseCase mock ---

type mockSearchUC struct {
	searchFn func(ctx context.Context, req *request.Request) ([]result.SearchResult, error)
	hybridFn func(ctx context.Context, req *request.Request) ([]result.SearchResult, error)
}

func (m *mockSearchUC) Search(ctx context.Context, req *request.Request) ([]result.SearchResult, error) {
	return m.searchFn(ctx, req)
}

func (m *mockSearchUC) HybridSearch(ctx context.Context, req *request.Request) ([]result.SearchResult, error) {
	return m.hybridFn(ctx, req)
}

// --- healthUseCase mock ---

type mockHealthUC struct {
	report healthuc.Report
}

func (m *mockHealthUC) Check(context.Context) healthuc.Report { return m.report }

// --- store mock ---

type mockStore struct {
	pingErr error
	closed  bool
}

func (m *mockStore) Ping(context.Context) error { return m.pingErr }
func (m *mockStore) Close()                     { m.closed = true }

// --- embedders ---

type mockEmbedder struct {
	fn func(ctx context.Context, text string) (EmbeddingResult, error)
}

func (m *mockEmbedder) Embed(ctx context.Context, text string) (EmbeddingResult, error) {
	return m.fn(ctx, text)
}

type mockBatchEmbedder struct {
	mockEmbedder
	batchFn func(ctx context.Context, texts []string) (BatchEmbeddingResult, error)
}

func (m *mockBatchEmbedder) BatchEmbed(ctx context.Context, texts []string) (BatchEmbeddingResult, error) {
	return m.batchFn(ctx, texts)
}

// featureEmbedder scores three product features with a small baseline so
// that no vector is zero.
type featureEmbedder struct {
	calls int
}

var features = []string{"soap", "cloth", "vacuum"}

func (e *featureEmbedder) Embed(_ context.Context, text string) (EmbeddingResult, error) {
	e.calls++
	lower := strings.ToLower(text)
	vec := make([]float32, len(features))
	for i, f := range features {
		vec[i] = 0.1
		if strings.Contains(lower, f) {
			vec[i] += 1
		}
	}
	return EmbeddingResult{Embedding: vec, PromptTokens: 1, TotalTokens: 1}, nil
}

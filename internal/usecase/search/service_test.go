package search

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/kailas-cloud/catalogsearch/internal/domain"
	"github.com/kailas-cloud/catalogsearch/internal/domain/product"
	"github.com/kailas-cloud/catalogsearch/internal/domain/search/filter"
	"github.com/kailas-cloud/catalogsearch/internal/domain/search/mode"
	"github.com/kailas-cloud/catalogsearch/internal/domain/search/request"
	"github.com/kailas-cloud/catalogsearch/internal/domain/search/result"
)

// --- Mocks ---

type mockChunks struct {
	hits          []result.ChunkHit
	err           error
	called        bool
	lastThreshold float64
	lastTopN      int
	lastPred      filter.Predicate
}

func (m *mockChunks) QueryBySimilarity(
	_ context.Context, _ []float32, pred filter.Predicate, threshold float64, topN int,
) ([]result.ChunkHit, error) {
	m.called = true
	m.lastPred = pred
	m.lastThreshold = threshold
	m.lastTopN = topN
	return m.hits, m.err
}

type mockLexical struct {
	hits       []result.LexicalHit
	err        error
	called     bool
	lastTopN   int
	lastOffset int
	lastPred   filter.Predicate
}

func (m *mockLexical) QueryByText(
	_ context.Context, _ string, pred filter.Predicate, topN, offset int,
) ([]result.LexicalHit, error) {
	m.called = true
	m.lastPred = pred
	m.lastTopN = topN
	m.lastOffset = offset
	return m.hits, m.err
}

type mockMeta struct {
	mu       sync.Mutex
	products map[string]product.Product
	err      error
	lastIDs  []string
}

func (m *mockMeta) GetByIDs(_ context.Context, ids []string) ([]product.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastIDs = ids
	if m.err != nil {
		return nil, m.err
	}
	var out []product.Product
	// reverse order: callers must not rely on store ordering
	for i := len(ids) - 1; i >= 0; i-- {
		if p, ok := m.products[ids[i]]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

type mockEmbedder struct {
	vec    []float32
	err    error
	called bool
}

func (m *mockEmbedder) Embed(_ context.Context, _ string) (domain.EmbeddingResult, error) {
	m.called = true
	if m.err != nil {
		return domain.EmbeddingResult{}, m.err
	}
	return domain.EmbeddingResult{Embedding: m.vec}, nil
}

type mockCorpus struct {
	dims int
	err  error
}

func (m *mockCorpus) Dimensions(_ context.Context) (int, error) { return m.dims, m.err }

func boolPtr(b bool) *bool { return &b }

func catalog(ids ...string) *mockMeta {
	m := &mockMeta{products: make(map[string]product.Product)}
	for _, id := range ids {
		m.products[id] = product.Product{ID: id, Name: "Product " + id}
	}
	return m
}

func makeRequest(t *testing.T, p request.Params) *request.Request {
	t.Helper()
	if p.Query == "" {
		p.Query = "umweltfreundliche Reinigungsmittel"
	}
	r, err := request.New(p)
	if err != nil {
		t.Fatalf("request.New: %v", err)
	}
	return &r
}

// --- Tests ---

func TestSearch_VectorMode(t *testing.T) {
	chunks := &mockChunks{hits: []result.ChunkHit{
		{ProductID: "a", ChunkID: "a#0", Similarity: 0.9},
		{ProductID: "a", ChunkID: "a#1", Position: 1, Similarity: 0.5},
		{ProductID: "a", ChunkID: "a#2", Position: 2, Similarity: 0.7},
		{ProductID: "b", ChunkID: "b#0", Similarity: 0.8},
	}}
	lex := &mockLexical{}
	embed := &mockEmbedder{vec: []float32{0.1, 0.2}}
	svc := New(chunks, lex, catalog("a", "b"), embed)

	results, err := svc.Search(context.Background(), makeRequest(t, request.Params{Limit: 5}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !embed.called || !chunks.called {
		t.Error("expected embedder and chunk store to be called")
	}
	if lex.called {
		t.Error("lexical store must not be called in vector mode")
	}
	if chunks.lastTopN != 15 {
		t.Errorf("topN = %d, want limit*3 = 15", chunks.lastTopN)
	}
	if chunks.lastThreshold != request.DefaultThreshold {
		t.Errorf("threshold = %f", chunks.lastThreshold)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].ProductID != "a" || !approx(results[0].Similarity, 0.84) {
		t.Errorf("first = %s/%f, want a/0.84", results[0].ProductID, results[0].Similarity)
	}
	if results[1].ProductID != "b" || !approx(results[1].Similarity, 0.8) {
		t.Errorf("second = %s/%f, want b/0.8", results[1].ProductID, results[1].Similarity)
	}
	if results[0].Chunks != nil {
		t.Error("chunks must not be attached unless requested")
	}
}

func TestSearch_IncludeChunks(t *testing.T) {
	chunks := &mockChunks{hits: []result.ChunkHit{
		{ProductID: "a", ChunkID: "a#0", Similarity: 0.6, Content: "overview"},
		{ProductID: "a", ChunkID: "a#1", Position: 1, Similarity: 0.9, Content: "specs"},
		{ProductID: "a", ChunkID: "a#2", Position: 2, Similarity: 0.7},
		{ProductID: "a", ChunkID: "a#3", Position: 3, Similarity: 0.8},
	}}
	svc := New(chunks, &mockLexical{}, catalog("a"), &mockEmbedder{vec: []float32{1}})

	results, err := svc.Search(context.Background(), makeRequest(t, request.Params{IncludeChunks: boolPtr(true)}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got := results[0].Chunks
	if len(got) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(got))
	}
	if got[0].ChunkID != "a#1" || got[0].Content != "specs" {
		t.Errorf("best chunk first, got %+v", got[0])
	}
}

func TestSearch_VectorOffset(t *testing.T) {
	chunks := &mockChunks{hits: []result.ChunkHit{
		{ProductID: "a", Similarity: 0.9},
		{ProductID: "b", Similarity: 0.8},
		{ProductID: "c", Similarity: 0.7},
	}}
	svc := New(chunks, &mockLexical{}, catalog("a", "b", "c"), &mockEmbedder{vec: []float32{1}})

	results, err := svc.Search(context.Background(), makeRequest(t, request.Params{Offset: 1, Limit: 1}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 1 || results[0].ProductID != "b" {
		t.Errorf("expected [b], got %v", ids(results))
	}
}

func TestSearch_KeywordMode(t *testing.T) {
	lex := &mockLexical{hits: []result.LexicalHit{
		{ProductID: "a", Score: 0.4},
		{ProductID: "b", Score: 0.6},
	}}
	chunks := &mockChunks{}
	embed := &mockEmbedder{}
	svc := New(chunks, lex, catalog("a", "b"), embed)

	results, err := svc.Search(context.Background(), makeRequest(t, request.Params{Mode: mode.Keyword, Offset: 3}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if embed.called || chunks.called {
		t.Error("keyword mode must not embed or query chunks")
	}
	if lex.lastOffset != 3 || lex.lastTopN != request.DefaultLimit {
		t.Errorf("lexical called with topN=%d offset=%d", lex.lastTopN, lex.lastOffset)
	}
	if got := ids(results); len(got) != 2 || got[0] != "b" {
		t.Errorf("order = %v, want [b a]", got)
	}
	if results[0].Similarity != 0.6 {
		t.Errorf("keyword score must pass through, got %f", results[0].Similarity)
	}
}

func TestHybridSearch_FusesUnion(t *testing.T) {
	chunks := &mockChunks{hits: []result.ChunkHit{
		{ProductID: "both", Similarity: 0.8},
		{ProductID: "vec", Similarity: 0.6},
	}}
	lex := &mockLexical{hits: []result.LexicalHit{
		{ProductID: "both", Score: 0.4},
		{ProductID: "lex", Score: 0.9},
	}}
	svc := New(chunks, lex, catalog("both", "vec", "lex"), &mockEmbedder{vec: []float32{1}})

	// HybridSearch forces hybrid even for a vector-mode request.
	results, err := svc.HybridSearch(context.Background(), makeRequest(t, request.Params{Offset: 2}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !chunks.called || !lex.called {
		t.Fatal("hybrid must query both stores")
	}
	if lex.lastOffset != 0 {
		t.Errorf("hybrid lexical offset = %d, want 0", lex.lastOffset)
	}
	if len(results) != 3 {
		t.Fatalf("expected union of 3 products, got %v", ids(results))
	}
	want := map[string]float64{"both": 0.68, "vec": 0.42, "lex": 0.27}
	for _, r := range results {
		if !approx(r.Similarity, want[r.ProductID]) {
			t.Errorf("%s similarity = %f, want %f", r.ProductID, r.Similarity, want[r.ProductID])
		}
	}
	for i := 1; i < len(results); i++ {
		if results[i].Similarity > results[i-1].Similarity {
			t.Errorf("results not sorted: %v", ids(results))
		}
	}
}

func TestHybridSearch_ZeroWeights(t *testing.T) {
	zero := 0.0
	req := makeRequest(t, request.Params{VectorWeight: &zero, KeywordWeight: &zero})
	svc := New(&mockChunks{}, &mockLexical{}, catalog(), &mockEmbedder{vec: []float32{1}})

	_, err := svc.HybridSearch(context.Background(), req)
	if !errors.Is(err, domain.ErrInvalidRequest) {
		t.Errorf("expected ErrInvalidRequest, got %v", err)
	}
}

func TestSearch_PassesPredicateToBothStores(t *testing.T) {
	chunks := &mockChunks{}
	lex := &mockLexical{}
	svc := New(chunks, lex, catalog(), &mockEmbedder{vec: []float32{1}})

	req := makeRequest(t, request.Params{
		Mode:    mode.Hybrid,
		Filters: &filter.Filters{Brands: []string{"GreenHome"}},
	})
	if _, err := svc.Search(context.Background(), req); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(chunks.lastPred.Brands()) != 1 || len(lex.lastPred.Brands()) != 1 {
		t.Error("both retrievers must receive the compiled predicate")
	}
}

func TestSearch_EmptyResultIsNotError(t *testing.T) {
	meta := catalog()
	svc := New(&mockChunks{}, &mockLexical{}, meta, &mockEmbedder{vec: []float32{1}})

	results, err := svc.Search(context.Background(), makeRequest(t, request.Params{}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if results == nil || len(results) != 0 {
		t.Errorf("expected empty non-nil slice, got %v", results)
	}
	if meta.lastIDs != nil {
		t.Error("metadata store must not be queried without candidates")
	}
}

func TestSearch_DropsOrphans(t *testing.T) {
	chunks := &mockChunks{hits: []result.ChunkHit{
		{ProductID: "a", Similarity: 0.9},
		{ProductID: "gone", Similarity: 0.8},
		{ProductID: "b", Similarity: 0.7},
	}}
	svc := New(chunks, &mockLexical{}, catalog("a", "b"), &mockEmbedder{vec: []float32{1}})

	results, err := svc.Search(context.Background(), makeRequest(t, request.Params{}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := ids(results); len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Errorf("expected [a b] in rank order, got %v", got)
	}
}

func TestSearch_Deterministic(t *testing.T) {
	chunks := &mockChunks{hits: []result.ChunkHit{
		{ProductID: "c", Similarity: 0.7},
		{ProductID: "a", Similarity: 0.7},
		{ProductID: "b", Similarity: 0.7},
	}}
	svc := New(chunks, &mockLexical{}, catalog("a", "b", "c"), &mockEmbedder{vec: []float32{1}})
	req := makeRequest(t, request.Params{})

	first, err := svc.Search(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for range 5 {
		again, err := svc.Search(context.Background(), req)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got, want := ids(again), ids(first); len(got) != len(want) || got[0] != want[0] || got[1] != want[1] || got[2] != want[2] {
			t.Fatalf("order changed: %v vs %v", got, want)
		}
	}
	if got := ids(first); got[0] != "a" || got[1] != "b" || got[2] != "c" {
		t.Errorf("ties must break by product id, got %v", got)
	}
}

func TestSearch_Rerank(t *testing.T) {
	p := func(f float64) *float64 { return &f }
	meta := &mockMeta{products: map[string]product.Product{
		"a": {ID: "a", Category: "Cleaning", Brand: "GreenHome", Price: p(10)},
		"b": {ID: "b", Category: "Cleaning", Brand: "GreenHome", Price: p(10.5)},
		"c": {ID: "c", Category: "Laundry", Brand: "Sonett", Price: p(30)},
	}}
	chunks := &mockChunks{hits: []result.ChunkHit{
		{ProductID: "a", Similarity: 0.95},
		{ProductID: "b", Similarity: 0.94},
		{ProductID: "c", Similarity: 0.90},
	}}
	svc := New(chunks, &mockLexical{}, meta, &mockEmbedder{vec: []float32{1}})

	plain, _ := svc.Search(context.Background(), makeRequest(t, request.Params{}))
	reranked, err := svc.Search(context.Background(), makeRequest(t, request.Params{Rerank: boolPtr(true)}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := ids(plain); got[1] != "b" {
		t.Fatalf("relevance order expected b second, got %v", got)
	}
	if got := ids(reranked); got[0] != "a" || got[1] != "c" || got[2] != "b" {
		t.Errorf("reranked = %v, want [a c b]", got)
	}
}

func TestSearch_WithSimilarityOption(t *testing.T) {
	chunks := &mockChunks{hits: []result.ChunkHit{
		{ProductID: "a", Similarity: 0.9},
		{ProductID: "b", Similarity: 0.8},
		{ProductID: "c", Similarity: 0.7},
	}}
	called := false
	sim := SimilarityFunc(func(_, _ *result.SearchResult) float64 {
		called = true
		return 0
	})
	svc := New(chunks, &mockLexical{}, catalog("a", "b", "c"), &mockEmbedder{vec: []float32{1}}, WithSimilarity(sim))

	if _, err := svc.Search(context.Background(), makeRequest(t, request.Params{Rerank: boolPtr(true)})); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !called {
		t.Error("custom similarity was not used")
	}
}

func TestSearch_EmbedderError(t *testing.T) {
	chunks := &mockChunks{}
	svc := New(chunks, &mockLexical{}, catalog(), &mockEmbedder{err: errors.New("timeout")})

	_, err := svc.Search(context.Background(), makeRequest(t, request.Params{}))
	if !errors.Is(err, domain.ErrEmbeddingProviderError) {
		t.Errorf("expected ErrEmbeddingProviderError, got %v", err)
	}
	if chunks.called {
		t.Error("chunk store must not be called after embedding failure")
	}
}

func TestSearch_EmbeddingDimensionMismatch(t *testing.T) {
	svc := New(&mockChunks{}, &mockLexical{}, catalog(), &mockEmbedder{vec: []float32{1, 2}},
		WithCorpusCheck(&mockCorpus{dims: 3}, 3))

	_, err := svc.Search(context.Background(), makeRequest(t, request.Params{}))
	if !errors.Is(err, domain.ErrEmbeddingProviderError) || !errors.Is(err, domain.ErrVectorDimMismatch) {
		t.Errorf("expected provider + dimension errors, got %v", err)
	}
	if domain.IsConfigError(err) {
		t.Error("a bad provider response is not a configuration error")
	}
}

func TestSearch_StoreErrors(t *testing.T) {
	tests := []struct {
		name string
		mode mode.Mode
		ch   *mockChunks
		lex  *mockLexical
		meta *mockMeta
	}{
		{"vector store", mode.Vector, &mockChunks{err: errors.New("conn refused")}, &mockLexical{}, catalog()},
		{"lexical store", mode.Hybrid, &mockChunks{}, &mockLexical{err: errors.New("conn refused")}, catalog()},
		{
			"metadata store", mode.Vector,
			&mockChunks{hits: []result.ChunkHit{{ProductID: "a", Similarity: 0.9}}},
			&mockLexical{}, &mockMeta{err: errors.New("conn refused")},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := New(tt.ch, tt.lex, tt.meta, &mockEmbedder{vec: []float32{1}})
			_, err := svc.Search(context.Background(), makeRequest(t, request.Params{Mode: tt.mode}))
			if !errors.Is(err, domain.ErrStoreUnavailable) {
				t.Errorf("expected ErrStoreUnavailable, got %v", err)
			}
		})
	}
}

func TestSearch_StoreErrorNotDoubleWrapped(t *testing.T) {
	inner := errors.Join(domain.ErrStoreUnavailable, errors.New("down"))
	svc := New(&mockChunks{err: inner}, &mockLexical{}, catalog(), &mockEmbedder{vec: []float32{1}})

	_, err := svc.Search(context.Background(), makeRequest(t, request.Params{}))
	if !errors.Is(err, inner) {
		t.Errorf("expected original error in chain, got %v", err)
	}
}

func TestVerify(t *testing.T) {
	tests := []struct {
		name    string
		corpus  *mockCorpus
		dims    int
		wantErr error
	}{
		{"match", &mockCorpus{dims: 1536}, 1536, nil},
		{"mismatch", &mockCorpus{dims: 768}, 1536, domain.ErrVectorDimMismatch},
		{"missing corpus", &mockCorpus{err: domain.ErrCorpusNotFound}, 1536, domain.ErrCorpusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := New(&mockChunks{}, &mockLexical{}, catalog(), &mockEmbedder{}, WithCorpusCheck(tt.corpus, tt.dims))
			err := svc.Verify(context.Background())
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
			if !domain.IsConfigError(err) {
				t.Errorf("expected a configuration error, got %v", err)
			}
		})
	}
}

func TestVerify_WithoutCorpusCheck(t *testing.T) {
	svc := New(&mockChunks{}, &mockLexical{}, catalog(), &mockEmbedder{})
	if err := svc.Verify(context.Background()); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestSearch_VectorCandidatesCoverOffset(t *testing.T) {
	tests := []struct {
		name   string
		mode   mode.Mode
		offset int
		want   int
	}{
		{"vector first page", mode.Vector, 0, 6},
		{"vector second page", mode.Vector, 2, 12},
		{"vector third page", mode.Vector, 4, 18},
		{"hybrid ranks from the top", mode.Hybrid, 4, 6},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chunks := &mockChunks{}
			svc := New(chunks, &mockLexical{}, catalog(), &mockEmbedder{vec: []float32{1}})

			req := makeRequest(t, request.Params{Mode: tt.mode, Limit: 2, Offset: tt.offset})
			if _, err := svc.Search(context.Background(), req); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if chunks.lastTopN != tt.want {
				t.Errorf("topN = %d, want %d", chunks.lastTopN, tt.want)
			}
		})
	}
}

package request

import (
	"fmt"
	"math"
	"strings"

	"github.com/kailas-cloud/catalogsearch/internal/domain"
	"github.com/kailas-cloud/catalogsearch/internal/domain/search/filter"
	"github.com/kailas-cloud/catalogsearch/internal/domain/search/mode"
)

// Search parameter limits and defaults.
const (
	// MaxQueryLength is the maximum allowed search query length.
	MaxQueryLength       = 4096
	DefaultLimit         = 10
	MaxLimit             = 100
	DefaultThreshold     = 0.5
	DefaultVectorWeight  = 0.7
	DefaultKeywordWeight = 0.3
	// CandidateMultiplier oversamples vector candidates so that products
	// with several matching chunks still leave room for others.
	CandidateMultiplier = 3
)

// Params are the raw, caller-supplied search options. Nil pointers select defaults.
type Params struct {
	Query         string
	Mode          mode.Mode
	Limit         int
	Offset        int
	Threshold     *float64
	Filters       *filter.Filters
	IncludeChunks *bool
	Rerank        *bool
	VectorWeight  *float64
	KeywordWeight *float64
}

// Request is a validated search query.
type Request struct {
	query         string
	searchMode    mode.Mode
	limit         int
	offset        int
	threshold     float64
	predicate     filter.Predicate
	includeChunks bool
	rerank        bool
	vectorWeight  float64
	keywordWeight float64
}

// New validates and normalizes search parameters.
// Defaults: mode=vector, limit=10, threshold=0.5, weights 0.7/0.3.
// Limit is clamped to [1, MaxLimit]; a negative offset is treated as 0.
func New(p Params) (Request, error) {
	if strings.TrimSpace(p.Query) == "" {
		return Request{}, fmt.Errorf("%w: query is required", domain.ErrInvalidRequest)
	}
	if len(p.Query) > MaxQueryLength {
		return Request{}, fmt.Errorf("%w: query too long (max %d chars)", domain.ErrInvalidRequest, MaxQueryLength)
	}

	m := p.Mode
	if m == "" {
		m = mode.Vector
	}
	if !m.IsValid() {
		return Request{}, fmt.Errorf("%w: invalid search mode: %q", domain.ErrInvalidRequest, m)
	}

	limit := p.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	offset := max(p.Offset, 0)

	threshold := valueOr(p.Threshold, DefaultThreshold)
	if math.IsNaN(threshold) || threshold < -1 || threshold > 1 {
		return Request{}, fmt.Errorf("%w: threshold must be between -1 and 1", domain.ErrInvalidRequest)
	}

	vw := valueOr(p.VectorWeight, DefaultVectorWeight)
	kw := valueOr(p.KeywordWeight, DefaultKeywordWeight)
	if !isWeight(vw) || !isWeight(kw) {
		return Request{}, fmt.Errorf("%w: weights must be finite and non-negative", domain.ErrInvalidRequest)
	}
	if m == mode.Hybrid && vw == 0 && kw == 0 {
		return Request{}, fmt.Errorf("%w: vector and keyword weights cannot both be zero", domain.ErrInvalidRequest)
	}

	return Request{
		query:         p.Query,
		searchMode:    m,
		limit:         limit,
		offset:        offset,
		threshold:     threshold,
		predicate:     p.Filters.Compile(),
		includeChunks: boolOr(p.IncludeChunks, false),
		rerank:        boolOr(p.Rerank, false),
		vectorWeight:  vw,
		keywordWeight: kw,
	}, nil
}

// WithDefaults fills the unset fields of p from d. An explicit false in p
// overrides a true default.
func (p Params) WithDefaults(d Params) Params {
	if p.Mode == "" {
		p.Mode = d.Mode
	}
	if p.Limit <= 0 {
		p.Limit = d.Limit
	}
	if p.Threshold == nil {
		p.Threshold = d.Threshold
	}
	if p.Filters == nil {
		p.Filters = d.Filters
	}
	if p.VectorWeight == nil {
		p.VectorWeight = d.VectorWeight
	}
	if p.KeywordWeight == nil {
		p.KeywordWeight = d.KeywordWeight
	}
	if p.IncludeChunks == nil {
		p.IncludeChunks = d.IncludeChunks
	}
	if p.Rerank == nil {
		p.Rerank = d.Rerank
	}
	return p
}

// Query returns the search query text.
func (r *Request) Query() string { return r.query }

// Mode returns the search strategy.
func (r *Request) Mode() mode.Mode { return r.searchMode }

// Limit returns the maximum number of products to return.
func (r *Request) Limit() int { return r.limit }

// Offset returns the number of leading products to skip.
func (r *Request) Offset() int { return r.offset }

// Threshold returns the exclusive lower bound on chunk similarity.
func (r *Request) Threshold() float64 { return r.threshold }

// Predicate returns the compiled metadata filter.
func (r *Request) Predicate() filter.Predicate { return r.predicate }

// IncludeChunks reports whether matching chunks should be attached to results.
func (r *Request) IncludeChunks() bool { return r.includeChunks }

// Rerank reports whether MMR reranking was requested.
func (r *Request) Rerank() bool { return r.rerank }

// VectorWeight returns the hybrid weight of the vector score.
func (r *Request) VectorWeight() float64 { return r.vectorWeight }

// KeywordWeight returns the hybrid weight of the lexical score.
func (r *Request) KeywordWeight() float64 { return r.keywordWeight }

// CandidateCount returns how many chunks to ask the vector store for.
// Vector-only searches page after aggregation, so their window covers
// offset+limit products; hybrid fusion always ranks from the top.
func (r *Request) CandidateCount(m mode.Mode) int {
	window := r.limit
	if m == mode.Vector {
		window += r.offset
	}
	return window * CandidateMultiplier
}

func valueOr(p *float64, def float64) float64 {
	if p == nil {
		return def
	}
	return *p
}

func boolOr(p *bool, def bool) bool {
	if p == nil {
		return def
	}
	return *p
}

func isWeight(w float64) bool {
	return w >= 0 && !math.IsInf(w, 0) && !math.IsNaN(w)
}

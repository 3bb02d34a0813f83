package catalog

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/kailas-cloud/catalogsearch/internal/db"
	"github.com/kailas-cloud/catalogsearch/internal/domain"
	"github.com/kailas-cloud/catalogsearch/internal/domain/product"
	"github.com/kailas-cloud/catalogsearch/internal/domain/search/filter"
	"github.com/kailas-cloud/catalogsearch/internal/domain/search/result"
	"github.com/kailas-cloud/catalogsearch/internal/textsim"
)

// DefaultPrefix is the key namespace used when none is configured.
const DefaultPrefix = "catalog:"

// pageSize bounds one FT.SEARCH listing page or one HGETALL pipeline.
const pageSize = 500

// store is the consumer interface for catalog reads (ISP).
type store interface {
	db.Pinger
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	HGetAllMulti(ctx context.Context, keys []string) ([]map[string]string, error)
	Scan(ctx context.Context, pattern string) ([]string, error)
	IndexExists(ctx context.Context, name string) (bool, error)
	SupportsFilterQueries(ctx context.Context) bool
	SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
	SearchList(ctx context.Context, q *db.ListQuery) (*db.SearchResult, error)
}

// Repo implements usecase/search.Store over Redis or Valkey hashes.
//
// Layout under prefix:
//
//	<prefix>product:<id>   product hash
//	<prefix>chunk:<id>     chunk hash with embedding and denormalized filter fields
//	<prefix>products:idx   FT index over product hashes
//	<prefix>chunks:idx     FT index over chunk hashes (vector field "embedding")
//	<prefix>meta           corpus metadata hash (field "dimensions")
type Repo struct {
	store  store
	prefix string
}

// New creates a catalog repository. An empty prefix selects DefaultPrefix.
func New(s store, prefix string) *Repo {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &Repo{store: s, prefix: prefix}
}

// Ping checks store connectivity for health reporting.
func (r *Repo) Ping(ctx context.Context) error {
	if err := r.store.Ping(ctx); err != nil {
		return fmt.Errorf("catalog ping: %w", err)
	}
	return nil
}

// QueryBySimilarity runs a pre-filtered KNN over the chunk index and keeps
// hits strictly above threshold.
func (r *Repo) QueryBySimilarity(
	ctx context.Context, vector []float32,
	pred filter.Predicate, threshold float64, topN int,
) ([]result.ChunkHit, error) {
	if topN <= 0 {
		return []result.ChunkHit{}, nil
	}

	sr, err := r.store.SearchKNN(ctx, &db.KNNQuery{
		IndexName: r.chunkIndex(),
		Filter:    pred,
		Vector:    vector,
		K:         topN,
		ReturnFields: []string{
			fieldProductID, fieldChunkType, fieldPosition, fieldTextContent, "__vector_score",
		},
	})
	if err != nil {
		return nil, fmt.Errorf("search chunks: %w", err)
	}

	hits := make([]result.ChunkHit, 0, len(sr.Entries))
	for _, e := range sr.Entries {
		hit, ok := chunkHitFromEntry(strings.TrimPrefix(e.Key, r.chunkPrefix()), e)
		if !ok || math.IsNaN(hit.Similarity) || hit.Similarity <= threshold {
			continue
		}
		hits = append(hits, hit)
	}

	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].Similarity != hits[j].Similarity {
			return hits[i].Similarity > hits[j].Similarity
		}
		return hits[i].ChunkID < hits[j].ChunkID
	})
	if len(hits) > topN {
		hits = hits[:topN]
	}
	return hits, nil
}

// QueryByText scores every predicate-matching product by trigram similarity
// of its display fields. Redis lists candidates through the product index;
// Valkey, which only serves KNN queries, falls back to SCAN and evaluates
// the predicate in process.
func (r *Repo) QueryByText(
	ctx context.Context, text string,
	pred filter.Predicate, topN, offset int,
) ([]result.LexicalHit, error) {
	if topN <= 0 {
		return []result.LexicalHit{}, nil
	}

	scorer := textsim.NewScorer(text)
	var hits []result.LexicalHit
	collect := func(id string, fields map[string]string) {
		score := scorer.Best(
			fields[fieldName], fields[fieldDescription], fields[fieldCategory], fields[fieldBrand],
		)
		if score > 0 {
			hits = append(hits, result.LexicalHit{ProductID: id, Name: fields[fieldName], Score: score})
		}
	}

	var err error
	if r.store.SupportsFilterQueries(ctx) {
		err = r.listIndexed(ctx, pred, collect)
	} else {
		err = r.listScanned(ctx, pred, collect)
	}
	if err != nil {
		return nil, err
	}

	return result.RankLexical(hits, topN, offset), nil
}

func (r *Repo) listIndexed(ctx context.Context, pred filter.Predicate, collect func(string, map[string]string)) error {
	for offset := 0; ; offset += pageSize {
		sr, err := r.store.SearchList(ctx, &db.ListQuery{
			IndexName:    r.productIndex(),
			Filter:       pred,
			Offset:       offset,
			Limit:        pageSize,
			ReturnFields: lexicalFields,
		})
		if err != nil {
			return fmt.Errorf("list products: %w", err)
		}
		for _, e := range sr.Entries {
			collect(strings.TrimPrefix(e.Key, r.productPrefix()), e.Fields)
		}
		if len(sr.Entries) == 0 || offset+pageSize >= sr.Total {
			return nil
		}
	}
}

func (r *Repo) listScanned(ctx context.Context, pred filter.Predicate, collect func(string, map[string]string)) error {
	keys, err := r.store.Scan(ctx, r.productPrefix()+"*")
	if err != nil {
		return fmt.Errorf("scan products: %w", err)
	}
	sort.Strings(keys) // deterministic ordering

	for start := 0; start < len(keys); start += pageSize {
		batch := keys[start:min(start+pageSize, len(keys))]
		rows, err := r.store.HGetAllMulti(ctx, batch)
		if err != nil {
			return fmt.Errorf("load products: %w", err)
		}
		for i, row := range rows {
			if len(row) == 0 {
				continue // deleted between SCAN and HGETALL
			}
			id := strings.TrimPrefix(batch[i], r.productPrefix())
			p, err := productFromHash(id, row)
			if err != nil {
				return err
			}
			if pred.Match(&p) {
				collect(p.ID, row)
			}
		}
	}
	return nil
}

// GetByIDs loads product hashes in one pipeline. Unknown ids are omitted.
func (r *Repo) GetByIDs(ctx context.Context, ids []string) ([]product.Product, error) {
	if len(ids) == 0 {
		return []product.Product{}, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = r.productKey(id)
	}

	rows, err := r.store.HGetAllMulti(ctx, keys)
	if err != nil {
		return nil, fmt.Errorf("get products: %w", err)
	}

	out := make([]product.Product, 0, len(rows))
	for i, row := range rows {
		if len(row) == 0 {
			continue
		}
		p, err := productFromHash(ids[i], row)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

// Dimensions reads the corpus embedding dimension recorded by ingestion.
// A missing chunk index or metadata hash is domain.ErrCorpusNotFound.
func (r *Repo) Dimensions(ctx context.Context) (int, error) {
	exists, err := r.store.IndexExists(ctx, r.chunkIndex())
	if err != nil {
		return 0, fmt.Errorf("check chunk index: %w", err)
	}
	if !exists {
		return 0, fmt.Errorf("index %s: %w", r.chunkIndex(), domain.ErrCorpusNotFound)
	}

	meta, err := r.store.HGetAll(ctx, r.metaKey())
	if err != nil {
		return 0, fmt.Errorf("read corpus meta: %w", err)
	}
	s, ok := meta[fieldDimensions]
	if !ok {
		return 0, fmt.Errorf("%s has no %s: %w", r.metaKey(), fieldDimensions, domain.ErrCorpusNotFound)
	}
	dims, err := strconv.Atoi(s)
	if err != nil || dims <= 0 {
		return 0, fmt.Errorf("invalid corpus dimensions %q", s)
	}
	return dims, nil
}

func (r *Repo) productKey(id string) string { return r.productPrefix() + id }
func (r *Repo) productPrefix() string      { return r.prefix + "product:" }
func (r *Repo) chunkPrefix() string        { return r.prefix + "chunk:" }
func (r *Repo) productIndex() string       { return r.prefix + "products:idx" }
func (r *Repo) chunkIndex() string         { return r.prefix + "chunks:idx" }
func (r *Repo) metaKey() string            { return r.prefix + "meta" }

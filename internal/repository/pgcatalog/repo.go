// Package pgcatalog serves the retrieval contracts from Postgres with the
// pgvector and pg_trgm extensions.
//
// Expected schema:
//
//	products(id text primary key, shop_id text, name text, description text,
//	         url text, brand text, category text, subcategory text,
//	         price double precision, currency text, availability text,
//	         product_type text, rating_value double precision,
//	         rating_count integer, claims jsonb, specifications jsonb,
//	         images jsonb)
//	product_chunks(id text primary key, product_id text references products,
//	               chunk_type text, position integer, text_content text,
//	               embedding vector(N))
package pgcatalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/kailas-cloud/catalogsearch/internal/domain"
	"github.com/kailas-cloud/catalogsearch/internal/domain/product"
	"github.com/kailas-cloud/catalogsearch/internal/domain/search/filter"
	"github.com/kailas-cloud/catalogsearch/internal/domain/search/result"
)

// pgUndefinedTable is the SQLSTATE for a missing relation.
const pgUndefinedTable = "42P01"

// Querier is the subset of pgxpool.Pool the repository uses.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
}

// Repo implements usecase/search.Store over Postgres.
type Repo struct {
	q Querier
}

// New creates a Postgres catalog repository.
func New(q Querier) *Repo {
	return &Repo{q: q}
}

// Ping checks database connectivity for health reporting.
func (r *Repo) Ping(ctx context.Context) error {
	if err := r.q.Ping(ctx); err != nil {
		return fmt.Errorf("postgres ping: %w", err)
	}
	return nil
}

// QueryBySimilarity returns the nearest chunks of matching products.
func (r *Repo) QueryBySimilarity(
	ctx context.Context, vector []float32,
	pred filter.Predicate, threshold float64, topN int,
) ([]result.ChunkHit, error) {
	if topN <= 0 {
		return []result.ChunkHit{}, nil
	}

	sql, args := vectorQuery(vector, pred, threshold, topN)
	rows, err := r.q.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("query chunks: %w", err)
	}

	hits, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (result.ChunkHit, error) {
		var (
			h         result.ChunkHit
			chunkType string
		)
		err := row.Scan(&h.ChunkID, &h.ProductID, &chunkType, &h.Position, &h.Content, &h.Similarity)
		h.ChunkType = product.ChunkType(chunkType)
		return h, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan chunks: %w", err)
	}
	return hits, nil
}

// QueryByText ranks matching products by pg_trgm similarity.
func (r *Repo) QueryByText(
	ctx context.Context, text string,
	pred filter.Predicate, topN, offset int,
) ([]result.LexicalHit, error) {
	if topN <= 0 {
		return []result.LexicalHit{}, nil
	}

	sql, args := lexicalQuery(text, pred, topN, offset)
	rows, err := r.q.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("query products by text: %w", err)
	}

	hits, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (result.LexicalHit, error) {
		var h result.LexicalHit
		err := row.Scan(&h.ProductID, &h.Name, &h.Score)
		return h, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan lexical hits: %w", err)
	}
	return hits, nil
}

// GetByIDs loads products by id. Unknown ids are omitted.
func (r *Repo) GetByIDs(ctx context.Context, ids []string) ([]product.Product, error) {
	if len(ids) == 0 {
		return []product.Product{}, nil
	}

	sql, args := productsQuery(ids)
	rows, err := r.q.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("query products: %w", err)
	}

	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (product.Product, error) {
		var pr productRow
		if err := row.Scan(pr.targets()...); err != nil {
			return product.Product{}, err //nolint:wrapcheck // wrapped by caller
		}
		return pr.toDomain()
	})
	if err != nil {
		return nil, fmt.Errorf("scan products: %w", err)
	}
	return out, nil
}

// Dimensions reports the embedding dimension of the stored chunks. An empty
// or missing chunk table is domain.ErrCorpusNotFound.
func (r *Repo) Dimensions(ctx context.Context) (int, error) {
	var dims int
	err := r.q.QueryRow(ctx, dimensionsQuery).Scan(&dims)
	if err == nil {
		return dims, nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, fmt.Errorf("product_chunks is empty: %w", domain.ErrCorpusNotFound)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUndefinedTable {
		return 0, fmt.Errorf("%s: %w", pgErr.Message, domain.ErrCorpusNotFound)
	}
	return 0, fmt.Errorf("read dimensions: %w", err)
}

package pgcatalog

import (
	"strconv"
	"strings"

	pgvector "github.com/pgvector/pgvector-go"

	"github.com/kailas-cloud/catalogsearch/internal/domain/search/filter"
)

const productColumns = `p.id, p.shop_id, p.name, p.description, p.url, p.brand, p.category,
	p.subcategory, p.price, p.currency, p.availability, p.product_type,
	p.rating_value, p.rating_count, p.claims, p.specifications, p.images`

// args collects positional parameters.
type args []any

func (a *args) add(v any) string {
	*a = append(*a, v)
	return "$" + strconv.Itoa(len(*a))
}

// where renders the predicate as AND-ed conditions on the products alias p.
// A NULL price never satisfies a comparison, so unpriced products fail any
// price bound.
func where(pred filter.Predicate, a *args) string {
	var conds []string
	if id := pred.ShopID(); id != "" {
		conds = append(conds, "p.shop_id = "+a.add(id))
	}
	if lo := pred.MinPrice(); lo != nil {
		conds = append(conds, "p.price >= "+a.add(*lo))
	}
	if hi := pred.MaxPrice(); hi != nil {
		conds = append(conds, "p.price <= "+a.add(*hi))
	}
	if c := pred.Categories(); len(c) > 0 {
		conds = append(conds, "p.category = ANY("+a.add(c)+")")
	}
	if b := pred.Brands(); len(b) > 0 {
		conds = append(conds, "p.brand = ANY("+a.add(b)+")")
	}
	if av := pred.Availability(); len(av) > 0 {
		conds = append(conds, "p.availability = ANY("+a.add(stringsOf(av))+")")
	}
	if t := pred.ProductTypes(); len(t) > 0 {
		conds = append(conds, "p.product_type = ANY("+a.add(stringsOf(t))+")")
	}
	if len(conds) == 0 {
		return ""
	}
	return " AND " + strings.Join(conds, " AND ")
}

// vectorQuery selects chunks of matching products with cosine similarity
// strictly above threshold, nearest first.
func vectorQuery(vector []float32, pred filter.Predicate, threshold float64, topN int) (string, []any) {
	var a args
	vec := a.add(pgvector.NewVector(vector))
	thr := a.add(threshold)
	filters := where(pred, &a)
	limit := a.add(topN)

	sql := `SELECT c.id, c.product_id, c.chunk_type, c.position, c.text_content,
	1 - (c.embedding <=> ` + vec + `) AS similarity
FROM product_chunks c
JOIN products p ON p.id = c.product_id
WHERE 1 - (c.embedding <=> ` + vec + `) > ` + thr + filters + `
ORDER BY c.embedding <=> ` + vec + `, c.id
LIMIT ` + limit
	return sql, a
}

// lexicalQuery scores matching products by the best pg_trgm similarity of
// their display fields and keeps positive scores.
func lexicalQuery(text string, pred filter.Predicate, topN, offset int) (string, []any) {
	var a args
	q := a.add(text)
	filters := where(pred, &a)
	limit := a.add(topN)
	off := a.add(max(offset, 0))

	sql := `SELECT id, name, score FROM (
	SELECT p.id, p.name, GREATEST(
		similarity(p.name, ` + q + `),
		similarity(COALESCE(p.description, ''), ` + q + `),
		similarity(COALESCE(p.category, ''), ` + q + `),
		similarity(COALESCE(p.brand, ''), ` + q + `)
	) AS score
	FROM products p
	WHERE TRUE` + filters + `
) s
WHERE score > 0
ORDER BY score DESC, id
LIMIT ` + limit + ` OFFSET ` + off
	return sql, a
}

func productsQuery(ids []string) (string, []any) {
	return `SELECT ` + productColumns + `
FROM products p
WHERE p.id = ANY($1)`, []any{ids}
}

const dimensionsQuery = `SELECT vector_dims(embedding) FROM product_chunks LIMIT 1`

func stringsOf[T ~string](in []T) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = string(v)
	}
	return out
}

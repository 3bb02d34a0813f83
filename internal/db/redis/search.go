package redis

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/redis/rueidis"

	"github.com/kailas-cloud/catalogsearch/internal/db"
	"github.com/kailas-cloud/catalogsearch/internal/domain/search/filter"
)

const defaultVectorField = "embedding"

// Field names shared by the product index and the chunk index.
const (
	FieldShopID       = "shop_id"
	FieldCategory     = "category"
	FieldBrand        = "brand"
	FieldAvailability = "availability"
	FieldProductType  = "product_type"
	FieldPrice        = "price"
)

// ScoreField is the pseudo-field FT.SEARCH fills with the KNN distance.
const ScoreField = "__vector_score"

// SearchKNN runs a KNN vector similarity search via FT.SEARCH with the
// predicate applied as a pre-filter.
func (s *Store) SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error) {
	if q.IndexName == "" {
		return nil, fmt.Errorf("index name is required")
	}
	if len(q.Vector) == 0 {
		return nil, fmt.Errorf("vector is required")
	}
	if q.K <= 0 {
		return nil, fmt.Errorf("k must be positive")
	}

	field := q.VectorField
	if field == "" {
		field = defaultVectorField
	}

	knnPart := fmt.Sprintf("[KNN %d @%s $BLOB]", q.K, field)
	var queryStr string
	if filterStr := buildFilter(q.Filter); filterStr != "" {
		queryStr = fmt.Sprintf("(%s)=>%s", filterStr, knnPart)
	} else {
		queryStr = "*=>" + knnPart
	}

	args := []string{q.IndexName, queryStr}

	if len(q.ReturnFields) > 0 {
		args = append(args, "RETURN", strconv.Itoa(len(q.ReturnFields)))
		args = append(args, q.ReturnFields...)
	}

	args = append(args,
		"LIMIT", "0", strconv.Itoa(q.K), // default LIMIT is 10
		"PARAMS", "2", "BLOB", vectorToBytes(q.Vector),
		"DIALECT", "2",
	)

	cmd := s.b().Arbitrary("FT.SEARCH").Args(args...).Build()
	raw, err := s.do(ctx, cmd).ToArray()
	if err != nil {
		return nil, &db.Error{Op: db.OpSearch, Err: err}
	}

	return parseSearchResult(raw)
}

// SearchList pages through the records matching a predicate. An empty
// predicate lists the whole index.
func (s *Store) SearchList(ctx context.Context, q *db.ListQuery) (*db.SearchResult, error) {
	if q.IndexName == "" {
		return nil, fmt.Errorf("index name is required")
	}
	if q.Limit <= 0 {
		return nil, fmt.Errorf("limit must be positive")
	}
	if !s.SupportsFilterQueries(ctx) {
		return nil, &db.Error{Op: db.OpSearch, Err: errors.New("filter-only queries are not supported by " + string(s.flavor))}
	}

	query := buildFilter(q.Filter)
	if query == "" {
		query = "*"
	}

	args := []string{q.IndexName, query, "LIMIT", strconv.Itoa(max(q.Offset, 0)), strconv.Itoa(q.Limit)}

	if len(q.ReturnFields) > 0 {
		args = append(args, "RETURN", strconv.Itoa(len(q.ReturnFields)))
		args = append(args, q.ReturnFields...)
	}

	args = append(args, "DIALECT", "2")

	cmd := s.b().Arbitrary("FT.SEARCH").Args(args...).Build()
	raw, err := s.do(ctx, cmd).ToArray()
	if err != nil {
		return nil, &db.Error{Op: db.OpSearch, Err: err}
	}

	return parseSearchResult(raw)
}

// --- Result parsing ---

func parseSearchResult(raw []rueidis.RedisMessage) (*db.SearchResult, error) {
	if len(raw) == 0 {
		return &db.SearchResult{}, nil
	}

	total, err := raw[0].AsInt64()
	if err != nil {
		return nil, fmt.Errorf("parse total: %w", err)
	}
	if total == 0 {
		return &db.SearchResult{}, nil
	}

	entries := make([]db.SearchEntry, 0, (len(raw)-1)/2)
	// 2-stride: [total, key1, fields1, key2, fields2, ...]
	for i := 1; i+1 < len(raw); i += 2 {
		key, err := raw[i].ToString()
		if err != nil {
			continue
		}

		fields, err := raw[i+1].ToArray()
		if err != nil {
			continue
		}

		entry := db.SearchEntry{
			Key:    key,
			Fields: parseFieldPairs(fields),
		}

		if scoreStr, ok := entry.Fields[ScoreField]; ok {
			if d, err := strconv.ParseFloat(scoreStr, 64); err == nil {
				entry.Score = d
			}
			delete(entry.Fields, ScoreField)
		}

		entries = append(entries, entry)
	}

	return &db.SearchResult{Total: int(total), Entries: entries}, nil
}

func parseFieldPairs(fields []rueidis.RedisMessage) map[string]string {
	m := make(map[string]string, len(fields)/2)
	for j := 0; j+1 < len(fields); j += 2 {
		name, err := fields[j].ToString()
		if err != nil {
			continue
		}
		value, err := fields[j+1].ToString()
		if err != nil {
			continue
		}
		m[name] = value
	}
	return m
}

// --- Filter building ---

// buildFilter translates a compiled predicate into an FT.SEARCH query string.
// Clauses are joined by spaces (intersection); values inside a tag clause are
// alternatives. Tag fields must be declared CASESENSITIVE for exact matching.
func buildFilter(p filter.Predicate) string {
	if p.IsEmpty() {
		return ""
	}

	var parts []string

	if id := p.ShopID(); id != "" {
		parts = append(parts, buildTagFilter(FieldShopID, id))
	}
	if c := p.Categories(); len(c) > 0 {
		parts = append(parts, buildTagFilter(FieldCategory, c...))
	}
	if b := p.Brands(); len(b) > 0 {
		parts = append(parts, buildTagFilter(FieldBrand, b...))
	}
	if a := p.Availability(); len(a) > 0 {
		parts = append(parts, buildTagFilter(FieldAvailability, stringsOf(a)...))
	}
	if t := p.ProductTypes(); len(t) > 0 {
		parts = append(parts, buildTagFilter(FieldProductType, stringsOf(t)...))
	}
	if p.HasPriceRange() {
		parts = append(parts, buildNumericFilter(FieldPrice, p.MinPrice(), p.MaxPrice()))
	}

	return strings.Join(parts, " ")
}

func buildTagFilter(key string, values ...string) string {
	escaped := make([]string, len(values))
	for i, v := range values {
		escaped[i] = tagEscaper.Replace(v)
	}
	return fmt.Sprintf("@%s:{%s}", key, strings.Join(escaped, " | "))
}

// buildNumericFilter renders an inclusive range. Records without the field
// never match, so products without a price fail any price bound.
func buildNumericFilter(key string, lo, hi *float64) string {
	minBound := "-inf"
	maxBound := "+inf"
	if lo != nil {
		minBound = strconv.FormatFloat(*lo, 'g', -1, 64)
	}
	if hi != nil {
		maxBound = strconv.FormatFloat(*hi, 'g', -1, 64)
	}
	return fmt.Sprintf("@%s:[%s %s]", key, minBound, maxBound)
}

func stringsOf[T ~string](in []T) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = string(v)
	}
	return out
}

// --- Query helpers ---

var tagEscaper = strings.NewReplacer(
	",", "\\,",
	".", "\\.",
	"<", "\\<",
	">", "\\>",
	"{", "\\{",
	"}", "\\}",
	"|", "\\|",
	"\"", "\\\"",
	"'", "\\'",
	":", "\\:",
	";", "\\;",
	"!", "\\!",
	"@", "\\@",
	"#", "\\#",
	"$", "\\$",
	"%", "\\%",
	"^", "\\^",
	"&", "\\&",
	"*", "\\*",
	"(", "\\(",
	")", "\\)",
	"-", "\\-",
	"+", "\\+",
	"=", "\\=",
	"~", "\\~",
	"/", "\\/",
	" ", "\\ ",
)

func vectorToBytes(v []float32) string {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return string(buf)
}

package pgcatalog

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kailas-cloud/catalogsearch/internal/domain"
	"github.com/kailas-cloud/catalogsearch/internal/domain/product"
	"github.com/kailas-cloud/catalogsearch/internal/domain/search/filter"
)

type fakeRow struct {
	dims int
	err  error
}

func (r fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	*dest[0].(*int) = r.dims
	return nil
}

// fakeQuerier answers QueryRow with a fixed row; Query is never expected.
type fakeQuerier struct {
	row     fakeRow
	pingErr error
	queries int
}

func (f *fakeQuerier) Query(context.Context, string, ...any) (pgx.Rows, error) {
	f.queries++
	return nil, errors.New("unexpected query")
}

func (f *fakeQuerier) QueryRow(context.Context, string, ...any) pgx.Row { return f.row }

func (f *fakeQuerier) Ping(context.Context) error { return f.pingErr }

func TestDimensions(t *testing.T) {
	tests := []struct {
		name     string
		row      fakeRow
		want     int
		notFound bool
		wantErr  bool
	}{
		{"ok", fakeRow{dims: 1024}, 1024, false, false},
		{"empty table", fakeRow{err: pgx.ErrNoRows}, 0, true, true},
		{"missing table", fakeRow{err: &pgconn.PgError{Code: "42P01", Message: "relation does not exist"}}, 0, true, true},
		{"connection", fakeRow{err: errors.New("connection reset")}, 0, false, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := New(&fakeQuerier{row: tc.row}).Dimensions(context.Background())
			if tc.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}
			assert.Equal(t, tc.notFound, errors.Is(err, domain.ErrCorpusNotFound))
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestZeroTopNSkipsDatabase(t *testing.T) {
	q := &fakeQuerier{}
	r := New(q)
	ctx := context.Background()

	chunks, err := r.QueryBySimilarity(ctx, []float32{1}, filter.Predicate{}, 0, 0)
	require.NoError(t, err)
	assert.Empty(t, chunks)

	lex, err := r.QueryByText(ctx, "soap", filter.Predicate{}, 0, 0)
	require.NoError(t, err)
	assert.Empty(t, lex)

	products, err := r.GetByIDs(ctx, nil)
	require.NoError(t, err)
	assert.NotNil(t, products)
	assert.Zero(t, q.queries)
}

func TestQueryError_Wrapped(t *testing.T) {
	_, err := New(&fakeQuerier{}).GetByIDs(context.Background(), []string{"p1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "query products")
}

func TestPing(t *testing.T) {
	assert.NoError(t, New(&fakeQuerier{}).Ping(context.Background()))
	assert.Error(t, New(&fakeQuerier{pingErr: errors.New("down")}).Ping(context.Background()))
}

func TestProductRow_ToDomain(t *testing.T) {
	avail, typ, brand := "PREORDER", "digital", "GreenHome"
	price, rating := 4.99, 4.2
	count := int32(7)
	row := productRow{
		id:             "p1",
		name:           "Citrus Cleaner",
		brand:          &brand,
		price:          &price,
		availability:   &avail,
		productType:    &typ,
		ratingValue:    &rating,
		ratingCount:    &count,
		claims:         []byte(`["vegan","refillable"]`),
		specifications: []byte(`{"volume_ml":500}`),
	}

	p, err := row.toDomain()
	require.NoError(t, err)
	assert.Equal(t, "GreenHome", p.Brand)
	assert.Empty(t, p.Category)
	assert.Equal(t, product.PreOrder, p.Availability)
	assert.Equal(t, product.Digital, p.ProductType)
	assert.Equal(t, &product.Rating{Value: 4.2, Count: 7}, p.Rating)
	assert.Equal(t, []string{"vegan", "refillable"}, p.Claims)
	v, ok := p.Specifications["volume_ml"].Num()
	assert.True(t, ok)
	assert.Equal(t, 500.0, v)

	row.claims = []byte("{")
	_, err = row.toDomain()
	assert.Error(t, err)
}

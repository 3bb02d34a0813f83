package redis

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/redis/rueidis"
	"github.com/redis/rueidis/mock"
	"go.uber.org/mock/gomock"

	"github.com/kailas-cloud/catalogsearch/internal/db"
	"github.com/kailas-cloud/catalogsearch/internal/domain/product"
	"github.com/kailas-cloud/catalogsearch/internal/domain/search/filter"
)

// --- client.go tests ---

func TestPing_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("PING")).
		Return(mock.Result(mock.RedisString("PONG")))

	s := NewStoreForTest(c, FlavorRedis)
	if err := s.Ping(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestPing_Error(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("PING")).
		Return(mock.ErrorResult(context.DeadlineExceeded))

	s := NewStoreForTest(c, FlavorRedis)
	if err := s.Ping(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}

func TestNewStore_Validation(t *testing.T) {
	if _, err := NewStore(Config{}); err == nil {
		t.Error("expected error for empty addrs")
	}
	if _, err := NewStore(Config{Addrs: []string{"localhost:6379"}, Flavor: "dragonfly"}); err == nil {
		t.Error("expected error for unknown flavor")
	}
}

// --- hash.go tests ---

func TestHGetAll_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("HGETALL", "catalog:meta")).
		Return(mock.Result(mock.RedisMap(map[string]rueidis.RedisMessage{
			"dimensions": mock.RedisString("1024"),
		})))

	s := NewStoreForTest(c, FlavorRedis)
	m, err := s.HGetAll(context.Background(), "catalog:meta")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m["dimensions"] != "1024" {
		t.Errorf("unexpected map: %v", m)
	}
}

func TestHGetAll_Error(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("HGETALL", "catalog:meta")).
		Return(mock.ErrorResult(context.DeadlineExceeded))

	s := NewStoreForTest(c, FlavorRedis)
	_, err := s.HGetAll(context.Background(), "catalog:meta")
	if err == nil {
		t.Fatal("expected error")
	}
	if !isDBError(err) {
		t.Errorf("expected db.Error, got %T", err)
	}
}

func TestHGetAllMulti_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		DoMulti(gomock.Any(), gomock.Any(), gomock.Any()).
		Return([]rueidis.RedisResult{
			mock.Result(mock.RedisMap(map[string]rueidis.RedisMessage{
				"name": mock.RedisString("Citrus Cleaner"),
			})),
			mock.Result(mock.RedisMap(map[string]rueidis.RedisMessage{})),
		})

	s := NewStoreForTest(c, FlavorRedis)
	results, err := s.HGetAllMulti(context.Background(), []string{"k1", "k2"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0]["name"] != "Citrus Cleaner" || len(results[1]) != 0 {
		t.Errorf("unexpected results: %v", results)
	}
}

func TestHGetAllMulti_Empty(t *testing.T) {
	s := NewStoreForTest(nil, FlavorRedis) // client not called
	results, err := s.HGetAllMulti(context.Background(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if results != nil {
		t.Errorf("expected nil, got %v", results)
	}
}

func TestHGetAllMulti_Error(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		DoMulti(gomock.Any(), gomock.Any()).
		Return([]rueidis.RedisResult{mock.ErrorResult(context.DeadlineExceeded)})

	s := NewStoreForTest(c, FlavorRedis)
	_, err := s.HGetAllMulti(context.Background(), []string{"k1"})
	if !isDBError(err) {
		t.Errorf("expected db.Error, got %v", err)
	}
}

func TestScan_MultiPage(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	first := true
	c.EXPECT().
		Do(gomock.Any(), mock.MatchFn(func(cmd []string) bool {
			return cmd[0] == "SCAN"
		})).
		DoAndReturn(func(_ context.Context, _ rueidis.Completed) rueidis.RedisResult {
			if first {
				first = false
				return mock.Result(mock.RedisArray(
					mock.RedisInt64(42), // cursor=42 means more
					mock.RedisArray(mock.RedisString("catalog:product:p1")),
				))
			}
			return mock.Result(mock.RedisArray(
				mock.RedisInt64(0), // cursor=0 means done
				mock.RedisArray(mock.RedisString("catalog:product:p2")),
			))
		}).Times(2)

	s := NewStoreForTest(c, FlavorValkey)
	keys, err := s.Scan(context.Background(), "catalog:product:*")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(keys) != 2 {
		t.Fatalf("expected 2 keys, got %d", len(keys))
	}
}

// --- index.go tests ---

func TestIndexExists(t *testing.T) {
	tests := []struct {
		name   string
		result rueidis.RedisResult
		want   bool
		err    bool
	}{
		{"present", mock.Result(mock.RedisArray(mock.RedisString("index_name"), mock.RedisString("idx"))), true, false},
		{"redis unknown", mock.Result(mock.RedisError("Unknown Index name")), false, false},
		{"valkey not found", mock.Result(mock.RedisError("Index with name 'idx' not found")), false, false},
		{"transport", mock.ErrorResult(context.DeadlineExceeded), false, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			c := mock.NewClient(ctrl)
			c.EXPECT().
				Do(gomock.Any(), mock.Match("FT.INFO", "idx")).
				Return(tc.result)

			s := NewStoreForTest(c, FlavorRedis)
			got, err := s.IndexExists(context.Background(), "idx")
			if (err != nil) != tc.err {
				t.Fatalf("err = %v, want error %v", err, tc.err)
			}
			if got != tc.want {
				t.Errorf("exists = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestSupportsFilterQueries(t *testing.T) {
	ctx := context.Background()
	if !NewStoreForTest(nil, FlavorRedis).SupportsFilterQueries(ctx) {
		t.Error("redis should support filter-only queries")
	}
	if NewStoreForTest(nil, FlavorValkey).SupportsFilterQueries(ctx) {
		t.Error("valkey should not support filter-only queries")
	}
}

// --- search.go tests ---

func TestSearchKNN_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	var sent []string
	c.EXPECT().
		Do(gomock.Any(), mock.MatchFn(func(cmd []string) bool {
			sent = cmd
			return cmd[0] == "FT.SEARCH"
		})).
		Return(mock.Result(mock.RedisArray(
			mock.RedisInt64(1), // total
			mock.RedisString("catalog:chunk:p1#0"),
			mock.RedisArray(
				mock.RedisString("__vector_score"),
				mock.RedisString("0.1"),
				mock.RedisString("product_id"),
				mock.RedisString("p1"),
			),
		)))

	s := NewStoreForTest(c, FlavorRedis)
	f := &filter.Filters{Categories: []string{"Cleaning"}}
	result, err := s.SearchKNN(context.Background(), &db.KNNQuery{
		IndexName:    "catalog:chunks:idx",
		Filter:       f.Compile(),
		Vector:       []float32{0.1, 0.2},
		K:            30,
		ReturnFields: []string{"product_id", "__vector_score"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(result.Entries))
	}
	e := result.Entries[0]
	if e.Key != "catalog:chunk:p1#0" || e.Fields["product_id"] != "p1" {
		t.Errorf("unexpected entry: %+v", e)
	}
	// raw cosine distance is passed through
	if e.Score < 0.099 || e.Score > 0.101 {
		t.Errorf("expected score ~0.1, got %f", e.Score)
	}
	if _, ok := e.Fields["__vector_score"]; ok {
		t.Error("score field should be removed from fields")
	}

	joined := strings.Join(sent, " ")
	if !strings.Contains(joined, "(@category:{Cleaning})=>[KNN 30 @embedding $BLOB]") {
		t.Errorf("unexpected query: %q", joined)
	}
	if !strings.Contains(joined, "LIMIT 0 30") {
		t.Errorf("expected LIMIT 0 30 in %q", joined)
	}
}

func TestSearchKNN_NoFilter(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.MatchFn(func(cmd []string) bool {
			return cmd[0] == "FT.SEARCH" && cmd[2] == "*=>[KNN 5 @vec $BLOB]"
		})).
		Return(mock.Result(mock.RedisArray(mock.RedisInt64(0))))

	s := NewStoreForTest(c, FlavorValkey)
	result, err := s.SearchKNN(context.Background(), &db.KNNQuery{
		IndexName:   "idx",
		VectorField: "vec",
		Vector:      []float32{0.1},
		K:           5,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Entries) != 0 {
		t.Errorf("expected 0 entries, got %d", len(result.Entries))
	}
}

func TestSearchKNN_Error(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.MatchFn(func(cmd []string) bool {
			return cmd[0] == "FT.SEARCH"
		})).
		Return(mock.ErrorResult(context.DeadlineExceeded))

	s := NewStoreForTest(c, FlavorRedis)
	_, err := s.SearchKNN(context.Background(), &db.KNNQuery{
		IndexName: "idx",
		Vector:    []float32{0.1},
		K:         10,
	})
	if !isDBError(err) {
		t.Fatalf("expected db.Error, got %v", err)
	}
}

func TestSearchKNN_Validation(t *testing.T) {
	s := &Store{}
	ctx := context.Background()

	_, err := s.SearchKNN(ctx, &db.KNNQuery{Vector: []float32{0.1}, K: 10})
	if err == nil {
		t.Error("expected error for empty index name")
	}

	_, err = s.SearchKNN(ctx, &db.KNNQuery{IndexName: "idx", K: 10})
	if err == nil {
		t.Error("expected error for empty vector")
	}

	_, err = s.SearchKNN(ctx, &db.KNNQuery{IndexName: "idx", Vector: []float32{0.1}, K: 0})
	if err == nil {
		t.Error("expected error for k=0")
	}
}

func TestSearchList_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.MatchFn(func(cmd []string) bool {
			return cmd[0] == "FT.SEARCH" && cmd[2] == "@brand:{GreenHome}" &&
				cmd[3] == "LIMIT" && cmd[4] == "100" && cmd[5] == "50"
		})).
		Return(mock.Result(mock.RedisArray(
			mock.RedisInt64(2),
			mock.RedisString("catalog:product:p1"),
			mock.RedisArray(mock.RedisString("name"), mock.RedisString("Citrus Cleaner")),
			mock.RedisString("catalog:product:p2"),
			mock.RedisArray(mock.RedisString("name"), mock.RedisString("Lemon Soap")),
		)))

	s := NewStoreForTest(c, FlavorRedis)
	f := &filter.Filters{Brands: []string{"GreenHome"}}
	result, err := s.SearchList(context.Background(), &db.ListQuery{
		IndexName: "catalog:products:idx",
		Filter:    f.Compile(),
		Offset:    100,
		Limit:     50,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Total != 2 || len(result.Entries) != 2 {
		t.Fatalf("unexpected result: %+v", result)
	}
	if result.Entries[1].Fields["name"] != "Lemon Soap" {
		t.Errorf("unexpected entry: %+v", result.Entries[1])
	}
}

func TestSearchList_EmptyFilterListsAll(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.MatchFn(func(cmd []string) bool {
			return cmd[0] == "FT.SEARCH" && cmd[2] == "*"
		})).
		Return(mock.Result(mock.RedisArray(mock.RedisInt64(0))))

	s := NewStoreForTest(c, FlavorRedis)
	result, err := s.SearchList(context.Background(), &db.ListQuery{IndexName: "idx", Limit: 10})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Entries) != 0 {
		t.Errorf("expected no entries, got %d", len(result.Entries))
	}
}

func TestSearchList_ValkeyUnsupported(t *testing.T) {
	s := NewStoreForTest(nil, FlavorValkey) // client not called
	_, err := s.SearchList(context.Background(), &db.ListQuery{IndexName: "idx", Limit: 10})
	if !isDBError(err) {
		t.Fatalf("expected db.Error, got %v", err)
	}
}

// --- filter building ---

func TestBuildFilter(t *testing.T) {
	shop := "shop-1"
	lo, hi := 0.0, 15.0
	tests := []struct {
		name    string
		filters *filter.Filters
		want    string
	}{
		{"nil", nil, ""},
		{"empty", &filter.Filters{}, ""},
		{"shop", &filter.Filters{ShopID: &shop}, `@shop_id:{shop\-1}`},
		{
			"categories are alternatives",
			&filter.Filters{Categories: []string{"Cleaning", "Home & Garden"}},
			`@category:{Cleaning | Home\ \&\ Garden}`,
		},
		{
			"price range",
			&filter.Filters{PriceRange: &filter.PriceRange{Min: &lo, Max: &hi}},
			"@price:[0 15]",
		},
		{
			"open upper bound",
			&filter.Filters{PriceRange: &filter.PriceRange{Min: &hi}},
			"@price:[15 +inf]",
		},
		{
			"combined",
			&filter.Filters{
				Brands:       []string{"GreenHome"},
				Availability: []product.Availability{product.InStock},
				ProductTypes: []product.Type{product.Physical},
				PriceRange:   &filter.PriceRange{Max: &hi},
			},
			"@brand:{GreenHome} @availability:{in_stock} @product_type:{physical} @price:[-inf 15]",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := buildFilter(tc.filters.Compile())
			if got != tc.want {
				t.Errorf("buildFilter() = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestVectorToBytes(t *testing.T) {
	v := []float32{1.0, 2.0}
	b := vectorToBytes(v)
	if len(b) != 8 {
		t.Fatalf("expected 8 bytes, got %d", len(b))
	}
	// 1.0 in little-endian IEEE 754
	if b[:4] != "\x00\x00\x80\x3f" {
		t.Errorf("unexpected encoding % x", b[:4])
	}
}

// --- helpers ---

// isDBError is a test helper for checking wrapped db.Error.
func isDBError(err error) bool {
	var dbErr *db.Error
	return errors.As(err, &dbErr)
}

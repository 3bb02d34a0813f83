package redis

import (
	"context"

	"github.com/kailas-cloud/catalogsearch/internal/db"
)

// IndexExists probes index existence via FT.INFO; "unknown index name" means absent.
// valkey-search words it as "not found".
func (s *Store) IndexExists(ctx context.Context, name string) (bool, error) {
	cmd := s.b().Arbitrary("FT.INFO").Args(name).Build()
	if err := s.do(ctx, cmd).Error(); err != nil {
		if isRedisErr(err, "unknown index name") || isRedisErr(err, "not found") {
			return false, nil
		}
		return false, &db.Error{Op: db.OpIndexInfo, Err: err}
	}
	return true, nil
}

// SupportsFilterQueries is true for Redis: FT.SEARCH accepts filter-only queries.
func (s *Store) SupportsFilterQueries(_ context.Context) bool {
	return s.flavor == FlavorRedis
}

// Package catalogsearch ranks e-commerce products for natural-language
// queries over a pre-built catalog of embedded product chunks.
//
// The catalog can live in Redis or Valkey (search module), in Postgres with
// pgvector and pg_trgm, or in memory loaded from a YAML seed file.
//
//	client, _ := catalogsearch.New(ctx,
//	    catalogsearch.WithRedis("localhost:6379", ""),
//	    catalogsearch.WithEmbedder(myEmbedder),
//	    catalogsearch.WithDimensions(1024),
//	)
//	defer client.Close()
//
//	results, _ := client.Search(ctx, "eco dish soap", &catalogsearch.SearchOptions{
//	    Filters: &catalogsearch.Filters{
//	        PriceRange: &catalogsearch.PriceRange{Max: catalogsearch.Float(15)},
//	    },
//	    Rerank: catalogsearch.Bool(true),
//	})
//
// Search ranks by vector similarity unless SearchOptions.Mode says
// otherwise; HybridSearch always fuses vector and keyword scores.
package catalogsearch

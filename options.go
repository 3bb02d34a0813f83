package catalogsearch

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/kailas-cloud/catalogsearch/internal/backend"
	"github.com/kailas-cloud/catalogsearch/internal/config"
)

// Option configures the Client.
type Option interface {
	apply(*clientConfig)
}

// optionFunc adapts a function to the Option interface.
type optionFunc func(*clientConfig)

func (f optionFunc) apply(c *clientConfig) { f(c) }

type clientConfig struct {
	store backend.Config

	embedder   Embedder
	dimensions int
	defaults   SearchOptions

	logger     *zap.Logger
	metricsReg prometheus.Registerer
}

// WithRedis reads the catalog from a Redis instance with the search module.
func WithRedis(addr, password string) Option {
	return optionFunc(func(c *clientConfig) {
		c.store.Driver = config.DriverRedis
		c.store.Addrs = []string{addr}
		c.store.Password = password
	})
}

// WithValkey reads the catalog from a Valkey instance with valkey-search.
// Keyword search scans product hashes since valkey-search only runs KNN queries.
func WithValkey(addr, password string) Option {
	return optionFunc(func(c *clientConfig) {
		c.store.Driver = config.DriverValkey
		c.store.Addrs = []string{addr}
		c.store.Password = password
	})
}

// WithPostgres reads the catalog from Postgres with the vector and pg_trgm extensions.
func WithPostgres(dsn string) Option {
	return optionFunc(func(c *clientConfig) {
		c.store.Driver = config.DriverPostgres
		c.store.DSN = dsn
	})
}

// WithMemory loads the catalog from a YAML seed file into memory.
// Chunks without embeddings are vectorized with the configured Embedder.
func WithMemory(seedPath string) Option {
	return optionFunc(func(c *clientConfig) {
		c.store.Driver = config.DriverMemory
		c.store.SeedPath = seedPath
	})
}

// WithKeyPrefix sets the Redis/Valkey key prefix of the catalog. Default: "catalog:".
func WithKeyPrefix(prefix string) Option {
	return optionFunc(func(c *clientConfig) {
		c.store.KeyPrefix = prefix
	})
}

// WithReadinessTimeout bounds the wait for the store on New. Default: 10s.
func WithReadinessTimeout(d time.Duration) Option {
	return optionFunc(func(c *clientConfig) {
		c.store.ReadinessTimeout = d
	})
}

// WithEmbedder sets the query embedding provider.
func WithEmbedder(e Embedder) Option {
	return optionFunc(func(c *clientConfig) {
		c.embedder = e
	})
}

// WithDimensions declares the embedder's output dimension. New then checks it
// against the stored corpus and fails on a mismatch, and every query vector
// of another length is rejected.
func WithDimensions(dim int) Option {
	return optionFunc(func(c *clientConfig) {
		c.dimensions = dim
	})
}

// WithSearchDefaults sets the options used when a search leaves them unset.
func WithSearchDefaults(opts SearchOptions) Option {
	return optionFunc(func(c *clientConfig) {
		c.defaults = opts
	})
}

// WithLogger enables structured logging for SDK operations.
// Pass nil to disable (default).
func WithLogger(l *zap.Logger) Option {
	return optionFunc(func(c *clientConfig) {
		c.logger = l
	})
}

// WithPrometheus registers SDK metrics (operation counts and durations)
// on the given registerer. Pass nil to disable (default).
func WithPrometheus(reg prometheus.Registerer) Option {
	return optionFunc(func(c *clientConfig) {
		c.metricsReg = reg
	})
}

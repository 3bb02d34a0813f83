// Package backend opens the catalog store selected by a driver name and
// exposes it through the search contracts.
package backend

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kailas-cloud/catalogsearch/internal/config"
	"github.com/kailas-cloud/catalogsearch/internal/db/postgres"
	dbRedis "github.com/kailas-cloud/catalogsearch/internal/db/redis"
	"github.com/kailas-cloud/catalogsearch/internal/domain"
	"github.com/kailas-cloud/catalogsearch/internal/repository/catalog"
	"github.com/kailas-cloud/catalogsearch/internal/repository/memcatalog"
	"github.com/kailas-cloud/catalogsearch/internal/repository/pgcatalog"
	searchuc "github.com/kailas-cloud/catalogsearch/internal/usecase/search"
)

// DefaultReadinessTimeout bounds the wait for a freshly created client.
const DefaultReadinessTimeout = 10 * time.Second

// Config selects and configures a catalog store.
type Config struct {
	Driver           string
	Addrs            []string
	Username         string
	Password         string
	DB               int
	KeyPrefix        string
	DSN              string
	MaxConns         int32
	SeedPath         string
	ReadinessTimeout time.Duration
}

// FromDatabaseConfig maps the file configuration onto a backend Config.
func FromDatabaseConfig(c *config.DatabaseConfig) Config {
	return Config{
		Driver:           c.Driver,
		Addrs:            c.Addrs,
		Username:         c.Username,
		Password:         c.Password,
		DB:               c.DB,
		KeyPrefix:        c.KeyPrefix,
		DSN:              c.DSN,
		MaxConns:         c.MaxConns,
		SeedPath:         c.SeedPath,
		ReadinessTimeout: time.Duration(c.ReadinessTimeout) * time.Second,
	}
}

type pinger interface {
	Ping(ctx context.Context) error
}

// KV is the key-value surface of stores that can cache query embeddings.
type KV interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// Backend is an opened catalog store.
type Backend struct {
	Store  searchuc.Store
	kv     KV
	prefix string
	pinger pinger
	close  func()
}

// KV returns the key-value store and key prefix of Redis and Valkey
// backends. ok is false for the other drivers.
func (b *Backend) KV() (kv KV, prefix string, ok bool) {
	return b.kv, b.prefix, b.kv != nil
}

// Ping checks store connectivity.
func (b *Backend) Ping(ctx context.Context) error {
	if err := b.pinger.Ping(ctx); err != nil {
		return fmt.Errorf("ping catalog store: %w", err)
	}
	return nil
}

// Close releases the underlying client.
func (b *Backend) Close() {
	if b.close != nil {
		b.close()
	}
}

// Open creates the store for cfg.Driver and waits until it answers.
// embed is only used by the memory driver, to vectorize seed chunks
// supplied without embeddings.
func Open(ctx context.Context, cfg Config, embed domain.Embedder) (*Backend, error) {
	timeout := cfg.ReadinessTimeout
	if timeout <= 0 {
		timeout = DefaultReadinessTimeout
	}

	switch cfg.Driver {
	case config.DriverRedis, config.DriverValkey:
		return openRedis(ctx, cfg, timeout)
	case config.DriverPostgres:
		return openPostgres(ctx, cfg, timeout)
	case config.DriverMemory:
		return openMemory(ctx, cfg, embed)
	case "":
		return nil, errors.New("catalog store driver is required")
	default:
		return nil, fmt.Errorf("unknown catalog store driver %q", cfg.Driver)
	}
}

func openRedis(ctx context.Context, cfg Config, timeout time.Duration) (*Backend, error) {
	flavor := dbRedis.FlavorRedis
	if cfg.Driver == config.DriverValkey {
		flavor = dbRedis.FlavorValkey
	}
	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    cfg.Addrs,
		Username: cfg.Username,
		Password: cfg.Password,
		DB:       cfg.DB,
		Flavor:   flavor,
	})
	if err != nil {
		return nil, fmt.Errorf("create %s store: %w", cfg.Driver, err)
	}
	if err := store.WaitForReady(ctx, timeout); err != nil {
		store.Close()
		return nil, fmt.Errorf("%s not ready: %w", cfg.Driver, err)
	}

	prefix := cfg.KeyPrefix
	if prefix == "" {
		prefix = catalog.DefaultPrefix
	}
	repo := catalog.New(store, prefix)
	return &Backend{Store: repo, kv: store, prefix: prefix, pinger: repo, close: store.Close}, nil
}

func openPostgres(ctx context.Context, cfg Config, timeout time.Duration) (*Backend, error) {
	pool, err := postgres.NewPool(ctx, postgres.Config{DSN: cfg.DSN, MaxConns: cfg.MaxConns})
	if err != nil {
		return nil, fmt.Errorf("create postgres pool: %w", err)
	}
	if err := postgres.WaitForReady(ctx, pool, timeout); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres not ready: %w", err)
	}

	repo := pgcatalog.New(pool)
	return &Backend{Store: repo, pinger: repo, close: pool.Close}, nil
}

func openMemory(ctx context.Context, cfg Config, embed domain.Embedder) (*Backend, error) {
	if cfg.SeedPath == "" {
		cat := memcatalog.New()
		return &Backend{Store: cat, pinger: cat}, nil
	}
	cat, err := memcatalog.LoadFile(ctx, cfg.SeedPath, embed)
	if err != nil {
		return nil, fmt.Errorf("load memory catalog: %w", err)
	}
	return &Backend{Store: cat, pinger: cat}, nil
}

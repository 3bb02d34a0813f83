package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/catalogsearch/internal/backend"
	"github.com/kailas-cloud/catalogsearch/internal/config"
	"github.com/kailas-cloud/catalogsearch/internal/domain"
	"github.com/kailas-cloud/catalogsearch/internal/domain/search/mode"
	"github.com/kailas-cloud/catalogsearch/internal/domain/search/request"
	logpkg "github.com/kailas-cloud/catalogsearch/internal/logger"
	"github.com/kailas-cloud/catalogsearch/internal/metrics"
	"github.com/kailas-cloud/catalogsearch/internal/repository/embcache"
	chiTransport "github.com/kailas-cloud/catalogsearch/internal/transport/chi"
	openaiEmb "github.com/kailas-cloud/catalogsearch/internal/transport/openai"
	embeddinguc "github.com/kailas-cloud/catalogsearch/internal/usecase/embedding"
	healthuc "github.com/kailas-cloud/catalogsearch/internal/usecase/health"
	searchuc "github.com/kailas-cloud/catalogsearch/internal/usecase/search"
	"github.com/kailas-cloud/catalogsearch/internal/version"
)

const embeddingProvider = "openai"

func main() {
	query := flag.String("query", "", "run one search, print the results as JSON and exit")
	searchMode := flag.String("mode", "", "search mode for -query: vector, keyword or hybrid")
	flag.Parse()

	// Load configuration based on ENV
	env := config.GetEnv()

	cfg := config.MustLoad(env)

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting catalogsearch",
		zap.String("version", version.String()),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("db_driver", cfg.Database.Driver),
	)

	// Register metrics explicitly (no init())
	metrics.RegisterEmbeddingMetrics()
	metrics.RegisterSearchMetrics()
	metrics.RegisterHTTPMetrics()

	ctx := logpkg.ContextWithLogger(context.Background(), logger)

	// Document embedder only vectorizes memory seed chunks.
	docEmbedder := buildEmbedder(&cfg.Embedding, cfg.Embedding.DocumentInstruction, nil, "", logger)

	store, err := backend.Open(ctx, backend.FromDatabaseConfig(&cfg.Database), docEmbedder)
	if err != nil {
		logger.Fatal("Failed to open catalog store", zap.Error(err))
	}
	defer store.Close()
	logger.Info("Connected to catalog store")

	// Query embeddings are cached next to the catalog when the store supports it.
	var cache backend.KV
	var cachePrefix string
	if kv, prefix, ok := store.KV(); ok && cfg.Embedding.CacheTTLSec > 0 {
		cache, cachePrefix = kv, prefix
	}
	queryEmbedder := buildEmbedder(&cfg.Embedding, cfg.Embedding.QueryInstruction, cache, cachePrefix, logger)
	logger.Info("Embedders created",
		zap.String("model", cfg.Embedding.Model),
		zap.Int("dimensions", cfg.Embedding.Dimensions),
		zap.Bool("query_cache", cache != nil),
	)

	searchSvc := searchuc.New(store.Store, store.Store, store.Store, queryEmbedder,
		searchuc.WithCorpusCheck(store.Store, cfg.Embedding.Dimensions))
	if err := searchSvc.Verify(ctx); err != nil {
		logger.Fatal("Catalog corpus does not match the embedder", zap.Error(err))
	}

	if *query != "" {
		if err := runQuery(ctx, searchSvc, &cfg.Search, *query, mode.Mode(*searchMode)); err != nil {
			logger.Error("Search failed", zap.Error(err))
			store.Close()
			os.Exit(1) //nolint:gocritic // store closed explicitly above
		}
		return
	}

	healthSvc := healthuc.New(store, newEmbeddingHealthChecker(queryEmbedder), searchSvc)
	serve(&cfg, chiTransport.NewRouter(healthSvc, cfg.HTTP.APIKeys, logger), logger)
}

// runQuery executes one search with the configured defaults and prints the
// results to stdout.
func runQuery(
	ctx context.Context, svc *searchuc.Service, defaults *config.SearchConfig, query string, m mode.Mode,
) error {
	params := request.Params{Query: query, Mode: m}.WithDefaults(request.Params{
		Limit:         defaults.DefaultLimit,
		Threshold:     defaults.Threshold,
		VectorWeight:  defaults.VectorWeight,
		KeywordWeight: defaults.KeywordWeight,
		Rerank:        &defaults.Rerank,
		IncludeChunks: &defaults.IncludeChunks,
	})
	req, err := request.New(params)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}

	results, err := svc.Search(ctx, &req)
	if err != nil {
		return fmt.Errorf("search: %w", err)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(results); err != nil {
		return fmt.Errorf("encode results: %w", err)
	}
	return nil
}

// serve runs the ops server until SIGINT or SIGTERM.
func serve(cfg *config.Config, handler http.Handler, logger *zap.Logger) {
	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting ops server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}

// embeddingHealthChecker wraps domain.Embedder to implement health.EmbeddingChecker.
type embeddingHealthChecker struct {
	embedder domain.Embedder
}

func newEmbeddingHealthChecker(embedder domain.Embedder) *embeddingHealthChecker {
	return &embeddingHealthChecker{embedder: embedder}
}

func (h *embeddingHealthChecker) HealthCheck(ctx context.Context) error {
	if hc, ok := h.embedder.(domain.HealthChecker); ok {
		if err := hc.HealthCheck(ctx); err != nil {
			return fmt.Errorf("embedding health check: %w", err)
		}
	}
	return nil
}

// buildEmbedder assembles the decorator chain: OpenAI -> Cached -> Instrumented -> Instruction.
// cache may be nil.
func buildEmbedder(
	cfg *config.EmbeddingConfig, instruction string, cache backend.KV, cachePrefix string, logger *zap.Logger,
) domain.Embedder {
	// Base provider (with transport metrics built-in)
	var embedder domain.Embedder = openaiEmb.NewEmbedder(&openaiEmb.Config{
		APIKey:     cfg.APIKey,
		BaseURL:    cfg.BaseURL,
		Model:      cfg.Model,
		Dimensions: cfg.Dimensions,
		Provider:   embeddingProvider,
		Timeout:    time.Duration(cfg.TimeoutSec) * time.Second,
		Logger:     logger,
	})

	// Cached
	if cache != nil {
		embedder = embcache.New(embedder, cache, embcache.Config{
			Prefix: cachePrefix,
			Model:  cfg.Model,
			TTL:    time.Duration(cfg.CacheTTLSec) * time.Second,
		}, metrics.EmbeddingCacheTotal, logger)
	}

	// Instrumented (logs + dimension guard)
	embedder = embeddinguc.NewInstrumentedEmbedder(
		embedder, embeddingProvider, cfg.Model, cfg.Dimensions, logger,
	)

	// Instruction prefix (outermost, so the cache key includes it)
	if instruction != "" {
		return domain.NewInstructionEmbedder(embedder, instruction)
	}
	return embedder
}

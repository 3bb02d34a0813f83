package health

import "context"

// StorePinger checks catalog store availability.
type StorePinger interface {
	Ping(ctx context.Context) error
}

// EmbeddingChecker checks embedding provider availability.
type EmbeddingChecker interface {
	HealthCheck(ctx context.Context) error
}

// CorpusVerifier checks that the stored corpus matches the embedder.
type CorpusVerifier interface {
	Verify(ctx context.Context) error
}

package domain

import "errors"

var (
	// ErrInvalidRequest signals a search request that failed validation.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrVectorDimMismatch signals a vector dimension mismatch.
	ErrVectorDimMismatch = errors.New("vector dimension mismatch")
	// ErrCorpusNotFound signals that the chunk index or corpus metadata is missing.
	ErrCorpusNotFound = errors.New("corpus not found")
	// ErrEmbeddingProviderError signals an embedding provider failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
	// ErrStoreUnavailable signals a failed chunk, lexical or metadata store call.
	ErrStoreUnavailable = errors.New("store unavailable")
)

// IsConfigError reports whether err is fatal configuration trouble rather than
// a per-request failure.
func IsConfigError(err error) bool {
	return errors.Is(err, ErrCorpusNotFound) ||
		(errors.Is(err, ErrVectorDimMismatch) && !errors.Is(err, ErrEmbeddingProviderError))
}

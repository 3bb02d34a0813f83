package catalogsearch

import "github.com/kailas-cloud/catalogsearch/internal/domain"

// Sentinel errors re-exported from the domain layer.
// Use errors.Is() to check.
var (
	ErrInvalidRequest         = domain.ErrInvalidRequest
	ErrVectorDimMismatch      = domain.ErrVectorDimMismatch
	ErrCorpusNotFound         = domain.ErrCorpusNotFound
	ErrEmbeddingProviderError = domain.ErrEmbeddingProviderError
	ErrStoreUnavailable       = domain.ErrStoreUnavailable
)

// IsConfigError reports whether err means the client is misconfigured
// (missing corpus or an embedder of the wrong dimension) rather than a
// failure of a single search.
func IsConfigError(err error) bool {
	return domain.IsConfigError(err)
}

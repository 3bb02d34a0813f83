package health

import "context"

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded means searches may fail for some modes.
	Degraded Status = "degraded"
	// Unhealthy means the catalog store is unreachable.
	Unhealthy Status = "error"
)

// CheckResult represents an individual component health check outcome.
type CheckResult string

const (
	// CheckOK indicates a passing health check.
	CheckOK CheckResult = "ok"
	// CheckError indicates a failing health check.
	CheckError CheckResult = "error"
)

// Component names used in Report.Checks.
const (
	ComponentStore     = "store"
	ComponentEmbedding = "embedding"
	ComponentCorpus    = "corpus"
)

// Report aggregates health check results.
type Report struct {
	Status Status                 `json:"status"`
	Checks map[string]CheckResult `json:"checks"`
}

// Service coordinates health checks.
type Service struct {
	store     StorePinger
	embedding EmbeddingChecker
	corpus    CorpusVerifier
}

// New creates a Service. embedding and corpus can be nil.
func New(store StorePinger, embedding EmbeddingChecker, corpus CorpusVerifier) *Service {
	return &Service{store: store, embedding: embedding, corpus: corpus}
}

// Check runs health checks against all components. The corpus is only
// verified when the store answers.
func (s *Service) Check(ctx context.Context) Report {
	checks := make(map[string]CheckResult)

	storeOK := s.store.Ping(ctx) == nil
	checks[ComponentStore] = result(storeOK)

	if s.embedding != nil {
		checks[ComponentEmbedding] = result(s.embedding.HealthCheck(ctx) == nil)
	}
	if s.corpus != nil && storeOK {
		checks[ComponentCorpus] = result(s.corpus.Verify(ctx) == nil)
	}

	status := Healthy
	switch {
	case !storeOK:
		status = Unhealthy
	default:
		for _, v := range checks {
			if v == CheckError {
				status = Degraded
				break
			}
		}
	}

	return Report{Status: status, Checks: checks}
}

func result(ok bool) CheckResult {
	if ok {
		return CheckOK
	}
	return CheckError
}

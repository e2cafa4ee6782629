package health

import (
	"context"

	"github.com/kailas-cloud/semsearch/internal/domain"
)

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates partial failure: at least one space or the cache is down.
	Degraded Status = "degraded"
	// Unhealthy indicates nothing can be searched.
	Unhealthy Status = "error"
)

// CheckResult represents an individual component health check outcome.
type CheckResult string

const (
	// CheckOK indicates a passing health check.
	CheckOK CheckResult = "ok"
	// CheckPending indicates a model that has not been loaded yet.
	CheckPending CheckResult = "pending"
	// CheckError indicates a failing health check.
	CheckError CheckResult = "error"
)

// Report aggregates health check results.
type Report struct {
	Status Status                 `json:"status"`
	Checks map[string]CheckResult `json:"checks"`
}

// Service coordinates health checks.
type Service struct {
	corpus   CorpusCounter
	models   ModelStates
	cache    Pinger
	backends map[string]domain.HealthChecker
}

// Option configures a Service.
type Option func(*Service)

// WithCache adds the query-vector cache to the report.
func WithCache(p Pinger) Option {
	return func(s *Service) { s.cache = p }
}

// WithBackend adds a remote embedding backend check under the given name.
func WithBackend(name string, hc domain.HealthChecker) Option {
	return func(s *Service) { s.backends[name] = hc }
}

// New creates a Service.
func New(corpus CorpusCounter, models ModelStates, opts ...Option) *Service {
	s := &Service{corpus: corpus, models: models, backends: make(map[string]domain.HealthChecker)}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Check runs health checks against all components. Model loads are never triggered here.
func (s *Service) Check(ctx context.Context) Report {
	checks := make(map[string]CheckResult)

	corpusOK := s.corpus.RowCount() > 0
	checks["corpus"] = result(corpusOK)

	failed := 0
	spaces := s.models.Spaces()
	for _, sp := range spaces {
		loaded, err := s.models.State(sp)
		switch {
		case err != nil:
			checks["model_"+sp.String()] = CheckError
			failed++
		case loaded:
			checks["model_"+sp.String()] = CheckOK
		default:
			checks["model_"+sp.String()] = CheckPending
		}
	}

	if s.cache != nil {
		checks["cache"] = result(s.cache.Ping(ctx) == nil)
	}
	for name, hc := range s.backends {
		checks["backend_"+name] = result(hc.HealthCheck(ctx) == nil)
	}

	if !corpusOK || len(spaces) == 0 || failed == len(spaces) {
		return Report{Status: Unhealthy, Checks: checks}
	}
	status := Healthy
	for _, v := range checks {
		if v == CheckError {
			status = Degraded
			break
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

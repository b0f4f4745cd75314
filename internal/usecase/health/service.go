package health

import "context"

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates the store is up but not fully initialized.
	Degraded Status = "degraded"
	// Unhealthy indicates the store is unreachable.
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

// Report aggregates health check results.
type Report struct {
	Status Status
	Checks map[string]CheckResult
	// Missing lists the expected indexes that do not exist.
	Missing []string
}

// Service coordinates health checks.
type Service struct {
	db      DBPinger
	indexes IndexChecker
	names   []string
}

// New creates a Service.
func New(db DBPinger) *Service {
	return &Service{db: db}
}

// WithIndexes makes Check verify that every named index exists.
func (s *Service) WithIndexes(c IndexChecker, names ...string) *Service {
	s.indexes = c
	s.names = append([]string(nil), names...)
	return s
}

// Check runs health checks against all components.
func (s *Service) Check(ctx context.Context) Report {
	checks := make(map[string]CheckResult)

	if err := s.db.Ping(ctx); err != nil {
		checks["database"] = CheckError
		return Report{Status: Unhealthy, Checks: checks}
	}
	checks["database"] = CheckOK

	var missing []string
	if s.indexes != nil {
		checks["indexes"] = CheckOK
		for _, name := range s.names {
			ok, err := s.indexes.IndexExists(ctx, name)
			if err != nil || !ok {
				checks["indexes"] = CheckError
				missing = append(missing, name)
			}
		}
	}

	status := Healthy
	for _, v := range checks {
		if v == CheckError {
			status = Degraded
			break
		}
	}

	return Report{Status: status, Checks: checks, Missing: missing}
}

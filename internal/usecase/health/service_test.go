package health

import (
	"context"
	"errors"
	"testing"
)

// --- Mocks ---

type mockDBPinger struct {
	err error
}

func (m *mockDBPinger) Ping(_ context.Context) error { return m.err }

type mockIndexChecker struct {
	existing map[string]bool
	err      error
}

func (m *mockIndexChecker) IndexExists(_ context.Context, name string) (bool, error) {
	if m.err != nil {
		return false, m.err
	}
	return m.existing[name], nil
}

// --- Tests ---

func TestCheck_AllHealthy(t *testing.T) {
	idx := &mockIndexChecker{existing: map[string]bool{"projects-project": true, "index-project": true}}
	svc := New(&mockDBPinger{}).WithIndexes(idx, "projects-project", "index-project")
	r := svc.Check(context.Background())

	if r.Status != Healthy {
		t.Errorf("expected %q, got %q", Healthy, r.Status)
	}
	if r.Checks["database"] != CheckOK {
		t.Errorf("expected database %q, got %q", CheckOK, r.Checks["database"])
	}
	if r.Checks["indexes"] != CheckOK {
		t.Errorf("expected indexes %q, got %q", CheckOK, r.Checks["indexes"])
	}
	if len(r.Missing) != 0 {
		t.Errorf("expected no missing indexes, got %v", r.Missing)
	}
}

func TestCheck_DBError(t *testing.T) {
	idx := &mockIndexChecker{}
	svc := New(&mockDBPinger{err: errors.New("conn refused")}).WithIndexes(idx, "index-project")
	r := svc.Check(context.Background())

	if r.Status != Unhealthy {
		t.Errorf("expected %q, got %q", Unhealthy, r.Status)
	}
	if r.Checks["database"] != CheckError {
		t.Errorf("expected database %q, got %q", CheckError, r.Checks["database"])
	}
	if _, ok := r.Checks["indexes"]; ok {
		t.Error("indexes should not be checked when the database is down")
	}
}

func TestCheck_MissingIndex(t *testing.T) {
	idx := &mockIndexChecker{existing: map[string]bool{"projects-project": true}}
	svc := New(&mockDBPinger{}).WithIndexes(idx, "projects-project", "index-project")
	r := svc.Check(context.Background())

	if r.Status != Degraded {
		t.Errorf("expected %q, got %q", Degraded, r.Status)
	}
	if r.Checks["indexes"] != CheckError {
		t.Errorf("expected indexes %q, got %q", CheckError, r.Checks["indexes"])
	}
	if len(r.Missing) != 1 || r.Missing[0] != "index-project" {
		t.Errorf("expected [index-project] missing, got %v", r.Missing)
	}
}

func TestCheck_IndexLookupError(t *testing.T) {
	svc := New(&mockDBPinger{}).WithIndexes(&mockIndexChecker{err: errors.New("timeout")}, "index-project")
	r := svc.Check(context.Background())

	if r.Status != Degraded {
		t.Errorf("expected %q, got %q", Degraded, r.Status)
	}
	if r.Checks["indexes"] != CheckError {
		t.Error("expected indexes error")
	}
}

func TestCheck_NoIndexes(t *testing.T) {
	svc := New(&mockDBPinger{})
	r := svc.Check(context.Background())

	if r.Status != Healthy {
		t.Errorf("expected %q, got %q", Healthy, r.Status)
	}
	if _, ok := r.Checks["indexes"]; ok {
		t.Error("indexes check should be absent when no checker is configured")
	}
}

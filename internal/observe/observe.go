// Package observe carries structured events out of the search and bulk
// engines. The engines never log or count directly; they call an Observer.
package observe

import (
	"context"
	"time"
)

// Phase names one step of a search.
type Phase string

// Search phases.
const (
	PhaseCompile Phase = "compile"
	PhaseQuery   Phase = "query"
	PhaseFetch   Phase = "fetch"
	PhaseCount   Phase = "count"
	PhaseFacet   Phase = "facet"
)

// PhaseEvent reports one finished search phase.
type PhaseEvent struct {
	Kind     string
	Phase    Phase
	Duration time.Duration
	// Items is the number of rows the phase produced.
	Items int
	Err   error
}

// SearchEvent reports a finished search.
type SearchEvent struct {
	Kind     string
	Items    int
	Empty    bool
	Dropped  int
	HasMore  bool
	Duration time.Duration
	Err      error
}

// BulkItemEvent reports the outcome of one entity/index write pair.
type BulkItemEvent struct {
	Kind      string
	EntityID  string
	IndexID   string
	EntityErr error
	IndexErr  error
}

// BulkEvent reports a finished bulk create.
type BulkEvent struct {
	Kind     string
	Total    int
	Created  int
	Duration time.Duration
	Err      error
}

// Observer receives engine events. Implementations must be safe for
// concurrent use.
type Observer interface {
	SearchPhase(ctx context.Context, e PhaseEvent)
	SearchDone(ctx context.Context, e SearchEvent)
	CompileCache(ctx context.Context, kind string, hit bool)
	BulkItem(ctx context.Context, e BulkItemEvent)
	BulkDone(ctx context.Context, e BulkEvent)
}

// Nop discards every event.
type Nop struct{}

var _ Observer = Nop{}

func (Nop) SearchPhase(context.Context, PhaseEvent)    {}
func (Nop) SearchDone(context.Context, SearchEvent)    {}
func (Nop) CompileCache(context.Context, string, bool) {}
func (Nop) BulkItem(context.Context, BulkItemEvent)    {}
func (Nop) BulkDone(context.Context, BulkEvent)        {}

// Multi fans every event out to each observer in order.
type Multi []Observer

var _ Observer = Multi(nil)

// SearchPhase implements Observer.
func (m Multi) SearchPhase(ctx context.Context, e PhaseEvent) {
	for _, o := range m {
		o.SearchPhase(ctx, e)
	}
}

// SearchDone implements Observer.
func (m Multi) SearchDone(ctx context.Context, e SearchEvent) {
	for _, o := range m {
		o.SearchDone(ctx, e)
	}
}

// CompileCache implements Observer.
func (m Multi) CompileCache(ctx context.Context, kind string, hit bool) {
	for _, o := range m {
		o.CompileCache(ctx, kind, hit)
	}
}

// BulkItem implements Observer.
func (m Multi) BulkItem(ctx context.Context, e BulkItemEvent) {
	for _, o := range m {
		o.BulkItem(ctx, e)
	}
}

// BulkDone implements Observer.
func (m Multi) BulkDone(ctx context.Context, e BulkEvent) {
	for _, o := range m {
		o.BulkDone(ctx, e)
	}
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

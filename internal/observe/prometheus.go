package observe

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/kailas-cloud/entidex/internal/metrics"
)

// Prometheus turns events into the search and bulk collectors.
type Prometheus struct {
	search *metrics.Search
	bulk   *metrics.Bulk
}

var _ Observer = (*Prometheus)(nil)

// NewPrometheus registers the collectors with reg.
func NewPrometheus(reg prometheus.Registerer) (*Prometheus, error) {
	s, err := metrics.NewSearch(reg)
	if err != nil {
		return nil, err
	}
	b, err := metrics.NewBulk(reg)
	if err != nil {
		return nil, err
	}
	return &Prometheus{search: s, bulk: b}, nil
}

// SearchPhase implements Observer.
func (p *Prometheus) SearchPhase(_ context.Context, e PhaseEvent) {
	p.search.PhaseDuration.WithLabelValues(e.Kind, string(e.Phase), status(e.Err)).
		Observe(e.Duration.Seconds())
}

// SearchDone implements Observer.
func (p *Prometheus) SearchDone(_ context.Context, e SearchEvent) {
	if e.Err != nil {
		return
	}
	p.search.Results.WithLabelValues(e.Kind).Add(float64(e.Items))
	if e.Empty {
		p.search.Empty.WithLabelValues(e.Kind).Inc()
	}
	if e.Dropped > 0 {
		p.search.Dropped.WithLabelValues(e.Kind).Add(float64(e.Dropped))
	}
}

// CompileCache implements Observer.
func (p *Prometheus) CompileCache(_ context.Context, _ string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	p.search.CompileCache.WithLabelValues(result).Inc()
}

// BulkItem implements Observer.
func (p *Prometheus) BulkItem(_ context.Context, e BulkItemEvent) {
	p.bulk.Writes.WithLabelValues(e.Kind, "entity", status(e.EntityErr)).Inc()
	p.bulk.Writes.WithLabelValues(e.Kind, "index", status(e.IndexErr)).Inc()
}

// BulkDone implements Observer.
func (p *Prometheus) BulkDone(_ context.Context, e BulkEvent) {
	p.bulk.BatchSize.Observe(float64(e.Total))
}

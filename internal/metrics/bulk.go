package metrics

import "github.com/prometheus/client_golang/prometheus"

// Bulk holds the dual-writer collectors.
type Bulk struct {
	Writes    *prometheus.CounterVec
	BatchSize prometheus.Histogram
}

// NewBulk creates the bulk collectors and registers them with reg.
func NewBulk(reg prometheus.Registerer) (*Bulk, error) {
	m := &Bulk{
		Writes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "bulk",
			Name:      "writes_total",
			Help:      "Bulk writes by target (entity, index) and status.",
		}, []string{"kind", "target", "status"}),
		BatchSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: Namespace,
			Subsystem: "bulk",
			Name:      "batch_size",
			Help:      "Entities per bulk request.",
			Buckets:   prometheus.ExponentialBuckets(1, 4, 7),
		}),
	}
	if err := registerOrReuse(reg, &m.Writes); err != nil {
		return nil, err
	}
	if err := registerOrReuse(reg, &m.BatchSize); err != nil {
		return nil, err
	}
	return m, nil
}

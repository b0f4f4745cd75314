package metrics

import "github.com/prometheus/client_golang/prometheus"

// Search holds the search executor collectors.
type Search struct {
	PhaseDuration *prometheus.HistogramVec
	Results       *prometheus.CounterVec
	Empty         *prometheus.CounterVec
	Dropped       *prometheus.CounterVec
	CompileCache  *prometheus.CounterVec
}

// NewSearch creates the search collectors and registers them with reg.
func NewSearch(reg prometheus.Registerer) (*Search, error) {
	m := &Search{
		PhaseDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: Namespace,
			Subsystem: "search",
			Name:      "phase_duration_seconds",
			Help:      "Search phase duration in seconds.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}, []string{"kind", "phase", "status"}),
		Results: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "search",
			Name:      "results_total",
			Help:      "Entities returned by searches.",
		}, []string{"kind"}),
		Empty: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "search",
			Name:      "empty_total",
			Help:      "Searches whose index query matched nothing.",
		}, []string{"kind"}),
		Dropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "search",
			Name:      "dangling_refs_total",
			Help:      "Index hits dropped because their entity was missing.",
		}, []string{"kind"}),
		CompileCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "search",
			Name:      "compile_cache_total",
			Help:      "Compiled query cache hits and misses.",
		}, []string{"result"}), // "hit" / "miss"
	}
	for _, c := range []**prometheus.CounterVec{&m.Results, &m.Empty, &m.Dropped, &m.CompileCache} {
		if err := registerOrReuse(reg, c); err != nil {
			return nil, err
		}
	}
	if err := registerOrReuse(reg, &m.PhaseDuration); err != nil {
		return nil, err
	}
	return m, nil
}

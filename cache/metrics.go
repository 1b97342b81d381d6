package cache

import "github.com/prometheus/client_golang/prometheus"

// MetricsBuilder names the collectors exported by a TaggedCache.
type MetricsBuilder struct {
	Namespace string
	Subsystem string
}

// Metrics is safe to use as a nil pointer, in which case nothing is recorded.
type Metrics struct {
	hits      prometheus.Counter
	misses    prometheus.Counter
	sets      prometheus.Counter
	evictions *prometheus.CounterVec
	entries   prometheus.Gauge
	tags      prometheus.Gauge
}

// Build creates the collectors and registers them with reg.
func (m MetricsBuilder) Build(reg prometheus.Registerer) (*Metrics, error) {
	opts := func(name, help string) prometheus.Opts {
		return prometheus.Opts{Namespace: m.Namespace, Subsystem: m.Subsystem, Name: name, Help: help}
	}
	res := &Metrics{
		hits:   prometheus.NewCounter(prometheus.CounterOpts(opts("hits_total", "Reads that found a live value."))),
		misses: prometheus.NewCounter(prometheus.CounterOpts(opts("misses_total", "Reads that found nothing usable."))),
		sets:   prometheus.NewCounter(prometheus.CounterOpts(opts("sets_total", "Entries written."))),
		evictions: prometheus.NewCounterVec(prometheus.CounterOpts(opts("evictions_total",
			"Entries that left the cache, by reason.")), []string{"reason"}),
		entries: prometheus.NewGauge(prometheus.GaugeOpts(opts("entries", "Entries held, expired ones included until reclaimed."))),
		tags:    prometheus.NewGauge(prometheus.GaugeOpts(opts("tags", "Tags with at least one member."))),
	}
	for _, c := range []prometheus.Collector{res.hits, res.misses, res.sets, res.evictions, res.entries, res.tags} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return res, nil
}

func (m *Metrics) hit() {
	if m != nil {
		m.hits.Inc()
	}
}

func (m *Metrics) miss() {
	if m != nil {
		m.misses.Inc()
	}
}

func (m *Metrics) set() {
	if m != nil {
		m.sets.Inc()
	}
}

func (m *Metrics) evicted(reason EvictReason) {
	if m != nil {
		m.evictions.WithLabelValues(reason.String()).Inc()
	}
}

func (m *Metrics) size(entries, tags int) {
	if m != nil {
		m.entries.Set(float64(entries))
		m.tags.Set(float64(tags))
	}
}

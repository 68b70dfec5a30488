package langsync

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the store's Prometheus collectors. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	CacheHits       prometheus.Counter
	CacheMisses     prometheus.Counter
	Fetches         *prometheus.CounterVec // labels: result (ok|error)
	Fallbacks       prometheus.Counter
	Evictions       *prometheus.CounterVec // labels: reason (expired|lru)
	PersistFailures prometheus.Counter
}

// NewMetrics creates the collectors and registers them with reg.
// A nil reg creates unregistered collectors.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		CacheHits: f.NewCounter(prometheus.CounterOpts{
			Namespace: "langsync",
			Name:      "cache_hits_total",
			Help:      "Document loads served from the in-memory cache.",
		}),
		CacheMisses: f.NewCounter(prometheus.CounterOpts{
			Namespace: "langsync",
			Name:      "cache_misses_total",
			Help:      "Document loads that missed the in-memory cache.",
		}),
		Fetches: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "langsync",
			Name:      "fetches_total",
			Help:      "Translation document fetches by result.",
		}, []string{"result"}),
		Fallbacks: f.NewCounter(prometheus.CounterOpts{
			Namespace: "langsync",
			Name:      "fallbacks_total",
			Help:      "Loads that fell back to the default language.",
		}),
		Evictions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "langsync",
			Name:      "evictions_total",
			Help:      "Cache entries evicted by reason.",
		}, []string{"reason"}),
		PersistFailures: f.NewCounter(prometheus.CounterOpts{
			Namespace: "langsync",
			Name:      "persist_failures_total",
			Help:      "Failed attempts to persist the cache to storage.",
		}),
	}
}

func (m *Metrics) hit() {
	if m != nil {
		m.CacheHits.Inc()
	}
}

func (m *Metrics) miss() {
	if m != nil {
		m.CacheMisses.Inc()
	}
}

func (m *Metrics) fetch(ok bool) {
	if m == nil {
		return
	}
	result := "ok"
	if !ok {
		result = "error"
	}
	m.Fetches.WithLabelValues(result).Inc()
}

func (m *Metrics) fallback() {
	if m != nil {
		m.Fallbacks.Inc()
	}
}

func (m *Metrics) evict(reason string) {
	if m != nil {
		m.Evictions.WithLabelValues(reason).Inc()
	}
}

func (m *Metrics) persistFailure() {
	if m != nil {
		m.PersistFailures.Inc()
	}
}

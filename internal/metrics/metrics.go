// Package metrics holds the Prometheus collectors for marketboard.
// All recording methods are safe on a nil *Registry so components can run without metrics.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry holds all Prometheus metrics for marketboard
type Registry struct {
	registry *prometheus.Registry

	// Cache store
	CacheHits          *prometheus.CounterVec
	CacheMisses        *prometheus.CounterVec
	CacheExpirations   *prometheus.CounterVec
	CacheWriteFailures *prometheus.CounterVec

	// Upstream fetches
	FetchDuration *prometheus.HistogramVec
	Fallbacks     *prometheus.CounterVec

	// Dashboard load cycles
	LoadCycles *prometheus.CounterVec
	Loading    prometheus.Gauge
}

// New creates a registry with all marketboard collectors registered
func New() *Registry {
	r := &Registry{
		registry: prometheus.NewRegistry(),

		CacheHits: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "marketboard_cache_hits_total",
				Help: "Total number of fresh cache reads by namespace",
			},
			[]string{"namespace"},
		),
		CacheMisses: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "marketboard_cache_misses_total",
				Help: "Total number of cache reads that found no usable entry",
			},
			[]string{"namespace"},
		),
		CacheExpirations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "marketboard_cache_expirations_total",
				Help: "Total number of entries discarded because they outlived their TTL",
			},
			[]string{"namespace"},
		),
		CacheWriteFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "marketboard_cache_write_failures_total",
				Help: "Total number of best-effort cache writes that failed",
			},
			[]string{"namespace"},
		),

		FetchDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "marketboard_fetch_duration_seconds",
				Help:    "Duration of upstream requests in seconds",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0},
			},
			[]string{"endpoint", "result"},
		),
		Fallbacks: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "marketboard_fallbacks_total",
				Help: "Total number of synthetic placeholder substitutions by kind",
			},
			[]string{"kind"},
		),

		LoadCycles: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "marketboard_load_cycles_total",
				Help: "Total number of dashboard load cycles by tab and result",
			},
			[]string{"tab", "result"},
		),
		Loading: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "marketboard_loading",
				Help: "1 while a dashboard load cycle is running",
			},
		),
	}

	r.registry.MustRegister(
		r.CacheHits,
		r.CacheMisses,
		r.CacheExpirations,
		r.CacheWriteFailures,
		r.FetchDuration,
		r.Fallbacks,
		r.LoadCycles,
		r.Loading,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return r
}

// Handler returns the /metrics HTTP handler
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// CacheHit records a fresh cache read
func (r *Registry) CacheHit(namespace string) {
	if r == nil {
		return
	}
	r.CacheHits.WithLabelValues(namespace).Inc()
}

// CacheMiss records a cache read with no usable entry
func (r *Registry) CacheMiss(namespace string) {
	if r == nil {
		return
	}
	r.CacheMisses.WithLabelValues(namespace).Inc()
}

// CacheExpired records an entry discarded for age
func (r *Registry) CacheExpired(namespace string) {
	if r == nil {
		return
	}
	r.CacheExpirations.WithLabelValues(namespace).Inc()
}

// CacheWriteFailed records a swallowed cache write error
func (r *Registry) CacheWriteFailed(namespace string) {
	if r == nil {
		return
	}
	r.CacheWriteFailures.WithLabelValues(namespace).Inc()
}

// ObserveFetch records the duration of an upstream request
func (r *Registry) ObserveFetch(endpoint string, start time.Time, err error) {
	if r == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	r.FetchDuration.WithLabelValues(endpoint, result).Observe(time.Since(start).Seconds())
}

// Fallback records a synthetic data substitution
func (r *Registry) Fallback(kind string) {
	if r == nil {
		return
	}
	r.Fallbacks.WithLabelValues(kind).Inc()
}

// LoadCycle records a completed dashboard load cycle
func (r *Registry) LoadCycle(tab string, err error) {
	if r == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	r.LoadCycles.WithLabelValues(tab, result).Inc()
}

// SetLoading flips the loading gauge
func (r *Registry) SetLoading(loading bool) {
	if r == nil {
		return
	}
	if loading {
		r.Loading.Set(1)
	} else {
		r.Loading.Set(0)
	}
}

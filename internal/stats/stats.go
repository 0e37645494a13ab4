package stats

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics tracks the compilation cache and terminal actions. A nil Registerer
// produces working, unregistered metrics.
type Metrics struct {
	CacheLookups    *prometheus.CounterVec // by result: hit, miss
	Compiles        prometheus.Counter
	CompileFailures prometheus.Counter
	CompileDuration prometheus.Histogram
	CachedUnits     prometheus.Gauge
	Evictions       prometheus.Counter
	LiveResults     prometheus.Gauge
	Executions      *prometheus.CounterVec // by action and status
	ExecuteDuration *prometheus.HistogramVec
}

// NewMetrics creates Metrics registered with r
func NewMetrics(r prometheus.Registerer) *Metrics {
	return &Metrics{
		CacheLookups: promauto.With(r).NewCounterVec(prometheus.CounterOpts{
			Name: "fuse_cache_lookups_total",
			Help: "Total number of compilation cache lookups.",
		}, []string{"result"}),
		Compiles: promauto.With(r).NewCounter(prometheus.CounterOpts{
			Name: "fuse_compiles_total",
			Help: "Total number of units built by the native backend.",
		}),
		CompileFailures: promauto.With(r).NewCounter(prometheus.CounterOpts{
			Name: "fuse_compile_failures_total",
			Help: "Total number of failed unit builds.",
		}),
		CompileDuration: promauto.With(r).NewHistogram(prometheus.HistogramOpts{
			Name:    "fuse_compile_duration_seconds",
			Help:    "Time taken to build and load a unit.",
			Buckets: []float64{0.001, 0.01, 0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}),
		CachedUnits: promauto.With(r).NewGauge(prometheus.GaugeOpts{
			Name: "fuse_cached_units",
			Help: "Number of compiled units held by the cache.",
		}),
		Evictions: promauto.With(r).NewCounter(prometheus.CounterOpts{
			Name: "fuse_cache_evictions_total",
			Help: "Total number of units evicted from the cache.",
		}),
		LiveResults: promauto.With(r).NewGauge(prometheus.GaugeOpts{
			Name: "fuse_live_results",
			Help: "Number of result views which have not been released.",
		}),
		Executions: promauto.With(r).NewCounterVec(prometheus.CounterOpts{
			Name: "fuse_executions_total",
			Help: "Total number of terminal actions executed.",
		}, []string{"action", "status"}),
		ExecuteDuration: promauto.With(r).NewHistogramVec(prometheus.HistogramOpts{
			Name:    "fuse_execute_duration_seconds",
			Help:    "Time taken to run a terminal action, including compilation.",
			Buckets: prometheus.DefBuckets,
		}, []string{"action"}),
	}
}

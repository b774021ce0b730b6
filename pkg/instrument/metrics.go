package instrument

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/vango-dev/reactor/pkg/reactive"
)

// MetricsConfig configures Prometheus metrics.
type MetricsConfig struct {
	// Namespace is the metrics namespace (default: "reactor").
	Namespace string

	// Subsystem is the metrics subsystem (default: "store").
	Subsystem string

	// ConstLabels are constant labels added to all metrics.
	ConstLabels prometheus.Labels

	// Buckets are the histogram buckets for recompute duration.
	// Default: prometheus.DefBuckets
	Buckets []float64

	// Registry is the Prometheus registry to use.
	// Default: prometheus.DefaultRegisterer
	Registry prometheus.Registerer
}

// MetricsOption configures Prometheus metrics.
type MetricsOption func(*MetricsConfig)

// WithNamespace sets the metrics namespace.
func WithNamespace(namespace string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Namespace = namespace
	}
}

// WithSubsystem sets the metrics subsystem.
func WithSubsystem(subsystem string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Subsystem = subsystem
	}
}

// WithConstLabels sets constant labels for all metrics.
func WithConstLabels(labels prometheus.Labels) MetricsOption {
	return func(c *MetricsConfig) {
		c.ConstLabels = labels
	}
}

// WithBuckets sets the recompute duration buckets.
func WithBuckets(buckets []float64) MetricsOption {
	return func(c *MetricsConfig) {
		c.Buckets = buckets
	}
}

// WithRegistry sets the Prometheus registry.
func WithRegistry(registry prometheus.Registerer) MetricsOption {
	return func(c *MetricsConfig) {
		c.Registry = registry
	}
}

func defaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		Namespace: "reactor",
		Subsystem: "store",
		Buckets:   prometheus.DefBuckets,
		Registry:  prometheus.DefaultRegisterer,
	}
}

// Metrics records store activity as Prometheus metrics. It implements
// reactive.Hooks.
//
// Metrics collected:
//   - reactor_store_writes_total: effective writes by kind (plain, computed)
//   - reactor_store_rejected_writes_total: refused writes by reason
//   - reactor_store_recomputes_total: recipe evaluations by result
//   - reactor_store_recompute_duration_seconds: recipe evaluation time
//   - reactor_store_watchers_fired_total: watcher callbacks
//   - reactor_store_cascades_total: finished cascades by result
//   - reactor_store_cascade_writes: effective writes per cascade
type Metrics struct {
	writes        *prometheus.CounterVec
	rejected      *prometheus.CounterVec
	recomputes    *prometheus.CounterVec
	recomputeTime prometheus.Histogram
	watchersFired prometheus.Counter
	cascades      *prometheus.CounterVec
	cascadeWrites prometheus.Histogram
}

// NewMetrics registers the store metrics. Each registry accepts one
// Metrics per namespace and subsystem.
func NewMetrics(opts ...MetricsOption) *Metrics {
	config := defaultMetricsConfig()
	for _, opt := range opts {
		opt(&config)
	}
	factory := promauto.With(config.Registry)

	return &Metrics{
		writes: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "writes_total",
			Help:        "Total number of effective property writes",
			ConstLabels: config.ConstLabels,
		}, []string{"kind"}),

		rejected: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "rejected_writes_total",
			Help:        "Total number of writes refused before touching state",
			ConstLabels: config.ConstLabels,
		}, []string{"reason"}),

		recomputes: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "recomputes_total",
			Help:        "Total number of computed property evaluations",
			ConstLabels: config.ConstLabels,
		}, []string{"result"}),

		recomputeTime: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "recompute_duration_seconds",
			Help:        "Computed property evaluation time in seconds",
			ConstLabels: config.ConstLabels,
			Buckets:     config.Buckets,
		}),

		watchersFired: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "watchers_fired_total",
			Help:        "Total number of watcher callbacks",
			ConstLabels: config.ConstLabels,
		}),

		cascades: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "cascades_total",
			Help:        "Total number of finished propagation cascades",
			ConstLabels: config.ConstLabels,
		}, []string{"result"}),

		cascadeWrites: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "cascade_writes",
			Help:        "Effective writes per propagation cascade",
			ConstLabels: config.ConstLabels,
			Buckets:     prometheus.ExponentialBuckets(1, 2, 8), // 1 to 128
		}),
	}
}

// WriteApplied implements reactive.Hooks.
func (m *Metrics) WriteApplied(key string, computed bool) {
	kind := "plain"
	if computed {
		kind = "computed"
	}
	m.writes.WithLabelValues(kind).Inc()
}

// WriteRejected implements reactive.Hooks.
func (m *Metrics) WriteRejected(key string, err error) {
	m.rejected.WithLabelValues(Reason(err)).Inc()
}

// Recomputed implements reactive.Hooks.
func (m *Metrics) Recomputed(name string, changed bool, elapsed time.Duration) {
	result := "unchanged"
	if changed {
		result = "changed"
	}
	m.recomputes.WithLabelValues(result).Inc()
	m.recomputeTime.Observe(elapsed.Seconds())
}

// CascadeFinished implements reactive.Hooks.
func (m *Metrics) CascadeFinished(stats reactive.CascadeStats, err error) {
	m.watchersFired.Add(float64(stats.Watchers))
	m.cascadeWrites.Observe(float64(stats.Writes))
	m.cascades.WithLabelValues(Reason(err)).Inc()
}

// Reason maps a store error to a low-cardinality label value.
func Reason(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, reactive.ErrReservedKey):
		return "reserved"
	case errors.Is(err, reactive.ErrInvalidKey):
		return "invalid"
	case errors.Is(err, reactive.ErrCyclicDependency):
		return "cycle"
	case errors.Is(err, reactive.ErrNestedComputation):
		return "nested"
	default:
		return "internal"
	}
}

package lace

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// metricsConfig configures the Engine's Prometheus metrics. Metrics are
// off unless a Registerer is supplied with WithMetrics.
type metricsConfig struct {
	namespace   string
	constLabels prometheus.Labels
	buckets     []float64
	registry    prometheus.Registerer
}

func defaultMetricsConfig() metricsConfig {
	return metricsConfig{
		namespace: "lace",
		buckets:   prometheus.DefBuckets,
	}
}

// WithMetrics registers the Engine's metrics with the passed Registerer
// and turns metric collection on.
func WithMetrics(registry prometheus.Registerer) Option {
	return func(cfg *engineConfig) {
		cfg.metrics.registry = registry
	}
}

// WithMetricsNamespace sets the namespace the Engine's metrics are
// registered under. The default is "lace".
func WithMetricsNamespace(namespace string) Option {
	return func(cfg *engineConfig) {
		cfg.metrics.namespace = namespace
	}
}

// WithMetricsConstLabels sets constant labels added to all of the
// Engine's metrics.
func WithMetricsConstLabels(labels prometheus.Labels) Option {
	return func(cfg *engineConfig) {
		cfg.metrics.constLabels = labels
	}
}

// WithMetricsBuckets sets the histogram buckets used for compile and
// render durations. The default is prometheus.DefBuckets.
func WithMetricsBuckets(buckets []float64) Option {
	return func(cfg *engineConfig) {
		cfg.metrics.buckets = buckets
	}
}

// engineMetrics holds the Engine's Prometheus collectors. A nil
// *engineMetrics is valid and records nothing, so callers don't need to
// care whether metrics are on.
type engineMetrics struct {
	renders         *prometheus.CounterVec
	renderDuration  *prometheus.HistogramVec
	compileDuration *prometheus.HistogramVec
}

func newEngineMetrics(cfg metricsConfig) *engineMetrics {
	if cfg.registry == nil {
		return nil
	}
	factory := promauto.With(cfg.registry)
	return &engineMetrics{
		renders: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   cfg.namespace,
			Name:        "renders_total",
			Help:        "Number of view renders, by view and outcome.",
			ConstLabels: cfg.constLabels,
		}, []string{"view", "outcome"}),
		renderDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   cfg.namespace,
			Name:        "render_duration_seconds",
			Help:        "Time spent rendering a view, by view.",
			ConstLabels: cfg.constLabels,
			Buckets:     cfg.buckets,
		}, []string{"view"}),
		compileDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   cfg.namespace,
			Name:        "compile_duration_seconds",
			Help:        "Time spent compiling a view's base DOM, by view.",
			ConstLabels: cfg.constLabels,
			Buckets:     cfg.buckets,
		}, []string{"view"}),
	}
}

func (m *engineMetrics) observeCompile(view string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.compileDuration.WithLabelValues(view).Observe(elapsed.Seconds())
}

func (m *engineMetrics) observeRender(view string, elapsed time.Duration, err error) {
	if m == nil {
		return
	}
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	m.renders.WithLabelValues(view, outcome).Inc()
	m.renderDuration.WithLabelValues(view).Observe(elapsed.Seconds())
}

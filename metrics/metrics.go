// Package metrics exports service construction metrics to Prometheus.
//
//	collector := metrics.New(metrics.WithRegisterer(prometheus.DefaultRegisterer))
//	provider, err := b.Build(stratum.WithObserver(collector))
package metrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/junioryono/stratum"
)

const (
	resultSuccess = "success"
	resultError   = "error"
)

// Collector is a stratum.Observer counting factory invocations and measuring
// their duration, labelled by key, lifetime and result.
type Collector struct {
	constructions *prometheus.CounterVec
	duration      *prometheus.HistogramVec
	inflight      *prometheus.GaugeVec
}

var (
	_ stratum.Observer     = (*Collector)(nil)
	_ prometheus.Collector = (*Collector)(nil)
)

// Option configures a Collector.
type Option func(*config)

type config struct {
	namespace  string
	subsystem  string
	buckets    []float64
	registerer prometheus.Registerer
}

// WithNamespace sets the metric namespace. Defaults to "stratum".
func WithNamespace(namespace string) Option {
	return func(c *config) {
		c.namespace = namespace
	}
}

// WithSubsystem sets the metric subsystem.
func WithSubsystem(subsystem string) Option {
	return func(c *config) {
		c.subsystem = subsystem
	}
}

// WithBuckets sets the duration histogram buckets. Defaults to
// prometheus.DefBuckets.
func WithBuckets(buckets []float64) Option {
	return func(c *config) {
		c.buckets = buckets
	}
}

// WithRegisterer registers the collector with r when it is created.
func WithRegisterer(r prometheus.Registerer) Option {
	return func(c *config) {
		c.registerer = r
	}
}

// New creates a Collector. It panics if registration with the configured
// Registerer fails, like prometheus.MustRegister.
func New(opts ...Option) *Collector {
	cfg := &config{
		namespace: "stratum",
		buckets:   prometheus.DefBuckets,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	labels := []string{"key", "lifetime"}
	resultLabels := []string{"key", "lifetime", "result"}

	c := &Collector{
		constructions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: cfg.namespace,
			Subsystem: cfg.subsystem,
			Name:      "constructions_total",
			Help:      "Number of factory invocations.",
		}, resultLabels),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: cfg.namespace,
			Subsystem: cfg.subsystem,
			Name:      "construction_duration_seconds",
			Help:      "Factory invocation latency, including nested resolutions.",
			Buckets:   cfg.buckets,
		}, labels),
		inflight: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: cfg.namespace,
			Subsystem: cfg.subsystem,
			Name:      "constructions_in_flight",
			Help:      "Number of factories currently running.",
		}, labels),
	}

	if cfg.registerer != nil {
		cfg.registerer.MustRegister(c)
	}

	return c
}

// ObserveBuild implements stratum.Observer.
func (c *Collector) ObserveBuild(ctx context.Context, key stratum.Key, lifetime stratum.Lifetime) (context.Context, func(error)) {
	labels := prometheus.Labels{"key": key.String(), "lifetime": lifetime.String()}

	inflight := c.inflight.With(labels)
	inflight.Inc()
	start := time.Now()

	return ctx, func(err error) {
		inflight.Dec()
		c.duration.With(labels).Observe(time.Since(start).Seconds())

		result := resultSuccess
		if err != nil {
			result = resultError
		}
		c.constructions.WithLabelValues(key.String(), lifetime.String(), result).Inc()
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	c.constructions.Describe(ch)
	c.duration.Describe(ch)
	c.inflight.Describe(ch)
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	c.constructions.Collect(ch)
	c.duration.Collect(ch)
	c.inflight.Collect(ch)
}

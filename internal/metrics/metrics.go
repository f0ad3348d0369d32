// Package metrics provides Prometheus instrumentation for batch runs.
package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rshade/batchrun/internal/engine/batch"
)

// DefaultNamespace prefixes every metric name.
const DefaultNamespace = "batchrun"

// Outcome and status label values.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"

	StatusCompleted = "completed"
	StatusAborted   = "aborted"
)

// Collector holds the metrics of one process. Each Collector has its own
// registry so tests and embedded uses never collide on the global one.
type Collector struct {
	registry *prometheus.Registry

	// ItemsTotal counts resolved items by outcome.
	ItemsTotal *prometheus.CounterVec

	// RetriesTotal counts attempts beyond the first.
	RetriesTotal prometheus.Counter

	// ItemDuration tracks time per item including backoff waits.
	ItemDuration prometheus.Histogram

	// RunsTotal counts finished runs by status.
	RunsTotal *prometheus.CounterVec

	// RunDuration tracks wall time per run.
	RunDuration prometheus.Histogram

	// InFlight tracks processor calls currently executing.
	InFlight prometheus.Gauge
}

// NewCollector registers the batch metrics under namespace.
func NewCollector(namespace string) *Collector {
	if namespace == "" {
		namespace = DefaultNamespace
	}
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Collector{
		registry: reg,
		ItemsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "items_total",
			Help:      "Total number of items processed.",
		}, []string{"outcome"}),
		RetriesTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "retries_total",
			Help:      "Total number of retry attempts.",
		}),
		ItemDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "item_duration_seconds",
			Help:      "Duration of item processing in seconds, including retries.",
			Buckets:   []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}),
		RunsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Total number of batch runs.",
		}, []string{"status"}),
		RunDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Duration of batch runs in seconds.",
			Buckets:   []float64{0.1, 0.5, 1, 5, 10, 30, 60, 300, 900, 3600},
		}),
		InFlight: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "items_in_flight",
			Help:      "Number of processor calls currently executing.",
		}),
	}
}

// Registry returns the collector's registry.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// ObserveItem records one resolved item.
func (c *Collector) ObserveItem(success bool, attempts int, d time.Duration) {
	outcome := OutcomeSuccess
	if !success {
		outcome = OutcomeFailure
	}
	c.ItemsTotal.WithLabelValues(outcome).Inc()
	if attempts > 1 {
		c.RetriesTotal.Add(float64(attempts - 1))
	}
	c.ItemDuration.Observe(d.Seconds())
}

// ObserveRun records a finished run.
func (c *Collector) ObserveRun(s batch.Summary) {
	status := StatusCompleted
	if s.Aborted {
		status = StatusAborted
	}
	c.RunsTotal.WithLabelValues(status).Inc()
	c.RunDuration.Observe(s.Duration.Seconds())
}

// ItemCallback returns a runner item callback feeding ObserveItem, chained
// in front of next (which may be nil).
func ItemCallback[In, Out any](c *Collector, next batch.ItemCallback[In, Out]) batch.ItemCallback[In, Out] {
	return func(res batch.ItemResult[In, Out], snap batch.ProgressSnapshot) {
		c.ObserveItem(res.Success, res.Attempts, res.Duration)
		if next != nil {
			next(res, snap)
		}
	}
}

// Instrument wraps p so every call is tracked by the in-flight gauge.
func Instrument[In, Out any](c *Collector, p batch.ItemProcessor[In, Out]) batch.ItemProcessor[In, Out] {
	return batch.ProcessorFunc[In, Out](func(ctx context.Context, item In, index int) (Out, error) {
		c.InFlight.Inc()
		defer c.InFlight.Dec()
		return p.Process(ctx, item, index)
	})
}

// Handler serves the collector's registry in the Prometheus text format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}

// WriteTextfile writes the current metrics to path for the node_exporter
// textfile collector. The file is replaced atomically.
func (c *Collector) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, c.registry)
}

package metrics

import (
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/savegress/traderecon/pkg/models"
	"github.com/savegress/traderecon/pkg/workerpool"
)

const namespace = "traderecon"

// Run results used as the result label
const (
	ResultSuccess     = "success"
	ResultUnavailable = "source_unavailable"
	ResultMalformed   = "malformed_record"
	ResultUnwritable  = "destination_unwritable"
	ResultRejected    = "rejected"
	ResultError       = "error"
)

// Metrics holds the service collectors on a private registry
type Metrics struct {
	registry *prometheus.Registry

	RunsTotal    *prometheus.CounterVec
	RowsTotal    *prometheus.CounterVec
	RunDuration  prometheus.Histogram
	RunsInFlight prometheus.Gauge
}

// New creates and registers the collectors
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		RunsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "runs_total",
				Help:      "Total number of reconciliation runs by result.",
			},
			[]string{"result"},
		),
		RowsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "rows_total",
				Help:      "Total number of reconciled rows by status.",
			},
			[]string{"status"},
		),
		RunDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Reconciliation run latency.",
			Buckets:   prometheus.DefBuckets,
		}),
		RunsInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "runs_in_flight",
			Help:      "Reconciliation runs currently executing.",
		}),
	}

	m.registry.MustRegister(m.RunsTotal, m.RowsTotal, m.RunDuration, m.RunsInFlight)
	return m
}

// Registry exposes the underlying registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus text format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveRun records one finished run
func (m *Metrics) ObserveRun(result *models.ReconcileResult, err error, elapsed time.Duration) {
	m.RunsTotal.WithLabelValues(ResultLabel(err)).Inc()
	m.RunDuration.Observe(elapsed.Seconds())

	if err != nil || result == nil || result.Summary == nil {
		return
	}
	for status, n := range result.Summary.ByStatus {
		m.RowsTotal.WithLabelValues(string(status)).Add(float64(n))
	}
}

// ResultLabel classifies a run error for the result label
func ResultLabel(err error) string {
	switch {
	case err == nil:
		return ResultSuccess
	case errors.Is(err, models.ErrSourceUnavailable):
		return ResultUnavailable
	case errors.Is(err, models.ErrMalformedRecord):
		return ResultMalformed
	case errors.Is(err, models.ErrDestinationUnwritable):
		return ResultUnwritable
	case errors.Is(err, workerpool.ErrQueueFull), errors.Is(err, workerpool.ErrPoolClosed):
		return ResultRejected
	default:
		return ResultError
	}
}

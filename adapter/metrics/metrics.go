// Package metrics contains the Prometheus collectors of a datastore. Every
// [Metrics] registers on its own [prometheus.Registerer], so several stores
// can live in one process.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "docq"

// Operation status labels.
const (
	StatusOK    = "ok"
	StatusError = "error"
)

// Metrics groups the datastore collectors.
type Metrics struct {
	operations  *prometheus.CounterVec
	duration    *prometheus.HistogramVec
	accessPaths *prometheus.CounterVec
	dropped     *prometheus.CounterVec
	documents   prometheus.Gauge
}

// New creates the collectors and registers them on reg. A nil reg keeps them
// unregistered.
func New(reg prometheus.Registerer, opts ...Option) *Metrics {
	o := options{subsystem: "datastore"}
	for _, opt := range opts {
		opt(&o)
	}
	factory := promauto.With(reg)

	return &Metrics{
		operations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace:   namespace,
				Subsystem:   o.subsystem,
				Name:        "operations_total",
				Help:        "Total number of datastore operations",
				ConstLabels: o.labels,
			},
			[]string{"operation", "status"},
		),
		duration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace:   namespace,
				Subsystem:   o.subsystem,
				Name:        "operation_duration_seconds",
				Help:        "Latency of datastore operations in seconds",
				Buckets:     prometheus.DefBuckets,
				ConstLabels: o.labels,
			},
			[]string{"operation"},
		),
		accessPaths: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace:   namespace,
				Subsystem:   o.subsystem,
				Name:        "access_paths_total",
				Help:        "Access paths chosen for reads",
				ConstLabels: o.labels,
			},
			[]string{"path", "index"},
		),
		dropped: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace:   namespace,
				Subsystem:   o.subsystem,
				Name:        "aggregation_dropped_records_total",
				Help:        "Records dropped by aggregation stages on type mismatches",
				ConstLabels: o.labels,
			},
			[]string{"stage"},
		),
		documents: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace:   namespace,
				Subsystem:   o.subsystem,
				Name:        "documents",
				Help:        "Number of stored documents",
				ConstLabels: o.labels,
			},
		),
	}
}

// Observe records one operation that started at start.
func (m *Metrics) Observe(operation string, start time.Time, err error) {
	status := StatusOK
	if err != nil {
		status = StatusError
	}
	m.operations.WithLabelValues(operation, status).Inc()
	m.duration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}

// AccessPath counts a read executed through path. index is empty for full
// scans.
func (m *Metrics) AccessPath(path, index string) {
	m.accessPaths.WithLabelValues(path, index).Inc()
}

// Dropped counts a record dropped by an aggregation stage.
func (m *Metrics) Dropped(stage string) {
	m.dropped.WithLabelValues(stage).Inc()
}

// SetDocuments sets the number of stored documents.
func (m *Metrics) SetDocuments(n int) {
	m.documents.Set(float64(n))
}

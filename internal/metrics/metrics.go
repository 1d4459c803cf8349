// Package metrics exposes Prometheus metrics for ingestion and export.
//
// A Collector owns its registry so several collectors can coexist in one
// process (tests, embedded use). Handler serves the registry on /metrics.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "labstat"

// Outcomes used as label values.
const (
	ResultSuccess  = "success"
	ResultRejected = "rejected"
	ResultFailed   = "failed"
	ResultNotFound = "not_found"
)

// Collector records ingestion and export metrics.
type Collector struct {
	registry *prometheus.Registry

	rowsRead       prometheus.Counter
	rowsAccepted   prometheus.Counter
	rowsSkipped    prometheus.Counter
	buffersFlushed prometheus.Counter

	ingestions        *prometheus.CounterVec
	ingestionDuration prometheus.Histogram

	exportedRows *prometheus.CounterVec
	queries      *prometheus.CounterVec
}

// NewCollector creates a collector with its own registry, including the Go
// runtime and process collectors.
func NewCollector() *Collector {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	factory := promauto.With(reg)

	return &Collector{
		registry: reg,
		rowsRead: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_read_total",
			Help:      "Rows read from uploaded files",
		}),
		rowsAccepted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_accepted_total",
			Help:      "Rows that passed validation",
		}),
		rowsSkipped: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_skipped_total",
			Help:      "Rows dropped by validation",
		}),
		buffersFlushed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "buffers_flushed_total",
			Help:      "Measurement buffers handed to the store",
		}),
		ingestions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ingestions_total",
			Help:      "File ingestions by result",
		}, []string{"result"}),
		ingestionDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "ingestion_duration_seconds",
			Help:      "Time to ingest one file",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 14),
		}),
		exportedRows: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "exported_rows_total",
			Help:      "Measurements served by the export endpoints",
		}, []string{"format"}),
		queries: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "summary_queries_total",
			Help:      "Summary queries by outcome",
		}, []string{"result"}),
	}
}

// ObserveRows adds the row counters of one ingestion.
func (c *Collector) ObserveRows(read, accepted, skipped, flushed int64) {
	if c == nil {
		return
	}
	c.rowsRead.Add(float64(read))
	c.rowsAccepted.Add(float64(accepted))
	c.rowsSkipped.Add(float64(skipped))
	c.buffersFlushed.Add(float64(flushed))
}

// ObserveIngestion records the outcome and duration of one ingestion.
func (c *Collector) ObserveIngestion(result string, d time.Duration) {
	if c == nil {
		return
	}
	c.ingestions.WithLabelValues(result).Inc()
	c.ingestionDuration.Observe(d.Seconds())
}

// ObserveExport adds n exported rows for format.
func (c *Collector) ObserveExport(format string, n int) {
	if c == nil {
		return
	}
	c.exportedRows.WithLabelValues(format).Add(float64(n))
}

// ObserveQuery counts one summary query.
func (c *Collector) ObserveQuery(result string) {
	if c == nil {
		return
	}
	c.queries.WithLabelValues(result).Inc()
}

// Handler serves the collector's registry in the Prometheus text format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

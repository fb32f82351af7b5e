// Package metrics defines the Prometheus collectors for the clustering
// service and exposes an HTTP handler for scraping.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/cognicore/keyclust/pkg/keyclust/report"
)

// Metrics holds all Prometheus collectors for the service.
type Metrics struct {
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge
	JobsTotal            *prometheus.CounterVec
	JobDuration          prometheus.Histogram
	JobInputRows         prometheus.Histogram
	PhrasesMergedTotal   prometheus.Counter
	RowsDroppedTotal     prometheus.Counter

	gatherer prometheus.Gatherer
}

// New creates the collectors and registers them with reg. A nil reg uses a
// fresh registry, so tests can build several instances.
func New(reg *prometheus.Registry) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests by method, path, and status.",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latency in seconds.",
				Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
			},
			[]string{"method", "path"},
		),
		HTTPRequestsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "http_requests_in_flight",
				Help: "Number of HTTP requests currently being processed.",
			},
		),
		JobsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "keyclust_jobs_total",
				Help: "Clustering jobs by result (ok, empty, bad_input, too_large, busy, timeout, error).",
			},
			[]string{"result"},
		),
		JobDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "keyclust_job_duration_seconds",
				Help:    "Time spent in the clustering pipeline per job.",
				Buckets: prometheus.ExponentialBuckets(0.005, 2, 12),
			},
		),
		JobInputRows: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "keyclust_job_input_rows",
				Help:    "Rows read from each uploaded sheet.",
				Buckets: []float64{10, 50, 100, 250, 500, 1000, 2500, 5000},
			},
		),
		PhrasesMergedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "keyclust_phrases_merged_total",
				Help: "Phrases folded into a near-duplicate representative.",
			},
		),
		RowsDroppedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "keyclust_rows_dropped_total",
				Help: "Input rows dropped for an unusable volume.",
			},
		),
		gatherer: reg,
	}

	reg.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.HTTPRequestsInFlight,
		m.JobsTotal,
		m.JobDuration,
		m.JobInputRows,
		m.PhrasesMergedTotal,
		m.RowsDroppedTotal,
	)

	return m
}

// ObserveReport records the counts of a finished job.
func (m *Metrics) ObserveReport(rep report.Report) {
	m.JobsTotal.WithLabelValues("ok").Inc()
	m.JobDuration.Observe(rep.Metrics.Duration.Seconds())
	m.JobInputRows.Observe(float64(rep.Metrics.InputRows))
	m.PhrasesMergedTotal.Add(float64(rep.Metrics.Merged))
	m.RowsDroppedTotal.Add(float64(rep.Metrics.DroppedRows))
}

// Handler returns the Prometheus scrape HTTP handler.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

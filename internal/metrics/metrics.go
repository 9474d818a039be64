// Package metrics holds the Prometheus collectors for exports and the API.
package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	registerOnce    sync.Once
	exportsTotal    *prometheus.CounterVec
	exportDuration  *prometheus.HistogramVec
	exportedRecords *prometheus.HistogramVec
	insightsTotal   *prometheus.CounterVec
	requestsTotal   *prometheus.CounterVec
)

// Register initialises the collectors on the default registry.
func Register() {
	registerOnce.Do(func() {
		exportsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gradesheet_exports_total",
			Help: "Total number of export attempts by mode, format and outcome.",
		}, []string{"mode", "format", "outcome"})

		exportDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "gradesheet_export_duration_seconds",
			Help:    "Time spent building and serializing a workbook.",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"mode", "format"})

		exportedRecords = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "gradesheet_export_submissions",
			Help:    "Number of submissions fed into an export.",
			Buckets: prometheus.ExponentialBuckets(10, 4, 6),
		}, []string{"mode"})

		insightsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gradesheet_insights_total",
			Help: "Insights requests by outcome.",
		}, []string{"outcome"})

		requestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gradesheet_http_requests_total",
			Help: "HTTP API requests by route and status.",
		}, []string{"method", "route", "status"})

		prometheus.MustRegister(exportsTotal, exportDuration, exportedRecords, insightsTotal, requestsTotal)
	})
}

// Exports exposes the export outcome counter.
func Exports() *prometheus.CounterVec {
	Register()
	return exportsTotal
}

// ExportDuration exposes the export latency histogram.
func ExportDuration() *prometheus.HistogramVec {
	Register()
	return exportDuration
}

// ExportedSubmissions exposes the input size histogram.
func ExportedSubmissions() *prometheus.HistogramVec {
	Register()
	return exportedRecords
}

// Insights exposes the insights outcome counter.
func Insights() *prometheus.CounterVec {
	Register()
	return insightsTotal
}

// Requests exposes the HTTP request counter.
func Requests() *prometheus.CounterVec {
	Register()
	return requestsTotal
}

// Handler serves the scrape endpoint.
func Handler() http.Handler {
	Register()
	return promhttp.Handler()
}

// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// HTTP metrics
	HTTPRequests        *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Form metrics
	FormSubmissions      *prometheus.CounterVec
	FormValidationErrors *prometheus.CounterVec

	// Compare metrics
	CompareDuration  prometheus.Histogram
	RecordsCompared  prometheus.Counter
	ChartRenderError *prometheus.CounterVec
	ReportsGenerated prometheus.Counter

	// Websocket metrics
	WSConnections prometheus.Gauge
	WSMessages    *prometheus.CounterVec

	// Database metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec
}

// NewMetrics creates a new Metrics instance registered with the default registry.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "fund_strategy_lab"
	}

	return &Metrics{
		HTTPRequests: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests by route and status",
		}, []string{"route", "status"}),
		HTTPRequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),

		FormSubmissions: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "form",
			Name:      "submissions_total",
			Help:      "Compare form submissions by result (accepted, rejected)",
		}, []string{"result"}),
		FormValidationErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "form",
			Name:      "validation_errors_total",
			Help:      "Field-level validation errors by field",
		}, []string{"field"}),

		CompareDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "compare",
			Name:      "duration_seconds",
			Help:      "Time to build compare records for one query",
			Buckets:   prometheus.DefBuckets,
		}),
		RecordsCompared: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "compare",
			Name:      "records_total",
			Help:      "Total number of compare records produced",
		}),
		ChartRenderError: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "chart",
			Name:      "render_errors_total",
			Help:      "SVG render failures by chart",
		}, []string{"chart"}),
		ReportsGenerated: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "report",
			Name:      "generated_total",
			Help:      "Total number of compare reports generated",
		}),

		WSConnections: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "ws",
			Name:      "connections",
			Help:      "Open compare websocket connections",
		}),
		WSMessages: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ws",
			Name:      "messages_total",
			Help:      "Compare websocket messages by result",
		}, []string{"result"}),

		DBQueryDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "db",
			Name:      "query_duration_seconds",
			Help:      "Database query latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"database", "operation"}),
		DBQueryErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "db",
			Name:      "query_errors_total",
			Help:      "Total number of database query errors",
		}, []string{"database", "operation"}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordHTTPRequest records one served HTTP request.
func RecordHTTPRequest(route, status string, seconds float64) {
	DefaultMetrics.HTTPRequests.WithLabelValues(route, status).Inc()
	DefaultMetrics.HTTPRequestDuration.WithLabelValues(route).Observe(seconds)
}

// RecordFormSubmission records a form submission and its failing fields.
func RecordFormSubmission(failedFields []string) {
	if len(failedFields) == 0 {
		DefaultMetrics.FormSubmissions.WithLabelValues("accepted").Inc()
		return
	}
	DefaultMetrics.FormSubmissions.WithLabelValues("rejected").Inc()
	for _, f := range failedFields {
		DefaultMetrics.FormValidationErrors.WithLabelValues(f).Inc()
	}
}

// RecordCompare records one compare run.
func RecordCompare(records int, seconds float64) {
	DefaultMetrics.RecordsCompared.Add(float64(records))
	DefaultMetrics.CompareDuration.Observe(seconds)
}

// RecordChartRenderError records a failed SVG render.
func RecordChartRenderError(chart string) {
	DefaultMetrics.ChartRenderError.WithLabelValues(chart).Inc()
}

// RecordReportGenerated increments the generated reports counter.
func RecordReportGenerated() {
	DefaultMetrics.ReportsGenerated.Inc()
}

// WSConnected adjusts the open websocket gauge by delta (+1 on open, -1 on close).
func WSConnected(delta int) {
	DefaultMetrics.WSConnections.Add(float64(delta))
}

// RecordWSMessage records one handled websocket message.
func RecordWSMessage(result string) {
	DefaultMetrics.WSMessages.WithLabelValues(result).Inc()
}

// RecordDBQuery records database query metrics.
func RecordDBQuery(database, operation string, seconds float64, err error) {
	DefaultMetrics.DBQueryDuration.WithLabelValues(database, operation).Observe(seconds)
	if err != nil {
		DefaultMetrics.DBQueryErrors.WithLabelValues(database, operation).Inc()
	}
}

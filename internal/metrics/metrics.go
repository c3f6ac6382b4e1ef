// Package metrics exposes ingest measurements in the Prometheus format.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "csvingest"

// Metrics holds the collectors of one process. It satisfies core.Observer.
type Metrics struct {
	registry *prometheus.Registry

	validations        *prometheus.CounterVec
	validationDuration prometheus.Histogram
	linesValidated     prometheus.Counter
	rowsPersisted      prometheus.Counter
	persistFailures    prometheus.Counter
	persistDuration    prometheus.Histogram
	bytesRead          prometheus.Counter
	requests           *prometheus.CounterVec
	requestDuration    *prometheus.HistogramVec
	rateLimited        prometheus.Counter
}

// New registers all collectors, plus the Go runtime and process collectors,
// on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		validations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "validations_total",
			Help:      "Files validated, by outcome.",
		}, []string{"outcome"}),
		validationDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "validation_duration_seconds",
			Help:      "Time spent validating and scanning for outliers.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 4, 8),
		}),
		linesValidated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "lines_validated_total",
			Help:      "Lines passed to the validator, headers included.",
		}),
		rowsPersisted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_persisted_total",
			Help:      "Records written to the repository.",
		}),
		persistFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "persist_failures_total",
			Help:      "Bulk inserts that failed and were rolled back.",
		}),
		persistDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "persist_duration_seconds",
			Help:      "Bulk insert latency.",
			Buckets:   prometheus.DefBuckets,
		}),
		bytesRead: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upload_bytes_total",
			Help:      "Bytes read from uploaded files.",
		}),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests, by route pattern and status code.",
		}, []string{"route", "code"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency, by route pattern.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
		rateLimited: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_limited_total",
			Help:      "Requests rejected by the rate limiter.",
		}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.validations,
		m.validationDuration,
		m.linesValidated,
		m.rowsPersisted,
		m.persistFailures,
		m.persistDuration,
		m.bytesRead,
		m.requests,
		m.requestDuration,
		m.rateLimited,
	)
	return m
}

// ObserveValidation records one Process call.
func (m *Metrics) ObserveValidation(outcome string, lines int, elapsed time.Duration) {
	m.validations.WithLabelValues(outcome).Inc()
	m.validationDuration.Observe(elapsed.Seconds())
	m.linesValidated.Add(float64(lines))
}

// ObservePersist records one BulkInsert call.
func (m *Metrics) ObservePersist(rows int64, elapsed time.Duration, err error) {
	m.persistDuration.Observe(elapsed.Seconds())
	if err != nil {
		m.persistFailures.Inc()
		return
	}
	m.rowsPersisted.Add(float64(rows))
}

// ObserveBytes records the size of a read upload body.
func (m *Metrics) ObserveBytes(n int64) {
	m.bytesRead.Add(float64(n))
}

// ObserveRequest records a finished HTTP request.
func (m *Metrics) ObserveRequest(route string, status int, elapsed time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	m.requests.WithLabelValues(route, strconv.Itoa(status)).Inc()
	m.requestDuration.WithLabelValues(route).Observe(elapsed.Seconds())
}

// ObserveRateLimited records a request rejected with 429.
func (m *Metrics) ObserveRateLimited() {
	m.rateLimited.Inc()
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Package metrics holds the Prometheus collectors for itinerary runs and the
// HTTP surface. A nil *Metrics is valid and records nothing.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics owns a private registry so tests can create as many as they like.
type Metrics struct {
	registry *prometheus.Registry
	handler  http.Handler

	runs            *prometheus.CounterVec
	eventsRead      prometheus.Counter
	occurrences     prometheus.Counter
	truncations     prometheus.Counter
	fetches         *prometheus.CounterVec
	verifications   *prometheus.CounterVec
	requestTotal    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
}

// New registers all collectors.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	runs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "icsreader_runs_total",
		Help: "Itinerary builds by outcome (ok or the error kind)",
	}, []string{"outcome"})

	eventsRead := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "icsreader_events_read_total",
		Help: "VEVENT records read from input",
	})

	occurrences := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "icsreader_occurrences_visible_total",
		Help: "Occurrences selected for output",
	})

	truncations := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "icsreader_recurrence_truncations_total",
		Help: "Recurring events that lost in-window dates at the occurrence cap",
	})

	fetches := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "icsreader_remote_fetches_total",
		Help: "Remote calendar fetches by result (fresh, not_modified, cache_fallback, failed)",
	}, []string{"result"})

	verifications := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "icsreader_verifications_total",
		Help: "Full-parser cross-checks of the event count by result (match, mismatch, failed)",
	}, []string{"result"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "route", "status"})

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})

	registry.MustRegister(runs, eventsRead, occurrences, truncations, fetches, verifications, requestTotal, requestDuration)

	return &Metrics{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		runs:            runs,
		eventsRead:      eventsRead,
		occurrences:     occurrences,
		truncations:     truncations,
		fetches:         fetches,
		verifications:   verifications,
		requestTotal:    requestTotal,
		requestDuration: requestDuration,
	}
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// Registry is exposed for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// ObserveRun records one pipeline build. outcome is "ok" or an error kind.
func (m *Metrics) ObserveRun(outcome string, eventsRead, visible, truncated int) {
	if m == nil {
		return
	}
	m.runs.WithLabelValues(outcome).Inc()
	m.eventsRead.Add(float64(eventsRead))
	m.occurrences.Add(float64(visible))
	m.truncations.Add(float64(truncated))
}

// ObserveFetch records the result of one remote fetch.
func (m *Metrics) ObserveFetch(result string) {
	if m == nil {
		return
	}
	m.fetches.WithLabelValues(result).Inc()
}

// ObserveVerify records the result of one event-count cross-check.
func (m *Metrics) ObserveVerify(result string) {
	if m == nil {
		return
	}
	m.verifications.WithLabelValues(result).Inc()
}

// ObserveHTTPRequest records one served request.
func (m *Metrics) ObserveHTTPRequest(method, route string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.requestTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.requestDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

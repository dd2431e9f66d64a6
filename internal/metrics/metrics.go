// Package metrics holds the Prometheus collectors for the grading service.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome labels.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// Metrics encapsulates the service's Prometheus instrumentation.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry          *prometheus.Registry
	handler           http.Handler
	gradings          *prometheus.CounterVec
	evaluatorDuration *prometheus.HistogramVec
	marks             prometheus.Histogram
	adminActions      *prometheus.CounterVec
}

// New registers the collectors on a fresh registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	gradings := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "docgrader_gradings_total",
		Help: "Grading attempts by source and outcome",
	}, []string{"source", "outcome"})

	evaluatorDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "docgrader_evaluator_request_duration_seconds",
		Help:    "Duration of evaluator calls in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "outcome"})

	marks := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "docgrader_marks",
		Help:    "Marks parsed from evaluator responses",
		Buckets: prometheus.LinearBuckets(0, 10, 11),
	})

	adminActions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "docgrader_admin_actions_total",
		Help: "Administrative record actions",
	}, []string{"action"})

	registry.MustRegister(gradings, evaluatorDuration, marks, adminActions)

	return &Metrics{
		registry:          registry,
		handler:           promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		gradings:          gradings,
		evaluatorDuration: evaluatorDuration,
		marks:             marks,
		adminActions:      adminActions,
	}
}

// Handler exposes the Prometheus HTTP handler.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// ObserveGrading counts one grading attempt.
func (m *Metrics) ObserveGrading(source, outcome string) {
	if m == nil {
		return
	}
	m.gradings.WithLabelValues(source, outcome).Inc()
}

// ObserveEvaluator records the duration of an evaluator call.
func (m *Metrics) ObserveEvaluator(operation string, err error, d time.Duration) {
	if m == nil {
		return
	}
	outcome := OutcomeSuccess
	if err != nil {
		outcome = OutcomeFailure
	}
	m.evaluatorDuration.WithLabelValues(operation, outcome).Observe(d.Seconds())
}

// ObserveMarks records a parsed mark.
func (m *Metrics) ObserveMarks(marks int) {
	if m == nil {
		return
	}
	m.marks.Observe(float64(marks))
}

// ObserveAdminAction counts one admin action.
func (m *Metrics) ObserveAdminAction(action string) {
	if m == nil {
		return
	}
	m.adminActions.WithLabelValues(action).Inc()
}

package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCounters(t *testing.T) {
	m := New()

	m.ObserveGrading("document", OutcomeSuccess)
	m.ObserveGrading("document", OutcomeSuccess)
	m.ObserveGrading("material", OutcomeFailure)
	m.ObserveAdminAction("clear_all")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.gradings.WithLabelValues("document", OutcomeSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.gradings.WithLabelValues("material", OutcomeFailure)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.adminActions.WithLabelValues("clear_all")))
}

func TestHandlerExposesMetrics(t *testing.T) {
	m := New()
	m.ObserveEvaluator("grade", errors.New("quota"), 150*time.Millisecond)
	m.ObserveMarks(85)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	assert.True(t, strings.Contains(body, `docgrader_evaluator_request_duration_seconds_count{operation="grade",outcome="failure"} 1`), body)
	assert.Contains(t, body, "docgrader_marks_count 1")
}

func TestNilMetrics(t *testing.T) {
	var m *Metrics
	m.ObserveGrading("document", OutcomeSuccess)
	m.ObserveEvaluator("grade", nil, time.Second)
	m.ObserveMarks(1)
	m.ObserveAdminAction("x")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Counters(t *testing.T) {
	m := New()

	m.ObserveHTTP("POST /api/payment/initiate", http.StatusOK, 20*time.Millisecond)
	m.ObserveHTTP("POST /api/payment/initiate", http.StatusOK, 40*time.Millisecond)
	m.Checkout("success")
	m.Webhook("ack")
	m.Transition(true, "applied")
	m.Transition(false, "regression")
	m.Email("customer", "sent")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Requests.WithLabelValues("POST /api/payment/initiate", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Checkouts.WithLabelValues("success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Webhooks.WithLabelValues("ack")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Transitions.WithLabelValues("false", "regression")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Emails.WithLabelValues("customer", "sent")))
}

func TestMetrics_NewTwice(t *testing.T) {
	assert.NotPanics(t, func() {
		New()
		New()
	})
}

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics

	assert.NotPanics(t, func() {
		m.ObserveHTTP("x", 200, time.Second)
		m.Checkout("success")
		m.Webhook("ack")
		m.Transition(true, "applied")
		m.Email("admin", "failed")
	})

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMetrics_Handler(t *testing.T) {
	m := New()
	m.Checkout("gateway_error")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), `nextaz_checkouts_total{result="gateway_error"} 1`))
}

func TestTimer(t *testing.T) {
	timer := StartTimer()
	time.Sleep(5 * time.Millisecond)
	assert.GreaterOrEqual(t, timer.Duration(), 5*time.Millisecond)
}

package observability

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/case-service/internal/cache"
)

func TestMetrics_Counters(t *testing.T) {
	m := NewMetrics()
	m.RecordExecution("escalate_breached_cases", "success")
	m.RecordExecution("escalate_breached_cases", "success")
	m.RecordNotification("email", "failed")
	m.RecordSLAEvaluation("")
	m.RecordRequest("/api/cases", "GET", 200, 15*time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.executions.WithLabelValues("escalate_breached_cases", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.notifications.WithLabelValues("email", "failed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.slaEvaluations.WithLabelValues("not_applicable")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.requests.WithLabelValues("/api/cases", "GET", "200")))
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecordRequest("/", "GET", 200, time.Millisecond)
		m.RecordError("/", "GET", "NOT_FOUND")
		m.RecordExecution("r", "failed")
		m.RecordNotification("email", "sent")
		m.RecordSLAEvaluation("Breached")
		m.RecordCaseEvent("case_updated")
		m.RegisterCache("stats", nil)
		m.RegisterPool("store", nil)
	})

	assert.NotPanics(t, func() { NewMetrics().RegisterPool("store", nil) })
}

func TestMetrics_HandlerExportsCache(t *testing.T) {
	m := NewMetrics()
	c := cache.New(cache.Options{MaxSize: 4, DefaultTTL: time.Minute})
	m.RegisterCache("stats", c)
	c.Set("k", 1, time.Minute)
	c.Get("k")
	c.Get("missing")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	require.Equal(t, 200, rec.Code)

	body := rec.Body.String()
	assert.True(t, strings.Contains(body, `case_sla_cache_hits_total{cache="stats"} 1`), body)
	assert.True(t, strings.Contains(body, `case_sla_cache_misses_total{cache="stats"} 1`), body)
	assert.True(t, strings.Contains(body, `case_sla_cache_entries{cache="stats"} 1`), body)
}

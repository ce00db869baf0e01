package observability

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/spec-kit/case-service/internal/cache"
	"github.com/spec-kit/case-service/internal/domain"
	"github.com/spec-kit/case-service/internal/persistence"
)

const namespace = "case_sla"

// Metrics holds the service collectors on a private registry. A nil *Metrics records nothing.
type Metrics struct {
	registry *prometheus.Registry

	requests        *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	errors          *prometheus.CounterVec
	executions      *prometheus.CounterVec
	notifications   *prometheus.CounterVec
	slaEvaluations  *prometheus.CounterVec
	caseEvents      *prometheus.CounterVec
}

// NewMetrics registers the collectors.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		requests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route, method and status.",
		}, []string{"path", "method", "status"}),
		requestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"path", "method"}),
		errors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_errors_total",
			Help:      "HTTP error responses by error code.",
		}, []string{"path", "method", "code"}),
		executions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "workflow_executions_total",
			Help:      "Fired workflow rules by rule and outcome.",
		}, []string{"rule_id", "status"}),
		notifications: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_total",
			Help:      "Dispatched notifications by channel and status.",
		}, []string{"channel", "status"}),
		slaEvaluations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sla_evaluations_total",
			Help:      "SLA evaluations by resulting case status.",
		}, []string{"sla_status"}),
		caseEvents: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "case_events_total",
			Help:      "Published case events by type.",
		}, []string{"type"}),
	}
}

// RecordRequest increments counters for requests.
func (m *Metrics) RecordRequest(path, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(path, method, strconv.Itoa(status)).Inc()
	m.requestDuration.WithLabelValues(path, method).Observe(duration.Seconds())
}

// RecordError increments error counters.
func (m *Metrics) RecordError(path, method, code string) {
	if m == nil {
		return
	}
	m.errors.WithLabelValues(path, method, code).Inc()
}

// RecordExecution counts one fired rule.
func (m *Metrics) RecordExecution(ruleID, status string) {
	if m == nil {
		return
	}
	m.executions.WithLabelValues(ruleID, status).Inc()
}

// RecordNotification counts one dispatched notification.
func (m *Metrics) RecordNotification(channel, status string) {
	if m == nil {
		return
	}
	m.notifications.WithLabelValues(channel, status).Inc()
}

// RecordSLAEvaluation counts one SLA computation.
func (m *Metrics) RecordSLAEvaluation(status string) {
	if m == nil {
		return
	}
	if status == "" {
		status = "not_applicable"
	}
	m.slaEvaluations.WithLabelValues(status).Inc()
}

// RecordCaseEvent counts one published case event.
func (m *Metrics) RecordCaseEvent(eventType string) {
	if m == nil {
		return
	}
	m.caseEvents.WithLabelValues(eventType).Inc()
}

// RegisterCache exports the cache counters, read at scrape time.
func (m *Metrics) RegisterCache(name string, c *cache.Cache) {
	if m == nil || c == nil {
		return
	}
	labels := prometheus.Labels{"cache": name}
	counter := func(metric, help string, read func(cache.Stats) float64) prometheus.Collector {
		return prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace:   namespace,
			Subsystem:   "cache",
			Name:        metric,
			Help:        help,
			ConstLabels: labels,
		}, func() float64 { return read(c.Stats()) })
	}
	m.registry.MustRegister(
		counter("hits_total", "Cache hits.", func(s cache.Stats) float64 { return float64(s.Hits) }),
		counter("misses_total", "Cache misses.", func(s cache.Stats) float64 { return float64(s.Misses) }),
		counter("evictions_total", "LRU evictions.", func(s cache.Stats) float64 { return float64(s.Evictions) }),
		counter("expired_total", "Entries removed after expiry.", func(s cache.Stats) float64 { return float64(s.ExpiredRemoved) }),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace:   namespace,
			Subsystem:   "cache",
			Name:        "entries",
			Help:        "Current number of entries.",
			ConstLabels: labels,
		}, func() float64 { return float64(c.Len()) }),
	)
}

// RegisterPool exports postgres pool usage as gauges. A nil pool registers nothing.
func (m *Metrics) RegisterPool(name string, pg *persistence.Postgres) {
	if m == nil || pg == nil {
		return
	}
	gauge := func(metric, help string, read func(persistence.PoolStats) int32) prometheus.Collector {
		return prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace:   namespace,
			Subsystem:   "db_pool",
			Name:        metric,
			Help:        help,
			ConstLabels: prometheus.Labels{"pool": name},
		}, func() float64 { return float64(read(pg.Stats())) })
	}
	m.registry.MustRegister(
		gauge("acquired_conns", "Connections in use.", func(s persistence.PoolStats) int32 { return s.Acquired }),
		gauge("idle_conns", "Idle connections.", func(s persistence.PoolStats) int32 { return s.Idle }),
		gauge("total_conns", "Open connections.", func(s persistence.PoolStats) int32 { return s.Total }),
		gauge("max_conns", "Configured pool ceiling.", func(s persistence.PoolStats) int32 { return s.Max }),
	)
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// NotificationRecorder counts recorded notifications by channel and final status.
type NotificationRecorder struct {
	metrics *Metrics
}

// Notifications returns a recorder that feeds the notification counter.
func (m *Metrics) Notifications() NotificationRecorder {
	return NotificationRecorder{metrics: m}
}

func (r NotificationRecorder) RecordNotification(_ context.Context, n domain.Notification) error {
	r.metrics.RecordNotification(string(n.Channel), string(n.Status))
	return nil
}

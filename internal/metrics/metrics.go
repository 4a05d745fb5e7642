package metrics

import (
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Config labels every series with the service and environment
type Config struct {
	ServiceName string
	Environment string
}

// Metrics holds the Prometheus collectors for the API, the workflow and the jobs.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	httpRequests      *prometheus.CounterVec
	httpDuration      *prometheus.HistogramVec
	documentsCreated  *prometheus.CounterVec
	statusTransitions *prometheus.CounterVec
	conversions       *prometheus.CounterVec
	dispatches        *prometheus.CounterVec
	cacheLookups      *prometheus.CounterVec
	jobRuns           *prometheus.CounterVec
	jobDuration       *prometheus.HistogramVec
}

// New creates the collectors on a private registry
func New(cfg Config) *Metrics {
	serviceName := strings.TrimSpace(cfg.ServiceName)
	if serviceName == "" {
		serviceName = "quotebook"
	}
	environment := strings.TrimSpace(cfg.Environment)
	if environment == "" {
		environment = "unknown"
	}
	constLabels := prometheus.Labels{"service": serviceName, "env": environment}

	m := &Metrics{
		registry: prometheus.NewRegistry(),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "quotebook_http_requests_total",
			Help:        "HTTP requests by method, route and status code.",
			ConstLabels: constLabels,
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:        "quotebook_http_request_duration_seconds",
			Help:        "HTTP request latency by method and route.",
			ConstLabels: constLabels,
			Buckets:     []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"method", "route"}),
		documentsCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "quotebook_documents_created_total",
			Help:        "Quotations and invoices created, by kind.",
			ConstLabels: constLabels,
		}, []string{"kind"}),
		statusTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "quotebook_status_transitions_total",
			Help:        "Document status transitions by kind, source and target status.",
			ConstLabels: constLabels,
		}, []string{"kind", "from", "to"}),
		conversions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "quotebook_quotation_conversions_total",
			Help:        "Quotation to invoice conversions by outcome (created, existing).",
			ConstLabels: constLabels,
		}, []string{"outcome"}),
		dispatches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "quotebook_document_dispatches_total",
			Help:        "Document deliveries and reminders by kind, purpose and result.",
			ConstLabels: constLabels,
		}, []string{"kind", "purpose", "result"}),
		cacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "quotebook_workspace_cache_lookups_total",
			Help:        "Workspace snapshot cache lookups by result (hit, miss, error).",
			ConstLabels: constLabels,
		}, []string{"result"}),
		jobRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "quotebook_job_runs_total",
			Help:        "Background job runs by name and result.",
			ConstLabels: constLabels,
		}, []string{"job", "result"}),
		jobDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:        "quotebook_job_duration_seconds",
			Help:        "Background job run duration by name.",
			ConstLabels: constLabels,
			Buckets:     []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60, 120},
		}, []string{"job"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.httpRequests,
		m.httpDuration,
		m.documentsCreated,
		m.statusTransitions,
		m.conversions,
		m.dispatches,
		m.cacheLookups,
		m.jobRuns,
		m.jobDuration,
	)
	return m
}

// Registry exposes the underlying registry, mainly for tests
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) ObserveHTTPRequest(method, route string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(method, route, statusClass(status)).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

func (m *Metrics) DocumentCreated(kind string) {
	if m == nil {
		return
	}
	m.documentsCreated.WithLabelValues(kind).Inc()
}

func (m *Metrics) StatusTransition(kind, from, to string) {
	if m == nil {
		return
	}
	m.statusTransitions.WithLabelValues(kind, from, to).Inc()
}

func (m *Metrics) Conversion(created bool) {
	if m == nil {
		return
	}
	outcome := "existing"
	if created {
		outcome = "created"
	}
	m.conversions.WithLabelValues(outcome).Inc()
}

func (m *Metrics) Dispatch(kind, purpose string, err error) {
	if m == nil {
		return
	}
	result := "success"
	if err != nil {
		result = "failure"
	}
	m.dispatches.WithLabelValues(kind, purpose, result).Inc()
}

func (m *Metrics) CacheLookup(result string) {
	if m == nil {
		return
	}
	m.cacheLookups.WithLabelValues(result).Inc()
}

func (m *Metrics) JobRun(job string, duration time.Duration, err error) {
	if m == nil {
		return
	}
	result := "success"
	if err != nil {
		result = "failure"
	}
	m.jobRuns.WithLabelValues(job, result).Inc()
	m.jobDuration.WithLabelValues(job).Observe(duration.Seconds())
}

// statusClass keeps label cardinality low by collapsing codes to 2xx, 4xx, ...
func statusClass(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}

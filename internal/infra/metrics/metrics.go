// Package metrics defines the Prometheus collectors of the server.
package metrics

import (
	"context"
	"net/http"

	"focusguard/config"
	"focusguard/internal/domain/service"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics owns a private registry so several instances can coexist in tests.
type Metrics struct {
	registry *prometheus.Registry

	HTTPRequestsTotal          *prometheus.CounterVec
	HTTPRequestDurationSeconds *prometheus.HistogramVec
	SessionEventsTotal         *prometheus.CounterVec
	ActiveSessionPollsTotal    *prometheus.CounterVec
	ReceivedEventsTotal        *prometheus.CounterVec
}

// New registers every collector, labelled with the service name.
func New(cfg *config.Config) *Metrics {
	serviceName := "focusguard"
	if cfg != nil && cfg.Env.ServiceName != "" {
		serviceName = cfg.Env.ServiceName
	}
	constLabels := prometheus.Labels{"service": serviceName}

	m := &Metrics{
		registry: prometheus.NewRegistry(),
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name:        "http_requests_total",
				Help:        "Total number of HTTP requests.",
				ConstLabels: constLabels,
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDurationSeconds: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:        "http_request_duration_seconds",
				Help:        "Duration of HTTP requests.",
				Buckets:     prometheus.DefBuckets,
				ConstLabels: constLabels,
			},
			[]string{"method", "path"},
		),
		SessionEventsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name:        "focus_session_events_total",
				Help:        "Session lifecycle transitions by type and publish result.",
				ConstLabels: constLabels,
			},
			[]string{"type", "result"},
		),
		ActiveSessionPollsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name:        "focus_active_session_polls_total",
				Help:        "Active session lookups by outcome.",
				ConstLabels: constLabels,
			},
			[]string{"outcome"},
		),
		ReceivedEventsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name:        "focus_session_events_received_total",
				Help:        "Session events consumed by the worker by type and outcome.",
				ConstLabels: constLabels,
			},
			[]string{"type", "outcome"},
		),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.HTTPRequestsTotal,
		m.HTTPRequestDurationSeconds,
		m.SessionEventsTotal,
		m.ActiveSessionPollsTotal,
		m.ReceivedEventsTotal,
	)

	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry exposes the underlying registry for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObservePoll counts an active session lookup as "active" or "none".
func (m *Metrics) ObservePoll(found bool) {
	outcome := "none"
	if found {
		outcome = "active"
	}
	m.ActiveSessionPollsTotal.WithLabelValues(outcome).Inc()
}

// ObserveReceivedEvent counts a session event consumed by the worker.
func (m *Metrics) ObserveReceivedEvent(eventType, outcome string) {
	if eventType == "" {
		eventType = "unparsed"
	}
	m.ReceivedEventsTotal.WithLabelValues(eventType, outcome).Inc()
}

// InstrumentPublisher counts every session event passed to next.
func InstrumentPublisher(next service.EventPublisher, m *Metrics) service.EventPublisher {
	return &instrumentedPublisher{next: next, metrics: m}
}

type instrumentedPublisher struct {
	next    service.EventPublisher
	metrics *Metrics
}

func (p *instrumentedPublisher) PublishSessionEvent(ctx context.Context, event *service.SessionEvent) error {
	err := p.next.PublishSessionEvent(ctx, event)
	result := "ok"
	if err != nil {
		result = "error"
	}
	p.metrics.SessionEventsTotal.WithLabelValues(string(event.Type), result).Inc()

	return err
}

func (p *instrumentedPublisher) Close() error {
	return p.next.Close()
}

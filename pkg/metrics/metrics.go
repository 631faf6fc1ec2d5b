// Package metrics exposes Prometheus instrumentation for the API process.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

type Metrics struct {
	registry prometheus.Registerer

	webhookEvents   *prometheus.CounterVec
	toolInvocations *prometheus.CounterVec
	jobsScheduled   *prometheus.CounterVec
	jobsExecuted    *prometheus.CounterVec
	throttleQueued  prometheus.Gauge
	throttleActive  prometheus.Gauge
}

// New registers all collectors against reg (DefaultRegisterer when nil).
func New(namespace string, reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	m := &Metrics{
		registry: reg,
		webhookEvents: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "webhook_events_total",
				Help:      "Inbound voice webhook events by message type and outcome",
			},
			[]string{"type", "outcome"},
		),
		toolInvocations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "tool_invocations_total",
				Help:      "Mid-call tool invocations by tool name and outcome",
			},
			[]string{"tool", "outcome"},
		),
		jobsScheduled: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "jobs_scheduled_total",
				Help:      "Delayed jobs accepted or rejected by the scheduler",
			},
			[]string{"kind", "outcome"},
		),
		jobsExecuted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "jobs_executed_total",
				Help:      "Execution-endpoint runs by kind and outcome",
			},
			[]string{"kind", "outcome"},
		),
		throttleQueued: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "outbound_throttle_queued",
				Help:      "Tasks waiting in the outbound request throttle",
			},
		),
		throttleActive: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "outbound_throttle_active",
				Help:      "Tasks currently running through the outbound request throttle",
			},
		),
	}

	reg.MustRegister(
		m.webhookEvents,
		m.toolInvocations,
		m.jobsScheduled,
		m.jobsExecuted,
		m.throttleQueued,
		m.throttleActive,
	)
	return m
}

// All increment helpers are nil-safe so callers can run unmetered in tests.

func (m *Metrics) WebhookEvent(msgType, outcome string) {
	if m == nil {
		return
	}
	m.webhookEvents.WithLabelValues(msgType, outcome).Inc()
}

func (m *Metrics) ToolInvocation(tool, outcome string) {
	if m == nil {
		return
	}
	m.toolInvocations.WithLabelValues(tool, outcome).Inc()
}

func (m *Metrics) JobScheduled(kind, outcome string) {
	if m == nil {
		return
	}
	m.jobsScheduled.WithLabelValues(kind, outcome).Inc()
}

func (m *Metrics) JobExecuted(kind, outcome string) {
	if m == nil {
		return
	}
	m.jobsExecuted.WithLabelValues(kind, outcome).Inc()
}

// ThrottleDepth records the queue/active levels of the outbound throttle.
func (m *Metrics) ThrottleDepth(queued, active int) {
	if m == nil {
		return
	}
	m.throttleQueued.Set(float64(queued))
	m.throttleActive.Set(float64(active))
}

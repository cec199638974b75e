package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the service's Prometheus collectors. A nil *Metrics is a
// valid no-op recorder.
type Metrics struct {
	WebhookEvents    *prometheus.CounterVec
	CheckoutSessions *prometheus.CounterVec
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		WebhookEvents: prometheus.NewCounterVec(
			prometheus.CounterOpts{Namespace: "summarist", Name: "webhook_events_total", Help: "Stripe webhook events by kind and outcome."},
			[]string{"kind", "outcome"},
		),
		CheckoutSessions: prometheus.NewCounterVec(
			prometheus.CounterOpts{Namespace: "summarist", Name: "checkout_sessions_total", Help: "Checkout session requests by outcome."},
			[]string{"outcome"},
		),
	}
	reg.MustRegister(m.WebhookEvents, m.CheckoutSessions)
	return m
}

func (m *Metrics) WebhookEvent(kind, outcome string) {
	if m == nil {
		return
	}
	m.WebhookEvents.WithLabelValues(kind, outcome).Inc()
}

func (m *Metrics) Checkout(outcome string) {
	if m == nil {
		return
	}
	m.CheckoutSessions.WithLabelValues(outcome).Inc()
}

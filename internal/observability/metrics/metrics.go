// Package metrics exposes Prometheus instruments for the storefront's
// purchase lifecycle. The registry also carries the gorm plugin's
// connection-pool stats.
package metrics

import (
	"strings"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the application-level counters.
type Metrics struct {
	checkouts     *prometheus.CounterVec
	paymentEvents *prometheus.CounterVec
	sweeps        *prometheus.CounterVec
	codesIssued   prometheus.Counter
}

func New() *Metrics {
	m := &Metrics{
		checkouts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "beatbazaar_checkouts_total",
			Help: "Checkout attempts by result.",
		}, []string{"result"}),
		paymentEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "beatbazaar_payment_events_total",
			Help: "Payment provider callbacks by result.",
		}, []string{"result"}),
		sweeps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "beatbazaar_dedup_groups_total",
			Help: "Duplicate purchase groups handled by the sweeper.",
		}, []string{"result"}),
		codesIssued: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "beatbazaar_verification_codes_issued_total",
			Help: "Verification codes issued.",
		}),
	}
	prometheus.MustRegister(m.checkouts, m.paymentEvents, m.sweeps, m.codesIssued)
	return m
}

func (m *Metrics) RecordCheckout(result string) {
	if m == nil {
		return
	}
	m.checkouts.WithLabelValues(normalize(result)).Inc()
}

func (m *Metrics) RecordPaymentEvent(result string) {
	if m == nil {
		return
	}
	m.paymentEvents.WithLabelValues(normalize(result)).Inc()
}

func (m *Metrics) RecordSweep(result string, groups int) {
	if m == nil || groups < 0 {
		return
	}
	m.sweeps.WithLabelValues(normalize(result)).Add(float64(groups))
}

func (m *Metrics) RecordCodeIssued() {
	if m == nil {
		return
	}
	m.codesIssued.Inc()
}

func normalize(result string) string {
	result = strings.TrimSpace(strings.ToLower(result))
	if result == "" {
		return "unknown"
	}
	return result
}

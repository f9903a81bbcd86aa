package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/congo-pay/custody/internal/apperr"
)

const outcomeSuccess = "success"

// Metrics holds the collectors emitted by the custody services. Every method
// is safe to call on a nil receiver.
type Metrics struct {
	LedgerOperations    *prometheus.CounterVec
	VerificationLatency *prometheus.HistogramVec
	OwnershipOperations *prometheus.CounterVec
	Notifications       *prometheus.CounterVec
	RequestCount        *prometheus.CounterVec
	RequestDuration     *prometheus.HistogramVec
}

// New registers the collectors on registry.
func New(registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		LedgerOperations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "custody_ledger_operations_total",
				Help: "Wallet ledger operations by outcome.",
			},
			[]string{"operation", "outcome"},
		),
		VerificationLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "custody_payment_verification_seconds",
				Help:    "External payment verification latency in seconds.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"outcome"},
		),
		OwnershipOperations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "custody_ownership_operations_total",
				Help: "Resource ownership and status operations by outcome.",
			},
			[]string{"operation", "outcome"},
		),
		Notifications: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "custody_notifications_total",
				Help: "Notification delivery attempts by outcome.",
			},
			[]string{"outcome"},
		),
		RequestCount: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests.",
			},
			[]string{"method", "path", "status"},
		),
		RequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Duration of HTTP requests in seconds.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path", "status"},
		),
	}

	registry.MustRegister(
		m.LedgerOperations,
		m.VerificationLatency,
		m.OwnershipOperations,
		m.Notifications,
		m.RequestCount,
		m.RequestDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func Handler(registry *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}

// Outcome labels err by its apperr kind, or "success" when nil.
func Outcome(err error) string {
	if err == nil {
		return outcomeSuccess
	}
	return strings.ToLower(string(apperr.KindOf(err)))
}

// ObserveLedger counts a fund or transfer attempt.
func (m *Metrics) ObserveLedger(operation string, err error) {
	if m == nil {
		return
	}
	m.LedgerOperations.WithLabelValues(operation, Outcome(err)).Inc()
}

// ObserveVerification records one call to the payment verifier.
func (m *Metrics) ObserveVerification(outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.VerificationLatency.WithLabelValues(outcome).Observe(elapsed.Seconds())
}

// ObserveOwnership counts an ownership change or status update attempt.
func (m *Metrics) ObserveOwnership(operation string, err error) {
	if m == nil {
		return
	}
	m.OwnershipOperations.WithLabelValues(operation, Outcome(err)).Inc()
}

// NotificationSent counts one delivery attempt.
func (m *Metrics) NotificationSent(err error) {
	if m == nil {
		return
	}
	outcome := outcomeSuccess
	if err != nil {
		outcome = "error"
	}
	m.Notifications.WithLabelValues(outcome).Inc()
}

// ObserveRequest records one HTTP request against its route pattern.
func (m *Metrics) ObserveRequest(method, path string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	code := strconv.Itoa(status)
	m.RequestCount.WithLabelValues(method, path, code).Inc()
	m.RequestDuration.WithLabelValues(method, path, code).Observe(elapsed.Seconds())
}

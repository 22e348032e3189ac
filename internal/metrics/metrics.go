// Package metrics объявляет Prometheus-метрики сервиса.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "aahar_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "aahar_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	BookingsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "aahar_bookings_total",
			Help: "Booking attempts by outcome",
		},
		[]string{"status"},
	)

	SubscriptionChangesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "aahar_subscription_changes_total",
			Help: "Subscription status changes by type",
		},
		[]string{"type", "premium"},
	)

	OTPTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "aahar_otp_total",
			Help: "OTP operations by step and outcome",
		},
		[]string{"step", "status"},
	)

	PremiumGateTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "aahar_premium_gate_total",
			Help: "Premium gate decisions",
		},
		[]string{"decision"},
	)

	EmailsSentTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "aahar_emails_sent_total",
			Help: "Total number of emails sent",
		},
		[]string{"type", "status"},
	)

	EntitlementWatchers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "aahar_entitlement_watchers",
			Help: "Open subscription event streams",
		},
	)
)

func RecordHTTPRequest(method, path, status string, duration float64) {
	HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
	HTTPRequestDuration.WithLabelValues(method, path).Observe(duration)
}

func RecordBooking(status string) {
	BookingsTotal.WithLabelValues(status).Inc()
}

func RecordSubscriptionChange(subType string, premium bool) {
	p := "false"
	if premium {
		p = "true"
	}
	SubscriptionChangesTotal.WithLabelValues(subType, p).Inc()
}

func RecordOTP(step, status string) {
	OTPTotal.WithLabelValues(step, status).Inc()
}

func RecordPremiumGate(decision string) {
	PremiumGateTotal.WithLabelValues(decision).Inc()
}

func RecordEmail(emailType, status string) {
	EmailsSentTotal.WithLabelValues(emailType, status).Inc()
}

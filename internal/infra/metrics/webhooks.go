package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		webhookEvents,
		webhookDuplicates,
		webhookFailures,
	)
}

var (
	webhookEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "webhook_events_total",
			Help: "Verified webhook notifications by lifecycle classification.",
		},
		[]string{"type"},
	)

	webhookDuplicates = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "webhook_duplicate_events_total",
			Help: "Redelivered notifications skipped by the idempotency store.",
		},
	)

	webhookFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "webhook_failures_total",
			Help: "Rejected notifications by reason (signature/parse/config/store/hook).",
		},
		[]string{"reason"},
	)
)

func IncWebhookEvent(eventType string) {
	webhookEvents.WithLabelValues(norm(eventType)).Inc()
}

func IncWebhookDuplicate() {
	webhookDuplicates.Inc()
}

func IncWebhookFailure(reason string) {
	webhookFailures.WithLabelValues(norm(reason)).Inc()
}

package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		plansProvisioned,
		planVolumeTotal,
		planCancellations,
		providerCalls,
	)
}

var (
	plansProvisioned = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "installment_plans_provisioned_total",
			Help: "Checkout sessions created for installment plans, by currency.",
		},
		[]string{"currency"},
	)

	planVolumeTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "installment_plan_volume_minor_total",
			Help: "Total provisioned plan value in minor units, by currency.",
		},
		[]string{"currency"},
	)

	planCancellations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "installment_plan_cancellations_total",
			Help: "Cancellation requests by mode (period_end/immediate).",
		},
		[]string{"mode"},
	)

	providerCalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "billing_provider_calls_total",
			Help: "Provider RPCs by operation and outcome.",
		},
		[]string{"op", "success"},
	)
)

func IncPlanProvisioned(currency string, totalMinor int64) {
	plansProvisioned.WithLabelValues(norm(currency)).Inc()
	planVolumeTotal.WithLabelValues(norm(currency)).Add(float64(totalMinor))
}

func IncPlanCancellation(atPeriodEnd bool) {
	mode := "immediate"
	if atPeriodEnd {
		mode = "period_end"
	}
	planCancellations.WithLabelValues(mode).Inc()
}

func IncProviderCall(op string, success bool) {
	s := "false"
	if success {
		s = "true"
	}
	providerCalls.WithLabelValues(norm(op), s).Inc()
}

package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	CheckoutsCreated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "soloist_checkouts_created_total",
			Help: "Number of checkout sessions and payment intents created",
		},
		[]string{"flow"},
	)

	CheckoutFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "soloist_checkout_failures_total",
			Help: "Number of checkout attempts that failed, by error category",
		},
		[]string{"flow", "reason"},
	)

	WebhookEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "soloist_webhook_events_total",
			Help: "Number of verified webhook events, by type and outcome",
		},
		[]string{"type", "outcome"},
	)

	WebhookSignatureFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "soloist_webhook_signature_failures_total",
			Help: "Number of webhook requests rejected by signature verification",
		},
	)

	FulfillmentDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "soloist_fulfillment_duration_seconds",
			Help:    "Time taken to apply a fulfillment transaction",
			Buckets: prometheus.DefBuckets,
		},
	)

	ExpiredPayments = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "soloist_expired_payments_total",
			Help: "Number of stale pending payments moved to failed",
		},
	)
)

func Register() {
	prometheus.MustRegister(
		CheckoutsCreated,
		CheckoutFailures,
		WebhookEvents,
		WebhookSignatureFailures,
		FulfillmentDuration,
		ExpiredPayments,
	)
}

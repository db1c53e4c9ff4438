package stripe

import (
	"strings"

	"github.com/stripe/stripe-go/v75"
)

// SessionSucceeded reports whether a checkout session's payment_status means the
// customer was charged (or owes nothing).
func SessionSucceeded(paymentStatus string) bool {
	switch normalize(paymentStatus) {
	case string(stripe.CheckoutSessionPaymentStatusPaid),
		string(stripe.CheckoutSessionPaymentStatusNoPaymentRequired):
		return true
	default:
		return false
	}
}

func IntentSucceeded(status string) bool {
	return normalize(status) == string(stripe.PaymentIntentStatusSucceeded)
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

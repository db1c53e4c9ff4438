package billing

import (
	"context"

	"soloist/internal/domain/billing"
	"soloist/internal/service/payments"

	"github.com/sirupsen/logrus"
)

type Service interface {
	CreateCheckoutSession(ctx context.Context, in payments.CheckoutInput) (*payments.CheckoutResult, error)
	CreatePaymentIntent(ctx context.Context, in payments.IntentInput) (*payments.IntentResult, error)
	GetPayment(ctx context.Context, id string) (*billing.Payment, error)
	ListUserPayments(ctx context.Context, userID string) ([]billing.Payment, error)
	VerifySession(ctx context.Context, sessionID string) (*billing.CheckoutSessionStatus, error)
	VerifyPayment(ctx context.Context, intentID string) (*billing.PaymentIntentStatus, error)
}

// PublicConfig is the browser-safe part of the processor configuration.
type PublicConfig struct {
	PublishableKey string   `json:"publishableKey"`
	PriceIDs       []string `json:"priceIds"`
	HostingURL     string   `json:"hostingUrl"`
}

type Handler struct {
	svc    Service
	public PublicConfig
	log    logrus.FieldLogger
}

func NewHandler(svc Service, public PublicConfig, log logrus.FieldLogger) *Handler {
	if public.PriceIDs == nil {
		public.PriceIDs = []string{}
	}
	return &Handler{svc: svc, public: public, log: log}
}

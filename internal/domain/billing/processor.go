package billing

import "context"

// Processor is the narrow contract with the payment processor.
type Processor interface {
	Price(ctx context.Context, priceID string) (*Price, error)
	NewCheckoutSession(ctx context.Context, req CheckoutSessionRequest) (*CheckoutSession, error)
	NewPaymentIntent(ctx context.Context, req PaymentIntentRequest) (*PaymentIntent, error)
	CheckoutSessionStatus(ctx context.Context, sessionID string) (*CheckoutSessionStatus, error)
	PaymentIntentStatus(ctx context.Context, intentID string) (*PaymentIntentStatus, error)
	ConstructEvent(payload []byte, signatureHeader string) (*Event, error)
}

type Price struct {
	ID          string
	UnitAmount  int64
	Currency    string
	ProductName string
}

type CheckoutSessionRequest struct {
	PriceID       string
	SuccessURL    string
	CancelURL     string
	CustomerEmail string
	Metadata      Metadata
}

type CheckoutSession struct {
	ID  string
	URL string
}

type PaymentIntentRequest struct {
	Amount        int64
	Currency      string
	Description   string
	CustomerEmail string
	Metadata      Metadata
}

type PaymentIntent struct {
	ID           string
	ClientSecret string
}

type CheckoutSessionStatus struct {
	ID              string `json:"id"`
	PaymentStatus   string `json:"payment_status"`
	Status          string `json:"status"`
	AmountTotal     int64  `json:"amount_total"`
	Currency        string `json:"currency"`
	CustomerEmail   string `json:"customer_email,omitempty"`
	PaymentIntentID string `json:"payment_intent_id,omitempty"`
	Succeeded       bool   `json:"succeeded"`
}

type PaymentIntentStatus struct {
	ID        string `json:"id"`
	Amount    int64  `json:"amount"`
	Status    string `json:"status"`
	Currency  string `json:"currency"`
	Succeeded bool   `json:"succeeded"`
}

// Processor event types the webhook reacts to.
const (
	EventCheckoutSessionCompleted   = "checkout.session.completed"
	EventPaymentIntentSucceeded     = "payment_intent.succeeded"
	EventPaymentIntentPaymentFailed = "payment_intent.payment_failed"
)

// Event is a verified processor event reduced to what fulfillment needs.
type Event struct {
	ID       string
	Type     string
	ObjectID string
	Amount   int64
	Currency string
	Metadata Metadata
}

// Metadata keys written on processor objects.
const (
	MetaPaymentID = "paymentId"
	MetaUserID    = "userId"
	MetaPriceID   = "priceId"
)

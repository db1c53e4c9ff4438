package payments

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"soloist/internal/domain/billing"
	"soloist/internal/metrics"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"
)

// Store is the persistence the payment flow needs. It is implemented by
// postgres.PaymentRepository.
type Store interface {
	Create(ctx context.Context, p *billing.Payment) error
	AttachProcessorIDs(ctx context.Context, paymentID, stripeID, sessionID string) error
	Fulfill(ctx context.Context, f billing.Fulfillment) (billing.FulfillResult, error)
	GetByID(ctx context.Context, id string) (*billing.Payment, error)
	ListByUser(ctx context.Context, userID string) ([]billing.Payment, error)
	CountStalePending(ctx context.Context, before time.Time) (int64, error)
	ExpireStalePending(ctx context.Context, before time.Time, reason string) (int64, error)
}

// Notifier is told about every payment that reached completed. Failures are
// logged by the service and never reach the webhook response.
type Notifier interface {
	PaymentCompleted(ctx context.Context, p billing.Payment) error
}

type Options struct {
	HostingURL      string
	PriceIDs        []string
	DefaultCurrency string
}

type Service struct {
	store     Store
	processor billing.Processor
	notifiers []Notifier
	log       logrus.FieldLogger
	opts      Options
	validate  *validator.Validate
	now       func() time.Time
}

func NewService(store Store, processor billing.Processor, log logrus.FieldLogger, opts Options, notifiers ...Notifier) *Service {
	opts.HostingURL = strings.TrimRight(opts.HostingURL, "/")
	if opts.DefaultCurrency == "" {
		opts.DefaultCurrency = "usd"
	}
	return &Service{
		store:     store,
		processor: processor,
		notifiers: notifiers,
		log:       log,
		opts:      opts,
		validate:  validator.New(),
		now:       time.Now,
	}
}

type CheckoutInput struct {
	PriceID       string
	SuccessURL    string
	CancelURL     string
	CustomerEmail string
	Metadata      billing.Metadata
	UserID        string
}

type CheckoutResult struct {
	SessionID  string `json:"sessionId"`
	SessionURL string `json:"sessionUrl"`
	PaymentID  string `json:"paymentId"`
}

type IntentInput struct {
	PriceID       string
	CustomerEmail string
	Metadata      billing.Metadata
	UserID        string
}

type IntentResult struct {
	ClientSecret string `json:"clientSecret"`
	ID           string `json:"id"`
	PaymentID    string `json:"paymentId"`
}

// CreateCheckoutSession starts a hosted checkout. The payment record is
// written before the processor is called and carries amount 0 until the
// completion event reports the charged total.
func (s *Service) CreateCheckoutSession(ctx context.Context, in CheckoutInput) (*CheckoutResult, error) {
	res, err := s.createCheckoutSession(ctx, in)
	if err != nil {
		metrics.CheckoutFailures.WithLabelValues("checkout_session", reason(err)).Inc()
		return nil, err
	}
	metrics.CheckoutsCreated.WithLabelValues("checkout_session").Inc()
	return res, nil
}

func (s *Service) createCheckoutSession(ctx context.Context, in CheckoutInput) (*CheckoutResult, error) {
	in.PriceID = strings.TrimSpace(in.PriceID)
	email, err := s.checkInput(in.PriceID, in.CustomerEmail, in.UserID)
	if err != nil {
		return nil, err
	}

	p := &billing.Payment{
		UserID:   optional(in.UserID),
		Amount:   0,
		Currency: s.opts.DefaultCurrency,
		Metadata: recordMetadata(in.Metadata, in.PriceID),
	}
	if err := s.store.Create(ctx, p); err != nil {
		return nil, err
	}

	successURL := in.SuccessURL
	if successURL == "" {
		successURL = fmt.Sprintf("%s/payment-success?paymentId=%s", s.opts.HostingURL, p.ID)
	}
	cancelURL := in.CancelURL
	if cancelURL == "" {
		cancelURL = s.opts.HostingURL + "/payment-canceled"
	}

	session, err := s.processor.NewCheckoutSession(ctx, billing.CheckoutSessionRequest{
		PriceID:       in.PriceID,
		SuccessURL:    successURL,
		CancelURL:     cancelURL,
		CustomerEmail: email,
		Metadata:      processorMetadata(in.Metadata, p.ID, in.UserID, in.PriceID),
	})
	if err != nil {
		s.log.WithFields(logrus.Fields{"payment_id": p.ID, "price_id": in.PriceID}).
			WithError(err).Warn("checkout session rejected, payment left pending")
		return nil, err
	}

	if err := s.store.AttachProcessorIDs(ctx, p.ID, session.ID, session.ID); err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{"payment_id": p.ID, "session_id": session.ID}).Info("checkout session created")
	return &CheckoutResult{SessionID: session.ID, SessionURL: session.URL, PaymentID: p.ID}, nil
}

// CreatePaymentIntent starts an embedded-element payment. Amount and currency
// come from the price catalog and are stored on the record up front.
func (s *Service) CreatePaymentIntent(ctx context.Context, in IntentInput) (*IntentResult, error) {
	res, err := s.createPaymentIntent(ctx, in)
	if err != nil {
		metrics.CheckoutFailures.WithLabelValues("payment_intent", reason(err)).Inc()
		return nil, err
	}
	metrics.CheckoutsCreated.WithLabelValues("payment_intent").Inc()
	return res, nil
}

func (s *Service) createPaymentIntent(ctx context.Context, in IntentInput) (*IntentResult, error) {
	in.PriceID = strings.TrimSpace(in.PriceID)
	email, err := s.checkInput(in.PriceID, in.CustomerEmail, in.UserID)
	if err != nil {
		return nil, err
	}

	price, err := s.processor.Price(ctx, in.PriceID)
	if err != nil {
		return nil, err
	}
	currency := price.Currency
	if currency == "" {
		currency = s.opts.DefaultCurrency
	}

	p := &billing.Payment{
		UserID:   optional(in.UserID),
		Amount:   price.UnitAmount,
		Currency: currency,
		Metadata: recordMetadata(in.Metadata, in.PriceID),
	}
	if err := s.store.Create(ctx, p); err != nil {
		return nil, err
	}

	intent, err := s.processor.NewPaymentIntent(ctx, billing.PaymentIntentRequest{
		Amount:        price.UnitAmount,
		Currency:      currency,
		Description:   price.ProductName,
		CustomerEmail: email,
		Metadata:      processorMetadata(in.Metadata, p.ID, in.UserID, in.PriceID),
	})
	if err != nil {
		s.log.WithFields(logrus.Fields{"payment_id": p.ID, "price_id": in.PriceID}).
			WithError(err).Warn("payment intent rejected, payment left pending")
		return nil, err
	}

	if err := s.store.AttachProcessorIDs(ctx, p.ID, intent.ID, intent.ID); err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{"payment_id": p.ID, "intent_id": intent.ID}).Info("payment intent created")
	return &IntentResult{ClientSecret: intent.ClientSecret, ID: intent.ID, PaymentID: p.ID}, nil
}

// checkInput validates a purchase request and returns the email to forward,
// empty when none should be sent.
func (s *Service) checkInput(priceID, email, userID string) (string, error) {
	if s.processor == nil {
		return "", fmt.Errorf("payment processor: %w", billing.ErrNotConfigured)
	}
	if priceID == "" {
		return "", billing.Invalid("priceId is required")
	}
	if len(s.opts.PriceIDs) > 0 && !contains(s.opts.PriceIDs, priceID) {
		return "", billing.Invalid("unknown priceId %q", priceID)
	}
	if userID != "" {
		if err := s.validate.Var(userID, "uuid"); err != nil {
			return "", billing.Invalid("userId must be a uuid")
		}
	}

	email = strings.TrimSpace(email)
	if email == "" {
		return "", nil
	}
	if err := s.validate.Var(email, "email"); err != nil {
		return "", billing.Invalid("customerEmail %q is not a valid email address", email)
	}
	return email, nil
}

func (s *Service) GetPayment(ctx context.Context, id string) (*billing.Payment, error) {
	if strings.TrimSpace(id) == "" {
		return nil, billing.Invalid("payment id is required")
	}
	if err := s.validate.Var(id, "uuid"); err != nil {
		return nil, billing.ErrPaymentNotFound
	}
	return s.store.GetByID(ctx, id)
}

func (s *Service) ListUserPayments(ctx context.Context, userID string) ([]billing.Payment, error) {
	return s.store.ListByUser(ctx, userID)
}

func (s *Service) VerifySession(ctx context.Context, sessionID string) (*billing.CheckoutSessionStatus, error) {
	if s.processor == nil {
		return nil, fmt.Errorf("payment processor: %w", billing.ErrNotConfigured)
	}
	if strings.TrimSpace(sessionID) == "" {
		return nil, billing.Invalid("session_id is required")
	}
	return s.processor.CheckoutSessionStatus(ctx, sessionID)
}

func (s *Service) VerifyPayment(ctx context.Context, intentID string) (*billing.PaymentIntentStatus, error) {
	if s.processor == nil {
		return nil, fmt.Errorf("payment processor: %w", billing.ErrNotConfigured)
	}
	if strings.TrimSpace(intentID) == "" {
		return nil, billing.Invalid("payment_intent_id is required")
	}
	return s.processor.PaymentIntentStatus(ctx, intentID)
}

// SweepResult reports what ExpireStalePending did or, on a dry run, would do.
type SweepResult struct {
	Cutoff  time.Time
	Matched int64
	Expired int64
	DryRun  bool
}

// ExpireStalePending fails pending payments older than olderThan.
func (s *Service) ExpireStalePending(ctx context.Context, olderThan time.Duration, dryRun bool) (SweepResult, error) {
	if olderThan <= 0 {
		return SweepResult{}, billing.Invalid("older-than must be positive")
	}
	res := SweepResult{Cutoff: s.now().Add(-olderThan), DryRun: dryRun}

	n, err := s.store.CountStalePending(ctx, res.Cutoff)
	if err != nil {
		return res, err
	}
	res.Matched = n
	if dryRun || n == 0 {
		return res, nil
	}

	expired, err := s.store.ExpireStalePending(ctx, res.Cutoff, billing.ReasonExpired)
	if err != nil {
		return res, err
	}
	res.Expired = expired
	metrics.ExpiredPayments.Add(float64(expired))
	s.log.WithFields(logrus.Fields{"cutoff": res.Cutoff, "expired": expired}).Info("stale pending payments expired")
	return res, nil
}

func recordMetadata(in billing.Metadata, priceID string) billing.Metadata {
	out := billing.Metadata{}
	for k, v := range in {
		out[k] = v
	}
	out[billing.MetaPriceID] = priceID
	return out
}

func processorMetadata(in billing.Metadata, paymentID, userID, priceID string) billing.Metadata {
	out := recordMetadata(in, priceID)
	out[billing.MetaPaymentID] = paymentID
	out[billing.MetaUserID] = userID
	return out
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if strings.TrimSpace(item) == v {
			return true
		}
	}
	return false
}

func reason(err error) string {
	switch {
	case errors.Is(err, billing.ErrNotConfigured):
		return "not_configured"
	case errors.Is(err, billing.ErrInvalidRequest):
		return "invalid_request"
	case errors.Is(err, billing.ErrProcessor):
		return "processor"
	default:
		return "internal"
	}
}

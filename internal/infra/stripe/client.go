package stripe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"soloist/internal/domain/billing"

	"github.com/stripe/stripe-go/v75"
	"github.com/stripe/stripe-go/v75/client"
	"github.com/stripe/stripe-go/v75/webhook"
)

// Client implements billing.Processor on top of stripe-go. It holds its own
// API client instead of the package-level stripe.Key.
type Client struct {
	api           *client.API
	webhookSecret string
}

var _ billing.Processor = (*Client)(nil)

// New returns a client. Empty credentials are allowed; the affected calls
// return billing.ErrNotConfigured.
func New(secretKey, webhookSecret string) *Client {
	c := &Client{webhookSecret: webhookSecret}
	if secretKey != "" {
		c.api = client.New(secretKey, nil)
	}
	return c
}

func (c *Client) Price(ctx context.Context, priceID string) (*billing.Price, error) {
	if c.api == nil {
		return nil, fmt.Errorf("stripe secret key: %w", billing.ErrNotConfigured)
	}
	params := &stripe.PriceParams{}
	params.Context = ctx
	params.AddExpand("product")

	p, err := c.api.Prices.Get(priceID, params)
	if err != nil {
		return nil, mapError(err)
	}

	out := &billing.Price{
		ID:         p.ID,
		UnitAmount: p.UnitAmount,
		Currency:   string(p.Currency),
	}
	if p.Product != nil {
		out.ProductName = p.Product.Name
	}
	return out, nil
}

func (c *Client) NewCheckoutSession(ctx context.Context, req billing.CheckoutSessionRequest) (*billing.CheckoutSession, error) {
	if c.api == nil {
		return nil, fmt.Errorf("stripe secret key: %w", billing.ErrNotConfigured)
	}
	params := &stripe.CheckoutSessionParams{
		Mode:       stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL: stripe.String(req.SuccessURL),
		CancelURL:  stripe.String(req.CancelURL),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{Price: stripe.String(req.PriceID), Quantity: stripe.Int64(1)},
		},
	}
	if req.CustomerEmail != "" {
		params.CustomerEmail = stripe.String(req.CustomerEmail)
	}
	for k, v := range req.Metadata {
		params.AddMetadata(k, v)
	}
	params.Context = ctx

	s, err := c.api.CheckoutSessions.New(params)
	if err != nil {
		return nil, mapError(err)
	}
	return &billing.CheckoutSession{ID: s.ID, URL: s.URL}, nil
}

func (c *Client) NewPaymentIntent(ctx context.Context, req billing.PaymentIntentRequest) (*billing.PaymentIntent, error) {
	if c.api == nil {
		return nil, fmt.Errorf("stripe secret key: %w", billing.ErrNotConfigured)
	}
	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(req.Amount),
		Currency: stripe.String(req.Currency),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	if req.Description != "" {
		params.Description = stripe.String(req.Description)
	}
	if req.CustomerEmail != "" {
		params.ReceiptEmail = stripe.String(req.CustomerEmail)
	}
	for k, v := range req.Metadata {
		params.AddMetadata(k, v)
	}
	params.Context = ctx

	pi, err := c.api.PaymentIntents.New(params)
	if err != nil {
		return nil, mapError(err)
	}
	return &billing.PaymentIntent{ID: pi.ID, ClientSecret: pi.ClientSecret}, nil
}

func (c *Client) CheckoutSessionStatus(ctx context.Context, sessionID string) (*billing.CheckoutSessionStatus, error) {
	if c.api == nil {
		return nil, fmt.Errorf("stripe secret key: %w", billing.ErrNotConfigured)
	}
	params := &stripe.CheckoutSessionParams{}
	params.Context = ctx

	s, err := c.api.CheckoutSessions.Get(sessionID, params)
	if err != nil {
		return nil, mapError(err)
	}

	out := &billing.CheckoutSessionStatus{
		ID:            s.ID,
		PaymentStatus: string(s.PaymentStatus),
		Status:        string(s.Status),
		AmountTotal:   s.AmountTotal,
		Currency:      string(s.Currency),
		CustomerEmail: s.CustomerEmail,
		Succeeded:     SessionSucceeded(string(s.PaymentStatus)),
	}
	if out.CustomerEmail == "" && s.CustomerDetails != nil {
		out.CustomerEmail = s.CustomerDetails.Email
	}
	if s.PaymentIntent != nil {
		out.PaymentIntentID = s.PaymentIntent.ID
	}
	return out, nil
}

func (c *Client) PaymentIntentStatus(ctx context.Context, intentID string) (*billing.PaymentIntentStatus, error) {
	if c.api == nil {
		return nil, fmt.Errorf("stripe secret key: %w", billing.ErrNotConfigured)
	}
	params := &stripe.PaymentIntentParams{}
	params.Context = ctx

	pi, err := c.api.PaymentIntents.Get(intentID, params)
	if err != nil {
		return nil, mapError(err)
	}
	return &billing.PaymentIntentStatus{
		ID:        pi.ID,
		Amount:    pi.Amount,
		Status:    string(pi.Status),
		Currency:  string(pi.Currency),
		Succeeded: IntentSucceeded(string(pi.Status)),
	}, nil
}

// ConstructEvent verifies the Stripe-Signature header against the raw payload
// and reduces the event to the fields fulfillment reads. Object fields are only
// decoded for the event types the webhook reacts to.
func (c *Client) ConstructEvent(payload []byte, signatureHeader string) (*billing.Event, error) {
	if c.webhookSecret == "" {
		return nil, fmt.Errorf("stripe webhook secret: %w", billing.ErrNotConfigured)
	}

	ev, err := webhook.ConstructEventWithOptions(
		payload,
		signatureHeader,
		c.webhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true},
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", billing.ErrInvalidSignature, err.Error())
	}

	out := &billing.Event{ID: ev.ID, Type: string(ev.Type)}
	if ev.Data == nil {
		return out, nil
	}

	switch out.Type {
	case billing.EventCheckoutSessionCompleted:
		var s stripe.CheckoutSession
		if err := json.Unmarshal(ev.Data.Raw, &s); err != nil {
			return nil, billing.Invalid("parse checkout session: %s", err.Error())
		}
		out.ObjectID = s.ID
		out.Amount = s.AmountTotal
		out.Currency = string(s.Currency)
		out.Metadata = s.Metadata

	case billing.EventPaymentIntentSucceeded, billing.EventPaymentIntentPaymentFailed:
		var pi stripe.PaymentIntent
		if err := json.Unmarshal(ev.Data.Raw, &pi); err != nil {
			return nil, billing.Invalid("parse payment intent: %s", err.Error())
		}
		out.ObjectID = pi.ID
		out.Amount = pi.Amount
		out.Currency = string(pi.Currency)
		out.Metadata = pi.Metadata
	}
	return out, nil
}

func mapError(err error) error {
	var se *stripe.Error
	if errors.As(err, &se) {
		msg := strings.TrimSpace(se.Msg)
		if msg == "" {
			msg = err.Error()
		}
		return &billing.ProcessorError{
			StatusCode: se.HTTPStatusCode,
			Code:       string(se.Code),
			Param:      se.Param,
			Message:    msg,
		}
	}
	return &billing.ProcessorError{Message: err.Error()}
}

package payments

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"soloist/internal/domain/billing"

	"github.com/google/uuid"
)

type memoryStore struct {
	mu       sync.Mutex
	payments map[string]*billing.Payment
	events   map[string]bool
	calls    []string
}

func newMemoryStore() *memoryStore {
	return &memoryStore{payments: map[string]*billing.Payment{}, events: map[string]bool{}}
}

func (m *memoryStore) Create(_ context.Context, p *billing.Payment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p.ID = uuid.NewString()
	p.Status = billing.StatusPending
	p.StripeID = nil
	p.StripeSessionID = nil
	p.CreatedAt = time.Now()
	cp := *p
	m.payments[p.ID] = &cp
	m.calls = append(m.calls, "create")
	return nil
}

func (m *memoryStore) AttachProcessorIDs(_ context.Context, paymentID, stripeID, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.payments[paymentID]
	if !ok {
		return billing.ErrPaymentNotFound
	}
	p.StripeID = &stripeID
	p.StripeSessionID = &sessionID
	now := time.Now()
	p.UpdatedAt = &now
	m.calls = append(m.calls, "attach")
	return nil
}

func (m *memoryStore) Fulfill(_ context.Context, f billing.Fulfillment) (billing.FulfillResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var p *billing.Payment
	for _, candidate := range m.payments {
		if candidate.StripeID != nil && *candidate.StripeID == f.StripeID {
			p = candidate
		}
	}
	if p == nil {
		return billing.FulfillResult{}, fmt.Errorf("payment with stripe id %s: %w", f.StripeID, billing.ErrPaymentNotFound)
	}
	if m.events[f.EventID] {
		return billing.FulfillResult{Payment: *p, Duplicate: true}, nil
	}
	if !p.CanComplete() {
		return billing.FulfillResult{}, billing.ErrInvalidTransition
	}
	m.events[f.EventID] = true
	if p.Status == billing.StatusCompleted {
		return billing.FulfillResult{Payment: *p}, nil
	}
	p.Status = billing.StatusCompleted
	p.FailureReason = nil
	at := f.At
	p.UpdatedAt = &at
	if p.Amount == 0 && f.Amount > 0 {
		p.Amount = f.Amount
		p.Currency = f.Currency
	}
	m.calls = append(m.calls, "fulfill")
	return billing.FulfillResult{Payment: *p, Applied: true}, nil
}

func (m *memoryStore) GetByID(_ context.Context, id string) (*billing.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.payments[id]
	if !ok {
		return nil, billing.ErrPaymentNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *memoryStore) ListByUser(_ context.Context, userID string) ([]billing.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []billing.Payment
	for _, p := range m.payments {
		if p.UserID != nil && *p.UserID == userID {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (m *memoryStore) stale(before time.Time) []*billing.Payment {
	var out []*billing.Payment
	for _, p := range m.payments {
		if p.Status == billing.StatusPending && p.CreatedAt.Before(before) {
			out = append(out, p)
		}
	}
	return out
}

func (m *memoryStore) CountStalePending(_ context.Context, before time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.stale(before))), nil
}

func (m *memoryStore) ExpireStalePending(_ context.Context, before time.Time, reason string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	list := m.stale(before)
	for _, p := range list {
		p.Status = billing.StatusFailed
		r := reason
		p.FailureReason = &r
	}
	return int64(len(list)), nil
}

func (m *memoryStore) only() *billing.Payment {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.payments {
		cp := *p
		return &cp
	}
	return nil
}

// fakeProcessor signs payloads with their sha256 so tampering is detectable.
type fakeProcessor struct {
	prices     map[string]billing.Price
	rejectWith error

	sessions []billing.CheckoutSessionRequest
	intents  []billing.PaymentIntentRequest
	seq      int
}

func newFakeProcessor() *fakeProcessor {
	return &fakeProcessor{prices: map[string]billing.Price{
		"price_123": {ID: "price_123", UnitAmount: 1500, Currency: "usd", ProductName: "Soloist Pro"},
	}}
}

func fakeSignature(payload []byte) string {
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])
}

func (f *fakeProcessor) Price(_ context.Context, priceID string) (*billing.Price, error) {
	p, ok := f.prices[priceID]
	if !ok {
		return nil, &billing.ProcessorError{StatusCode: 404, Message: "No such price: '" + priceID + "'"}
	}
	return &p, nil
}

func (f *fakeProcessor) NewCheckoutSession(_ context.Context, req billing.CheckoutSessionRequest) (*billing.CheckoutSession, error) {
	if f.rejectWith != nil {
		return nil, f.rejectWith
	}
	f.seq++
	f.sessions = append(f.sessions, req)
	id := fmt.Sprintf("cs_test_%d", f.seq)
	return &billing.CheckoutSession{ID: id, URL: "https://checkout.stripe.com/c/pay/" + id}, nil
}

func (f *fakeProcessor) NewPaymentIntent(_ context.Context, req billing.PaymentIntentRequest) (*billing.PaymentIntent, error) {
	if f.rejectWith != nil {
		return nil, f.rejectWith
	}
	f.seq++
	f.intents = append(f.intents, req)
	id := fmt.Sprintf("pi_test_%d", f.seq)
	return &billing.PaymentIntent{ID: id, ClientSecret: id + "_secret_abc"}, nil
}

func (f *fakeProcessor) CheckoutSessionStatus(_ context.Context, sessionID string) (*billing.CheckoutSessionStatus, error) {
	return &billing.CheckoutSessionStatus{ID: sessionID, PaymentStatus: "paid", Status: "complete", Succeeded: true}, nil
}

func (f *fakeProcessor) PaymentIntentStatus(_ context.Context, intentID string) (*billing.PaymentIntentStatus, error) {
	return &billing.PaymentIntentStatus{ID: intentID, Status: "succeeded", Succeeded: true}, nil
}

func (f *fakeProcessor) ConstructEvent(payload []byte, signatureHeader string) (*billing.Event, error) {
	if signatureHeader == "" || signatureHeader != fakeSignature(payload) {
		return nil, billing.ErrInvalidSignature
	}
	var ev billing.Event
	if err := json.Unmarshal(payload, &ev); err != nil {
		return nil, billing.Invalid("parse event: %s", err.Error())
	}
	return &ev, nil
}

type recordingNotifier struct {
	mu       sync.Mutex
	payments []billing.Payment
	err      error
}

func (n *recordingNotifier) PaymentCompleted(_ context.Context, p billing.Payment) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.payments = append(n.payments, p)
	return n.err
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.payments)
}

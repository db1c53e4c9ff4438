package ws

import (
	"context"
	"sync"
	"time"

	"soloist/internal/domain/billing"
)

// StatusMessage is what a payment status socket receives.
type StatusMessage struct {
	PaymentID string         `json:"paymentId"`
	Status    billing.Status `json:"status"`
	Amount    int64          `json:"amount"`
	Currency  string         `json:"currency"`
	UpdatedAt *time.Time     `json:"updatedAt,omitempty"`
}

func messageFor(p billing.Payment) StatusMessage {
	return StatusMessage{
		PaymentID: p.ID,
		Status:    p.Status,
		Amount:    p.Amount,
		Currency:  p.Currency,
		UpdatedAt: p.UpdatedAt,
	}
}

const subscriberBuffer = 4

// Hub fans payment status changes out to the sockets watching that payment.
type Hub struct {
	mu          sync.Mutex
	subscribers map[string]map[chan StatusMessage]struct{}
}

func NewHub() *Hub {
	return &Hub{subscribers: make(map[string]map[chan StatusMessage]struct{})}
}

// Subscribe returns a channel of updates for one payment and a function that
// releases it.
func (h *Hub) Subscribe(paymentID string) (<-chan StatusMessage, func()) {
	ch := make(chan StatusMessage, subscriberBuffer)

	h.mu.Lock()
	if h.subscribers[paymentID] == nil {
		h.subscribers[paymentID] = make(map[chan StatusMessage]struct{})
	}
	h.subscribers[paymentID][ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			delete(h.subscribers[paymentID], ch)
			if len(h.subscribers[paymentID]) == 0 {
				delete(h.subscribers, paymentID)
			}
			close(ch)
		})
	}
}

// Publish never blocks; a subscriber whose buffer is full misses the update.
func (h *Hub) Publish(msg StatusMessage) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subscribers[msg.PaymentID] {
		select {
		case ch <- msg:
		default:
		}
	}
}

// PaymentCompleted lets the hub act as a fulfillment notifier.
func (h *Hub) PaymentCompleted(_ context.Context, p billing.Payment) error {
	h.Publish(messageFor(p))
	return nil
}

func (h *Hub) Subscribers(paymentID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subscribers[paymentID])
}

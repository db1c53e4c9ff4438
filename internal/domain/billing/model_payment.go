package billing

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Metadata is the free-form string map stored with a payment and forwarded to
// the processor.
type Metadata map[string]string

type Payment struct {
	ID              string     `gorm:"type:uuid;primaryKey" json:"id"`
	UserID          *string    `gorm:"type:uuid;index" json:"userId,omitempty"`
	Amount          int64      `gorm:"not null;default:0" json:"amount"`
	Currency        string     `gorm:"type:varchar(3);not null" json:"currency"`
	Status          Status     `gorm:"type:varchar(20);not null;index" json:"status"`
	StripeID        *string    `gorm:"column:stripe_id;uniqueIndex:idx_payments_stripe_id" json:"stripeId,omitempty"`
	StripeSessionID *string    `gorm:"column:stripe_session_id;index" json:"stripeSessionId,omitempty"`
	Metadata        Metadata   `gorm:"type:jsonb;serializer:json" json:"metadata"`
	FailureReason   *string    `gorm:"column:failure_reason" json:"failureReason,omitempty"`
	CreatedAt       time.Time  `json:"createdAt"`
	UpdatedAt       *time.Time `gorm:"autoUpdateTime:false" json:"updatedAt,omitempty"`
}

// BeforeCreate assigns the internal identifier so it is known before the
// processor is contacted.
func (p *Payment) BeforeCreate(_ *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.Status == "" {
		p.Status = StatusPending
	}
	return nil
}

// ProcessedEvent records a processor event id once its terminal transition has
// been applied.
type ProcessedEvent struct {
	EventID     string    `gorm:"primaryKey;type:varchar(255)" json:"eventId"`
	EventType   string    `gorm:"type:varchar(100);not null;index" json:"eventType"`
	StripeID    string    `gorm:"column:stripe_id;type:varchar(255);not null" json:"stripeId"`
	PaymentID   string    `gorm:"type:uuid;not null;index" json:"paymentId"`
	ProcessedAt time.Time `gorm:"not null" json:"processedAt"`
}

func (ProcessedEvent) TableName() string {
	return "processed_stripe_events"
}

// Expired reports whether the sweep failed p for lack of a terminal event.
func (p *Payment) Expired() bool {
	return p.Status == StatusFailed && p.FailureReason != nil && *p.FailureReason == ReasonExpired
}

// CanComplete reports whether a verified success event may move p to
// completed. Expired payments reopen; other failures stay failed.
func (p *Payment) CanComplete() bool {
	return p.Status.CanTransitionTo(StatusCompleted) || p.Expired()
}

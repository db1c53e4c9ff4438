package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"soloist/internal/domain/billing"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type PaymentRepository struct {
	db  *gorm.DB
	now func() time.Time
}

func NewPaymentRepository(db *gorm.DB) *PaymentRepository {
	return &PaymentRepository{db: db, now: time.Now}
}

func (r *PaymentRepository) Create(ctx context.Context, p *billing.Payment) error {
	p.Status = billing.StatusPending
	p.StripeID = nil
	p.StripeSessionID = nil
	if err := r.db.WithContext(ctx).Create(p).Error; err != nil {
		return fmt.Errorf("create payment: %w", err)
	}
	return nil
}

func (r *PaymentRepository) AttachProcessorIDs(ctx context.Context, paymentID, stripeID, sessionID string) error {
	res := r.db.WithContext(ctx).
		Model(&billing.Payment{}).
		Where("id = ?", paymentID).
		Updates(map[string]interface{}{
			"stripe_id":         stripeID,
			"stripe_session_id": sessionID,
			"updated_at":        r.now(),
		})
	if res.Error != nil {
		return fmt.Errorf("attach processor ids to payment %s: %w", paymentID, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("attach processor ids: %w", billing.ErrPaymentNotFound)
	}
	return nil
}

// Fulfill moves the payment matching f.StripeID to completed, at most once per
// processor event id. The payment row is locked for the duration of the
// transaction so concurrent deliveries serialize.
func (r *PaymentRepository) Fulfill(ctx context.Context, f billing.Fulfillment) (billing.FulfillResult, error) {
	var result billing.FulfillResult
	at := f.At
	if at.IsZero() {
		at = r.now()
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var p billing.Payment
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("stripe_id = ?", f.StripeID).
			First(&p).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("payment with stripe id %s: %w", f.StripeID, billing.ErrPaymentNotFound)
			}
			return err
		}

		ev := billing.ProcessedEvent{
			EventID:     f.EventID,
			EventType:   f.EventType,
			StripeID:    f.StripeID,
			PaymentID:   p.ID,
			ProcessedAt: at,
		}
		ins := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&ev)
		if ins.Error != nil {
			return fmt.Errorf("record processed event %s: %w", f.EventID, ins.Error)
		}
		if ins.RowsAffected == 0 {
			result.Payment = p
			result.Duplicate = true
			return nil
		}

		if !p.CanComplete() {
			return fmt.Errorf("payment %s is %s: %w", p.ID, p.Status, billing.ErrInvalidTransition)
		}
		if p.Status == billing.StatusCompleted {
			result.Payment = p
			return nil
		}

		updates := map[string]interface{}{
			"status":     billing.StatusCompleted,
			"updated_at": at,
		}
		if p.Expired() {
			updates["failure_reason"] = nil
			p.FailureReason = nil
		}
		if p.Amount == 0 && f.Amount > 0 {
			updates["amount"] = f.Amount
			p.Amount = f.Amount
			if f.Currency != "" {
				updates["currency"] = f.Currency
				p.Currency = f.Currency
			}
		}
		if err := tx.Model(&billing.Payment{}).Where("id = ?", p.ID).Updates(updates).Error; err != nil {
			return fmt.Errorf("complete payment %s: %w", p.ID, err)
		}

		p.Status = billing.StatusCompleted
		p.UpdatedAt = &at
		result.Payment = p
		result.Applied = true
		return nil
	})
	if err != nil {
		return billing.FulfillResult{}, err
	}
	return result, nil
}

func (r *PaymentRepository) GetByID(ctx context.Context, id string) (*billing.Payment, error) {
	var p billing.Payment
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&p).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, billing.ErrPaymentNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (r *PaymentRepository) ListByUser(ctx context.Context, userID string) ([]billing.Payment, error) {
	var payments []billing.Payment
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&payments).Error; err != nil {
		return nil, err
	}
	return payments, nil
}

// CountStalePending returns how many pending payments were created before the
// cutoff.
func (r *PaymentRepository) CountStalePending(ctx context.Context, before time.Time) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).
		Model(&billing.Payment{}).
		Where("status = ? AND created_at < ?", billing.StatusPending, before).
		Count(&n).Error
	return n, err
}

// ExpireStalePending fails pending payments created before the cutoff.
func (r *PaymentRepository) ExpireStalePending(ctx context.Context, before time.Time, reason string) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&billing.Payment{}).
		Where("status = ? AND created_at < ?", billing.StatusPending, before).
		Updates(map[string]interface{}{
			"status":         billing.StatusFailed,
			"failure_reason": reason,
			"updated_at":     r.now(),
		})
	if res.Error != nil {
		return 0, fmt.Errorf("expire stale pending payments: %w", res.Error)
	}
	return res.RowsAffected, nil
}

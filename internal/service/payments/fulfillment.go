package payments

import (
	"context"
	"errors"
	"fmt"
	"time"

	"soloist/internal/domain/billing"
	"soloist/internal/metrics"

	"github.com/sirupsen/logrus"
)

// Outcome describes what a verified webhook event led to.
type Outcome string

const (
	OutcomeFulfilled Outcome = "fulfilled"
	OutcomeDuplicate Outcome = "duplicate"
	OutcomeIgnored   Outcome = "ignored"
	OutcomeFailed    Outcome = "failed"
)

// HandleWebhook verifies a raw webhook delivery and dispatches it. A non-nil
// error means the processor should redeliver.
func (s *Service) HandleWebhook(ctx context.Context, payload []byte, signature string) (Outcome, error) {
	if s.processor == nil {
		return OutcomeFailed, fmt.Errorf("payment processor: %w", billing.ErrNotConfigured)
	}
	ev, err := s.processor.ConstructEvent(payload, signature)
	if err != nil {
		if errors.Is(err, billing.ErrInvalidSignature) {
			metrics.WebhookSignatureFailures.Inc()
			s.log.WithError(err).Warn("webhook signature verification failed")
		}
		return OutcomeFailed, err
	}

	out, err := s.HandleEvent(ctx, ev)
	metrics.WebhookEvents.WithLabelValues(ev.Type, string(out)).Inc()
	return out, err
}

// HandleEvent dispatches an already verified event.
func (s *Service) HandleEvent(ctx context.Context, ev *billing.Event) (Outcome, error) {
	log := s.log.WithFields(logrus.Fields{"event_id": ev.ID, "event_type": ev.Type, "object_id": ev.ObjectID})

	switch ev.Type {
	case billing.EventCheckoutSessionCompleted:
		return s.fulfillEvent(ctx, ev, log)

	case billing.EventPaymentIntentSucceeded:
		// Intents created by hosted checkout belong to a session record and
		// carry no paymentId of ours.
		if ev.Metadata[billing.MetaPaymentID] == "" {
			log.Debug("payment intent not created by this service, ignoring")
			return OutcomeIgnored, nil
		}
		return s.fulfillEvent(ctx, ev, log)

	case billing.EventPaymentIntentPaymentFailed:
		// No compensation: the record stays pending until the sweep expires it.
		log.WithField("payment_id", ev.Metadata[billing.MetaPaymentID]).Warn("payment intent failed, payment left pending")
		return OutcomeIgnored, nil

	default:
		log.Debug("unhandled event type")
		return OutcomeIgnored, nil
	}
}

func (s *Service) fulfillEvent(ctx context.Context, ev *billing.Event, log logrus.FieldLogger) (Outcome, error) {
	if ev.ObjectID == "" {
		return OutcomeFailed, billing.Invalid("event %s has no object id", ev.ID)
	}

	res, err := s.Fulfill(ctx, billing.Fulfillment{
		EventID:   ev.ID,
		EventType: ev.Type,
		StripeID:  ev.ObjectID,
		Amount:    ev.Amount,
		Currency:  ev.Currency,
	})
	if err != nil {
		log.WithError(err).Error("fulfillment failed")
		return OutcomeFailed, err
	}
	if res.Duplicate {
		log.Info("event already processed")
		return OutcomeDuplicate, nil
	}
	if !res.Applied {
		log.WithField("payment_id", res.Payment.ID).Info("payment already completed")
		return OutcomeDuplicate, nil
	}
	log.WithField("payment_id", res.Payment.ID).Info("payment fulfilled")
	return OutcomeFulfilled, nil
}

// Fulfill applies the completed transition for one processor event and runs
// the notifiers when the transition took place.
func (s *Service) Fulfill(ctx context.Context, f billing.Fulfillment) (billing.FulfillResult, error) {
	if f.At.IsZero() {
		f.At = s.now()
	}

	start := time.Now()
	res, err := s.store.Fulfill(ctx, f)
	metrics.FulfillmentDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		return res, err
	}

	if res.Applied {
		s.notify(ctx, res.Payment)
	}
	return res, nil
}

func (s *Service) notify(ctx context.Context, p billing.Payment) {
	for _, n := range s.notifiers {
		if err := n.PaymentCompleted(ctx, p); err != nil {
			s.log.WithError(err).WithField("payment_id", p.ID).Error("payment notifier failed")
		}
	}
}

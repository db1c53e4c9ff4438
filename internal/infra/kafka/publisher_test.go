package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"soloist/config"
	"soloist/internal/domain/billing"
	"soloist/internal/logger"

	"github.com/IBM/sarama/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func completedPayment() billing.Payment {
	user := "3f1d2c4b-5a69-4e7f-8a1b-2c3d4e5f6a7b"
	stripeID := "cs_test_1"
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	return billing.Payment{
		ID:        "9b2f7a64-8f0e-4a52-9d7c-1a2b3c4d5e6f",
		UserID:    &user,
		Amount:    1500,
		Currency:  "usd",
		Status:    billing.StatusCompleted,
		StripeID:  &stripeID,
		Metadata:  billing.Metadata{billing.MetaPriceID: "price_123"},
		UpdatedAt: &at,
	}
}

func TestPaymentCompleted_PublishesEvent(t *testing.T) {
	producer := mocks.NewSyncProducer(t, nil)
	producer.ExpectSendMessageWithCheckerFunctionAndSucceed(func(val []byte) error {
		var msg PaymentCompletedMessage
		if err := json.Unmarshal(val, &msg); err != nil {
			return err
		}
		if msg.Type != EventPaymentCompleted || msg.PaymentID != "9b2f7a64-8f0e-4a52-9d7c-1a2b3c4d5e6f" {
			return errors.New("unexpected message")
		}
		if msg.Amount != 1500 || msg.StripeID != "cs_test_1" || msg.Metadata[billing.MetaPriceID] != "price_123" {
			return errors.New("unexpected payment fields")
		}
		return nil
	})

	pub := NewPublisherWithProducer(producer, "soloist.payments", logger.Discard())
	require.NoError(t, pub.PaymentCompleted(context.Background(), completedPayment()))
	require.NoError(t, pub.Close())
}

func TestPaymentCompleted_ProducerError(t *testing.T) {
	producer := mocks.NewSyncProducer(t, nil)
	producer.ExpectSendMessageAndFail(errors.New("leader not available"))

	pub := NewPublisherWithProducer(producer, "soloist.payments", logger.Discard())
	err := pub.PaymentCompleted(context.Background(), completedPayment())
	assert.ErrorContains(t, err, "leader not available")
	require.NoError(t, pub.Close())
}

func TestPaymentCompleted_CanceledContext(t *testing.T) {
	producer := mocks.NewSyncProducer(t, nil)
	pub := NewPublisherWithProducer(producer, "soloist.payments", logger.Discard())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, pub.PaymentCompleted(ctx, completedPayment()), context.Canceled)
	require.NoError(t, pub.Close())
}

func TestNewPublisher_RejectsIncompleteConfig(t *testing.T) {
	_, err := NewPublisher(config.Kafka{PaymentsTopic: "t", Version: "3.6.0"}, logger.Discard())
	assert.Error(t, err)

	_, err = NewPublisher(config.Kafka{Brokers: []string{"localhost:9092"}, Version: "3.6.0"}, logger.Discard())
	assert.Error(t, err)

	_, err = NewPublisher(config.Kafka{Brokers: []string{"localhost:9092"}, PaymentsTopic: "t", Version: "bogus"}, logger.Discard())
	assert.Error(t, err)
}

package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"soloist/config"
	"soloist/internal/domain/billing"

	"github.com/IBM/sarama"
	"github.com/sirupsen/logrus"
)

const EventPaymentCompleted = "payment.completed"

// PaymentCompletedMessage is the value written to the payments topic.
type PaymentCompletedMessage struct {
	Type        string           `json:"type"`
	PaymentID   string           `json:"paymentId"`
	UserID      string           `json:"userId,omitempty"`
	StripeID    string           `json:"stripeId"`
	Amount      int64            `json:"amount"`
	Currency    string           `json:"currency"`
	Metadata    billing.Metadata `json:"metadata,omitempty"`
	CompletedAt time.Time        `json:"completedAt"`
}

// Publisher sends payment.completed events keyed by payment id.
type Publisher struct {
	producer sarama.SyncProducer
	topic    string
	log      logrus.FieldLogger
}

func NewPublisher(cfg config.Kafka, log logrus.FieldLogger) (*Publisher, error) {
	if len(cfg.Brokers) == 0 {
		return nil, errors.New("kafka brokers list is empty")
	}
	if cfg.PaymentsTopic == "" {
		return nil, errors.New("kafka topic is empty")
	}

	version, err := sarama.ParseKafkaVersion(cfg.Version)
	if err != nil {
		return nil, fmt.Errorf("parse kafka version: %w", err)
	}

	producer, err := sarama.NewSyncProducer(cfg.Brokers, newSaramaConfig(version))
	if err != nil {
		return nil, fmt.Errorf("create kafka producer: %w", err)
	}
	return NewPublisherWithProducer(producer, cfg.PaymentsTopic, log), nil
}

func NewPublisherWithProducer(producer sarama.SyncProducer, topic string, log logrus.FieldLogger) *Publisher {
	return &Publisher{producer: producer, topic: topic, log: log}
}

func (p *Publisher) PaymentCompleted(ctx context.Context, payment billing.Payment) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	msg := PaymentCompletedMessage{
		Type:      EventPaymentCompleted,
		PaymentID: payment.ID,
		Amount:    payment.Amount,
		Currency:  payment.Currency,
		Metadata:  payment.Metadata,
	}
	if payment.UserID != nil {
		msg.UserID = *payment.UserID
	}
	if payment.StripeID != nil {
		msg.StripeID = *payment.StripeID
	}
	if payment.UpdatedAt != nil {
		msg.CompletedAt = *payment.UpdatedAt
	}

	value, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode payment event: %w", err)
	}

	partition, offset, err := p.producer.SendMessage(&sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(payment.ID),
		Value: sarama.ByteEncoder(value),
		Headers: []sarama.RecordHeader{
			{Key: []byte("Event-Type"), Value: []byte(EventPaymentCompleted)},
		},
	})
	if err != nil {
		return fmt.Errorf("publish payment %s: %w", payment.ID, err)
	}

	p.log.WithFields(logrus.Fields{
		"payment_id": payment.ID,
		"topic":      p.topic,
		"partition":  partition,
		"offset":     offset,
	}).Debug("payment event published")
	return nil
}

func (p *Publisher) Close() error {
	p.log.Info("closing Kafka producer")
	return p.producer.Close()
}

func newSaramaConfig(ver sarama.KafkaVersion) *sarama.Config {
	cfg := sarama.NewConfig()
	cfg.Version = ver
	cfg.Producer.Return.Successes = true
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	cfg.Producer.Retry.Max = 3
	cfg.Producer.Compression = sarama.CompressionSnappy
	return cfg
}

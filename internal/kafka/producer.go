package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"ms-checkin/internal/logger"
	"ms-checkin/internal/models"
)

// DefaultBatchTimeout keeps single audit events from waiting out kafka-go's
// one second batching window.
const DefaultBatchTimeout = 10 * time.Millisecond

// messageWriter is the part of *kafka.Writer the producer uses.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer publishes check-in audit events. It satisfies checkin.AuditPublisher.
type Producer struct {
	Writer  messageWriter
	Topic   string
	Timeout time.Duration
	logger  *logger.Logger
}

func NewProducer(brokers []string, topic string, log *logger.Logger) *Producer {
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
		BatchTimeout:           DefaultBatchTimeout,
	}
	return &Producer{Writer: writer, Topic: topic, Timeout: 5 * time.Second, logger: log}
}

// Publish streams one audit event, keyed by ticket code so every event for a
// ticket lands on the same partition.
func (p *Producer) Publish(ctx context.Context, event models.AuditEvent) error {
	msgBytes, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode audit event: %w", err)
	}

	if p.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.Timeout)
		defer cancel()
	}

	err = p.Writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(event.TicketCode),
		Value: msgBytes,
		Headers: []kafka.Header{
			{Key: "type", Value: []byte(event.Type)},
		},
		Time: event.OccurredAt,
	})
	if err != nil {
		return fmt.Errorf("failed to publish %s event: %w", event.Type, err)
	}

	p.logger.LogKafka("PUBLISH", p.Topic, fmt.Sprintf("%s %s -> %s", event.Type, event.TicketCode, event.Outcome))
	return nil
}

func (p *Producer) Close() error {
	return p.Writer.Close()
}

package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// KafkaPublisher writes events to a single topic, keyed by routing key.
type KafkaPublisher struct {
	writer *kafkago.Writer
	logger *zap.Logger
}

// NewKafkaPublisher creates a publisher writing to topic on the given brokers.
func NewKafkaPublisher(brokers []string, topic string, logger *zap.Logger) *KafkaPublisher {
	w := &kafkago.Writer{
		Addr:                   kafkago.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafkago.Hash{},
		RequiredAcks:           kafkago.RequireOne,
		BatchTimeout:           10 * time.Millisecond,
		AllowAutoTopicCreation: true,
	}
	return &KafkaPublisher{writer: w, logger: logger}
}

// newMessage encodes v as JSON. Events exposing a partition key are keyed by it so
// that changes to one booking stay ordered; others are keyed by the routing key.
func newMessage(key string, v any) (kafkago.Message, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("marshal event: %w", err)
	}

	partitionKey := key
	if k, ok := v.(Keyed); ok && k.PartitionKey() != "" {
		partitionKey = k.PartitionKey()
	}

	return kafkago.Message{
		Key:   []byte(partitionKey),
		Value: b,
		Headers: []kafkago.Header{
			{Key: "content-type", Value: []byte("application/json")},
			{Key: "event-type", Value: []byte(key)},
		},
	}, nil
}

func (p *KafkaPublisher) Publish(ctx context.Context, key string, v any) error {
	msg, err := newMessage(key, v)
	if err != nil {
		return err
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("write kafka message: %w", err)
	}

	p.logger.Debug("event published",
		zap.String("topic", p.writer.Topic),
		zap.String("key", key),
	)
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/IBM/sarama"
)

// KafkaNotifier publishes messages as JSON onto a topic, keyed by destination
// so one recipient's notifications stay ordered.
type KafkaNotifier struct {
	producer sarama.SyncProducer
	topic    string
	logger   *slog.Logger
}

// NewKafkaNotifier wraps an existing producer.
func NewKafkaNotifier(producer sarama.SyncProducer, topic string, logger *slog.Logger) *KafkaNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &KafkaNotifier{producer: producer, topic: topic, logger: logger}
}

// NewSyncProducer dials the brokers with acks from all replicas.
func NewSyncProducer(brokers []string) (sarama.SyncProducer, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("kafka brokers required")
	}
	cfg := sarama.NewConfig()
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	cfg.Producer.Return.Successes = true
	cfg.Producer.Return.Errors = true
	cfg.Producer.Retry.Max = 3
	cfg.Producer.Retry.Backoff = 250 * time.Millisecond

	producer, err := sarama.NewSyncProducer(brokers, cfg)
	if err != nil {
		return nil, fmt.Errorf("create kafka producer: %w", err)
	}
	return producer, nil
}

// Send publishes one message.
func (n *KafkaNotifier) Send(ctx context.Context, message Message) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	payload, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}

	_, _, err = n.producer.SendMessage(&sarama.ProducerMessage{
		Topic: n.topic,
		Key:   sarama.StringEncoder(message.Destination),
		Value: sarama.ByteEncoder(payload),
	})
	if err != nil {
		n.logger.Error("kafka publish failed", "topic", n.topic, "error", err)
		return fmt.Errorf("publish notification: %w", err)
	}
	return nil
}

// Close releases the producer.
func (n *KafkaNotifier) Close() error {
	if n.producer == nil {
		return nil
	}
	return n.producer.Close()
}

package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/chankeeper/chankeeper/internal/domain/models"
)

// KafkaLinkNotifier publishes link-posted events to a topic, serving as the
// fallback transport when the bookmark service is unreachable.
type KafkaLinkNotifier struct {
	producer *kafka.Writer
	logger   *slog.Logger
	topic    string
}

func NewKafkaLinkNotifier(brokers []string, topic string, logger *slog.Logger) *KafkaLinkNotifier {
	producer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.LeastBytes{},
		BatchTimeout: 10 * time.Millisecond,
		Logger:       kafka.LoggerFunc(logger.Debug),
		ErrorLogger:  kafka.LoggerFunc(logger.Error),
	}

	return &KafkaLinkNotifier{
		producer: producer,
		logger:   logger,
		topic:    topic,
	}
}

func (n *KafkaLinkNotifier) NotifyPosted(ctx context.Context, record *models.LinkRecord) error {
	value, err := json.Marshal(messageFor(record))
	if err != nil {
		return fmt.Errorf("marshaling link-posted event: %w", err)
	}

	err = n.producer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(record.URL),
		Value: value,
	})
	if err != nil {
		return fmt.Errorf("publishing link-posted event: %w", err)
	}

	n.logger.Debug("link-posted event published",
		"url", record.URL,
		"topic", n.topic,
	)

	return nil
}

func (n *KafkaLinkNotifier) Close() error {
	return n.producer.Close()
}

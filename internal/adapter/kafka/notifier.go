package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/dylanvkmns/rqmProject/internal/config"
	"github.com/dylanvkmns/rqmProject/internal/domain"
	kafkago "github.com/segmentio/kafka-go"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Notifier publishes an IngestEvent for every committed batch.
// It implements pipeline.Notifier.
type Notifier struct {
	writer messageWriter
	logger *slog.Logger
}

// NewNotifier creates a Kafka producer for the configured ingest topic.
func NewNotifier(cfg *config.Config, logger *slog.Logger) *Notifier {
	w := &kafkago.Writer{
		Addr:                   kafkago.TCP(cfg.KafkaBrokers...),
		Topic:                  cfg.KafkaTopic,
		Balancer:               &kafkago.Hash{},
		RequiredAcks:           kafkago.RequireAll,
		AllowAutoTopicCreation: true,
	}
	return &Notifier{writer: w, logger: logger}
}

// Notify publishes one event keyed by its batch id.
func (n *Notifier) Notify(ctx context.Context, event domain.IngestEvent) error {
	msg, err := serializeToMessage(event)
	if err != nil {
		return err
	}
	if err := n.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish batch %s: %w", event.BatchID, err)
	}
	n.logger.Debug("ingest event published", "batch_id", event.BatchID, "source", event.Source)
	return nil
}

func (n *Notifier) Close() error {
	return n.writer.Close()
}

// serializeToMessage marshals an IngestEvent into a Kafka message.
func serializeToMessage(event domain.IngestEvent) (kafkago.Message, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize ingest event: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(event.BatchID),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "family", Value: []byte(event.Family)},
			{Key: "ingested_at", Value: []byte(event.IngestedAt.Format(time.RFC3339))},
		},
	}, nil
}

package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/couchcryptid/outage-feed-etl/internal/config"
	"github.com/couchcryptid/outage-feed-etl/internal/domain"
)

// messageWriter is the subset of *kafkago.Writer the publisher needs.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Writer publishes each payload item as one message on the sink topic.
// It implements pipeline.Publisher.
type Writer struct {
	writer messageWriter
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for the configured sink topic.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:                   kafkago.TCP(cfg.KafkaBrokers...),
		Topic:                  cfg.KafkaTopic,
		Balancer:               &kafkago.Hash{},
		RequiredAcks:           kafkago.RequireAll,
		AllowAutoTopicCreation: true,
	}
	return &Writer{writer: w, logger: logger}
}

// Name identifies the publisher in logs and metrics.
func (w *Writer) Name() string { return "kafka" }

// Publish writes every item of p in a single WriteMessages call. Items are
// keyed by ID so repeated runs land on the same partition.
func (w *Writer) Publish(ctx context.Context, p *domain.Payload) error {
	if len(p.Items) == 0 {
		w.logger.Debug("empty payload, nothing to produce", "run_id", p.RunID)
		return nil
	}
	msgs := make([]kafkago.Message, len(p.Items))
	for i := range p.Items {
		msg, err := serializeToMessage(p, p.Items[i])
		if err != nil {
			return err
		}
		msgs[i] = msg
	}
	if err := w.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("produce %d items: %w", len(msgs), err)
	}
	return nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// serializeToMessage marshals one item into a Kafka message carrying the run headers.
func serializeToMessage(p *domain.Payload, it domain.Item) (kafkago.Message, error) {
	data, err := json.Marshal(it)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize item %s: %w", it.ID, err)
	}
	headers := []kafkago.Header{
		{Key: "run_id", Value: []byte(p.RunID)},
		{Key: "generated_at", Value: []byte(domain.FormatCivil(p.GeneratedAt))},
		{Key: "domain", Value: []byte(it.Domain)},
	}
	if it.Status != "" {
		headers = append(headers, kafkago.Header{Key: "status", Value: []byte(it.Status)})
	}
	return kafkago.Message{
		Key:     []byte(it.ID),
		Value:   data,
		Headers: headers,
	}, nil
}

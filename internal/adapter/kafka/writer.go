package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/Copubah/dirty-nairobi/internal/config"
	"github.com/Copubah/dirty-nairobi/internal/domain"
)

// SelectionWriter publishes viewer selections to a Kafka topic.
// It implements selection.Publisher.
type SelectionWriter struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewSelectionWriter creates a Kafka producer for the selections topic.
func NewSelectionWriter(cfg *config.Config, logger *slog.Logger) *SelectionWriter {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaSelectionsTopic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &SelectionWriter{writer: w, logger: logger}
}

// Publish writes one selection keyed by report id so selections of the same
// report stay ordered on one partition.
func (w *SelectionWriter) Publish(ctx context.Context, sel domain.Selection) error {
	msg, err := serializeSelection(sel)
	if err != nil {
		return err
	}
	return w.writer.WriteMessages(ctx, msg)
}

// PublishSnapshot writes a full report list to topic. Used by fixture tooling
// to seed the reports topic.
func PublishSnapshot(ctx context.Context, brokers []string, topic, revision string, reports []domain.Report) error {
	msg, err := encodeSnapshot(revision, reports)
	if err != nil {
		return err
	}
	w := &kafkago.Writer{
		Addr:                   kafkago.TCP(brokers...),
		Topic:                  topic,
		RequiredAcks:           kafkago.RequireAll,
		AllowAutoTopicCreation: true,
	}
	defer w.Close()
	return w.WriteMessages(ctx, msg)
}

func (w *SelectionWriter) Close() error {
	return w.writer.Close()
}

// serializeSelection marshals a Selection into a Kafka message.
func serializeSelection(sel domain.Selection) (kafkago.Message, error) {
	data, err := json.Marshal(sel)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize selection: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(sel.Report.ID),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "report_id", Value: []byte(sel.Report.ID)},
			{Key: "selected_at", Value: []byte(sel.SelectedAt.Format(time.RFC3339))},
		},
	}, nil
}

// Package kafka adapts report-list snapshots and viewer selections to Kafka topics.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/Copubah/dirty-nairobi/internal/config"
	"github.com/Copubah/dirty-nairobi/internal/domain"
)

// SourceName labels snapshots read from Kafka.
const SourceName = "kafka"

// snapshotMessage is the wire form of one report list.
type snapshotMessage struct {
	Revision string          `json:"revision"`
	Reports  []domain.Report `json:"reports"`
}

// SnapshotReader consumes full report lists from a topic.
// It implements pipeline.ReportSource.
type SnapshotReader struct {
	reader *kafkago.Reader
	logger *slog.Logger
}

// NewSnapshotReader creates a consumer-group reader for the reports topic.
func NewSnapshotReader(cfg *config.Config, logger *slog.Logger) *SnapshotReader {
	r := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:     cfg.KafkaBrokers,
		Topic:       cfg.KafkaReportsTopic,
		GroupID:     cfg.KafkaGroupID,
		StartOffset: kafkago.FirstOffset,
		MinBytes:    1,
		MaxBytes:    10e6,
		MaxWait:     time.Second,
	})
	return &SnapshotReader{reader: r, logger: logger}
}

func (r *SnapshotReader) Name() string { return SourceName }

// Next blocks for the next snapshot. The offset is committed only when the
// caller invokes the snapshot's Commit after applying it. A message that does
// not decode is committed and skipped so it cannot wedge the partition.
func (r *SnapshotReader) Next(ctx context.Context) (domain.ReportSnapshot, error) {
	for {
		msg, err := r.reader.FetchMessage(ctx)
		if err != nil {
			return domain.ReportSnapshot{}, fmt.Errorf("fetch snapshot: %w", err)
		}

		snap, err := decodeSnapshot(msg)
		if err != nil {
			r.logger.Warn("skipping undecodable snapshot",
				"error", err,
				"topic", msg.Topic,
				"partition", msg.Partition,
				"offset", msg.Offset,
			)
			if cerr := r.reader.CommitMessages(ctx, msg); cerr != nil {
				return domain.ReportSnapshot{}, fmt.Errorf("commit skipped snapshot: %w", cerr)
			}
			continue
		}

		snap.Commit = func(ctx context.Context) error {
			return r.reader.CommitMessages(ctx, msg)
		}
		return snap, nil
	}
}

func (r *SnapshotReader) Close() error {
	return r.reader.Close()
}

// decodeSnapshot maps a Kafka message to a report snapshot. The revision
// falls back to the partition offset when the producer left it empty.
func decodeSnapshot(msg kafkago.Message) (domain.ReportSnapshot, error) {
	var wire snapshotMessage
	if err := json.Unmarshal(msg.Value, &wire); err != nil {
		return domain.ReportSnapshot{}, fmt.Errorf("decode snapshot: %w", err)
	}
	if wire.Reports == nil {
		return domain.ReportSnapshot{}, fmt.Errorf("decode snapshot: missing reports array")
	}

	revision := wire.Revision
	if revision == "" {
		revision = strconv.Itoa(msg.Partition) + ":" + strconv.FormatInt(msg.Offset, 10)
	}
	fetched := msg.Time
	if fetched.IsZero() {
		fetched = domain.Now()
	}
	return domain.ReportSnapshot{
		Reports:   wire.Reports,
		Source:    SourceName,
		Revision:  revision,
		FetchedAt: fetched,
	}, nil
}

// encodeSnapshot is the inverse of decodeSnapshot, used by producers and tests.
func encodeSnapshot(revision string, reports []domain.Report) (kafkago.Message, error) {
	if reports == nil {
		reports = []domain.Report{}
	}
	data, err := json.Marshal(snapshotMessage{Revision: revision, Reports: reports})
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize snapshot: %w", err)
	}
	return kafkago.Message{
		Key:   []byte("reports"),
		Value: data,
	}, nil
}

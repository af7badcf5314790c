package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/couchcryptid/water-level-analysis/internal/config"
	"github.com/couchcryptid/water-level-analysis/internal/domain"
)

// Writer publishes detected events to a Kafka topic, one message per event.
// It implements pipeline.BatchLoader.
type Writer struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for the configured sink topic.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaSinkTopic,
		Balancer:     &kafkago.LeastBytes{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Writer{writer: w, logger: logger}
}

// LoadBatch serializes the events of every report and publishes them in a
// single WriteMessages call. Reports without events produce no messages.
func (w *Writer) LoadBatch(ctx context.Context, reports []domain.Report) error {
	var msgs []kafkago.Message
	for i := range reports {
		for _, event := range reports[i].Events {
			msg, err := serializeEvent(reports[i], event)
			if err != nil {
				return err
			}
			msgs = append(msgs, msg)
		}
	}
	if len(msgs) == 0 {
		return nil
	}
	w.logger.Debug("publishing events", "reports", len(reports), "events", len(msgs))
	return w.writer.WriteMessages(ctx, msgs...)
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// serializeEvent marshals one event, keyed by its ID and tagged with the
// run it came from.
func serializeEvent(report domain.Report, event domain.Event) (kafkago.Message, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize event %s: %w", event.ID, err)
	}
	return kafkago.Message{
		Key:   []byte(event.ID),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "event_type", Value: []byte(event.Type)},
			{Key: "confidence", Value: []byte(event.Confidence)},
			{Key: "run_id", Value: []byte(report.RunID)},
			{Key: "station_id", Value: []byte(report.StationID)},
			{Key: "analyzed_at", Value: []byte(report.AnalyzedAt.Format(time.RFC3339))},
		},
	}, nil
}

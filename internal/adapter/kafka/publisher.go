package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/couchcryptid/climate-map/internal/config"
	"github.com/couchcryptid/climate-map/internal/mapview"
	"github.com/couchcryptid/climate-map/internal/observability"
	kafkago "github.com/segmentio/kafka-go"
)

// messageWriter is the subset of *kafkago.Writer the publisher uses.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Publisher sends a snapshot of every data-changing frame to a Kafka topic.
// It implements mapview.Surface.
type Publisher struct {
	writer  messageWriter
	metrics *observability.Metrics
	logger  *slog.Logger
}

// NewPublisher creates a Kafka producer for the configured snapshot topic.
func NewPublisher(cfg *config.Config, metrics *observability.Metrics, logger *slog.Logger) *Publisher {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaSnapshotTopic,
		Balancer:     &kafkago.LeastBytes{},
		RequiredAcks: kafkago.RequireAll,
	}
	return newPublisher(w, metrics, logger)
}

func newPublisher(w messageWriter, metrics *observability.Metrics, logger *slog.Logger) *Publisher {
	return &Publisher{writer: w, metrics: metrics, logger: logger}
}

// Draw publishes frames produced by a load, year, or metric change. Zoom
// and hover frames carry no new data and are skipped.
func (p *Publisher) Draw(ctx context.Context, f mapview.Frame) error {
	if !f.DataChanged() {
		return nil
	}
	msg, err := serializeToMessage(f.Snapshot())
	if err != nil {
		p.metrics.SnapshotErrors.Inc()
		return err
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.metrics.SnapshotErrors.Inc()
		return fmt.Errorf("publish snapshot %s: %w", msg.Key, err)
	}
	p.metrics.SnapshotsPublished.Inc()
	p.logger.Debug("snapshot published", "metric", f.Metric.Key, "year", f.Year, "seq", f.Seq)
	return nil
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}

// serializeToMessage marshals a snapshot into a Kafka message keyed by
// metric and year, so repeated views of the same selection compact together.
func serializeToMessage(s mapview.Snapshot) (kafkago.Message, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize snapshot: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(s.Metric + "-" + strconv.Itoa(s.Year)),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "metric", Value: []byte(s.Metric)},
			{Key: "year", Value: []byte(strconv.Itoa(s.Year))},
			{Key: "trigger", Value: []byte(s.Trigger)},
			{Key: "rendered_at", Value: []byte(s.RenderedAt)},
		},
	}, nil
}

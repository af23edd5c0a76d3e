package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/roadwatch/datex-zone-monitor/internal/monitor"
)

// Writer publishes zone cycle results to a Kafka topic.
// It implements monitor.Publisher.
type Writer struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for the result topic.
func NewWriter(brokers []string, topic string, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafkago.LeastBytes{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Writer{writer: w, logger: logger}
}

// Publish serializes and writes one cycle result. Keying by zone name keeps
// each zone's results ordered within a partition.
func (w *Writer) Publish(ctx context.Context, result monitor.ZoneResult) error {
	msg, err := serializeToMessage(result)
	if err != nil {
		return err
	}
	return w.writer.WriteMessages(ctx, msg)
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// serializeToMessage marshals a ZoneResult into a Kafka message.
func serializeToMessage(result monitor.ZoneResult) (kafkago.Message, error) {
	data, err := json.Marshal(result)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize zone result: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(result.Zone),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "zone_kind", Value: []byte(result.Kind)},
			{Key: "cycle_time", Value: []byte(result.CycleTime.Format(time.RFC3339))},
		},
	}, nil
}

package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/couchcryptid/hotspot-etl/internal/analysis"
	"github.com/couchcryptid/hotspot-etl/internal/config"
)

// Detector names the scoring rule in message headers.
const Detector = "robust_z_mad"

// AnomalyMessage is the JSON value of a published anomaly.
type AnomalyMessage struct {
	RunID      string    `json:"run_id"`
	Group      string    `json:"group"`
	GroupField string    `json:"group_field,omitempty"`
	Day        string    `json:"day"`
	Count      int       `json:"count"`
	RobustZ    float64   `json:"robust_z"`
	Median     float64   `json:"median"`
	Scale      float64   `json:"scale"`
	Threshold  float64   `json:"threshold"`
	DetectedAt time.Time `json:"detected_at"`
}

// Writer publishes flagged days to a Kafka topic.
// It implements pipeline.FindingsSink.
type Writer struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for the configured anomaly topic.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaAnomalyTopic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Writer{writer: w, logger: logger}
}

// Name identifies the sink in logs.
func (w *Writer) Name() string { return "kafka" }

// Export publishes the top anomalies of every result in a single
// WriteMessages call. Degenerate results publish nothing.
func (w *Writer) Export(ctx context.Context, f analysis.Findings) error {
	var msgs []kafkago.Message
	for _, res := range f.Results() {
		groupField := f.GroupField
		if res.Group == analysis.TotalGroup {
			groupField = ""
		}
		for _, s := range res.Top(f.Limit) {
			msg, err := serializeToMessage(AnomalyMessage{
				RunID:      f.RunID,
				Group:      res.Group,
				GroupField: groupField,
				Day:        s.Day.Format("2006-01-02"),
				Count:      s.Count,
				RobustZ:    s.RobustZ,
				Median:     res.Median,
				Scale:      res.Scale,
				Threshold:  res.Threshold,
				DetectedAt: f.GeneratedAt,
			})
			if err != nil {
				return err
			}
			msgs = append(msgs, msg)
		}
	}
	if len(msgs) == 0 {
		return nil
	}
	if err := w.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("publish anomalies: %w", err)
	}
	w.logger.Info("anomalies published", "topic", w.writer.Topic, "messages", len(msgs), "run_id", f.RunID)
	return nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// serializeToMessage marshals an anomaly into a Kafka message keyed by
// group and day, so reruns land on the same partition.
func serializeToMessage(m AnomalyMessage) (kafkago.Message, error) {
	data, err := json.Marshal(m)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize anomaly: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(m.Group + "|" + m.Day),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "run_id", Value: []byte(m.RunID)},
			{Key: "detector", Value: []byte(Detector)},
		},
	}, nil
}

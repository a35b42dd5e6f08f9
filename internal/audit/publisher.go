// Package audit emits report-run events to Kafka so downstream consumers can
// track when warehouse indicators were recomputed and with what outcome.
package audit

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kgo"

	dErrors "dwhmon/pkg/domain-errors"
)

// RunEvent describes one completed (or failed) report run.
type RunEvent struct {
	RunID          string    `json:"run_id"`
	GeneratedAt    time.Time `json:"generated_at"`
	DurationMillis int64     `json:"duration_millis"`
	Patients       int       `json:"patients"`
	Documents      int       `json:"documents"`
	SuspectDates   int       `json:"suspect_dates"`
	Unresolved     int       `json:"unresolved"`
	Outcome        string    `json:"outcome"`
	Error          string    `json:"error,omitempty"`
}

// Publisher writes run events to a single Kafka topic. Publishing is
// fail-open: a broker outage is logged and never fails the report run.
type Publisher struct {
	client *kgo.Client
	topic  string
	logger *slog.Logger
}

// NewPublisher connects to the brokers and ensures the topic exists.
func NewPublisher(ctx context.Context, brokers []string, topic string, logger *slog.Logger) (*Publisher, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.DefaultProduceTopic(topic),
		kgo.ProducerBatchCompression(kgo.SnappyCompression()),
	)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "connect kafka")
	}

	admin := kadm.NewClient(client)
	if _, err := admin.CreateTopic(ctx, 1, 1, nil, topic); err != nil {
		// Topic may already exist; anything else surfaces on first produce.
		logger.Debug("audit topic create", "topic", topic, "error", err)
	}

	return &Publisher{client: client, topic: topic, logger: logger}, nil
}

// Publish serializes the event and produces it asynchronously.
func (p *Publisher) Publish(ctx context.Context, ev RunEvent) {
	payload, err := json.Marshal(ev)
	if err != nil {
		p.logger.Error("marshal audit event", "run_id", ev.RunID, "error", err)
		return
	}

	record := &kgo.Record{Key: []byte(ev.RunID), Value: payload, Topic: p.topic}
	p.client.Produce(ctx, record, func(_ *kgo.Record, err error) {
		if err != nil {
			p.logger.Warn("publish audit event", "run_id", ev.RunID, "error", err)
		}
	})
}

// Close flushes pending records and releases the client.
func (p *Publisher) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := p.client.Flush(ctx); err != nil {
		p.logger.Warn("flush audit events", "error", err)
	}
	p.client.Close()
}

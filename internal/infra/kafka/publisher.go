package kafka

import (
	"context"
	"fmt"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"vmharness/internal/domain/execution"
	"vmharness/internal/ports"
)

// Ensure Publisher implements ports.OutcomePublisher.
var _ ports.OutcomePublisher = (*Publisher)(nil)

// PublisherConfig configures the Kafka-based outcome publisher.
type PublisherConfig struct {
	Brokers []string
	Topic   string
}

// Publisher publishes test outcomes and the run summary to Kafka.
type Publisher struct {
	writer messageWriter
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// NewPublisher constructs a Publisher using the supplied configuration.
func NewPublisher(cfg PublisherConfig) (*Publisher, error) {
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("at least one broker must be provided")
	}
	if cfg.Topic == "" {
		return nil, fmt.Errorf("topic must be provided")
	}

	writer := &kafkago.Writer{
		Addr:                   kafkago.TCP(cfg.Brokers...),
		Topic:                  cfg.Topic,
		AllowAutoTopicCreation: true,
		Balancer:               &kafkago.LeastBytes{},
		RequiredAcks:           kafkago.RequireAll,
		BatchTimeout:           10 * time.Millisecond,
	}

	return newPublisher(writer), nil
}

func newPublisher(writer messageWriter) *Publisher {
	return &Publisher{writer: writer}
}

// PublishOutcome writes one test outcome keyed by the test case name.
func (p *Publisher) PublishOutcome(ctx context.Context, outcome execution.Outcome) error {
	payload, err := encodeOutcome(outcome)
	if err != nil {
		return err
	}
	return p.write(ctx, outcome.Case.Name, payload)
}

// PublishSummary writes the final pass/total tally.
func (p *Publisher) PublishSummary(ctx context.Context, summary execution.Summary) error {
	payload, err := encodeSummary(summary)
	if err != nil {
		return err
	}
	return p.write(ctx, summaryKey, payload)
}

func (p *Publisher) write(ctx context.Context, key string, payload []byte) error {
	if p.writer == nil {
		return fmt.Errorf("publisher is not initialized")
	}

	msg := kafkago.Message{
		Key:   []byte(key),
		Value: payload,
		Time:  time.Now(),
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("write message: %w", err)
	}

	return nil
}

// Close releases the underlying Kafka writer.
func (p *Publisher) Close() error {
	if p.writer == nil {
		return nil
	}
	return p.writer.Close()
}

//go:build integration

package testhelpers

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"testing"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	kafkatc "github.com/testcontainers/testcontainers-go/modules/kafka"
)

const (
	kafkaImage         = "confluentinc/confluent-local:7.7.0"
	brokerWaitInterval = 500 * time.Millisecond
	brokerWaitTimeout  = 30 * time.Second
)

// StartKafka runs a single-broker Kafka container, waits until it accepts
// connections and creates the given topics. The test is skipped when Docker
// is unavailable. The container is terminated on test cleanup.
func StartKafka(ctx context.Context, t *testing.T, topics ...string) string {
	t.Helper()

	container, err := kafkatc.Run(ctx, kafkaImage)
	if err != nil {
		t.Skipf("kafka container unavailable (requires Docker): %v", err)
	}
	t.Cleanup(func() {
		_ = container.Terminate(context.Background())
	})

	brokers, err := container.Brokers(ctx)
	if err != nil {
		t.Fatalf("obtain bootstrap servers: %v", err)
	}
	if len(brokers) == 0 {
		t.Fatal("kafka provided zero bootstrap servers")
	}
	broker := brokers[0]

	if err := WaitForKafkaBroker(ctx, broker); err != nil {
		t.Fatalf("wait for broker: %v", err)
	}
	if err := EnsureKafkaTopics(ctx, broker, topics...); err != nil {
		t.Fatalf("ensure topics: %v", err)
	}
	return broker
}

// WaitForKafkaBroker blocks until the broker accepts connections or the context ends.
func WaitForKafkaBroker(ctx context.Context, broker string) error {
	deadline := time.Now().Add(brokerWaitTimeout)
	if dl, ok := ctx.Deadline(); ok && dl.Before(deadline) {
		deadline = dl
	}

	for time.Now().Before(deadline) {
		conn, err := kafkago.DialContext(ctx, "tcp", broker)
		if err == nil {
			_ = conn.Close()
			return nil
		}

		select {
		case <-time.After(brokerWaitInterval):
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	return fmt.Errorf("kafka broker %q not ready before timeout", broker)
}

// EnsureKafkaTopics creates single-partition topics through the cluster controller.
func EnsureKafkaTopics(ctx context.Context, broker string, topics ...string) error {
	if len(topics) == 0 {
		return nil
	}

	conn, err := kafkago.DialContext(ctx, "tcp", broker)
	if err != nil {
		return fmt.Errorf("dial broker: %w", err)
	}
	defer conn.Close()

	controller, err := conn.Controller()
	if err != nil {
		return fmt.Errorf("controller: %w", err)
	}

	ctrlConn, err := kafkago.DialContext(ctx, "tcp", net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port)))
	if err != nil {
		return fmt.Errorf("dial controller: %w", err)
	}
	defer ctrlConn.Close()

	configs := make([]kafkago.TopicConfig, 0, len(topics))
	for _, topic := range topics {
		configs = append(configs, kafkago.TopicConfig{
			Topic:             topic,
			NumPartitions:     1,
			ReplicationFactor: 1,
		})
	}
	return ctrlConn.CreateTopics(configs...)
}

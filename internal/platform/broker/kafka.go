// Package broker contains the Kafka adapters bridging the core's messaging
// ports to segmentio/kafka-go.
package broker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/finflowhq/finflow_backend/internal/core/ports/messaging"
	"github.com/segmentio/kafka-go"
)

// KafkaPublisher writes keyed messages to Kafka. One writer serves all
// topics; the topic travels on each message.
type KafkaPublisher struct {
	writer *kafka.Writer
}

var _ messaging.EventPublisher = (*KafkaPublisher)(nil)

func NewKafkaPublisher(brokers []string) *KafkaPublisher {
	return &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Balancer:     &kafka.Hash{},
			BatchTimeout: 10 * time.Millisecond,
			RequiredAcks: kafka.RequireAll,
		},
	}
}

func (p *KafkaPublisher) Publish(ctx context.Context, topic, key string, payload []byte, headers map[string]string) error {
	msg := kafka.Message{
		Topic: topic,
		Key:   []byte(key),
		Value: payload,
	}
	for k, v := range headers {
		msg.Headers = append(msg.Headers, kafka.Header{Key: k, Value: []byte(v)})
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("kafka write to %s failed: %w", topic, err)
	}
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// KafkaConsumer reads from a set of topics inside one consumer group and
// feeds each message to a handler. Offsets are committed only after the
// handler returns, so an unhandled message is redelivered.
type KafkaConsumer struct {
	readers []*kafka.Reader
	logger  *slog.Logger
}

var _ messaging.MessageConsumer = (*KafkaConsumer)(nil)

func NewKafkaConsumer(brokers []string, groupID string, topics []string, logger *slog.Logger) *KafkaConsumer {
	readers := make([]*kafka.Reader, 0, len(topics))
	for _, topic := range topics {
		readers = append(readers, kafka.NewReader(kafka.ReaderConfig{
			Brokers:  brokers,
			GroupID:  groupID,
			Topic:    topic,
			MinBytes: 1,
			MaxBytes: 10e6,
		}))
	}
	return &KafkaConsumer{readers: readers, logger: logger}
}

// Consume runs one loop per topic until ctx is done. The broker coordinates
// partition assignment within the group, so concurrent loops never see the
// same message.
func (c *KafkaConsumer) Consume(ctx context.Context, handler messaging.MessageHandler) error {
	for _, reader := range c.readers {
		go c.consumeLoop(ctx, reader, handler)
	}
	<-ctx.Done()
	return ctx.Err()
}

func (c *KafkaConsumer) consumeLoop(ctx context.Context, reader *kafka.Reader, handler messaging.MessageHandler) {
	for {
		m, err := reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			c.logger.Error("kafka fetch failed", "topic", reader.Config().Topic, "error", err)
			continue
		}

		msg := messaging.BrokerMessage{
			// Topic/partition/offset uniquely identify a Kafka message.
			MessageID: fmt.Sprintf("%s-%d-%d", m.Topic, m.Partition, m.Offset),
			Source:    m.Topic,
			Key:       string(m.Key),
			Payload:   m.Value,
		}
		for _, h := range m.Headers {
			if h.Key == "event_type" {
				msg.EventType = string(h.Value)
			}
		}

		if err := handler(ctx, msg); err != nil {
			c.logger.Error("message handling failed, leaving uncommitted",
				"topic", m.Topic, "partition", m.Partition, "offset", m.Offset, "error", err)
			continue
		}
		if err := reader.CommitMessages(ctx, m); err != nil && ctx.Err() == nil {
			c.logger.Error("kafka commit failed", "topic", m.Topic, "error", err)
		}
	}
}

func (c *KafkaConsumer) Close() error {
	var firstErr error
	for _, reader := range c.readers {
		if err := reader.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

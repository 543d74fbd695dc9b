// Package kafka wraps the best-effort event mirror: every broadcast
// line is copied to a Kafka topic so downstream consumers see the same
// feed as the TCP subscribers. Delivery here is not guaranteed; the
// durable trade tape goes through the outbox instead.
package kafka

import (
	"context"
	"time"

	"github.com/segmentio/kafka-go"
)

type Producer struct {
	writer *kafka.Writer
}

func NewProducer(brokers []string, topic string) *Producer {
	return &Producer{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			RequiredAcks: kafka.RequireOne,
			Async:        true,
			BatchTimeout: 10 * time.Millisecond,
		},
	}
}

func (p *Producer) Send(ctx context.Context, key, value []byte) error {
	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   key,
		Value: value,
	})
}

func (p *Producer) Close() error {
	return p.writer.Close()
}

// SendEvent lets the producer sit on the broadcaster as a passive
// sink, mirroring each event line to the topic.
func (p *Producer) SendEvent(line string) error {
	return p.Send(context.Background(), nil, []byte(line))
}

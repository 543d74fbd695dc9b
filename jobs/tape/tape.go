// Package tape drains the trade outbox to Kafka: a periodic job scans
// NEW records, publishes each with a synchronous acks=all producer,
// and advances the record through SENT to ACKED. Failed publishes are
// retried on the next pass.
package tape

import (
	"context"
	"time"

	"github.com/IBM/sarama"
	"go.uber.org/zap"

	"outcry/infra/outbox"
)

type Job struct {
	outbox   *outbox.Outbox
	producer sarama.SyncProducer
	topic    string
	interval time.Duration
	log      *zap.Logger
}

func New(ob *outbox.Outbox, brokers []string, topic string, interval time.Duration, log *zap.Logger) (*Job, error) {
	cfg := sarama.NewConfig()
	cfg.Producer.Return.Successes = true
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	cfg.Producer.Retry.Max = 5

	producer, err := sarama.NewSyncProducer(brokers, cfg)
	if err != nil {
		return nil, err
	}
	return NewWithProducer(ob, producer, topic, interval, log), nil
}

// NewWithProducer wires an existing producer; the caller owns its
// configuration.
func NewWithProducer(ob *outbox.Outbox, producer sarama.SyncProducer, topic string, interval time.Duration, log *zap.Logger) *Job {
	return &Job{
		outbox:   ob,
		producer: producer,
		topic:    topic,
		interval: interval,
		log:      log,
	}
}

// Run loops until ctx is done, draining once per tick.
func (j *Job) Run(ctx context.Context) {
	j.log.Info("tape job started", zap.String("topic", j.topic))

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			j.drainOnce()
		}
	}
}

// drainOnce publishes every NEW record, then retries FAILED ones.
func (j *Job) drainOnce() {
	for _, state := range []outbox.State{outbox.StateNew, outbox.StateFailed} {
		err := j.outbox.ScanByState(state, func(seq uint64, rec outbox.Record) error {
			j.publish(seq, rec)
			return nil
		})
		if err != nil {
			j.log.Warn("outbox scan failed", zap.Stringer("state", state), zap.Error(err))
		}
	}
}

func (j *Job) publish(seq uint64, rec outbox.Record) {
	if err := j.outbox.UpdateState(seq, outbox.StateSent, rec.Retries); err != nil {
		j.log.Warn("outbox record not marked sent", zap.Uint64("seq", seq), zap.Error(err))
		return
	}

	msg := &sarama.ProducerMessage{
		Topic: j.topic,
		Value: sarama.ByteEncoder(rec.Payload),
	}
	if _, _, err := j.producer.SendMessage(msg); err != nil {
		j.log.Warn("tape publish failed", zap.Uint64("seq", seq), zap.Error(err))
		_ = j.outbox.UpdateState(seq, outbox.StateFailed, rec.Retries+1)
		return
	}

	if err := j.outbox.UpdateState(seq, outbox.StateAcked, rec.Retries); err != nil {
		j.log.Warn("outbox record not marked acked", zap.Uint64("seq", seq), zap.Error(err))
	}
}

func (j *Job) Close() error {
	return j.producer.Close()
}

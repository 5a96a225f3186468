// Package broadcaster replays pending outbox frames to a Kafka topic so
// live dashboards can follow a run without tailing the event files.
package broadcaster

import (
	"context"
	"log"
	"time"

	"mimir/infra/outbox"

	"github.com/IBM/sarama"
)

type Broadcaster struct {
	ob       *outbox.Outbox
	producer sarama.SyncProducer
	topic    string
	interval time.Duration
}

// ------------------------------------------------
// CONSTRUCTORS
// ------------------------------------------------

// New wires a broadcaster onto an existing producer. Tests pass a mock.
func New(ob *outbox.Outbox, producer sarama.SyncProducer, topic string, interval time.Duration) *Broadcaster {
	return &Broadcaster{
		ob:       ob,
		producer: producer,
		topic:    topic,
		interval: interval,
	}
}

// Connect builds a synchronous producer against the given brokers.
func Connect(ob *outbox.Outbox, brokers []string, topic string, interval time.Duration) (*Broadcaster, error) {
	cfg := sarama.NewConfig()
	cfg.Producer.Return.Successes = true
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	cfg.Producer.Retry.Max = 5

	producer, err := sarama.NewSyncProducer(brokers, cfg)
	if err != nil {
		return nil, err
	}
	return New(ob, producer, topic, interval), nil
}

// ------------------------------------------------
// RUN LOOP
// ------------------------------------------------

func (b *Broadcaster) Run(ctx context.Context) {
	log.Println("[broadcaster] started")

	ticker := time.NewTicker(b.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			b.ReplayOnce()
		}
	}
}

// ReplayOnce walks all unacknowledged entries: mark SENT (idempotent,
// keeps delivery at-least-once), publish, mark ACKED on broker success.
// Failed publishes stay SENT and are retried on the next tick.
func (b *Broadcaster) ReplayOnce() {
	_ = b.ob.ScanPending(func(seq uint64, e outbox.Entry) error {
		if err := b.ob.MarkSent(seq); err != nil {
			return err
		}

		msg := &sarama.ProducerMessage{
			Topic: b.topic,
			Value: sarama.ByteEncoder(e.Frame),
		}
		if _, _, err := b.producer.SendMessage(msg); err != nil {
			log.Printf("[broadcaster] publish seq=%d failed: %v", seq, err)
			return nil // retry next tick
		}

		return b.ob.MarkAcked(seq)
	})
}

// ------------------------------------------------
// SHUTDOWN
// ------------------------------------------------

func (b *Broadcaster) Close() error {
	return b.producer.Close()
}

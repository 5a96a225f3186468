// Package relay consumes telemetry frames from a Kafka topic and appends
// them to a local event writer, so remote training jobs can log through a
// broker instead of a shared filesystem.
package relay

import (
	"context"
	"log"

	"mimir/domain/event"

	"github.com/segmentio/kafka-go"
)

// Fetcher is the consuming side of the broker client.
// *kafka.Consumer (infra/kafka) satisfies it; tests use a fake.
type Fetcher interface {
	Fetch(ctx context.Context) (kafka.Message, error)
	Commit(ctx context.Context, msgs ...kafka.Message) error
}

// Appender accepts encoded event frames. *eventfile.Writer satisfies it.
type Appender interface {
	AddRaw(frame []byte) error
}

type Relay struct {
	src Fetcher
	dst Appender
}

func New(src Fetcher, dst Appender) *Relay {
	return &Relay{src: src, dst: dst}
}

// Run consumes until the context is cancelled. Offsets are committed only
// after the writer accepts a frame, so a crash replays rather than drops.
// Malformed frames are logged, committed, and skipped.
func (r *Relay) Run(ctx context.Context) error {
	log.Println("[relay] started")

	for {
		msg, err := r.src.Fetch(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		}

		if _, err := event.Decode(msg.Value); err != nil {
			log.Printf("[relay] dropping malformed frame at offset %d: %v", msg.Offset, err)
			if err := r.src.Commit(ctx, msg); err != nil {
				return err
			}
			continue
		}

		if err := r.dst.AddRaw(msg.Value); err != nil {
			return err
		}
		if err := r.src.Commit(ctx, msg); err != nil {
			return err
		}
	}
}

package broadcaster

import (
	"errors"
	"testing"
	"time"

	"mimir/infra/outbox"

	"github.com/IBM/sarama/mocks"
)

func newOutbox(t *testing.T) *outbox.Outbox {
	t.Helper()
	ob, err := outbox.Open(t.TempDir())
	if err != nil {
		t.Fatalf("open outbox: %v", err)
	}
	t.Cleanup(func() { _ = ob.Close() })
	return ob
}

func TestReplayPublishesAndAcks(t *testing.T) {
	ob := newOutbox(t)
	_ = ob.Put(1, []byte("frame-1"))
	_ = ob.Put(2, []byte("frame-2"))

	producer := mocks.NewSyncProducer(t, nil)
	producer.ExpectSendMessageAndSucceed()
	producer.ExpectSendMessageAndSucceed()

	b := New(ob, producer, "telemetry", time.Second)
	b.ReplayOnce()

	for seq := uint64(1); seq <= 2; seq++ {
		e, err := ob.Get(seq)
		if err != nil {
			t.Fatalf("get %d: %v", seq, err)
		}
		if e.State != outbox.StateAcked {
			t.Fatalf("seq %d: expected ACKED, got %v", seq, e.State)
		}
	}
}

func TestReplayKeepsFailedPublishesPending(t *testing.T) {
	ob := newOutbox(t)
	_ = ob.Put(1, []byte("frame-1"))

	producer := mocks.NewSyncProducer(t, nil)
	producer.ExpectSendMessageAndFail(errors.New("broker down"))

	b := New(ob, producer, "telemetry", time.Second)
	b.ReplayOnce()

	e, err := ob.Get(1)
	if err != nil {
		t.Fatal(err)
	}
	if e.State != outbox.StateSent {
		t.Fatalf("expected SENT after failed publish, got %v", e.State)
	}

	// Next tick retries and succeeds.
	producer.ExpectSendMessageAndSucceed()
	b.ReplayOnce()

	e, _ = ob.Get(1)
	if e.State != outbox.StateAcked {
		t.Fatalf("expected ACKED after retry, got %v", e.State)
	}
	if e.Attempts < 2 {
		t.Fatalf("expected attempt counter to grow, got %d", e.Attempts)
	}
}

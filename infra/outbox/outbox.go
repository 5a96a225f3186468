// Package outbox mirrors encoded telemetry frames into a pebble store so a
// broadcaster can stream them to downstream consumers. The outbox is a
// best-effort side channel: failures here never fail the main event log.
package outbox

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"time"

	"github.com/cockroachdb/pebble"
)

// -------------------- State --------------------

type State uint8

const (
	StateNew State = iota
	StateSent
	StateAcked
)

func (s State) String() string {
	switch s {
	case StateNew:
		return "NEW"
	case StateSent:
		return "SENT"
	case StateAcked:
		return "ACKED"
	default:
		return "UNKNOWN"
	}
}

// -------------------- Entry --------------------

// Entry is one pending frame plus its delivery state.
type Entry struct {
	State       State
	Attempts    uint32
	LastAttempt int64
	Frame       []byte
}

const entryHeaderSize = 1 + 4 + 8

// binary encoding: [state:1][attempts:4][lastAttempt:8][frame...]
func encodeEntry(e Entry) []byte {
	buf := make([]byte, entryHeaderSize+len(e.Frame))
	buf[0] = byte(e.State)
	binary.BigEndian.PutUint32(buf[1:5], e.Attempts)
	binary.BigEndian.PutUint64(buf[5:13], uint64(e.LastAttempt))
	copy(buf[entryHeaderSize:], e.Frame)
	return buf
}

func decodeEntry(b []byte) (Entry, error) {
	if len(b) < entryHeaderSize {
		return Entry{}, errors.New("outbox: invalid entry length")
	}
	return Entry{
		State:       State(b[0]),
		Attempts:    binary.BigEndian.Uint32(b[1:5]),
		LastAttempt: int64(binary.BigEndian.Uint64(b[5:13])),
		Frame:       append([]byte(nil), b[entryHeaderSize:]...),
	}, nil
}

// -------------------- Outbox --------------------

type Outbox struct {
	db *pebble.DB
}

func Open(dir string) (*Outbox, error) {
	db, err := pebble.Open(dir, &pebble.Options{
		DisableWAL: false, // delivery state must survive restarts
	})
	if err != nil {
		return nil, err
	}
	return &Outbox{db: db}, nil
}

func (o *Outbox) Close() error {
	return o.db.Close()
}

// -------------------- API --------------------

// Put stores a new frame awaiting broadcast.
func (o *Outbox) Put(seq uint64, frame []byte) error {
	rec := Entry{State: StateNew, Frame: frame}
	return o.db.Set(keyFor(seq), encodeEntry(rec), pebble.Sync)
}

// MarkSent flags an entry as handed to the producer, bumping its attempt
// counter. Marking before publishing keeps delivery at-least-once.
func (o *Outbox) MarkSent(seq uint64) error {
	return o.update(seq, StateSent)
}

// MarkAcked flags an entry as acknowledged by the broker.
func (o *Outbox) MarkAcked(seq uint64) error {
	return o.update(seq, StateAcked)
}

func (o *Outbox) update(seq uint64, state State) error {
	e, err := o.Get(seq)
	if err != nil {
		return err
	}
	e.State = state
	e.Attempts++
	e.LastAttempt = time.Now().UnixNano()
	return o.db.Set(keyFor(seq), encodeEntry(e), pebble.Sync)
}

// Get returns the entry for a sequence number.
func (o *Outbox) Get(seq uint64) (Entry, error) {
	val, closer, err := o.db.Get(keyFor(seq))
	if err != nil {
		return Entry{}, err
	}
	defer closer.Close()

	return decodeEntry(val)
}

// DeleteAcked removes acknowledged entries and returns how many it removed.
func (o *Outbox) DeleteAcked() (int, error) {
	var seqs []uint64
	err := o.scan(func(seq uint64, e Entry) error {
		if e.State == StateAcked {
			seqs = append(seqs, seq)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	for _, seq := range seqs {
		if err := o.db.Delete(keyFor(seq), pebble.Sync); err != nil {
			return 0, err
		}
	}
	return len(seqs), nil
}

// -------------------- Scan --------------------

// ScanPending iterates all entries not yet acknowledged, in sequence order.
// This is the broadcaster's replay source.
func (o *Outbox) ScanPending(fn func(seq uint64, e Entry) error) error {
	return o.scan(func(seq uint64, e Entry) error {
		if e.State == StateAcked {
			return nil
		}
		return fn(seq, e)
	})
}

func (o *Outbox) scan(fn func(seq uint64, e Entry) error) error {
	iter, err := o.db.NewIter(&pebble.IterOptions{
		LowerBound: []byte("event/"),
		UpperBound: []byte("event/~"),
	})
	if err != nil {
		return err
	}
	defer iter.Close()

	for iter.First(); iter.Valid(); iter.Next() {
		e, err := decodeEntry(iter.Value())
		if err != nil {
			return err
		}
		seq, err := parseKey(iter.Key())
		if err != nil {
			return err
		}
		if err := fn(seq, e); err != nil {
			return err
		}
	}
	return iter.Error()
}

// -------------------- Helpers --------------------

func keyFor(seq uint64) []byte {
	return []byte(fmt.Sprintf("event/%020d", seq))
}

func parseKey(b []byte) (uint64, error) {
	var seq uint64
	_, err := fmt.Sscanf(string(bytes.TrimPrefix(b, []byte("event/"))), "%d", &seq)
	return seq, err
}

package event

import (
	"errors"
	"time"
)

// Kind discriminates the payload variants an event can carry.
// The set is closed; the writer never inspects payload bytes.
type Kind uint8

const (
	KindSummary Kind = iota + 1
	KindGraphDef
	KindSessionLog
	KindFileVersion
)

// Payload is an already-serialized summary record produced by an
// external builder. The Data bytes are opaque to this module.
type Payload struct {
	Kind Kind
	Data []byte
}

// Event is a timestamped, optionally step-numbered telemetry record.
// It is immutable once constructed.
type Event struct {
	WallTime float64 // seconds since the Unix epoch
	Step     int64
	HasStep  bool
	Payload  Payload
}

var ErrNegativeStep = errors.New("event: negative step")

// Wrap builds a stepless event. Wall time is captured here, on the
// caller's goroutine, so the timestamp reflects when the telemetry was
// produced rather than when it reached the writer.
func Wrap(p Payload) Event {
	return Event{WallTime: now(), Payload: p}
}

// WrapStep builds an event carrying a step counter. Steps must be
// non-negative; a bad step is a caller error and leaves no side effects.
func WrapStep(p Payload, step int64) (Event, error) {
	if step < 0 {
		return Event{}, ErrNegativeStep
	}
	return Event{WallTime: now(), Step: step, HasStep: true, Payload: p}, nil
}

// FileVersion is the version record written as the first event of every
// session file, so readers can identify the format.
func FileVersion() Event {
	return Wrap(Payload{Kind: KindFileVersion, Data: []byte("brain.Event:2")})
}

func now() float64 {
	return float64(time.Now().UnixNano()) / 1e9
}

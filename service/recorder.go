package service

import (
	"encoding/json"
	"log"
	"os"
	"path/filepath"
	"sync"

	"mimir/domain/event"
	"mimir/infra/eventfile"
	"mimir/infra/outbox"
	"mimir/infra/sequence"
)

// Builder converts typed telemetry into opaque summary payloads. Payload
// construction lives outside this module; anything that can produce the
// serialized bytes will do.
type Builder interface {
	Scalar(tag string, value float64) (event.Payload, error)
	Histogram(tag string, values, buckets []float64) (event.Payload, error)
	Image(tag string, image []byte) (event.Payload, error)
	Audio(tag string, samples []float64, sampleRate int) (event.Payload, error)
	Video(tag string, frames [][]byte, fps int) (event.Payload, error)
	Text(tag, text string) (event.Payload, error)
	Graph(def []byte) (event.Payload, error)
}

// Recorder wires a Builder to an async Writer.
//
// All Add* methods are safe for concurrent use; they block only when the
// writer's queue is full.
type Recorder struct {
	writer  *eventfile.Writer
	builder Builder
	buckets []float64

	mu       sync.Mutex
	textTags []string
	tagSeen  map[string]bool

	ob  *outbox.Outbox
	seq *sequence.Sequencer
}

type Option func(*Recorder)

// WithOutbox mirrors every recorded frame into an outbox for broadcast.
// The mirror is best-effort: outbox failures are logged, never returned.
func WithOutbox(ob *outbox.Outbox) Option {
	return func(r *Recorder) {
		r.ob = ob
		r.seq = sequence.New(0)
	}
}

// New creates the event file under logdir and starts the writer.
func New(logdir string, builder Builder, opts ...Option) (*Recorder, error) {
	return NewWithConfig(eventfile.Config{Dir: logdir}, builder, opts...)
}

// NewWithConfig is New with explicit writer settings.
func NewWithConfig(cfg eventfile.Config, builder Builder, opts ...Option) (*Recorder, error) {
	w, err := eventfile.New(cfg)
	if err != nil {
		return nil, err
	}
	r := &Recorder{
		writer:  w,
		builder: builder,
		buckets: DefaultBuckets(),
		tagSeen: make(map[string]bool),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// ------------------------------------------------
// Recording
// ------------------------------------------------

func (r *Recorder) AddScalar(tag string, value float64, step int64) error {
	p, err := r.builder.Scalar(tag, value)
	if err != nil {
		return err
	}
	return r.emitStep(p, step)
}

// AddHistogram buckets values with the default logarithmic edges.
func (r *Recorder) AddHistogram(tag string, values []float64, step int64) error {
	return r.AddHistogramBuckets(tag, values, r.buckets, step)
}

func (r *Recorder) AddHistogramBuckets(tag string, values, buckets []float64, step int64) error {
	p, err := r.builder.Histogram(tag, values, buckets)
	if err != nil {
		return err
	}
	return r.emitStep(p, step)
}

func (r *Recorder) AddImage(tag string, image []byte, step int64) error {
	p, err := r.builder.Image(tag, image)
	if err != nil {
		return err
	}
	return r.emitStep(p, step)
}

func (r *Recorder) AddAudio(tag string, samples []float64, sampleRate int, step int64) error {
	p, err := r.builder.Audio(tag, samples, sampleRate)
	if err != nil {
		return err
	}
	return r.emitStep(p, step)
}

func (r *Recorder) AddVideo(tag string, frames [][]byte, fps int, step int64) error {
	p, err := r.builder.Video(tag, frames, fps)
	if err != nil {
		return err
	}
	return r.emitStep(p, step)
}

// AddText records a text summary and registers its tag in the sidecar
// registry the first time the tag appears.
func (r *Recorder) AddText(tag, text string, step int64) error {
	p, err := r.builder.Text(tag, text)
	if err != nil {
		return err
	}
	if err := r.emitStep(p, step); err != nil {
		return err
	}
	r.registerTextTag(tag)
	return nil
}

// AddGraph records the computation graph. Graph events carry no step.
func (r *Recorder) AddGraph(def []byte) error {
	p, err := r.builder.Graph(def)
	if err != nil {
		return err
	}
	return r.emit(event.Wrap(p))
}

// AddSummary records an already-built summary payload.
func (r *Recorder) AddSummary(p event.Payload, step int64) error {
	return r.emitStep(p, step)
}

// AddSessionLog records a session status payload.
func (r *Recorder) AddSessionLog(p event.Payload, step int64) error {
	return r.emitStep(p, step)
}

// AddEvent records a pre-wrapped event, stepless or not.
func (r *Recorder) AddEvent(ev event.Event) error {
	return r.emit(ev)
}

// ------------------------------------------------
// Lifecycle
// ------------------------------------------------

func (r *Recorder) Flush() error  { return r.writer.Flush() }
func (r *Recorder) Close() error  { return r.writer.Close() }
func (r *Recorder) Reopen() error { return r.writer.Reopen() }

func (r *Recorder) Logdir() string { return r.writer.Logdir() }

// Writer exposes the underlying async writer for intake paths (gRPC
// ingest, Kafka relay) that append raw frames.
func (r *Recorder) Writer() *eventfile.Writer { return r.writer }

// ------------------------------------------------
// Internals
// ------------------------------------------------

func (r *Recorder) emitStep(p event.Payload, step int64) error {
	ev, err := event.WrapStep(p, step)
	if err != nil {
		return err
	}
	return r.emit(ev)
}

func (r *Recorder) emit(ev event.Event) error {
	frame := ev.Encode()
	if err := r.writer.AddRaw(frame); err != nil {
		return err
	}
	if r.ob != nil {
		if err := r.ob.Put(r.seq.Next(), frame); err != nil {
			log.Printf("[recorder] outbox put failed: %v", err)
		}
	}
	return nil
}

func (r *Recorder) registerTextTag(tag string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.tagSeen[tag] {
		return
	}
	r.tagSeen[tag] = true
	r.textTags = append(r.textTags, tag)

	dir := filepath.Join(r.writer.Logdir(), "plugins", "text")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		log.Printf("[recorder] text registry: %v", err)
		return
	}
	data, err := json.Marshal(r.textTags)
	if err != nil {
		log.Printf("[recorder] text registry: %v", err)
		return
	}
	if err := os.WriteFile(filepath.Join(dir, "tensors.json"), data, 0o644); err != nil {
		log.Printf("[recorder] text registry: %v", err)
	}
}

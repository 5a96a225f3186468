package eventfile

import (
	"errors"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"mimir/domain/event"
	"mimir/infra/sequence"
)

const (
	DefaultMaxQueue      = 10
	DefaultFlushInterval = 120 * time.Second
)

var ErrClosed = errors.New("eventfile: writer is closed")

type Config struct {
	// Dir is the logging directory. Created if absent.
	Dir string
	// MaxQueue bounds the number of enqueued-but-unwritten events.
	// AddEvent blocks when the queue is full. Default 10.
	MaxQueue int
	// FlushInterval bounds how stale buffered data may get when the
	// queue sits idle. Default 120s.
	FlushInterval time.Duration
}

func (c Config) withDefaults() Config {
	if c.MaxQueue <= 0 {
		c.MaxQueue = DefaultMaxQueue
	}
	if c.FlushInterval <= 0 {
		c.FlushInterval = DefaultFlushInterval
	}
	return c
}

// item is one queue slot: either an encoded event frame or an in-band
// flush marker. Flush markers ride the same FIFO as events, so a marker
// completes only after every event enqueued before it has been written.
type item struct {
	frame []byte
	flush chan error
}

// Writer appends events to the current session through a single background
// worker. Any number of producer goroutines may call AddEvent concurrently;
// the worker is the only goroutine that touches the file.
type Writer struct {
	cfg      Config
	openSink func() (sink, error)

	mu     sync.RWMutex // guards closed and the channel/session swap on reopen
	closed bool
	ch     chan item
	done   chan error
	sess   sink
	events *sequence.Sequencer // frames written to the current session
}

// New creates the logging directory if needed, opens a fresh session with
// a timestamped filename, writes the version record, and starts the worker.
func New(cfg Config) (*Writer, error) {
	cfg = cfg.withDefaults()
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, err
	}
	w := &Writer{
		cfg:      cfg,
		openSink: func() (sink, error) { return newSession(cfg.Dir) },
		events:   sequence.New(0),
	}
	if err := w.start(); err != nil {
		return nil, err
	}
	return w, nil
}

func (w *Writer) start() error {
	s, err := w.openSink()
	if err != nil {
		return err
	}
	if err := s.WriteFrame(event.FileVersion().Encode()); err != nil {
		_ = s.Close()
		return err
	}
	w.sess = s
	w.ch = make(chan item, w.cfg.MaxQueue)
	w.done = make(chan error, 1)
	w.closed = false
	w.events.Reset(0)
	go w.run(s, w.ch, w.done)
	return nil
}

// AddEvent enqueues an event. It blocks when the queue is at capacity
// until the worker frees a slot; events are never dropped. Returns
// ErrClosed after Close.
func (w *Writer) AddEvent(ev event.Event) error {
	return w.enqueue(ev.Encode())
}

// AddRaw enqueues an already-encoded event frame. Used by the ingest and
// relay paths, which receive frames off the wire.
func (w *Writer) AddRaw(frame []byte) error {
	return w.enqueue(frame)
}

func (w *Writer) enqueue(frame []byte) error {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.closed {
		return ErrClosed
	}
	w.ch <- item{frame: frame}
	return nil
}

// Flush blocks until every event enqueued before this call has been
// written and forced to stable storage. Events enqueued after the call
// began are not waited on. Returns the first write error recorded since
// the session opened, if any.
func (w *Writer) Flush() error {
	w.mu.RLock()
	if w.closed {
		w.mu.RUnlock()
		return ErrClosed
	}
	res := make(chan error, 1)
	w.ch <- item{flush: res}
	w.mu.RUnlock()
	return <-res
}

// Close drains the queue, syncs and closes the session, and records the
// session in the directory manifest. Calling Close again is a no-op.
func (w *Writer) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	close(w.ch)
	w.mu.Unlock()

	err := <-w.done
	if cerr := w.sess.Close(); err == nil {
		err = cerr
	}
	_ = AppendManifestEntry(w.cfg.Dir, ManifestEntry{
		File:     filepath.Base(w.sess.Path()),
		Events:   w.events.Current(),
		ClosedAt: time.Now().Format(time.RFC3339),
	})
	return err
}

// Reopen starts a new session in the same directory under a new filename
// and restarts the worker. It does nothing if the writer was never closed.
func (w *Writer) Reopen() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.closed {
		return nil
	}
	return w.start()
}

func (w *Writer) Logdir() string { return w.cfg.Dir }

// Filename returns the path of the current session file.
func (w *Writer) Filename() string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.sess.Path()
}

// run is the single queue consumer. It writes frames in FIFO order,
// answers flush markers after syncing, and syncs on a timer so idle
// periods never leave data buffered longer than FlushInterval. The first
// write or sync error is kept and surfaced on later Flush/Close calls.
func (w *Writer) run(s sink, ch chan item, done chan error) {
	var werr error
	ticker := time.NewTicker(w.cfg.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case it, ok := <-ch:
			if !ok {
				// Stop signal. Remaining items were already drained:
				// a closed channel delivers its buffer before ok=false.
				if err := s.Sync(); err != nil && werr == nil {
					werr = err
				}
				done <- werr
				return
			}
			if it.flush != nil {
				if err := s.Sync(); err != nil && werr == nil {
					werr = err
				}
				it.flush <- werr
				continue
			}
			if err := s.WriteFrame(it.frame); err != nil {
				if werr == nil {
					werr = err
				}
				log.Printf("[eventfile] write failed: %v", err)
				continue
			}
			w.events.Next()
		case <-ticker.C:
			if err := s.Sync(); err != nil && werr == nil {
				werr = err
			}
		}
	}
}

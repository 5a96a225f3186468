package eventfile

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"io"
	"os"
	"path/filepath"
	"time"
)

// frameHeader = length(4) + CRC(4), little endian.
const frameHeaderSize = 8

// sink is the output a writer's worker appends to. The worker goroutine is
// the only caller once the writer is running.
type sink interface {
	WriteFrame(payload []byte) error
	Sync() error
	Close() error
	Path() string
}

// session owns one open log file and its buffered write cursor.
type session struct {
	path string
	file *os.File
	w    *bufio.Writer
}

// newSession creates a fresh file named after the current time and host.
// A session never truncates or appends to an existing file, so closing and
// reopening always preserves prior data under its original name.
func newSession(dir string) (*session, error) {
	name := fmt.Sprintf("events.out.tfevents.%d.%s", time.Now().UnixNano(), hostToken())
	path := filepath.Join(dir, name)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0o644)
	if err != nil {
		return nil, err
	}
	return &session{
		path: path,
		file: f,
		w:    bufio.NewWriterSize(f, 1<<20),
	}, nil
}

func (s *session) WriteFrame(payload []byte) error {
	return writeFrame(s.w, payload)
}

// Sync forces buffered frames through to stable storage.
func (s *session) Sync() error {
	if err := s.w.Flush(); err != nil {
		return err
	}
	return s.file.Sync()
}

func (s *session) Close() error {
	if err := s.Sync(); err != nil {
		_ = s.file.Close()
		return err
	}
	return s.file.Close()
}

func (s *session) Path() string { return s.path }

func writeFrame(wr io.Writer, payload []byte) error {
	var header [frameHeaderSize]byte
	binary.LittleEndian.PutUint32(header[:4], uint32(len(payload)))
	binary.LittleEndian.PutUint32(header[4:], crc32.ChecksumIEEE(payload))
	if _, err := wr.Write(header[:]); err != nil {
		return err
	}
	_, err := wr.Write(payload)
	return err
}

func hostToken() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		return "localhost"
	}
	return host
}

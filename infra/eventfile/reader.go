package eventfile

import (
	"bufio"
	"encoding/binary"
	"errors"
	"hash/crc32"
	"io"
	"os"

	"mimir/domain/event"
)

var ErrCRCMismatch = errors.New("eventfile: crc mismatch")

// Reader iterates the frames of one session file in write order.
type Reader struct {
	file *os.File
	r    *bufio.Reader
	ev   event.Event
	err  error
}

func OpenReader(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	return &Reader{file: f, r: bufio.NewReader(f)}, nil
}

// Next advances to the next record. It returns false at end of file or on
// the first corrupt frame; Err distinguishes the two.
func (r *Reader) Next() bool {
	var header [frameHeaderSize]byte
	if _, err := io.ReadFull(r.r, header[:]); err != nil {
		if err != io.EOF {
			r.err = err
		}
		return false
	}
	payload := make([]byte, binary.LittleEndian.Uint32(header[:4]))
	if _, err := io.ReadFull(r.r, payload); err != nil {
		r.err = err
		return false
	}
	if crc32.ChecksumIEEE(payload) != binary.LittleEndian.Uint32(header[4:]) {
		r.err = ErrCRCMismatch
		return false
	}
	ev, err := event.Decode(payload)
	if err != nil {
		r.err = err
		return false
	}
	r.ev = ev
	return true
}

func (r *Reader) Event() event.Event { return r.ev }

// Err returns nil after a clean end of file.
func (r *Reader) Err() error { return r.err }

func (r *Reader) Close() error { return r.file.Close() }

// ReadAll decodes every record in a session file, version record included.
func ReadAll(path string) ([]event.Event, error) {
	r, err := OpenReader(path)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	var out []event.Event
	for r.Next() {
		out = append(out, r.Event())
	}
	return out, r.Err()
}

package eventfile

import (
	"path/filepath"
	"testing"
	"time"
)

func TestManifestRecordsClosedSessions(t *testing.T) {
	dir := t.TempDir()

	entries, err := LoadManifest(dir)
	if err != nil {
		t.Fatalf("empty dir: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected no entries, got %d", len(entries))
	}

	w, err := New(Config{Dir: dir, FlushInterval: time.Hour})
	if err != nil {
		t.Fatal(err)
	}
	first := w.Filename()
	for i := 0; i < 3; i++ {
		if err := w.AddEvent(summaryEvent(t, "m", int64(i))); err != nil {
			t.Fatal(err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	if err := w.Reopen(); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}

	entries, err = LoadManifest(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 sessions, got %d", len(entries))
	}
	if entries[0].File != filepath.Base(first) {
		t.Fatalf("first entry file: got %q want %q", entries[0].File, filepath.Base(first))
	}
	if entries[0].Events != 3 {
		t.Fatalf("first entry events: got %d want 3", entries[0].Events)
	}
	if entries[1].Events != 0 {
		t.Fatalf("second entry events: got %d want 0", entries[1].Events)
	}
}

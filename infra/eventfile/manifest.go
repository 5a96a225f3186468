package eventfile

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
)

// ManifestEntry records one finished session so the visualization side can
// enumerate files without scanning the directory.
type ManifestEntry struct {
	File     string `json:"file"`
	Events   uint64 `json:"events"`
	ClosedAt string `json:"closed_at"`
}

const manifestName = "manifest.json"

// AppendManifestEntry adds a session entry to the directory manifest.
// The manifest is best-effort metadata, not part of the durability
// contract of the session files themselves.
func AppendManifestEntry(dir string, entry ManifestEntry) error {
	path := filepath.Join(dir, manifestName)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	_, err = f.Write(append(data, '\n'))
	return err
}

// LoadManifest reads all session entries. A missing manifest is an empty
// directory, not an error.
func LoadManifest(dir string) ([]ManifestEntry, error) {
	b, err := os.ReadFile(filepath.Join(dir, manifestName))
	if err != nil {
		if os.IsNotExist(err) {
			return []ManifestEntry{}, nil
		}
		return nil, err
	}

	var entries []ManifestEntry
	for _, line := range bytes.Split(b, []byte("\n")) {
		if len(line) == 0 {
			continue
		}
		var e ManifestEntry
		if err := json.Unmarshal(line, &e); err == nil {
			entries = append(entries, e)
		}
	}
	return entries, nil
}

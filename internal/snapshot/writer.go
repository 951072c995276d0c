package snapshot

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/rotisserie/eris"
)

// Writer persists snapshots to the output directory: latest.json is
// replaced every run, history/<YYYY-MM-DD>.json adds one file per UTC
// calendar day. Writes go through a temp file and rename so an
// interrupted run never leaves a truncated document behind.
type Writer struct {
	dir string
}

// NewWriter creates a snapshot writer rooted at dir.
func NewWriter(dir string) *Writer {
	return &Writer{dir: dir}
}

// Write persists the snapshot to both destinations and returns their
// paths. Both files carry byte-identical content.
func (w *Writer) Write(snap *Snapshot, now time.Time) (latestPath, historyPath string, err error) {
	historyDir := filepath.Join(w.dir, "history")
	if err := os.MkdirAll(historyDir, 0o755); err != nil {
		return "", "", eris.Wrapf(err, "writer: create %s", historyDir)
	}

	content, err := encode(snap)
	if err != nil {
		return "", "", err
	}

	latestPath = filepath.Join(w.dir, "latest.json")
	historyPath = filepath.Join(historyDir, now.UTC().Format("2006-01-02")+".json")

	for _, path := range []string{latestPath, historyPath} {
		if err := writeAtomic(path, content); err != nil {
			return "", "", err
		}
	}
	return latestPath, historyPath, nil
}

// encode renders the snapshot as pretty-printed UTF-8 JSON with HTML
// escaping disabled so non-ASCII titles stay readable.
func encode(snap *Snapshot) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(snap); err != nil {
		return nil, eris.Wrap(err, "writer: encode snapshot")
	}
	return buf.Bytes(), nil
}

func writeAtomic(path string, content []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return eris.Wrapf(err, "writer: create temp for %s", path)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(content); err != nil {
		tmp.Close()           //nolint:errcheck
		os.Remove(tmpName)    //nolint:errcheck
		return eris.Wrapf(err, "writer: write %s", tmpName)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName) //nolint:errcheck
		return eris.Wrapf(err, "writer: close %s", tmpName)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName) //nolint:errcheck
		return eris.Wrapf(err, "writer: rename to %s", path)
	}
	return nil
}

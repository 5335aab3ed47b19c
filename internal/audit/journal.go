package audit

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"

	"github.com/fentz26/stashsweep/internal/models"
)

// Entry is one journaled game mutation.
type Entry struct {
	Time    time.Time       `json:"time"`
	RunID   string          `json:"run_id"`
	Action  string          `json:"action"`
	Command *models.Command `json:"command,omitempty"`
	Message *models.Message `json:"message,omitempty"`
	Outcome string          `json:"outcome"`
	Error   string          `json:"error,omitempty"`
}

// Journal appends entries to a zstd-compressed JSONL file.
type Journal struct {
	mu  sync.Mutex
	f   *os.File
	enc *zstd.Encoder
	w   *bufio.Writer
}

// JournalPath returns the journal file for a run under dir.
func JournalPath(dir, runID string) string {
	return filepath.Join(dir, fmt.Sprintf("run-%s.jsonl.zst", runID))
}

// OpenJournal creates the journal file at path.
func OpenJournal(path string) (*Journal, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create journal directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("create journal encoder: %w", err)
	}
	return &Journal{f: f, enc: enc, w: bufio.NewWriterSize(enc, 64*1024)}, nil
}

// Write appends one entry.
func (j *Journal) Write(e Entry) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.w == nil {
		return fmt.Errorf("journal closed")
	}
	b, err := json.Marshal(e)
	if err != nil {
		return err
	}
	if _, err := j.w.Write(b); err != nil {
		return err
	}
	return j.w.WriteByte('\n')
}

// Close flushes and closes the journal. The zstd frame is only complete after Close.
func (j *Journal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()

	var err error
	if j.w != nil {
		err = j.w.Flush()
		j.w = nil
	}
	if j.enc != nil {
		if cerr := j.enc.Close(); err == nil {
			err = cerr
		}
		j.enc = nil
	}
	if j.f != nil {
		if cerr := j.f.Close(); err == nil {
			err = cerr
		}
		j.f = nil
	}
	return err
}

// ReadJournal decodes every entry of a closed journal file.
func ReadJournal(path string) ([]Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return nil, err
	}
	defer dec.Close()

	sc := bufio.NewScanner(dec)
	sc.Buffer(make([]byte, 64*1024), 8*1024*1024)

	var entries []Entry
	for sc.Scan() {
		var e Entry
		if err := json.Unmarshal(sc.Bytes(), &e); err != nil {
			return nil, fmt.Errorf("%s: unmarshal: %w", filepath.Base(path), err)
		}
		entries = append(entries, e)
	}
	return entries, sc.Err()
}

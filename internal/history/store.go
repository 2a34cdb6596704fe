// Package history persists practice attempts for later review. Attempts are
// stored as append-only JSON lines in a local file, one record per scored
// read-back.
package history

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/MrWong99/readalong/internal/align"
)

// Record is a single practice attempt written to the file store.
type Record struct {
	Timestamp time.Time  `json:"timestamp"`
	Sentence  string     `json:"sentence"`
	Spoken    string     `json:"spoken"`
	Score     float64    `json:"score"`
	Tier      align.Tier `json:"tier"`
	Missed    []string   `json:"missed,omitempty"`

	// TraceID correlates the record with the telemetry of the attempt that
	// produced it. Empty when tracing was not active.
	TraceID string `json:"trace_id,omitempty"`
}

// FileStore persists practice records as JSON lines in a local file.
// Safe for concurrent use.
type FileStore struct {
	mu   sync.Mutex
	path string
}

// NewFileStore creates a FileStore that writes to the given path.
// The file is created on first append if it does not exist.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Append writes one record to the file.
func (fs *FileStore) Append(rec Record) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now().UTC()
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("history: marshal: %w", err)
	}
	data = append(data, '\n')

	f, err := os.OpenFile(fs.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("history: open file: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(data); err != nil {
		return fmt.Errorf("history: write: %w", err)
	}
	return nil
}

// Load reads all records from the file. A missing file yields an empty slice.
func (fs *FileStore) Load() ([]Record, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	f, err := os.Open(fs.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("history: open file: %w", err)
	}
	defer f.Close()

	var records []Record
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := sc.Bytes()
		if len(line) == 0 {
			continue
		}
		var rec Record
		if err := json.Unmarshal(line, &rec); err != nil {
			return nil, fmt.Errorf("history: parse line %d: %w", len(records)+1, err)
		}
		records = append(records, rec)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("history: read: %w", err)
	}
	return records, nil
}

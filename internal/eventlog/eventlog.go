// Package eventlog appends observed build transitions to a JSONL file,
// one JSON object per line, so other tooling can tail or replay them.
package eventlog

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/goccy/go-json"
)

// ErrClosed indicates an append after Close.
var ErrClosed = errors.New("eventlog: closed")

// Entry is one recorded build transition.
type Entry struct {
	Time     time.Time `json:"time"`
	Team     string    `json:"team"`
	Pipeline string    `json:"pipeline"`
	Job      string    `json:"job"`
	Build    string    `json:"build"`
	BuildID  int       `json:"build_id"`
	Status   string    `json:"status"`
	Previous string    `json:"previous,omitempty"`
}

// Log is an append-only JSONL file. Safe for concurrent use.
type Log struct {
	mu   sync.Mutex
	f    *os.File
	path string
}

// Open opens the log at path for appending, creating the file and its
// parent directories as needed.
func Open(path string) (*Log, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("eventlog: creating directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("eventlog: opening %s: %w", path, err)
	}
	return &Log{f: f, path: path}, nil
}

// Append writes one entry as a JSON line. A zero Time is stamped with
// the current time.
func (l *Log) Append(e Entry) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.f == nil {
		return ErrClosed
	}
	if e.Time.IsZero() {
		e.Time = time.Now().UTC()
	}

	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("eventlog: marshaling: %w", err)
	}
	if _, err := l.f.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("eventlog: writing %s: %w", l.path, err)
	}
	return nil
}

// Close flushes and closes the underlying file. Further appends return
// ErrClosed.
func (l *Log) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.f == nil {
		return nil
	}
	err := l.f.Close()
	l.f = nil
	if err != nil {
		return fmt.Errorf("eventlog: closing %s: %w", l.path, err)
	}
	return nil
}

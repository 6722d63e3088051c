// Package state implements watch-mode progress persistence to the filesystem.
package state

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/smileynet/flightdeck/internal/atc"
)

// Seen records the last finished build observed per job, so a restarted
// watch does not replay transitions it already reported.
type Seen struct {
	// Builds maps job name to the last finished build ID seen.
	Builds map[string]int `json:"builds"`
	// UpdatedAt is when the record was last written.
	UpdatedAt time.Time `json:"updated_at"`
}

// NewSeen returns an empty Seen with an allocated map.
func NewSeen() Seen {
	return Seen{Builds: make(map[string]int)}
}

// FileStore persists Seen records as JSON files under a base directory,
// one file per pipeline.
type FileStore struct {
	baseDir string
}

// NewFileStore creates a FileStore that saves records under baseDir.
func NewFileStore(baseDir string) *FileStore {
	return &FileStore{baseDir: baseDir}
}

// Save writes the record for the given pipeline.
func (s *FileStore) Save(loc atc.PipelineLocator, seen Seen) error {
	p, err := s.path(loc)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(s.baseDir, 0o755); err != nil {
		return fmt.Errorf("state: creating directory: %w", err)
	}

	seen.UpdatedAt = time.Now().UTC()
	data, err := json.MarshalIndent(seen, "", "  ")
	if err != nil {
		return fmt.Errorf("state: marshaling: %w", err)
	}

	if err := os.WriteFile(p, data, 0o644); err != nil {
		return fmt.Errorf("state: writing %s: %w", p, err)
	}
	return nil
}

// Load reads the record for the given pipeline.
// Returns (seen, true, nil) if found, (zero, false, nil) if not found.
func (s *FileStore) Load(loc atc.PipelineLocator) (Seen, bool, error) {
	p, err := s.path(loc)
	if err != nil {
		return Seen{}, false, err
	}

	data, err := os.ReadFile(p)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Seen{}, false, nil
		}
		return Seen{}, false, fmt.Errorf("state: reading %s: %w", p, err)
	}

	var seen Seen
	if err := json.Unmarshal(data, &seen); err != nil {
		return Seen{}, false, fmt.Errorf("state: parsing %s: %w", p, err)
	}
	if seen.Builds == nil {
		seen.Builds = make(map[string]int)
	}
	return seen, true, nil
}

// Remove deletes the record for the given pipeline.
func (s *FileStore) Remove(loc atc.PipelineLocator) error {
	p, err := s.path(loc)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("state: removing %s: %w", p, err)
	}
	return nil
}

// ErrInvalidLocator indicates a locator that cannot name a record file.
var ErrInvalidLocator = errors.New("state: invalid pipeline locator")

// path returns the filesystem path for a pipeline's record.
// Team and pipeline names become the file name, so anything that would
// escape the base directory is rejected.
func (s *FileStore) path(loc atc.PipelineLocator) (string, error) {
	if loc.Team == "" || loc.Pipeline == "" {
		return "", fmt.Errorf("%w: %q", ErrInvalidLocator, loc.String())
	}
	name := loc.Team + "." + loc.Pipeline + ".json"
	if name != filepath.Base(name) || loc.Team == ".." || loc.Pipeline == ".." {
		return "", fmt.Errorf("%w: %q", ErrInvalidLocator, loc.String())
	}
	return filepath.Join(s.baseDir, name), nil
}

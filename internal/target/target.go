// Package target manages named CI server entries so one invocation can
// say `-t prod` instead of spelling out URL, team, and token.
package target

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Target is one saved server entry.
type Target struct {
	Name     string `yaml:"-"`
	URL      string `yaml:"url"`
	Team     string `yaml:"team,omitempty"`
	Token    string `yaml:"token,omitempty"`
	Insecure bool   `yaml:"insecure,omitempty"` // Skip TLS certificate verification
}

// Validate checks that a target is usable.
func (t Target) Validate() error {
	if t.Name == "" {
		return errors.New("target: name cannot be empty")
	}
	u, err := url.Parse(t.URL)
	if err != nil {
		return fmt.Errorf("target %q: url: %w", t.Name, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("target %q: url scheme must be http or https, got %q", t.Name, t.URL)
	}
	return nil
}

// targetsFile is the on-disk shape of targets.yml.
type targetsFile struct {
	Targets map[string]Target `yaml:"targets"`
}

// Store reads and writes the targets file. Tokens live in it, so writes
// use 0600.
type Store struct {
	path string
}

// NewStore creates a Store backed by the file at path.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// DefaultPath returns the conventional targets file location under the
// user config directory.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("target: locating config dir: %w", err)
	}
	return filepath.Join(dir, "flightdeck", "targets.yml"), nil
}

// Lookup returns the named target.
// Returns an *UnknownTargetError when the name is not saved.
func (s *Store) Lookup(name string) (Target, error) {
	file, err := s.read()
	if err != nil {
		return Target{}, err
	}
	t, ok := file.Targets[name]
	if !ok {
		return Target{}, &UnknownTargetError{
			Name:      name,
			Available: names(file.Targets),
		}
	}
	t.Name = name
	return t, nil
}

// Save adds or replaces a target entry.
func (s *Store) Save(t Target) error {
	if err := t.Validate(); err != nil {
		return err
	}

	file, err := s.read()
	if err != nil {
		return err
	}
	if file.Targets == nil {
		file.Targets = make(map[string]Target)
	}
	file.Targets[t.Name] = t

	return s.write(file)
}

// Delete removes a target entry. Deleting an unknown name is not an error.
func (s *Store) Delete(name string) error {
	file, err := s.read()
	if err != nil {
		return err
	}
	if _, ok := file.Targets[name]; !ok {
		return nil
	}
	delete(file.Targets, name)
	return s.write(file)
}

// List returns all saved targets sorted by name.
func (s *Store) List() ([]Target, error) {
	file, err := s.read()
	if err != nil {
		return nil, err
	}
	targets := make([]Target, 0, len(file.Targets))
	for name, t := range file.Targets {
		t.Name = name
		targets = append(targets, t)
	}
	sort.Slice(targets, func(i, j int) bool { return targets[i].Name < targets[j].Name })
	return targets, nil
}

// read loads the targets file, treating a missing file as empty.
func (s *Store) read() (targetsFile, error) {
	var file targetsFile

	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return file, nil
		}
		return file, fmt.Errorf("target: reading %s: %w", s.path, err)
	}
	if err := yaml.Unmarshal(data, &file); err != nil {
		return file, fmt.Errorf("target: parsing %s: %w", s.path, err)
	}
	return file, nil
}

func (s *Store) write(file targetsFile) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("target: creating directory: %w", err)
	}

	data, err := yaml.Marshal(file)
	if err != nil {
		return fmt.Errorf("target: marshaling: %w", err)
	}

	if err := os.WriteFile(s.path, data, 0o600); err != nil {
		return fmt.Errorf("target: writing %s: %w", s.path, err)
	}
	return nil
}

func names(targets map[string]Target) []string {
	out := make([]string, 0, len(targets))
	for name := range targets {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// UnknownTargetError indicates a target name is not saved.
type UnknownTargetError struct {
	Name      string
	Available []string
}

func (e *UnknownTargetError) Error() string {
	if len(e.Available) == 0 {
		return fmt.Sprintf("unknown target %q (none saved; run flightdeck targets save)", e.Name)
	}
	return fmt.Sprintf("unknown target %q (available: %s)", e.Name, strings.Join(e.Available, ", "))
}

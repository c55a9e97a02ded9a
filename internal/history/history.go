// Package history persists the raw mountstats text between check runs so
// the next run has a baseline to diff against. One file per target host,
// fully overwritten each run.
package history

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

const filePrefix = ".nfs__"

// ErrNoHistory marks the first run for a target: no historical text has
// been saved yet. Callers must treat this differently from any other read
// failure, which indicates a real storage problem.
var ErrNoHistory = errors.New("no historical mountstats for host")

// Store reads and writes the last-seen mountstats text for one host.
type Store struct {
	dir  string
	host string
}

// NewStore creates a store for `host` rooted at `dir`. An empty dir falls
// back to the system temp directory.
func NewStore(dir, host string) *Store {
	if dir == "" {
		dir = os.TempDir()
	}

	return &Store{dir: dir, host: host}
}

// Path returns the history file path for this store's host. Path
// separators in the hostname are flattened so a malformed target can't
// escape the store directory.
func (s *Store) Path() string {
	host := strings.ReplaceAll(s.host, string(os.PathSeparator), "_")
	return filepath.Join(s.dir, filePrefix+host)
}

// Load reads the previously saved mountstats text. Returns an error
// wrapping ErrNoHistory if no history exists for this host yet.
func (s *Store) Load() (string, error) {
	content, err := os.ReadFile(s.Path())
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("%w: %s", ErrNoHistory, s.Path())
		}
		return "", fmt.Errorf("couldn't read history file: %w", err)
	}

	return string(content), nil
}

// Save overwrites the history file with `content`.
func (s *Store) Save(content string) error {
	if err := os.WriteFile(s.Path(), []byte(content), 0644); err != nil {
		return fmt.Errorf("couldn't write history file: %w", err)
	}

	return nil
}

// Package filestore keeps progression records as JSON files, one per key.
// It is the lightweight alternative to the SQLite backend and produces
// files a user can inspect or back up by hand.
package filestore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sync"
	"time"

	"github.com/blank-marketing/blank/internal/domain"
)

var validKey = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]{0,127}$`)

// Store reads and writes <dir>/<key>.json.
type Store struct {
	dir string
	mu  sync.Mutex
}

// New creates a Store rooted at dir. The directory is created on the
// first save if it does not exist.
func New(dir string) *Store {
	return &Store{dir: dir}
}

// Path returns the file that holds key.
func (s *Store) Path(key string) string {
	return filepath.Join(s.dir, key+".json")
}

func checkKey(key string) error {
	if !validKey.MatchString(key) {
		return fmt.Errorf("invalid progression key %q", key)
	}
	return nil
}

// LoadProgression decodes <key>.json.
// Returns domain.ErrStateNotFound if the file does not exist.
func (s *Store) LoadProgression(_ context.Context, key string) (*domain.ProgressionState, error) {
	if err := checkKey(key); err != nil {
		return nil, err
	}

	s.mu.Lock()
	data, err := os.ReadFile(s.Path(key))
	s.mu.Unlock()
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, domain.ErrStateNotFound
		}
		return nil, fmt.Errorf("reading progression: %w", err)
	}

	var st domain.ProgressionState
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, fmt.Errorf("parsing progression: %w: %w", domain.ErrCorruptState, err)
	}
	return &st, nil
}

// SaveProgression writes the record using an atomic temp-file-then-rename.
func (s *Store) SaveProgression(_ context.Context, key string, st domain.ProgressionState) error {
	if err := checkKey(key); err != nil {
		return err
	}

	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling progression: %w", err)
	}
	data = append(data, '\n')

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(s.dir, 0o700); err != nil {
		return fmt.Errorf("creating progression dir: %w", err)
	}

	tmp, err := os.CreateTemp(s.dir, "."+key+"-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			os.Remove(tmpPath)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("syncing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(tmpPath, s.Path(key)); err != nil {
		return fmt.Errorf("renaming progression file: %w", err)
	}
	committed = true
	return nil
}

// BackupProgression renames <key>.json to <key>.corrupt-<unixnano>.json.
func (s *Store) BackupProgression(_ context.Context, key string) (string, error) {
	if err := checkKey(key); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	backup := filepath.Join(s.dir, fmt.Sprintf("%s.corrupt-%d.json", key, time.Now().UnixNano()))
	if err := os.Rename(s.Path(key), backup); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", domain.ErrStateNotFound
		}
		return "", fmt.Errorf("backing up progression: %w", err)
	}
	return backup, nil
}

// DeleteProgression removes <key>.json. A missing file is not an error.
func (s *Store) DeleteProgression(_ context.Context, key string) error {
	if err := checkKey(key); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.Path(key)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("removing progression: %w", err)
	}
	return nil
}

// Ping checks that the directory exists or can be created and is writable.
func (s *Store) Ping(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(s.dir, 0o700); err != nil {
		return fmt.Errorf("progression dir: %w", err)
	}
	f, err := os.CreateTemp(s.dir, ".ping-*")
	if err != nil {
		return fmt.Errorf("progression dir not writable: %w", err)
	}
	name := f.Name()
	f.Close()
	return os.Remove(name)
}

// Package indexstore owns the JSON index file that lists every note's
// metadata. The file is a plain JSON array, rewritten whole on every
// mutation, and is meant to stay human-editable.
package indexstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/starling/clipnote/internal/models"
)

// LoadError is returned when the index file exists but cannot be read or
// decoded. Callers decide whether to fall back to an empty index; the
// store never absorbs the failure silently.
type LoadError struct {
	Path string
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("indexstore: load %s: %v", e.Path, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// Store reads and rewrites the backing index file. All mutations go
// through Mutate, which serializes writers within this process. Across
// processes the file is still last-writer-wins; run at most one writer.
type Store struct {
	path string
	mu   sync.Mutex
}

// New creates a store backed by the given index file path. The file is
// created lazily on first Save.
func New(path string) *Store {
	return &Store{path: path}
}

// Load returns all records in stored order. A missing file yields an
// empty slice; anything else that prevents decoding yields a *LoadError.
func (s *Store) Load() ([]models.IndexRecord, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []models.IndexRecord{}, nil
		}
		return nil, &LoadError{Path: s.path, Err: err}
	}
	var records []models.IndexRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, &LoadError{Path: s.path, Err: err}
	}
	if records == nil {
		records = []models.IndexRecord{}
	}
	return records, nil
}

// Save overwrites the backing file atomically (tmp file → rename) with
// the given records, pretty-printed so the file stays hand-editable.
func (s *Store) Save(records []models.IndexRecord) error {
	if records == nil {
		records = []models.IndexRecord{}
	}
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("indexstore: encode: %w", err)
	}
	data = append(data, '\n')

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("indexstore: mkdir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".index-tmp-*")
	if err != nil {
		return fmt.Errorf("indexstore: create temp: %w", err)
	}
	tmpName := tmp.Name()

	success := false
	defer func() {
		if !success {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		return fmt.Errorf("indexstore: write temp: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("indexstore: fsync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("indexstore: close temp: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("indexstore: rename: %w", err)
	}
	success = true
	return nil
}

// Mutate loads the index, applies fn, and saves the result, holding the
// writer lock for the whole read-modify-write. A corrupt index aborts
// the mutation rather than clobbering the file with fn's output.
func (s *Store) Mutate(fn func(records []models.IndexRecord) ([]models.IndexRecord, error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.Load()
	if err != nil {
		return err
	}
	updated, err := fn(records)
	if err != nil {
		return err
	}
	return s.Save(updated)
}

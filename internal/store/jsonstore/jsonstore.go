package jsonstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/Makepad-fr/tada-remote/internal/model"
)

// JSON-backed storage for the mock collection resource. Single file,
// human-readable, portable. Writes go through a temp file and a rename.

// DefaultFileName is used when the mock server is given a directory.
const DefaultFileName = "todos.json"

// Snapshot is the on-disk document.
type Snapshot struct {
	NextID int          `json:"next_id"`
	Todos  []model.Todo `json:"todos"`
}

// Store reads and writes one snapshot file.
type Store struct {
	mu   sync.Mutex
	path string
}

// New returns a store for path. A directory path gets DefaultFileName.
func New(path string) (*Store, error) {
	if path == "" {
		return nil, errors.New("jsonstore: empty path")
	}
	if fi, err := os.Stat(path); err == nil && fi.IsDir() {
		path = filepath.Join(path, DefaultFileName)
	}
	return &Store{path: path}, nil
}

// Path returns the file the store writes to.
func (s *Store) Path() string { return s.path }

// Load reads the snapshot. A missing file is an empty collection.
func (s *Store) Load() (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

// Update loads the snapshot, applies fn and saves the result unless fn
// returns an error.
func (s *Store) Update(fn func(*Snapshot) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap, err := s.load()
	if err != nil {
		return err
	}
	if err := fn(&snap); err != nil {
		return err
	}
	return s.save(snap)
}

func (s *Store) load() (Snapshot, error) {
	snap := Snapshot{NextID: 1, Todos: []model.Todo{}}
	b, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return snap, nil
		}
		return Snapshot{}, fmt.Errorf("read file: %w", err)
	}
	if err := json.Unmarshal(b, &snap); err != nil {
		return Snapshot{}, fmt.Errorf("json unmarshal: %w", err)
	}
	if snap.Todos == nil {
		snap.Todos = []model.Todo{}
	}
	for _, t := range snap.Todos {
		if t.ID >= snap.NextID {
			snap.NextID = t.ID + 1
		}
	}
	return snap, nil
}

func (s *Store) save(snap Snapshot) error {
	b, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("json marshal: %w", err)
	}
	if dir := filepath.Dir(s.path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("mkdir: %w", err)
		}
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return fmt.Errorf("write file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("rename: %w", err)
	}
	return nil
}

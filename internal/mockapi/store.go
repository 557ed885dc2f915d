package mockapi

import (
	"errors"
	"slices"
	"sync"

	"github.com/Makepad-fr/tada-remote/internal/model"
	"github.com/Makepad-fr/tada-remote/internal/store/jsonstore"
)

// ErrNotFound is returned for ids the store does not hold.
var ErrNotFound = errors.New("todo not found")

// Store persists the mock collection.
type Store interface {
	List() ([]model.Todo, error)
	Create(text string, completed bool) (model.Todo, error)
	Update(id int, fn func(*model.Todo)) (model.Todo, error)
	Delete(id int) error
}

// MemoryStore keeps todos in process memory.
type MemoryStore struct {
	mu     sync.Mutex
	todos  []model.Todo
	nextID int
}

// NewMemoryStore returns a store seeded with todos; ids continue after the
// highest seeded id.
func NewMemoryStore(seed ...model.Todo) *MemoryStore {
	m := &MemoryStore{todos: slices.Clone(seed), nextID: 1}
	for _, t := range seed {
		if t.ID >= m.nextID {
			m.nextID = t.ID + 1
		}
	}
	return m
}

func (m *MemoryStore) List() ([]model.Todo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.Todo, len(m.todos))
	copy(out, m.todos)
	return out, nil
}

func (m *MemoryStore) Create(text string, completed bool) (model.Todo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t := model.Todo{ID: m.nextID, Text: text, Completed: completed}
	m.nextID++
	m.todos = append(m.todos, t)
	return t, nil
}

func (m *MemoryStore) Update(id int, fn func(*model.Todo)) (model.Todo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	i := indexOf(m.todos, id)
	if i < 0 {
		return model.Todo{}, ErrNotFound
	}
	fn(&m.todos[i])
	m.todos[i].ID = id
	return m.todos[i], nil
}

func (m *MemoryStore) Delete(id int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	i := indexOf(m.todos, id)
	if i < 0 {
		return ErrNotFound
	}
	m.todos = slices.Delete(m.todos, i, i+1)
	return nil
}

// FileStore keeps todos in a JSON file through jsonstore.
type FileStore struct {
	js *jsonstore.Store
}

// NewFileStore opens (or lazily creates) the JSON file at path.
func NewFileStore(path string) (*FileStore, error) {
	js, err := jsonstore.New(path)
	if err != nil {
		return nil, err
	}
	return &FileStore{js: js}, nil
}

// Path returns the backing file.
func (f *FileStore) Path() string { return f.js.Path() }

func (f *FileStore) List() ([]model.Todo, error) {
	snap, err := f.js.Load()
	if err != nil {
		return nil, err
	}
	return snap.Todos, nil
}

func (f *FileStore) Create(text string, completed bool) (model.Todo, error) {
	var t model.Todo
	err := f.js.Update(func(snap *jsonstore.Snapshot) error {
		t = model.Todo{ID: snap.NextID, Text: text, Completed: completed}
		snap.NextID++
		snap.Todos = append(snap.Todos, t)
		return nil
	})
	return t, err
}

func (f *FileStore) Update(id int, fn func(*model.Todo)) (model.Todo, error) {
	var t model.Todo
	err := f.js.Update(func(snap *jsonstore.Snapshot) error {
		i := indexOf(snap.Todos, id)
		if i < 0 {
			return ErrNotFound
		}
		fn(&snap.Todos[i])
		snap.Todos[i].ID = id
		t = snap.Todos[i]
		return nil
	})
	return t, err
}

func (f *FileStore) Delete(id int) error {
	return f.js.Update(func(snap *jsonstore.Snapshot) error {
		i := indexOf(snap.Todos, id)
		if i < 0 {
			return ErrNotFound
		}
		snap.Todos = slices.Delete(snap.Todos, i, i+1)
		return nil
	})
}

func indexOf(todos []model.Todo, id int) int {
	return slices.IndexFunc(todos, func(t model.Todo) bool { return t.ID == id })
}

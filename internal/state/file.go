package state

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
)

// FileStore keeps all positions in a single JSON file.
type FileStore struct {
	path string
	data map[string]Position
	mu   sync.RWMutex
}

// NewFileStore creates or loads state from path.
func NewFileStore(path string) (*FileStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, err
	}

	store := &FileStore{
		path: path,
		data: make(map[string]Position),
	}
	if err := store.load(); err != nil {
		// Non-fatal - start with empty state
		store.data = make(map[string]Position)
	}
	return store, nil
}

// Path returns location of the state file.
func (s *FileStore) Path() string {
	return s.path
}

func (s *FileStore) Get(hash string) (Position, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	pos, ok := s.data[hash]
	return pos, ok, nil
}

func (s *FileStore) Set(hash string, pos Position) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[hash] = pos
	return s.save()
}

func (s *FileStore) Clear(hash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, hash)
	return s.save()
}

func (s *FileStore) List() ([]Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entries := make([]Entry, 0, len(s.data))
	for hash, pos := range s.data {
		entries = append(entries, Entry{Hash: hash, Position: pos})
	}
	sortEntries(entries)
	return entries, nil
}

// Close is a no-op, every change is already written.
func (s *FileStore) Close() error {
	return nil
}

func (s *FileStore) load() error {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	return json.Unmarshal(data, &s.data)
}

func (s *FileStore) save() error {
	data, err := json.MarshalIndent(s.data, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(s.path, data, 0644)
}

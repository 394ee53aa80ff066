package certstore

import (
	"fmt"
	"sync"
)

// MemStore keeps certificate files in memory, in write order.
type MemStore struct {
	mu    sync.RWMutex
	files map[string][]byte
	order []string
}

func NewMemStore() *MemStore {
	return &MemStore{
		files: make(map[string][]byte),
	}
}

func (s *MemStore) Exists(name string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.files[name]
	return ok, nil
}

func (s *MemStore) Write(name string, data []byte) error {
	if err := validateName(name); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.files[name]; ok {
		return fmt.Errorf("%w: %s", ErrExists, name)
	}
	s.files[name] = append([]byte(nil), data...)
	s.order = append(s.order, name)
	return nil
}

// Get returns a copy of the named file.
func (s *MemStore) Get(name string) ([]byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, ok := s.files[name]
	if !ok {
		return nil, false
	}
	return append([]byte(nil), data...), true
}

// Names returns the stored names in write order.
func (s *MemStore) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return append([]string(nil), s.order...)
}

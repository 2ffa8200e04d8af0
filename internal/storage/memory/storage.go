package memory

import (
	"context"
	"sync"

	"github.com/joshdurbin/goshort/internal/storage"
)

// Storage implements storage.Storage using an in-memory map
type Storage struct {
	data  map[string]string
	mutex sync.RWMutex
}

// New creates a new in-memory storage
func New() *Storage {
	return &Storage{
		data: make(map[string]string),
	}
}

// GetItem returns the value stored under key
func (s *Storage) GetItem(ctx context.Context, key string) (string, bool, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	value, exists := s.data[key]
	return value, exists, nil
}

// SetItem stores value under key
func (s *Storage) SetItem(ctx context.Context, key, value string) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.data[key] = value
	return nil
}

// RemoveItem deletes key
func (s *Storage) RemoveItem(ctx context.Context, key string) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	delete(s.data, key)
	return nil
}

// Len returns the number of stored keys
func (s *Storage) Len() int {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	return len(s.data)
}

// Close is a no-op for the in-memory storage
func (s *Storage) Close() error {
	return nil
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// Storage is a mock implementation of storage.Storage
type Storage struct {
	mock.Mock
}

// GetItem returns the value stored under key
func (m *Storage) GetItem(ctx context.Context, key string) (string, bool, error) {
	args := m.Called(ctx, key)
	return args.String(0), args.Bool(1), args.Error(2)
}

// SetItem stores value under key
func (m *Storage) SetItem(ctx context.Context, key, value string) error {
	args := m.Called(ctx, key, value)
	return args.Error(0)
}

// RemoveItem deletes key
func (m *Storage) RemoveItem(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

// Close closes the storage
func (m *Storage) Close() error {
	args := m.Called()
	return args.Error(0)
}

package storage

import (
	"context"
)

// Storage is a persistent string key/value store, the local equivalent of
// a browser's localStorage
type Storage interface {
	// GetItem returns the value stored under key and whether it exists
	GetItem(ctx context.Context, key string) (string, bool, error)

	// SetItem stores value under key, replacing any previous value
	SetItem(ctx context.Context, key, value string) error

	// RemoveItem deletes key; removing a missing key is not an error
	RemoveItem(ctx context.Context, key string) error

	// Close releases the underlying connection (if applicable)
	Close() error
}

// Driver names accepted by the configuration
const (
	DriverSQLite = "sqlite"
	DriverMemory = "memory"
	DriverRedis  = "redis"
)

package backend

import (
	"context"

	"cassa/internal/store"
)

// CleanupFunc releases resources held by a remote store.
type CleanupFunc func() error

// Result contains the remote store and an optional cleanup function.
type Result struct {
	Store   store.DocumentStore
	Cleanup CleanupFunc
}

// Factory creates remote document stores based on configuration.
type Factory interface {
	CreateStore(ctx context.Context, config Config) (*Result, error)
}

// Config holds configuration for remote store creation.
type Config struct {
	Type BackendType

	// Mongo specific
	MongoURI        string
	MongoDatabase   string
	MongoCollection string
}

// BackendType represents the kind of remote store behind the ledger.
type BackendType string

const (
	MemoryBackend BackendType = "memory"
	MongoBackend  BackendType = "mongo"
	DriveBackend  BackendType = "drive"
)

// String implements fmt.Stringer
func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case MemoryBackend, MongoBackend, DriveBackend:
		return true
	default:
		return false
	}
}

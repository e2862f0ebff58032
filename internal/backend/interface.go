package backend

import (
	"context"

	"bommel/internal/ports"
)

// Backend is the persistence and statistics collaborator behind the tree.
type Backend interface {
	ports.Collaborator
	ports.RootReader
	ports.TransactionRecorder
}

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// BackendResult contains the backend instance and optional cleanup function
type BackendResult struct {
	Backend Backend
	Cleanup CleanupFunc
	// Ping backs the readiness probe; nil means always ready.
	Ping func(ctx context.Context) error
}

// Close runs the cleanup function if there is one.
func (r *BackendResult) Close() error {
	if r == nil || r.Cleanup == nil {
		return nil
	}
	return r.Cleanup()
}

// Factory creates backends based on configuration
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

// Config holds configuration for backend creation
type Config struct {
	Type BackendType

	OrganizationID int64

	// SQLite specific
	SQLiteDBPath string

	// SeedFile seeds the memory backend, and an empty SQLite organization.
	SeedFile string
}

// BackendType represents the type of backend
type BackendType string

const (
	SQLiteBackend BackendType = "sqlite"
	MemoryBackend BackendType = "memory"
)

func (bt BackendType) String() string {
	return string(bt)
}

func (bt BackendType) IsValid() bool {
	switch bt {
	case SQLiteBackend, MemoryBackend:
		return true
	default:
		return false
	}
}

// Package backend opens the store selected by DATA_BACKEND.
package backend

import (
	"context"

	"atelier/internal/ports"
)

// Backend is a store the HTTP server and CLI can run against.
type Backend interface {
	ports.Store
	Ping(ctx context.Context) error
}

type CleanupFunc func() error

// BackendResult is an opened store. Ledger is nil unless the type
// TracksLedger.
type BackendResult struct {
	Backend Backend
	Ledger  ports.LedgerSource
	Cleanup CleanupFunc
}

type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

type Config struct {
	Type         BackendType
	SQLiteDBPath string
}

// BackendType names a store implementation.
type BackendType string

const (
	SQLiteBackend BackendType = "sqlite"
	MemoryBackend BackendType = "memory"
)

var backendTypes = []BackendType{SQLiteBackend, MemoryBackend}

func (bt BackendType) String() string { return string(bt) }

func (bt BackendType) IsValid() bool {
	for _, t := range backendTypes {
		if bt == t {
			return true
		}
	}
	return false
}

// TracksLedger reports whether the store records which payments and
// overhead entries still need exporting to the ledger spreadsheet.
func (bt BackendType) TracksLedger() bool {
	return bt == SQLiteBackend
}

// Persistent reports whether data survives a restart.
func (bt BackendType) Persistent() bool {
	return bt == SQLiteBackend
}

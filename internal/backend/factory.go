package backend

import (
	"context"
	"fmt"
	"log/slog"

	"atelier/internal/storage"
	"atelier/internal/storage/memory"
)

type DefaultFactory struct {
	logger *slog.Logger
}

func NewFactory(logger *slog.Logger) Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultFactory{
		logger: logger,
	}
}

// CreateBackend validates config and opens the store it names.
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	switch config.Type {
	case SQLiteBackend:
		return f.createSQLiteBackend(config)
	case MemoryBackend:
		return f.createMemoryBackend()
	default:
		return nil, fmt.Errorf("no constructor for backend %s", config.Type)
	}
}

func (f *DefaultFactory) createSQLiteBackend(config Config) (*BackendResult, error) {
	repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath, f.logger)
	if err != nil {
		return nil, fmt.Errorf("open sqlite store %s: %w", config.SQLiteDBPath, err)
	}

	f.logger.Info("Initialized SQLite backend", "db_path", config.SQLiteDBPath)

	res := &BackendResult{Backend: repo, Cleanup: repo.Close}
	if config.Type.TracksLedger() {
		res.Ledger = repo
	}
	return res, nil
}

// createMemoryBackend returns a volatile store; nothing survives a restart.
func (f *DefaultFactory) createMemoryBackend() (*BackendResult, error) {
	store := memory.New()

	f.logger.Warn("Initialized memory backend, data will not be persisted")

	return &BackendResult{
		Backend: store,
		Cleanup: store.Close,
	}, nil
}

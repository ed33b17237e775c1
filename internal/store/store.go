// Package store persists the tender table across runs. The merger and
// output writer own the table exclusively; the store only loads it at run
// start and saves it at run end.
package store

import (
	"context"
	"fmt"

	"printwatch/internal/config"
	"printwatch/internal/models"
)

// Store is the durable table abstraction. Tests inject the memory backend;
// production uses csv or sqlite.
type Store interface {
	Load(ctx context.Context) (*models.Table, error)
	Save(ctx context.Context, table *models.Table, result *models.RunResult) error
	Close() error
}

// Open creates the store selected by configuration.
func Open(cfg *config.StoreConfig) (Store, error) {
	switch cfg.Backend {
	case config.StoreCSV:
		return NewCSVStore(cfg.Path), nil
	case config.StoreSQLite:
		return OpenSQLiteStore(cfg.Path)
	case config.StoreMemory:
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("%w: %q", config.ErrUnknownStoreBackend, cfg.Backend)
	}
}

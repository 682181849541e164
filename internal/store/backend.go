package store

import (
	"context"
	"errors"
	"fmt"

	"clonerp/internal/app"
)

var (
	// ErrNotExist is returned by a Backend when a document was never saved.
	ErrNotExist = errors.New("document does not exist")
	// ErrCorrupt marks a persisted document that cannot be decoded.
	ErrCorrupt = errors.New("document is corrupt")
)

// Backend persists whole collection documents by name. Implementations must
// be safe for concurrent use; every Save replaces the previous document.
type Backend interface {
	Load(ctx context.Context, name string) ([]byte, error)
	Save(ctx context.Context, name string, doc []byte) error
	Close() error
}

// OpenBackend picks the backend configured by STORE_DRIVER.
func OpenBackend(ctx context.Context, cfg app.Config) (Backend, error) {
	switch cfg.StoreDriver {
	case app.DriverFile:
		return NewFileBackend(cfg.DataDir)
	case app.DriverSQLite:
		return OpenSQLite(cfg.DatabaseURL)
	case app.DriverPostgres:
		return OpenPostgres(ctx, cfg.DatabaseURL)
	}
	return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
}

package store

import (
	"context"
	"fmt"

	"github.com/MKhiriev/go-track-gateway/internal/config"
	"github.com/MKhiriev/go-track-gateway/internal/logger"
)

// Storages groups the repositories exposed by the persistence layer.
type Storages struct {
	PositionRepository PositionRepository
}

// NewStorages opens the configured database backend and wires the
// repositories on top of it.
//
// Driver selection: "pgx" (default when empty) connects to PostgreSQL,
// "sqlite3" opens the embedded development backend.
func NewStorages(ctx context.Context, cfg config.Storage, log *logger.Logger) (*Storages, error) {
	var db *DB
	var err error

	switch cfg.DB.Driver {
	case "", "pgx":
		db, err = NewConnectPostgres(ctx, cfg.DB, log)
	case "sqlite3":
		db, err = NewConnectSQLite(ctx, cfg.DB, log)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedDriver, cfg.DB.Driver)
	}
	if err != nil {
		return nil, fmt.Errorf("error connecting storage: %w", err)
	}

	return &Storages{
		PositionRepository: NewPositionRepository(db, log),
	}, nil
}

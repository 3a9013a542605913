// Package postgres records drive telemetry into Postgres, falling
// back to an in-memory SQLite database when the server is unreachable.
package postgres

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/rs/zerolog"

	"github.com/groundctl/autodrive/internal/database"
	gormstorage "github.com/groundctl/autodrive/internal/storage/gorm"
)

// Backend is the Postgres storage backend.
type Backend struct {
	*gormstorage.Backend
	log *slog.Logger
	mgr *database.Manager

	// FellBack reports whether the session ended up in local SQLite.
	FellBack bool
}

// New creates an uninitialized Postgres backend. Connection settings
// come from the db.* config keys.
func New(log *slog.Logger) *Backend {
	return &Backend{log: log}
}

// Init connects and migrates the schema.
func (b *Backend) Init() error {
	b.mgr = database.NewManager(zerolog.New(os.Stderr).With().Timestamp().Logger())
	if err := b.mgr.Connect(); err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	b.FellBack = b.mgr.ShouldSaveLocal
	if b.FellBack {
		b.log.Warn("postgres unreachable, recording to local sqlite")
	}

	b.Backend = gormstorage.New(b.mgr.DB, b.log, 0)
	return b.Backend.Init()
}

// Package sqlitestorage records drive telemetry into a local SQLite file.
package sqlitestorage

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"github.com/groundctl/autodrive/internal/database"
	gormstorage "github.com/groundctl/autodrive/internal/storage/gorm"
	"github.com/groundctl/autodrive/pkg/core"
)

// Config selects where the database file lands.
type Config struct {
	OutputDir string `json:"outputDir" mapstructure:"outputDir"`
}

// Backend is the SQLite storage backend.
type Backend struct {
	*gormstorage.Backend
	cfg      Config
	log      *slog.Logger
	filePath string
}

// New creates an uninitialized SQLite backend.
func New(cfg Config, log *slog.Logger) *Backend {
	return &Backend{cfg: cfg, log: log}
}

// Init opens the database file and migrates the schema.
func (b *Backend) Init() error {
	if err := os.MkdirAll(b.cfg.OutputDir, 0o755); err != nil {
		return fmt.Errorf("creating output dir: %w", err)
	}
	b.filePath = filepath.Join(b.cfg.OutputDir,
		fmt.Sprintf("autodrive_%s.db", time.Now().Format("2006-01-02_15-04-05")))

	mgr := database.NewManager(zerolog.Nop())
	db, err := mgr.GetSqliteDB(b.filePath)
	if err != nil {
		return fmt.Errorf("opening sqlite db: %w", err)
	}

	b.Backend = gormstorage.New(db, b.log, 0)
	if err := b.Backend.Init(); err != nil {
		return err
	}
	b.log.Info("sqlite storage ready", "path", b.filePath)
	return nil
}

// ExportedFilePath reports where the session database was written.
func (b *Backend) ExportedFilePath() string { return b.filePath }

// StartSession delegates after guarding against use before Init.
func (b *Backend) StartSession(session *core.DriveSession) error {
	if b.Backend == nil {
		return fmt.Errorf("sqlite backend not initialized")
	}
	return b.Backend.StartSession(session)
}

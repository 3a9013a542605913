package storage

import (
	"fmt"
	"log/slog"

	"github.com/spf13/viper"

	"github.com/groundctl/autodrive/internal/storage/memory"
	"github.com/groundctl/autodrive/internal/storage/postgres"
	sqlitestorage "github.com/groundctl/autodrive/internal/storage/sqlite"
	"github.com/groundctl/autodrive/internal/storage/websocket"
)

// NewBackend creates a storage backend based on the storage.* config keys.
// Section values are read key by key so registered defaults apply even when
// the config file sets only part of a section.
func NewBackend(log *slog.Logger) (Backend, error) {
	switch backendType := viper.GetString("storage.type"); backendType {
	case "memory":
		return memory.New(memory.Config{
			OutputDir:      viper.GetString("storage.memory.outputDir"),
			CompressOutput: viper.GetBool("storage.memory.compressOutput"),
		}), nil
	case "sqlite":
		return sqlitestorage.New(sqlitestorage.Config{
			OutputDir: viper.GetString("storage.sqlite.outputDir"),
		}, log), nil
	case "postgres":
		return postgres.New(log), nil
	case "websocket":
		return websocket.New(websocket.Config{
			URL:    viper.GetString("storage.websocket.url"),
			Secret: viper.GetString("storage.websocket.secret"),
		}, log), nil
	default:
		return nil, fmt.Errorf("unknown storage type: %s", backendType)
	}
}

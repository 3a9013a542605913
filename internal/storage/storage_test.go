package storage_test

import (
	"io"
	"log/slog"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/groundctl/autodrive/internal/storage"
	gormstorage "github.com/groundctl/autodrive/internal/storage/gorm"
	"github.com/groundctl/autodrive/internal/storage/memory"
	"github.com/groundctl/autodrive/internal/storage/postgres"
	sqlitestorage "github.com/groundctl/autodrive/internal/storage/sqlite"
	"github.com/groundctl/autodrive/internal/storage/websocket"
)

// Every backend satisfies the Backend contract.
var (
	_ storage.Backend = (*memory.Backend)(nil)
	_ storage.Backend = (*gormstorage.Backend)(nil)
	_ storage.Backend = (*sqlitestorage.Backend)(nil)
	_ storage.Backend = (*postgres.Backend)(nil)
	_ storage.Backend = (*websocket.Backend)(nil)
)

// Backends that write a retrievable artifact expose its path.
var (
	_ storage.Exportable = (*memory.Backend)(nil)
	_ storage.Exportable = (*sqlitestorage.Backend)(nil)
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNewBackend_Memory(t *testing.T) {
	t.Cleanup(viper.Reset)
	viper.Set("storage.type", "memory")
	viper.Set("storage.memory.outputDir", t.TempDir())

	backend, err := storage.NewBackend(discardLogger())
	require.NoError(t, err)
	assert.IsType(t, (*memory.Backend)(nil), backend)
}

func TestNewBackend_Websocket(t *testing.T) {
	t.Cleanup(viper.Reset)
	viper.Set("storage.type", "websocket")
	viper.Set("storage.websocket.url", "ws://localhost:5001/stream")

	backend, err := storage.NewBackend(discardLogger())
	require.NoError(t, err)
	assert.IsType(t, (*websocket.Backend)(nil), backend)
}

func TestNewBackend_UnknownType(t *testing.T) {
	t.Cleanup(viper.Reset)
	viper.Set("storage.type", "carrier-pigeon")

	_, err := storage.NewBackend(discardLogger())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown storage type")
}

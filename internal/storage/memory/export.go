// internal/storage/memory/export.go
package memory

import (
	"compress/gzip"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/groundctl/autodrive/pkg/core"
)

// DriveExport is the root JSON structure for a recorded session.
type DriveExport struct {
	SessionName string            `json:"sessionName"`
	WorldName   string            `json:"worldName"`
	StartTime   string            `json:"startTime"`
	TickRate    float64           `json:"tickRate"`
	Vehicles    []VehicleJSON     `json:"vehicles"`
	Events      []core.DriveEvent `json:"events"`
}

// VehicleJSON represents one vehicle's recorded trajectory.
type VehicleJSON struct {
	ID     uint16              `json:"id"`
	States []core.VehicleState `json:"states"`
	Poses  []PoseRecord        `json:"poses"`
}

// exportJSON writes the session data to a JSON file, gzipped when
// configured. Callers must hold b.mu.
func (b *Backend) exportJSON() error {
	export := b.buildExport()

	name := strings.ReplaceAll(b.session.Name, " ", "_")
	name = strings.ReplaceAll(name, ":", "_")
	timestamp := b.session.StartTime.Format("20060102_150405")

	var filename string
	if b.cfg.CompressOutput {
		filename = fmt.Sprintf("%s_%s.json.gz", name, timestamp)
	} else {
		filename = fmt.Sprintf("%s_%s.json", name, timestamp)
	}

	outputPath := filepath.Join(b.cfg.OutputDir, filename)

	if err := os.MkdirAll(b.cfg.OutputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	if b.cfg.CompressOutput {
		if err := b.writeGzipJSON(outputPath, export); err != nil {
			return err
		}
	} else {
		if err := b.writeJSON(outputPath, export); err != nil {
			return err
		}
	}

	b.lastExportPath = outputPath
	return nil
}

func (b *Backend) buildExport() DriveExport {
	export := DriveExport{
		SessionName: b.session.Name,
		WorldName:   b.session.WorldName,
		StartTime:   b.session.StartTime.UTC().Format("2006-01-02T15:04:05Z"),
		TickRate:    b.session.TickRate,
		Events:      b.events,
	}
	for _, rec := range b.vehicles {
		export.Vehicles = append(export.Vehicles, VehicleJSON{
			ID:     rec.VehicleID,
			States: rec.States,
			Poses:  rec.Poses,
		})
	}
	return export
}

func (b *Backend) writeJSON(path string, export DriveExport) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create export file: %w", err)
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	if err := enc.Encode(export); err != nil {
		return fmt.Errorf("failed to encode export: %w", err)
	}
	return nil
}

func (b *Backend) writeGzipJSON(path string, export DriveExport) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create export file: %w", err)
	}
	defer f.Close()

	gz := gzip.NewWriter(f)
	defer gz.Close()

	enc := json.NewEncoder(gz)
	if err := enc.Encode(export); err != nil {
		return fmt.Errorf("failed to encode export: %w", err)
	}
	return nil
}

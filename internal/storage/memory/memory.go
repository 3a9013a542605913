// internal/storage/memory/memory.go
package memory

import (
	"fmt"
	"sync"

	"github.com/groundctl/autodrive/pkg/core"
)

// Config holds in-memory/JSON storage backend settings.
type Config struct {
	OutputDir      string `json:"outputDir" mapstructure:"outputDir"`
	CompressOutput bool   `json:"compressOutput" mapstructure:"compressOutput"`
}

// VehicleRecord groups one vehicle's time-series data.
type VehicleRecord struct {
	VehicleID uint16
	States    []core.VehicleState
	Poses     []PoseRecord
}

// PoseRecord captures the wheel poses at one tick.
type PoseRecord struct {
	Tick  uint64
	Poses [core.WheelCount]core.WheelPose
}

// Backend stores a drive session in memory and exports it to JSON
// when the session ends.
type Backend struct {
	cfg     Config
	session *core.DriveSession

	vehicles map[uint16]*VehicleRecord
	events   []core.DriveEvent

	lastExportPath string
	mu             sync.RWMutex
}

// New creates a new memory backend.
func New(cfg Config) *Backend {
	return &Backend{
		cfg:      cfg,
		vehicles: make(map[uint16]*VehicleRecord),
	}
}

// Init initializes the backend.
func (b *Backend) Init() error {
	return nil
}

// Close cleans up resources.
func (b *Backend) Close() error {
	return nil
}

// StartSession begins recording a new session, discarding previous data.
func (b *Backend) StartSession(s *core.DriveSession) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.session = s
	b.vehicles = make(map[uint16]*VehicleRecord)
	b.events = nil
	return nil
}

// EndSession exports the recorded session to JSON.
func (b *Backend) EndSession() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.session == nil {
		return fmt.Errorf("no active session")
	}
	return b.exportJSON()
}

// RecordVehicleState appends one tick snapshot.
func (b *Backend) RecordVehicleState(st *core.VehicleState) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.vehicle(st.VehicleID).States = append(b.vehicle(st.VehicleID).States, *st)
	return nil
}

// RecordDriveEvent appends one controller event.
func (b *Backend) RecordDriveEvent(e *core.DriveEvent) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.events = append(b.events, *e)
	return nil
}

// RecordWheelPoses appends the wheel poses for one tick.
func (b *Backend) RecordWheelPoses(vehicleID uint16, tick uint64, poses [core.WheelCount]core.WheelPose) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	rec := b.vehicle(vehicleID)
	rec.Poses = append(rec.Poses, PoseRecord{Tick: tick, Poses: poses})
	return nil
}

// vehicle returns the record for an ID, creating it on first use.
// Callers must hold b.mu.
func (b *Backend) vehicle(id uint16) *VehicleRecord {
	rec, ok := b.vehicles[id]
	if !ok {
		rec = &VehicleRecord{VehicleID: id}
		b.vehicles[id] = rec
	}
	return rec
}

// ExportedFilePath returns the path of the last exported file.
func (b *Backend) ExportedFilePath() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.lastExportPath
}

// StateCount returns the number of recorded states for a vehicle.
func (b *Backend) StateCount(vehicleID uint16) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if rec, ok := b.vehicles[vehicleID]; ok {
		return len(rec.States)
	}
	return 0
}

// PoseCount returns the number of recorded wheel pose snapshots for a vehicle.
func (b *Backend) PoseCount(vehicleID uint16) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if rec, ok := b.vehicles[vehicleID]; ok {
		return len(rec.Poses)
	}
	return 0
}

// Events returns a copy of the recorded events.
func (b *Backend) Events() []core.DriveEvent {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]core.DriveEvent, len(b.events))
	copy(out, b.events)
	return out
}

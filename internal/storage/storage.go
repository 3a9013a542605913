// internal/storage/storage.go
package storage

import "github.com/groundctl/autodrive/pkg/core"

// Backend is the interface all recording implementations must satisfy.
type Backend interface {
	// Lifecycle
	Init() error
	Close() error

	// Session management
	StartSession(s *core.DriveSession) error
	EndSession() error

	// State recording
	RecordVehicleState(st *core.VehicleState) error
	RecordDriveEvent(e *core.DriveEvent) error
	RecordWheelPoses(vehicleID uint16, tick uint64, poses [core.WheelCount]core.WheelPose) error
}

// Exportable is an optional interface for backends that produce a file
// suitable for playback tooling.
type Exportable interface {
	ExportedFilePath() string
}

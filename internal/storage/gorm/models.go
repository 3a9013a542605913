package gormstorage

import (
	"time"

	"gorm.io/datatypes"
)

// SessionRow is the persisted drive session.
type SessionRow struct {
	ID        uint `gorm:"primarykey"`
	Name      string
	WorldName string
	StartTime time.Time
	TickRate  float64
}

// TableName overrides the default table name.
func (SessionRow) TableName() string { return "sessions" }

// VehicleTickRow is one vehicle control snapshot.
type VehicleTickRow struct {
	ID          uint   `gorm:"primarykey"`
	SessionID   uint   `gorm:"index"`
	VehicleID   uint16 `gorm:"index"`
	Tick        uint64
	Time        time.Time
	X           float64
	Y           float64
	Z           float64
	YawDeg      float64
	Speed       float64
	Mode        string
	SteerDeg    float64
	MotorTorque float64
	BrakeTorque float64
	Handbrake   bool
}

// TableName overrides the default table name.
func (VehicleTickRow) TableName() string { return "vehicle_ticks" }

// DriveEventRow is one discrete controller event.
type DriveEventRow struct {
	ID        uint   `gorm:"primarykey"`
	SessionID uint   `gorm:"index"`
	VehicleID uint16 `gorm:"index"`
	Tick      uint64
	Time      time.Time
	Kind      string
	Detail    string
}

// TableName overrides the default table name.
func (DriveEventRow) TableName() string { return "drive_events" }

// WheelPoseRow stores the four wheel poses of one tick as a JSON blob;
// pose data is read back whole for playback, never queried by field.
type WheelPoseRow struct {
	ID        uint   `gorm:"primarykey"`
	SessionID uint   `gorm:"index"`
	VehicleID uint16 `gorm:"index"`
	Tick      uint64
	Poses     datatypes.JSON
}

// TableName overrides the default table name.
func (WheelPoseRow) TableName() string { return "wheel_poses" }

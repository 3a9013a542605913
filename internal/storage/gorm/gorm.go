// Package gormstorage implements the storage backend shared by the
// sqlite and postgres drivers. Rows are staged in queues and written
// in batches to keep per-tick overhead off the control loop.
package gormstorage

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"gorm.io/gorm"

	"github.com/groundctl/autodrive/internal/queue"
	"github.com/groundctl/autodrive/pkg/core"
)

// DefaultBatchSize is the number of staged rows that triggers a flush.
const DefaultBatchSize = 256

// Backend writes drive telemetry through a gorm DB handle.
type Backend struct {
	mu        sync.Mutex
	db        *gorm.DB
	log       *slog.Logger
	batchSize int
	sessionID uint

	ticks  queue.Queue[VehicleTickRow]
	events queue.Queue[DriveEventRow]
	poses  queue.Queue[WheelPoseRow]
}

// New wraps an open gorm DB. The handle stays owned by the caller
// until Init, after which Close tears it down.
func New(db *gorm.DB, log *slog.Logger, batchSize int) *Backend {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &Backend{db: db, log: log, batchSize: batchSize}
}

// Init migrates the schema.
func (b *Backend) Init() error {
	err := b.db.AutoMigrate(
		&SessionRow{},
		&VehicleTickRow{},
		&DriveEventRow{},
		&WheelPoseRow{},
	)
	if err != nil {
		return fmt.Errorf("migrating schema: %w", err)
	}
	return nil
}

// StartSession inserts the session row and resets the staging queues.
func (b *Backend) StartSession(session *core.DriveSession) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	row := SessionRow{
		Name:      session.Name,
		WorldName: session.WorldName,
		StartTime: session.StartTime,
		TickRate:  session.TickRate,
	}
	if err := b.db.Create(&row).Error; err != nil {
		return fmt.Errorf("inserting session: %w", err)
	}
	b.sessionID = row.ID
	b.ticks.Clear()
	b.events.Clear()
	b.poses.Clear()
	b.log.Info("session started", "sessionID", row.ID, "name", session.Name)
	return nil
}

// EndSession flushes everything still staged.
func (b *Backend) EndSession() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.flushLocked()
}

// RecordVehicleState stages one snapshot row.
func (b *Backend) RecordVehicleState(state *core.VehicleState) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.ticks.Push(VehicleTickRow{
		SessionID:   b.sessionID,
		VehicleID:   state.VehicleID,
		Tick:        state.Tick,
		Time:        state.Time,
		X:           state.Position.X,
		Y:           state.Position.Y,
		Z:           state.Position.Z,
		YawDeg:      state.YawDeg,
		Speed:       state.Speed,
		Mode:        state.Mode,
		SteerDeg:    state.SteerDeg,
		MotorTorque: state.MotorTorque,
		BrakeTorque: state.BrakeTorque,
		Handbrake:   state.Handbrake,
	})
	return b.maybeFlushLocked()
}

// RecordDriveEvent stages one event row.
func (b *Backend) RecordDriveEvent(event *core.DriveEvent) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events.Push(DriveEventRow{
		SessionID: b.sessionID,
		VehicleID: event.VehicleID,
		Tick:      event.Tick,
		Time:      event.Time,
		Kind:      event.Kind,
		Detail:    event.Detail,
	})
	return b.maybeFlushLocked()
}

// RecordWheelPoses stages the wheel poses of one tick as JSON.
func (b *Backend) RecordWheelPoses(vehicleID uint16, tick uint64, poses [core.WheelCount]core.WheelPose) error {
	blob, err := json.Marshal(poses)
	if err != nil {
		return fmt.Errorf("marshalling wheel poses: %w", err)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.poses.Push(WheelPoseRow{
		SessionID: b.sessionID,
		VehicleID: vehicleID,
		Tick:      tick,
		Poses:     blob,
	})
	return b.maybeFlushLocked()
}

// Close flushes and releases the underlying connection.
func (b *Backend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.flushLocked(); err != nil {
		b.log.Error("flush on close failed", "error", err)
	}
	sqlDB, err := b.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (b *Backend) maybeFlushLocked() error {
	if b.ticks.Len()+b.events.Len()+b.poses.Len() < b.batchSize {
		return nil
	}
	return b.flushLocked()
}

func (b *Backend) flushLocked() error {
	if rows := b.ticks.Drain(); len(rows) > 0 {
		if err := b.db.CreateInBatches(rows, b.batchSize).Error; err != nil {
			return fmt.Errorf("writing vehicle ticks: %w", err)
		}
	}
	if rows := b.events.Drain(); len(rows) > 0 {
		if err := b.db.CreateInBatches(rows, b.batchSize).Error; err != nil {
			return fmt.Errorf("writing drive events: %w", err)
		}
	}
	if rows := b.poses.Drain(); len(rows) > 0 {
		if err := b.db.CreateInBatches(rows, b.batchSize).Error; err != nil {
			return fmt.Errorf("writing wheel poses: %w", err)
		}
	}
	return nil
}

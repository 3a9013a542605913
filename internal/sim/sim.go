// Package sim advances a fleet in fixed timesteps. Each tick runs the
// variable-rate input pass, the fixed-rate control pass, and the physics
// step for every vehicle, then records the resulting telemetry.
package sim

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/groundctl/autodrive/internal/drive"
	"github.com/groundctl/autodrive/internal/fleet"
	"github.com/groundctl/autodrive/internal/influx"
	"github.com/groundctl/autodrive/internal/storage"
	"github.com/groundctl/autodrive/pkg/core"
)

// DefaultTickRate is the fixed control rate in Hz.
const DefaultTickRate = 50.0

// Runner owns the tick loop for a registry of vehicles.
type Runner struct {
	Registry *fleet.Registry
	Backend  storage.Backend
	Influx   *influx.Manager // optional, nil disables
	Log      *slog.Logger

	// TickRate is the fixed control rate in Hz. Zero means DefaultTickRate.
	TickRate float64

	// PoseEvery streams wheel poses every N ticks. Zero records every tick.
	PoseEvery uint64

	tick fleet.SafeCounter
}

// Tick returns the current tick number.
func (r *Runner) Tick() uint64 { return r.tick.Value() }

func (r *Runner) dt() float64 {
	if r.TickRate <= 0 {
		return 1.0 / DefaultTickRate
	}
	return 1.0 / r.TickRate
}

// EventFunc returns the controller event sink for one vehicle. Events are
// stamped with the tick they occurred on and forwarded to storage.
func (r *Runner) EventFunc(vehicleID uint16) drive.EventFunc {
	return func(kind, detail string) {
		ev := &core.DriveEvent{
			VehicleID: vehicleID,
			Time:      time.Now(),
			Tick:      r.tick.Value(),
			Kind:      kind,
			Detail:    detail,
		}
		if r.Backend != nil {
			if err := r.Backend.RecordDriveEvent(ev); err != nil {
				r.Log.Error("recording drive event", "vehicle", vehicleID, "error", err)
			}
		}
		if r.Influx != nil {
			if err := r.Influx.WriteDriveEvent(context.Background(), ev); err != nil {
				r.Log.Error("writing drive event to influx", "vehicle", vehicleID, "error", err)
			}
		}
	}
}

// Step advances every vehicle by one fixed tick and records telemetry.
func (r *Runner) Step() error {
	dt := r.dt()
	r.tick.Inc()
	tick := r.tick.Value()
	now := time.Now()

	for _, v := range r.Registry.All() {
		v.Controller.OnVariableTick(dt)
		v.Controller.OnFixedTick(dt)
		v.Rig.Step(dt)

		snap := v.Controller.Snapshot()
		snap.VehicleID = v.ID
		snap.Time = now
		snap.Tick = tick

		if r.Backend != nil {
			if err := r.Backend.RecordVehicleState(&snap); err != nil {
				return fmt.Errorf("recording vehicle %d state: %w", v.ID, err)
			}
			if r.PoseEvery == 0 || tick%r.PoseEvery == 0 {
				if err := r.Backend.RecordWheelPoses(v.ID, tick, v.Controller.Wheels().Poses()); err != nil {
					return fmt.Errorf("recording vehicle %d wheel poses: %w", v.ID, err)
				}
			}
		}
		if r.Influx != nil {
			if err := r.Influx.WriteVehicleState(context.Background(), &snap); err != nil {
				r.Log.Error("writing vehicle state to influx", "vehicle", v.ID, "error", err)
			}
		}
	}
	return nil
}

// Settled reports whether every vehicle with no active pursuit is parked.
// A fleet with a pursuit still running is not settled.
func (r *Runner) Settled() bool {
	for _, v := range r.Registry.All() {
		if v.Controller.HasDestination() {
			return false
		}
		if !v.Controller.HandbrakeEngaged() {
			return false
		}
	}
	return true
}

// Run steps the fleet until every pursuit has parked or maxTicks elapse.
// Returns the number of ticks executed and whether the fleet settled.
func (r *Runner) Run(maxTicks uint64) (uint64, bool, error) {
	start := r.tick.Value()
	for i := uint64(0); i < maxTicks; i++ {
		if err := r.Step(); err != nil {
			return r.tick.Value() - start, false, err
		}
		if r.Settled() {
			return r.tick.Value() - start, true, nil
		}
	}
	return r.tick.Value() - start, r.Settled(), nil
}

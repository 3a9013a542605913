// Package drive implements the per-vehicle motion controller: a four-mode
// state machine that tracks a planned corner sequence toward a destination,
// computing per-wheel motor torque, brake torque, and steer angle every
// fixed tick.
package drive

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/groundctl/autodrive/internal/config"
	"github.com/groundctl/autodrive/internal/geo"
	"github.com/groundctl/autodrive/internal/nav"
	"github.com/groundctl/autodrive/pkg/core"
)

// EventFunc receives discrete controller occurrences (mode changes,
// accepted destinations, arrivals) for recording. May be nil.
type EventFunc func(kind, detail string)

// Controller drives one vehicle. It owns the mode state machine, steer
// state, handbrake, and waypoint cursor exclusively; the physics body is
// external and only read/commanded. All methods run on the tick goroutine;
// the controller is not safe for concurrent use.
type Controller struct {
	cfg     config.DriveConfig
	body    Body
	planner nav.Planner
	log     *slog.Logger
	emit    EventFunc

	mode      Mode
	modeTimer float64
	steerDeg  float64

	tracker   Tracker
	handbrake *Handbrake
	wheels    *Wheels

	dest        core.Position3D
	hasDest     bool
	enabled     bool
	sinceReplan float64

	// last commanded actuation, for snapshots
	motorNm float64
	brakeNm float64

	ticks        metric.Int64Counter
	transitions  metric.Int64Counter
	destinations metric.Int64Counter
	replans      metric.Int64Counter
}

// NewController constructs a controller in its safe defaults: Forward mode,
// zero steer, handbrake released, no destination, drive enabled.
func NewController(cfg config.DriveConfig, body Body, planner nav.Planner, log *slog.Logger, emit EventFunc) (*Controller, error) {
	cfg.Normalize()
	c := &Controller{
		cfg:       cfg,
		body:      body,
		planner:   planner,
		log:       log,
		emit:      emit,
		mode:      ModeForward,
		handbrake: NewHandbrake(cfg.HandbrakeTorque),
		wheels:    NewWheels(),
		enabled:   true,
	}

	m := meter()
	var err error
	if c.ticks, err = m.Int64Counter("drive.ticks",
		metric.WithDescription("Fixed control ticks processed")); err != nil {
		return nil, fmt.Errorf("creating tick counter: %w", err)
	}
	if c.transitions, err = m.Int64Counter("drive.mode.transitions",
		metric.WithDescription("Mode state machine transitions")); err != nil {
		return nil, fmt.Errorf("creating transition counter: %w", err)
	}
	if c.destinations, err = m.Int64Counter("drive.destinations",
		metric.WithDescription("Destination requests accepted")); err != nil {
		return nil, fmt.Errorf("creating destination counter: %w", err)
	}
	if c.replans, err = m.Int64Counter("drive.replans",
		metric.WithDescription("Planner calls issued")); err != nil {
		return nil, fmt.Errorf("creating replan counter: %w", err)
	}

	return c, nil
}

// Mode returns the active mode.
func (c *Controller) Mode() Mode { return c.mode }

// SteerDeg returns the current steer angle.
func (c *Controller) SteerDeg() float64 { return c.steerDeg }

// HasDestination reports whether a pursuit is active.
func (c *Controller) HasDestination() bool { return c.hasDest }

// Destination returns the active destination; meaningful only while
// HasDestination is true.
func (c *Controller) Destination() core.Position3D { return c.dest }

// HandbrakeEngaged reports the handbrake state.
func (c *Controller) HandbrakeEngaged() bool { return c.handbrake.Engaged() }

// Wheels exposes the wheel actuator for pose streaming.
func (c *Controller) Wheels() *Wheels { return c.wheels }

// SetDriveEnabled gates the controller. While disabled every actuation
// command is zero torque and zero steer and no state transitions occur:
// a pass-through suspend, not an error. An engaged handbrake is the one
// exception and keeps holding the body.
func (c *Controller) SetDriveEnabled(enabled bool) {
	c.enabled = enabled
}

// DriveEnabled reports the external enable toggle.
func (c *Controller) DriveEnabled() bool { return c.enabled }

// RequestDestination accepts a new pursuit. The point is snapped onto the
// navigable surface when possible; an unsnappable point degrades to direct
// driving toward the raw request. Exactly one destination is active at a
// time: the previous pursuit, its corners, and an engaged handbrake are all
// replaced within this call, and the driving mode is re-derived from the
// current heading. Returns false while drive is disabled.
func (c *Controller) RequestDestination(p core.Position3D) bool {
	if !c.enabled {
		c.log.Debug("destination rejected, drive disabled")
		return false
	}

	target, ok := c.planner.SampleNearestPoint(p, c.cfg.SnapDistance)
	if !ok {
		// off-surface request: direct-line fallback toward the raw point
		target = p
	}

	c.handbrake.Release(c.body)
	c.dest = target
	c.hasDest = true
	c.plan()
	c.sinceReplan = 0

	// Leaving ArriveHold re-derives the direction from the current heading.
	// A request mid-drive keeps the active mode: a direction flip must pass
	// through StopToSwitch like any other, on the next fixed tick.
	if c.mode == ModeArriveHold {
		err := geo.HeadingErrorDeg(c.body.YawDeg(), c.body.Position(), c.tracker.Target(c.dest))
		c.setMode(c.classify(err))
	}
	// a fresh run gets its kick window even when the mode did not change
	c.modeTimer = 0

	c.destinations.Add(context.Background(), 1)
	c.event(core.EventDestination, fmt.Sprintf("%.1f,%.1f,%.1f", target.X, target.Y, target.Z))
	c.log.Info("destination accepted", "x", target.X, "y", target.Y, "snapped", ok)
	return true
}

// OnVariableTick samples input-side work: throttled replanning. Replanning
// cost is bounded by the configured minimum interval rather than running
// every tick.
func (c *Controller) OnVariableTick(dt float64) {
	if !c.enabled || !c.hasDest || c.mode == ModeArriveHold {
		return
	}
	c.sinceReplan += dt
	if c.sinceReplan < c.cfg.ReplanInterval {
		return
	}
	c.sinceReplan = 0
	c.replan()
}

// plan issues the initial planner call for a brand-new destination. Total
// planner failure falls back to direct-line driving (empty corners).
func (c *Controller) plan() {
	path := c.planner.ComputePath(c.body.Position(), c.dest)
	c.replans.Add(context.Background(), 1)
	switch {
	case path.Status == nav.PathValid,
		path.Status == nav.PathPartial && c.cfg.AllowPartialPaths:
		c.tracker.Replace(path.Corners, c.body.Position(), c.cfg.WaypointReach)
	default:
		c.tracker.Clear()
		c.log.Warn("planner returned no usable path, driving direct", "status", path.Status.String())
	}
}

// replan refreshes the corner sequence mid-pursuit. Unlike the initial
// plan, an Invalid result leaves the existing corners untouched: no silent
// downgrade to pathless driving while a usable plan is in hand.
func (c *Controller) replan() {
	path := c.planner.ComputePath(c.body.Position(), c.dest)
	c.replans.Add(context.Background(), 1)
	switch path.Status {
	case nav.PathValid:
	case nav.PathPartial:
		if !c.cfg.AllowPartialPaths {
			return
		}
	default:
		return
	}
	c.tracker.Replace(path.Corners, c.body.Position(), c.cfg.WaypointReach)
	c.event(core.EventPlanReplace, fmt.Sprintf("corners=%d", len(path.Corners)))
}

// OnFixedTick runs the full control pipeline: tracker advance, heading
// evaluation, mode state machine, speed and steering laws, wheel actuation,
// and visual pose sync.
func (c *Controller) OnFixedTick(dt float64) {
	if !c.enabled {
		// an engaged handbrake keeps its hold across a disable
		if !c.handbrake.Engaged() {
			c.applyActuation(0, 0, 0)
		}
		c.wheels.SyncPoses(c.body, c.cfg.WheelYawOffsetDeg)
		return
	}

	c.ticks.Add(context.Background(), 1)
	c.modeTimer += dt

	if !c.hasDest {
		// parked or idle: the handbrake (if engaged) owns the brakes
		if !c.handbrake.Engaged() {
			c.applyActuation(0, 0, c.steerDeg)
		}
		c.wheels.SyncPoses(c.body, c.cfg.WheelYawOffsetDeg)
		return
	}

	pos := c.body.Position()
	c.tracker.Advance(pos, c.cfg.WaypointReach)
	target := c.tracker.Target(c.dest)
	headingErr := geo.HeadingErrorDeg(c.body.YawDeg(), pos, target)
	speed := c.body.ForwardSpeed()

	if c.mode != ModeArriveHold &&
		c.tracker.FinalLeg() &&
		pos.PlanarDistanceTo(c.dest) <= c.cfg.StopDistance {
		c.setMode(ModeArriveHold)
	}

	var motorNm, brakeNm float64

	switch c.mode {
	case ModeForward, ModeReverse:
		indicated := c.classify(headingErr)
		if indicated != c.mode {
			c.setMode(ModeStopToSwitch)
			motorNm, brakeNm = c.stopToSwitchTorques(speed)
		} else {
			motorNm, brakeNm = c.driveTorques(headingErr, speed, pos)
			c.updateSteer(headingErr, dt)
		}

	case ModeStopToSwitch:
		motorNm, brakeNm = c.stopToSwitchTorques(speed)
		if math.Abs(speed) <= c.cfg.StopSpeedEps {
			brakeNm = 0
			c.setMode(c.classify(headingErr))
		}

	case ModeArriveHold:
		motorNm, brakeNm = 0, c.cfg.MaxBrakeTorque
		if math.Abs(speed) <= c.cfg.StopSpeedEps {
			c.park()
			c.wheels.SyncPoses(c.body, c.cfg.WheelYawOffsetDeg)
			return
		}
	}

	c.applyActuation(motorNm, brakeNm, c.steerDeg)
	c.wheels.SyncPoses(c.body, c.cfg.WheelYawOffsetDeg)
}

// classify maps a heading error to the driving direction: Forward when the
// magnitude is within the split angle, Reverse beyond it.
func (c *Controller) classify(headingErrDeg float64) Mode {
	if math.Abs(headingErrDeg) <= c.cfg.SplitAngleDeg {
		return ModeForward
	}
	return ModeReverse
}

// brakeSaturationSpeed is the overspeed beyond the allowed speed at which
// braking reaches full torque. It must stay small relative to the speed
// range: the final-leg bound falls continuously, and the approach rides
// above it by roughly the overspeed needed to hold the bound's
// deceleration.
const brakeSaturationSpeed = 0.5 // m/s

// driveTorques runs the speed law for Forward/Reverse. On the final leg the
// allowed speed is capped by the kinematic braking bound
// sqrt(2*decel*(remaining-stopDistance)) so the vehicle reaches the stop
// band at roughly zero speed instead of overshooting and backing up.
func (c *Controller) driveTorques(headingErrDeg, speed float64, pos core.Position3D) (motorNm, brakeNm float64) {
	allowed := c.cfg.MaxSpeed
	finalLeg := c.tracker.FinalLeg()
	if finalLeg {
		remaining := pos.PlanarDistanceTo(c.dest)
		braking := math.Sqrt(2 * c.cfg.ApproachDecel * math.Max(0, remaining-c.cfg.StopDistance))
		allowed = math.Min(allowed, braking)
	}

	projected := speed
	if c.mode == ModeReverse {
		projected = -speed
	}
	speedErr := allowed - projected

	switch {
	case speedErr > c.cfg.TorqueDeadband:
		frac := geo.Clamp(speedErr/c.cfg.MaxSpeed, 0, 1)
		if !finalLeg && c.modeTimer < c.cfg.KickDuration {
			frac *= c.cfg.KickFactor
		}
		motorNm = frac * c.cfg.MaxMotorTorque
		if c.mode == ModeReverse {
			motorNm = -motorNm
		}
	case speedErr < -c.cfg.TorqueDeadband:
		frac := geo.Clamp(-speedErr/brakeSaturationSpeed, 0, 1)
		brakeNm = frac * c.cfg.MaxBrakeTorque
	}
	// inside the deadband: coast
	return motorNm, brakeNm
}

// stopToSwitchTorques brakes proportionally to the current speed fraction,
// decelerating without instability before a direction change.
func (c *Controller) stopToSwitchTorques(speed float64) (motorNm, brakeNm float64) {
	frac := geo.Clamp(math.Abs(speed)/c.cfg.MaxSpeed, 0, 1)
	return 0, frac * c.cfg.MaxBrakeTorque
}

// updateSteer rate-limits the steer angle toward the clamped heading error.
func (c *Controller) updateSteer(headingErrDeg, dt float64) {
	target := geo.Clamp(headingErrDeg, -c.cfg.MaxSteerAngleDeg, c.cfg.MaxSteerAngleDeg)
	maxDelta := c.cfg.SteerRateDeg * dt
	delta := geo.Clamp(target-c.steerDeg, -maxDelta, maxDelta)
	c.steerDeg = geo.Clamp(c.steerDeg+delta, -c.cfg.MaxSteerAngleDeg, c.cfg.MaxSteerAngleDeg)
}

// park completes ArriveHold: engage the handbrake, clear the destination
// and corners. The mode stays ArriveHold until the next accepted request.
func (c *Controller) park() {
	c.handbrake.Engage(c.body, c.cfg.LockOnArrive)
	c.motorNm = 0
	c.brakeNm = c.cfg.HandbrakeTorque
	c.hasDest = false
	c.tracker.Clear()
	c.event(core.EventArrived, "")
	c.event(core.EventHandbrake, "engaged")
	c.log.Info("arrived, handbrake engaged", "x", c.body.Position().X, "y", c.body.Position().Y)
}

func (c *Controller) setMode(m Mode) {
	if m == c.mode {
		return
	}
	prev := c.mode
	c.mode = m
	c.modeTimer = 0
	c.transitions.Add(context.Background(), 1,
		metric.WithAttributes(attribute.String("mode", m.String())))
	c.event(core.EventModeChange, fmt.Sprintf("%s->%s", prev, m))
	c.log.Debug("mode transition", "from", prev.String(), "to", m.String())
}

func (c *Controller) applyActuation(motorNm, brakeNm, steerDeg float64) {
	c.motorNm = motorNm
	c.brakeNm = brakeNm
	c.wheels.Apply(c.body, motorNm, brakeNm, steerDeg)
}

func (c *Controller) event(kind, detail string) {
	if c.emit != nil {
		c.emit(kind, detail)
	}
}

// Snapshot captures the controller and body state for recording.
func (c *Controller) Snapshot() core.VehicleState {
	return core.VehicleState{
		Position:      c.body.Position(),
		YawDeg:        c.body.YawDeg(),
		Speed:         c.body.ForwardSpeed(),
		Mode:          c.mode.String(),
		SteerDeg:      c.steerDeg,
		MotorTorque:   c.motorNm,
		BrakeTorque:   c.brakeNm,
		Handbrake:     c.handbrake.Engaged(),
		HasDest:       c.hasDest,
		Destination:   c.dest,
		WaypointsLeft: c.tracker.Remaining(),
	}
}

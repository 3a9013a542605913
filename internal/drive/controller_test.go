package drive

import (
	"io"
	"log/slog"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/groundctl/autodrive/internal/config"
	"github.com/groundctl/autodrive/internal/nav"
	"github.com/groundctl/autodrive/pkg/core"
)

const testDt = 0.02

func testConfig() config.DriveConfig {
	return config.DriveConfig{
		MaxSpeed:          12,
		ApproachDecel:     3,
		StopDistance:      2,
		WaypointReach:     1.5,
		StopSpeedEps:      0.15,
		SplitAngleDeg:     100,
		MaxSteerAngleDeg:  35,
		SteerRateDeg:      90,
		MaxMotorTorque:    450,
		MaxBrakeTorque:    900,
		HandbrakeTorque:   2500,
		TorqueDeadband:    0.25,
		KickFactor:        0.6,
		KickDuration:      0.5,
		ReplanInterval:    0.5,
		SnapDistance:      10,
		AllowPartialPaths: true,
		LockOnArrive:      true,
	}
}

// stubPlanner returns a scripted path and counts planner calls.
type stubPlanner struct {
	path      nav.Path
	planCalls int

	snapTo   *core.Position3D // nil snaps to the queried point itself
	snapFail bool
}

func (p *stubPlanner) ComputePath(start, goal core.Position3D) nav.Path {
	p.planCalls++
	return p.path
}

func (p *stubPlanner) SampleNearestPoint(pt core.Position3D, maxDist float64) (core.Position3D, bool) {
	if p.snapFail {
		return core.Position3D{}, false
	}
	if p.snapTo != nil {
		return *p.snapTo, true
	}
	return pt, true
}

// eventLog collects controller events.
type eventLog struct {
	kinds   []string
	details []string
}

func (l *eventLog) record(kind, detail string) {
	l.kinds = append(l.kinds, kind)
	l.details = append(l.details, detail)
}

func (l *eventLog) has(kind string) bool {
	for _, k := range l.kinds {
		if k == kind {
			return true
		}
	}
	return false
}

func newTestController(t *testing.T, cfg config.DriveConfig, planner nav.Planner) (*Controller, *fakeBody, *eventLog) {
	t.Helper()
	body := newFakeBody()
	events := &eventLog{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	c, err := NewController(cfg, body, planner, logger, events.record)
	require.NoError(t, err)
	return c, body, events
}

func directPlanner() *stubPlanner {
	return &stubPlanner{path: nav.Path{Status: nav.PathValid}}
}

func TestController_StartsInSafeDefaults(t *testing.T) {
	c, _, _ := newTestController(t, testConfig(), directPlanner())

	assert.Equal(t, ModeForward, c.Mode())
	assert.Equal(t, 0.0, c.SteerDeg())
	assert.False(t, c.HasDestination())
	assert.False(t, c.HandbrakeEngaged())
	assert.True(t, c.DriveEnabled())
}

func TestController_RequestRejectedWhileDisabled(t *testing.T) {
	c, _, _ := newTestController(t, testConfig(), directPlanner())

	c.SetDriveEnabled(false)
	ok := c.RequestDestination(core.Position3D{X: 0, Y: 100})

	assert.False(t, ok)
	assert.False(t, c.HasDestination())
}

func TestController_RequestSnapsDestination(t *testing.T) {
	planner := directPlanner()
	planner.snapTo = &core.Position3D{X: 4, Y: 96}
	c, _, _ := newTestController(t, testConfig(), planner)

	ok := c.RequestDestination(core.Position3D{X: 0, Y: 100})

	require.True(t, ok)
	assert.Equal(t, core.Position3D{X: 4, Y: 96}, c.Destination())
}

func TestController_UnsnappableRequestDegradesToRawPoint(t *testing.T) {
	planner := directPlanner()
	planner.snapFail = true
	c, _, _ := newTestController(t, testConfig(), planner)

	raw := core.Position3D{X: 33, Y: 44}
	require.True(t, c.RequestDestination(raw))
	assert.Equal(t, raw, c.Destination())
}

func TestController_ForwardDriveAppliesMotorTorque(t *testing.T) {
	c, body, _ := newTestController(t, testConfig(), directPlanner())
	require.True(t, c.RequestDestination(core.Position3D{X: 0, Y: 100}))

	c.OnFixedTick(testDt)

	snap := c.Snapshot()
	assert.Equal(t, ModeForward, c.Mode())
	assert.Greater(t, snap.MotorTorque, 0.0)
	assert.Equal(t, 0.0, snap.BrakeTorque)
	for i := core.WheelIndex(0); i < core.WheelCount; i++ {
		assert.Equal(t, snap.MotorTorque, body.motor[i], "wheel %s", i)
	}
}

func TestController_MotorAndBrakeAreExclusive(t *testing.T) {
	c, body, _ := newTestController(t, testConfig(), directPlanner())
	require.True(t, c.RequestDestination(core.Position3D{X: 0, Y: 200}))

	for _, speed := range []float64{0, 2, 6, 11.9, 12.1, 15, 3, 0.1} {
		body.speed = speed
		c.OnFixedTick(testDt)
		snap := c.Snapshot()
		assert.False(t, snap.MotorTorque != 0 && snap.BrakeTorque != 0,
			"speed %.1f: motor %.1f and brake %.1f both nonzero", speed, snap.MotorTorque, snap.BrakeTorque)
	}
}

func TestController_DeadbandCoasts(t *testing.T) {
	c, body, _ := newTestController(t, testConfig(), directPlanner())
	require.True(t, c.RequestDestination(core.Position3D{X: 0, Y: 1000}))

	// Allowed speed on a 1000m leg is MaxSpeed; a speed just inside the
	// deadband commands neither motor nor brake.
	body.speed = 11.9
	c.OnFixedTick(testDt)

	snap := c.Snapshot()
	assert.Equal(t, 0.0, snap.MotorTorque)
	assert.Equal(t, 0.0, snap.BrakeTorque)
}

func TestController_FinalLegBrakingBound(t *testing.T) {
	cfg := testConfig()
	c, body, _ := newTestController(t, cfg, directPlanner())
	require.True(t, c.RequestDestination(core.Position3D{X: 0, Y: 10}))

	// Allowed speed 10m out is sqrt(2*3*(10-2)) ~ 6.93 m/s. Driving at
	// 10 m/s must brake, never add torque; that far over the bound the
	// brake is saturated at full torque.
	body.speed = 10
	c.OnFixedTick(testDt)

	snap := c.Snapshot()
	assert.Equal(t, 0.0, snap.MotorTorque)
	assert.Equal(t, cfg.MaxBrakeTorque, snap.BrakeTorque)

	// A small overspeed brakes proportionally to its fraction of the
	// saturation band.
	allowed := math.Sqrt(2 * cfg.ApproachDecel * (10 - cfg.StopDistance))
	body.speed = allowed + 0.4
	c.OnFixedTick(testDt)
	assert.InDelta(t, 0.4/brakeSaturationSpeed*cfg.MaxBrakeTorque, c.Snapshot().BrakeTorque, 1e-9)
}

func TestController_StopBandEntersArriveHold(t *testing.T) {
	cfg := testConfig()
	c, body, _ := newTestController(t, cfg, directPlanner())
	require.True(t, c.RequestDestination(core.Position3D{X: 0, Y: 100}))

	// Rolling into the stop band on the final leg switches to ArriveHold
	// and commands full brake, regardless of the speed law.
	body.pos = core.Position3D{X: 0, Y: 98.5}
	body.speed = 1
	c.OnFixedTick(testDt)

	snap := c.Snapshot()
	assert.Equal(t, ModeArriveHold, c.Mode())
	assert.Equal(t, 0.0, snap.MotorTorque)
	assert.Equal(t, cfg.MaxBrakeTorque, snap.BrakeTorque)
}

func TestController_KickWindowScalesTorque(t *testing.T) {
	cfg := testConfig()
	planner := &stubPlanner{path: nav.Path{
		Status: nav.PathValid,
		Corners: []core.Position3D{
			{X: 0, Y: 50},
			{X: 0, Y: 100},
			{X: 0, Y: 150},
		},
	}}
	c, body, _ := newTestController(t, cfg, planner)
	require.True(t, c.RequestDestination(core.Position3D{X: 0, Y: 150}))

	// Standing start inside the kick window, not on the final leg.
	c.OnFixedTick(testDt)
	snap := c.Snapshot()
	assert.InDelta(t, cfg.KickFactor*cfg.MaxMotorTorque, snap.MotorTorque, 1e-9)

	// Past the kick window the full fraction applies.
	for c.modeTimer < cfg.KickDuration {
		body.speed = 0
		c.OnFixedTick(testDt)
	}
	body.speed = 0
	c.OnFixedTick(testDt)
	snap = c.Snapshot()
	assert.InDelta(t, cfg.MaxMotorTorque, snap.MotorTorque, 1e-9)
}

func TestController_SteerIsRateLimitedAndBounded(t *testing.T) {
	cfg := testConfig()
	c, body, _ := newTestController(t, cfg, directPlanner())
	// Target due east while facing north: heading error +90.
	require.True(t, c.RequestDestination(core.Position3D{X: 100, Y: 0}))

	c.OnFixedTick(testDt)
	assert.InDelta(t, cfg.SteerRateDeg*testDt, c.SteerDeg(), 1e-9,
		"one tick advances steer by at most rate*dt")

	c.OnFixedTick(testDt)
	assert.InDelta(t, 2*cfg.SteerRateDeg*testDt, c.SteerDeg(), 1e-9)

	for i := 0; i < 200; i++ {
		c.OnFixedTick(testDt)
	}
	assert.LessOrEqual(t, c.SteerDeg(), cfg.MaxSteerAngleDeg)
	assert.InDelta(t, cfg.MaxSteerAngleDeg, c.SteerDeg(), 1e-9,
		"a 90 degree error saturates at the steer bound")
	assert.Equal(t, c.SteerDeg(), body.steer[core.WheelFL])
}

func TestController_ArrivalParksAndClearsDestination(t *testing.T) {
	c, body, events := newTestController(t, testConfig(), directPlanner())
	require.True(t, c.RequestDestination(core.Position3D{X: 0, Y: 1}))

	// Within stop distance at stand-still: ArriveHold and park on one tick.
	c.OnFixedTick(testDt)

	assert.Equal(t, ModeArriveHold, c.Mode())
	assert.False(t, c.HasDestination())
	assert.True(t, c.HandbrakeEngaged())
	assert.Equal(t, FreedomNone, body.Freedom())
	assert.True(t, events.has(core.EventArrived))
	assert.True(t, events.has(core.EventHandbrake))

	snap := c.Snapshot()
	assert.Equal(t, 0.0, snap.MotorTorque)
	assert.True(t, snap.Handbrake)
}

func TestController_ArriveHoldBrakesUntilStopped(t *testing.T) {
	cfg := testConfig()
	c, body, _ := newTestController(t, cfg, directPlanner())
	require.True(t, c.RequestDestination(core.Position3D{X: 0, Y: 1.5}))

	// Rolls into the stop band too fast to park immediately.
	body.speed = 2
	c.OnFixedTick(testDt)

	assert.Equal(t, ModeArriveHold, c.Mode())
	assert.True(t, c.HasDestination(), "still braking, not parked")
	assert.False(t, c.HandbrakeEngaged())
	assert.Equal(t, cfg.MaxBrakeTorque, c.Snapshot().BrakeTorque)

	// Once slowed under the epsilon the next tick parks.
	body.speed = 0.1
	c.OnFixedTick(testDt)
	assert.True(t, c.HandbrakeEngaged())
	assert.False(t, c.HasDestination())
}

func TestController_RequestFromArriveHoldRederivesMode(t *testing.T) {
	c, _, _ := newTestController(t, testConfig(), directPlanner())
	require.True(t, c.RequestDestination(core.Position3D{X: 0, Y: 1}))
	c.OnFixedTick(testDt)
	require.True(t, c.HandbrakeEngaged())

	// New destination directly behind: leaving ArriveHold classifies from
	// the current heading, without waiting for a fixed tick.
	require.True(t, c.RequestDestination(core.Position3D{X: 0, Y: -50}))

	assert.Equal(t, ModeReverse, c.Mode())
	assert.False(t, c.HandbrakeEngaged())
	assert.True(t, c.HasDestination())
}

func TestController_DirectionFlipPassesThroughStopToSwitch(t *testing.T) {
	c, body, events := newTestController(t, testConfig(), directPlanner())
	require.True(t, c.RequestDestination(core.Position3D{X: 0, Y: 100}))

	body.speed = 5
	c.OnFixedTick(testDt)
	require.Equal(t, ModeForward, c.Mode())

	// Mid-drive request behind the vehicle keeps Forward until the tick
	// pipeline routes the flip through StopToSwitch.
	require.True(t, c.RequestDestination(core.Position3D{X: 0, Y: -100}))
	assert.Equal(t, ModeForward, c.Mode())

	c.OnFixedTick(testDt)
	assert.Equal(t, ModeStopToSwitch, c.Mode())
	snap := c.Snapshot()
	assert.Equal(t, 0.0, snap.MotorTorque)
	assert.Greater(t, snap.BrakeTorque, 0.0, "braking scales with speed")

	// Still rolling: keep braking.
	body.speed = 3
	c.OnFixedTick(testDt)
	assert.Equal(t, ModeStopToSwitch, c.Mode())

	// Stopped: reclassify toward the new target and release the brake.
	body.speed = 0.05
	c.OnFixedTick(testDt)
	assert.Equal(t, ModeReverse, c.Mode())
	assert.Equal(t, 0.0, c.Snapshot().BrakeTorque)

	// Reverse drive commands negative motor torque.
	body.speed = 0
	c.OnFixedTick(testDt)
	assert.Less(t, c.Snapshot().MotorTorque, 0.0)

	assert.True(t, events.has(core.EventModeChange))
}

func TestController_ReverseApproachUsesSameBrakingBound(t *testing.T) {
	cfg := testConfig()
	c, body, _ := newTestController(t, cfg, directPlanner())
	body.yawDeg = 0
	require.True(t, c.RequestDestination(core.Position3D{X: 0, Y: -10}))

	// Force the reverse classification.
	c.OnFixedTick(testDt)
	require.Equal(t, ModeStopToSwitch, c.Mode())
	c.OnFixedTick(testDt)
	require.Equal(t, ModeReverse, c.Mode())

	// Rolling backward too fast for the approach bound: brake.
	body.speed = -10
	c.OnFixedTick(testDt)
	snap := c.Snapshot()
	assert.Equal(t, 0.0, snap.MotorTorque)
	assert.Greater(t, snap.BrakeTorque, 0.0)
}

func TestController_DisabledIsPassThrough(t *testing.T) {
	c, body, _ := newTestController(t, testConfig(), directPlanner())
	require.True(t, c.RequestDestination(core.Position3D{X: 0, Y: 100}))
	c.OnFixedTick(testDt)
	require.Greater(t, c.Snapshot().MotorTorque, 0.0)

	c.SetDriveEnabled(false)
	body.speed = 6
	c.OnFixedTick(testDt)

	snap := c.Snapshot()
	assert.Equal(t, 0.0, snap.MotorTorque)
	assert.Equal(t, 0.0, snap.BrakeTorque)
	for i := core.WheelIndex(0); i < core.WheelCount; i++ {
		assert.Equal(t, 0.0, body.motor[i])
		assert.Equal(t, 0.0, body.brake[i])
	}
	assert.Equal(t, ModeForward, c.Mode(), "no transitions while disabled")
	assert.True(t, c.HasDestination(), "pursuit state survives the suspend")
}

func TestController_DisableKeepsParkedHandbrake(t *testing.T) {
	cfg := testConfig()
	cfg.LockOnArrive = false
	c, body, _ := newTestController(t, cfg, directPlanner())
	require.True(t, c.RequestDestination(core.Position3D{X: 0, Y: 1}))
	c.OnFixedTick(testDt)
	require.True(t, c.HandbrakeEngaged())

	// Suspending drive must not bleed off the parking brake.
	c.SetDriveEnabled(false)
	c.OnFixedTick(testDt)

	assert.True(t, c.HandbrakeEngaged())
	for i := core.WheelIndex(0); i < core.WheelCount; i++ {
		assert.Equal(t, cfg.HandbrakeTorque, body.brake[i], "wheel %s", i)
	}

	// The hold survives the resume too: an idle parked vehicle leaves the
	// brakes to the handbrake.
	c.SetDriveEnabled(true)
	c.OnFixedTick(testDt)
	assert.True(t, c.HandbrakeEngaged())
	for i := core.WheelIndex(0); i < core.WheelCount; i++ {
		assert.Equal(t, cfg.HandbrakeTorque, body.brake[i], "wheel %s", i)
	}
}

func TestController_VariableTickThrottlesReplanning(t *testing.T) {
	cfg := testConfig()
	planner := directPlanner()
	c, _, _ := newTestController(t, cfg, planner)
	require.True(t, c.RequestDestination(core.Position3D{X: 0, Y: 100}))
	require.Equal(t, 1, planner.planCalls, "initial plan")

	for i := 0; i < 4; i++ {
		c.OnVariableTick(0.1)
	}
	assert.Equal(t, 1, planner.planCalls, "interval not yet elapsed")

	c.OnVariableTick(0.1)
	assert.Equal(t, 2, planner.planCalls)

	c.OnVariableTick(0.1)
	assert.Equal(t, 2, planner.planCalls, "interval resets after a replan")
}

func TestController_ReplanInvalidKeepsExistingCorners(t *testing.T) {
	planner := &stubPlanner{path: nav.Path{
		Status: nav.PathValid,
		Corners: []core.Position3D{
			{X: 0, Y: 50},
			{X: 0, Y: 100},
		},
	}}
	c, _, _ := newTestController(t, testConfig(), planner)
	require.True(t, c.RequestDestination(core.Position3D{X: 0, Y: 100}))
	require.Equal(t, 2, c.Snapshot().WaypointsLeft)

	// Planner degrades mid-pursuit; the plan in hand stays.
	planner.path = nav.Path{Status: nav.PathInvalid}
	c.OnVariableTick(1.0)

	assert.Equal(t, 2, planner.planCalls)
	assert.Equal(t, 2, c.Snapshot().WaypointsLeft)
}

func TestController_InitialPlanInvalidFallsBackToDirect(t *testing.T) {
	planner := &stubPlanner{path: nav.Path{Status: nav.PathInvalid}}
	c, _, _ := newTestController(t, testConfig(), planner)

	require.True(t, c.RequestDestination(core.Position3D{X: 0, Y: 100}))

	assert.Equal(t, 0, c.Snapshot().WaypointsLeft, "no corners, driving direct")
	c.OnFixedTick(testDt)
	assert.Greater(t, c.Snapshot().MotorTorque, 0.0)
}

func TestController_PartialPathGate(t *testing.T) {
	partial := nav.Path{
		Status:  nav.PathPartial,
		Corners: []core.Position3D{{X: 0, Y: 50}},
	}

	cfg := testConfig()
	cfg.AllowPartialPaths = false
	planner := &stubPlanner{path: partial}
	c, _, _ := newTestController(t, cfg, planner)
	require.True(t, c.RequestDestination(core.Position3D{X: 0, Y: 100}))
	assert.Equal(t, 0, c.Snapshot().WaypointsLeft, "partial rejected")

	cfg.AllowPartialPaths = true
	planner2 := &stubPlanner{path: partial}
	c2, _, _ := newTestController(t, cfg, planner2)
	require.True(t, c2.RequestDestination(core.Position3D{X: 0, Y: 100}))
	assert.Equal(t, 1, c2.Snapshot().WaypointsLeft, "partial accepted")
}

func TestController_ReplacingDestinationMidDrive(t *testing.T) {
	c, _, events := newTestController(t, testConfig(), directPlanner())
	require.True(t, c.RequestDestination(core.Position3D{X: 0, Y: 100}))
	require.True(t, c.RequestDestination(core.Position3D{X: 50, Y: 0}))

	assert.Equal(t, core.Position3D{X: 50, Y: 0}, c.Destination(),
		"exactly one destination is active")
	assert.True(t, events.has(core.EventDestination))
}

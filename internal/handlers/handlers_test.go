package handlers

import (
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"

	"github.com/groundctl/autodrive/internal/config"
	"github.com/groundctl/autodrive/internal/dispatcher"
	"github.com/groundctl/autodrive/internal/drive"
	"github.com/groundctl/autodrive/internal/fleet"
	"github.com/groundctl/autodrive/internal/logging"
	"github.com/groundctl/autodrive/internal/nav"
	"github.com/groundctl/autodrive/internal/physics"
	"github.com/groundctl/autodrive/internal/session"
	"github.com/groundctl/autodrive/internal/storage"
	"github.com/groundctl/autodrive/pkg/core"
)

// mockBackend implements storage.Backend for testing
type mockBackend struct {
	sessionStarted bool
	sessionEnded   bool
	startedSession *core.DriveSession
}

func (b *mockBackend) Init() error  { return nil }
func (b *mockBackend) Close() error { return nil }

func (b *mockBackend) StartSession(s *core.DriveSession) error {
	b.sessionStarted = true
	b.startedSession = s
	return nil
}

func (b *mockBackend) EndSession() error {
	b.sessionEnded = true
	return nil
}

func (b *mockBackend) RecordVehicleState(st *core.VehicleState) error { return nil }
func (b *mockBackend) RecordDriveEvent(e *core.DriveEvent) error      { return nil }
func (b *mockBackend) RecordWheelPoses(vehicleID uint16, tick uint64, poses [core.WheelCount]core.WheelPose) error {
	return nil
}

var _ storage.Backend = (*mockBackend)(nil)

func testDriveConfig() config.DriveConfig {
	cfg := config.DriveConfig{
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
	cfg.Normalize()
	return cfg
}

func newTestService(t *testing.T) (*Service, *fleet.Registry) {
	t.Helper()

	logManager := logging.NewSlogManager()
	registry := fleet.NewRegistry()

	rig := physics.NewRig(physics.DefaultRigConfig(), core.Position3D{X: 100, Y: 100}, 0)
	ctrl, err := drive.NewController(testDriveConfig(), rig, nav.DirectPlanner{}, logManager.VehicleLogger(1), nil)
	if err != nil {
		t.Fatalf("failed to create controller: %v", err)
	}
	registry.Add(&fleet.Vehicle{ID: 1, Name: "testbed", Controller: ctrl, Rig: rig})

	deps := Dependencies{
		Registry:   registry,
		LogManager: logManager,
		Session:    session.NewContext(),
	}
	return NewService(deps), registry
}

func TestSetBackend(t *testing.T) {
	svc, _ := newTestService(t)

	backend := &mockBackend{}
	svc.SetBackend(backend)

	if svc.backend == nil {
		t.Error("expected backend to be set")
	}
}

func TestRegisterHandlers(t *testing.T) {
	svc, _ := newTestService(t)

	d, err := dispatcher.New(logging.NewDispatcherLogger(zerolog.Nop()))
	if err != nil {
		t.Fatal(err)
	}
	svc.RegisterHandlers(d)

	for _, cmd := range []string{
		":DRIVE:GOTO:", ":DRIVE:ENABLE:", ":DRIVE:DISABLE:",
		":DRIVE:STATUS:", ":NEW:SESSION:", ":END:SESSION:",
	} {
		if !d.HasHandler(cmd) {
			t.Errorf("expected handler for %s", cmd)
		}
	}
}

func TestHandleGoto_AcceptsDestination(t *testing.T) {
	svc, registry := newTestService(t)

	result, err := svc.handleGoto(dispatcher.Event{
		Command: ":DRIVE:GOTO:",
		Args:    []string{"1", `"150.0,250.0,0.0"`},
	})
	if err != nil {
		t.Fatalf("handleGoto failed: %v", err)
	}
	if result != "OK" {
		t.Errorf("expected OK, got %v", result)
	}

	v, _ := registry.Get(1)
	if !v.Controller.HasDestination() {
		t.Error("expected pursuit to be active")
	}
	dest := v.Controller.Destination()
	if dest.X != 150 || dest.Y != 250 {
		t.Errorf("unexpected destination: %+v", dest)
	}
}

func TestHandleGoto_RejectedWhileDisabled(t *testing.T) {
	svc, registry := newTestService(t)

	v, _ := registry.Get(1)
	v.Controller.SetDriveEnabled(false)

	result, err := svc.handleGoto(dispatcher.Event{
		Args: []string{"1", `"10,10,0"`},
	})
	if err != nil {
		t.Fatalf("handleGoto failed: %v", err)
	}
	if result != "REJECTED" {
		t.Errorf("expected REJECTED, got %v", result)
	}
	if v.Controller.HasDestination() {
		t.Error("disabled controller must not accept a destination")
	}
}

func TestHandleGoto_UnknownVehicle(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.handleGoto(dispatcher.Event{
		Args: []string{"99", `"10,10,0"`},
	})
	if err == nil {
		t.Error("expected error for unknown vehicle")
	}
}

func TestHandleGoto_BadDestination(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.handleGoto(dispatcher.Event{
		Args: []string{"1", `"not,a,position"`},
	})
	if err == nil {
		t.Error("expected error for unparseable destination")
	}

	_, err = svc.handleGoto(dispatcher.Event{Args: []string{"1"}})
	if err == nil {
		t.Error("expected error for missing destination")
	}
}

func TestHandleEnableDisable(t *testing.T) {
	svc, registry := newTestService(t)
	v, _ := registry.Get(1)

	if _, err := svc.handleDisable(dispatcher.Event{Args: []string{"1"}}); err != nil {
		t.Fatalf("handleDisable failed: %v", err)
	}
	if v.Controller.DriveEnabled() {
		t.Error("expected drive disabled")
	}

	if _, err := svc.handleEnable(dispatcher.Event{Args: []string{"1"}}); err != nil {
		t.Fatalf("handleEnable failed: %v", err)
	}
	if !v.Controller.DriveEnabled() {
		t.Error("expected drive enabled")
	}
}

func TestHandleStatus_ReturnsJSON(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.handleGoto(dispatcher.Event{Args: []string{"1", `"150,250,0"`}})
	if err != nil {
		t.Fatal(err)
	}

	result, err := svc.handleStatus(dispatcher.Event{Args: []string{"1"}})
	if err != nil {
		t.Fatalf("handleStatus failed: %v", err)
	}

	var snap core.VehicleState
	if err := json.Unmarshal([]byte(result.(string)), &snap); err != nil {
		t.Fatalf("status is not valid JSON: %v", err)
	}
	if snap.VehicleID != 1 {
		t.Errorf("expected vehicle ID 1, got %d", snap.VehicleID)
	}
	if !snap.HasDest {
		t.Error("expected active pursuit in status")
	}
	if snap.Destination.X != 150 || snap.Destination.Y != 250 {
		t.Errorf("unexpected destination in status: %+v", snap.Destination)
	}
}

func TestHandleNewSession(t *testing.T) {
	svc, _ := newTestService(t)
	backend := &mockBackend{}
	svc.SetBackend(backend)

	result, err := svc.handleNewSession(dispatcher.Event{
		Args: []string{`"Night Run"`, `"proving_ground"`, "50"},
	})
	if err != nil {
		t.Fatalf("handleNewSession failed: %v", err)
	}
	if result != "OK" {
		t.Errorf("expected OK, got %v", result)
	}

	if !backend.sessionStarted {
		t.Error("expected backend session start")
	}
	if backend.startedSession.Name != "Night Run" {
		t.Errorf("unexpected session name %q", backend.startedSession.Name)
	}
	if backend.startedSession.TickRate != 50 {
		t.Errorf("unexpected tick rate %v", backend.startedSession.TickRate)
	}

	sess := svc.deps.Session.Get()
	if sess == nil || sess.WorldName != "proving_ground" {
		t.Error("session context not populated")
	}
}

func TestHandleNewSession_BadArgs(t *testing.T) {
	svc, _ := newTestService(t)

	if _, err := svc.handleNewSession(dispatcher.Event{Args: []string{"only", "two"}}); err == nil {
		t.Error("expected error for missing args")
	}
	if _, err := svc.handleNewSession(dispatcher.Event{Args: []string{"n", "w", "fast"}}); err == nil {
		t.Error("expected error for non-numeric tick rate")
	}
}

func TestHandleEndSession(t *testing.T) {
	svc, _ := newTestService(t)
	backend := &mockBackend{}
	svc.SetBackend(backend)

	result, err := svc.handleEndSession(dispatcher.Event{})
	if err != nil {
		t.Fatalf("handleEndSession failed: %v", err)
	}
	if result != "OK" {
		t.Errorf("expected OK, got %v", result)
	}
	if !backend.sessionEnded {
		t.Error("expected backend session end")
	}
}

func TestHandleEndSession_NoBackend(t *testing.T) {
	svc, _ := newTestService(t)

	if _, err := svc.handleEndSession(dispatcher.Event{}); err != nil {
		t.Errorf("end session without backend should succeed: %v", err)
	}
}

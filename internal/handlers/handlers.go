// Package handlers binds dispatcher commands to the fleet. Collaborators
// address vehicles by ID; every command validates its target before
// touching a controller.
package handlers

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/groundctl/autodrive/internal/dispatcher"
	"github.com/groundctl/autodrive/internal/fleet"
	"github.com/groundctl/autodrive/internal/geo"
	"github.com/groundctl/autodrive/internal/logging"
	"github.com/groundctl/autodrive/internal/session"
	"github.com/groundctl/autodrive/internal/storage"
	"github.com/groundctl/autodrive/pkg/core"
)

// Dependencies holds all dependencies needed by handlers.
type Dependencies struct {
	Registry   *fleet.Registry
	LogManager *logging.SlogManager
	Session    *session.Context
}

// Service provides handler methods for drive commands.
type Service struct {
	deps    Dependencies
	backend storage.Backend
}

// NewService creates a new handler service.
func NewService(deps Dependencies) *Service {
	return &Service{deps: deps}
}

// SetBackend sets the storage backend for session start/end handling.
func (s *Service) SetBackend(b storage.Backend) {
	s.backend = b
}

// RegisterHandlers registers all drive command handlers.
func (s *Service) RegisterHandlers(d *dispatcher.Dispatcher) {
	d.Register(":DRIVE:GOTO:", s.handleGoto, dispatcher.Logged())
	d.Register(":DRIVE:ENABLE:", s.handleEnable, dispatcher.Logged())
	d.Register(":DRIVE:DISABLE:", s.handleDisable, dispatcher.Logged())
	d.Register(":DRIVE:STATUS:", s.handleStatus)
	d.Register(":NEW:SESSION:", s.handleNewSession, dispatcher.Logged())
	d.Register(":END:SESSION:", s.handleEndSession, dispatcher.Logged())
}

// trimQuotes strips the quoting collaborators wrap string args in.
func trimQuotes(v string) string {
	return strings.Trim(v, `"`)
}

// vehicleArg resolves args[i] as a vehicle ID against the registry.
func (s *Service) vehicleArg(args []string, i int) (*fleet.Vehicle, error) {
	if len(args) <= i {
		return nil, fmt.Errorf("missing vehicle ID argument")
	}
	id, err := strconv.ParseUint(trimQuotes(args[i]), 10, 16)
	if err != nil {
		return nil, fmt.Errorf("invalid vehicle ID %q: %w", args[i], err)
	}
	v, ok := s.deps.Registry.Get(uint16(id))
	if !ok {
		return nil, fmt.Errorf("unknown vehicle %d", id)
	}
	return v, nil
}

// handleGoto starts a pursuit: args are the vehicle ID and a "x,y,z"
// destination string.
func (s *Service) handleGoto(e dispatcher.Event) (any, error) {
	logger := s.deps.LogManager.Logger()

	v, err := s.vehicleArg(e.Args, 0)
	if err != nil {
		return nil, err
	}
	if len(e.Args) < 2 {
		return nil, fmt.Errorf("missing destination argument")
	}

	dest, err := geo.PositionFromString(trimQuotes(e.Args[1]))
	if err != nil {
		return nil, fmt.Errorf("parsing destination: %w", err)
	}

	if !v.Controller.RequestDestination(dest) {
		logger.Warn("Goto rejected, drive disabled", "vehicle", v.ID)
		return "REJECTED", nil
	}

	logger.Info("Goto accepted", "vehicle", v.ID, "x", dest.X, "y", dest.Y)
	return "OK", nil
}

func (s *Service) handleEnable(e dispatcher.Event) (any, error) {
	v, err := s.vehicleArg(e.Args, 0)
	if err != nil {
		return nil, err
	}
	v.Controller.SetDriveEnabled(true)
	return "OK", nil
}

func (s *Service) handleDisable(e dispatcher.Event) (any, error) {
	v, err := s.vehicleArg(e.Args, 0)
	if err != nil {
		return nil, err
	}
	v.Controller.SetDriveEnabled(false)
	return "OK", nil
}

// handleStatus returns the vehicle's current control snapshot as JSON.
func (s *Service) handleStatus(e dispatcher.Event) (any, error) {
	v, err := s.vehicleArg(e.Args, 0)
	if err != nil {
		return nil, err
	}

	snap := v.Controller.Snapshot()
	snap.VehicleID = v.ID
	snap.Time = time.Now()

	out, err := json.Marshal(snap)
	if err != nil {
		return nil, fmt.Errorf("marshalling status: %w", err)
	}
	return string(out), nil
}

// handleNewSession opens a recording session: args are the session name,
// world name, and the fixed tick rate in Hz.
func (s *Service) handleNewSession(e dispatcher.Event) (any, error) {
	logger := s.deps.LogManager.Logger()

	if len(e.Args) < 3 {
		return nil, fmt.Errorf("expected session name, world name and tick rate")
	}
	tickRate, err := strconv.ParseFloat(trimQuotes(e.Args[2]), 64)
	if err != nil {
		return nil, fmt.Errorf("invalid tick rate %q: %w", e.Args[2], err)
	}

	sess := &core.DriveSession{
		Name:      trimQuotes(e.Args[0]),
		WorldName: trimQuotes(e.Args[1]),
		StartTime: time.Now(),
		TickRate:  tickRate,
	}
	s.deps.Session.Set(sess)

	if s.backend != nil {
		if err := s.backend.StartSession(sess); err != nil {
			logger.Error("Failed to start session in storage backend", "error", err)
			return nil, err
		}
	}

	logger.Info("Session started", "name", sess.Name, "world", sess.WorldName)
	return "OK", nil
}

// handleEndSession closes the active session and flushes storage.
func (s *Service) handleEndSession(e dispatcher.Event) (any, error) {
	logger := s.deps.LogManager.Logger()

	if s.backend != nil {
		if err := s.backend.EndSession(); err != nil {
			logger.Error("Failed to end session in storage backend", "error", err)
			return nil, err
		}
	}

	logger.Info("Session ended")
	return "OK", nil
}

// The autodrive command runs scripted drive scenarios: it builds a fleet
// of simulated vehicles, dispatches destinations to their controllers,
// advances the fixed-tick loop until every pursuit has parked, and
// records the resulting telemetry to the configured storage backend.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	sdklog "go.opentelemetry.io/otel/sdk/log"

	"github.com/groundctl/autodrive/internal/config"
	"github.com/groundctl/autodrive/internal/dispatcher"
	"github.com/groundctl/autodrive/internal/drive"
	"github.com/groundctl/autodrive/internal/fleet"
	"github.com/groundctl/autodrive/internal/geo"
	"github.com/groundctl/autodrive/internal/handlers"
	"github.com/groundctl/autodrive/internal/influx"
	"github.com/groundctl/autodrive/internal/logging"
	intOtel "github.com/groundctl/autodrive/internal/otel"
	"github.com/groundctl/autodrive/internal/physics"
	"github.com/groundctl/autodrive/internal/session"
	"github.com/groundctl/autodrive/internal/sim"
	"github.com/groundctl/autodrive/internal/storage"
)

const appName = "autodrive"

func main() {
	configDir := flag.String("config", ".", "directory holding autodrive.cfg.json")
	scenarioPath := flag.String("scenario", "scenario.json", "scenario file to run")
	flag.Parse()

	if err := run(*configDir, *scenarioPath); err != nil {
		fmt.Fprintf(os.Stderr, "autodrive: %v\n", err)
		os.Exit(1)
	}
}

func run(configDir, scenarioPath string) error {
	startTime := time.Now()

	// Bootstrap logging to stderr until the log file exists.
	slogManager := logging.NewSlogManager()
	slogManager.Setup(os.Stderr, "INFO", nil)
	logger := slogManager.Logger()

	if err := config.Load(configDir); err != nil {
		logger.Warn("Failed to load config, using defaults", "error", err)
	} else {
		logger.Info("Loaded config", "dir", configDir)
	}

	logsDir := config.GetString("logsDir")
	if _, err := os.Stat(logsDir); os.IsNotExist(err) {
		_ = os.MkdirAll(logsDir, 0755)
	}
	logFilePath := logging.LogFilePath(logsDir, appName, startTime)
	logFile, err := os.OpenFile(logFilePath, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
	if err != nil {
		logger.Error("Failed to create/open log file", "error", err, "path", logFilePath)
		logFile = nil
	}

	// OTel provider, when enabled, receives both logs and drive metrics.
	var otelProvider *intOtel.Provider
	if config.GetBool("otel.enabled") {
		otelProvider, err = intOtel.New(intOtel.Config{
			Enabled:     true,
			ServiceName: appName,
			LogWriter:   logFile,
			Endpoint:    config.GetString("otel.endpoint"),
			Insecure:    config.GetBool("otel.insecure"),
		})
		if err != nil {
			logger.Error("Failed to initialize OTel provider", "error", err)
		}
	}

	var otelLogProvider *sdklog.LoggerProvider
	if otelProvider != nil {
		otelLogProvider = otelProvider.LoggerProvider()
	}
	if logFile != nil {
		slogManager.Setup(logFile, config.GetString("logLevel"), otelLogProvider)
		logger = slogManager.Logger()
		logger.Info("Logging to file", "path", logFilePath)
	}

	scenario, err := LoadScenario(scenarioPath)
	if err != nil {
		return err
	}

	backend, err := storage.NewBackend(logger)
	if err != nil {
		return fmt.Errorf("creating storage backend: %w", err)
	}
	if err := backend.Init(); err != nil {
		return fmt.Errorf("initializing storage backend: %w", err)
	}
	defer func() {
		if err := backend.Close(); err != nil {
			logger.Error("Failed to close storage backend", "error", err)
		}
	}()

	origin := geo.Origin{
		Lon: config.GetFloat("geo.originLon"),
		Lat: config.GetFloat("geo.originLat"),
	}
	var influxManager *influx.Manager
	if config.GetBool("influx.enabled") {
		backupPath := filepath.Join(logsDir, appName+"_influx_backup.gz")
		influxManager = influx.NewManager(
			zerolog.New(os.Stderr).With().Timestamp().Logger(),
			backupPath, origin)
		influxManager.SessionName = scenario.Name
		if err := influxManager.Connect(); err != nil {
			logger.Warn("InfluxDB disabled", "error", err)
			influxManager = nil
		} else {
			defer influxManager.Close()
		}
	}

	registry := fleet.NewRegistry()
	runner := &sim.Runner{
		Registry: registry,
		Backend:  backend,
		Influx:   influxManager,
		Log:      logger,
		TickRate: scenario.TickRate,
	}

	planner, err := scenario.Planner()
	if err != nil {
		return err
	}
	driveCfg, err := config.Drive()
	if err != nil {
		return fmt.Errorf("reading drive config: %w", err)
	}

	for _, sv := range scenario.Vehicles {
		rig := physics.NewRig(physics.DefaultRigConfig(), sv.Position, sv.YawDeg)
		ctrl, err := drive.NewController(driveCfg, rig, planner,
			slogManager.VehicleLogger(sv.ID), runner.EventFunc(sv.ID))
		if err != nil {
			return fmt.Errorf("creating controller for vehicle %d: %w", sv.ID, err)
		}
		registry.Add(&fleet.Vehicle{ID: sv.ID, Name: sv.Name, Controller: ctrl, Rig: rig})
		logger.Info("Vehicle ready", "id", sv.ID, "name", sv.Name)
	}

	sessionCtx := session.NewContext()
	handlerService := handlers.NewService(handlers.Dependencies{
		Registry:   registry,
		LogManager: slogManager,
		Session:    sessionCtx,
	})
	handlerService.SetBackend(backend)

	dispatcherLogger := logging.NewDispatcherLogger(
		zerolog.New(os.Stderr).With().Timestamp().Logger())
	eventDispatcher, err := dispatcher.New(dispatcherLogger)
	if err != nil {
		return fmt.Errorf("creating dispatcher: %w", err)
	}
	handlerService.RegisterHandlers(eventDispatcher)

	if _, err := eventDispatcher.Dispatch(dispatcher.Event{
		Command: ":NEW:SESSION:",
		Args: []string{scenario.Name, scenario.WorldName,
			fmt.Sprintf("%g", scenario.TickRate)},
		Timestamp: time.Now(),
	}); err != nil {
		return fmt.Errorf("starting session: %w", err)
	}

	for _, goal := range scenario.Goals {
		if _, err := eventDispatcher.Dispatch(dispatcher.Event{
			Command:   ":DRIVE:GOTO:",
			Args:      []string{fmt.Sprintf("%d", goal.VehicleID), goal.Destination},
			Timestamp: time.Now(),
		}); err != nil {
			logger.Error("Goto dispatch failed", "vehicle", goal.VehicleID, "error", err)
		}
	}

	ticks, settled, err := runner.Run(scenario.MaxTicks)
	if err != nil {
		return fmt.Errorf("running scenario: %w", err)
	}
	logger.Info("Scenario finished", "ticks", ticks, "settled", settled)

	if _, err := eventDispatcher.Dispatch(dispatcher.Event{
		Command:   ":END:SESSION:",
		Timestamp: time.Now(),
	}); err != nil {
		logger.Error("Ending session failed", "error", err)
	}

	if exportable, ok := backend.(storage.Exportable); ok {
		logger.Info("Session exported", "path", exportable.ExportedFilePath())
	}

	if otelProvider != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := otelProvider.Shutdown(ctx); err != nil {
			logger.Error("OTel shutdown failed", "error", err)
		}
	}
	return nil
}

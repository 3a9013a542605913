// Package influx ships per-tick drive telemetry to InfluxDB. When the
// server is unreachable the line protocol is appended to a gzip backup
// file instead so a session is never lost.
package influx

import (
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	influxdb2_api "github.com/influxdata/influxdb-client-go/v2/api"
	influxdb2_write "github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/influxdata/influxdb-client-go/v2/domain"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"

	"github.com/groundctl/autodrive/internal/geo"
	"github.com/groundctl/autodrive/pkg/core"
)

// Bucket names used by the drive recorder.
const (
	BucketTelemetry = "drive_telemetry"
	BucketEvents    = "drive_events"
)

// DefaultBucketNames are the buckets ensured on connect.
var DefaultBucketNames = []string{
	BucketTelemetry,
	BucketEvents,
}

// Manager handles InfluxDB connections and writes.
type Manager struct {
	Client       influxdb2.Client
	Writers      map[string]influxdb2_api.WriteAPI
	BackupWriter *gzip.Writer
	IsValid      bool
	BucketNames  []string
	Logger       zerolog.Logger
	BackupPath   string
	Origin       geo.Origin
	SessionName  string
}

// NewManager creates a new InfluxDB manager.
func NewManager(log zerolog.Logger, backupPath string, origin geo.Origin) *Manager {
	return &Manager{
		Writers:     make(map[string]influxdb2_api.WriteAPI),
		IsValid:     false,
		BucketNames: DefaultBucketNames,
		Logger:      log,
		BackupPath:  backupPath,
		Origin:      origin,
	}
}

// Connect establishes a connection to InfluxDB.
func (m *Manager) Connect() error {
	if !viper.GetBool("influx.enabled") {
		return errors.New("influx.enabled is false")
	}

	m.Client = influxdb2.NewClientWithOptions(
		fmt.Sprintf(
			"%s://%s:%s",
			viper.GetString("influx.protocol"),
			viper.GetString("influx.host"),
			viper.GetString("influx.port"),
		),
		viper.GetString("influx.token"),
		influxdb2.DefaultOptions().
			SetBatchSize(2500).
			SetFlushInterval(1000),
	)

	// validate client connection health
	running, err := m.Client.Ping(context.Background())

	if err != nil || !running {
		m.IsValid = false
		// create backup writer
		if m.BackupWriter == nil {
			m.Logger.Info().Str("backupPath", m.BackupPath).
				Msg("Failed to initialize InfluxDB client, writing to backup file")

			file, err := os.OpenFile(m.BackupPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
			if err != nil {
				return fmt.Errorf("error creating backup file: %v", err)
			}
			m.BackupWriter = gzip.NewWriter(file)
		}
	} else {
		m.IsValid = true
	}

	if m.IsValid {
		err = m.setupOrganizationAndBuckets()
		if err != nil {
			return err
		}
		m.CreateWriters()
		m.Logger.Info().Msg("InfluxDB client initialized")
	} else {
		m.Logger.Warn().Msg("InfluxDB client failed to initialize, using backup writer")
	}

	return nil
}

func (m *Manager) setupOrganizationAndBuckets() error {
	ctx := context.Background()
	orgName := viper.GetString("influx.org")

	// ensure org exists
	_, err := m.Client.OrganizationsAPI().FindOrganizationByName(ctx, orgName)
	if err != nil {
		m.Logger.Info().Str("org", orgName).Msg("Organization not found, creating")
		_, err = m.Client.OrganizationsAPI().CreateOrganizationWithName(ctx, orgName)
		if err != nil {
			m.Logger.Error().Err(err).Str("org", orgName).Msg("Error creating organization")
			return err
		}
	}

	influxOrg, err := m.Client.OrganizationsAPI().FindOrganizationByName(ctx, orgName)
	if err != nil {
		m.Logger.Error().Err(err).Str("org", orgName).Msg("Error getting organization")
		return err
	}

	// ensure buckets exist with 90 day retention
	for _, bucket := range m.BucketNames {
		_, err = m.Client.BucketsAPI().FindBucketByName(ctx, bucket)
		if err != nil {
			m.Logger.Info().Str("bucket", bucket).Msg("Bucket not found, creating")

			rule := domain.RetentionRuleTypeExpire
			_, err = m.Client.BucketsAPI().CreateBucketWithName(ctx, influxOrg, bucket, domain.RetentionRule{
				Type:         &rule,
				EverySeconds: 60 * 60 * 24 * 90, // 90 days
			})
			if err != nil {
				m.Logger.Error().Err(err).Str("bucket", bucket).Msg("Error creating bucket")
				return err
			}
		}
	}

	return nil
}

// CreateWriters creates write APIs for all configured buckets.
func (m *Manager) CreateWriters() {
	orgName := viper.GetString("influx.org")
	for _, bucket := range m.BucketNames {
		m.Writers[bucket] = m.Client.WriteAPI(orgName, bucket)

		errorsCh := m.Writers[bucket].Errors()
		go func(bucketName string, errorsCh <-chan error) {
			for writeErr := range errorsCh {
				m.Logger.Error().Err(writeErr).Str("bucket", bucketName).
					Msg("Error sending data to InfluxDB")
			}
		}(bucket, errorsCh)
	}

	m.Logger.Debug().Msg("InfluxDB writers initialized")
}

// WritePoint writes a point to InfluxDB or the backup file.
func (m *Manager) WritePoint(ctx context.Context, bucket string, point *influxdb2_write.Point) error {
	if m.IsValid {
		if _, ok := m.Writers[bucket]; !ok {
			return fmt.Errorf("influxDB bucket '%s' not registered", bucket)
		}
		m.Writers[bucket].WritePoint(point)
	} else {
		if m.BackupWriter == nil {
			return fmt.Errorf("influxDB client not initialized and backup writer not available")
		}

		lineProtocol := influxdb2_write.PointToLineProtocol(point, time.Duration(1*time.Nanosecond))
		_, err := m.BackupWriter.Write([]byte(lineProtocol + "\n"))
		if err != nil {
			return fmt.Errorf("error writing to InfluxDB backup file: %s", err)
		}
	}

	return nil
}

// WriteVehicleState writes one control snapshot to the telemetry bucket.
// Positions are converted to geographic coordinates so dashboards can
// plot them on a map.
func (m *Manager) WriteVehicleState(ctx context.Context, state *core.VehicleState) error {
	lon, lat := geo.LocalToGeographic(m.Origin, state.Position)

	point := influxdb2_write.NewPointWithMeasurement("vehicle_state").
		AddTag("session", m.SessionName).
		AddTag("vehicle", fmt.Sprintf("%d", state.VehicleID)).
		AddTag("mode", state.Mode).
		AddField("tick", int64(state.Tick)).
		AddField("lon", lon).
		AddField("lat", lat).
		AddField("x", state.Position.X).
		AddField("y", state.Position.Y).
		AddField("yawDeg", state.YawDeg).
		AddField("speed", state.Speed).
		AddField("steerDeg", state.SteerDeg).
		AddField("motorTorque", state.MotorTorque).
		AddField("brakeTorque", state.BrakeTorque).
		AddField("handbrake", state.Handbrake).
		SetTime(state.Time)

	return m.WritePoint(ctx, BucketTelemetry, point)
}

// WriteDriveEvent writes one controller event to the events bucket.
func (m *Manager) WriteDriveEvent(ctx context.Context, event *core.DriveEvent) error {
	point := influxdb2_write.NewPointWithMeasurement("drive_event").
		AddTag("session", m.SessionName).
		AddTag("vehicle", fmt.Sprintf("%d", event.VehicleID)).
		AddTag("kind", event.Kind).
		AddField("tick", int64(event.Tick)).
		AddField("detail", event.Detail).
		SetTime(event.Time)

	return m.WritePoint(ctx, BucketEvents, point)
}

// Flush forces pending writes out to the server or backup file.
func (m *Manager) Flush() {
	if m.IsValid {
		for _, w := range m.Writers {
			w.Flush()
		}
	} else if m.BackupWriter != nil {
		_ = m.BackupWriter.Flush()
	}
}

// Close flushes and tears down the client or backup writer.
func (m *Manager) Close() {
	m.Flush()
	if m.Client != nil {
		m.Client.Close()
	}
	if m.BackupWriter != nil {
		_ = m.BackupWriter.Close()
	}
}

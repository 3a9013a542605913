package config

import (
	"fmt"

	"github.com/spf13/viper"
)

// DriveConfig holds the controller tunables. It is supplied at construction
// and treated as immutable for the controller's lifetime.
type DriveConfig struct {
	MaxSpeed      float64 `json:"maxSpeed" mapstructure:"maxSpeed"`           // m/s
	ApproachDecel float64 `json:"approachDecel" mapstructure:"approachDecel"` // m/s², braking bound near the goal
	StopDistance  float64 `json:"stopDistance" mapstructure:"stopDistance"`   // m, arrival tolerance radius
	WaypointReach float64 `json:"waypointReach" mapstructure:"waypointReach"` // m, cursor advance threshold
	StopSpeedEps  float64 `json:"stopSpeedEps" mapstructure:"stopSpeedEps"`   // m/s, "stopped" epsilon

	SplitAngleDeg    float64 `json:"splitAngleDeg" mapstructure:"splitAngleDeg"` // forward/reverse split, clamped to (1,179)
	MaxSteerAngleDeg float64 `json:"maxSteerAngleDeg" mapstructure:"maxSteerAngleDeg"`
	SteerRateDeg     float64 `json:"steerRateDeg" mapstructure:"steerRateDeg"` // deg/s toward target steer

	MaxMotorTorque  float64 `json:"maxMotorTorque" mapstructure:"maxMotorTorque"`   // Nm per wheel
	MaxBrakeTorque  float64 `json:"maxBrakeTorque" mapstructure:"maxBrakeTorque"`   // Nm per wheel
	HandbrakeTorque float64 `json:"handbrakeTorque" mapstructure:"handbrakeTorque"` // Nm, fixed while parked
	TorqueDeadband  float64 `json:"torqueDeadband" mapstructure:"torqueDeadband"`   // m/s speed-error coast band

	KickFactor   float64 `json:"kickFactor" mapstructure:"kickFactor"`     // (0,1] torque multiplier during the kick window
	KickDuration float64 `json:"kickDuration" mapstructure:"kickDuration"` // s of boost after mode entry

	ReplanInterval    float64 `json:"replanInterval" mapstructure:"replanInterval"` // s, minimum between planner calls
	SnapDistance      float64 `json:"snapDistance" mapstructure:"snapDistance"`     // m, destination snap radius
	AllowPartialPaths bool    `json:"allowPartialPaths" mapstructure:"allowPartialPaths"`
	LockOnArrive      bool    `json:"lockOnArrive" mapstructure:"lockOnArrive"` // lock body freedom with the handbrake

	WheelYawOffsetDeg float64 `json:"wheelYawOffsetDeg" mapstructure:"wheelYawOffsetDeg"` // mesh authoring offset
}

// Normalize clamps values whose contracts bound them. The forward/reverse
// split angle must stay inside (1°, 179°) or the classifier degenerates.
func (c *DriveConfig) Normalize() {
	if c.SplitAngleDeg <= 1 {
		c.SplitAngleDeg = 1.001
	}
	if c.SplitAngleDeg >= 179 {
		c.SplitAngleDeg = 178.999
	}
	if c.KickFactor <= 0 || c.KickFactor > 1 {
		c.KickFactor = 1
	}
}

// Load reads configuration from JSON file and sets default values.
// configDir is the directory containing the config file.
func Load(configDir string) error {
	SetDefaults()

	viper.SetConfigName("autodrive.cfg.json")
	viper.AddConfigPath(configDir)
	viper.SetConfigType("json")

	err := viper.ReadInConfig()
	if err != nil {
		return fmt.Errorf("error reading config file: %v", err)
	}

	return nil
}

// SetDefaults installs default values for every key so a missing config file
// still yields a drivable vehicle. Split out from Load for tests.
func SetDefaults() {
	viper.SetDefault("logLevel", "info")
	viper.SetDefault("logsDir", "./autodrive_logs")

	viper.SetDefault("drive.maxSpeed", 12.0)
	viper.SetDefault("drive.approachDecel", 3.0)
	viper.SetDefault("drive.stopDistance", 2.0)
	viper.SetDefault("drive.waypointReach", 1.5)
	viper.SetDefault("drive.stopSpeedEps", 0.15)
	viper.SetDefault("drive.splitAngleDeg", 100.0)
	viper.SetDefault("drive.maxSteerAngleDeg", 35.0)
	viper.SetDefault("drive.steerRateDeg", 90.0)
	viper.SetDefault("drive.maxMotorTorque", 450.0)
	viper.SetDefault("drive.maxBrakeTorque", 900.0)
	viper.SetDefault("drive.handbrakeTorque", 2500.0)
	viper.SetDefault("drive.torqueDeadband", 0.25)
	viper.SetDefault("drive.kickFactor", 0.6)
	viper.SetDefault("drive.kickDuration", 0.5)
	viper.SetDefault("drive.replanInterval", 0.5)
	viper.SetDefault("drive.snapDistance", 10.0)
	viper.SetDefault("drive.allowPartialPaths", true)
	viper.SetDefault("drive.lockOnArrive", true)
	viper.SetDefault("drive.wheelYawOffsetDeg", 0.0)

	viper.SetDefault("storage.type", "memory")
	viper.SetDefault("storage.memory.outputDir", "./autodrive_out")
	viper.SetDefault("storage.memory.compressOutput", false)
	viper.SetDefault("storage.sqlite.outputDir", "./autodrive_out")
	viper.SetDefault("storage.websocket.url", "ws://localhost:5001/stream")
	viper.SetDefault("storage.websocket.secret", "")

	viper.SetDefault("db.host", "localhost")
	viper.SetDefault("db.port", "5432")
	viper.SetDefault("db.username", "postgres")
	viper.SetDefault("db.password", "postgres")
	viper.SetDefault("db.database", "autodrive")

	viper.SetDefault("influx.enabled", false)
	viper.SetDefault("influx.host", "localhost")
	viper.SetDefault("influx.port", "8086")
	viper.SetDefault("influx.protocol", "http")
	viper.SetDefault("influx.token", "")
	viper.SetDefault("influx.org", "autodrive-metrics")

	viper.SetDefault("geo.originLon", 0.0)
	viper.SetDefault("geo.originLat", 0.0)

	viper.SetDefault("otel.enabled", false)
	viper.SetDefault("otel.endpoint", "")
	viper.SetDefault("otel.insecure", true)
}

// Drive unmarshals the drive.* section into a normalized DriveConfig.
// Unmarshalling goes through the full settings tree rather than
// UnmarshalKey: the latter skips registered defaults, so a config file
// setting only some drive keys would zero the rest.
func Drive() (DriveConfig, error) {
	var root struct {
		Drive DriveConfig `mapstructure:"drive"`
	}
	if err := viper.Unmarshal(&root); err != nil {
		return DriveConfig{}, fmt.Errorf("error unmarshalling drive config: %w", err)
	}
	cfg := root.Drive
	cfg.Normalize()
	return cfg, nil
}

// GetString returns a string config value.
func GetString(key string) string {
	return viper.GetString(key)
}

// GetInt returns an int config value.
func GetInt(key string) int {
	return viper.GetInt(key)
}

// GetBool returns a bool config value.
func GetBool(key string) bool {
	return viper.GetBool(key)
}

// GetFloat returns a float config value.
func GetFloat(key string) float64 {
	return viper.GetFloat64(key)
}

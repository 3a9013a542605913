// pkg/core/vehicle.go
package core

import "time"

// VehicleState is one vehicle's control snapshot at a fixed tick.
// VehicleID references the registered vehicle in the fleet.
type VehicleState struct {
	VehicleID     uint16     `json:"vehicleId"`
	Time          time.Time  `json:"time"`
	Tick          uint64     `json:"tick"`
	Position      Position3D `json:"position"`
	YawDeg        float64    `json:"yawDeg"`
	Speed         float64    `json:"speed"` // m/s along the forward axis, signed
	Mode          string     `json:"mode"`
	SteerDeg      float64    `json:"steerDeg"`
	MotorTorque   float64    `json:"motorTorque"` // Nm, identical on all four wheels
	BrakeTorque   float64    `json:"brakeTorque"` // Nm, identical on all four wheels
	Handbrake     bool       `json:"handbrake"`
	HasDest       bool       `json:"hasDest"`
	Destination   Position3D `json:"destination"`
	WaypointsLeft int        `json:"waypointsLeft"`
}

// DriveSession describes one simulator run.
type DriveSession struct {
	Name      string    `json:"name"`
	WorldName string    `json:"worldName"`
	StartTime time.Time `json:"startTime"`
	TickRate  float64   `json:"tickRate"` // fixed ticks per second
}

// pkg/core/events.go
package core

import "time"

// Drive event kinds emitted by the controller.
const (
	EventModeChange  = "mode_change"
	EventDestination = "destination"
	EventPlanReplace = "plan_replace"
	EventArrived     = "arrived"
	EventHandbrake   = "handbrake"
)

// DriveEvent records a discrete controller occurrence: a mode transition,
// an accepted destination, a plan replacement, or an arrival.
type DriveEvent struct {
	VehicleID uint16    `json:"vehicleId"`
	Time      time.Time `json:"time"`
	Tick      uint64    `json:"tick"`
	Kind      string    `json:"kind"`
	Detail    string    `json:"detail"`
}

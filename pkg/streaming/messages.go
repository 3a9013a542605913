package streaming

import (
	"encoding/json"

	"github.com/groundctl/autodrive/pkg/core"
)

// Message type constants matching the streaming protocol.
const (
	TypeStartSession = "start_session"
	TypeEndSession   = "end_session"
	TypeVehicleState = "vehicle_state"
	TypeWheelPoses   = "wheel_poses"
	TypeDriveEvent   = "drive_event"
)

// Envelope wraps all messages sent over the WebSocket.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// AckMessage is the server's acknowledgement response.
type AckMessage struct {
	Type string `json:"type"` // always "ack"
	For  string `json:"for"`  // the message type being acknowledged
}

// StartSessionPayload carries session metadata.
type StartSessionPayload struct {
	Session *core.DriveSession `json:"session"`
}

// WheelPosesPayload carries the per-wheel visual poses for one vehicle
// at one tick, in FL, FR, RL, RR order.
type WheelPosesPayload struct {
	VehicleID uint16                          `json:"vehicleId"`
	Tick      uint64                          `json:"tick"`
	Poses     [core.WheelCount]core.WheelPose `json:"poses"`
}

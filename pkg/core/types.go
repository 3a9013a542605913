// pkg/core/types.go
package core

import "math"

// Position3D represents a world coordinate in metres without GIS dependencies.
// X/Y span the horizontal plane, Z is elevation.
type Position3D struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// PlanarDistanceTo returns the horizontal-plane distance to other, ignoring Z.
func (p Position3D) PlanarDistanceTo(other Position3D) float64 {
	return math.Hypot(other.X-p.X, other.Y-p.Y)
}

// WheelIndex identifies one of the four wheels of a vehicle.
type WheelIndex int

// Wheel positions. Order is fixed; actuation code indexes arrays with these.
const (
	WheelFL WheelIndex = iota
	WheelFR
	WheelRL
	WheelRR

	WheelCount = 4
)

// String returns the conventional two-letter wheel label.
func (w WheelIndex) String() string {
	switch w {
	case WheelFL:
		return "FL"
	case WheelFR:
		return "FR"
	case WheelRL:
		return "RL"
	case WheelRR:
		return "RR"
	default:
		return "??"
	}
}

// WheelPose is the world-space pose of one visual wheel mesh.
// RollDeg accumulates rolling rotation about the axle; YawDeg includes steer.
type WheelPose struct {
	Position Position3D `json:"position"`
	YawDeg   float64    `json:"yawDeg"`
	RollDeg  float64    `json:"rollDeg"`
}

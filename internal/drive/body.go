package drive

import "github.com/groundctl/autodrive/pkg/core"

// FreedomMask describes which degrees of freedom of the physics body are
// unlocked. The handbrake saves the mask before locking and restores it
// on release.
type FreedomMask uint8

const (
	// FreedomTranslate allows linear motion.
	FreedomTranslate FreedomMask = 1 << iota
	// FreedomRotate allows angular motion.
	FreedomRotate

	// FreedomNone locks the body in place.
	FreedomNone FreedomMask = 0
	// FreedomAll is the default, fully simulated state.
	FreedomAll = FreedomTranslate | FreedomRotate
)

// Body is the physics body the controller reads and commands. The controller
// never owns the body; an external simulation integrates it between ticks.
type Body interface {
	// Position returns the body's world position.
	Position() core.Position3D

	// YawDeg returns the heading in degrees clockwise from +Y.
	YawDeg() float64

	// ForwardSpeed returns the velocity component along the forward axis,
	// signed: negative while rolling backward.
	ForwardSpeed() float64

	// SetWheelMotorTorque commands drive torque (Nm) on one wheel.
	SetWheelMotorTorque(w core.WheelIndex, nm float64)

	// SetWheelBrakeTorque commands brake torque (Nm) on one wheel.
	SetWheelBrakeTorque(w core.WheelIndex, nm float64)

	// SetWheelSteer commands the steer angle (deg) of one wheel.
	SetWheelSteer(w core.WheelIndex, deg float64)

	// WheelContactPose returns the simulated pose of one wheel.
	WheelContactPose(w core.WheelIndex) core.WheelPose

	// ZeroVelocity forcibly zeroes linear and angular velocity.
	ZeroVelocity()

	// Freedom returns the current degrees-of-freedom mask.
	Freedom() FreedomMask

	// SetFreedom locks or unlocks degrees of freedom.
	SetFreedom(mask FreedomMask)
}

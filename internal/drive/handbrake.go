package drive

import "github.com/groundctl/autodrive/pkg/core"

// Handbrake parks the vehicle: full fixed brake torque, velocity forced to
// zero, and optionally all degrees of freedom locked. The freedom mask in
// effect before engagement is saved and restored on release.
type Handbrake struct {
	engaged     bool
	savedMask   FreedomMask
	brakeTorque float64
}

// NewHandbrake returns a released handbrake applying the given fixed brake
// torque while engaged.
func NewHandbrake(brakeTorque float64) *Handbrake {
	return &Handbrake{brakeTorque: brakeTorque}
}

// Engaged reports whether the handbrake is currently engaged.
func (h *Handbrake) Engaged() bool {
	return h.engaged
}

// Engage parks the body. Idempotent: a second call while engaged is a no-op.
func (h *Handbrake) Engage(body Body, lockFreedom bool) {
	if h.engaged {
		return
	}
	h.engaged = true

	for i := core.WheelIndex(0); i < core.WheelCount; i++ {
		body.SetWheelMotorTorque(i, 0)
		body.SetWheelBrakeTorque(i, h.brakeTorque)
	}
	body.ZeroVelocity()

	if lockFreedom {
		h.savedMask = body.Freedom()
		body.SetFreedom(FreedomNone)
	} else {
		h.savedMask = body.Freedom()
	}
}

// Release unparks the body, restoring the saved degrees of freedom and
// zeroing brake torque. Idempotent: releasing a released handbrake is a
// no-op.
func (h *Handbrake) Release(body Body) {
	if !h.engaged {
		return
	}
	h.engaged = false

	body.SetFreedom(h.savedMask)
	for i := core.WheelIndex(0); i < core.WheelCount; i++ {
		body.SetWheelBrakeTorque(i, 0)
	}
}

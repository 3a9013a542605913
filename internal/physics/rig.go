// Package physics provides a kinematic four-wheel rig implementing the
// drive.Body contract. The model is a longitudinal force balance with
// bicycle steering, enough dynamics for the simulator and the
// controller tests.
package physics

import (
	"math"

	"github.com/groundctl/autodrive/internal/drive"
	"github.com/groundctl/autodrive/internal/geo"
	"github.com/groundctl/autodrive/pkg/core"
)

const gravity = 9.81

// RigConfig holds the physical constants of the rig.
type RigConfig struct {
	Mass        float64 `json:"mass" mapstructure:"mass"`               // kg
	WheelRadius float64 `json:"wheelRadius" mapstructure:"wheelRadius"` // m
	Wheelbase   float64 `json:"wheelbase" mapstructure:"wheelbase"`     // m, front to rear axle
	Track       float64 `json:"track" mapstructure:"track"`             // m, left to right
	RollingDrag float64 `json:"rollingDrag" mapstructure:"rollingDrag"` // rolling resistance coefficient
	LinearDrag  float64 `json:"linearDrag" mapstructure:"linearDrag"`   // N·s/m
}

// DefaultRigConfig is a mid-size utility vehicle.
func DefaultRigConfig() RigConfig {
	return RigConfig{
		Mass:        1500,
		WheelRadius: 0.35,
		Wheelbase:   2.6,
		Track:       1.6,
		RollingDrag: 0.015,
		LinearDrag:  5,
	}
}

type wheelState struct {
	motorNm  float64
	brakeNm  float64
	steerDeg float64
	rollDeg  float64
}

// Rig is a four-wheel kinematic body. It integrates per-wheel torque
// commands into longitudinal motion and front steer into yaw rate.
type Rig struct {
	cfg RigConfig

	pos     core.Position3D
	yawDeg  float64
	speed   float64 // m/s along the forward axis, signed
	freedom drive.FreedomMask

	wheels [core.WheelCount]wheelState
}

// NewRig places a rig at a position and heading, at rest, fully free.
func NewRig(cfg RigConfig, pos core.Position3D, yawDeg float64) *Rig {
	return &Rig{
		cfg:     cfg,
		pos:     pos,
		yawDeg:  yawDeg,
		freedom: drive.FreedomAll,
	}
}

// Position returns the body's world position.
func (r *Rig) Position() core.Position3D { return r.pos }

// YawDeg returns the heading in degrees clockwise from +Y.
func (r *Rig) YawDeg() float64 { return r.yawDeg }

// ForwardSpeed returns the signed speed along the forward axis.
func (r *Rig) ForwardSpeed() float64 { return r.speed }

// SetWheelMotorTorque commands drive torque on one wheel.
func (r *Rig) SetWheelMotorTorque(w core.WheelIndex, nm float64) {
	r.wheels[w].motorNm = nm
}

// SetWheelBrakeTorque commands brake torque on one wheel.
func (r *Rig) SetWheelBrakeTorque(w core.WheelIndex, nm float64) {
	r.wheels[w].brakeNm = nm
}

// SetWheelSteer commands the steer angle of one wheel.
func (r *Rig) SetWheelSteer(w core.WheelIndex, deg float64) {
	r.wheels[w].steerDeg = deg
}

// ZeroVelocity forcibly stops the body.
func (r *Rig) ZeroVelocity() { r.speed = 0 }

// Freedom returns the degrees-of-freedom mask.
func (r *Rig) Freedom() drive.FreedomMask { return r.freedom }

// SetFreedom locks or unlocks motion.
func (r *Rig) SetFreedom(mask drive.FreedomMask) { r.freedom = mask }

// WheelContactPose returns the simulated world pose of one wheel.
func (r *Rig) WheelContactPose(w core.WheelIndex) core.WheelPose {
	half := r.cfg.Wheelbase / 2
	long := half
	if w == core.WheelRL || w == core.WheelRR {
		long = -half
	}
	lat := r.cfg.Track / 2
	if w == core.WheelFL || w == core.WheelRL {
		lat = -lat
	}

	fx, fy := geo.ForwardAxis(r.yawDeg)
	// right axis: forward rotated 90° clockwise
	rx, ry := fy, -fx

	return core.WheelPose{
		Position: core.Position3D{
			X: r.pos.X + long*fx + lat*rx,
			Y: r.pos.Y + long*fy + lat*ry,
			Z: r.pos.Z + r.cfg.WheelRadius,
		},
		YawDeg:  geo.NormalizeDeg(r.yawDeg + r.wheels[w].steerDeg),
		RollDeg: r.wheels[w].rollDeg,
	}
}

// Step integrates the rig by dt seconds: torque to longitudinal force,
// brakes opposing motion without reversing it through zero, and front
// steer to yaw rate via the bicycle model.
func (r *Rig) Step(dt float64) {
	if r.freedom&drive.FreedomTranslate == 0 {
		r.speed = 0
		return
	}

	var motorNm, brakeNm float64
	for i := range r.wheels {
		motorNm += r.wheels[i].motorNm
		brakeNm += r.wheels[i].brakeNm
	}

	accel := motorNm / r.cfg.WheelRadius / r.cfg.Mass

	// drag opposes the direction of travel
	if r.speed != 0 {
		drag := r.cfg.RollingDrag*gravity + r.cfg.LinearDrag*math.Abs(r.speed)/r.cfg.Mass
		accel -= math.Copysign(drag, r.speed)
	}

	r.speed += accel * dt

	// brakes decelerate toward zero but never push through it
	if brakeNm > 0 && r.speed != 0 {
		decel := brakeNm / r.cfg.WheelRadius / r.cfg.Mass * dt
		if math.Abs(r.speed) <= decel {
			r.speed = 0
		} else {
			r.speed -= math.Copysign(decel, r.speed)
		}
	}

	if r.freedom&drive.FreedomRotate != 0 && r.speed != 0 {
		steer := (r.wheels[core.WheelFL].steerDeg + r.wheels[core.WheelFR].steerDeg) / 2
		yawRate := r.speed / r.cfg.Wheelbase * math.Tan(steer*math.Pi/180)
		r.yawDeg = geo.NormalizeDeg(r.yawDeg + yawRate*180/math.Pi*dt)
	}

	fx, fy := geo.ForwardAxis(r.yawDeg)
	r.pos.X += fx * r.speed * dt
	r.pos.Y += fy * r.speed * dt

	rollDelta := r.speed / r.cfg.WheelRadius * 180 / math.Pi * dt
	for i := range r.wheels {
		r.wheels[i].rollDeg = geo.NormalizeDeg(r.wheels[i].rollDeg + rollDelta)
	}
}

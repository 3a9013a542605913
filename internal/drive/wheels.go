package drive

import "github.com/groundctl/autodrive/pkg/core"

// WheelDescriptor holds one wheel's actuation outputs and visual pose.
type WheelDescriptor struct {
	Index       core.WheelIndex
	Steerable   bool
	MotorTorque float64
	BrakeTorque float64
	SteerDeg    float64
	Pose        core.WheelPose
}

// Wheels actuates the four wheels: identical motor and brake torque on all
// four (no torque vectoring), steer on the two front wheels only. It also
// mirrors the simulated contact poses onto the visual wheel descriptors;
// that path is purely cosmetic and feeds nothing back into control.
type Wheels struct {
	descriptors [core.WheelCount]WheelDescriptor
}

// NewWheels returns the fixed FL, FR, RL, RR wheel set.
func NewWheels() *Wheels {
	var w Wheels
	for i := range w.descriptors {
		w.descriptors[i] = WheelDescriptor{
			Index:     core.WheelIndex(i),
			Steerable: core.WheelIndex(i) == core.WheelFL || core.WheelIndex(i) == core.WheelFR,
		}
	}
	return &w
}

// Apply writes motor torque, brake torque, and steer angle to the body and
// records them on the descriptors.
func (w *Wheels) Apply(body Body, motorNm, brakeNm, steerDeg float64) {
	for i := range w.descriptors {
		d := &w.descriptors[i]
		d.MotorTorque = motorNm
		d.BrakeTorque = brakeNm
		body.SetWheelMotorTorque(d.Index, motorNm)
		body.SetWheelBrakeTorque(d.Index, brakeNm)
		if d.Steerable {
			d.SteerDeg = steerDeg
			body.SetWheelSteer(d.Index, steerDeg)
		}
	}
}

// SyncPoses copies each wheel's simulated contact pose, offset by the mesh
// authoring yaw correction, onto the visual descriptors.
func (w *Wheels) SyncPoses(body Body, yawOffsetDeg float64) {
	for i := range w.descriptors {
		d := &w.descriptors[i]
		pose := body.WheelContactPose(d.Index)
		pose.YawDeg += yawOffsetDeg
		d.Pose = pose
	}
}

// Poses returns the current visual poses in FL, FR, RL, RR order.
func (w *Wheels) Poses() [core.WheelCount]core.WheelPose {
	var poses [core.WheelCount]core.WheelPose
	for i := range w.descriptors {
		poses[i] = w.descriptors[i].Pose
	}
	return poses
}

// Descriptor returns the descriptor for one wheel.
func (w *Wheels) Descriptor(idx core.WheelIndex) WheelDescriptor {
	return w.descriptors[idx]
}

package drive

import "github.com/groundctl/autodrive/pkg/core"

// fakeBody is a scriptable Body for controller tests. Tests set pos, yaw,
// and speed directly between ticks; the fake records every actuation
// command for inspection.
type fakeBody struct {
	pos    core.Position3D
	yawDeg float64
	speed  float64

	motor [core.WheelCount]float64
	brake [core.WheelCount]float64
	steer [core.WheelCount]float64
	poses [core.WheelCount]core.WheelPose

	freedom   FreedomMask
	zeroCalls int
}

func newFakeBody() *fakeBody {
	return &fakeBody{freedom: FreedomAll}
}

func (b *fakeBody) Position() core.Position3D { return b.pos }
func (b *fakeBody) YawDeg() float64           { return b.yawDeg }
func (b *fakeBody) ForwardSpeed() float64     { return b.speed }

func (b *fakeBody) SetWheelMotorTorque(w core.WheelIndex, nm float64) { b.motor[w] = nm }
func (b *fakeBody) SetWheelBrakeTorque(w core.WheelIndex, nm float64) { b.brake[w] = nm }
func (b *fakeBody) SetWheelSteer(w core.WheelIndex, deg float64)      { b.steer[w] = deg }

func (b *fakeBody) WheelContactPose(w core.WheelIndex) core.WheelPose { return b.poses[w] }

func (b *fakeBody) ZeroVelocity() {
	b.speed = 0
	b.zeroCalls++
}

func (b *fakeBody) Freedom() FreedomMask        { return b.freedom }
func (b *fakeBody) SetFreedom(mask FreedomMask) { b.freedom = mask }

package geo

import (
	"math"

	"github.com/groundctl/autodrive/pkg/core"
)

// Yaw convention: degrees clockwise from +Y, so yaw 0 faces +Y and yaw 90
// faces +X. Positive heading error means the target lies to the right.

// ForwardAxis returns the unit forward vector in the horizontal plane for
// the given yaw.
func ForwardAxis(yawDeg float64) (x, y float64) {
	rad := yawDeg * math.Pi / 180
	return math.Sin(rad), math.Cos(rad)
}

// BearingDeg returns the compass bearing from one point to another,
// in (-180, 180].
func BearingDeg(from, to core.Position3D) float64 {
	return math.Atan2(to.X-from.X, to.Y-from.Y) * 180 / math.Pi
}

// HeadingErrorDeg returns the signed planar angle from the vehicle forward
// axis to the direction of the target, in (-180, 180]. A degenerate
// zero-length direction (target coincides with the vehicle) yields 0, which
// keeps the steering math defined and holds the current heading.
func HeadingErrorDeg(yawDeg float64, from, to core.Position3D) float64 {
	dx := to.X - from.X
	dy := to.Y - from.Y
	if dx == 0 && dy == 0 {
		return 0
	}
	return NormalizeDeg(math.Atan2(dx, dy)*180/math.Pi - yawDeg)
}

// NormalizeDeg wraps an angle into (-180, 180].
func NormalizeDeg(deg float64) float64 {
	deg = math.Mod(deg, 360)
	if deg > 180 {
		deg -= 360
	} else if deg <= -180 {
		deg += 360
	}
	return deg
}

// Clamp keeps value inside [lo, hi].
func Clamp(value, lo, hi float64) float64 {
	if value < lo {
		return lo
	}
	if value > hi {
		return hi
	}
	return value
}

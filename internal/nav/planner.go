// Package nav supplies the path-planning collaborator consumed by the drive
// controller: shortest paths over a waypoint graph and nearest-point
// sampling against a navigable area.
package nav

import "github.com/groundctl/autodrive/pkg/core"

// PathStatus reports the outcome of a planning request.
type PathStatus int

const (
	// PathInvalid means no usable route exists; callers must keep their
	// previous corners or fall back to direct driving.
	PathInvalid PathStatus = iota
	// PathPartial means the route ends short of the goal.
	PathPartial
	// PathValid means the route reaches the goal.
	PathValid
)

// String returns the status name.
func (s PathStatus) String() string {
	switch s {
	case PathValid:
		return "valid"
	case PathPartial:
		return "partial"
	default:
		return "invalid"
	}
}

// Path is an ordered corner sequence from start toward goal.
type Path struct {
	Status  PathStatus
	Corners []core.Position3D
}

// Planner computes routes over a navigable surface.
type Planner interface {
	// ComputePath returns an ordered corner sequence from start toward goal.
	ComputePath(start, goal core.Position3D) Path

	// SampleNearestPoint snaps a point onto the navigable surface within
	// maxDist. Returns false when no navigable point is close enough.
	SampleNearestPoint(p core.Position3D, maxDist float64) (core.Position3D, bool)
}

// DirectPlanner is the degenerate planner: every path is a straight line
// with no intermediate corners and every point is navigable. Used by sims
// and tests that exercise pure direct-drive behavior.
type DirectPlanner struct{}

// ComputePath returns a valid zero-corner path; the controller drives
// straight at the destination.
func (DirectPlanner) ComputePath(start, goal core.Position3D) Path {
	return Path{Status: PathValid}
}

// SampleNearestPoint returns the point unchanged.
func (DirectPlanner) SampleNearestPoint(p core.Position3D, maxDist float64) (core.Position3D, bool) {
	return p, true
}

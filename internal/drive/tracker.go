package drive

import "github.com/groundctl/autodrive/pkg/core"

// Tracker advances through the corner sequence of the active plan. The
// cursor is monotonically non-decreasing within one plan and resets only
// when the plan is replaced.
type Tracker struct {
	corners []core.Position3D
	cursor  int
}

// Replace installs a new corner sequence, resetting the cursor to the first
// informative point: leading corners already within reach of the vehicle
// (typically the snapped start node) are skipped.
func (t *Tracker) Replace(corners []core.Position3D, vehiclePos core.Position3D, reach float64) {
	t.corners = corners
	t.cursor = 0
	for t.cursor < len(t.corners) &&
		vehiclePos.PlanarDistanceTo(t.corners[t.cursor]) <= reach {
		t.cursor++
	}
}

// Clear drops the corner sequence; target selection degrades to the
// destination directly.
func (t *Tracker) Clear() {
	t.corners = nil
	t.cursor = 0
}

// HasCorners reports whether an unexhausted corner sequence is active.
func (t *Tracker) HasCorners() bool {
	return t.cursor < len(t.corners)
}

// Target returns the point to drive at: the corner at the cursor, or dest
// when the sequence is empty or exhausted.
func (t *Tracker) Target(dest core.Position3D) core.Position3D {
	if t.HasCorners() {
		return t.corners[t.cursor]
	}
	return dest
}

// Advance increments the cursor when the vehicle is within reach of the
// current corner. Called once per fixed tick.
func (t *Tracker) Advance(vehiclePos core.Position3D, reach float64) {
	if t.HasCorners() && vehiclePos.PlanarDistanceTo(t.corners[t.cursor]) <= reach {
		t.cursor++
	}
}

// FinalLeg reports whether the cursor addresses the last corner or beyond,
// or no corners exist: the vehicle is heading for the final destination.
func (t *Tracker) FinalLeg() bool {
	return t.cursor >= len(t.corners)-1
}

// Remaining returns the number of unvisited corners.
func (t *Tracker) Remaining() int {
	if !t.HasCorners() {
		return 0
	}
	return len(t.corners) - t.cursor
}

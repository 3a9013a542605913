package nav

import (
	"fmt"
	"math"

	geom "github.com/peterstace/simplefeatures/geom"

	"github.com/groundctl/autodrive/pkg/core"
)

// Area is the navigable surface as a simple polygon in the horizontal plane.
type Area struct {
	polygon geom.Polygon
	ring    []geom.XY // exterior ring vertices, closed
}

// NewArea builds a navigable area from an exterior ring. The ring is closed
// automatically if the first and last vertices differ.
func NewArea(ring []core.Position3D) (*Area, error) {
	if len(ring) < 3 {
		return nil, fmt.Errorf("navigable area needs at least 3 vertices, got %d", len(ring))
	}
	xys := make([]geom.XY, 0, len(ring)+1)
	for _, p := range ring {
		xys = append(xys, geom.XY{X: p.X, Y: p.Y})
	}
	if xys[0] != xys[len(xys)-1] {
		xys = append(xys, xys[0])
	}

	flat := make([]float64, 0, len(xys)*2)
	for _, xy := range xys {
		flat = append(flat, xy.X, xy.Y)
	}
	shell := geom.NewLineString(geom.NewSequence(flat, geom.DimXY))
	poly := geom.NewPolygon([]geom.LineString{shell})
	if err := poly.Validate(); err != nil {
		return nil, fmt.Errorf("invalid navigable area: %w", err)
	}

	return &Area{polygon: poly, ring: xys}, nil
}

// Contains reports whether p lies inside or on the boundary of the area.
func (a *Area) Contains(p core.Position3D) bool {
	pt := geom.NewPoint(geom.Coordinates{XY: geom.XY{X: p.X, Y: p.Y}})
	return geom.Intersects(pt.AsGeometry(), a.polygon.AsGeometry())
}

// NearestPoint snaps p onto the area: a point already inside is returned
// unchanged; otherwise the closest boundary point within maxDist.
func (a *Area) NearestPoint(p core.Position3D, maxDist float64) (core.Position3D, bool) {
	if a.Contains(p) {
		return p, true
	}

	q := geom.XY{X: p.X, Y: p.Y}
	best := geom.XY{}
	bestDist := math.Inf(1)
	for i := 0; i+1 < len(a.ring); i++ {
		c := closestPointOnSegment(q, a.ring[i], a.ring[i+1])
		if d := distXY(q, c); d < bestDist {
			best, bestDist = c, d
		}
	}
	if bestDist > maxDist {
		return core.Position3D{}, false
	}
	return core.Position3D{X: best.X, Y: best.Y, Z: p.Z}, true
}

func closestPointOnSegment(p, a, b geom.XY) geom.XY {
	ab := b.Sub(a)
	lenSq := ab.Dot(ab)
	if lenSq == 0 {
		return a
	}
	t := p.Sub(a).Dot(ab) / lenSq
	if t < 0 {
		t = 0
	} else if t > 1 {
		t = 1
	}
	return a.Add(ab.Scale(t))
}

func distXY(a, b geom.XY) float64 {
	return math.Hypot(b.X-a.X, b.Y-a.Y)
}

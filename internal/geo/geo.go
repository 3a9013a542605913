package geo

import (
	"errors"
	"strconv"
	"strings"

	geom "github.com/peterstace/simplefeatures/geom"
	"github.com/wroge/wgs84"

	"github.com/groundctl/autodrive/pkg/core"
)

// World coordinates are sim-local metres. For export sinks that want
// geographic positions (Influx dashboards, recordings), local metres are
// treated as EPSG:3857 offsets from a configured origin and projected back
// to EPSG:4326.

// ErrInvalidCoordinates is returned when the coordinates are invalid
var ErrInvalidCoordinates = errors.New("invalid coordinates provided")

// PositionFromString parses a "x,y" or "x,y,z" string into a core.Position3D.
func PositionFromString(coords string) (core.Position3D, error) {
	coordsSplit := strings.Split(coords, ",")
	if len(coordsSplit) < 2 {
		return core.Position3D{}, ErrInvalidCoordinates
	}
	x, err := strconv.ParseFloat(strings.TrimSpace(coordsSplit[0]), 64)
	if err != nil {
		return core.Position3D{}, ErrInvalidCoordinates
	}
	y, err := strconv.ParseFloat(strings.TrimSpace(coordsSplit[1]), 64)
	if err != nil {
		return core.Position3D{}, ErrInvalidCoordinates
	}
	var z float64
	if len(coordsSplit) > 2 {
		z, err = strconv.ParseFloat(strings.TrimSpace(coordsSplit[2]), 64)
		if err != nil {
			return core.Position3D{}, ErrInvalidCoordinates
		}
	}
	return core.Position3D{X: x, Y: y, Z: z}, nil
}

// PointFromPosition builds a 3D geometry point from a position.
func PointFromPosition(p core.Position3D) geom.Point {
	return geom.NewPoint(
		geom.Coordinates{
			XY:   geom.XY{X: p.X, Y: p.Y},
			Z:    p.Z,
			Type: geom.DimXYZ,
		},
	)
}

// CornersToLineString converts a planned corner sequence to a LineString
// for export and streaming. Returns an empty LineString for fewer than
// two corners.
func CornersToLineString(corners []core.Position3D) geom.LineString {
	if len(corners) < 2 {
		return geom.LineString{}
	}
	flat := make([]float64, 0, len(corners)*2)
	for _, c := range corners {
		flat = append(flat, c.X, c.Y)
	}
	return geom.NewLineString(geom.NewSequence(flat, geom.DimXY))
}

// Origin anchors sim-local coordinates on the globe for telemetry export.
type Origin struct {
	Lon float64
	Lat float64
}

// LocalToGeographic projects a sim-local position to EPSG:4326 lon/lat by
// offsetting the origin's EPSG:3857 coordinates with the local metres.
func LocalToGeographic(origin Origin, p core.Position3D) (lon, lat float64) {
	epsg := wgs84.EPSG()
	toWeb := epsg.Transform(4326, 3857)
	ox, oy, _ := toWeb(origin.Lon, origin.Lat, 0)
	toGeo := epsg.Transform(3857, 4326)
	lon, lat, _ = toGeo(ox+p.X, oy+p.Y, 0)
	return lon, lat
}

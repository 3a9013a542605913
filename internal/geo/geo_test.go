package geo

import (
	"errors"
	"math"
	"testing"

	"github.com/groundctl/autodrive/pkg/core"
)

func TestPositionFromString_ValidWithElevation(t *testing.T) {
	p, err := PositionFromString("100.5,200.25,50.0")

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.X != 100.5 {
		t.Errorf("expected X=100.5, got %f", p.X)
	}
	if p.Y != 200.25 {
		t.Errorf("expected Y=200.25, got %f", p.Y)
	}
	if p.Z != 50.0 {
		t.Errorf("expected Z=50.0, got %f", p.Z)
	}
}

func TestPositionFromString_ValidWithoutElevation(t *testing.T) {
	p, err := PositionFromString("100.5,200.25")

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Z != 0 {
		t.Errorf("expected Z=0, got %f", p.Z)
	}
}

func TestPositionFromString_NegativeCoordinates(t *testing.T) {
	p, err := PositionFromString("-100.5,-200.25,-50.0")

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.X != -100.5 || p.Y != -200.25 || p.Z != -50.0 {
		t.Errorf("unexpected position: %+v", p)
	}
}

func TestPositionFromString_WithSpaces(t *testing.T) {
	p, err := PositionFromString("10, 20, 30")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.X != 10 || p.Y != 20 || p.Z != 30 {
		t.Errorf("unexpected position: %+v", p)
	}
}

func TestPositionFromString_Invalid(t *testing.T) {
	cases := []string{"", "100", "abc,def", "1,abc", "1,2,abc"}
	for _, c := range cases {
		_, err := PositionFromString(c)
		if !errors.Is(err, ErrInvalidCoordinates) {
			t.Errorf("input %q: expected ErrInvalidCoordinates, got %v", c, err)
		}
	}
}

func TestCornersToLineString(t *testing.T) {
	corners := []core.Position3D{
		{X: 0, Y: 0},
		{X: 10, Y: 0},
		{X: 10, Y: 20},
	}
	ls := CornersToLineString(corners)
	if got := ls.Coordinates().Length(); got != 3 {
		t.Errorf("expected 3 coordinates, got %d", got)
	}

	// Degenerate inputs yield an empty linestring.
	if got := CornersToLineString(corners[:1]).Coordinates().Length(); got != 0 {
		t.Errorf("expected empty linestring, got %d coordinates", got)
	}
}

func TestLocalToGeographic_OriginIdentity(t *testing.T) {
	origin := Origin{Lon: 9.0, Lat: 48.0}
	lon, lat := LocalToGeographic(origin, core.Position3D{})
	if math.Abs(lon-9.0) > 1e-6 || math.Abs(lat-48.0) > 1e-6 {
		t.Errorf("expected origin back, got lon=%f lat=%f", lon, lat)
	}
}

func TestLocalToGeographic_EastwardOffset(t *testing.T) {
	origin := Origin{Lon: 0, Lat: 0}
	lon, lat := LocalToGeographic(origin, core.Position3D{X: 1000, Y: 0})
	if lon <= 0 {
		t.Errorf("expected positive longitude offset, got %f", lon)
	}
	if math.Abs(lat) > 1e-6 {
		t.Errorf("expected latitude unchanged, got %f", lat)
	}
}

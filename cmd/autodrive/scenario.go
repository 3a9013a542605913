package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/groundctl/autodrive/internal/nav"
	"github.com/groundctl/autodrive/pkg/core"
)

// Scenario describes one run: the navigable surface, the fleet, and the
// destinations to dispatch.
type Scenario struct {
	Name      string  `json:"name"`
	WorldName string  `json:"worldName"`
	MaxTicks  uint64  `json:"maxTicks"`
	TickRate  float64 `json:"tickRate"`

	// Graph is optional; without it vehicles drive direct lines.
	Graph *ScenarioGraph `json:"graph,omitempty"`

	// Area is an optional navigable polygon ring used for snapping.
	Area []core.Position3D `json:"area,omitempty"`

	Vehicles []ScenarioVehicle `json:"vehicles"`
	Goals    []ScenarioGoal    `json:"goals"`
}

// ScenarioGraph is the waypoint graph in scenario form.
type ScenarioGraph struct {
	Nodes      []nav.Node `json:"nodes"`
	Edges      []nav.Edge `json:"edges"`
	SnapRadius float64    `json:"snapRadius"`
}

// ScenarioVehicle places one vehicle at its starting pose.
type ScenarioVehicle struct {
	ID       uint16          `json:"id"`
	Name     string          `json:"name"`
	Position core.Position3D `json:"position"`
	YawDeg   float64         `json:"yawDeg"`
}

// ScenarioGoal dispatches one destination to one vehicle.
type ScenarioGoal struct {
	VehicleID   uint16 `json:"vehicleId"`
	Destination string `json:"destination"` // "x,y,z"
}

// LoadScenario reads a scenario file.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading scenario: %w", err)
	}
	var s Scenario
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parsing scenario: %w", err)
	}
	if len(s.Vehicles) == 0 {
		return nil, fmt.Errorf("scenario has no vehicles")
	}
	if s.MaxTicks == 0 {
		s.MaxTicks = 30_000
	}
	if s.TickRate <= 0 {
		s.TickRate = 50
	}
	return &s, nil
}

// Planner builds the scenario's planner: a waypoint graph when one is
// declared, otherwise direct-line driving.
func (s *Scenario) Planner() (nav.Planner, error) {
	if s.Graph == nil {
		return nav.DirectPlanner{}, nil
	}

	var area *nav.Area
	if len(s.Area) >= 3 {
		a, err := nav.NewArea(s.Area)
		if err != nil {
			return nil, fmt.Errorf("building area: %w", err)
		}
		area = a
	}

	snapRadius := s.Graph.SnapRadius
	if snapRadius <= 0 {
		snapRadius = 25
	}
	g, err := nav.NewGraph(s.Graph.Nodes, s.Graph.Edges, snapRadius, area)
	if err != nil {
		return nil, fmt.Errorf("building graph: %w", err)
	}
	return g, nil
}

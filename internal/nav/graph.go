package nav

import (
	"fmt"
	"math"

	"github.com/groundctl/autodrive/pkg/core"
)

// NodeID names a waypoint node in the navigation graph.
type NodeID string

// Node is a named position on the navigable surface.
type Node struct {
	ID  NodeID          `json:"id"`
	Pos core.Position3D `json:"pos"`
}

// Edge connects two nodes. Cost is the planar distance between them.
type Edge struct {
	U NodeID `json:"u"`
	V NodeID `json:"v"`
}

// Graph is a waypoint-graph planner. Routes are all-pairs shortest paths
// computed lazily with Floyd-Warshall and cached per start/goal node pair.
type Graph struct {
	nodes      []Node
	byID       map[NodeID]Node
	edges      []Edge
	snapRadius float64
	area       *Area

	dist      map[NodeID]map[NodeID]float64
	nextNode  map[NodeID]map[NodeID]NodeID
	pathCache map[pathKey][]NodeID
}

type pathKey struct{ from, to NodeID }

// NewGraph builds a planner from nodes and edges. snapRadius bounds how far
// a start or goal may sit from its nearest node before the result degrades
// to Partial. area may be nil.
func NewGraph(nodes []Node, edges []Edge, snapRadius float64, area *Area) (*Graph, error) {
	byID := make(map[NodeID]Node, len(nodes))
	for _, n := range nodes {
		if _, dup := byID[n.ID]; dup {
			return nil, fmt.Errorf("duplicate node %q", n.ID)
		}
		byID[n.ID] = n
	}
	for _, e := range edges {
		if _, ok := byID[e.U]; !ok {
			return nil, fmt.Errorf("edge references unknown node %q", e.U)
		}
		if _, ok := byID[e.V]; !ok {
			return nil, fmt.Errorf("edge references unknown node %q", e.V)
		}
	}
	return &Graph{
		nodes:      nodes,
		byID:       byID,
		edges:      edges,
		snapRadius: snapRadius,
		area:       area,
		pathCache:  make(map[pathKey][]NodeID),
	}, nil
}

// computeShortestPaths runs Floyd-Warshall over all nodes and edges.
func (g *Graph) computeShortestPaths() {
	dist := make(map[NodeID]map[NodeID]float64, len(g.nodes))
	next := make(map[NodeID]map[NodeID]NodeID, len(g.nodes))
	for _, i := range g.nodes {
		dist[i.ID] = make(map[NodeID]float64, len(g.nodes))
		next[i.ID] = make(map[NodeID]NodeID, len(g.nodes))
		for _, j := range g.nodes {
			dist[i.ID][j.ID] = math.Inf(1)
		}
		dist[i.ID][i.ID] = 0
	}
	for _, e := range g.edges {
		w := g.byID[e.U].Pos.PlanarDistanceTo(g.byID[e.V].Pos)
		// undirected: vehicles travel edges both ways
		if w < dist[e.U][e.V] {
			dist[e.U][e.V] = w
			next[e.U][e.V] = e.V
		}
		if w < dist[e.V][e.U] {
			dist[e.V][e.U] = w
			next[e.V][e.U] = e.U
		}
	}
	for _, k := range g.nodes {
		for _, i := range g.nodes {
			for _, j := range g.nodes {
				if d := dist[i.ID][k.ID] + dist[k.ID][j.ID]; d < dist[i.ID][j.ID] {
					dist[i.ID][j.ID] = d
					next[i.ID][j.ID] = next[i.ID][k.ID]
				}
			}
		}
	}

	g.dist = dist
	g.nextNode = next
	g.pathCache = make(map[pathKey][]NodeID) // clear stale cache
}

func (g *Graph) ensureShortestPaths() {
	if g.dist == nil {
		g.computeShortestPaths()
	}
}

func (g *Graph) reconstructRoute(u, v NodeID) []NodeID {
	route := []NodeID{u}
	for u != v {
		n, ok := g.nextNode[u][v]
		if !ok || n == "" {
			return nil // no path
		}
		u = n
		route = append(route, u)
	}
	return route
}

// nearestNode returns the node closest to p on the horizontal plane.
func (g *Graph) nearestNode(p core.Position3D) (Node, float64, bool) {
	best := Node{}
	bestDist := math.Inf(1)
	found := false
	for _, n := range g.nodes {
		if d := p.PlanarDistanceTo(n.Pos); d < bestDist {
			best, bestDist, found = n, d, true
		}
	}
	return best, bestDist, found
}

// ComputePath snaps start and goal to their nearest graph nodes and routes
// between them. An unreachable or empty graph yields Invalid; a goal that
// snaps farther than the snap radius yields Partial (route ends at the
// nearest reachable node).
func (g *Graph) ComputePath(start, goal core.Position3D) Path {
	startNode, _, ok := g.nearestNode(start)
	if !ok {
		return Path{Status: PathInvalid}
	}
	goalNode, goalSnap, _ := g.nearestNode(goal)

	g.ensureShortestPaths()
	if math.IsInf(g.dist[startNode.ID][goalNode.ID], 1) {
		return Path{Status: PathInvalid}
	}

	key := pathKey{startNode.ID, goalNode.ID}
	route, ok := g.pathCache[key]
	if !ok {
		route = g.reconstructRoute(startNode.ID, goalNode.ID)
		if route == nil {
			return Path{Status: PathInvalid}
		}
		g.pathCache[key] = route
	}

	corners := make([]core.Position3D, len(route))
	for i, id := range route {
		corners[i] = g.byID[id].Pos
	}

	status := PathValid
	if g.snapRadius > 0 && goalSnap > g.snapRadius {
		status = PathPartial
	}
	return Path{Status: status, Corners: corners}
}

// SampleNearestPoint snaps a point onto the navigable surface. With an area
// polygon configured the surface is the polygon; otherwise the graph nodes
// stand in for it.
func (g *Graph) SampleNearestPoint(p core.Position3D, maxDist float64) (core.Position3D, bool) {
	if g.area != nil {
		return g.area.NearestPoint(p, maxDist)
	}
	n, d, ok := g.nearestNode(p)
	if !ok || d > maxDist {
		return core.Position3D{}, false
	}
	return n.Pos, true
}

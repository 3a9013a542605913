// Package fleet keeps the registry of simulated vehicles so command
// handlers can resolve a vehicle ID to its controller and body without
// touching the simulation loop.
package fleet

import (
	"sync"

	"github.com/groundctl/autodrive/internal/drive"
	"github.com/groundctl/autodrive/internal/physics"
)

// Vehicle pairs a registered controller with its physics rig.
type Vehicle struct {
	ID         uint16
	Name       string
	Controller *drive.Controller
	Rig        *physics.Rig
}

// Registry is a thread-safe vehicle registry keyed by vehicle ID.
type Registry struct {
	mu       sync.Mutex
	vehicles map[uint16]*Vehicle
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		vehicles: make(map[uint16]*Vehicle),
	}
}

// Add registers a vehicle, replacing any previous entry with the same ID.
func (r *Registry) Add(v *Vehicle) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.vehicles[v.ID] = v
}

// Get retrieves a vehicle by ID.
func (r *Registry) Get(id uint16) (*Vehicle, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.vehicles[id]
	return v, ok
}

// All returns a snapshot of the registered vehicles.
func (r *Registry) All() []*Vehicle {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*Vehicle, 0, len(r.vehicles))
	for _, v := range r.vehicles {
		out = append(out, v)
	}
	return out
}

// Reset clears the registry.
func (r *Registry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.vehicles = make(map[uint16]*Vehicle)
}

// SafeCounter is a thread-safe counter used for session-scoped tick numbers.
type SafeCounter struct {
	mu sync.Mutex
	v  uint64
}

// Value returns the current count.
func (c *SafeCounter) Value() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.v
}

// Set overwrites the count.
func (c *SafeCounter) Set(v uint64) {
	c.mu.Lock()
	c.v = v
	c.mu.Unlock()
}

// Inc increments the count.
func (c *SafeCounter) Inc() {
	c.mu.Lock()
	c.v++
	c.mu.Unlock()
}

// Package session tracks the active drive session shared between the
// simulation loop, handlers, and storage backends.
package session

import (
	"sync"

	"github.com/groundctl/autodrive/pkg/core"
)

// Context holds the current session state.
type Context struct {
	mu      sync.RWMutex
	session *core.DriveSession
}

// NewContext creates a Context with a placeholder session.
func NewContext() *Context {
	return &Context{
		session: &core.DriveSession{Name: "No session active"},
	}
}

// Get returns the current session.
func (c *Context) Get() *core.DriveSession {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.session
}

// Set replaces the current session.
func (c *Context) Set(s *core.DriveSession) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.session = s
}

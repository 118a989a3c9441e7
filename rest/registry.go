package rest

import (
	"sync"

	"github.com/flowrig/flowrig/engine"
)

// executionRegistry tracks engines for the duration of their run so a second
// request can abort them by execution id.
type executionRegistry struct {
	mu      sync.Mutex
	running map[string]*engine.Engine
}

func newExecutionRegistry() *executionRegistry {
	return &executionRegistry{
		running: make(map[string]*engine.Engine),
	}
}

func (r *executionRegistry) add(id string, e *engine.Engine) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.running[id] = e
}

func (r *executionRegistry) remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.running, id)
}

func (r *executionRegistry) abort(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.running[id]
	if !ok {
		return false
	}
	e.Abort()
	return true
}

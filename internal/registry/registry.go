// Package registry implements the concurrent Service Registry: the
// process-wide map[string]*service.Aggregate the refresh loop writes into
// and the probe loop reads from, guarded per spec §5 by a coarse registry
// RWMutex (membership changes only) layered over each Aggregate's own
// RWMutex (endpoint/document mutation).
package registry

import (
	"sync"

	"github.com/pan1c/ephc/internal/service"
)

// Registry holds one *service.Aggregate per known service name.
//
// Lock ordering: callers that need both the registry lock and an
// aggregate's lock must take the registry lock first and release it
// before taking (or while still holding, for a short snapshot) the
// aggregate lock, never the reverse, to avoid deadlocking against a
// writer blocked on the registry lock.
type Registry struct {
	mu   sync.RWMutex
	svcs map[string]*service.Aggregate
}

// New returns an empty Registry.
func New() *Registry {
	return &Registry{svcs: make(map[string]*service.Aggregate)}
}

// Get returns the aggregate registered under name, or nil if absent.
func (r *Registry) Get(name string) *service.Aggregate {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.svcs[name]
}

// Snapshot returns the current aggregates as a slice, for the probe loop
// to fan out over without holding the registry lock during the tick.
func (r *Registry) Snapshot() []*service.Aggregate {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*service.Aggregate, 0, len(r.svcs))
	for _, agg := range r.svcs {
		out = append(out, agg)
	}
	return out
}

// Names returns the currently registered service names.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.svcs))
	for name := range r.svcs {
		out = append(out, name)
	}
	return out
}

// Put inserts or replaces the aggregate registered under name. Replacement
// happens wholesale: the refresh loop decides (via document.CompareVersion)
// whether replacement is warranted before calling Put.
func (r *Registry) Put(name string, agg *service.Aggregate) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.svcs[name] = agg
}

// Delete removes name from the registry. The refresh loop does not call
// it: a service that leaves the working set stays registered.
func (r *Registry) Delete(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.svcs, name)
}

// Len reports the number of registered services.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.svcs)
}

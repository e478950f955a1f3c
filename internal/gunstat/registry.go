package gunstat

import (
	"log/slog"
	"maps"
	"slices"

	"github.com/udisondev/gunstat/internal/model"
)

// Registry owns one Context per gun, keyed by the gun's entity handle.
// A context lives from Create until Destroy; nothing outside the registry
// keeps contexts alive.
//
// Not thread-safe: owned by the update loop.
type Registry struct {
	contexts map[model.EntityID]*Context
	opts     []Option
}

// NewRegistry creates an empty registry. opts are applied to every context
// before the per-call options of Create.
func NewRegistry(opts ...Option) *Registry {
	return &Registry{
		contexts: make(map[model.EntityID]*Context),
		opts:     opts,
	}
}

// Create builds the context for gun. If gun already has one, it is returned
// unchanged.
func (r *Registry) Create(gun *model.Gun, opts ...Option) *Context {
	if c, ok := r.contexts[gun.ID]; ok {
		return c
	}
	all := make([]Option, 0, len(r.opts)+len(opts))
	all = append(all, r.opts...)
	all = append(all, opts...)

	c := NewContext(gun, all...)
	r.contexts[gun.ID] = c

	slog.Debug("stat context created", "gun", gun.ID, "name", gun.Name)
	return c
}

// Context returns the context of gun id.
func (r *Registry) Context(id model.EntityID) (*Context, bool) {
	c, ok := r.contexts[id]
	return c, ok
}

// Destroy drops the context of gun id. Providers still registered with it are
// released when their bindings next observe that the context is gone.
func (r *Registry) Destroy(id model.EntityID) bool {
	if _, ok := r.contexts[id]; !ok {
		return false
	}
	delete(r.contexts, id)
	slog.Debug("stat context destroyed", "gun", id)
	return true
}

// Len returns the number of live contexts.
func (r *Registry) Len() int {
	return len(r.contexts)
}

// IDs returns gun handles in ascending order.
func (r *Registry) IDs() []model.EntityID {
	return slices.Sorted(maps.Keys(r.contexts))
}

// RebuildDirty rebuilds every dirty context in ascending handle order and
// returns how many were rebuilt.
func (r *Registry) RebuildDirty() int {
	n := 0
	for _, id := range r.IDs() {
		c := r.contexts[id]
		if !c.Dirty() {
			continue
		}
		c.RebuildIfDirty()
		n++
	}
	return n
}

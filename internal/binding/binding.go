package binding

import (
	"fmt"
	"log/slog"
	"slices"

	"github.com/udisondev/gunstat/internal/gunstat"
	"github.com/udisondev/gunstat/internal/model"
)

// State is the lifecycle state of a Binding.
type State uint8

const (
	// StateInactive: disabled, registered nowhere.
	StateInactive State = iota
	// StateBinding: enabled, waiting for its owner to resolve.
	StateBinding
	// StateActive: registered with exactly one context.
	StateActive
	// StateUnbinding: leaving its context; transient.
	StateUnbinding
)

func (s State) String() string {
	switch s {
	case StateInactive:
		return "inactive"
	case StateBinding:
		return "binding"
	case StateActive:
		return "active"
	case StateUnbinding:
		return "unbinding"
	default:
		return fmt.Sprintf("State(%d)", uint8(s))
	}
}

// OwnerResolver finds the gun a provider handle currently belongs to.
type OwnerResolver interface {
	ResolveOwner(handle model.EntityID) (model.EntityID, bool)
}

// ContextLookup finds the stat context of a gun.
type ContextLookup interface {
	Context(gun model.EntityID) (*gunstat.Context, bool)
}

// Binding ties one provider to the context of whichever gun currently owns its
// handle. It is registered with at most one context at a time.
type Binding struct {
	sched    *Scheduler
	handle   model.EntityID
	provider gunstat.Provider

	state    State
	owner    model.EntityID
	ctx      *gunstat.Context
	attempts int
	parked   bool
	detached bool
}

// Handle returns the provider's node handle.
func (b *Binding) Handle() model.EntityID { return b.handle }

// Provider returns the bound provider.
func (b *Binding) Provider() gunstat.Provider { return b.provider }

// State returns the lifecycle state.
func (b *Binding) State() State { return b.state }

// Owner returns the gun the provider is registered with, if active.
func (b *Binding) Owner() (model.EntityID, bool) {
	if b.state != StateActive {
		return model.InvalidEntity, false
	}
	return b.owner, true
}

// Context returns the context the provider is registered with, if active.
func (b *Binding) Context() *gunstat.Context {
	if b.state != StateActive {
		return nil
	}
	return b.ctx
}

// Parked reports whether the retry budget ran out. A parent change unparks.
func (b *Binding) Parked() bool { return b.parked }

// Attempts returns failed resolution attempts since the last reset.
func (b *Binding) Attempts() int { return b.attempts }

// Enable starts seeking an owner. Resolution is attempted immediately; on
// failure the scheduler retries on later ticks. No-op unless inactive.
func (b *Binding) Enable() {
	if b.detached || b.state != StateInactive {
		return
	}
	b.state = StateBinding
	b.resetRetries()
	b.tryBind()
}

// Disable unregisters the provider and forgets its owner. No-op when inactive.
func (b *Binding) Disable() {
	switch b.state {
	case StateActive:
		b.unbind()
		b.state = StateInactive
	case StateBinding:
		b.state = StateInactive
	}
}

// Destroy disables the binding and removes it from its scheduler.
func (b *Binding) Destroy() {
	if b.detached {
		return
	}
	b.Disable()
	b.sched.remove(b)
	b.detached = true
}

// ParentChanged re-evaluates ownership right away: an active binding whose
// owner moved unbinds first, then binding is retried with a fresh budget.
func (b *Binding) ParentChanged() {
	if b.detached {
		return
	}
	switch b.state {
	case StateActive:
		if b.ownerStillValid() {
			return
		}
		b.unbind()
		b.state = StateBinding
		b.resetRetries()
		b.tryBind()
	case StateBinding:
		b.resetRetries()
		b.tryBind()
	}
}

// verify unbinds an active binding whose owner changed or whose context is
// gone. Returns true if it unbound.
func (b *Binding) verify() bool {
	if b.state != StateActive || b.ownerStillValid() {
		return false
	}
	b.unbind()
	b.state = StateBinding
	b.resetRetries()
	return true
}

// retry attempts resolution for a binding still waiting on its owner.
func (b *Binding) retry() {
	if b.state != StateBinding || b.parked {
		return
	}
	if b.tryBind() {
		return
	}
	b.attempts++
	if limit := b.sched.maxAttempts; limit > 0 && b.attempts >= limit {
		b.parked = true
		slog.Debug("stat provider parked",
			"handle", b.handle,
			"attempts", b.attempts)
	}
}

func (b *Binding) tryBind() bool {
	owner, ok := b.sched.resolver.ResolveOwner(b.handle)
	if !ok {
		return false
	}
	ctx, ok := b.sched.lookup.Context(owner)
	if !ok || ctx == nil {
		return false
	}

	ctx.Register(b.provider)
	b.owner = owner
	b.ctx = ctx
	b.state = StateActive
	b.resetRetries()

	slog.Debug("stat provider bound",
		"handle", b.handle,
		"gun", owner,
		"priority", b.provider.Priority())
	return true
}

func (b *Binding) unbind() {
	b.state = StateUnbinding
	if b.ctx != nil {
		b.ctx.Unregister(b.provider)
	}
	slog.Debug("stat provider unbound", "handle", b.handle, "gun", b.owner)
	b.ctx = nil
	b.owner = model.InvalidEntity
}

func (b *Binding) ownerStillValid() bool {
	owner, ok := b.sched.resolver.ResolveOwner(b.handle)
	if !ok || owner != b.owner {
		return false
	}
	ctx, ok := b.sched.lookup.Context(owner)
	return ok && ctx == b.ctx
}

func (b *Binding) resetRetries() {
	b.attempts = 0
	b.parked = false
}

// Scheduler owns every binding and drives deferred resolution from the
// cooperative tick.
//
// Not thread-safe: owned by the update loop.
type Scheduler struct {
	resolver    OwnerResolver
	lookup      ContextLookup
	maxAttempts int

	bindings []*Binding
	byHandle map[model.EntityID]*Binding
}

// NewScheduler creates a scheduler. maxAttempts bounds the ticks an unresolved
// binding is retried before parking; 0 retries forever.
func NewScheduler(resolver OwnerResolver, lookup ContextLookup, maxAttempts int) *Scheduler {
	return &Scheduler{
		resolver:    resolver,
		lookup:      lookup,
		maxAttempts: max(0, maxAttempts),
		byHandle:    make(map[model.EntityID]*Binding),
	}
}

// Attach creates an inactive binding for provider at handle. Attaching a
// handle twice returns the existing binding.
func (s *Scheduler) Attach(handle model.EntityID, provider gunstat.Provider) *Binding {
	if b, ok := s.byHandle[handle]; ok {
		return b
	}
	b := &Binding{sched: s, handle: handle, provider: provider}
	s.bindings = append(s.bindings, b)
	s.byHandle[handle] = b
	return b
}

// Binding returns the binding attached at handle.
func (s *Scheduler) Binding(handle model.EntityID) (*Binding, bool) {
	b, ok := s.byHandle[handle]
	return b, ok
}

// Len returns the number of attached bindings.
func (s *Scheduler) Len() int {
	return len(s.bindings)
}

// ParentChanged forwards a hierarchy move of handle to its binding.
func (s *Scheduler) ParentChanged(handle model.EntityID) {
	if b, ok := s.byHandle[handle]; ok {
		b.ParentChanged()
	}
}

// Tick runs one resolution pass. Every stale active binding is unbound before
// any pending binding registers, so no provider is ever registered with two
// contexts at once. Bindings are visited in attach order.
func (s *Scheduler) Tick() {
	snapshot := slices.Clone(s.bindings)
	for _, b := range snapshot {
		b.verify()
	}
	for _, b := range snapshot {
		b.retry()
	}
}

// Pending returns bindings still waiting on an owner (parked ones included).
func (s *Scheduler) Pending() []*Binding {
	var out []*Binding
	for _, b := range s.bindings {
		if b.state == StateBinding {
			out = append(out, b)
		}
	}
	return out
}

func (s *Scheduler) remove(b *Binding) {
	if i := slices.Index(s.bindings, b); i >= 0 {
		s.bindings = slices.Delete(s.bindings, i, i+1)
	}
	delete(s.byHandle, b.handle)
}

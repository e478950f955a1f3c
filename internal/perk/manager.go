package perk

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/udisondev/gunstat/internal/binding"
	"github.com/udisondev/gunstat/internal/combat"
	"github.com/udisondev/gunstat/internal/gunstat"
	"github.com/udisondev/gunstat/internal/model"
	"github.com/udisondev/gunstat/internal/world"
)

var (
	ErrUnknownPerk    = errors.New("unknown perk")
	ErrSlotFull       = errors.New("perk slot is full")
	ErrNoGun          = errors.New("no gun in slot")
	ErrAlreadyGranted = errors.New("perk already granted")
	ErrNotGranted     = errors.New("perk not granted")
	ErrPrerequisites  = errors.New("perk prerequisites not met")
)

// Slot is one of the two gun slots a loadout has.
type Slot uint8

const (
	SlotA Slot = iota
	SlotB
	slotCount
)

func (s Slot) String() string {
	switch s {
	case SlotA:
		return "A"
	case SlotB:
		return "B"
	default:
		return fmt.Sprintf("Slot(%d)", uint8(s))
	}
}

// ParseSlot parses "a" / "b" (case-insensitive).
func ParseSlot(s string) (Slot, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "A":
		return SlotA, nil
	case "B":
		return SlotB, nil
	default:
		return SlotA, fmt.Errorf("unknown gun slot %q", s)
	}
}

// Instance is one granted perk.
type Instance struct {
	Spec     Spec
	Slot     Slot
	Handle   model.EntityID
	Provider gunstat.Provider

	binding  *binding.Binding
	staged   bool
	attached model.EntityID
	expires  time.Time
}

// Expires returns when the perk revokes itself, or the zero time if it does not.
func (i *Instance) Expires() time.Time {
	return i.expires
}

// Bound reports whether the perk is registered with a gun's stat context.
func (i *Instance) Bound() bool {
	return i.binding.State() == binding.StateActive
}

// ManagerConfig wires a Manager to its collaborators.
type ManagerConfig struct {
	Catalog  *Catalog
	Tree     *world.Tree
	Registry *gunstat.Registry
	Hitboxes *combat.HitboxRegistry

	// MaxBindAttempts bounds deferred owner resolution (0 = unbounded).
	MaxBindAttempts int
	// SlotCapacity limits perks per slot (0 = unlimited).
	SlotCapacity int
	// Clock drives perk expiry. Defaults to time.Now.
	Clock func() time.Time
}

// Manager grants perks to the two gun slots.
//
// A granted perk is spawned under a staging node, where it has no owner, and
// is moved under its gun on the next Tick. Its binding resolves the owner
// from the tree and registers the provider with that gun's context.
//
// Not thread-safe: owned by the update loop.
type Manager struct {
	catalog  *Catalog
	tree     *world.Tree
	registry *gunstat.Registry
	hitboxes *combat.HitboxRegistry
	sched    *binding.Scheduler
	capacity int
	now      func() time.Time

	staging model.EntityID
	guns    [slotCount]model.EntityID
	slots   [slotCount][]*Instance
}

// NewManager creates a manager and its staging node.
func NewManager(cfg ManagerConfig) *Manager {
	m := &Manager{
		catalog:  cfg.Catalog,
		tree:     cfg.Tree,
		registry: cfg.Registry,
		hitboxes: cfg.Hitboxes,
		capacity: max(0, cfg.SlotCapacity),
		now:      cfg.Clock,
	}
	if m.now == nil {
		m.now = time.Now
	}
	m.sched = binding.NewScheduler(cfg.Tree, cfg.Registry, cfg.MaxBindAttempts)
	m.staging = cfg.Tree.Spawn("perk_staging", world.KindStaging, model.InvalidEntity)
	cfg.Tree.OnParentChanged(m.sched.ParentChanged)
	return m
}

// Scheduler returns the binding scheduler.
func (m *Manager) Scheduler() *binding.Scheduler {
	return m.sched
}

// Staging returns the staging node handle.
func (m *Manager) Staging() model.EntityID {
	return m.staging
}

// SetGun assigns the gun node a slot's perks attach to.
func (m *Manager) SetGun(slot Slot, gun model.EntityID) error {
	if slot >= slotCount {
		return fmt.Errorf("setting gun: unknown slot %s", slot)
	}
	if k, ok := m.tree.Kind(gun); !ok || k != world.KindGun {
		return fmt.Errorf("setting gun for slot %s: %d is not a gun node", slot, gun)
	}
	m.guns[slot] = gun
	return nil
}

// Gun returns the gun node assigned to slot.
func (m *Manager) Gun(slot Slot) (model.EntityID, bool) {
	if slot >= slotCount || m.guns[slot] == model.InvalidEntity {
		return model.InvalidEntity, false
	}
	return m.guns[slot], true
}

// Grant instantiates perk id for slot. The perk takes effect once it is
// reparented under the gun on the next Tick.
func (m *Manager) Grant(slot Slot, id string) (*Instance, error) {
	if slot >= slotCount {
		return nil, fmt.Errorf("granting %s: unknown slot %s", id, slot)
	}
	spec, ok := m.catalog.Get(id)
	if !ok {
		return nil, fmt.Errorf("granting %s: %w", id, ErrUnknownPerk)
	}
	if m.guns[slot] == model.InvalidEntity {
		return nil, fmt.Errorf("granting %s to slot %s: %w", id, slot, ErrNoGun)
	}
	if m.Has(slot, id) {
		return nil, fmt.Errorf("granting %s to slot %s: %w", id, slot, ErrAlreadyGranted)
	}
	for _, req := range spec.Requires {
		if !m.Has(slot, req) {
			return nil, fmt.Errorf("granting %s to slot %s: %w: missing %s", id, slot, ErrPrerequisites, req)
		}
	}
	if m.capacity > 0 && len(m.slots[slot]) >= m.capacity {
		return nil, fmt.Errorf("granting %s to slot %s: %w", id, slot, ErrSlotFull)
	}

	p, err := Build(spec)
	if err != nil {
		return nil, fmt.Errorf("granting %s: %w", id, err)
	}

	inst := &Instance{
		Spec:     spec,
		Slot:     slot,
		Provider: p,
		staged:   true,
	}
	if e, ok := p.(Expiring); ok {
		inst.expires = m.now().Add(e.Lifetime())
	}
	inst.Handle = m.tree.Spawn(spec.ID, world.KindPerk, m.staging)
	inst.binding = m.sched.Attach(inst.Handle, p)
	// Enabled while still staged: the owner cannot resolve yet.
	inst.binding.Enable()

	m.slots[slot] = append(m.slots[slot], inst)

	slog.Debug("perk granted",
		"perk", spec.ID,
		"slot", slot,
		"handle", inst.Handle,
		"priority", p.Priority())
	return inst, nil
}

// Revoke removes perk id from slot.
func (m *Manager) Revoke(slot Slot, id string) error {
	if slot >= slotCount {
		return fmt.Errorf("revoking %s: unknown slot %s", id, slot)
	}
	i := slices.IndexFunc(m.slots[slot], func(inst *Instance) bool { return inst.Spec.ID == id })
	if i < 0 {
		return fmt.Errorf("revoking %s from slot %s: %w", id, slot, ErrNotGranted)
	}
	inst := m.slots[slot][i]
	m.slots[slot] = slices.Delete(m.slots[slot], i, i+1)
	m.release(inst)

	slog.Debug("perk revoked", "perk", id, "slot", slot)
	return nil
}

// Clear revokes every perk of slot, newest first.
func (m *Manager) Clear(slot Slot) {
	if slot >= slotCount {
		return
	}
	list := m.slots[slot]
	m.slots[slot] = nil
	for _, inst := range slices.Backward(list) {
		m.release(inst)
	}
}

// Has reports whether perk id is granted to slot.
func (m *Manager) Has(slot Slot, id string) bool {
	if slot >= slotCount {
		return false
	}
	return slices.ContainsFunc(m.slots[slot], func(inst *Instance) bool { return inst.Spec.ID == id })
}

// Perks returns the perk ids granted to slot in grant order.
func (m *Manager) Perks(slot Slot) []string {
	if slot >= slotCount {
		return nil
	}
	ids := make([]string, len(m.slots[slot]))
	for i, inst := range m.slots[slot] {
		ids[i] = inst.Spec.ID
	}
	return ids
}

// Instances returns the granted instances of slot in grant order.
func (m *Manager) Instances(slot Slot) []*Instance {
	if slot >= slotCount {
		return nil
	}
	return slices.Clone(m.slots[slot])
}

// Tick advances one frame: expired perks are revoked, staged perks move under
// their gun, pending bindings retry, side effects follow ownership, and dirty
// contexts rebuild. Returns the number of contexts rebuilt.
func (m *Manager) Tick() int {
	m.expire()

	for slot := range slotCount {
		gun := m.guns[slot]
		for _, inst := range m.slots[slot] {
			if !inst.staged {
				continue
			}
			if err := m.tree.SetParent(inst.Handle, gun); err != nil {
				slog.Warn("reparenting perk", "perk", inst.Spec.ID, "slot", slot, "error", err)
				continue
			}
			inst.staged = false
		}
	}

	m.sched.Tick()

	for slot := range slotCount {
		for _, inst := range m.slots[slot] {
			m.syncEffect(inst)
		}
	}

	return m.registry.RebuildDirty()
}

// expire revokes every perk whose lifetime has passed.
func (m *Manager) expire() {
	now := m.now()
	for slot := range slotCount {
		var expired []*Instance
		m.slots[slot] = slices.DeleteFunc(m.slots[slot], func(inst *Instance) bool {
			if inst.expires.IsZero() || now.Before(inst.expires) {
				return false
			}
			expired = append(expired, inst)
			return true
		})
		for _, inst := range expired {
			m.release(inst)
			slog.Debug("perk expired", "perk", inst.Spec.ID, "slot", slot)
		}
	}
}

// syncEffect moves a perk's side effects to whichever gun its binding is on.
func (m *Manager) syncEffect(inst *Instance) {
	eff, ok := inst.Provider.(Effect)
	if !ok {
		return
	}
	owner, _ := inst.binding.Owner()
	if owner == inst.attached {
		return
	}
	if inst.attached != model.InvalidEntity {
		m.detach(inst, eff)
	}
	if owner == model.InvalidEntity {
		return
	}
	if env, ok := m.env(owner); ok {
		eff.Attach(env)
		inst.attached = owner
		env.Context.MarkDirty()
	}
}

func (m *Manager) detach(inst *Instance, eff Effect) {
	if env, ok := m.env(inst.attached); ok {
		eff.Detach(env)
		env.Context.MarkDirty()
	} else {
		eff.Detach(Env{GunID: inst.attached, Hitboxes: m.hitboxes})
	}
	inst.attached = model.InvalidEntity
}

func (m *Manager) env(gun model.EntityID) (Env, bool) {
	ctx, ok := m.registry.Context(gun)
	if !ok {
		return Env{}, false
	}
	return Env{GunID: gun, Gun: ctx.Gun(), Context: ctx, Hitboxes: m.hitboxes}, true
}

func (m *Manager) release(inst *Instance) {
	if eff, ok := inst.Provider.(Effect); ok && inst.attached != model.InvalidEntity {
		m.detach(inst, eff)
	}
	inst.binding.Destroy()
	m.tree.Destroy(inst.Handle)
}

package gunstat

import (
	"cmp"
	"log/slog"
	"math"
	"slices"

	"github.com/udisondev/gunstat/internal/model"
)

type registration struct {
	provider Provider
	priority int
	seq      uint64
}

type options struct {
	base          *BaseValues
	fireWriteBack bool
	ammoWriteBack bool
	targets       []Target
}

// Option configures a Context.
type Option func(*options)

// WithBase supplies base values instead of capturing them from the gun.
func WithBase(b BaseValues) Option {
	return func(o *options) {
		b = b.clamped()
		o.base = &b
	}
}

// WithoutCapture uses DefaultBase instead of capturing from the gun.
func WithoutCapture() Option {
	return WithBase(DefaultBase())
}

// WithFireControlWriteBack toggles write-back into the gun's fire control (default on).
func WithFireControlWriteBack(enabled bool) Option {
	return func(o *options) { o.fireWriteBack = enabled }
}

// WithAmmoWriteBack toggles write-back into the gun's ammo (default on).
func WithAmmoWriteBack(enabled bool) Option {
	return func(o *options) { o.ammoWriteBack = enabled }
}

// WithTargets attaches extra write-back targets, run after the gun's own.
func WithTargets(targets ...Target) Option {
	return func(o *options) { o.targets = append(o.targets, targets...) }
}

// Context aggregates every registered provider into one gun's stat table.
//
// The cached table is valid iff the context is clean. Register, Unregister,
// MarkDirty and SetBase make it dirty; every read accessor rebuilds first, so
// reads are never stale relative to the last mutation.
//
// Not thread-safe: a context is owned by the single update loop of its gun.
type Context struct {
	gun  *model.Gun
	base BaseValues

	regs    []registration
	nextSeq uint64

	table      Table
	dirty      bool
	rebuilding bool
	rebuilds   uint64

	targets []Target
}

// NewContext creates a dirty context for gun. Base values are captured from the
// gun unless WithBase/WithoutCapture is given.
func NewContext(gun *model.Gun, opts ...Option) *Context {
	o := options{fireWriteBack: true, ammoWriteBack: true}
	for _, opt := range opts {
		opt(&o)
	}

	c := &Context{
		gun:   gun,
		table: NewTable(),
		dirty: true,
	}
	if o.base != nil {
		c.base = *o.base
	} else {
		c.base = CaptureBase(gun)
	}

	if gun != nil {
		if o.fireWriteBack && gun.Fire != nil {
			c.targets = append(c.targets, FireControlTarget{Fire: gun.Fire})
		}
		if o.ammoWriteBack && gun.Ammo != nil {
			c.targets = append(c.targets, AmmoTarget{Ammo: gun.Ammo})
		}
		if gun.Spread != nil {
			c.targets = append(c.targets, SpreadTarget{Spread: gun.Spread})
		}
	}
	c.targets = append(c.targets, o.targets...)
	return c
}

// Gun returns the owning gun.
func (c *Context) Gun() *model.Gun {
	return c.gun
}

// Owner returns the view passed to providers.
func (c *Context) Owner() Owner {
	o := Owner{Base: c.base}
	if c.gun != nil {
		o.ID = c.gun.ID
		o.Name = c.gun.Name
		o.FireMode = c.gun.FireMode()
		o.ShotType = c.gun.ShotType()
	}
	return o
}

// Register adds p. Registering a nil or already registered provider is a no-op.
func (c *Context) Register(p Provider) {
	if p == nil || c.indexOf(p) >= 0 {
		return
	}
	c.nextSeq++
	c.regs = append(c.regs, registration{provider: p, priority: p.Priority(), seq: c.nextSeq})
	c.dirty = true

	slog.Debug("stat provider registered",
		"gun", c.ownerID(),
		"priority", p.Priority(),
		"providers", len(c.regs))
}

// Unregister removes p. Removing an absent provider is a no-op.
func (c *Context) Unregister(p Provider) {
	if p == nil {
		return
	}
	i := c.indexOf(p)
	if i < 0 {
		return
	}
	c.regs = slices.Delete(c.regs, i, i+1)
	c.dirty = true

	slog.Debug("stat provider unregistered",
		"gun", c.ownerID(),
		"providers", len(c.regs))
}

// IsRegistered reports whether p is currently registered.
func (c *Context) IsRegistered(p Provider) bool {
	return p != nil && c.indexOf(p) >= 0
}

// Len returns the number of registered providers.
func (c *Context) Len() int {
	return len(c.regs)
}

// MarkDirty invalidates the cached table.
func (c *Context) MarkDirty() {
	c.dirty = true
}

// Dirty reports whether the next read will rebuild.
func (c *Context) Dirty() bool {
	return c.dirty
}

// Rebuilds returns how many times the table has been rebuilt.
func (c *Context) Rebuilds() uint64 {
	return c.rebuilds
}

// ForceRebuildNow rebuilds synchronously regardless of the dirty flag.
func (c *Context) ForceRebuildNow() {
	c.dirty = true
	c.RebuildIfDirty()
}

// RebuildIfDirty recomputes the table if dirty, then runs write-back.
//
// Providers run ascending by priority; equal priorities run in registration
// order (a re-registered provider counts as the newest). Reads issued from
// inside Apply see the partially built table and do not recurse.
func (c *Context) RebuildIfDirty() {
	if !c.dirty || c.rebuilding {
		return
	}
	c.rebuilding = true
	defer func() { c.rebuilding = false }()
	// Cleared before Apply so a Register/Unregister issued from inside a
	// provider leaves the context dirty for the next read.
	c.dirty = false

	c.table.Reset()
	slices.SortStableFunc(c.regs, func(a, b registration) int {
		return cmp.Or(cmp.Compare(a.priority, b.priority), cmp.Compare(a.seq, b.seq))
	})

	owner := c.Owner()
	// Apply may unregister providers; iterate over a snapshot.
	for _, r := range slices.Clone(c.regs) {
		r.provider.Apply(owner, &c.table)
	}

	c.rebuilds++

	c.writeBack()
}

// Base returns the base values.
func (c *Context) Base() BaseValues {
	return c.base
}

// SetBase replaces the base value of a and marks the context dirty.
func (c *Context) SetBase(a Attribute, v float64) {
	c.base[a] = a.clampBase(v)
	c.dirty = true
}

// Table returns a copy of the current table.
func (c *Context) Table() Table {
	c.RebuildIfDirty()
	return c.table
}

// Stack returns the current stack of a.
func (c *Context) Stack(a Attribute) Stack {
	c.RebuildIfDirty()
	return c.table[a]
}

// FinalValue evaluates a's stack against base with the legacy formula.
// No domain clamp is applied.
func (c *Context) FinalValue(a Attribute, base float64) float64 {
	c.RebuildIfDirty()
	return c.table[a].Evaluate(base)
}

// FinalMultiplier evaluates a's stack against a base of 1, floored at 0.0001
// so callers can divide by it.
func (c *Context) FinalMultiplier(a Attribute) float64 {
	c.RebuildIfDirty()
	return math.Max(0.0001, c.table[a].Evaluate(1))
}

// Final resolves a from its base with the attribute's own formula, rounding
// and domain clamp. This is the value write-back pushes to consumers.
func (c *Context) Final(a Attribute) float64 {
	c.RebuildIfDirty()
	return c.final(a)
}

func (c *Context) final(a Attribute) float64 {
	return a.finalize(c.table[a], c.base[a])
}

func (c *Context) Damage() float64           { return c.Final(AttrDamage) }
func (c *Context) FireRate() float64         { return c.Final(AttrFireRate) }
func (c *Context) SemiFireCooldown() float64 { return c.Final(AttrSemiFireCooldown) }
func (c *Context) BulletSpeed() float64      { return c.Final(AttrBulletSpeed) }
func (c *Context) MaxRange() float64         { return c.Final(AttrMaxRange) }
func (c *Context) FalloffStart() float64     { return c.Final(AttrFalloffStart) }
func (c *Context) MagazineSize() int         { return int(c.Final(AttrMagazineSize)) }
func (c *Context) ReloadTime() float64       { return c.Final(AttrReloadTime) }
func (c *Context) PelletsPerShot() int       { return int(c.Final(AttrPelletsPerShot)) }

// SpreadRecoverySpeedFinal returns the final recovery speed (base included).
func (c *Context) SpreadRecoverySpeedFinal() float64 {
	return c.Final(AttrSpreadRecoverySpeed)
}

// SpreadRecoverySpeedMul returns the final recovery speed relative to its base.
func (c *Context) SpreadRecoverySpeedMul() float64 {
	final := c.Final(AttrSpreadRecoverySpeed)
	base := AttrSpreadRecoverySpeed.clampBase(c.base[AttrSpreadRecoverySpeed])
	return math.Max(0.0001, final/base)
}

// Resolved returns every final value.
func (c *Context) Resolved() Resolved {
	c.RebuildIfDirty()
	return c.resolved()
}

func (c *Context) resolved() Resolved {
	return Resolved{
		Damage:              c.final(AttrDamage),
		FireRate:            c.final(AttrFireRate),
		SemiFireCooldown:    c.final(AttrSemiFireCooldown),
		BulletSpeed:         c.final(AttrBulletSpeed),
		MaxRange:            c.final(AttrMaxRange),
		FalloffStart:        c.final(AttrFalloffStart),
		MagazineSize:        int(c.final(AttrMagazineSize)),
		ReloadTime:          c.final(AttrReloadTime),
		SpreadRecoverySpeed: c.final(AttrSpreadRecoverySpeed),
		PelletsPerShot:      int(c.final(AttrPelletsPerShot)),
	}
}

// writeBack pushes final values into every target. It reads the cache directly
// and never touches the dirty flag.
func (c *Context) writeBack() {
	if len(c.targets) == 0 {
		return
	}
	r := c.resolved()
	for _, t := range c.targets {
		t.WriteBack(r)
	}
}

func (c *Context) indexOf(p Provider) int {
	for i := range c.regs {
		if c.regs[i].provider == p {
			return i
		}
	}
	return -1
}

func (c *Context) ownerID() model.EntityID {
	if c.gun == nil {
		return model.InvalidEntity
	}
	return c.gun.ID
}

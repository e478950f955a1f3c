package model

import (
	"fmt"
	"slices"
	"strings"
)

// ReloadType selects how a gun refills its magazine.
type ReloadType uint8

const (
	ReloadMagazine  ReloadType = iota // whole magazine at once
	ReloadPerBullet                   // one insert step at a time
)

func (t ReloadType) String() string {
	switch t {
	case ReloadMagazine:
		return "magazine"
	case ReloadPerBullet:
		return "per_bullet"
	default:
		return fmt.Sprintf("ReloadType(%d)", uint8(t))
	}
}

// ParseReloadType parses "magazine" / "per_bullet" (case-insensitive).
func ParseReloadType(s string) (ReloadType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "magazine", "":
		return ReloadMagazine, nil
	case "per_bullet":
		return ReloadPerBullet, nil
	default:
		return ReloadMagazine, fmt.Errorf("unknown reload type %q", s)
	}
}

// InsertCountHook may override how many rounds one per-bullet insert step loads.
// It receives the default count and returns the count to use.
type InsertCountHook func(a *Ammo, count int) int

// ReloadTimeHook may override the duration of the reload about to run.
type ReloadTimeHook func(a *Ammo, seconds float64) float64

type insertHook struct {
	key any
	fn  InsertCountHook
}

type reloadTimeHook struct {
	key any
	fn  ReloadTimeHook
}

// Ammo tracks magazine and reserve rounds.
// Not thread-safe: owned by the gun's update loop.
type Ammo struct {
	magazineSize int
	inMag        int
	reserve      int
	reloadTime   float64

	Reload             ReloadType
	InsertCountPerStep int

	reloading       bool
	uninterruptible bool
	reloads         int

	// OnAmmoChanged fires with (inMag, reserve) whenever either changes
	// or the magazine size is rewritten.
	OnAmmoChanged func(inMag, reserve int)
	OnReloadStart func()
	OnReloadEnd   func()

	insertHooks     []insertHook
	reloadTimeHooks []reloadTimeHook
}

// NewAmmo creates a full magazine with the given reserve.
func NewAmmo(magazineSize, reserve int, reloadTime float64) *Ammo {
	magazineSize = max(1, magazineSize)
	return &Ammo{
		magazineSize:       magazineSize,
		inMag:              magazineSize,
		reserve:            max(0, reserve),
		reloadTime:         reloadTime,
		InsertCountPerStep: 1,
	}
}

// MagazineSize returns the current magazine capacity.
func (a *Ammo) MagazineSize() int { return a.magazineSize }

// InMag returns rounds currently loaded.
func (a *Ammo) InMag() int { return a.inMag }

// Reserve returns rounds held outside the magazine.
func (a *Ammo) Reserve() int { return a.reserve }

// ReloadTime returns seconds for a magazine reload.
func (a *Ammo) ReloadTime() float64 { return a.reloadTime }

// IsReloading reports whether an external reload is in progress.
func (a *Ammo) IsReloading() bool { return a.reloading }

// ReloadCount returns how many reloads have started.
func (a *Ammo) ReloadCount() int { return a.reloads }

// EffectiveReloadTime returns ReloadTime after every reload-time hook ran,
// floored at 0.01 s.
func (a *Ammo) EffectiveReloadTime() float64 {
	t := a.reloadTime
	for _, h := range a.reloadTimeHooks {
		t = h.fn(a, t)
	}
	return max(0.01, t)
}

// IsUninterruptible reports whether the current reload cannot be cancelled.
func (a *Ammo) IsUninterruptible() bool { return a.uninterruptible }

// SetMagazine rewrites capacity and reload time. Loaded rounds are clamped to
// the new capacity. Returns true and notifies only if something changed.
func (a *Ammo) SetMagazine(size int, reloadTime float64) bool {
	size = max(1, size)
	if size == a.magazineSize && reloadTime == a.reloadTime {
		return false
	}
	a.magazineSize = size
	a.reloadTime = reloadTime
	a.inMag = min(a.inMag, a.magazineSize)
	a.notify()
	return true
}

// HasAmmoInMag reports whether at least one round is loaded.
func (a *Ammo) HasAmmoInMag() bool { return a.inMag > 0 }

// TryConsumeOne removes one loaded round. Returns false on an empty magazine.
func (a *Ammo) TryConsumeOne() bool {
	if a.inMag <= 0 {
		return false
	}
	a.inMag--
	a.notify()
	return true
}

// NeedsReload reports whether a reload would load anything.
func (a *Ammo) NeedsReload() bool {
	if a.reserve <= 0 {
		return false
	}
	return a.inMag < a.magazineSize
}

// BeginExternalReload marks a reload driven by the fire-control loop.
func (a *Ammo) BeginExternalReload(uninterruptible bool) {
	a.reloading = true
	a.uninterruptible = uninterruptible
	a.reloads++
	if a.OnReloadStart != nil {
		a.OnReloadStart()
	}
}

// EndExternalReload clears the reload flags.
func (a *Ammo) EndExternalReload() {
	a.uninterruptible = false
	a.reloading = false
	if a.OnReloadEnd != nil {
		a.OnReloadEnd()
	}
}

// ApplyMagazineReloadNow moves as many reserve rounds as fit into the magazine.
func (a *Ammo) ApplyMagazineReloadNow() {
	needed := a.magazineSize - a.inMag
	if needed <= 0 {
		return
	}
	take := min(needed, a.reserve)
	a.inMag += take
	a.reserve -= take
	a.notify()
}

// CanInsertOne reports whether a per-bullet insert step would load anything.
func (a *Ammo) CanInsertOne() bool {
	return a.reserve > 0 && a.inMag < a.magazineSize
}

// AddInsertCountHook registers a hook consulted by InsertOneNow under key,
// replacing any hook already registered with the same key.
func (a *Ammo) AddInsertCountHook(key any, h InsertCountHook) {
	if h == nil {
		return
	}
	for i := range a.insertHooks {
		if a.insertHooks[i].key == key {
			a.insertHooks[i].fn = h
			return
		}
	}
	a.insertHooks = append(a.insertHooks, insertHook{key: key, fn: h})
}

// RemoveInsertCountHook drops the hook registered under key.
func (a *Ammo) RemoveInsertCountHook(key any) {
	a.insertHooks = slices.DeleteFunc(a.insertHooks, func(h insertHook) bool { return h.key == key })
}

// AddReloadTimeHook registers a hook consulted by EffectiveReloadTime under
// key, replacing any hook already registered with the same key.
func (a *Ammo) AddReloadTimeHook(key any, h ReloadTimeHook) {
	if h == nil {
		return
	}
	for i := range a.reloadTimeHooks {
		if a.reloadTimeHooks[i].key == key {
			a.reloadTimeHooks[i].fn = h
			return
		}
	}
	a.reloadTimeHooks = append(a.reloadTimeHooks, reloadTimeHook{key: key, fn: h})
}

// RemoveReloadTimeHook drops the hook registered under key.
func (a *Ammo) RemoveReloadTimeHook(key any) {
	a.reloadTimeHooks = slices.DeleteFunc(a.reloadTimeHooks, func(h reloadTimeHook) bool { return h.key == key })
}

// InsertOneNow performs one per-bullet insert step. Hooks may change the count;
// the result is floored at 1 and limited by free space and reserve.
func (a *Ammo) InsertOneNow() {
	if !a.CanInsertOne() {
		return
	}

	count := max(1, a.InsertCountPerStep)
	for _, h := range a.insertHooks {
		count = h.fn(a, count)
	}
	count = max(1, count)

	take := min(count, min(a.magazineSize-a.inMag, a.reserve))
	if take <= 0 {
		return
	}
	a.inMag += take
	a.reserve -= take
	a.notify()
}

func (a *Ammo) notify() {
	if a.OnAmmoChanged != nil {
		a.OnAmmoChanged(a.inMag, a.reserve)
	}
}

package combat

import (
	"cmp"
	"fmt"
	"slices"
	"strings"

	"github.com/udisondev/gunstat/internal/model"
)

// Zone is the body part a projectile hit.
type Zone uint8

const (
	ZoneBody Zone = iota
	ZoneHead
	zoneCount
)

func (z Zone) String() string {
	switch z {
	case ZoneBody:
		return "body"
	case ZoneHead:
		return "head"
	default:
		return fmt.Sprintf("Zone(%d)", uint8(z))
	}
}

// ParseZone parses "body" / "head" (case-insensitive).
func ParseZone(s string) (Zone, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "body":
		return ZoneBody, nil
	case "head":
		return ZoneHead, nil
	default:
		return ZoneBody, fmt.Errorf("unknown hit zone %q", s)
	}
}

type addPctEntry struct {
	key      any
	priority int
	addPct   [zoneCount]float64
}

// HitboxRegistry resolves per-gun hit zone multipliers. Each zone has a base
// multiplier; perks stack add-pct bonuses on top of it, keyed by whatever
// registered them. A gun override replaces the result entirely.
//
// Not thread-safe: owned by the update loop.
type HitboxRegistry struct {
	base      [zoneCount]float64
	entries   map[model.EntityID][]addPctEntry
	overrides map[model.EntityID][zoneCount]float64
}

// NewHitboxRegistry creates a registry with the given base zone multipliers.
// Negative values are floored at 0.
func NewHitboxRegistry(body, head float64) *HitboxRegistry {
	return &HitboxRegistry{
		base:      [zoneCount]float64{max(0, body), max(0, head)},
		entries:   make(map[model.EntityID][]addPctEntry),
		overrides: make(map[model.EntityID][zoneCount]float64),
	}
}

// Base returns the base multiplier of zone.
func (r *HitboxRegistry) Base(zone Zone) float64 {
	if zone >= zoneCount {
		return 1
	}
	return r.base[zone]
}

// RegisterAddPct adds (or replaces, for an existing key) a bonus for gun.
// Negative bonuses are floored at 0. A nil key is ignored.
func (r *HitboxRegistry) RegisterAddPct(gun model.EntityID, key any, bodyAddPct, headAddPct float64, priority int) {
	if key == nil {
		return
	}
	e := addPctEntry{
		key:      key,
		priority: priority,
		addPct:   [zoneCount]float64{max(0, bodyAddPct), max(0, headAddPct)},
	}
	list := r.entries[gun]
	for i := range list {
		if list[i].key == key {
			list[i] = e
			return
		}
	}
	r.entries[gun] = append(list, e)
}

// UnregisterAddPct removes the bonus registered under key for gun.
func (r *HitboxRegistry) UnregisterAddPct(gun model.EntityID, key any) {
	list, ok := r.entries[gun]
	if !ok {
		return
	}
	list = slices.DeleteFunc(list, func(e addPctEntry) bool { return e.key == key })
	if len(list) == 0 {
		delete(r.entries, gun)
		return
	}
	r.entries[gun] = list
}

// SetOverride pins gun's zone multipliers to absolute values.
func (r *HitboxRegistry) SetOverride(gun model.EntityID, body, head float64) {
	r.overrides[gun] = [zoneCount]float64{max(0, body), max(0, head)}
}

// ClearOverride removes gun's override.
func (r *HitboxRegistry) ClearOverride(gun model.EntityID) {
	delete(r.overrides, gun)
}

// Len returns the number of bonuses registered for gun.
func (r *HitboxRegistry) Len(gun model.EntityID) int {
	return len(r.entries[gun])
}

// Multiplier returns the final multiplier for a hit on zone by gun:
// the override if one is set, otherwise base * (1 + sum of add-pct bonuses).
func (r *HitboxRegistry) Multiplier(gun model.EntityID, zone Zone) float64 {
	if zone >= zoneCount {
		return 1
	}
	if o, ok := r.overrides[gun]; ok {
		return o[zone]
	}
	return max(0, r.base[zone]*(1+r.totalAddPct(gun, zone)))
}

func (r *HitboxRegistry) totalAddPct(gun model.EntityID, zone Zone) float64 {
	list := r.entries[gun]
	if len(list) == 0 {
		return 0
	}
	slices.SortStableFunc(list, func(a, b addPctEntry) int {
		return cmp.Compare(a.priority, b.priority)
	})
	var sum float64
	for _, e := range list {
		sum += e.addPct[zone]
	}
	return sum
}

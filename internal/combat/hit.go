package combat

import (
	"errors"
	"fmt"
	"math"

	"github.com/udisondev/gunstat/internal/gunstat"
	"github.com/udisondev/gunstat/internal/model"
)

// SchemaVersion is the only HitEvent layout Resolve accepts.
const SchemaVersion = 1

var (
	// ErrSchemaVersion is returned for events of an unknown layout.
	ErrSchemaVersion = errors.New("unsupported hit event schema version")
	// ErrWrongGun is returned when an event is resolved against another gun's context.
	ErrWrongGun = errors.New("hit event source does not match context")
)

// HitEvent describes one projectile hit as reported by the physics layer.
type HitEvent struct {
	SchemaVersion int
	Source        model.EntityID
	Zone          Zone
	// Distance travelled before the hit, meters.
	Distance float64
	// ArmorReduction is the fraction of damage absorbed, in [0, 1].
	ArmorReduction float64
}

// NewHitEvent creates an event of the current schema version.
func NewHitEvent(source model.EntityID, zone Zone, distance float64) HitEvent {
	return HitEvent{
		SchemaVersion: SchemaVersion,
		Source:        source,
		Zone:          zone,
		Distance:      distance,
	}
}

// Validate checks the event is well formed.
func (e HitEvent) Validate() error {
	if e.SchemaVersion != SchemaVersion {
		return fmt.Errorf("%w: %d", ErrSchemaVersion, e.SchemaVersion)
	}
	if e.Source == model.InvalidEntity {
		return errors.New("hit event has no source gun")
	}
	if e.Zone >= zoneCount {
		return fmt.Errorf("hit event zone %s is unknown", e.Zone)
	}
	if e.Distance < 0 || math.IsNaN(e.Distance) {
		return fmt.Errorf("hit event distance %v is negative", e.Distance)
	}
	if e.ArmorReduction < 0 || e.ArmorReduction > 1 || math.IsNaN(e.ArmorReduction) {
		return fmt.Errorf("hit event armor reduction %v out of [0, 1]", e.ArmorReduction)
	}
	return nil
}

// Hit is the resolved outcome of a HitEvent.
type Hit struct {
	Damage         float64
	BaseDamage     float64
	ZoneMultiplier float64
	Falloff        float64
	Headshot       bool
}

// Resolve computes the damage a hit deals: the context's damage times the
// zone multiplier times distance falloff, minus armor. A nil hitbox registry
// uses a multiplier of 1 for every zone.
func Resolve(ctx *gunstat.Context, hitboxes *HitboxRegistry, e HitEvent) (Hit, error) {
	if err := e.Validate(); err != nil {
		return Hit{}, fmt.Errorf("resolving hit: %w", err)
	}
	if ctx == nil || ctx.Gun() == nil || ctx.Gun().ID != e.Source {
		return Hit{}, fmt.Errorf("resolving hit from %d: %w", e.Source, ErrWrongGun)
	}

	h := Hit{
		BaseDamage:     max(0, ctx.Damage()),
		ZoneMultiplier: 1,
		Headshot:       e.Zone == ZoneHead,
	}
	if hitboxes != nil {
		h.ZoneMultiplier = hitboxes.Multiplier(e.Source, e.Zone)
	}
	h.Falloff = LinearFalloff(e.Distance, ctx.FalloffStart(), ctx.MaxRange())
	h.Damage = h.BaseDamage * h.ZoneMultiplier * h.Falloff * (1 - e.ArmorReduction)
	return h, nil
}

// LinearFalloff returns 1 up to start, 0 from maxRange on and a linear ramp in
// between. A maxRange of (almost) zero disables falloff.
func LinearFalloff(distance, start, maxRange float64) float64 {
	if maxRange <= 0.0001 {
		return 1
	}
	start = max(0, start)
	end := max(start+0.0001, maxRange)

	switch {
	case distance <= start:
		return 1
	case distance >= end:
		return 0
	}
	t := (distance - start) / (end - start)
	return 1 - min(1, max(0, t))
}

package gunstat

import "github.com/udisondev/gunstat/internal/model"

// BaseValues are the unmodified values each attribute is resolved from.
type BaseValues [AttrCount]float64

// DefaultBase returns the base used when nothing can be captured from a gun.
func DefaultBase() BaseValues {
	var b BaseValues
	b[AttrDamage] = 10
	b[AttrFireRate] = 5
	b[AttrSemiFireCooldown] = 0.15
	b[AttrBulletSpeed] = 50
	b[AttrMaxRange] = 40
	b[AttrFalloffStart] = 0
	b[AttrMagazineSize] = 12
	b[AttrReloadTime] = 1.5
	b[AttrSpreadRecoverySpeed] = 1
	b[AttrPelletsPerShot] = 8
	return b
}

// CaptureBase reads base values from the gun's consumers. Consumers the gun
// does not have keep DefaultBase values. Every value gets its attribute's
// base floor (magazine >= 1, reload >= 0.01, ...).
func CaptureBase(gun *model.Gun) BaseValues {
	b := DefaultBase()
	if gun == nil {
		return b.clamped()
	}

	if gun.Fire != nil {
		s := gun.Fire.Stats()
		b[AttrDamage] = s.Damage
		b[AttrFireRate] = s.FireRate
		b[AttrSemiFireCooldown] = s.SemiFireCooldown
		b[AttrBulletSpeed] = s.BulletSpeed
		b[AttrMaxRange] = s.MaxRange
		b[AttrFalloffStart] = s.FalloffStart
		b[AttrPelletsPerShot] = float64(s.PelletsPerShot)
	}
	if gun.Ammo != nil {
		b[AttrMagazineSize] = float64(gun.Ammo.MagazineSize())
		b[AttrReloadTime] = gun.Ammo.ReloadTime()
	}
	if gun.Spread != nil {
		b[AttrSpreadRecoverySpeed] = gun.Spread.RecoverSpeed()
	}
	return b.clamped()
}

// Get returns the base value of a.
func (b BaseValues) Get(a Attribute) float64 {
	return b[a]
}

func (b BaseValues) clamped() BaseValues {
	for a := Attribute(0); a < AttrCount; a++ {
		b[a] = a.clampBase(b[a])
	}
	return b
}

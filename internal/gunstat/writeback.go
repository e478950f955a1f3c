package gunstat

import "github.com/udisondev/gunstat/internal/model"

// Resolved holds every final, domain-clamped attribute value of a gun.
type Resolved struct {
	Damage              float64
	FireRate            float64
	SemiFireCooldown    float64
	BulletSpeed         float64
	MaxRange            float64
	FalloffStart        float64
	MagazineSize        int
	ReloadTime          float64
	SpreadRecoverySpeed float64
	PelletsPerShot      int
}

// Target is a consumer that receives final values after every rebuild.
// WriteBack must not call back into the Context that invoked it to mutate it.
type Target interface {
	WriteBack(r Resolved)
}

// TargetFunc adapts a function to Target.
type TargetFunc func(r Resolved)

func (f TargetFunc) WriteBack(r Resolved) { f(r) }

// FireControlTarget pushes fire stats into a gun's fire control.
type FireControlTarget struct {
	Fire *model.FireControl
}

func (t FireControlTarget) WriteBack(r Resolved) {
	if t.Fire == nil {
		return
	}
	t.Fire.SetStats(model.FireStats{
		Damage:           r.Damage,
		FireRate:         r.FireRate,
		SemiFireCooldown: r.SemiFireCooldown,
		BulletSpeed:      r.BulletSpeed,
		MaxRange:         r.MaxRange,
		FalloffStart:     r.FalloffStart,
		PelletsPerShot:   r.PelletsPerShot,
	})
}

// AmmoTarget pushes magazine size and reload time into a gun's ammo.
type AmmoTarget struct {
	Ammo *model.Ammo
}

func (t AmmoTarget) WriteBack(r Resolved) {
	if t.Ammo == nil {
		return
	}
	t.Ammo.SetMagazine(r.MagazineSize, r.ReloadTime)
}

// SpreadTarget pushes the final recovery speed into a gun's spread.
type SpreadTarget struct {
	Spread *model.Spread
}

func (t SpreadTarget) WriteBack(r Resolved) {
	if t.Spread == nil {
		return
	}
	t.Spread.SetRecoverSpeed(r.SpreadRecoverySpeed)
}

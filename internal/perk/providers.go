package perk

import (
	"math"
	"time"

	"github.com/udisondev/gunstat/internal/gunstat"
	"github.com/udisondev/gunstat/internal/model"
)

// DamageFireRateAddPct adds percentage damage and fire speed. In semi mode the
// fire speed bonus shortens SemiFireCooldown instead of raising FireRate.
// It resets Mul on every stack it touches.
type DamageFireRateAddPct struct {
	priority       int
	DamageAddPct   float64
	FireRateAddPct float64
}

func (p *DamageFireRateAddPct) Priority() int { return p.priority }

func (p *DamageFireRateAddPct) Apply(owner gunstat.Owner, t *gunstat.Table) {
	dmg := t.At(gunstat.AttrDamage)
	dmg.AddPct += p.DamageAddPct
	dmg.Mul = 1

	if owner.FireMode == model.FireModeSemi {
		cd := t.At(gunstat.AttrSemiFireCooldown)
		cd.AddPct -= p.FireRateAddPct
		cd.Mul = 1
		return
	}
	fr := t.At(gunstat.AttrFireRate)
	fr.AddPct += p.FireRateAddPct
	fr.Mul = 1
}

// DoubleMagSlowerReload multiplies magazine size and reload time.
type DoubleMagSlowerReload struct {
	priority    int
	MagazineMul float64
	ReloadMul   float64
}

func (p *DoubleMagSlowerReload) Priority() int { return p.priority }

func (p *DoubleMagSlowerReload) Apply(_ gunstat.Owner, t *gunstat.Table) {
	t.At(gunstat.AttrMagazineSize).Mul *= max(0.01, p.MagazineMul)
	t.At(gunstat.AttrReloadTime).Mul *= max(0.01, p.ReloadMul)
}

// MagFixedConvertToDamage pins the magazine to FixedMagazine rounds and turns
// every round the magazine would otherwise hold above that into damage.
// It runs late so it sees every other magazine bonus.
type MagFixedConvertToDamage struct {
	priority             int
	FixedMagazine        int
	DamageAddPctPerExtra float64
}

func (p *MagFixedConvertToDamage) Priority() int { return p.priority }

func (p *MagFixedConvertToDamage) Apply(owner gunstat.Owner, t *gunstat.Table) {
	fixed := max(1, p.FixedMagazine)
	perExtra := max(0, p.DamageAddPctPerExtra)

	mag := t.At(gunstat.AttrMagazineSize)
	baseMag := max(1, math.Round(owner.Base[gunstat.AttrMagazineSize]))
	should := max(0, int(math.RoundToEven(mag.Evaluate(baseMag))))
	if extra := max(0, should-fixed); extra > 0 && perExtra > 0 {
		t.At(gunstat.AttrDamage).AddPct += float64(extra) * perExtra
	}

	mag.Flat = float64(fixed) - baseMag
	mag.AddPct = 0
	mag.Mul = 1
}

// AutoFireDoubleBonuses doubles the fire speed AddPct accumulated so far and,
// with ForceAuto, switches a semi gun to auto while attached.
type AutoFireDoubleBonuses struct {
	priority     int
	ForceAuto    bool
	DoubleAddPct bool

	switched bool
	prevMode model.FireMode
}

func (p *AutoFireDoubleBonuses) Priority() int { return p.priority }

func (p *AutoFireDoubleBonuses) Apply(owner gunstat.Owner, t *gunstat.Table) {
	if !p.DoubleAddPct {
		return
	}
	if owner.FireMode == model.FireModeSemi {
		t.At(gunstat.AttrSemiFireCooldown).AddPct *= 2
		return
	}
	t.At(gunstat.AttrFireRate).AddPct *= 2
}

func (p *AutoFireDoubleBonuses) Attach(env Env) {
	if !p.ForceAuto || env.Gun == nil || env.Gun.Fire == nil {
		return
	}
	if env.Gun.Fire.Mode == model.FireModeSemi {
		p.prevMode = env.Gun.Fire.Mode
		env.Gun.Fire.Mode = model.FireModeAuto
		p.switched = true
	}
}

func (p *AutoFireDoubleBonuses) Detach(env Env) {
	if p.switched && env.Gun != nil && env.Gun.Fire != nil {
		env.Gun.Fire.Mode = p.prevMode
	}
	p.switched = false
}

// SemiFixedInterval forces semi fire at a fixed ShotInterval. Lost fire speed
// relative to the gun's pre-perk interval becomes damage, and so does any
// FireRate AddPct other perks contributed. It runs late so it sees them all.
type SemiFixedInterval struct {
	priority               int
	ShotInterval           float64
	AutoIntervalCorrection float64
	LossToDamageRatio      float64
	FireRateToDamageRatio  float64
	ConvertPositiveOnly    bool

	attached    bool
	switched    bool
	prevMode    model.FireMode
	startedMode model.FireMode
}

func (p *SemiFixedInterval) Priority() int { return p.priority }

func (p *SemiFixedInterval) Apply(owner gunstat.Owner, t *gunstat.Table) {
	fr := t.At(gunstat.AttrFireRate)
	dmg := t.At(gunstat.AttrDamage)
	cd := t.At(gunstat.AttrSemiFireCooldown)

	started := owner.FireMode
	if p.attached {
		started = p.startedMode
	}
	baseline := p.baselineInterval(started, owner.Base, *fr, *cd)

	target := max(0, p.ShotInterval)
	baseSemi := max(0, owner.Base[gunstat.AttrSemiFireCooldown])
	cd.Flat = target - baseSemi
	cd.AddPct = 0
	cd.Mul = 1

	if baseline > 0 && p.LossToDamageRatio > 0 {
		if loss := target/baseline - 1; loss > 0 {
			dmg.AddPct += loss * p.LossToDamageRatio
		}
	}

	if p.FireRateToDamageRatio > 0 {
		converted := fr.AddPct * p.FireRateToDamageRatio
		switch {
		case p.ConvertPositiveOnly && converted > 0:
			dmg.AddPct += converted
		case !p.ConvertPositiveOnly && math.Abs(converted) > 1e-6:
			dmg.AddPct += converted
		}
	}

	fr.Flat = 0
	fr.AddPct = 0
	fr.Mul = 1
}

// baselineInterval is the shot interval the gun would have without this perk,
// in the fire mode it had when the perk attached.
func (p *SemiFixedInterval) baselineInterval(mode model.FireMode, base gunstat.BaseValues, fr, cd gunstat.Stack) float64 {
	if mode == model.FireModeAuto {
		rate := max(0.01, fr.Evaluate(base[gunstat.AttrFireRate]))
		scale := max(0.01, 1+p.AutoIntervalCorrection)
		return max(1e-6, scale/rate)
	}
	return max(1e-6, cd.Evaluate(max(0, base[gunstat.AttrSemiFireCooldown])))
}

func (p *SemiFixedInterval) Attach(env Env) {
	if env.Gun == nil || env.Gun.Fire == nil {
		return
	}
	p.attached = true
	p.startedMode = env.Gun.Fire.Mode
	if env.Gun.Fire.Mode != model.FireModeSemi {
		p.prevMode = env.Gun.Fire.Mode
		env.Gun.Fire.Mode = model.FireModeSemi
		p.switched = true
	}
}

func (p *SemiFixedInterval) Detach(env Env) {
	if p.switched && env.Gun != nil && env.Gun.Fire != nil {
		env.Gun.Fire.Mode = p.prevMode
	}
	p.switched = false
	p.attached = false
}

// FastFireLowDamage trades damage for fire rate multiplicatively.
type FastFireLowDamage struct {
	priority    int
	FireRateMul float64
	DamageMul   float64
}

func (p *FastFireLowDamage) Priority() int { return p.priority }

func (p *FastFireLowDamage) Apply(_ gunstat.Owner, t *gunstat.Table) {
	t.At(gunstat.AttrFireRate).Mul *= max(0.0001, p.FireRateMul)
	t.At(gunstat.AttrDamage).Mul *= max(0, p.DamageMul)
}

// RangeFalloffBoost extends MaxRange and FalloffStart. It resets Mul on both.
type RangeFalloffBoost struct {
	priority           int
	MaxRangeFlat       float64
	FalloffStartFlat   float64
	MaxRangeAddPct     float64
	FalloffStartAddPct float64
}

func (p *RangeFalloffBoost) Priority() int { return p.priority }

func (p *RangeFalloffBoost) Apply(_ gunstat.Owner, t *gunstat.Table) {
	boost(t.At(gunstat.AttrMaxRange), p.MaxRangeFlat, p.MaxRangeAddPct)
	boost(t.At(gunstat.AttrFalloffStart), p.FalloffStartFlat, p.FalloffStartAddPct)
}

func boost(s *gunstat.Stack, flat, addPct float64) {
	s.Flat += flat
	s.AddPct += addPct
	s.Mul = 1
}

// RecoilRecoveryFast speeds up spread recovery.
type RecoilRecoveryFast struct {
	priority int
	AddPct   float64
}

func (p *RecoilRecoveryFast) Priority() int { return p.priority }

func (p *RecoilRecoveryFast) Apply(_ gunstat.Owner, t *gunstat.Table) {
	t.At(gunstat.AttrSpreadRecoverySpeed).AddPct += max(0, p.AddPct)
}

// HalfPellets halves shotgun pellets, tightens the shotgun pattern and adds a
// headshot bonus. It does nothing on non-shotgun guns.
type HalfPellets struct {
	priority       int
	PelletsPostMul float64
	HScale         float64
	VScale         float64
	HeadshotAddPct float64

	spreadApplied bool
	prevH, prevV  float64
	hitboxApplied bool
}

func (p *HalfPellets) Priority() int { return p.priority }

func (p *HalfPellets) Apply(owner gunstat.Owner, t *gunstat.Table) {
	if owner.ShotType != model.ShotShotgun {
		return
	}
	t.At(gunstat.AttrPelletsPerShot).PostMul *= max(0.01, p.PelletsPostMul)
}

func (p *HalfPellets) Attach(env Env) {
	if env.Gun == nil || env.Gun.ShotType() != model.ShotShotgun {
		return
	}
	if env.Gun.Spread != nil {
		p.prevH, p.prevV = env.Gun.Spread.ScaleShotgun(max(0, p.HScale), max(0, p.VScale))
		p.spreadApplied = true
	}
	if env.Hitboxes != nil && p.HeadshotAddPct > 0 {
		env.Hitboxes.RegisterAddPct(env.GunID, p, 0, p.HeadshotAddPct, p.priority)
		p.hitboxApplied = true
	}
}

func (p *HalfPellets) Detach(env Env) {
	if p.spreadApplied && env.Gun != nil && env.Gun.Spread != nil {
		env.Gun.Spread.ShotgunHorizontalScale = p.prevH
		env.Gun.Spread.ShotgunVerticalScale = p.prevV
	}
	if p.hitboxApplied && env.Hitboxes != nil {
		env.Hitboxes.UnregisterAddPct(env.GunID, p)
	}
	p.spreadApplied = false
	p.hitboxApplied = false
}

// DoublePellets doubles shotgun pellets. It does nothing on non-shotgun guns.
type DoublePellets struct {
	priority       int
	PelletsPostMul float64
}

func (p *DoublePellets) Priority() int { return p.priority }

func (p *DoublePellets) Apply(owner gunstat.Owner, t *gunstat.Table) {
	if owner.ShotType != model.ShotShotgun {
		return
	}
	t.At(gunstat.AttrPelletsPerShot).PostMul *= max(0.01, p.PelletsPostMul)
}

// ShotgunMode turns the gun into a shotgun firing Pellets pellets. With
// KeepTotalDamage, per-pellet damage is divided so a full volley deals the
// unsplit damage times TotalDamageMul.
type ShotgunMode struct {
	priority        int
	Pellets         int
	KeepTotalDamage bool
	TotalDamageMul  float64

	applied     bool
	prevShot    model.ShotType
	prevPellets float64
}

func (p *ShotgunMode) Priority() int { return p.priority }

func (p *ShotgunMode) Apply(_ gunstat.Owner, t *gunstat.Table) {
	pellets := max(1, p.Pellets)
	mult := p.TotalDamageMul
	if p.KeepTotalDamage {
		mult /= float64(pellets)
	}
	t.At(gunstat.AttrDamage).Mul *= max(0, mult)
}

func (p *ShotgunMode) Attach(env Env) {
	if p.applied || env.Gun == nil || env.Gun.Fire == nil || env.Context == nil {
		return
	}
	p.prevShot = env.Gun.Fire.Shot
	p.prevPellets = env.Context.Base()[gunstat.AttrPelletsPerShot]
	env.Gun.Fire.Shot = model.ShotShotgun
	env.Context.SetBase(gunstat.AttrPelletsPerShot, float64(max(1, p.Pellets)))
	p.applied = true
}

func (p *ShotgunMode) Detach(env Env) {
	if p.applied && env.Gun != nil && env.Gun.Fire != nil && env.Context != nil {
		env.Gun.Fire.Shot = p.prevShot
		env.Context.SetBase(gunstat.AttrPelletsPerShot, p.prevPellets)
	}
	p.applied = false
}

// StatDelta is a flat and add-pct contribution to one attribute.
type StatDelta struct {
	AddPct float64
	Flat   float64
}

func (d StatDelta) apply(s *gunstat.Stack) {
	s.Flat += d.Flat
	s.AddPct += d.AddPct
	s.Mul = 1
}

// TimedStatBuff adds flat and add-pct bonuses to damage, fire rate, bullet
// speed and range, and expires Duration after it is granted.
type TimedStatBuff struct {
	priority    int
	Duration    time.Duration
	Damage      StatDelta
	FireRate    StatDelta
	BulletSpeed StatDelta
	MaxRange    StatDelta
}

func (p *TimedStatBuff) Priority() int { return p.priority }

func (p *TimedStatBuff) Lifetime() time.Duration { return p.Duration }

func (p *TimedStatBuff) Apply(_ gunstat.Owner, t *gunstat.Table) {
	p.Damage.apply(t.At(gunstat.AttrDamage))
	p.FireRate.apply(t.At(gunstat.AttrFireRate))
	p.BulletSpeed.apply(t.At(gunstat.AttrBulletSpeed))
	p.MaxRange.apply(t.At(gunstat.AttrMaxRange))
}

// HeadshotHighBodyLow pins the gun's zone multipliers to Body and Head while
// attached. It leaves the stat table alone.
type HeadshotHighBodyLow struct {
	priority int
	Body     float64
	Head     float64

	applied bool
}

func (p *HeadshotHighBodyLow) Priority() int { return p.priority }

func (p *HeadshotHighBodyLow) Apply(gunstat.Owner, *gunstat.Table) {}

func (p *HeadshotHighBodyLow) Attach(env Env) {
	if env.Hitboxes == nil {
		return
	}
	env.Hitboxes.SetOverride(env.GunID, p.Body, p.Head)
	p.applied = true
}

func (p *HeadshotHighBodyLow) Detach(env Env) {
	if p.applied && env.Hitboxes != nil {
		env.Hitboxes.ClearOverride(env.GunID)
	}
	p.applied = false
}

// AlternateReload alternates reload behaviour. Magazine guns reload
// EvenReloadTimeMul times faster on every second reload since the perk
// attached. Per-bullet guns load OddStepCount rounds on odd insert steps and
// EvenStepCount on even ones, counting from the start of each reload.
type AlternateReload struct {
	priority          int
	EvenReloadTimeMul float64
	OddStepCount      int
	EvenStepCount     int

	ammo        *model.Ammo
	firstReload int
	reload      int
	step        int
}

func (p *AlternateReload) Priority() int { return p.priority }

func (p *AlternateReload) Apply(gunstat.Owner, *gunstat.Table) {}

func (p *AlternateReload) Attach(env Env) {
	if p.ammo != nil || env.Gun == nil || env.Gun.Ammo == nil {
		return
	}
	p.ammo = env.Gun.Ammo
	p.firstReload = p.ammo.ReloadCount()
	p.reload, p.step = -1, 0
	p.ammo.AddReloadTimeHook(p, p.reloadTime)
	p.ammo.AddInsertCountHook(p, p.insertCount)
}

func (p *AlternateReload) Detach(Env) {
	if p.ammo == nil {
		return
	}
	p.ammo.RemoveReloadTimeHook(p)
	p.ammo.RemoveInsertCountHook(p)
	p.ammo = nil
}

// reloadTime applies to the reload in progress, or the next one when idle.
func (p *AlternateReload) reloadTime(a *model.Ammo, seconds float64) float64 {
	if a.Reload != model.ReloadMagazine {
		return seconds
	}
	n := a.ReloadCount() - p.firstReload
	if !a.IsReloading() {
		n++
	}
	if n > 0 && n%2 == 0 {
		return seconds * p.EvenReloadTimeMul
	}
	return seconds
}

func (p *AlternateReload) insertCount(a *model.Ammo, count int) int {
	if a.Reload != model.ReloadPerBullet || !a.IsReloading() {
		return count
	}
	if r := a.ReloadCount(); r != p.reload {
		p.reload, p.step = r, 0
	}
	p.step++
	if p.step%2 == 0 {
		return p.EvenStepCount
	}
	return p.OddStepCount
}

package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFireMode(t *testing.T) {
	tests := []struct {
		in      string
		want    FireMode
		wantErr bool
	}{
		{"auto", FireModeAuto, false},
		{" SEMI ", FireModeSemi, false},
		{"", FireModeAuto, false},
		{"burst", FireModeAuto, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseFireMode(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseShotType(t *testing.T) {
	got, err := ParseShotType("Shotgun")
	require.NoError(t, err)
	assert.Equal(t, ShotShotgun, got)
	assert.Equal(t, "shotgun", got.String())

	_, err = ParseShotType("laser")
	assert.Error(t, err)
}

func TestGun_NilFireControl(t *testing.T) {
	g := NewGun(1, "bare", nil, nil, nil)
	assert.Equal(t, FireModeAuto, g.FireMode())
	assert.Equal(t, ShotSingle, g.ShotType())

	var nilGun *Gun
	assert.Equal(t, FireModeAuto, nilGun.FireMode())
}

func TestFireControl_SetStatsNotifiesOnChange(t *testing.T) {
	fc := NewFireControl(FireModeAuto, ShotSingle, FireStats{Damage: 10, FireRate: 5})
	calls := 0
	fc.OnStatsChanged = func(FireStats) { calls++ }

	assert.False(t, fc.SetStats(FireStats{Damage: 10, FireRate: 5}))
	assert.Equal(t, 0, calls)

	assert.True(t, fc.SetStats(FireStats{Damage: 12, FireRate: 5}))
	assert.Equal(t, 1, calls)
	assert.InDelta(t, 12, fc.Stats().Damage, 1e-9)
}

func TestFireControl_ShotInterval(t *testing.T) {
	fc := NewFireControl(FireModeAuto, ShotSingle, FireStats{FireRate: 4, SemiFireCooldown: 0.3})
	assert.InDelta(t, 0.25, fc.ShotInterval(), 1e-9)

	fc.Mode = FireModeSemi
	assert.InDelta(t, 0.3, fc.ShotInterval(), 1e-9)

	fc = NewFireControl(FireModeAuto, ShotSingle, FireStats{})
	assert.Zero(t, fc.ShotInterval())
}

func TestAmmo_SetMagazine(t *testing.T) {
	a := NewAmmo(12, 60, 1.5)
	var last [2]int
	calls := 0
	a.OnAmmoChanged = func(inMag, reserve int) {
		calls++
		last = [2]int{inMag, reserve}
	}

	assert.False(t, a.SetMagazine(12, 1.5), "unchanged")
	assert.Equal(t, 0, calls)

	assert.True(t, a.SetMagazine(24, 1.875))
	assert.Equal(t, 24, a.MagazineSize())
	assert.Equal(t, 12, a.InMag(), "growing keeps loaded rounds")
	assert.InDelta(t, 1.875, a.ReloadTime(), 1e-9)
	assert.Equal(t, [2]int{12, 60}, last)

	assert.True(t, a.SetMagazine(2, 1.5))
	assert.Equal(t, 2, a.InMag(), "shrinking clamps loaded rounds")

	a.SetMagazine(0, 1.5)
	assert.Equal(t, 1, a.MagazineSize())
}

func TestAmmo_ConsumeAndReload(t *testing.T) {
	a := NewAmmo(3, 4, 1)
	for range 3 {
		require.True(t, a.TryConsumeOne())
	}
	assert.False(t, a.TryConsumeOne())
	assert.False(t, a.HasAmmoInMag())
	assert.True(t, a.NeedsReload())

	a.ApplyMagazineReloadNow()
	assert.Equal(t, 3, a.InMag())
	assert.Equal(t, 1, a.Reserve())
	assert.False(t, a.NeedsReload())

	a.TryConsumeOne()
	a.TryConsumeOne()
	a.ApplyMagazineReloadNow()
	assert.Equal(t, 2, a.InMag())
	assert.Equal(t, 0, a.Reserve())
	assert.False(t, a.NeedsReload(), "no reserve")
}

func TestAmmo_ExternalReload(t *testing.T) {
	a := NewAmmo(5, 5, 1)
	started, ended := 0, 0
	a.OnReloadStart = func() { started++ }
	a.OnReloadEnd = func() { ended++ }

	a.BeginExternalReload(true)
	assert.True(t, a.IsReloading())
	assert.True(t, a.IsUninterruptible())

	a.EndExternalReload()
	assert.False(t, a.IsReloading())
	assert.False(t, a.IsUninterruptible())
	assert.Equal(t, 1, started)
	assert.Equal(t, 1, ended)
}

func TestAmmo_InsertOneNow(t *testing.T) {
	a := NewAmmo(8, 10, 0.5)
	a.Reload = ReloadPerBullet
	for range 8 {
		a.TryConsumeOne()
	}

	a.InsertOneNow()
	assert.Equal(t, 1, a.InMag())

	a.AddInsertCountHook("triple", func(_ *Ammo, n int) int { return n * 3 })
	a.InsertOneNow()
	assert.Equal(t, 4, a.InMag())
	assert.Equal(t, 6, a.Reserve())

	a.AddInsertCountHook("zero", func(*Ammo, int) int { return 0 })
	a.InsertOneNow()
	assert.Equal(t, 5, a.InMag(), "count floors at 1")

	// Limited by free space.
	a.AddInsertCountHook("hundred", func(*Ammo, int) int { return 100 })
	a.InsertOneNow()
	assert.Equal(t, 8, a.InMag())
	assert.False(t, a.CanInsertOne())
}

func TestAmmo_RemoveInsertCountHook(t *testing.T) {
	a := NewAmmo(8, 10, 0.5)
	a.Reload = ReloadPerBullet
	for range 8 {
		a.TryConsumeOne()
	}

	a.AddInsertCountHook("two", func(*Ammo, int) int { return 2 })
	a.AddInsertCountHook("two", func(*Ammo, int) int { return 3 })
	a.InsertOneNow()
	assert.Equal(t, 3, a.InMag(), "same key replaces")

	a.RemoveInsertCountHook("two")
	a.RemoveInsertCountHook("absent")
	a.InsertOneNow()
	assert.Equal(t, 4, a.InMag())
}

func TestAmmo_ReloadTimeHooks(t *testing.T) {
	a := NewAmmo(8, 10, 2)
	assert.InDelta(t, 2, a.EffectiveReloadTime(), 1e-9)

	a.AddReloadTimeHook("half", func(_ *Ammo, s float64) float64 { return s / 2 })
	assert.InDelta(t, 1, a.EffectiveReloadTime(), 1e-9)
	assert.InDelta(t, 2, a.ReloadTime(), 1e-9, "stat value untouched")

	a.AddReloadTimeHook("zero", func(*Ammo, float64) float64 { return 0 })
	assert.InDelta(t, 0.01, a.EffectiveReloadTime(), 1e-9)

	a.RemoveReloadTimeHook("zero")
	a.RemoveReloadTimeHook("half")
	assert.InDelta(t, 2, a.EffectiveReloadTime(), 1e-9)

	a.BeginExternalReload(false)
	a.EndExternalReload()
	a.BeginExternalReload(false)
	assert.Equal(t, 2, a.ReloadCount())
}

func TestSpread_BloomAndRecover(t *testing.T) {
	s := NewSpread(1, 0.5, 2, 2)
	s.OnShotFired()
	s.OnShotFired()
	s.OnShotFired()
	assert.InDelta(t, 2, s.Current(), 1e-9, "capped at max")

	s.Recover(0.25)
	assert.InDelta(t, 1.5, s.Current(), 1e-9)
	s.Recover(10)
	assert.InDelta(t, 1, s.Current(), 1e-9, "never below base")
}

func TestSpread_SetRecoverSpeed(t *testing.T) {
	s := NewSpread(1, 0.5, 2, 4)
	var got float64
	s.OnRecoverSpeedChanged = func(v float64) { got = v }

	assert.False(t, s.SetRecoverSpeed(2))
	assert.True(t, s.SetRecoverSpeed(5))
	assert.InDelta(t, 5, got, 1e-9)
	assert.InDelta(t, 5, s.RecoverSpeed(), 1e-9)
}

func TestSpread_ScaleShotgun(t *testing.T) {
	s := NewSpread(1, 0.5, 2, 4)
	prevH, prevV := s.ScaleShotgun(0.5, 0.5)
	assert.InDelta(t, 1, prevH, 1e-9)
	assert.InDelta(t, 1, prevV, 1e-9)
	assert.InDelta(t, 0.5, s.ShotgunHorizontalScale, 1e-9)

	s.ShotgunHorizontalScale, s.ShotgunVerticalScale = prevH, prevV
	s.ScaleShotgun(-1, 2)
	assert.Zero(t, s.ShotgunHorizontalScale)
	assert.InDelta(t, 2, s.ShotgunVerticalScale, 1e-9)
}

func TestParseReloadType(t *testing.T) {
	r, err := ParseReloadType("Per_Bullet")
	require.NoError(t, err)
	assert.Equal(t, ReloadPerBullet, r)
	assert.Equal(t, "per_bullet", r.String())

	_, err = ParseReloadType("clip")
	assert.Error(t, err)
}

func TestGunPreset_NewGun(t *testing.T) {
	p := GunPreset{
		Name:               "pump",
		Mode:               FireModeSemi,
		Shot:               ShotShotgun,
		Stats:              FireStats{Damage: 8, SemiFireCooldown: 0.8, PelletsPerShot: 8},
		MagazineSize:       6,
		Reserve:            24,
		ReloadTime:         0.5,
		Reload:             ReloadPerBullet,
		InsertCountPerStep: 2,
		BaseSpread:         1,
		SpreadRecoverSpeed: 3,
		MaxSpread:          4,
	}
	g := p.NewGun(7)
	assert.Equal(t, EntityID(7), g.ID)
	assert.Equal(t, "pump", g.Name)
	assert.Equal(t, FireModeSemi, g.FireMode())
	assert.Equal(t, ShotShotgun, g.ShotType())
	assert.Equal(t, 8, g.Fire.Stats().PelletsPerShot)
	assert.Equal(t, 6, g.Ammo.InMag())
	assert.Equal(t, 24, g.Ammo.Reserve())
	assert.Equal(t, ReloadPerBullet, g.Ammo.Reload)
	assert.Equal(t, 2, g.Ammo.InsertCountPerStep)
	assert.InDelta(t, 1, g.Spread.Current(), 1e-9)
	assert.InDelta(t, 3, g.Spread.RecoverSpeed(), 1e-9)
}

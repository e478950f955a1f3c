package model

// FireStats are the live values the fire-control loop reads every shot.
type FireStats struct {
	Damage           float64
	FireRate         float64 // shots per second, auto mode
	SemiFireCooldown float64 // seconds between shots, semi mode
	BulletSpeed      float64
	MaxRange         float64
	FalloffStart     float64 // meters before damage falloff begins
	PelletsPerShot   int
}

// FireControl is the trigger/projectile consumer of a gun.
// Not thread-safe: owned by the gun's update loop.
type FireControl struct {
	Mode FireMode
	Shot ShotType

	stats FireStats

	// OnStatsChanged fires after SetStats actually changed something.
	OnStatsChanged func(FireStats)
}

// NewFireControl creates a fire control with the given starting stats.
func NewFireControl(mode FireMode, shot ShotType, stats FireStats) *FireControl {
	return &FireControl{Mode: mode, Shot: shot, stats: stats}
}

// Stats returns the current live stats.
func (f *FireControl) Stats() FireStats {
	return f.stats
}

// SetStats replaces the live stats. Returns true if they changed.
func (f *FireControl) SetStats(s FireStats) bool {
	if s == f.stats {
		return false
	}
	f.stats = s
	if f.OnStatsChanged != nil {
		f.OnStatsChanged(s)
	}
	return true
}

// ShotInterval returns seconds between two shots for the current fire mode.
func (f *FireControl) ShotInterval() float64 {
	if f.Mode == FireModeSemi {
		return f.stats.SemiFireCooldown
	}
	if f.stats.FireRate <= 0 {
		return 0
	}
	return 1 / f.stats.FireRate
}

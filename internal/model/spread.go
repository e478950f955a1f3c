package model

// Spread tracks the current bloom (degrees) of a gun.
// Not thread-safe: owned by the gun's update loop.
type Spread struct {
	BaseSpread             float64
	IncreasePerShot        float64
	MaxSpread              float64
	ShotgunExtraSpread     float64
	ShotgunHorizontalScale float64
	ShotgunVerticalScale   float64

	recoverSpeed float64
	current      float64

	// OnRecoverSpeedChanged fires after SetRecoverSpeed changed the value.
	OnRecoverSpeedChanged func(speed float64)
}

// NewSpread creates a spread at rest with unit shotgun scales.
func NewSpread(base, increasePerShot, recoverSpeed, maxSpread float64) *Spread {
	return &Spread{
		BaseSpread:             base,
		IncreasePerShot:        increasePerShot,
		MaxSpread:              maxSpread,
		ShotgunHorizontalScale: 1,
		ShotgunVerticalScale:   1,
		recoverSpeed:           recoverSpeed,
		current:                base,
	}
}

// Current returns the current spread in degrees.
func (s *Spread) Current() float64 { return s.current }

// RecoverSpeed returns degrees per second recovered toward BaseSpread.
func (s *Spread) RecoverSpeed() float64 { return s.recoverSpeed }

// SetRecoverSpeed rewrites the recovery speed. Returns true if it changed.
func (s *Spread) SetRecoverSpeed(v float64) bool {
	if v == s.recoverSpeed {
		return false
	}
	s.recoverSpeed = v
	if s.OnRecoverSpeedChanged != nil {
		s.OnRecoverSpeedChanged(v)
	}
	return true
}

// OnShotFired blooms the spread by one shot, capped at MaxSpread.
func (s *Spread) OnShotFired() {
	s.current = min(s.MaxSpread, s.current+s.IncreasePerShot)
}

// Recover moves the spread toward BaseSpread by recoverSpeed*dt.
func (s *Spread) Recover(dt float64) {
	step := max(0.0001, s.recoverSpeed) * dt
	switch {
	case s.current > s.BaseSpread:
		s.current = max(s.BaseSpread, s.current-step)
	case s.current < s.BaseSpread:
		s.current = min(s.BaseSpread, s.current+step)
	}
}

// ScaleShotgun multiplies the shotgun H/V scales (floored at 0) and returns
// the previous pair so the caller can restore it.
func (s *Spread) ScaleShotgun(h, v float64) (prevH, prevV float64) {
	prevH, prevV = s.ShotgunHorizontalScale, s.ShotgunVerticalScale
	s.ShotgunHorizontalScale = max(0, s.ShotgunHorizontalScale*h)
	s.ShotgunVerticalScale = max(0, s.ShotgunVerticalScale*v)
	return prevH, prevV
}

package model

import (
	"fmt"
	"strings"
)

// EntityID is a stable arena handle for anything placed in the scene tree
// (guns, perk instances, staging roots). Zero is never allocated.
type EntityID uint32

// InvalidEntity marks an unset handle.
const InvalidEntity EntityID = 0

// FireMode describes how the trigger gates shots.
type FireMode uint8

const (
	FireModeAuto FireMode = iota // gated by FireRate
	FireModeSemi                 // gated by SemiFireCooldown
)

func (m FireMode) String() string {
	switch m {
	case FireModeAuto:
		return "auto"
	case FireModeSemi:
		return "semi"
	default:
		return fmt.Sprintf("FireMode(%d)", uint8(m))
	}
}

// ParseFireMode parses "auto" / "semi" (case-insensitive).
func ParseFireMode(s string) (FireMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "auto", "":
		return FireModeAuto, nil
	case "semi":
		return FireModeSemi, nil
	default:
		return FireModeAuto, fmt.Errorf("unknown fire mode %q", s)
	}
}

// ShotType describes what a single trigger pull emits.
type ShotType uint8

const (
	ShotSingle  ShotType = iota // one projectile
	ShotShotgun                 // PelletsPerShot projectiles
)

func (t ShotType) String() string {
	switch t {
	case ShotSingle:
		return "single"
	case ShotShotgun:
		return "shotgun"
	default:
		return fmt.Sprintf("ShotType(%d)", uint8(t))
	}
}

// ParseShotType parses "single" / "shotgun" (case-insensitive).
func ParseShotType(s string) (ShotType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "single", "":
		return ShotSingle, nil
	case "shotgun":
		return ShotShotgun, nil
	default:
		return ShotSingle, fmt.Errorf("unknown shot type %q", s)
	}
}

// Gun is the owning entity whose attributes are aggregated.
// The consumers are owned by their own subsystems; Ammo and Spread may be nil.
type Gun struct {
	ID     EntityID
	Name   string
	Fire   *FireControl
	Ammo   *Ammo
	Spread *Spread
}

// NewGun creates a gun with the given fire control and optional consumers.
func NewGun(id EntityID, name string, fire *FireControl, ammo *Ammo, spread *Spread) *Gun {
	return &Gun{
		ID:     id,
		Name:   name,
		Fire:   fire,
		Ammo:   ammo,
		Spread: spread,
	}
}

// FireMode returns the fire mode, FireModeAuto if the gun has no fire control.
func (g *Gun) FireMode() FireMode {
	if g == nil || g.Fire == nil {
		return FireModeAuto
	}
	return g.Fire.Mode
}

// ShotType returns the shot type, ShotSingle if the gun has no fire control.
func (g *Gun) ShotType() ShotType {
	if g == nil || g.Fire == nil {
		return ShotSingle
	}
	return g.Fire.Shot
}

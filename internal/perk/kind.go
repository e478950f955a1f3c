package perk

import (
	"fmt"
	"slices"
	"time"

	"github.com/udisondev/gunstat/internal/combat"
	"github.com/udisondev/gunstat/internal/gunstat"
	"github.com/udisondev/gunstat/internal/model"
)

// Kind names a provider implementation in the catalog.
type Kind string

const (
	KindDamageFireRate    Kind = "damage_fire_rate_add_pct"
	KindDoubleMag         Kind = "double_mag_slower_reload"
	KindMagFixed          Kind = "mag_fixed_convert_to_damage"
	KindAutoFireDouble    Kind = "auto_fire_double_bonuses"
	KindSemiFixedInterval Kind = "semi_fixed_interval"
	KindFastFireLowDamage Kind = "fast_fire_low_damage"
	KindRangeFalloffBoost Kind = "range_falloff_boost"
	KindRecoilRecovery    Kind = "recoil_recovery_fast"
	KindHalfPellets       Kind = "half_pellets"
	KindDoublePellets     Kind = "double_pellets"
	KindShotgunMode       Kind = "shotgun_mode"
	KindTimedStatBuff     Kind = "timed_stat_buff"
	KindHeadshotHighBody  Kind = "headshot_high_body_low"
	KindAlternateReload   Kind = "alternate_reload"
)

// Priorities for perks that must see (or rewrite) everything else.
const (
	priorityLate         = 100000
	priorityEarly        = -9999
	priorityPelletsFirst = -20000
)

type kindInfo struct {
	priority int
	params   map[string]float64
}

// kinds holds each kind's default priority and parameter defaults. A catalog
// entry may only set parameters listed here.
var kinds = map[Kind]kindInfo{
	KindDamageFireRate: {params: map[string]float64{
		"damage_add_pct":    0.2,
		"fire_rate_add_pct": 0.15,
	}},
	KindDoubleMag: {params: map[string]float64{
		"magazine_mul": 2,
		"reload_mul":   1.25,
	}},
	KindMagFixed: {priority: priorityLate, params: map[string]float64{
		"fixed_magazine":           2,
		"damage_add_pct_per_extra": 0.015,
	}},
	KindAutoFireDouble: {priority: priorityLate, params: map[string]float64{
		"force_auto":     1,
		"double_add_pct": 1,
	}},
	KindSemiFixedInterval: {priority: priorityLate, params: map[string]float64{
		"shot_interval":             0.25,
		"auto_interval_correction":  0,
		"loss_to_damage_ratio":      1,
		"fire_rate_to_damage_ratio": 1,
		"convert_positive_only":     1,
	}},
	KindFastFireLowDamage: {params: map[string]float64{
		"fire_rate_mul": 2.5,
		"damage_mul":    0.6,
	}},
	KindRangeFalloffBoost: {params: map[string]float64{
		"max_range_flat":        25,
		"falloff_start_flat":    10,
		"max_range_add_pct":     0,
		"falloff_start_add_pct": 0,
	}},
	KindRecoilRecovery: {priority: priorityEarly, params: map[string]float64{
		"spread_recovery_add_pct": 0.5,
	}},
	KindHalfPellets: {priority: priorityEarly, params: map[string]float64{
		"pellets_post_mul": 0.5,
		"shotgun_h_scale":  0.5,
		"shotgun_v_scale":  0.5,
		"headshot_add_pct": 0.3,
	}},
	KindDoublePellets: {priority: priorityPelletsFirst, params: map[string]float64{
		"pellets_post_mul": 2,
	}},
	KindShotgunMode: {params: map[string]float64{
		"pellets":           6,
		"keep_total_damage": 1,
		"total_damage_mul":  1,
	}},
	KindTimedStatBuff: {params: map[string]float64{
		"duration":             2,
		"damage_add_pct":       0,
		"damage_flat":          0,
		"fire_rate_add_pct":    0,
		"fire_rate_flat":       0,
		"bullet_speed_add_pct": 0,
		"bullet_speed_flat":    0,
		"max_range_add_pct":    0,
		"max_range_flat":       0,
	}},
	KindHeadshotHighBody: {params: map[string]float64{
		"body_multiplier": 0.6,
		"head_multiplier": 2.5,
	}},
	KindAlternateReload: {params: map[string]float64{
		"even_reload_time_mul": 0.5,
		"odd_step_count":       1,
		"even_step_count":      2,
	}},
}

// Kinds returns every known kind, sorted.
func Kinds() []Kind {
	out := make([]Kind, 0, len(kinds))
	for k := range kinds {
		out = append(out, k)
	}
	slices.Sort(out)
	return out
}

// Env is what a perk's side effects may touch when it attaches to a gun.
//
// GunID is always set. Gun and Context are nil when the gun's context was
// destroyed before the perk detached.
type Env struct {
	GunID    model.EntityID
	Gun      *model.Gun
	Context  *gunstat.Context
	Hitboxes *combat.HitboxRegistry
}

// Effect is implemented by perks that change the gun beyond its stat table
// (fire mode, shot type, spread shape, hitbox bonuses). Attach runs once the
// perk is bound to a gun, Detach before it leaves that gun.
type Effect interface {
	Attach(env Env)
	Detach(env Env)
}

// Expiring is implemented by perks that revoke themselves once Lifetime has
// passed since they were granted.
type Expiring interface {
	Lifetime() time.Duration
}

// Build creates the provider described by s.
func Build(s Spec) (gunstat.Provider, error) {
	if err := s.validate(); err != nil {
		return nil, err
	}
	prio := s.EffectivePriority()

	switch s.Kind {
	case KindDamageFireRate:
		return &DamageFireRateAddPct{
			priority:       prio,
			DamageAddPct:   s.Param("damage_add_pct"),
			FireRateAddPct: s.Param("fire_rate_add_pct"),
		}, nil
	case KindDoubleMag:
		return &DoubleMagSlowerReload{
			priority:    prio,
			MagazineMul: s.Param("magazine_mul"),
			ReloadMul:   s.Param("reload_mul"),
		}, nil
	case KindMagFixed:
		return &MagFixedConvertToDamage{
			priority:             prio,
			FixedMagazine:        int(s.Param("fixed_magazine")),
			DamageAddPctPerExtra: s.Param("damage_add_pct_per_extra"),
		}, nil
	case KindAutoFireDouble:
		return &AutoFireDoubleBonuses{
			priority:     prio,
			ForceAuto:    s.Flag("force_auto"),
			DoubleAddPct: s.Flag("double_add_pct"),
		}, nil
	case KindSemiFixedInterval:
		return &SemiFixedInterval{
			priority:               prio,
			ShotInterval:           s.Param("shot_interval"),
			AutoIntervalCorrection: s.Param("auto_interval_correction"),
			LossToDamageRatio:      s.Param("loss_to_damage_ratio"),
			FireRateToDamageRatio:  s.Param("fire_rate_to_damage_ratio"),
			ConvertPositiveOnly:    s.Flag("convert_positive_only"),
		}, nil
	case KindFastFireLowDamage:
		return &FastFireLowDamage{
			priority:    prio,
			FireRateMul: s.Param("fire_rate_mul"),
			DamageMul:   s.Param("damage_mul"),
		}, nil
	case KindRangeFalloffBoost:
		return &RangeFalloffBoost{
			priority:           prio,
			MaxRangeFlat:       s.Param("max_range_flat"),
			FalloffStartFlat:   s.Param("falloff_start_flat"),
			MaxRangeAddPct:     s.Param("max_range_add_pct"),
			FalloffStartAddPct: s.Param("falloff_start_add_pct"),
		}, nil
	case KindRecoilRecovery:
		return &RecoilRecoveryFast{
			priority: prio,
			AddPct:   s.Param("spread_recovery_add_pct"),
		}, nil
	case KindHalfPellets:
		return &HalfPellets{
			priority:       prio,
			PelletsPostMul: s.Param("pellets_post_mul"),
			HScale:         s.Param("shotgun_h_scale"),
			VScale:         s.Param("shotgun_v_scale"),
			HeadshotAddPct: s.Param("headshot_add_pct"),
		}, nil
	case KindDoublePellets:
		return &DoublePellets{
			priority:       prio,
			PelletsPostMul: s.Param("pellets_post_mul"),
		}, nil
	case KindShotgunMode:
		return &ShotgunMode{
			priority:        prio,
			Pellets:         int(s.Param("pellets")),
			KeepTotalDamage: s.Flag("keep_total_damage"),
			TotalDamageMul:  s.Param("total_damage_mul"),
		}, nil
	case KindTimedStatBuff:
		return &TimedStatBuff{
			priority: prio,
			Duration: time.Duration(max(0.01, s.Param("duration")) * float64(time.Second)),
			Damage:   StatDelta{AddPct: s.Param("damage_add_pct"), Flat: s.Param("damage_flat")},
			FireRate: StatDelta{AddPct: s.Param("fire_rate_add_pct"), Flat: s.Param("fire_rate_flat")},
			BulletSpeed: StatDelta{
				AddPct: s.Param("bullet_speed_add_pct"),
				Flat:   s.Param("bullet_speed_flat"),
			},
			MaxRange: StatDelta{AddPct: s.Param("max_range_add_pct"), Flat: s.Param("max_range_flat")},
		}, nil
	case KindHeadshotHighBody:
		return &HeadshotHighBodyLow{
			priority: prio,
			Body:     min(1, max(0.05, s.Param("body_multiplier"))),
			Head:     max(1, s.Param("head_multiplier")),
		}, nil
	case KindAlternateReload:
		return &AlternateReload{
			priority:          prio,
			EvenReloadTimeMul: max(0.01, s.Param("even_reload_time_mul")),
			OddStepCount:      max(1, int(s.Param("odd_step_count"))),
			EvenStepCount:     max(1, int(s.Param("even_step_count"))),
		}, nil
	default:
		return nil, fmt.Errorf("building perk %s: unknown kind %q", s.ID, s.Kind)
	}
}

package gunstat

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// Attribute enumerates the gun stats the engine aggregates.
type Attribute uint8

const (
	AttrDamage Attribute = iota
	AttrFireRate
	AttrSemiFireCooldown
	AttrBulletSpeed
	AttrMaxRange
	AttrFalloffStart
	AttrMagazineSize
	AttrReloadTime

	// Higher = faster spread recovery. Resolved as a final speed value,
	// not as a multiplier of the base.
	AttrSpreadRecoverySpeed

	// Shotgun pellets per shot (integer stat).
	AttrPelletsPerShot

	AttrCount
)

// ErrUnknownAttribute is returned by ParseAttribute for unrecognised names.
var ErrUnknownAttribute = errors.New("unknown attribute")

// Formula selects how a Stack is folded into a final value.
type Formula uint8

const (
	FormulaLegacy  Formula = iota // (base+flat) * (1 + addPct + (mul-1))
	FormulaOrdered                // (base+flat) * (1+addPct) * mul * postMul
)

type rounding uint8

const (
	roundNone rounding = iota
	roundNearest
	roundFloor
)

// attrSpec describes how one attribute resolves and which domain clamp the
// final value gets before it reaches consumers.
type attrSpec struct {
	name     string
	formula  Formula
	baseMin  float64
	finalMin float64
	round    rounding
}

var noFloor = math.Inf(-1)

var attrSpecs = [AttrCount]attrSpec{
	AttrDamage:              {name: "damage", formula: FormulaLegacy, baseMin: noFloor, finalMin: noFloor},
	AttrFireRate:            {name: "fire_rate", formula: FormulaLegacy, baseMin: noFloor, finalMin: 0.01},
	AttrSemiFireCooldown:    {name: "semi_fire_cooldown", formula: FormulaLegacy, baseMin: 0, finalMin: 0},
	AttrBulletSpeed:         {name: "bullet_speed", formula: FormulaLegacy, baseMin: noFloor, finalMin: 0.01},
	AttrMaxRange:            {name: "max_range", formula: FormulaLegacy, baseMin: noFloor, finalMin: 0.01},
	AttrFalloffStart:        {name: "falloff_start", formula: FormulaLegacy, baseMin: 0, finalMin: 0},
	AttrMagazineSize:        {name: "magazine_size", formula: FormulaLegacy, baseMin: 1, finalMin: 1, round: roundNearest},
	AttrReloadTime:          {name: "reload_time", formula: FormulaLegacy, baseMin: 0.01, finalMin: 0.01},
	AttrSpreadRecoverySpeed: {name: "spread_recovery_speed", formula: FormulaLegacy, baseMin: 0.01, finalMin: 0.0001},
	AttrPelletsPerShot:      {name: "pellets_per_shot", formula: FormulaOrdered, baseMin: 1, finalMin: 1, round: roundFloor},
}

func (a Attribute) String() string {
	if a >= AttrCount {
		return fmt.Sprintf("Attribute(%d)", uint8(a))
	}
	return attrSpecs[a].name
}

// Formula returns the evaluation contract the attribute resolves with.
func (a Attribute) Formula() Formula {
	return attrSpecs[a].formula
}

// Discrete reports whether the attribute resolves to an integer quantity.
func (a Attribute) Discrete() bool {
	return attrSpecs[a].round != roundNone
}

// Attributes returns every attribute in declaration order.
func Attributes() []Attribute {
	out := make([]Attribute, 0, AttrCount)
	for a := Attribute(0); a < AttrCount; a++ {
		out = append(out, a)
	}
	return out
}

// ParseAttribute maps a snake_case name ("magazine_size") to its Attribute.
func ParseAttribute(s string) (Attribute, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for a := Attribute(0); a < AttrCount; a++ {
		if attrSpecs[a].name == name {
			return a, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownAttribute, s)
}

// clampBase applies the attribute's base floor.
func (a Attribute) clampBase(v float64) float64 {
	return math.Max(attrSpecs[a].baseMin, v)
}

// finalize evaluates the stack against base with the attribute's formula,
// rounding and domain clamp.
func (a Attribute) finalize(s Stack, base float64) float64 {
	spec := attrSpecs[a]
	base = math.Max(spec.baseMin, base)

	var v float64
	if spec.formula == FormulaOrdered {
		v = s.EvaluateOrdered(base)
	} else {
		v = s.Evaluate(base)
	}

	switch spec.round {
	case roundNearest:
		v = math.RoundToEven(v)
	case roundFloor:
		v = math.Floor(v + 0.0001)
	}
	return math.Max(spec.finalMin, v)
}

package gunstat

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStack_IdentityLaw(t *testing.T) {
	bases := []float64{0, 1, -3.5, 0.15, 12, 1e6}

	var tbl Table
	tbl.Reset()
	for a := Attribute(0); a < AttrCount; a++ {
		s := tbl.Get(a)
		require.True(t, s.IsIdentity(), "attribute %s", a)
		for _, base := range bases {
			assert.Equal(t, base, s.Evaluate(base), "legacy %s base %v", a, base)
			assert.Equal(t, base, s.EvaluateOrdered(base), "ordered %s base %v", a, base)
		}
	}
}

func TestStack_ZeroValueIsNotIdentity(t *testing.T) {
	var s Stack
	assert.False(t, s.IsIdentity())

	s.Reset()
	assert.Equal(t, Identity(), s)
}

func TestStack_Evaluate(t *testing.T) {
	tests := []struct {
		name    string
		stack   Stack
		base    float64
		legacy  float64
		ordered float64
	}{
		{
			name:    "flat only",
			stack:   Stack{Flat: 5, Mul: 1, PostMul: 1},
			base:    10,
			legacy:  15,
			ordered: 15,
		},
		{
			name:    "addPct only",
			stack:   Stack{AddPct: 0.5, Mul: 1, PostMul: 1},
			base:    10,
			legacy:  15,
			ordered: 15,
		},
		{
			name:    "addPct and mul summed in legacy",
			stack:   Stack{AddPct: 0.5, Mul: 2, PostMul: 1},
			base:    10,
			legacy:  25, // 10 * (1 + 0.5 + 1)
			ordered: 30, // 10 * 1.5 * 2
		},
		{
			name:    "postMul ignored by legacy",
			stack:   Stack{Mul: 1, PostMul: 0.5},
			base:    8,
			legacy:  8,
			ordered: 4,
		},
		{
			name:    "flat before percentages",
			stack:   Stack{Flat: 2, AddPct: 1, Mul: 1, PostMul: 1},
			base:    3,
			legacy:  10,
			ordered: 10,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.legacy, tt.stack.Evaluate(tt.base), 1e-9)
			assert.InDelta(t, tt.ordered, tt.stack.EvaluateOrdered(tt.base), 1e-9)
		})
	}
}

// The legacy formula sums (mul-1) into the percentage bucket: a "+50%" provider
// and a "x1.5" provider together give x2.0, not the x2.25 the ordered formula
// gives. Kept as is; consumers that need true layering use EvaluateOrdered.
func TestStack_LegacyMulFoldsIntoPercentBucket(t *testing.T) {
	s := Identity()
	s.AddPct += 0.5
	s.Mul *= 1.5

	assert.InDelta(t, 20, s.Evaluate(10), 1e-9)
	assert.InDelta(t, 22.5, s.EvaluateOrdered(10), 1e-9)

	// Mul alone still compounds with itself.
	m := Identity()
	m.Mul *= 1.5
	m.Mul *= 1.5
	assert.InDelta(t, 22.5, m.Evaluate(10), 1e-9)
}

func TestTable_At(t *testing.T) {
	tbl := NewTable()
	tbl.At(AttrDamage).AddPct += 0.2

	assert.InDelta(t, 0.2, tbl.Get(AttrDamage).AddPct, 1e-12)
	assert.True(t, tbl.Get(AttrFireRate).IsIdentity())

	tbl.Reset()
	assert.True(t, tbl.Get(AttrDamage).IsIdentity())
}

func TestParseAttribute(t *testing.T) {
	for _, a := range Attributes() {
		got, err := ParseAttribute(a.String())
		require.NoError(t, err)
		assert.Equal(t, a, got)
	}

	got, err := ParseAttribute("  Magazine_Size ")
	require.NoError(t, err)
	assert.Equal(t, AttrMagazineSize, got)

	_, err = ParseAttribute("armor")
	assert.ErrorIs(t, err, ErrUnknownAttribute)
}

func TestAttribute_Formula(t *testing.T) {
	for _, a := range Attributes() {
		if a == AttrPelletsPerShot {
			assert.Equal(t, FormulaOrdered, a.Formula())
			continue
		}
		assert.Equal(t, FormulaLegacy, a.Formula(), "attribute %s", a)
	}
	assert.True(t, AttrMagazineSize.Discrete())
	assert.True(t, AttrPelletsPerShot.Discrete())
	assert.False(t, AttrDamage.Discrete())
}

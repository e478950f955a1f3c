package gunstat

// Stack is the composed adjustment of one attribute.
// The zero value is NOT the identity (Mul and PostMul must be 1); use
// Identity or Reset.
type Stack struct {
	Flat   float64 // added to the base
	AddPct float64 // additive percentage, 0.2 = +20%
	Mul    float64 // multiplicative factor
	// PostMul is applied after AddPct and Mul, and only by EvaluateOrdered.
	PostMul float64
}

// Identity returns a stack that leaves any base unchanged.
func Identity() Stack {
	return Stack{Mul: 1, PostMul: 1}
}

// Reset restores the identity.
func (s *Stack) Reset() {
	s.Flat = 0
	s.AddPct = 0
	s.Mul = 1
	s.PostMul = 1
}

// IsIdentity reports whether the stack is exactly the identity.
func (s Stack) IsIdentity() bool {
	return s == Identity()
}

// Evaluate folds the stack with the legacy formula:
//
//	(base + flat) * (1 + addPct + (mul - 1))
//
// Mul is summed into the percentage bucket, so two ×1.5 stacks yield ×2.0.
// PostMul is ignored.
func (s Stack) Evaluate(base float64) float64 {
	combined := s.AddPct + (s.Mul - 1)
	return (base + s.Flat) * (1 + combined)
}

// EvaluateOrdered folds the stack layer by layer:
//
//	((base + flat) * (1 + addPct)) * mul * postMul
func (s Stack) EvaluateOrdered(base float64) float64 {
	v := base + s.Flat
	v *= 1 + s.AddPct
	v *= s.Mul
	v *= s.PostMul
	return v
}

// Table holds one Stack per Attribute. Being a fixed array, every attribute
// always has an entry.
type Table [AttrCount]Stack

// NewTable returns a table with every stack at identity.
func NewTable() Table {
	var t Table
	t.Reset()
	return t
}

// Reset restores every stack to identity.
func (t *Table) Reset() {
	for i := range t {
		t[i].Reset()
	}
}

// At returns the stack for a, for in-place mutation.
func (t *Table) At(a Attribute) *Stack {
	return &t[a]
}

// Get returns a copy of the stack for a.
func (t *Table) Get(a Attribute) Stack {
	return t[a]
}

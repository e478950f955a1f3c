package gunstat

import "github.com/udisondev/gunstat/internal/model"

// Owner is the read-only view of the gun a provider is applied to.
// It is passed by value; providers never hold the gun itself.
type Owner struct {
	ID       model.EntityID
	Name     string
	FireMode model.FireMode
	ShotType model.ShotType
	Base     BaseValues
}

// Provider contributes adjustments to a gun's stat table.
//
// Priority orders providers ascending (lower runs first). It is captured at
// Register time; a provider that changes priority must be unregistered and
// registered again for the new value to take effect.
//
// Apply receives the table already mutated by every earlier provider and may
// read or write any attribute. It runs exactly once per rebuild.
//
// Providers are compared by identity, so implementations must be comparable
// (in practice, pointer types).
type Provider interface {
	Priority() int
	Apply(owner Owner, t *Table)
}

package gunstat

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/udisondev/gunstat/internal/model"
)

func TestRegistry_CreateIsIdempotent(t *testing.T) {
	r := NewRegistry()
	gun := newTestGun(t)

	c1 := r.Create(gun)
	c2 := r.Create(gun)
	assert.Same(t, c1, c2)
	assert.Equal(t, 1, r.Len())

	got, ok := r.Context(gun.ID)
	require.True(t, ok)
	assert.Same(t, c1, got)
}

func TestRegistry_Destroy(t *testing.T) {
	r := NewRegistry()
	gun := newTestGun(t)
	r.Create(gun)

	assert.True(t, r.Destroy(gun.ID))
	assert.False(t, r.Destroy(gun.ID))

	_, ok := r.Context(gun.ID)
	assert.False(t, ok)
	assert.Equal(t, 0, r.Len())
}

func TestRegistry_DefaultOptions(t *testing.T) {
	r := NewRegistry(WithAmmoWriteBack(false))
	gun := newTestGun(t)
	c := r.Create(gun)
	c.Register(newProvider(0, func(_ Owner, t *Table) { t.At(AttrMagazineSize).Mul *= 2 }))

	r.RebuildDirty()
	assert.Equal(t, 24, c.MagazineSize())
	assert.Equal(t, 12, gun.Ammo.MagazineSize())
}

func TestRegistry_RebuildDirty(t *testing.T) {
	r := NewRegistry()

	var order []model.EntityID
	for _, id := range []model.EntityID{30, 10, 20} {
		gun := model.NewGun(id, "g", nil, nil, nil)
		r.Create(gun, WithTargets(TargetFunc(func(Resolved) { order = append(order, id) })))
	}

	assert.Equal(t, 3, r.RebuildDirty())
	assert.Equal(t, []model.EntityID{10, 20, 30}, order)
	assert.Equal(t, []model.EntityID{10, 20, 30}, r.IDs())

	assert.Equal(t, 0, r.RebuildDirty(), "all clean")

	c, _ := r.Context(20)
	c.MarkDirty()
	assert.Equal(t, 1, r.RebuildDirty())
}

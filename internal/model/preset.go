package model

// GunPreset is the static description a gun is built from. Presets come from
// the server config or the gun_presets table.
type GunPreset struct {
	Name  string
	Mode  FireMode
	Shot  ShotType
	Stats FireStats

	MagazineSize       int
	Reserve            int
	ReloadTime         float64
	Reload             ReloadType
	InsertCountPerStep int

	BaseSpread         float64
	SpreadPerShot      float64
	SpreadRecoverSpeed float64
	MaxSpread          float64
}

// NewGun builds a gun with a full magazine and resting spread.
func (p GunPreset) NewGun(id EntityID) *Gun {
	ammo := NewAmmo(p.MagazineSize, p.Reserve, p.ReloadTime)
	ammo.Reload = p.Reload
	if p.InsertCountPerStep > 0 {
		ammo.InsertCountPerStep = p.InsertCountPerStep
	}
	return NewGun(id, p.Name,
		NewFireControl(p.Mode, p.Shot, p.Stats),
		ammo,
		NewSpread(p.BaseSpread, p.SpreadPerShot, p.SpreadRecoverSpeed, p.MaxSpread),
	)
}

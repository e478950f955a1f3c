package db

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/udisondev/gunstat/internal/model"
	"github.com/udisondev/gunstat/internal/perk"
)

const catalogYAML = `
version: 1
perks:
  - id: double_mag
    kind: double_mag_slower_reload
    name: Drum Magazine
  - id: recoil
    kind: recoil_recovery_fast
    name: Compensator
`

type RepositorySuite struct {
	suite.Suite
	db  *DB
	ctx context.Context
}

func (s *RepositorySuite) SetupTest() {
	s.ctx = context.Background()
	dsn := acquireSchema(s.T())

	var err error
	s.db, err = New(s.ctx, dsn)
	s.Require().NoError(err)
	s.T().Cleanup(s.db.Close)
}

func (s *RepositorySuite) TestMigrationsAreIdempotent() {
	version, err := RunMigrations(s.ctx, dsnOf(s.db))
	s.Require().NoError(err)
	s.Equal(int64(2), version)
}

func (s *RepositorySuite) TestGunPresets_UpsertAndLoad() {
	repo := s.db.Presets()

	presets, err := repo.LoadAll(s.ctx)
	s.Require().NoError(err)
	s.Empty(presets)

	pump := model.GunPreset{
		Name:               "pump",
		Mode:               model.FireModeSemi,
		Shot:               model.ShotShotgun,
		Stats:              model.FireStats{Damage: 8, SemiFireCooldown: 0.8, MaxRange: 20, PelletsPerShot: 8},
		MagazineSize:       6,
		Reserve:            24,
		ReloadTime:         0.5,
		Reload:             model.ReloadPerBullet,
		InsertCountPerStep: 1,
		BaseSpread:         2,
		SpreadRecoverSpeed: 3,
		MaxSpread:          5,
	}
	rifle := model.GunPreset{
		Name:               "rifle",
		Mode:               model.FireModeAuto,
		Shot:               model.ShotSingle,
		Stats:              model.FireStats{Damage: 12, FireRate: 8, MaxRange: 60, FalloffStart: 25, PelletsPerShot: 1},
		MagazineSize:       30,
		Reserve:            120,
		ReloadTime:         2,
		InsertCountPerStep: 1,
		SpreadRecoverSpeed: 3,
	}
	s.Require().NoError(repo.Upsert(s.ctx, rifle, pump))

	presets, err = repo.LoadAll(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(presets, 2)
	s.Equal(pump, presets[0], "ordered by name")
	s.Equal(rifle, presets[1])

	rifle.Stats.Damage = 14
	s.Require().NoError(repo.Upsert(s.ctx, rifle))
	presets, err = repo.LoadAll(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(presets, 2)
	s.InDelta(14, presets[1].Stats.Damage, 1e-9)

	s.NoError(repo.Upsert(s.ctx))
}

func (s *RepositorySuite) TestGunPresets_BadEnumInRow() {
	_, err := s.db.Pool().Exec(s.ctx,
		`INSERT INTO gun_presets (name, fire_mode) VALUES ('broken', 'burst')`)
	s.Require().NoError(err)

	_, err = s.db.Presets().LoadAll(s.ctx)
	s.Error(err)
}

func (s *RepositorySuite) TestCatalog_ImportAndLatest() {
	repo := s.db.Catalogs()

	_, ok, err := repo.Latest(s.ctx)
	s.Require().NoError(err)
	s.False(ok)

	c, err := perk.ParseCatalog([]byte(catalogYAML))
	s.Require().NoError(err)

	imported, err := repo.Import(s.ctx, c)
	s.Require().NoError(err)
	s.True(imported)

	imported, err = repo.Import(s.ctx, c)
	s.Require().NoError(err)
	s.False(imported, "same digest")

	rec, ok, err := repo.Latest(s.ctx)
	s.Require().NoError(err)
	s.Require().True(ok)
	s.Equal(c.Digest(), rec.Digest)
	s.Equal(2, rec.PerkCount)
	s.Equal(perk.CatalogVersion, rec.Version)

	stored, err := rec.Catalog()
	s.Require().NoError(err)
	s.Equal(c.IDs(), stored.IDs())
	s.Equal(c.Digest(), stored.Digest())

	edited, err := perk.ParseCatalog([]byte(catalogYAML + "  - id: dmg\n    kind: damage_fire_rate_add_pct\n"))
	s.Require().NoError(err)
	imported, err = repo.Import(s.ctx, edited)
	s.Require().NoError(err)
	s.True(imported)

	rec, _, err = repo.Latest(s.ctx)
	s.Require().NoError(err)
	s.Equal(3, rec.PerkCount)
}

func dsnOf(d *DB) string {
	return d.Pool().Config().ConnString()
}

func TestRepositorySuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping database tests in short mode")
	}
	suite.Run(t, new(RepositorySuite))
}

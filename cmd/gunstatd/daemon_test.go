package main

import (
	"bytes"
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/udisondev/gunstat/internal/config"
	"github.com/udisondev/gunstat/internal/perk"
)

const catalogYAML = `
version: 1
perks:
  - id: double_mag
    kind: double_mag_slower_reload
  - id: mag_fixed
    kind: mag_fixed_convert_to_damage
    requires: [double_mag]
  - id: half_pellets
    kind: half_pellets
`

func testDaemon(t *testing.T, loadout ...config.LoadoutEntry) *daemon {
	t.Helper()
	catalog, err := perk.ParseCatalog([]byte(catalogYAML))
	require.NoError(t, err)

	cfg := config.DefaultServer()
	cfg.Guns = append(cfg.Guns, config.GunPreset{
		Name:               "pump",
		FireMode:           "semi",
		ShotType:           "shotgun",
		Damage:             8,
		SemiFireCooldown:   0.8,
		MaxRange:           20,
		FalloffStart:       5,
		PelletsPerShot:     8,
		MagazineSize:       6,
		Reserve:            24,
		ReloadTime:         0.5,
		ReloadType:         "per_bullet",
		BaseSpread:         1,
		SpreadPerShot:      0.5,
		SpreadRecoverSpeed: 2,
		MaxSpread:          5,
	})
	cfg.Loadout = loadout
	require.NoError(t, cfg.Validate())

	presets, err := configPresets(cfg)
	require.NoError(t, err)
	d, err := newDaemon(cfg, presets, catalog)
	require.NoError(t, err)
	return d
}

func TestDaemon_LoadoutAppliesOnFirstTick(t *testing.T) {
	d := testDaemon(t,
		config.LoadoutEntry{Slot: "A", Gun: "rifle", Perks: []string{"double_mag"}},
		config.LoadoutEntry{Slot: "b", Gun: "PUMP", Perks: []string{"half_pellets"}},
	)
	rifle := d.guns[perk.SlotA]
	pump := d.guns[perk.SlotB]
	require.NotNil(t, rifle)
	require.NotNil(t, pump)
	assert.Equal(t, 30, rifle.Ammo.MagazineSize(), "perks bind on the next tick")

	assert.Equal(t, 2, d.tick())
	assert.Equal(t, 60, rifle.Ammo.MagazineSize())
	assert.Equal(t, 4, pump.Fire.Stats().PelletsPerShot)

	assert.Equal(t, 0, d.tick(), "nothing dirty")
}

func TestDaemon_LoadoutErrors(t *testing.T) {
	catalog, err := perk.ParseCatalog([]byte(catalogYAML))
	require.NoError(t, err)
	cfg := config.DefaultServer()
	presets, err := configPresets(cfg)
	require.NoError(t, err)

	tests := []struct {
		name  string
		entry config.LoadoutEntry
	}{
		{"bad slot", config.LoadoutEntry{Slot: "C", Gun: "rifle"}},
		{"unknown gun", config.LoadoutEntry{Slot: "A", Gun: "cannon"}},
		{"unknown perk", config.LoadoutEntry{Slot: "A", Gun: "rifle", Perks: []string{"laser"}}},
		{"missing prerequisite", config.LoadoutEntry{Slot: "A", Gun: "rifle", Perks: []string{"mag_fixed"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg.Loadout = []config.LoadoutEntry{tt.entry}
			_, err := newDaemon(cfg, presets, catalog)
			assert.Error(t, err)
		})
	}
}

func TestDaemon_Report(t *testing.T) {
	d := testDaemon(t, config.LoadoutEntry{Slot: "A", Gun: "rifle", Perks: []string{"double_mag", "mag_fixed"}})
	d.tick()

	var buf bytes.Buffer
	require.NoError(t, d.report(&buf))
	out := buf.String()
	assert.Contains(t, out, "rifle")
	assert.Contains(t, out, "double_mag,mag_fixed")
	assert.Contains(t, out, "head")
	assert.Contains(t, out, "body")
	assert.Contains(t, out, "PEAK SPREAD")
}

func TestSimulateMagazine(t *testing.T) {
	d := testDaemon(t,
		config.LoadoutEntry{Slot: "A", Gun: "rifle", Perks: []string{"double_mag"}},
		config.LoadoutEntry{Slot: "B", Gun: "pump"},
	)
	d.tick()

	tests := []struct {
		name    string
		slot    perk.Slot
		shots   int
		emptyIn float64
		reload  float64
		steps   int
	}{
		{"magazine reload", perk.SlotA, 60, 59.0 / 8, 2.5, 1},
		{"per-bullet reload", perk.SlotB, 6, 5 * 0.8, 0.5, 6},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gun := d.guns[tt.slot]
			run := simulateMagazine(gun)

			assert.Equal(t, tt.shots, run.shots)
			assert.InDelta(t, tt.emptyIn, run.emptyIn, 1e-9)
			assert.InDelta(t, tt.reload, run.reload, 1e-9)
			assert.Equal(t, tt.steps, run.steps)
			assert.Equal(t, tt.shots, run.loaded)
			assert.Equal(t, tt.shots, gun.Ammo.InMag())
			assert.Greater(t, run.peakSpread, gun.Spread.BaseSpread)
			assert.InDelta(t, gun.Spread.BaseSpread, gun.Spread.Current(), 1e-9, "spread settles")
		})
	}
}

func TestDaemon_RunStopsOnCancel(t *testing.T) {
	d := testDaemon(t, config.LoadoutEntry{Slot: "A", Gun: "rifle", Perks: []string{"double_mag"}})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- d.run(ctx, time.Millisecond) }()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	case <-time.After(time.Second):
		t.Fatal("run did not stop")
	}
	assert.Equal(t, 60, d.guns[perk.SlotA].Ammo.MagazineSize())
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, parseLogLevel(tt.in))
		})
	}
}

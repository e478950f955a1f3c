package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/udisondev/gunstat/internal/combat"
	"github.com/udisondev/gunstat/internal/config"
	"github.com/udisondev/gunstat/internal/gunstat"
	"github.com/udisondev/gunstat/internal/model"
	"github.com/udisondev/gunstat/internal/perk"
	"github.com/udisondev/gunstat/internal/world"
)

// daemon owns the scene tree, the gun contexts and the perk manager.
// Everything is driven from one goroutine through tick.
type daemon struct {
	tree     *world.Tree
	registry *gunstat.Registry
	hitboxes *combat.HitboxRegistry
	perks    *perk.Manager

	slots    []perk.Slot
	guns     map[perk.Slot]*model.Gun
	rebuilds map[model.EntityID]uint64
}

func newDaemon(cfg config.Server, presets map[string]model.GunPreset, catalog *perk.Catalog) (*daemon, error) {
	d := &daemon{
		tree: world.NewTree(),
		registry: gunstat.NewRegistry(
			gunstat.WithFireControlWriteBack(cfg.WriteBack.FireControl),
			gunstat.WithAmmoWriteBack(cfg.WriteBack.Ammo),
		),
		hitboxes: combat.NewHitboxRegistry(cfg.Hitbox.Body, cfg.Hitbox.Head),
		guns:     make(map[perk.Slot]*model.Gun),
		rebuilds: make(map[model.EntityID]uint64),
	}
	d.perks = perk.NewManager(perk.ManagerConfig{
		Catalog:         catalog,
		Tree:            d.tree,
		Registry:        d.registry,
		Hitboxes:        d.hitboxes,
		MaxBindAttempts: cfg.Binding.MaxAttempts,
		SlotCapacity:    cfg.SlotCapacity,
	})

	for _, entry := range cfg.Loadout {
		slot, err := perk.ParseSlot(entry.Slot)
		if err != nil {
			return nil, fmt.Errorf("loadout: %w", err)
		}
		preset, ok := presets[strings.ToLower(entry.Gun)]
		if !ok {
			return nil, fmt.Errorf("slot %s: %w %q", slot, config.ErrUnknownPreset, entry.Gun)
		}

		id := d.tree.Spawn(preset.Name, world.KindGun, model.InvalidEntity)
		gun := preset.NewGun(id)
		d.registry.Create(gun)
		if err := d.perks.SetGun(slot, id); err != nil {
			return nil, fmt.Errorf("equipping %s in slot %s: %w", preset.Name, slot, err)
		}
		d.slots = append(d.slots, slot)
		d.guns[slot] = gun

		for _, perkID := range entry.Perks {
			if _, err := d.perks.Grant(slot, perkID); err != nil {
				return nil, fmt.Errorf("granting %s to slot %s: %w", perkID, slot, err)
			}
		}
		slog.Info("gun equipped", "slot", slot, "gun", preset.Name, "id", id, "perks", len(entry.Perks))
	}
	return d, nil
}

// tick advances bindings and rebuilds dirty guns. It returns the number of
// guns rebuilt and logs the resolved values of each of them.
func (d *daemon) tick() int {
	n := d.perks.Tick()
	if n == 0 {
		return 0
	}
	for _, slot := range d.slots {
		gun := d.guns[slot]
		ctx, ok := d.registry.Context(gun.ID)
		if !ok {
			continue
		}
		if r := ctx.Rebuilds(); r != d.rebuilds[gun.ID] {
			d.rebuilds[gun.ID] = r
			res := ctx.Resolved()
			slog.Info("gun stats resolved",
				"slot", slot,
				"gun", gun.Name,
				"rebuilds", r,
				"damage", res.Damage,
				"fire_rate", res.FireRate,
				"magazine", res.MagazineSize,
				"reload", res.ReloadTime,
				"pellets", res.PelletsPerShot,
				"perks", d.perks.Perks(slot))
		}
	}
	return n
}

// run ticks at the given rate until ctx is cancelled.
func (d *daemon) run(ctx context.Context, rate time.Duration) error {
	ticker := time.NewTicker(rate)
	defer ticker.Stop()

	slog.Info("tick loop started", "interval", rate)
	for {
		select {
		case <-ctx.Done():
			slog.Info("tick loop stopping")
			return ctx.Err()
		case <-ticker.C:
			d.tick()
		}
	}
}

// report prints the resolved table of every equipped gun, a few sample hits
// at rest, at falloff start and at max range, and one simulated magazine per
// gun.
func (d *daemon) report(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SLOT\tGUN\tMODE\tSHOT\tDAMAGE\tFIRE RATE\tSEMI CD\tRANGE\tFALLOFF\tMAG\tRELOAD\tPELLETS\tRECOVERY\tPERKS")
	for _, slot := range d.slots {
		gun := d.guns[slot]
		ctx, ok := d.registry.Context(gun.ID)
		if !ok {
			continue
		}
		r := ctx.Resolved()
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%.3f\t%.3f\t%.3f\t%.1f\t%.1f\t%d\t%.3f\t%d\t%.3f\t%s\n",
			slot, gun.Name, gun.FireMode(), gun.ShotType(),
			r.Damage, r.FireRate, r.SemiFireCooldown, r.MaxRange, r.FalloffStart,
			r.MagazineSize, r.ReloadTime, r.PelletsPerShot, r.SpreadRecoverySpeed,
			strings.Join(d.perks.Perks(slot), ","))
	}
	if err := tw.Flush(); err != nil {
		return fmt.Errorf("writing resolved table: %w", err)
	}

	fmt.Fprintln(w)
	tw = tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SLOT\tZONE\tDISTANCE\tDAMAGE\tZONE MUL\tFALLOFF")
	for _, slot := range d.slots {
		gun := d.guns[slot]
		ctx, ok := d.registry.Context(gun.ID)
		if !ok {
			continue
		}
		for _, dist := range []float64{0, ctx.FalloffStart(), ctx.MaxRange()} {
			for _, zone := range []combat.Zone{combat.ZoneBody, combat.ZoneHead} {
				hit, err := combat.Resolve(ctx, d.hitboxes, combat.NewHitEvent(gun.ID, zone, dist))
				if err != nil {
					return fmt.Errorf("resolving sample hit: %w", err)
				}
				fmt.Fprintf(tw, "%s\t%s\t%.1f\t%.3f\t%.2f\t%.2f\n",
					slot, zone, dist, hit.Damage, hit.ZoneMultiplier, hit.Falloff)
			}
		}
	}
	if err := tw.Flush(); err != nil {
		return fmt.Errorf("writing sample hits: %w", err)
	}

	fmt.Fprintln(w)
	tw = tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SLOT\tSHOTS\tEMPTY IN\tPEAK SPREAD\tRELOAD\tSTEPS\tLOADED\tRECOVER")
	for _, slot := range d.slots {
		m := simulateMagazine(d.guns[slot])
		fmt.Fprintf(tw, "%s\t%d\t%.3f\t%.3f\t%.3f\t%d\t%d\t%.3f\n",
			slot, m.shots, m.emptyIn, m.peakSpread, m.reload, m.steps, m.loaded, m.recover)
	}
	if err := tw.Flush(); err != nil {
		return fmt.Errorf("writing magazine run: %w", err)
	}
	return nil
}

// magazineRun summarises emptying one magazine, reloading and letting the
// spread settle.
type magazineRun struct {
	shots      int
	emptyIn    float64
	peakSpread float64
	reload     float64
	steps      int
	loaded     int
	recover    float64
}

// simulateMagazine fires gun until its magazine is empty, reloads it and
// recovers its spread. It drives the gun's own ammo and spread state.
func simulateMagazine(gun *model.Gun) magazineRun {
	var run magazineRun
	interval := gun.Fire.ShotInterval()
	run.peakSpread = gun.Spread.Current()

	for gun.Ammo.TryConsumeOne() {
		if run.shots > 0 {
			gun.Spread.Recover(interval)
			run.emptyIn += interval
		}
		gun.Spread.OnShotFired()
		run.peakSpread = max(run.peakSpread, gun.Spread.Current())
		run.shots++
	}

	if gun.Ammo.NeedsReload() {
		gun.Ammo.BeginExternalReload(false)
		run.reload = gun.Ammo.EffectiveReloadTime()
		switch gun.Ammo.Reload {
		case model.ReloadPerBullet:
			for gun.Ammo.CanInsertOne() {
				gun.Ammo.InsertOneNow()
				run.steps++
			}
		default:
			gun.Ammo.ApplyMagazineReloadNow()
			run.steps = 1
		}
		gun.Ammo.EndExternalReload()
		run.loaded = gun.Ammo.InMag()
	}

	if speed := gun.Spread.RecoverSpeed(); speed > 0 {
		run.recover = max(0, gun.Spread.Current()-gun.Spread.BaseSpread) / speed
		gun.Spread.Recover(run.recover)
	}
	return run
}

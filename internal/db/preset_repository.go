package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/udisondev/gunstat/internal/model"
)

// GunPresetRepository stores static gun presets.
type GunPresetRepository struct {
	pool *pgxpool.Pool
}

// NewGunPresetRepository creates a new gun preset repository.
func NewGunPresetRepository(pool *pgxpool.Pool) *GunPresetRepository {
	return &GunPresetRepository{pool: pool}
}

// LoadAll loads every preset ordered by name.
func (r *GunPresetRepository) LoadAll(ctx context.Context) ([]model.GunPreset, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT name, fire_mode, shot_type,
		       damage, fire_rate, semi_fire_cooldown, bullet_speed, max_range, falloff_start, pellets_per_shot,
		       magazine_size, reserve, reload_time, reload_type, insert_count_per_step,
		       base_spread, spread_per_shot, spread_recover_speed, max_spread
		FROM gun_presets
		ORDER BY name
	`)
	if err != nil {
		return nil, fmt.Errorf("loading gun presets: %w", err)
	}
	defer rows.Close()

	presets := make([]model.GunPreset, 0, 8)
	for rows.Next() {
		var (
			p                      model.GunPreset
			mode, shot, reloadType string
		)
		if err := rows.Scan(
			&p.Name, &mode, &shot,
			&p.Stats.Damage, &p.Stats.FireRate, &p.Stats.SemiFireCooldown, &p.Stats.BulletSpeed,
			&p.Stats.MaxRange, &p.Stats.FalloffStart, &p.Stats.PelletsPerShot,
			&p.MagazineSize, &p.Reserve, &p.ReloadTime, &reloadType, &p.InsertCountPerStep,
			&p.BaseSpread, &p.SpreadPerShot, &p.SpreadRecoverSpeed, &p.MaxSpread,
		); err != nil {
			return nil, fmt.Errorf("scanning gun preset row: %w", err)
		}

		if p.Mode, err = model.ParseFireMode(mode); err != nil {
			return nil, fmt.Errorf("gun preset %q: %w", p.Name, err)
		}
		if p.Shot, err = model.ParseShotType(shot); err != nil {
			return nil, fmt.Errorf("gun preset %q: %w", p.Name, err)
		}
		if p.Reload, err = model.ParseReloadType(reloadType); err != nil {
			return nil, fmt.Errorf("gun preset %q: %w", p.Name, err)
		}
		presets = append(presets, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating gun preset rows: %w", err)
	}
	return presets, nil
}

// Upsert inserts the presets or replaces existing ones with the same name,
// in a single transaction.
func (r *GunPresetRepository) Upsert(ctx context.Context, presets ...model.GunPreset) error {
	if len(presets) == 0 {
		return nil
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, p := range presets {
		if _, err := tx.Exec(ctx, `
			INSERT INTO gun_presets (
				name, fire_mode, shot_type,
				damage, fire_rate, semi_fire_cooldown, bullet_speed, max_range, falloff_start, pellets_per_shot,
				magazine_size, reserve, reload_time, reload_type, insert_count_per_step,
				base_spread, spread_per_shot, spread_recover_speed, max_spread
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
			ON CONFLICT (name) DO UPDATE SET
				fire_mode = EXCLUDED.fire_mode,
				shot_type = EXCLUDED.shot_type,
				damage = EXCLUDED.damage,
				fire_rate = EXCLUDED.fire_rate,
				semi_fire_cooldown = EXCLUDED.semi_fire_cooldown,
				bullet_speed = EXCLUDED.bullet_speed,
				max_range = EXCLUDED.max_range,
				falloff_start = EXCLUDED.falloff_start,
				pellets_per_shot = EXCLUDED.pellets_per_shot,
				magazine_size = EXCLUDED.magazine_size,
				reserve = EXCLUDED.reserve,
				reload_time = EXCLUDED.reload_time,
				reload_type = EXCLUDED.reload_type,
				insert_count_per_step = EXCLUDED.insert_count_per_step,
				base_spread = EXCLUDED.base_spread,
				spread_per_shot = EXCLUDED.spread_per_shot,
				spread_recover_speed = EXCLUDED.spread_recover_speed,
				max_spread = EXCLUDED.max_spread,
				updated_at = now()`,
			p.Name, p.Mode.String(), p.Shot.String(),
			p.Stats.Damage, p.Stats.FireRate, p.Stats.SemiFireCooldown, p.Stats.BulletSpeed,
			p.Stats.MaxRange, p.Stats.FalloffStart, p.Stats.PelletsPerShot,
			p.MagazineSize, p.Reserve, p.ReloadTime, p.Reload.String(), max(1, p.InsertCountPerStep),
			p.BaseSpread, p.SpreadPerShot, p.SpreadRecoverSpeed, p.MaxSpread,
		); err != nil {
			return fmt.Errorf("upsert gun preset %q: %w", p.Name, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit gun preset tx: %w", err)
	}
	return nil
}

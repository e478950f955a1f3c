package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/udisondev/gunstat/internal/model"
)

// EnvPath overrides the config path given on the command line.
const EnvPath = "GUNSTAT_CONFIG"

var (
	ErrNoGuns        = errors.New("no gun presets configured")
	ErrUnknownPreset = errors.New("loadout references unknown gun preset")
)

// Server holds all configuration for gunstatd.
type Server struct {
	LogLevel string        `yaml:"log_level"`
	TickRate time.Duration `yaml:"tick_rate"`

	// Perk catalog YAML. Imported into the database when it is enabled.
	CatalogPath  string `yaml:"catalog_path"`
	SlotCapacity int    `yaml:"slot_capacity"` // 0 = unlimited

	Binding   BindingConfig   `yaml:"binding"`
	WriteBack WriteBackConfig `yaml:"write_back"`
	Hitbox    HitboxConfig    `yaml:"hitbox"`

	// Database
	Database DatabaseConfig `yaml:"database"`

	Guns    []GunPreset    `yaml:"guns"`
	Loadout []LoadoutEntry `yaml:"loadout"`
}

// BindingConfig tunes the perk binding state machine.
type BindingConfig struct {
	MaxAttempts int `yaml:"max_attempts"` // 0 = unbounded
}

// WriteBackConfig toggles the default consumers a gun context pushes into.
type WriteBackConfig struct {
	FireControl bool `yaml:"fire_control"`
	Ammo        bool `yaml:"ammo"`
}

// HitboxConfig holds base damage multipliers per hit zone.
type HitboxConfig struct {
	Body float64 `yaml:"body"`
	Head float64 `yaml:"head"`
}

// DatabaseConfig holds PostgreSQL connection parameters.
type DatabaseConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	DBName   string `yaml:"dbname"`
	SSLMode  string `yaml:"sslmode"`
}

// DSN returns the PostgreSQL connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

// GunPreset is the YAML form of model.GunPreset.
type GunPreset struct {
	Name             string  `yaml:"name"`
	FireMode         string  `yaml:"fire_mode"`
	ShotType         string  `yaml:"shot_type"`
	Damage           float64 `yaml:"damage"`
	FireRate         float64 `yaml:"fire_rate"`
	SemiFireCooldown float64 `yaml:"semi_fire_cooldown"`
	BulletSpeed      float64 `yaml:"bullet_speed"`
	MaxRange         float64 `yaml:"max_range"`
	FalloffStart     float64 `yaml:"falloff_start"`
	PelletsPerShot   int     `yaml:"pellets_per_shot"`

	MagazineSize       int     `yaml:"magazine_size"`
	Reserve            int     `yaml:"reserve"`
	ReloadTime         float64 `yaml:"reload_time"`
	ReloadType         string  `yaml:"reload_type"`
	InsertCountPerStep int     `yaml:"insert_count_per_step"`

	BaseSpread         float64 `yaml:"base_spread"`
	SpreadPerShot      float64 `yaml:"spread_per_shot"`
	SpreadRecoverSpeed float64 `yaml:"spread_recover_speed"`
	MaxSpread          float64 `yaml:"max_spread"`
}

// Model converts the preset, parsing its enum fields.
func (g GunPreset) Model() (model.GunPreset, error) {
	mode, err := model.ParseFireMode(g.FireMode)
	if err != nil {
		return model.GunPreset{}, fmt.Errorf("gun preset %q: %w", g.Name, err)
	}
	shot, err := model.ParseShotType(g.ShotType)
	if err != nil {
		return model.GunPreset{}, fmt.Errorf("gun preset %q: %w", g.Name, err)
	}
	reload, err := model.ParseReloadType(g.ReloadType)
	if err != nil {
		return model.GunPreset{}, fmt.Errorf("gun preset %q: %w", g.Name, err)
	}
	return model.GunPreset{
		Name: g.Name,
		Mode: mode,
		Shot: shot,
		Stats: model.FireStats{
			Damage:           g.Damage,
			FireRate:         g.FireRate,
			SemiFireCooldown: g.SemiFireCooldown,
			BulletSpeed:      g.BulletSpeed,
			MaxRange:         g.MaxRange,
			FalloffStart:     g.FalloffStart,
			PelletsPerShot:   g.PelletsPerShot,
		},
		MagazineSize:       g.MagazineSize,
		Reserve:            g.Reserve,
		ReloadTime:         g.ReloadTime,
		Reload:             reload,
		InsertCountPerStep: g.InsertCountPerStep,
		BaseSpread:         g.BaseSpread,
		SpreadPerShot:      g.SpreadPerShot,
		SpreadRecoverSpeed: g.SpreadRecoverSpeed,
		MaxSpread:          g.MaxSpread,
	}, nil
}

// LoadoutEntry equips a preset in a slot and grants perks to it.
type LoadoutEntry struct {
	Slot  string   `yaml:"slot"`
	Gun   string   `yaml:"gun"`
	Perks []string `yaml:"perks"`
}

// DefaultServer returns Server config with sensible defaults.
func DefaultServer() Server {
	return Server{
		LogLevel:    "info",
		TickRate:    50 * time.Millisecond,
		CatalogPath: "config/perks.yaml",
		Binding: BindingConfig{
			MaxAttempts: 10,
		},
		WriteBack: WriteBackConfig{
			FireControl: true,
			Ammo:        true,
		},
		Hitbox: HitboxConfig{
			Body: 1,
			Head: 2,
		},
		Database: DatabaseConfig{
			Host:     "127.0.0.1",
			Port:     5432,
			User:     "gunstat",
			Password: "gunstat",
			DBName:   "gunstat",
			SSLMode:  "disable",
		},
		Guns: []GunPreset{
			{
				Name:               "rifle",
				FireMode:           "auto",
				ShotType:           "single",
				Damage:             12,
				FireRate:           8,
				SemiFireCooldown:   0.15,
				BulletSpeed:        90,
				MaxRange:           60,
				FalloffStart:       25,
				PelletsPerShot:     1,
				MagazineSize:       30,
				Reserve:            120,
				ReloadTime:         2,
				BaseSpread:         0.5,
				SpreadPerShot:      0.2,
				SpreadRecoverSpeed: 3,
				MaxSpread:          6,
			},
		},
		Loadout: []LoadoutEntry{
			{Slot: "A", Gun: "rifle"},
		},
	}
}

// LoadServer loads gunstatd config from a YAML file.
// If the file doesn't exist, returns defaults.
func LoadServer(path string) (Server, error) {
	cfg := DefaultServer()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("validating config %s: %w", path, err)
	}
	return cfg, nil
}

// ResolvePath returns the path from EnvPath when set, otherwise fallback.
func ResolvePath(fallback string) string {
	if p := os.Getenv(EnvPath); p != "" {
		return p
	}
	return fallback
}

// Preset returns the configured gun preset with the given name.
func (s Server) Preset(name string) (GunPreset, bool) {
	for _, g := range s.Guns {
		if strings.EqualFold(g.Name, name) {
			return g, true
		}
	}
	return GunPreset{}, false
}

// Validate checks values that would otherwise fail later at startup.
func (s Server) Validate() error {
	if s.TickRate <= 0 {
		return fmt.Errorf("tick_rate must be positive, got %s", s.TickRate)
	}
	if s.Binding.MaxAttempts < 0 {
		return fmt.Errorf("binding.max_attempts must not be negative, got %d", s.Binding.MaxAttempts)
	}
	if s.SlotCapacity < 0 {
		return fmt.Errorf("slot_capacity must not be negative, got %d", s.SlotCapacity)
	}
	if s.Hitbox.Body < 0 || s.Hitbox.Head < 0 {
		return fmt.Errorf("hitbox multipliers must not be negative")
	}
	if len(s.Guns) == 0 && !s.Database.Enabled {
		return ErrNoGuns
	}

	seen := make(map[string]struct{}, len(s.Guns))
	for _, g := range s.Guns {
		if g.Name == "" {
			return fmt.Errorf("gun preset without a name")
		}
		key := strings.ToLower(g.Name)
		if _, dup := seen[key]; dup {
			return fmt.Errorf("duplicate gun preset %q", g.Name)
		}
		seen[key] = struct{}{}
		if _, err := g.Model(); err != nil {
			return err
		}
	}

	slots := make(map[string]struct{}, len(s.Loadout))
	for _, e := range s.Loadout {
		slot := strings.ToUpper(strings.TrimSpace(e.Slot))
		if _, dup := slots[slot]; dup {
			return fmt.Errorf("slot %q appears twice in loadout", e.Slot)
		}
		slots[slot] = struct{}{}
		// Presets may also come from the database, checked at startup.
		if s.Database.Enabled {
			continue
		}
		if _, ok := s.Preset(e.Gun); !ok {
			return fmt.Errorf("slot %s: %w %q", e.Slot, ErrUnknownPreset, e.Gun)
		}
	}
	return nil
}

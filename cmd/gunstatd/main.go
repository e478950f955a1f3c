package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/udisondev/gunstat/internal/config"
	"github.com/udisondev/gunstat/internal/db"
	"github.com/udisondev/gunstat/internal/model"
	"github.com/udisondev/gunstat/internal/perk"
)

const DefaultConfigPath = "config/gunstat.yaml"

func main() {
	configPath := flag.String("config", DefaultConfigPath, "path to the YAML config (overridden by "+config.EnvPath+")")
	once := flag.Bool("once", false, "resolve one tick, print the resolved table and exit")
	flag.Parse()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := run(ctx, config.ResolvePath(*configPath), *once); err != nil {
		slog.Error("fatal", "err", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfgPath string, once bool) error {
	cfg, err := config.LoadServer(cfgPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: parseLogLevel(cfg.LogLevel),
	})))
	slog.Info("gunstatd starting", "config", cfgPath, "log_level", cfg.LogLevel, "tick_rate", cfg.TickRate)

	catalog, err := perk.LoadCatalog(cfg.CatalogPath)
	if err != nil {
		return fmt.Errorf("loading perk catalog: %w", err)
	}
	slog.Info("perk catalog loaded", "path", cfg.CatalogPath, "perks", catalog.Len(), "digest", catalog.Digest())

	presets, err := configPresets(cfg)
	if err != nil {
		return err
	}

	if cfg.Database.Enabled {
		database, err := db.New(ctx, cfg.Database.DSN())
		if err != nil {
			return fmt.Errorf("connecting to database: %w", err)
		}
		defer database.Close()
		slog.Info("database connected")

		version, err := db.RunMigrations(ctx, cfg.Database.DSN())
		if err != nil {
			return fmt.Errorf("running migrations: %w", err)
		}
		slog.Info("database migrations applied", "version", version)

		if presets, err = syncPresets(ctx, database, presets); err != nil {
			return err
		}
		if _, err := database.Catalogs().Import(ctx, catalog); err != nil {
			return fmt.Errorf("importing perk catalog: %w", err)
		}
	}

	d, err := newDaemon(cfg, presets, catalog)
	if err != nil {
		return fmt.Errorf("building loadout: %w", err)
	}

	if once {
		d.tick()
		return d.report(os.Stdout)
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := d.run(gctx, cfg.TickRate); err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("tick loop: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutting down")
		return nil
	})

	if err := g.Wait(); err != nil {
		return fmt.Errorf("daemon error: %w", err)
	}
	return nil
}

// configPresets converts the configured presets, keyed by lowercased name.
func configPresets(cfg config.Server) (map[string]model.GunPreset, error) {
	out := make(map[string]model.GunPreset, len(cfg.Guns))
	for _, g := range cfg.Guns {
		p, err := g.Model()
		if err != nil {
			return nil, fmt.Errorf("loading gun presets: %w", err)
		}
		out[strings.ToLower(p.Name)] = p
	}
	return out, nil
}

// syncPresets upserts the configured presets and returns everything stored,
// so presets added directly in the database are usable in the loadout.
func syncPresets(ctx context.Context, database *db.DB, fromConfig map[string]model.GunPreset) (map[string]model.GunPreset, error) {
	repo := database.Presets()

	upsert := make([]model.GunPreset, 0, len(fromConfig))
	for _, p := range fromConfig {
		upsert = append(upsert, p)
	}
	if err := repo.Upsert(ctx, upsert...); err != nil {
		return nil, fmt.Errorf("storing gun presets: %w", err)
	}

	stored, err := repo.LoadAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading gun presets: %w", err)
	}
	out := make(map[string]model.GunPreset, len(stored))
	for _, p := range stored {
		out[strings.ToLower(p.Name)] = p
	}
	slog.Info("gun presets loaded", "count", len(out))
	return out, nil
}

// parseLogLevel converts string log level to slog.Level.
// Defaults to Info if invalid or empty.
func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

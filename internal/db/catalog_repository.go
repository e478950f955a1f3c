package db

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/udisondev/gunstat/internal/perk"
)

// CatalogRecord is one imported revision of the perk catalog.
type CatalogRecord struct {
	ID         int64
	Digest     string
	Version    int
	PerkCount  int
	Body       []byte
	ImportedAt time.Time
}

// Catalog parses the stored YAML body.
func (r CatalogRecord) Catalog() (*perk.Catalog, error) {
	c, err := perk.ParseCatalog(r.Body)
	if err != nil {
		return nil, fmt.Errorf("parsing stored catalog %d: %w", r.ID, err)
	}
	return c, nil
}

// CatalogRepository keeps the history of imported perk catalogs.
type CatalogRepository struct {
	pool *pgxpool.Pool
}

// NewCatalogRepository creates a new perk catalog repository.
func NewCatalogRepository(pool *pgxpool.Pool) *CatalogRepository {
	return &CatalogRepository{pool: pool}
}

// Latest returns the most recently imported catalog.
// Returns false if nothing was imported yet.
func (r *CatalogRepository) Latest(ctx context.Context) (CatalogRecord, bool, error) {
	var (
		rec  CatalogRecord
		body string
	)
	err := r.pool.QueryRow(ctx,
		`SELECT id, digest, version, perk_count, body, imported_at
		 FROM perk_catalog ORDER BY id DESC LIMIT 1`,
	).Scan(&rec.ID, &rec.Digest, &rec.Version, &rec.PerkCount, &body, &rec.ImportedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return CatalogRecord{}, false, nil
	}
	if err != nil {
		return CatalogRecord{}, false, fmt.Errorf("querying latest perk catalog: %w", err)
	}
	rec.Body = []byte(body)
	return rec, true, nil
}

// Import stores c as the latest catalog. It does nothing and returns false
// when the latest stored catalog has the same digest.
func (r *CatalogRepository) Import(ctx context.Context, c *perk.Catalog) (bool, error) {
	digest := c.Digest()

	latest, ok, err := r.Latest(ctx)
	if err != nil {
		return false, err
	}
	if ok && latest.Digest == digest {
		slog.Debug("perk catalog unchanged", "digest", digest)
		return false, nil
	}

	if _, err := r.pool.Exec(ctx,
		`INSERT INTO perk_catalog (digest, version, perk_count, body)
		 VALUES ($1, $2, $3, $4)`,
		digest, c.Version, c.Len(), string(c.Source()),
	); err != nil {
		return false, fmt.Errorf("importing perk catalog %s: %w", digest, err)
	}
	slog.Info("perk catalog imported", "digest", digest, "perks", c.Len())
	return true, nil
}

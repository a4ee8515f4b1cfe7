package streets

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/mapas-livres/cnefe-reconciler/internal/db"
)

// migrations bootstrap the geo schema: the IBGE census-sector mesh and the
// OSM street layer with GIST indexes for the envelope queries. Statements
// are idempotent so migrate can run before every load.
var migrations = []string{
	`CREATE SCHEMA IF NOT EXISTS geo`,

	`CREATE TABLE IF NOT EXISTS geo.census_sectors (
		id          BIGSERIAL PRIMARY KEY,
		sector_code TEXT NOT NULL UNIQUE,
		state       TEXT,
		city_name   TEXT,
		geom        geometry(MultiPolygon, 4326) NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS geo.streets (
		id      BIGSERIAL PRIMARY KEY,
		osm_id  TEXT NOT NULL,
		name    TEXT NOT NULL DEFAULT '',
		fclass  TEXT NOT NULL DEFAULT '',
		geom    geometry(MultiLineString, 4326) NOT NULL
	)`,

	`CREATE INDEX IF NOT EXISTS idx_census_sectors_geom ON geo.census_sectors USING GIST (geom)`,
	`CREATE INDEX IF NOT EXISTS idx_census_sectors_code ON geo.census_sectors (sector_code)`,
	`CREATE INDEX IF NOT EXISTS idx_streets_geom ON geo.streets USING GIST (geom)`,
	`CREATE INDEX IF NOT EXISTS idx_streets_osm_id ON geo.streets (osm_id)`,
}

// Migrate creates the geo schema objects the provider queries against.
func Migrate(ctx context.Context, pool db.Pool) error {
	for _, stmt := range migrations {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return eris.Wrapf(err, "streets: migrate %q", firstLine(stmt))
		}
	}
	zap.L().Info("geo schema migrated", zap.Int("statements", len(migrations)))
	return nil
}

func firstLine(stmt string) string {
	for i, r := range stmt {
		if r == '\n' {
			return stmt[:i]
		}
	}
	return stmt
}

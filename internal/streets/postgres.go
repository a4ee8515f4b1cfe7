package streets

import (
	"context"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/mapas-livres/cnefe-reconciler/internal/db"
	"github.com/mapas-livres/cnefe-reconciler/internal/resilience"
)

// streetsInSectorSQL scopes candidates to the sector's bounding envelope.
// Unnamed geometries, rows without a road classification and footways are
// excluded at the source so the matcher never sees them.
const streetsInSectorSQL = `
	SELECT s.osm_id, s.name
	FROM geo.streets s
	JOIN geo.census_sectors cs ON cs.sector_code = $1
	WHERE s.name <> ''
	  AND s.fclass <> ''
	  AND s.fclass <> 'footway'
	  AND s.geom && ST_Envelope(cs.geom)
`

// PostgresProvider serves candidate streets from PostGIS. Queries are rate
// limited across the worker pool and retried on transient failures before an
// error surfaces to the orchestrator.
type PostgresProvider struct {
	pool    db.Pool
	limiter *rate.Limiter
	retry   resilience.RetryConfig
}

// NewPostgresProvider wraps a pgx pool. qps <= 0 disables rate limiting.
func NewPostgresProvider(pool db.Pool, qps float64, retry resilience.RetryConfig) *PostgresProvider {
	var limiter *rate.Limiter
	if qps > 0 {
		limiter = rate.NewLimiter(rate.Limit(qps), 1)
	}
	if retry.OnRetry == nil {
		retry.OnRetry = resilience.RetryLogger("streets_in_sector")
	}
	return &PostgresProvider{pool: pool, limiter: limiter, retry: retry}
}

// StreetsInSector returns the named, road-classified, non-footway streets
// whose geometry intersects the sector's envelope.
func (p *PostgresProvider) StreetsInSector(ctx context.Context, sectorCode string) ([]Candidate, error) {
	if p.limiter != nil {
		if err := p.limiter.Wait(ctx); err != nil {
			return nil, eris.Wrap(err, "streets: rate limit wait")
		}
	}

	return resilience.DoVal(ctx, p.retry, func(ctx context.Context) ([]Candidate, error) {
		return p.queryStreets(ctx, sectorCode)
	})
}

func (p *PostgresProvider) queryStreets(ctx context.Context, sectorCode string) ([]Candidate, error) {
	rows, err := p.pool.Query(ctx, streetsInSectorSQL, sectorCode)
	if err != nil {
		return nil, eris.Wrapf(err, "streets: query sector %s", sectorCode)
	}
	defer rows.Close()

	candidates := []Candidate{}
	for rows.Next() {
		var c Candidate
		if err := rows.Scan(&c.ID, &c.Name); err != nil {
			return nil, eris.Wrap(err, "streets: scan candidate row")
		}
		candidates = append(candidates, c)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "streets: iterate candidate rows")
	}
	return candidates, nil
}

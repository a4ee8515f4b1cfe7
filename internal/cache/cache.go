// Package cache persists reconciliation outcomes keyed by address so
// repeated runs skip already-resolved records.
package cache

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/mapas-livres/cnefe-reconciler/internal/cnefe"
)

// Store implements the reconciliation cache on modernc.org/sqlite. Workers
// share one Store per process; SQLite's WAL mode plus the busy timeout
// serialize concurrent row replaces, which is all the engine requires.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the cache database and configures WAL mode.
func Open(dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "cache: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close() //nolint:errcheck
			return nil, eris.Wrapf(err, "cache: exec %s", pragma)
		}
	}
	return &Store{db: db}, nil
}

const migration = `
CREATE TABLE IF NOT EXISTS addresses (
	address            TEXT PRIMARY KEY,
	state              TEXT NOT NULL,
	city               TEXT NOT NULL,
	district           TEXT NOT NULL,
	subdistrict        TEXT NOT NULL,
	sector             TEXT NOT NULL,
	sector_type        TEXT NOT NULL,
	neighborhood       TEXT NOT NULL,
	zipcode            TEXT NOT NULL,
	ibge_census_sector TEXT NOT NULL,
	osm_id             TEXT,
	on_osm             INTEGER NOT NULL DEFAULT 0,
	resolved_at        DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS runs (
	id          TEXT PRIMARY KEY,
	input_dir   TEXT NOT NULL,
	status      TEXT NOT NULL DEFAULT 'running',
	files       INTEGER NOT NULL DEFAULT 0,
	records     INTEGER NOT NULL DEFAULT 0,
	deduped     INTEGER NOT NULL DEFAULT 0,
	resolved    INTEGER NOT NULL DEFAULT 0,
	failed      INTEGER NOT NULL DEFAULT 0,
	started_at  DATETIME NOT NULL DEFAULT (datetime('now')),
	finished_at DATETIME
);

CREATE TABLE IF NOT EXISTS dead_letters (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	address    TEXT NOT NULL,
	record     TEXT NOT NULL,
	error      TEXT NOT NULL,
	error_type TEXT NOT NULL,
	run_id     TEXT,
	created_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_addresses_sector ON addresses(ibge_census_sector);
CREATE INDEX IF NOT EXISTS idx_dead_letters_address ON dead_letters(address);
CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status);
`

// Migrate creates the cache tables.
func (s *Store) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, migration)
	return eris.Wrap(err, "cache: migrate")
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Lookup returns the cached resolution for an address, or nil when absent.
func (s *Store) Lookup(ctx context.Context, address string) (*cnefe.AddressRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT address, state, city, district, subdistrict, sector, sector_type,
		       neighborhood, zipcode, ibge_census_sector, osm_id, on_osm
		FROM addresses WHERE address = ?`, address)

	var rec cnefe.AddressRecord
	var osmID sql.NullString
	err := row.Scan(
		&rec.Address, &rec.State, &rec.City, &rec.District, &rec.Subdistrict,
		&rec.Sector, &rec.SectorType, &rec.Neighborhood, &rec.Zipcode,
		&rec.IBGECensusSector, &osmID, &rec.OnOSM,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "cache: lookup %q", address)
	}
	if osmID.Valid {
		rec.OSMID = &osmID.String
	}
	return &rec, nil
}

// Upsert writes a resolution with replace semantics: one row per address,
// last write wins. The replace is a single atomic statement, so concurrent
// writers never expose a partial row.
func (s *Store) Upsert(ctx context.Context, rec *cnefe.AddressRecord) error {
	var osmID any
	if rec.OSMID != nil {
		osmID = *rec.OSMID
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO addresses (
			address, state, city, district, subdistrict, sector, sector_type,
			neighborhood, zipcode, ibge_census_sector, osm_id, on_osm, resolved_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.Address, rec.State, rec.City, rec.District, rec.Subdistrict,
		rec.Sector, rec.SectorType, rec.Neighborhood, rec.Zipcode,
		rec.IBGECensusSector, osmID, rec.OnOSM, time.Now().UTC(),
	)
	if err != nil {
		return eris.Wrapf(err, "cache: upsert %q", rec.Address)
	}
	return nil
}

// StartRun records the beginning of a reconcile invocation and returns its id.
func (s *Store) StartRun(ctx context.Context, inputDir string) (string, error) {
	id := uuid.New().String()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, input_dir, status, started_at) VALUES (?, ?, 'running', ?)`,
		id, inputDir, time.Now().UTC(),
	)
	if err != nil {
		return "", eris.Wrap(err, "cache: start run")
	}
	return id, nil
}

// RunCounters summarizes one reconcile invocation.
type RunCounters struct {
	Files    int
	Records  int
	Deduped  int
	Resolved int
	Failed   int
}

// FinishRun closes out a run row with its final counters.
func (s *Store) FinishRun(ctx context.Context, runID, status string, c RunCounters) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE runs
		SET status = ?, files = ?, records = ?, deduped = ?, resolved = ?, failed = ?, finished_at = ?
		WHERE id = ?`,
		status, c.Files, c.Records, c.Deduped, c.Resolved, c.Failed, time.Now().UTC(), runID,
	)
	return eris.Wrapf(err, "cache: finish run %s", runID)
}

// DeadLetter is a record whose provider resolution exhausted its retries.
type DeadLetter struct {
	ID        int64
	Address   string
	Record    cnefe.AddressRecord
	Error     string
	ErrorType string
	RunID     string
	CreatedAt time.Time
}

// AddDeadLetter stores a failed record for inspection and a later re-run.
func (s *Store) AddDeadLetter(ctx context.Context, rec *cnefe.AddressRecord, runID, errMsg, errType string) error {
	payload, err := json.Marshal(rec)
	if err != nil {
		return eris.Wrap(err, "cache: marshal dead letter")
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO dead_letters (address, record, error, error_type, run_id) VALUES (?, ?, ?, ?, ?)`,
		rec.Address, string(payload), errMsg, errType, runID,
	)
	return eris.Wrapf(err, "cache: add dead letter %q", rec.Address)
}

// ListDeadLetters returns up to limit dead letters, newest first.
func (s *Store) ListDeadLetters(ctx context.Context, limit int) ([]DeadLetter, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, address, record, error, error_type, COALESCE(run_id, ''), created_at
		FROM dead_letters ORDER BY created_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, eris.Wrap(err, "cache: list dead letters")
	}
	defer rows.Close() //nolint:errcheck

	var out []DeadLetter
	for rows.Next() {
		var dl DeadLetter
		var payload string
		if err := rows.Scan(&dl.ID, &dl.Address, &payload, &dl.Error, &dl.ErrorType, &dl.RunID, &dl.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "cache: scan dead letter")
		}
		if err := json.Unmarshal([]byte(payload), &dl.Record); err != nil {
			return nil, eris.Wrap(err, "cache: unmarshal dead letter record")
		}
		out = append(out, dl)
	}
	return out, eris.Wrap(rows.Err(), "cache: iterate dead letters")
}

// Stats aggregates cache contents for the status command.
type Stats struct {
	Resolved    int
	OnOSM       int
	Suggested   int // fuzzy matches: osm_id set but on_osm false
	Unmatched   int
	DeadLetters int
	Runs        int
}

// ReadStats computes aggregate counts over the cache.
func (s *Store) ReadStats(ctx context.Context) (*Stats, error) {
	var st Stats
	err := s.db.QueryRowContext(ctx, `
		SELECT
			COUNT(*),
			COALESCE(SUM(on_osm), 0),
			COALESCE(SUM(CASE WHEN osm_id IS NOT NULL AND on_osm = 0 THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN osm_id IS NULL AND on_osm = 0 THEN 1 ELSE 0 END), 0)
		FROM addresses`).
		Scan(&st.Resolved, &st.OnOSM, &st.Suggested, &st.Unmatched)
	if err != nil {
		return nil, eris.Wrap(err, "cache: stats addresses")
	}

	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM dead_letters`).Scan(&st.DeadLetters); err != nil {
		return nil, eris.Wrap(err, "cache: stats dead letters")
	}
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM runs`).Scan(&st.Runs); err != nil {
		return nil, eris.Wrap(err, "cache: stats runs")
	}
	return &st, nil
}

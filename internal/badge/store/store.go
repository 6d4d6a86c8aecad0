// Package store persists CO2 measurement runs for the badge service.
// Reads go through a Redis cache in front of Postgres; cache failures
// degrade to a direct database read, mirroring the measurement core's
// absorb-and-proceed policy for external dependencies.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// DefaultCacheTTL bounds how stale a cached badge value may be.
const DefaultCacheTTL = 60 * time.Second

// MeasurementRun is one measurement record submitted by a CI pipeline.
type MeasurementRun struct {
	ID        int64     `json:"id"`
	Org       string    `json:"org"`
	Repo      string    `json:"repo"`
	EnergyKWh float64   `json:"energy_kwh"`
	CO2Kg     float64   `json:"co2_kg"`
	DurationS float64   `json:"duration_s"`
	CreatedAt time.Time `json:"created_at"`
}

// Store reads and writes measurement runs. A nil cache client disables
// caching entirely; every read then hits Postgres.
type Store struct {
	db    *sql.DB
	cache *redis.Client
	ttl   time.Duration
	log   zerolog.Logger
}

// New creates a Store. ttl <= 0 selects DefaultCacheTTL.
func New(db *sql.DB, cache *redis.Client, ttl time.Duration, log zerolog.Logger) *Store {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &Store{db: db, cache: cache, ttl: ttl, log: log}
}

// Migrate creates the measurement_runs table and its lookup index.
func (s *Store) Migrate(ctx context.Context) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS measurement_runs (
	id         BIGSERIAL PRIMARY KEY,
	org        TEXT NOT NULL,
	repo       TEXT NOT NULL,
	energy_kwh DOUBLE PRECISION NOT NULL CHECK (energy_kwh >= 0),
	co2_kg     DOUBLE PRECISION NOT NULL CHECK (co2_kg >= 0),
	duration_s DOUBLE PRECISION NOT NULL CHECK (duration_s >= 0),
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_measurement_runs_org_repo_created
	ON measurement_runs (org, repo, created_at DESC);`

	if _, err := s.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("store: migrate: %w", err)
	}
	return nil
}

// LatestMeasurement returns the newest run for org/repo, or nil when no
// measurement exists yet.
func (s *Store) LatestMeasurement(ctx context.Context, org, repo string) (*MeasurementRun, error) {
	if run, ok := s.cacheGet(ctx, org, repo); ok {
		return run, nil
	}

	var run MeasurementRun
	err := s.db.QueryRowContext(ctx,
		`SELECT id, org, repo, energy_kwh, co2_kg, duration_s, created_at
		 FROM measurement_runs
		 WHERE org = $1 AND repo = $2
		 ORDER BY created_at DESC
		 LIMIT 1`,
		org, repo,
	).Scan(&run.ID, &run.Org, &run.Repo, &run.EnergyKWh, &run.CO2Kg, &run.DurationS, &run.CreatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: latest measurement: %w", err)
	}

	s.cacheSet(ctx, &run)
	return &run, nil
}

// InsertMeasurement stores a run and invalidates the cached latest
// value for its org/repo.
func (s *Store) InsertMeasurement(ctx context.Context, run *MeasurementRun) error {
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO measurement_runs (org, repo, energy_kwh, co2_kg, duration_s)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id, created_at`,
		run.Org, run.Repo, run.EnergyKWh, run.CO2Kg, run.DurationS,
	).Scan(&run.ID, &run.CreatedAt)
	if err != nil {
		return fmt.Errorf("store: insert measurement: %w", err)
	}

	if s.cache != nil {
		if err := s.cache.Del(ctx, cacheKey(run.Org, run.Repo)).Err(); err != nil {
			s.log.Warn().Err(err).Str("org", run.Org).Str("repo", run.Repo).
				Msg("cache invalidation failed")
		}
	}
	return nil
}

// Ping verifies database connectivity for health reporting.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func cacheKey(org, repo string) string {
	return "ecoci:latest:" + org + "/" + repo
}

func (s *Store) cacheGet(ctx context.Context, org, repo string) (*MeasurementRun, bool) {
	if s.cache == nil {
		return nil, false
	}
	raw, err := s.cache.Get(ctx, cacheKey(org, repo)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			s.log.Warn().Err(err).Msg("cache read failed, falling back to database")
		}
		cacheMisses.Inc()
		return nil, false
	}
	var run MeasurementRun
	if err := json.Unmarshal(raw, &run); err != nil {
		s.log.Warn().Err(err).Msg("cache entry corrupt, falling back to database")
		cacheMisses.Inc()
		return nil, false
	}
	cacheHits.Inc()
	return &run, true
}

func (s *Store) cacheSet(ctx context.Context, run *MeasurementRun) {
	if s.cache == nil {
		return
	}
	raw, err := json.Marshal(run)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, cacheKey(run.Org, run.Repo), raw, s.ttl).Err(); err != nil {
		s.log.Warn().Err(err).Msg("cache write failed")
	}
}

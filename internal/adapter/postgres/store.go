// Package postgres implements the persistence collaborator on PostgreSQL
// with PostGIS geometry columns: find-or-create for POIs and append-only
// writes for traffic and weather snapshots.
package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/wan300/jiaotong/internal/domain"
)

// pool is the subset of pgxpool.Pool the store uses; pgxmock satisfies it
// in unit tests.
type pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
	Close()
}

// Store persists collected city data.
type Store struct {
	pool   pool
	logger *slog.Logger
}

// New connects a pgx pool to the given database URL. The connection is not
// verified here; Initialize does that once at startup.
func New(ctx context.Context, databaseURL string, logger *slog.Logger) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	p, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	return &Store{pool: p, logger: logger}, nil
}

const migration = `
CREATE EXTENSION IF NOT EXISTS postgis;

CREATE TABLE IF NOT EXISTS pois (
	id          BIGSERIAL PRIMARY KEY,
	amap_id     TEXT NOT NULL,
	name        TEXT NOT NULL,
	category    TEXT NOT NULL,
	type        TEXT NOT NULL DEFAULT '',
	address     TEXT NOT NULL DEFAULT '',
	location    geometry(Point, 4326) NOT NULL,
	city        TEXT NOT NULL,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_pois_amap_id ON pois(amap_id);
CREATE INDEX IF NOT EXISTS idx_pois_category ON pois(category);

CREATE TABLE IF NOT EXISTS road_traffic (
	id          BIGSERIAL PRIMARY KEY,
	district    TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	evaluation  JSONB,
	roads       JSONB NOT NULL,
	area        geometry(Polygon, 4326) NOT NULL,
	captured_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_road_traffic_district ON road_traffic(district);
CREATE INDEX IF NOT EXISTS idx_road_traffic_captured_at ON road_traffic(captured_at);

CREATE TABLE IF NOT EXISTS weather (
	id             BIGSERIAL PRIMARY KEY,
	city           TEXT NOT NULL,
	adcode         TEXT NOT NULL,
	weather        TEXT NOT NULL DEFAULT '',
	temperature    DOUBLE PRECISION NOT NULL,
	humidity       DOUBLE PRECISION NOT NULL,
	wind_direction TEXT NOT NULL DEFAULT '',
	wind_power     TEXT NOT NULL DEFAULT '',
	report_time    TIMESTAMPTZ,
	created_at     TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_weather_created_at ON weather(created_at);
`

// Initialize verifies connectivity and applies the schema. It runs once at
// startup; a failure here is fatal to the process before any cadence starts.
func (s *Store) Initialize(ctx context.Context) error {
	if err := s.pool.Ping(ctx); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	if _, err := s.pool.Exec(ctx, migration); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	s.logger.Info("store initialized")
	return nil
}

// CheckReadiness reports whether the database is reachable.
func (s *Store) CheckReadiness(ctx context.Context) error {
	if err := s.pool.Ping(ctx); err != nil {
		return fmt.Errorf("database unreachable: %w", err)
	}
	return nil
}

const insertPOI = `
INSERT INTO pois (amap_id, name, category, type, address, location, city)
VALUES ($1, $2, $3, $4, $5, ST_GeomFromGeoJSON($6), $7)
ON CONFLICT (amap_id) DO NOTHING`

// CreatePOIIfAbsent inserts a POI unless its external identifier is already
// present. The unique index makes the existence-check-and-insert atomic, so
// concurrent runs racing on one key cannot create duplicates; losing the race
// is benign and reports created=false. Existing rows are never updated.
func (s *Store) CreatePOIIfAbsent(ctx context.Context, poi domain.POI) (bool, error) {
	location, err := geometryJSON(poi.Location)
	if err != nil {
		return false, fmt.Errorf("%w: poi %s location: %v", domain.ErrPersistence, poi.AMapID, err)
	}
	tag, err := s.pool.Exec(ctx, insertPOI,
		poi.AMapID, poi.Name, poi.Category, poi.Type, poi.Address, location, poi.City)
	if err != nil {
		return false, fmt.Errorf("%w: insert poi %s: %v", domain.ErrPersistence, poi.AMapID, err)
	}
	return tag.RowsAffected() == 1, nil
}

const insertTraffic = `
INSERT INTO road_traffic (district, description, evaluation, roads, area, captured_at)
VALUES ($1, $2, $3, $4, ST_GeomFromGeoJSON($5), $6)`

// AppendTraffic inserts one traffic snapshot. Every snapshot is an
// independent row; nothing is ever merged or overwritten.
func (s *Store) AppendTraffic(ctx context.Context, snapshot domain.TrafficSnapshot) error {
	area, err := geometryJSON(snapshot.Area)
	if err != nil {
		return fmt.Errorf("%w: traffic area %s: %v", domain.ErrPersistence, snapshot.District, err)
	}
	var evaluation any
	if len(snapshot.Evaluation) > 0 {
		evaluation = []byte(snapshot.Evaluation)
	}
	_, err = s.pool.Exec(ctx, insertTraffic,
		snapshot.District, snapshot.Description, evaluation, []byte(snapshot.Roads),
		area, snapshot.CapturedAt)
	if err != nil {
		return fmt.Errorf("%w: insert traffic %s: %v", domain.ErrPersistence, snapshot.District, err)
	}
	return nil
}

const insertWeather = `
INSERT INTO weather (city, adcode, weather, temperature, humidity, wind_direction, wind_power, report_time)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

// AppendWeather inserts one weather observation. Duplicates across runs are
// acceptable; the table is a time series with no dedup key.
func (s *Store) AppendWeather(ctx context.Context, snapshot domain.WeatherSnapshot) error {
	var reportTime any
	if !snapshot.ReportTime.IsZero() {
		reportTime = snapshot.ReportTime
	}
	_, err := s.pool.Exec(ctx, insertWeather,
		snapshot.City, snapshot.Adcode, snapshot.Weather,
		snapshot.Temperature, snapshot.Humidity,
		snapshot.WindDirection, snapshot.WindPower, reportTime)
	if err != nil {
		return fmt.Errorf("%w: insert weather %s: %v", domain.ErrPersistence, snapshot.Adcode, err)
	}
	return nil
}

// Close releases the connection pool.
func (s *Store) Close() {
	s.pool.Close()
}

// geometryJSON encodes an orb geometry as GeoJSON for ST_GeomFromGeoJSON.
func geometryJSON(g orb.Geometry) (string, error) {
	b, err := json.Marshal(geojson.NewGeometry(g))
	if err != nil {
		return "", err
	}
	return string(b), nil
}

package store

import (
	"database/sql"
	"fmt"
	"log"
	"time"
)

type migration struct {
	Version     int
	Description string
	SQL         string
}

var migrations = []migration{
	{
		Version:     1,
		Description: "Initial schema",
		SQL: `
CREATE TABLE IF NOT EXISTS grid_regions (
    region_id TEXT PRIMARY KEY,
    region_name TEXT NOT NULL,
    timezone TEXT DEFAULT 'UTC',
    latitude REAL NOT NULL,
    longitude REAL NOT NULL,
    coverage_states TEXT,
    region_type TEXT NOT NULL,
    created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
    updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS grid_metrics (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    timestamp_utc DATETIME NOT NULL,
    region_id TEXT NOT NULL REFERENCES grid_regions(region_id),
    load_mw REAL NOT NULL DEFAULT 0,
    forecast_load_mw REAL,
    total_generation_mw REAL NOT NULL DEFAULT 0,
    generation_by_fuel TEXT,
    net_interchange_mw REAL NOT NULL DEFAULT 0,
    renewable_fraction_pct REAL NOT NULL DEFAULT 0,
    carbon_intensity_kg_per_mwh REAL NOT NULL DEFAULT 0,
    lmp_energy_price_usd_mwh REAL,
    source TEXT,
    created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
    UNIQUE(region_id, timestamp_utc)
);

CREATE TABLE IF NOT EXISTS ingest_runs (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    source TEXT NOT NULL,
    started_at DATETIME NOT NULL,
    completed_at DATETIME,
    status TEXT NOT NULL DEFAULT 'running',
    records_processed INTEGER,
    error_message TEXT
);

CREATE INDEX IF NOT EXISTS idx_metrics_region_time ON grid_metrics(region_id, timestamp_utc);
CREATE INDEX IF NOT EXISTS idx_metrics_time ON grid_metrics(timestamp_utc);
CREATE INDEX IF NOT EXISTS idx_ingest_runs_source ON ingest_runs(source, started_at);
`,
	},
}

func (s *Store) Migrate() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			description TEXT,
			applied_at DATETIME NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}

	var current sql.NullInt64
	if err := s.db.QueryRow(`SELECT MAX(version) FROM schema_migrations`).Scan(&current); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}

	for _, m := range migrations {
		if current.Valid && m.Version <= int(current.Int64) {
			continue
		}

		log.Printf("store: applying migration %d: %s", m.Version, m.Description)
		if _, err := s.db.Exec(m.SQL); err != nil {
			return fmt.Errorf("migration %d: %w", m.Version, err)
		}
		if _, err := s.db.Exec(
			`INSERT INTO schema_migrations (version, description, applied_at) VALUES (?, ?, ?)`,
			m.Version, m.Description, time.Now().UTC(),
		); err != nil {
			return fmt.Errorf("record migration %d: %w", m.Version, err)
		}
	}

	return nil
}

package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gridpulse/gridpulse/internal/models"
)

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// InsertRegion creates the region if it does not exist. Existing rows are left
// untouched, so registry seeding is safe on every ingestion cycle.
func (s *Store) InsertRegion(r models.Region) error {
	states, err := json.Marshal(r.CoverageStates)
	if err != nil {
		return fmt.Errorf("marshal coverage states: %w", err)
	}
	_, err = s.db.Exec(`
		INSERT INTO grid_regions (region_id, region_name, timezone, latitude, longitude, coverage_states, region_type)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(region_id) DO NOTHING
	`, r.RegionID, r.Name, r.Timezone, r.Latitude, r.Longitude, string(states), r.RegionType)
	return err
}

func (s *Store) GetRegion(regionID string) (*models.Region, error) {
	row := s.db.QueryRow(`
		SELECT region_id, region_name, timezone, latitude, longitude, coverage_states, region_type, created_at, updated_at
		FROM grid_regions
		WHERE region_id = ?
	`, regionID)

	r, err := scanRegion(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return r, nil
}

func (s *Store) ListRegions() ([]models.Region, error) {
	rows, err := s.db.Query(`
		SELECT region_id, region_name, timezone, latitude, longitude, coverage_states, region_type, created_at, updated_at
		FROM grid_regions
		ORDER BY region_id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var regions []models.Region
	for rows.Next() {
		r, err := scanRegion(rows)
		if err != nil {
			return nil, err
		}
		regions = append(regions, *r)
	}
	return regions, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRegion(row rowScanner) (*models.Region, error) {
	var r models.Region
	var states sql.NullString
	if err := row.Scan(&r.RegionID, &r.Name, &r.Timezone, &r.Latitude, &r.Longitude, &states, &r.RegionType, &r.CreatedAt, &r.UpdatedAt); err != nil {
		return nil, err
	}
	if states.Valid && states.String != "" {
		if err := json.Unmarshal([]byte(states.String), &r.CoverageStates); err != nil {
			return nil, fmt.Errorf("unmarshal coverage states for %s: %w", r.RegionID, err)
		}
	}
	return &r, nil
}

// ApplyMetric writes a metric with non-destructive merge semantics. If a row
// exists for (region, timestamp) the incoming record is reconciled field by
// field against it (see Reconcile); otherwise a new row is inserted. Returns
// whether a new row was created.
func (s *Store) ApplyMetric(m models.GridMetric) (bool, error) {
	existing, err := s.GetMetric(m.RegionID, m.TimestampUTC)
	if err != nil {
		return false, fmt.Errorf("lookup metric %s@%s: %w", m.RegionID, m.TimestampUTC.Format(time.RFC3339), err)
	}

	if existing == nil {
		if err := s.insertMetric(m); err != nil {
			return false, fmt.Errorf("insert metric %s@%s: %w", m.RegionID, m.TimestampUTC.Format(time.RFC3339), err)
		}
		return true, nil
	}

	merged := Reconcile(*existing, m)
	if err := s.updateMetric(merged); err != nil {
		return false, fmt.Errorf("update metric %s@%s: %w", m.RegionID, m.TimestampUTC.Format(time.RFC3339), err)
	}
	return false, nil
}

// UpsertMetric overwrites the load and generation bundle on conflict. Used by
// snapshot collectors that produce complete single-region records, where
// field-level reconciliation is unnecessary.
func (s *Store) UpsertMetric(m models.GridMetric) error {
	fuel, err := marshalFuelMix(m.GenerationByFuel)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(`
		INSERT INTO grid_metrics (timestamp_utc, region_id, load_mw, forecast_load_mw, total_generation_mw, generation_by_fuel, net_interchange_mw, renewable_fraction_pct, carbon_intensity_kg_per_mwh, lmp_energy_price_usd_mwh, source)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(region_id, timestamp_utc) DO UPDATE SET
			load_mw = excluded.load_mw,
			total_generation_mw = excluded.total_generation_mw,
			generation_by_fuel = excluded.generation_by_fuel,
			renewable_fraction_pct = excluded.renewable_fraction_pct,
			carbon_intensity_kg_per_mwh = excluded.carbon_intensity_kg_per_mwh
	`, m.TimestampUTC, m.RegionID, m.LoadMW, m.ForecastLoadMW, m.TotalGenerationMW, fuel,
		m.NetInterchangeMW, m.RenewablePct, m.CarbonIntensity, m.LMPPriceUSDMWh, m.Source)
	return err
}

func (s *Store) insertMetric(m models.GridMetric) error {
	fuel, err := marshalFuelMix(m.GenerationByFuel)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(`
		INSERT INTO grid_metrics (timestamp_utc, region_id, load_mw, forecast_load_mw, total_generation_mw, generation_by_fuel, net_interchange_mw, renewable_fraction_pct, carbon_intensity_kg_per_mwh, lmp_energy_price_usd_mwh, source)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, m.TimestampUTC, m.RegionID, m.LoadMW, m.ForecastLoadMW, m.TotalGenerationMW, fuel,
		m.NetInterchangeMW, m.RenewablePct, m.CarbonIntensity, m.LMPPriceUSDMWh, m.Source)
	return err
}

func (s *Store) updateMetric(m models.GridMetric) error {
	fuel, err := marshalFuelMix(m.GenerationByFuel)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(`
		UPDATE grid_metrics SET
			load_mw = ?,
			forecast_load_mw = ?,
			total_generation_mw = ?,
			generation_by_fuel = ?,
			net_interchange_mw = ?,
			renewable_fraction_pct = ?,
			carbon_intensity_kg_per_mwh = ?,
			source = ?
		WHERE region_id = ? AND timestamp_utc = ?
	`, m.LoadMW, m.ForecastLoadMW, m.TotalGenerationMW, fuel, m.NetInterchangeMW,
		m.RenewablePct, m.CarbonIntensity, m.Source, m.RegionID, m.TimestampUTC)
	return err
}

// GetMetric returns the metric for an exact (region, timestamp) key, or nil.
func (s *Store) GetMetric(regionID string, ts time.Time) (*models.GridMetric, error) {
	row := s.db.QueryRow(metricSelect+`
		WHERE region_id = ? AND timestamp_utc = ?
	`, regionID, ts)
	return scanMetricRow(row)
}

// GetLatestMetric returns the most recent metric for a region, or nil.
func (s *Store) GetLatestMetric(regionID string) (*models.GridMetric, error) {
	row := s.db.QueryRow(metricSelect+`
		WHERE region_id = ?
		ORDER BY timestamp_utc DESC
		LIMIT 1
	`, regionID)
	return scanMetricRow(row)
}

// GetMetrics returns metrics for a region in [start, end], oldest first.
func (s *Store) GetMetrics(regionID string, start, end time.Time) ([]models.GridMetric, error) {
	rows, err := s.db.Query(metricSelect+`
		WHERE region_id = ? AND timestamp_utc >= ? AND timestamp_utc <= ?
		ORDER BY timestamp_utc ASC
	`, regionID, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var metrics []models.GridMetric
	for rows.Next() {
		m, err := scanMetric(rows)
		if err != nil {
			return nil, err
		}
		metrics = append(metrics, *m)
	}
	return metrics, rows.Err()
}

const metricSelect = `
	SELECT id, timestamp_utc, region_id, load_mw, forecast_load_mw, total_generation_mw, generation_by_fuel, net_interchange_mw, renewable_fraction_pct, carbon_intensity_kg_per_mwh, lmp_energy_price_usd_mwh, source, created_at
	FROM grid_metrics`

func scanMetricRow(row *sql.Row) (*models.GridMetric, error) {
	m, err := scanMetric(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return m, nil
}

func scanMetric(row rowScanner) (*models.GridMetric, error) {
	var m models.GridMetric
	var fuel sql.NullString
	var source sql.NullString
	if err := row.Scan(&m.ID, &m.TimestampUTC, &m.RegionID, &m.LoadMW, &m.ForecastLoadMW,
		&m.TotalGenerationMW, &fuel, &m.NetInterchangeMW, &m.RenewablePct,
		&m.CarbonIntensity, &m.LMPPriceUSDMWh, &source, &m.CreatedAt); err != nil {
		return nil, err
	}
	m.Source = source.String
	m.GenerationByFuel = models.NewFuelMix()
	if fuel.Valid && fuel.String != "" {
		if err := json.Unmarshal([]byte(fuel.String), &m.GenerationByFuel); err != nil {
			return nil, fmt.Errorf("unmarshal fuel mix for %s: %w", m.RegionID, err)
		}
	}
	m.TimestampUTC = m.TimestampUTC.UTC()
	return &m, nil
}

func marshalFuelMix(mix map[string]float64) (string, error) {
	if mix == nil {
		mix = models.NewFuelMix()
	}
	b, err := json.Marshal(mix)
	if err != nil {
		return "", fmt.Errorf("marshal fuel mix: %w", err)
	}
	return string(b), nil
}

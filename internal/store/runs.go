package store

import (
	"database/sql"
	"time"

	"github.com/gridpulse/gridpulse/internal/models"
)

// IngestRun is the persisted audit record for one collector invocation.
type IngestRun struct {
	ID               int64
	Source           string
	StartedAt        time.Time
	CompletedAt      sql.NullTime
	Status           string
	RecordsProcessed sql.NullInt64
	ErrorMessage     sql.NullString
}

// RecordRun persists a collector run summary.
func (s *Store) RecordRun(r models.RunResult) error {
	var errMsg sql.NullString
	if r.Error != "" {
		errMsg = sql.NullString{String: r.Error, Valid: true}
	}
	_, err := s.db.Exec(`
		INSERT INTO ingest_runs (source, started_at, completed_at, status, records_processed, error_message)
		VALUES (?, ?, ?, ?, ?, ?)
	`, r.Source, r.StartedAt, r.CompletedAt, r.Status, r.RecordsProcessed, errMsg)
	return err
}

// GetRecentRuns returns the most recent run summaries for a source, newest
// first.
func (s *Store) GetRecentRuns(source string, limit int) ([]IngestRun, error) {
	rows, err := s.db.Query(`
		SELECT id, source, started_at, completed_at, status, records_processed, error_message
		FROM ingest_runs
		WHERE source = ?
		ORDER BY started_at DESC
		LIMIT ?
	`, source, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []IngestRun
	for rows.Next() {
		var r IngestRun
		if err := rows.Scan(&r.ID, &r.Source, &r.StartedAt, &r.CompletedAt, &r.Status, &r.RecordsProcessed, &r.ErrorMessage); err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

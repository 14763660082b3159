// Package history records one row per completed submission.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Entry is one recorded submission.
type Entry struct {
	ID         string    `json:"id" doc:"Analysis ID"`
	Filename   string    `json:"filename" doc:"Submitted file name" example:"parcels.geojson"`
	Status     string    `json:"status" enum:"success,partial_success,failure" doc:"Outcome kind"`
	Anomalies  int       `json:"anomalies" doc:"Anomalies detected"`
	MeanScore  string    `json:"meanScore" doc:"Mean anomaly score"`
	ModelType  string    `json:"modelType" doc:"Model used"`
	ErrorCount int       `json:"errorCount" doc:"Number of issues in the report"`
	Message    string    `json:"message,omitempty" doc:"Message shown to the user"`
	CreatedAt  time.Time `json:"createdAt" doc:"When the submission settled"`
}

const schema = `
CREATE TABLE IF NOT EXISTS analyses (
	id          VARCHAR PRIMARY KEY,
	filename    VARCHAR NOT NULL,
	status      VARCHAR NOT NULL,
	anomalies   INTEGER NOT NULL,
	mean_score  VARCHAR NOT NULL,
	model_type  VARCHAR NOT NULL,
	error_count INTEGER NOT NULL,
	message     VARCHAR NOT NULL,
	created_at  TIMESTAMP NOT NULL
)`

// Store persists entries in DuckDB.
type Store struct {
	db *sql.DB
}

// New creates the analyses table if needed.
func New(ctx context.Context, db *sql.DB) (*Store, error) {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return nil, fmt.Errorf("failed to create analyses table: %w", err)
	}
	return &Store{db: db}, nil
}

// Record inserts an entry.
func (s *Store) Record(ctx context.Context, e Entry) error {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO analyses (id, filename, status, anomalies, mean_score, model_type, error_count, message, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.Filename, e.Status, e.Anomalies, e.MeanScore, e.ModelType, e.ErrorCount, e.Message, e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to record analysis %s: %w", e.ID, err)
	}
	return nil
}

// List returns the newest entries first. A non-positive limit means 50.
func (s *Store) List(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, filename, status, anomalies, mean_score, model_type, error_count, message, created_at
		 FROM analyses ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list analyses: %w", err)
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.Filename, &e.Status, &e.Anomalies, &e.MeanScore,
			&e.ModelType, &e.ErrorCount, &e.Message, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan analysis row: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

package sqlite

import (
	"context"
	"time"

	"github.com/artpar/datagate/domain/calllog"
	"github.com/artpar/datagate/ports"
)

// CallStore implements ports.CallStore using SQLite.
type CallStore struct {
	db *DB
}

// NewCallStore creates a new SQLite call store.
func NewCallStore(db *DB) *CallStore {
	return &CallStore{db: db}
}

// RecordBatch stores multiple call events.
func (s *CallStore) RecordBatch(ctx context.Context, events []calllog.Event) error {
	if len(events) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO call_events (
			id, resource, operation, method, url, http_code, attempts,
			status, latency_ms, error, timestamp
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, e := range events {
		// Store timestamp in UTC for consistent querying
		_, err := stmt.ExecContext(ctx,
			e.ID, e.Resource, e.Operation, e.Method, e.URL, e.HTTPCode, e.Attempts,
			string(e.Status), e.LatencyMs, e.Error, e.Timestamp.UTC(),
		)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

// GetSummary returns aggregated call activity for a period.
func (s *CallStore) GetSummary(ctx context.Context, resource string, start, end time.Time) (calllog.Summary, error) {
	// Format times as ISO8601 strings for SQLite comparison
	startStr := start.UTC().Format("2006-01-02 15:04:05")
	endStr := end.UTC().Format("2006-01-02 15:04:05")
	row := s.db.QueryRowContext(ctx, `
		SELECT
			COUNT(*) as call_count,
			COALESCE(SUM(CASE WHEN status = 'error' THEN 1 ELSE 0 END), 0) as error_count,
			COALESCE(SUM(CASE WHEN status = 'no_content' THEN 1 ELSE 0 END), 0) as no_content_count,
			COALESCE(SUM(CASE WHEN attempts > 1 THEN 1 ELSE 0 END), 0) as retried_count,
			COALESCE(SUM(attempts), 0) as total_attempts,
			CAST(COALESCE(AVG(latency_ms), 0) AS INTEGER) as avg_latency
		FROM call_events
		WHERE resource = ? COLLATE NOCASE
		  AND datetime(timestamp) >= datetime(?) AND datetime(timestamp) < datetime(?)
	`, resource, startStr, endStr)

	var summary calllog.Summary
	summary.Resource = resource
	summary.PeriodStart = start
	summary.PeriodEnd = end

	err := row.Scan(
		&summary.CallCount,
		&summary.ErrorCount,
		&summary.NoContentCount,
		&summary.RetriedCount,
		&summary.TotalAttempts,
		&summary.AvgLatencyMs,
	)
	if err != nil {
		return calllog.Summary{}, err
	}

	return summary, nil
}

// GetRecent returns the latest call events, newest first. An empty
// resource matches all resources.
func (s *CallStore) GetRecent(ctx context.Context, resource string, limit int) ([]calllog.Event, error) {
	query := `
		SELECT id, resource, operation, method, url, http_code, attempts,
		       status, latency_ms, error, timestamp
		FROM call_events
	`
	args := []any{}
	if resource != "" {
		query += " WHERE resource = ? COLLATE NOCASE"
		args = append(args, resource)
	}
	query += " ORDER BY timestamp DESC LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []calllog.Event
	for rows.Next() {
		var e calllog.Event
		var status string

		err := rows.Scan(
			&e.ID, &e.Resource, &e.Operation, &e.Method, &e.URL, &e.HTTPCode,
			&e.Attempts, &status, &e.LatencyMs, &e.Error, &e.Timestamp,
		)
		if err != nil {
			return nil, err
		}
		e.Status = calllog.Status(status)

		events = append(events, e)
	}

	return events, rows.Err()
}

// Cleanup removes call events older than the cutoff.
func (s *CallStore) Cleanup(ctx context.Context, olderThan time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx, `
		DELETE FROM call_events WHERE timestamp < ?
	`, olderThan.UTC())
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// Ensure interface compliance.
var _ ports.CallStore = (*CallStore)(nil)

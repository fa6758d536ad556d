package device

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 200
)

// SQLiteStateHistoryRepository stores history in the state_history table.
// Snapshots land in typed columns rather than a JSON blob so the status
// API can page and filter with plain SQL.
type SQLiteStateHistoryRepository struct {
	db *sql.DB
}

// NewSQLiteStateHistoryRepository wraps an open connection. The schema
// comes from the embedded migrations, applied by the caller beforehand.
func NewSQLiteStateHistoryRepository(db *sql.DB) *SQLiteStateHistoryRepository {
	return &SQLiteStateHistoryRepository{db: db}
}

// RecordStateChange appends one row. An empty source defaults to report.
func (r *SQLiteStateHistoryRepository) RecordStateChange(ctx context.Context, serial string, state StateSnapshot, source string) error {
	if serial == "" {
		return fmt.Errorf("serial is required")
	}
	if source == "" {
		source = StateHistorySourceReport
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO state_history (serial, power, speed_percent, oscillating, source, recorded_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		serial,
		boolToInt(state.Power),
		state.SpeedPercent,
		boolToInt(state.Oscillating),
		source,
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("inserting state history: %w", err)
	}
	return nil
}

// GetHistory returns the newest entries for a fan, at most limit rows.
// A non-positive limit falls back to 50 and anything above 200 is
// clamped, matching the API's paging bounds.
func (r *SQLiteStateHistoryRepository) GetHistory(ctx context.Context, serial string, limit int) ([]StateHistoryEntry, error) {
	if serial == "" {
		return nil, fmt.Errorf("serial is required")
	}
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT id, serial, power, speed_percent, oscillating, source, recorded_at
		 FROM state_history
		 WHERE serial = ?
		 ORDER BY recorded_at DESC, id DESC
		 LIMIT ?`,
		serial, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("querying state history: %w", err)
	}
	defer rows.Close()

	entries := make([]StateHistoryEntry, 0, limit)
	for rows.Next() {
		var (
			entry              StateHistoryEntry
			power, oscillating int
			recordedAt         string
		)
		if err := rows.Scan(&entry.ID, &entry.Serial, &power, &entry.State.SpeedPercent, &oscillating, &entry.Source, &recordedAt); err != nil {
			return nil, fmt.Errorf("scanning state history: %w", err)
		}

		entry.State.Power = power != 0
		entry.State.Oscillating = oscillating != 0

		entry.RecordedAt, err = time.Parse(time.RFC3339, recordedAt)
		if err != nil {
			return nil, fmt.Errorf("parsing recorded_at %q: %w", recordedAt, err)
		}

		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating state history: %w", err)
	}

	return entries, nil
}

// PruneHistory deletes entries recorded before now minus olderThan and
// reports how many went. Driven by the retention loop in main.
func (r *SQLiteStateHistoryRepository) PruneHistory(ctx context.Context, olderThan time.Duration) (int64, error) {
	if olderThan <= 0 {
		return 0, fmt.Errorf("olderThan must be positive")
	}

	cutoff := time.Now().UTC().Add(-olderThan).Format(time.RFC3339)
	result, err := r.db.ExecContext(ctx,
		"DELETE FROM state_history WHERE recorded_at < ?", cutoff)
	if err != nil {
		return 0, fmt.Errorf("deleting state history: %w", err)
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("checking rows affected: %w", err)
	}
	return deleted, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

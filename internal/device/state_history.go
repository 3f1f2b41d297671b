package device

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// State history source values.
const (
	StateHistorySourceCommand = "command"
	StateHistorySourceSeed    = "seed"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 200
)

// StateHistoryEntry is one recorded state snapshot.
type StateHistoryEntry struct {
	ID        int64     `json:"id"`
	DeviceID  string    `json:"device_id"`
	State     State     `json:"state"`
	Source    string    `json:"source"`
	CreatedAt time.Time `json:"created_at"`
}

// StateHistoryRepository stores and retrieves device state change history.
type StateHistoryRepository interface {
	RecordStateChange(ctx context.Context, deviceID string, state State, source string) error

	// GetHistory returns entries newest first. limit is clamped to 1..200.
	GetHistory(ctx context.Context, deviceID string, limit int) ([]StateHistoryEntry, error)
}

// SQLiteStateHistoryRepository keeps state snapshots as JSON in device_state_history.
type SQLiteStateHistoryRepository struct {
	db *sql.DB
}

// NewSQLiteStateHistoryRepository creates a history repository on an open connection.
func NewSQLiteStateHistoryRepository(db *sql.DB) *SQLiteStateHistoryRepository {
	return &SQLiteStateHistoryRepository{db: db}
}

// RecordStateChange inserts a snapshot for deviceID.
func (r *SQLiteStateHistoryRepository) RecordStateChange(ctx context.Context, deviceID string, state State, source string) error {
	if deviceID == "" {
		return fmt.Errorf("device id is required")
	}
	if source == "" {
		source = StateHistorySourceCommand
	}

	stateJSON, err := json.Marshal(state.Clone())
	if err != nil {
		return fmt.Errorf("marshalling state: %w", err)
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO device_state_history (device_id, state, source, created_at) VALUES (?, ?, ?, ?)`,
		deviceID, string(stateJSON), source, time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("inserting state history: %w", err)
	}
	return nil
}

// GetHistory returns recent entries for deviceID.
func (r *SQLiteStateHistoryRepository) GetHistory(ctx context.Context, deviceID string, limit int) ([]StateHistoryEntry, error) {
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, device_id, state, source, created_at
		FROM device_state_history
		WHERE device_id = ?
		ORDER BY id DESC
		LIMIT ?`, deviceID, limit)
	if err != nil {
		return nil, fmt.Errorf("querying state history: %w", err)
	}
	defer rows.Close()

	entries := make([]StateHistoryEntry, 0)
	for rows.Next() {
		var (
			e         StateHistoryEntry
			stateJSON string
			createdAt string
		)
		if err := rows.Scan(&e.ID, &e.DeviceID, &stateJSON, &e.Source, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning state history: %w", err)
		}
		if err := json.Unmarshal([]byte(stateJSON), &e.State); err != nil {
			return nil, fmt.Errorf("unmarshalling state history: %w", err)
		}
		e.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt) //nolint:errcheck // written by RecordStateChange
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

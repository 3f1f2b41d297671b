package execution

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/nerrad567/gray-logic-conductor/internal/goal"
)

// List limits.
const (
	DefaultListLimit = 20
	MaxListLimit     = 100
)

// timeLayout has fixed-width fractions so stored timestamps sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// LogStore receives finished execution logs.
type LogStore interface {
	Insert(ctx context.Context, log *ExecutionLog) error
}

// LogReader reads stored execution logs.
type LogReader interface {
	Get(ctx context.Context, id string) (*ExecutionLog, error)
	List(ctx context.Context, userID string, limit int) ([]ExecutionLog, error)
}

// SQLiteLogStore stores execution logs in the execution_logs table.
type SQLiteLogStore struct {
	db *sql.DB
}

// NewSQLiteLogStore creates a log store over an open, migrated database.
func NewSQLiteLogStore(db *sql.DB) *SQLiteLogStore {
	return &SQLiteLogStore{db: db}
}

// Insert writes a finished execution log.
func (s *SQLiteLogStore) Insert(ctx context.Context, log *ExecutionLog) error {
	steps, err := json.Marshal(log.Steps)
	if err != nil {
		return fmt.Errorf("marshalling steps: %w", err)
	}
	summary := log.Summary()

	query := `
		INSERT INTO execution_logs (
			id, plan_id, user_id, goal, goal_type, dry_run, overall_status,
			total_steps, successful, steps, started_at, completed_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err = s.db.ExecContext(ctx, query,
		log.ID, log.PlanID, log.UserID, log.Goal, string(log.GoalType),
		boolToInt(log.DryRun), string(log.OverallStatus),
		summary.TotalSteps, summary.Successful, string(steps),
		log.StartedAt.UTC().Format(timeLayout),
		log.CompletedAt.UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("inserting execution log: %w", err)
	}
	return nil
}

// Get retrieves an execution log by ID.
func (s *SQLiteLogStore) Get(ctx context.Context, id string) (*ExecutionLog, error) {
	query := `
		SELECT id, plan_id, user_id, goal, goal_type, dry_run, overall_status,
			steps, started_at, completed_at
		FROM execution_logs
		WHERE id = ?`

	log, err := scanLog(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrExecutionNotFound
		}
		return nil, fmt.Errorf("querying execution log: %w", err)
	}
	return log, nil
}

// List returns the most recent execution logs, newest first. An empty userID
// lists every user. limit is clamped to 1..MaxListLimit, zero meaning
// DefaultListLimit.
func (s *SQLiteLogStore) List(ctx context.Context, userID string, limit int) ([]ExecutionLog, error) {
	switch {
	case limit <= 0:
		limit = DefaultListLimit
	case limit > MaxListLimit:
		limit = MaxListLimit
	}

	query := `
		SELECT id, plan_id, user_id, goal, goal_type, dry_run, overall_status,
			steps, started_at, completed_at
		FROM execution_logs
		WHERE (? = '' OR user_id = ?)
		ORDER BY started_at DESC
		LIMIT ?`

	rows, err := s.db.QueryContext(ctx, query, userID, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("querying execution logs: %w", err)
	}
	defer rows.Close()

	logs := []ExecutionLog{}
	for rows.Next() {
		log, scanErr := scanLog(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("scanning execution log: %w", scanErr)
		}
		logs = append(logs, *log)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating execution logs: %w", err)
	}
	return logs, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanLog(row rowScanner) (*ExecutionLog, error) {
	var (
		l                      ExecutionLog
		goalType, status       string
		dryRun                 int
		steps                  string
		startedAt, completedAt string
	)
	if err := row.Scan(&l.ID, &l.PlanID, &l.UserID, &l.Goal, &goalType, &dryRun, &status,
		&steps, &startedAt, &completedAt); err != nil {
		return nil, err
	}

	l.GoalType = goal.Type(goalType)
	l.OverallStatus = OverallStatus(status)
	l.DryRun = dryRun != 0
	if err := json.Unmarshal([]byte(steps), &l.Steps); err != nil {
		return nil, fmt.Errorf("unmarshalling steps: %w", err)
	}
	l.StartedAt, _ = time.Parse(timeLayout, startedAt)     //nolint:errcheck // written by Insert
	l.CompletedAt, _ = time.Parse(timeLayout, completedAt) //nolint:errcheck // written by Insert
	return &l, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

package device

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Repository defines device persistence operations.
// The SQLite implementation is used in production; tests may use mocks.
type Repository interface {
	// GetByID returns ErrDeviceNotFound if the device does not exist.
	GetByID(ctx context.Context, id string) (*Device, error)

	// List returns all devices ordered by name.
	List(ctx context.Context) ([]Device, error)

	// Create returns ErrDeviceExists if the ID or name is already taken.
	Create(ctx context.Context, device *Device) error

	// Update returns ErrDeviceNotFound if the device does not exist.
	Update(ctx context.Context, device *Device) error

	Delete(ctx context.Context, id string) error

	// UpdateState replaces only the state column.
	UpdateState(ctx context.Context, id string, state State) error
}

// SQLiteRepository implements Repository using SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a SQLite-backed repository on an open connection.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

const deviceColumns = `id, name, type, room, commands, state, state_updated_at, created_at, updated_at`

// GetByID retrieves a device by its unique identifier.
func (r *SQLiteRepository) GetByID(ctx context.Context, id string) (*Device, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+deviceColumns+` FROM devices WHERE id = ?`, id)

	d, err := scanDevice(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrDeviceNotFound
		}
		return nil, fmt.Errorf("querying device by id: %w", err)
	}
	return d, nil
}

// List retrieves all devices.
func (r *SQLiteRepository) List(ctx context.Context) ([]Device, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+deviceColumns+` FROM devices ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("querying devices: %w", err)
	}
	defer rows.Close()

	var devices []Device
	for rows.Next() {
		d, err := scanDevice(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning device: %w", err)
		}
		devices = append(devices, *d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating devices: %w", err)
	}
	return devices, nil
}

// Create inserts a new device.
func (r *SQLiteRepository) Create(ctx context.Context, d *Device) error {
	commandsJSON, stateJSON, err := marshalDeviceMaps(d)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	if d.CreatedAt.IsZero() {
		d.CreatedAt = now
	}
	d.UpdatedAt = now

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO devices (`+deviceColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		d.ID, d.Name, string(d.Type), d.Room,
		commandsJSON, stateJSON, nullableTime(d.StateUpdatedAt),
		d.CreatedAt.Format(time.RFC3339Nano), d.UpdatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return ErrDeviceExists
		}
		return fmt.Errorf("inserting device: %w", err)
	}
	return nil
}

// Update modifies an existing device's catalog fields and state.
func (r *SQLiteRepository) Update(ctx context.Context, d *Device) error {
	commandsJSON, stateJSON, err := marshalDeviceMaps(d)
	if err != nil {
		return err
	}
	d.UpdatedAt = time.Now().UTC()

	result, err := r.db.ExecContext(ctx, `
		UPDATE devices
		SET name = ?, type = ?, room = ?, commands = ?, state = ?, updated_at = ?
		WHERE id = ?`,
		d.Name, string(d.Type), d.Room, commandsJSON, stateJSON,
		d.UpdatedAt.Format(time.RFC3339Nano), d.ID,
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return ErrDeviceExists
		}
		return fmt.Errorf("updating device: %w", err)
	}
	return requireOneRow(result)
}

// Delete removes a device by ID.
func (r *SQLiteRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM devices WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting device: %w", err)
	}
	return requireOneRow(result)
}

// UpdateState replaces the state snapshot of a device.
func (r *SQLiteRepository) UpdateState(ctx context.Context, id string, state State) error {
	stateJSON, err := json.Marshal(state.Clone())
	if err != nil {
		return fmt.Errorf("marshalling state: %w", err)
	}

	now := time.Now().UTC().Format(time.RFC3339Nano)
	result, err := r.db.ExecContext(ctx, `
		UPDATE devices SET state = ?, state_updated_at = ?, updated_at = ?
		WHERE id = ?`,
		string(stateJSON), now, now, id,
	)
	if err != nil {
		return fmt.Errorf("updating device state: %w", err)
	}
	return requireOneRow(result)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDevice(row rowScanner) (*Device, error) {
	var (
		d                    Device
		deviceType           string
		commandsJSON         string
		stateJSON            string
		stateUpdatedAt       sql.NullString
		createdAt, updatedAt string
	)

	if err := row.Scan(&d.ID, &d.Name, &deviceType, &d.Room,
		&commandsJSON, &stateJSON, &stateUpdatedAt, &createdAt, &updatedAt); err != nil {
		return nil, err
	}

	d.Type = DeviceType(deviceType)
	if err := json.Unmarshal([]byte(commandsJSON), &d.Commands); err != nil {
		return nil, fmt.Errorf("unmarshalling commands: %w", err)
	}
	if err := json.Unmarshal([]byte(stateJSON), &d.State); err != nil {
		return nil, fmt.Errorf("unmarshalling state: %w", err)
	}
	if stateUpdatedAt.Valid {
		if t, err := time.Parse(time.RFC3339Nano, stateUpdatedAt.String); err == nil {
			d.StateUpdatedAt = &t
		}
	}
	d.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt) //nolint:errcheck // written by this package
	d.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updatedAt) //nolint:errcheck // written by this package

	return &d, nil
}

func marshalDeviceMaps(d *Device) (commandsJSON, stateJSON string, err error) {
	commands := d.Commands
	if commands == nil {
		commands = map[string]string{}
	}
	c, err := json.Marshal(commands)
	if err != nil {
		return "", "", fmt.Errorf("marshalling commands: %w", err)
	}
	s, err := json.Marshal(d.State.Clone())
	if err != nil {
		return "", "", fmt.Errorf("marshalling state: %w", err)
	}
	return string(c), string(s), nil
}

func requireOneRow(result sql.Result) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if n == 0 {
		return ErrDeviceNotFound
	}
	return nil
}

func nullableTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: t.UTC().Format(time.RFC3339Nano), Valid: true}
}

func isUniqueConstraintError(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "PRIMARY KEY constraint failed")
}

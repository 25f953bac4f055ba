package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	// Registers the "postgres" driver with database/sql.
	_ "github.com/lib/pq"

	"github.com/Madhesh13-byte/drowsy-detection-iot/internal/domain/driver"
)

// PostgresRepository persists records in PostgreSQL via database/sql.
type PostgresRepository struct {
	// db is the shared connection pool, owned by the caller.
	db *sql.DB
}

// Open connects to PostgreSQL with the provided DSN and verifies the connection.
func Open(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()

		return nil, fmt.Errorf("ping database: %w", err)
	}

	return db, nil
}

// NewPostgresRepository wraps an existing connection pool.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{
		db: db,
	}
}

// SaveStatus appends a status snapshot to the history.
// no_face is transient and must never reach the store.
func (r *PostgresRepository) SaveStatus(ctx context.Context, record *driver.StatusRecord) error {
	if !record.State.Persistable() {
		return fmt.Errorf("state %q is not persistable", record.State)
	}

	if record.ID == "" {
		record.ID = uuid.NewString()
	}

	if record.Timestamp.IsZero() {
		record.Timestamp = time.Now().UTC()
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO statuses (id, driver_id, state, confidence, recorded_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		record.ID, nullableString(record.DriverID), record.State.String(), nullableFloat(record.Confidence), record.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("insert status: %w", err)
	}

	return nil
}

// LatestStatus returns the most recent status for the driver.
func (r *PostgresRepository) LatestStatus(ctx context.Context, driverID string) (*driver.StatusRecord, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, driver_id, state, confidence, recorded_at
		 FROM statuses
		 WHERE ($1 = '' AND driver_id IS NULL) OR driver_id = $1
		 ORDER BY recorded_at DESC
		 LIMIT 1`,
		driverID,
	)

	record, err := scanStatus(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}

		return nil, fmt.Errorf("query latest status: %w", err)
	}

	return record, nil
}

// StatusHistory returns up to limit most recent statuses, newest first.
func (r *PostgresRepository) StatusHistory(ctx context.Context, driverID string, limit int) ([]*driver.StatusRecord, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT id, driver_id, state, confidence, recorded_at
		 FROM statuses
		 WHERE ($1 = '' AND driver_id IS NULL) OR driver_id = $1
		 ORDER BY recorded_at DESC
		 LIMIT $2`,
		driverID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query status history: %w", err)
	}
	defer rows.Close()

	var records []*driver.StatusRecord

	for rows.Next() {
		record, err := scanStatus(rows)
		if err != nil {
			return nil, fmt.Errorf("scan status: %w", err)
		}

		records = append(records, record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate statuses: %w", err)
	}

	return records, nil
}

// SaveAlert appends an alert audit record.
func (r *PostgresRepository) SaveAlert(ctx context.Context, record *driver.AlertRecord) error {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}

	if record.Status == "" {
		record.Status = driver.AlertStatus
	}

	if record.Timestamp.IsZero() {
		record.Timestamp = time.Now().UTC()
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO alerts (id, driver_id, driver_name, status, alert_type, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		record.ID, nullableString(record.DriverID), record.DriverName, record.Status, record.AlertType, record.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("insert alert: %w", err)
	}

	return nil
}

// RecentAlerts returns up to limit most recent alerts across all drivers.
func (r *PostgresRepository) RecentAlerts(ctx context.Context, limit int) ([]*driver.AlertRecord, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT id, driver_id, driver_name, status, alert_type, created_at
		 FROM alerts
		 ORDER BY created_at DESC
		 LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query recent alerts: %w", err)
	}
	defer rows.Close()

	return collectAlerts(rows)
}

// AlertsByDriver returns up to limit most recent alerts for one driver.
func (r *PostgresRepository) AlertsByDriver(ctx context.Context, driverID string, limit int) ([]*driver.AlertRecord, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT id, driver_id, driver_name, status, alert_type, created_at
		 FROM alerts
		 WHERE driver_id = $1
		 ORDER BY created_at DESC
		 LIMIT $2`,
		driverID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query driver alerts: %w", err)
	}
	defer rows.Close()

	return collectAlerts(rows)
}

// DriverName resolves the display name for a driver.
func (r *PostgresRepository) DriverName(ctx context.Context, driverID string) (string, error) {
	var name string

	err := r.db.QueryRowContext(ctx,
		`SELECT name FROM drivers WHERE id = $1`,
		driverID,
	).Scan(&name)

	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}

	if err != nil {
		return "", fmt.Errorf("query driver name: %w", err)
	}

	return name, nil
}

// rowScanner abstracts sql.Row and sql.Rows for shared scanning code.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanStatus reads one status row into a domain record.
func scanStatus(row rowScanner) (*driver.StatusRecord, error) {
	var (
		record     driver.StatusRecord
		driverID   sql.NullString
		state      string
		confidence sql.NullFloat64
	)

	if err := row.Scan(&record.ID, &driverID, &state, &confidence, &record.Timestamp); err != nil {
		return nil, err
	}

	record.DriverID = driverID.String
	record.State = driver.State(state)

	if confidence.Valid {
		value := confidence.Float64
		record.Confidence = &value
	}

	return &record, nil
}

// collectAlerts reads all alert rows into domain records.
func collectAlerts(rows *sql.Rows) ([]*driver.AlertRecord, error) {
	var records []*driver.AlertRecord

	for rows.Next() {
		var (
			record   driver.AlertRecord
			driverID sql.NullString
		)

		if err := rows.Scan(&record.ID, &driverID, &record.DriverName, &record.Status, &record.AlertType, &record.Timestamp); err != nil {
			return nil, fmt.Errorf("scan alert: %w", err)
		}

		record.DriverID = driverID.String
		records = append(records, &record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate alerts: %w", err)
	}

	return records, nil
}

// nullableString maps an empty string to SQL NULL.
func nullableString(s string) sql.NullString {
	return sql.NullString{
		String: s,
		Valid:  s != "",
	}
}

// nullableFloat maps a nil pointer to SQL NULL.
func nullableFloat(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{}
	}

	return sql.NullFloat64{
		Float64: *f,
		Valid:   true,
	}
}

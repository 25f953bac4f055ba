package store

import (
	"context"
	"errors"

	"github.com/Madhesh13-byte/drowsy-detection-iot/internal/domain/driver"
)

// Repository defines durable persistence for status snapshots and alerts.
// Implementations are append-only for records and queryable latest-first.
type Repository interface {
	// SaveStatus appends a status snapshot to the history.
	SaveStatus(ctx context.Context, record *driver.StatusRecord) error
	// LatestStatus returns the most recent status for the driver,
	// or ErrNotFound when the driver has no history yet.
	LatestStatus(ctx context.Context, driverID string) (*driver.StatusRecord, error)
	// StatusHistory returns up to limit most recent statuses, newest first.
	StatusHistory(ctx context.Context, driverID string, limit int) ([]*driver.StatusRecord, error)
	// SaveAlert appends an alert audit record.
	SaveAlert(ctx context.Context, record *driver.AlertRecord) error
	// RecentAlerts returns up to limit most recent alerts across all drivers.
	RecentAlerts(ctx context.Context, limit int) ([]*driver.AlertRecord, error)
	// AlertsByDriver returns up to limit most recent alerts for one driver.
	AlertsByDriver(ctx context.Context, driverID string, limit int) ([]*driver.AlertRecord, error)
	// DriverName resolves the display name for a driver,
	// or ErrNotFound when the driver is unknown.
	DriverName(ctx context.Context, driverID string) (string, error)
}

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("record not found")

// DefaultHistoryLimit bounds history queries when callers pass no limit.
const DefaultHistoryLimit = 50

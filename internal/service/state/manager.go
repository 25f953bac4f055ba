package state

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/Madhesh13-byte/drowsy-detection-iot/internal/domain/driver"
	"github.com/Madhesh13-byte/drowsy-detection-iot/internal/logger"
	"github.com/Madhesh13-byte/drowsy-detection-iot/internal/metrics"
	"github.com/Madhesh13-byte/drowsy-detection-iot/internal/repository/cache"
	"github.com/Madhesh13-byte/drowsy-detection-iot/internal/repository/store"
)

// Manager owns the canonical per-driver state and writes through to the
// record store. The in-memory value is updated synchronously; persistence
// and the Redis mirror are best-effort, so ingestion never stalls because
// a backing service is down.
type Manager struct {
	// repo is the durable record store, nil when persistence is disabled.
	repo store.Repository
	// mirror is the optional Redis live-state mirror.
	mirror *cache.Mirror
	// states is the canonical value per driver key.
	states map[string]*driver.CanonicalState
	// latestKey is the driver key updated most recently.
	latestKey string
	// mu protects states and latestKey.
	mu sync.RWMutex
}

// NewManager creates a state manager.
// Either collaborator may be nil; the manager then skips that write path.
func NewManager(repo store.Repository, mirror *cache.Mirror) *Manager {
	return &Manager{
		repo:   repo,
		mirror: mirror,
		states: make(map[string]*driver.CanonicalState),
	}
}

// Update applies a validated event to the canonical state and appends it to
// the durable history. The in-memory value is updated unconditionally; a
// store failure is logged and never rolls it back or reaches the caller.
func (m *Manager) Update(ctx context.Context, ev *driver.Event) *driver.CanonicalState {
	now := time.Now().UTC()

	m.mu.Lock()
	canonical := &driver.CanonicalState{
		DriverID:    ev.DriverID,
		State:       ev.State,
		LastUpdated: now,
	}
	m.states[ev.DriverID] = canonical
	m.latestKey = ev.DriverID
	m.mu.Unlock()

	logger.InfoKV(ctx, "State updated", "state", ev.State.String(), "driver_id", ev.DriverID)

	if m.repo != nil && ev.State.Persistable() {
		record := &driver.StatusRecord{
			DriverID:   ev.DriverID,
			State:      ev.State,
			Confidence: ev.Confidence,
			Timestamp:  now,
		}

		if err := m.repo.SaveStatus(ctx, record); err != nil {
			metrics.StoreErrors.Inc()
			logger.WarnKV(ctx, "Status not persisted, keeping in-memory state", "error", err)
		}
	}

	if m.mirror != nil {
		if err := m.mirror.Set(ctx, canonical); err != nil {
			logger.WarnKV(ctx, "Canonical state not mirrored", "error", err)
		}
	}

	return canonical.Clone()
}

// Current returns the canonical state for a driver. It prefers durable truth:
// a successful store read refreshes the in-memory value; on failure the last
// known in-memory value is served instead.
func (m *Manager) Current(ctx context.Context, driverID string) *driver.CanonicalState {
	if m.repo != nil {
		record, err := m.repo.LatestStatus(ctx, driverID)
		if err == nil {
			canonical := &driver.CanonicalState{
				DriverID:    record.DriverID,
				State:       record.State,
				LastUpdated: record.Timestamp,
			}

			m.mu.Lock()
			m.states[driverID] = canonical
			m.mu.Unlock()

			return canonical.Clone()
		}

		if !errors.Is(err, store.ErrNotFound) {
			metrics.StoreErrors.Inc()
			logger.WarnKV(ctx, "Record store unreachable, serving cached state", "error", err, "driver_id", driverID)
		}
	}

	return m.cached(driverID)
}

// Latest returns the most recently updated canonical entry. New dashboard
// subscribers receive it as their initial snapshot.
func (m *Manager) Latest() *driver.CanonicalState {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if canonical, ok := m.states[m.latestKey]; ok {
		return canonical.Clone()
	}

	return defaultState("")
}

// History returns up to limit most recent status records, newest first.
// An unreachable store yields an empty history, never an error.
func (m *Manager) History(ctx context.Context, driverID string, limit int) []*driver.StatusRecord {
	if m.repo == nil {
		return nil
	}

	records, err := m.repo.StatusHistory(ctx, driverID, limit)
	if err != nil {
		metrics.StoreErrors.Inc()
		logger.WarnKV(ctx, "Status history unavailable", "error", err, "driver_id", driverID)

		return nil
	}

	return records
}

// cached returns the in-memory canonical value, falling back to the default
// when the driver has not been seen yet.
func (m *Manager) cached(driverID string) *driver.CanonicalState {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if canonical, ok := m.states[driverID]; ok {
		return canonical.Clone()
	}

	return defaultState(driverID)
}

// defaultState is served before any event has been accepted.
func defaultState(driverID string) *driver.CanonicalState {
	return &driver.CanonicalState{
		DriverID:    driverID,
		State:       driver.StateNormal,
		LastUpdated: time.Now().UTC(),
	}
}

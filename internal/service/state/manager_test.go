package state

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Madhesh13-byte/drowsy-detection-iot/internal/domain/driver"
	"github.com/Madhesh13-byte/drowsy-detection-iot/internal/repository/store"
)

var errStoreDown = errors.New("store down")

// memoryRepository is a minimal in-memory store.Repository for tests.
type memoryRepository struct {
	// statuses collects every record passed to SaveStatus.
	statuses []*driver.StatusRecord
	// alerts collects every record passed to SaveAlert.
	alerts []*driver.AlertRecord
	// latest is returned from LatestStatus when set.
	latest *driver.StatusRecord
	// failing makes every operation return errStoreDown.
	failing bool
}

func (m *memoryRepository) SaveStatus(_ context.Context, record *driver.StatusRecord) error {
	if m.failing {
		return errStoreDown
	}

	m.statuses = append(m.statuses, record)

	return nil
}

func (m *memoryRepository) LatestStatus(context.Context, string) (*driver.StatusRecord, error) {
	if m.failing {
		return nil, errStoreDown
	}

	if m.latest == nil {
		return nil, store.ErrNotFound
	}

	return m.latest, nil
}

func (m *memoryRepository) StatusHistory(context.Context, string, int) ([]*driver.StatusRecord, error) {
	if m.failing {
		return nil, errStoreDown
	}

	return m.statuses, nil
}

func (m *memoryRepository) SaveAlert(_ context.Context, record *driver.AlertRecord) error {
	if m.failing {
		return errStoreDown
	}

	m.alerts = append(m.alerts, record)

	return nil
}

func (m *memoryRepository) RecentAlerts(context.Context, int) ([]*driver.AlertRecord, error) {
	return m.alerts, nil
}

func (m *memoryRepository) AlertsByDriver(context.Context, string, int) ([]*driver.AlertRecord, error) {
	return m.alerts, nil
}

func (m *memoryRepository) DriverName(context.Context, string) (string, error) {
	if m.failing {
		return "", errStoreDown
	}

	return "Madhesh", nil
}

// TestUpdatePersistsAndCaches verifies write-through plus in-memory update.
func TestUpdatePersistsAndCaches(t *testing.T) {
	t.Parallel()

	repo := new(memoryRepository)
	manager := NewManager(repo, nil)

	confidence := 0.85
	canonical := manager.Update(context.Background(), &driver.Event{
		State:      driver.StateDrowsy,
		Confidence: &confidence,
		DriverID:   "driver-1",
	})

	require.Equal(t, driver.StateDrowsy, canonical.State)
	require.Equal(t, "driver-1", canonical.DriverID)
	require.Len(t, repo.statuses, 1)
	require.Equal(t, driver.StateDrowsy, repo.statuses[0].State)
	require.NotNil(t, repo.statuses[0].Confidence)

	latest := manager.Latest()
	require.Equal(t, driver.StateDrowsy, latest.State)
}

// TestUpdateSkipsTransientStates ensures no_face never reaches the store but
// still supersedes the canonical value.
func TestUpdateSkipsTransientStates(t *testing.T) {
	t.Parallel()

	repo := new(memoryRepository)
	manager := NewManager(repo, nil)

	canonical := manager.Update(context.Background(), &driver.Event{
		State: driver.StateNoFace,
	})

	require.Equal(t, driver.StateNoFace, canonical.State)
	require.Empty(t, repo.statuses)
}

// TestUpdateSurvivesStoreFailure ensures a failing store neither rolls back
// the in-memory value nor surfaces an error.
func TestUpdateSurvivesStoreFailure(t *testing.T) {
	t.Parallel()

	repo := &memoryRepository{failing: true}
	manager := NewManager(repo, nil)

	manager.Update(context.Background(), &driver.Event{
		State:    driver.StateYawn,
		DriverID: "driver-1",
	})

	current := manager.Current(context.Background(), "driver-1")
	require.Equal(t, driver.StateYawn, current.State)
}

// TestCurrentPrefersDurableTruth verifies a successful store read refreshes
// the cached value.
func TestCurrentPrefersDurableTruth(t *testing.T) {
	t.Parallel()

	recordedAt := time.Now().UTC().Add(-time.Minute)
	repo := &memoryRepository{
		latest: &driver.StatusRecord{
			ID:        "status-1",
			DriverID:  "driver-1",
			State:     driver.StateNormal,
			Timestamp: recordedAt,
		},
	}
	manager := NewManager(repo, nil)

	manager.Update(context.Background(), &driver.Event{
		State:    driver.StateDrowsy,
		DriverID: "driver-1",
	})

	current := manager.Current(context.Background(), "driver-1")
	require.Equal(t, driver.StateNormal, current.State)
	require.Equal(t, recordedAt, current.LastUpdated)
}

// TestCurrentBeforeAnyEvent serves the default state for unseen drivers.
func TestCurrentBeforeAnyEvent(t *testing.T) {
	t.Parallel()

	manager := NewManager(nil, nil)

	current := manager.Current(context.Background(), "driver-1")
	require.Equal(t, driver.StateNormal, current.State)

	latest := manager.Latest()
	require.Equal(t, driver.StateNormal, latest.State)
}

// TestHistoryDegradesToEmpty ensures an unreachable store yields an empty
// history instead of an error.
func TestHistoryDegradesToEmpty(t *testing.T) {
	t.Parallel()

	manager := NewManager(&memoryRepository{failing: true}, nil)

	require.Empty(t, manager.History(context.Background(), "driver-1", 10))

	manager = NewManager(nil, nil)
	require.Empty(t, manager.History(context.Background(), "driver-1", 10))
}

// TestPerDriverKeying ensures two drivers do not clobber each other's state.
func TestPerDriverKeying(t *testing.T) {
	t.Parallel()

	manager := NewManager(nil, nil)

	manager.Update(context.Background(), &driver.Event{State: driver.StateDrowsy, DriverID: "driver-1"})
	manager.Update(context.Background(), &driver.Event{State: driver.StateNormal, DriverID: "driver-2"})

	require.Equal(t, driver.StateDrowsy, manager.Current(context.Background(), "driver-1").State)
	require.Equal(t, driver.StateNormal, manager.Current(context.Background(), "driver-2").State)

	// Latest reflects the most recent update across drivers.
	require.Equal(t, "driver-2", manager.Latest().DriverID)
}

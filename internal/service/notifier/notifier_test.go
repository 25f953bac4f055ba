package notifier

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Madhesh13-byte/drowsy-detection-iot/internal/config"
	"github.com/Madhesh13-byte/drowsy-detection-iot/internal/domain/driver"
	"github.com/Madhesh13-byte/drowsy-detection-iot/internal/repository/store"
)

var errStoreDown = errors.New("store down")

// fakeRepository records alerts and serves driver names for tests.
type fakeRepository struct {
	mu         sync.Mutex
	alerts     []*driver.AlertRecord
	name       string
	nameErr    error
	saveFailed bool
}

func (f *fakeRepository) SaveStatus(context.Context, *driver.StatusRecord) error {
	return nil
}

func (f *fakeRepository) LatestStatus(context.Context, string) (*driver.StatusRecord, error) {
	return nil, store.ErrNotFound
}

func (f *fakeRepository) StatusHistory(context.Context, string, int) ([]*driver.StatusRecord, error) {
	return nil, nil
}

func (f *fakeRepository) SaveAlert(_ context.Context, record *driver.AlertRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.saveFailed {
		return errStoreDown
	}

	f.alerts = append(f.alerts, record)

	return nil
}

func (f *fakeRepository) RecentAlerts(context.Context, int) ([]*driver.AlertRecord, error) {
	return nil, nil
}

func (f *fakeRepository) AlertsByDriver(context.Context, string, int) ([]*driver.AlertRecord, error) {
	return nil, nil
}

func (f *fakeRepository) DriverName(context.Context, string) (string, error) {
	if f.nameErr != nil {
		return "", f.nameErr
	}

	return f.name, nil
}

func (f *fakeRepository) recorded() []*driver.AlertRecord {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.alerts
}

// telegramStub fakes the Bot API and captures sent messages.
type telegramStub struct {
	mu       sync.Mutex
	messages []messageRequest
	fail     bool
}

func (s *telegramStub) handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req messageRequest
		_ = json.NewDecoder(r.Body).Decode(&req)

		s.mu.Lock()
		s.messages = append(s.messages, req)
		fail := s.fail
		s.mu.Unlock()

		if fail {
			w.WriteHeader(http.StatusBadGateway)
			_ = json.NewEncoder(w).Encode(messageResponse{Description: "bad gateway"})

			return
		}

		_ = json.NewEncoder(w).Encode(messageResponse{OK: true})
	}
}

func (s *telegramStub) sent() []messageRequest {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.messages
}

// newTestNotifier wires a notifier against the stub API.
func newTestNotifier(t *testing.T, stub *telegramStub, repo store.Repository) *Notifier {
	t.Helper()

	srv := httptest.NewServer(stub.handler())
	t.Cleanup(srv.Close)

	return NewNotifier(config.TelegramConfig{
		BaseURL:  srv.URL,
		BotToken: "123:abc",
		ChatID:   "42",
	}, repo, 15*time.Second)
}

// TestAlertDeliversAndRecords verifies the message template and the audit record.
func TestAlertDeliversAndRecords(t *testing.T) {
	t.Parallel()

	stub := new(telegramStub)
	repo := &fakeRepository{name: "Madhesh"}
	n := newTestNotifier(t, stub, repo)

	n.Alert(context.Background(), "driver-1", 15*time.Second)

	messages := stub.sent()
	require.Len(t, messages, 1)
	require.Equal(t, "42", messages[0].ChatID)
	require.Equal(t,
		"URGENT: Madhesh has been drowsy for over 15s. Please contact them immediately!",
		messages[0].Text,
	)

	alerts := repo.recorded()
	require.Len(t, alerts, 1)
	require.Equal(t, "driver-1", alerts[0].DriverID)
	require.Equal(t, "Madhesh", alerts[0].DriverName)
	require.Equal(t, driver.AlertStatus, alerts[0].Status)
	require.Equal(t, "drowsiness_15s", alerts[0].AlertType)
}

// TestAlertRecordsDespiteDeliveryFailure covers the delivery-failure path:
// the alert record must still be written.
func TestAlertRecordsDespiteDeliveryFailure(t *testing.T) {
	t.Parallel()

	stub := &telegramStub{fail: true}
	repo := &fakeRepository{name: "Madhesh"}
	n := newTestNotifier(t, stub, repo)

	n.Alert(context.Background(), "driver-1", 15*time.Second)

	require.Len(t, stub.sent(), 1)

	alerts := repo.recorded()
	require.Len(t, alerts, 1)
	require.Equal(t, driver.AlertStatus, alerts[0].Status)
}

// TestAlertFallsBackToPlaceholderName covers lookup failure and anonymous drivers.
func TestAlertFallsBackToPlaceholderName(t *testing.T) {
	t.Parallel()

	stub := new(telegramStub)
	repo := &fakeRepository{nameErr: store.ErrNotFound}
	n := newTestNotifier(t, stub, repo)

	n.Alert(context.Background(), "driver-9", 15*time.Second)

	messages := stub.sent()
	require.Len(t, messages, 1)
	require.Contains(t, messages[0].Text, "URGENT: Driver has been drowsy")

	alerts := repo.recorded()
	require.Len(t, alerts, 1)
	require.Equal(t, "Driver", alerts[0].DriverName)
}

// TestAlertWithoutTelegramConfigured skips delivery but still records.
func TestAlertWithoutTelegramConfigured(t *testing.T) {
	t.Parallel()

	repo := &fakeRepository{name: "Madhesh"}
	n := NewNotifier(config.TelegramConfig{
		BaseURL: "http://localhost:0",
	}, repo, 30*time.Second)

	n.Alert(context.Background(), "driver-1", 30*time.Second)

	alerts := repo.recorded()
	require.Len(t, alerts, 1)
	require.Equal(t, "drowsiness_30s", alerts[0].AlertType)
}

package monitor

import (
	"context"
	"sync"
	"time"

	"github.com/Madhesh13-byte/drowsy-detection-iot/internal/domain/driver"
	"github.com/Madhesh13-byte/drowsy-detection-iot/internal/logger"
	"github.com/Madhesh13-byte/drowsy-detection-iot/internal/metrics"
)

// AlertFunc is the side effect executed when a dwell period elapses.
// The episode is already resolved when it runs: the timer entry was cleared
// first, so a late cancel cannot un-fire the alert.
type AlertFunc func(ctx context.Context, driverID string, elapsed time.Duration)

// episode tracks one pending dwell period for a driver key.
type episode struct {
	// start is when the first drowsy event armed the timer.
	start time.Time
	// generation distinguishes this episode from later ones under the same key.
	generation uint64
	// timer fires the escalation after the dwell.
	timer *time.Timer
}

// Monitor is the per-driver escalation state machine. A driver is Idle until
// a drowsy event arms a dwell timer; repeated drowsy events join the pending
// episode, normal cancels it, and elapsing fires exactly one alert.
type Monitor struct {
	// ctx is the process context used by timer callbacks.
	ctx context.Context
	// dwell is how long drowsiness must persist before the alert fires.
	dwell time.Duration
	// fire is invoked once per elapsed episode.
	fire AlertFunc
	// episodes holds the pending episode per driver key.
	episodes map[string]*episode
	// generation is a monotonic counter stamped onto new episodes.
	generation uint64
	// stopped blocks new episodes after Stop.
	stopped bool
	// mu protects episodes, generation and stopped.
	mu sync.Mutex
}

// NewMonitor creates a monitor firing fn after dwell of sustained drowsiness.
// The context is retained for timer callbacks, which outlive any single
// connection.
func NewMonitor(ctx context.Context, dwell time.Duration, fn AlertFunc) *Monitor {
	return &Monitor{
		ctx:      logger.WithName(ctx, "monitor"),
		dwell:    dwell,
		fire:     fn,
		episodes: make(map[string]*episode),
	}
}

// Dwell returns the configured dwell duration.
func (m *Monitor) Dwell() time.Duration {
	return m.dwell
}

// Observe feeds a validated event into the state machine.
// Only drowsy and normal drive transitions: yawn does not indicate sustained
// drowsiness, and no_face does not prove alertness, so neither arms nor
// cancels a pending timer.
func (m *Monitor) Observe(ctx context.Context, ev *driver.Event) {
	switch ev.State {
	case driver.StateDrowsy:
		m.arm(ctx, ev.DriverID)
	case driver.StateNormal:
		m.cancel(ctx, ev.DriverID)
	case driver.StateYawn, driver.StateNoFace:
	}
}

// Pending reports whether the driver currently has an unexpired dwell timer.
func (m *Monitor) Pending(driverID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	_, ok := m.episodes[driverID]

	return ok
}

// Stop cancels every pending episode. No alert fires for cancelled episodes.
func (m *Monitor) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.stopped = true

	for key, e := range m.episodes {
		e.timer.Stop()
		delete(m.episodes, key)
	}
}

// arm starts a dwell timer for the driver unless one is already pending.
// Exactly one timer governs an episode; repeated drowsy events neither reset
// nor multiply it.
func (m *Monitor) arm(ctx context.Context, driverID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.stopped {
		return
	}

	if _, ok := m.episodes[driverID]; ok {
		return
	}

	m.generation++

	e := &episode{
		start:      time.Now(),
		generation: m.generation,
	}
	e.timer = time.AfterFunc(m.dwell, m.elapsedFunc(driverID, e.generation))
	m.episodes[driverID] = e

	logger.InfoKV(ctx, "Drowsy dwell timer armed", "driver_id", driverID, "dwell", m.dwell.String())
}

// cancel resolves a pending episode without firing. It reports how long the
// episode had been pending, which is the actual drowsy-to-normal interval.
func (m *Monitor) cancel(ctx context.Context, driverID string) (time.Duration, bool) {
	m.mu.Lock()

	e, ok := m.episodes[driverID]
	if !ok {
		m.mu.Unlock()

		return 0, false
	}

	// Clear the entry first: this episode is resolved, a concurrent fire
	// for the same generation becomes a no-op.
	delete(m.episodes, driverID)
	e.timer.Stop()
	elapsed := time.Since(e.start)

	m.mu.Unlock()

	logger.InfoKV(ctx, "Drowsy dwell timer cancelled", "driver_id", driverID, "elapsed", elapsed.String())

	return elapsed, true
}

// elapsedFunc builds the timer callback for one episode generation.
func (m *Monitor) elapsedFunc(driverID string, generation uint64) func() {
	return func() {
		m.mu.Lock()

		e, ok := m.episodes[driverID]
		if !ok || e.generation != generation {
			// A cancel already resolved this episode.
			m.mu.Unlock()

			return
		}

		// Clear the entry before the side effect so a cancel arriving
		// mid-alert cannot resolve the episode a second time.
		delete(m.episodes, driverID)
		elapsed := time.Since(e.start)

		m.mu.Unlock()

		metrics.AlertsFired.Inc()
		logger.WarnKV(m.ctx, "Drowsy dwell elapsed, escalating", "driver_id", driverID, "elapsed", elapsed.String())

		m.fire(m.ctx, driverID, elapsed)
	}
}

package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Madhesh13-byte/drowsy-detection-iot/internal/config"
	"github.com/Madhesh13-byte/drowsy-detection-iot/internal/logger"
	"github.com/Madhesh13-byte/drowsy-detection-iot/internal/repository/cache"
	"github.com/Madhesh13-byte/drowsy-detection-iot/internal/repository/store"
	"github.com/Madhesh13-byte/drowsy-detection-iot/internal/service/bridge"
	"github.com/Madhesh13-byte/drowsy-detection-iot/internal/service/hub"
	"github.com/Madhesh13-byte/drowsy-detection-iot/internal/service/monitor"
	"github.com/Madhesh13-byte/drowsy-detection-iot/internal/service/notifier"
	"github.com/Madhesh13-byte/drowsy-detection-iot/internal/service/state"
	"github.com/Madhesh13-byte/drowsy-detection-iot/internal/version"
)

// Options controls the drowsy-server process and configuration.
type Options struct {
	// ConfigPath specifies the path to the settings YAML file.
	ConfigPath string
	// ListenAddress provides an optional listen address override.
	ListenAddress string
	// DatabaseDSN provides an optional PostgreSQL DSN override.
	DatabaseDSN string
}

// shutdownTimeout bounds graceful HTTP shutdown after the context is
// canceled.
const shutdownTimeout = 10 * time.Second

// Run starts the server and blocks until the context is canceled or the
// listener fails. Every external attachment (database, cache, broker,
// notification channel) is optional: a missing one degrades that concern
// and nothing else.
func Run(ctx context.Context, opts *Options) error {
	ctx = logger.WithName(ctx, "drowsy-server")

	settings, err := loadSettings(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}

	if level, ok := logger.ParseLogLevel(settings.LogLevel); ok {
		logger.SetLevel(level)
	}

	listenAddress := settings.ListenAddress
	if opts.ListenAddress != "" {
		listenAddress = opts.ListenAddress
	}

	databaseDSN := settings.DatabaseDSN
	if opts.DatabaseDSN != "" {
		databaseDSN = opts.DatabaseDSN
	}

	// Record store. Absent DSN means in-memory operation only.
	var repo store.Repository

	db, err := openStore(ctx, databaseDSN)
	if err != nil {
		logger.WarnKV(ctx, "Record store unavailable, continuing without persistence", "error", err)
	} else if db != nil {
		defer func() { _ = db.Close() }()

		repo = store.NewPostgresRepository(db)
	}

	// Live-state mirror. Absent address disables it.
	var mirror *cache.Mirror

	if settings.Redis.Addr != "" {
		mirror = cache.NewMirror(cache.NewClient(settings.Redis.Addr, settings.Redis.Password, settings.Redis.DB))
	}

	states := state.NewManager(repo, mirror)

	alerts := notifier.NewNotifier(settings.Telegram, repo, settings.DrowsyDwell)

	episodes := monitor.NewMonitor(ctx, settings.DrowsyDwell, alerts.Alert)
	defer episodes.Stop()

	// Device bridge. Absent broker URL disables it.
	var devices *bridge.Bridge

	if settings.MQTT.BrokerURL != "" {
		devices = bridge.NewBridge(ctx, settings.MQTT)
		devices.Connect()

		defer devices.Close()
	}

	fanout := hub.NewHub(ctx)
	defer fanout.CloseAll()

	svc := newService(states, episodes, devices, fanout)

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", svc.handleWS)
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	httpServer := &http.Server{
		Addr:              listenAddress,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.InfoKV(ctx, "Drowsy server listening",
		"version", version.Short(),
		"listen_address", listenAddress,
		"dwell", settings.DrowsyDwell,
		"persistence", repo != nil,
		"mirror", mirror != nil,
		"bridge", devices != nil)

	// Done channel is closed after Shutdown finishes to ensure we block
	// until in-flight connections drain before returning.
	done := make(chan struct{})

	go func() {
		<-ctx.Done()
		logger.Info(ctx, "Shutting down HTTP server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		_ = httpServer.Shutdown(shutdownCtx)
		close(done)
	}()

	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serve HTTP: %w", err)
	}

	<-done
	logger.Info(ctx, "HTTP server stopped")

	return nil
}

// loadSettings reads the settings file. A missing file at the default
// location is not an error: the server then runs on built-in defaults,
// matching how it behaves in local development.
func loadSettings(path string) (*config.Config, error) {
	settings, err := config.Load(path)
	if err == nil {
		return settings, nil
	}

	if path == "" && errors.Is(err, os.ErrNotExist) {
		defaults := &config.Config{}
		if err := config.Validate(defaults); err != nil {
			return nil, err
		}

		return defaults, nil
	}

	return nil, err
}

// openStore connects to PostgreSQL when a DSN is configured. A nil
// database with a nil error means persistence is disabled by
// configuration.
func openStore(ctx context.Context, dsn string) (*sql.DB, error) {
	if dsn == "" {
		return nil, nil //nolint:nilnil // Absent DSN is a valid degraded mode, not an error.
	}

	return store.Open(ctx, dsn)
}

package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Madhesh13-byte/drowsy-detection-iot/internal/config"
	"github.com/Madhesh13-byte/drowsy-detection-iot/internal/service/server"
	"github.com/Madhesh13-byte/drowsy-detection-iot/internal/version"
)

var (
	// configPath to the configuration YAML file.
	configPath string
	// databaseDSN overrides the PostgreSQL connection string from config.
	databaseDSN string

	// rootCmd represents the base command for running the drowsiness server.
	rootCmd = &cobra.Command{
		Use:   "drowsy-server [listen-address]",
		Short: "Run the driver drowsiness dissemination and escalation server.",
		Long: `Starts the server that ingests driver state events over WebSocket,
maintains the canonical per-driver state, fans snapshots out to connected
dashboards, forwards events to the embedded device over MQTT, and escalates
sustained drowsiness to the emergency notification channel.

The server listens on the configured address unless one is given as an
argument (e.g. :9090, 0.0.0.0:5000). PostgreSQL, Redis, the MQTT broker and
the Telegram channel are all optional: each missing attachment degrades only
its own concern.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			// Setup graceful shutdown handling.
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			// Use listen address argument if provided, otherwise rely on config.
			var listenAddress string
			if len(args) > 0 {
				listenAddress = args[0]
			}

			options := &server.Options{
				ConfigPath:    configPath,
				ListenAddress: listenAddress,
				DatabaseDSN:   databaseDSN,
			}

			return server.Run(ctx, options)
		},
	}
)

// Execute runs the drowsy-server CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	// The default is intentionally empty: a missing default settings file
	// means the server starts on built-in defaults, while an explicit
	// --config path that cannot be read is an error.
	rootCmd.Flags().StringVarP(&configPath, "config", "c",
		"", "path to configuration file (default "+config.DefaultConfigFilename+" when present)")
	rootCmd.Flags().StringVarP(&databaseDSN, "database-dsn", "d", "", "PostgreSQL connection string override")
}

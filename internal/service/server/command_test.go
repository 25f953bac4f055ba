package server

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Madhesh13-byte/drowsy-detection-iot/internal/config"
)

// TestLoadSettingsMissingDefaultFileUsesDefaults covers zero-config startup:
// with no --config value and no settings file in the working directory the
// server runs on built-in defaults instead of failing.
func TestLoadSettingsMissingDefaultFileUsesDefaults(t *testing.T) {
	// No t.Parallel: changing the working directory forbids it.
	origDir, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { require.NoError(t, os.Chdir(origDir)) })

	settings, err := loadSettings("")

	require.NoError(t, err)
	require.Equal(t, config.DefaultListenAddress, settings.ListenAddress)
	require.Equal(t, config.DefaultDrowsyDwell, settings.DrowsyDwell)
	require.Empty(t, settings.DatabaseDSN)
}

// TestLoadSettingsExplicitMissingPathFails verifies an explicitly requested
// settings file that cannot be read is still an error.
func TestLoadSettingsExplicitMissingPathFails(t *testing.T) {
	t.Parallel()

	_, err := loadSettings(filepath.Join(t.TempDir(), "absent.yaml"))

	require.Error(t, err)
}

// TestLoadSettingsReadsExplicitFile verifies values from a provided settings
// file win over the defaults.
func TestLoadSettingsReadsExplicitFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "settings.yaml")
	require.NoError(t, os.WriteFile(path, []byte("listen_addr: \":7777\"\nlog_level: debug\n"), 0o600))

	settings, err := loadSettings(path)

	require.NoError(t, err)
	require.Equal(t, ":7777", settings.ListenAddress)
	require.Equal(t, "debug", settings.LogLevel)
	require.Equal(t, config.DefaultDrowsyDwell, settings.DrowsyDwell)
}

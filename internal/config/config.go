package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the settings for the drowsy-server process.
type Config struct {
	// ListenAddress is the host:port the WebSocket/HTTP server binds to.
	ListenAddress string `yaml:"listen_addr"`
	// DrowsyDwell is how long a sustained drowsy state must persist
	// before an emergency alert fires.
	DrowsyDwell time.Duration `yaml:"drowsy_dwell"`
	// DatabaseDSN is the PostgreSQL connection string for the record store.
	// Empty disables durable persistence; the server then serves
	// in-memory state only.
	DatabaseDSN string `yaml:"database_dsn"`
	// Redis configures the optional live-state mirror cache.
	Redis RedisConfig `yaml:"redis"`
	// MQTT configures the bridge to the embedded safety device.
	MQTT MQTTConfig `yaml:"mqtt"`
	// Telegram configures the emergency notification channel.
	Telegram TelegramConfig `yaml:"telegram"`
	// LogLevel is the minimum level for log output (debug, info, warn, error).
	LogLevel string `yaml:"log_level"`
}

// RedisConfig holds connection settings for the canonical-state mirror.
type RedisConfig struct {
	// Addr is the host:port of the Redis server. Empty disables the mirror.
	Addr string `yaml:"addr"`
	// Password is the optional Redis AUTH password.
	Password string `yaml:"password"`
	// DB is the Redis logical database number.
	DB int `yaml:"db"`
}

// MQTTConfig holds connection settings for the device bridge.
type MQTTConfig struct {
	// BrokerURL is the broker address (e.g. tcp://localhost:1883).
	// Empty disables the bridge.
	BrokerURL string `yaml:"broker_url"`
	// ClientID identifies this process to the broker.
	ClientID string `yaml:"client_id"`
	// Topic is the topic device alerts are published to.
	Topic string `yaml:"topic"`
	// QoS is the MQTT quality-of-service level for publishes.
	QoS byte `yaml:"qos"`
}

// TelegramConfig holds credentials for the emergency notification channel.
type TelegramConfig struct {
	// BaseURL is the Telegram Bot API endpoint. Overridable for tests.
	BaseURL string `yaml:"base_url"`
	// BotToken authenticates the bot. Empty disables delivery;
	// alerts are still recorded.
	BotToken string `yaml:"bot_token"`
	// ChatID is the chat that receives emergency messages.
	ChatID string `yaml:"chat_id"`
}

const (
	// DefaultConfigFilename is the default filename for server settings.
	DefaultConfigFilename = "drowsy-server-settings.yaml"

	// DefaultListenAddress is the default bind address for the server.
	DefaultListenAddress = ":5000"

	// DefaultDrowsyDwell is the default dwell before an alert fires.
	DefaultDrowsyDwell = 15 * time.Second

	// DefaultMQTTTopic is the default topic for device bridge messages.
	DefaultMQTTTopic = "drowsy_detection/alerts"

	// DefaultMQTTClientID identifies the server on the broker by default.
	DefaultMQTTClientID = "drowsy-server"

	// DefaultTelegramBaseURL is the production Telegram Bot API endpoint.
	DefaultTelegramBaseURL = "https://api.telegram.org"

	// DefaultLogLevel is the default minimum log level.
	DefaultLogLevel = "info"

	// DefaultFilePermissions is the default file permission for config files.
	DefaultFilePermissions = 0o600
)

var (
	// errConfigIsNotSet is returned when a nil configuration is provided.
	errConfigIsNotSet = errors.New("configuration is not set")
	// errNegativeDwell is returned when the dwell duration is negative.
	errNegativeDwell = errors.New("drowsy dwell must not be negative")
)

// Load reads configuration from the provided path and validates essential fields.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultConfigFilename
	}

	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read settings: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(contents, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal settings: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Save writes the configuration to the provided path.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if path == "" {
		path = DefaultConfigFilename
	}

	if err := Validate(cfg); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	// Restrict permissions: the file carries broker and bot credentials.
	if err := os.WriteFile(filepath.Clean(path), data, DefaultFilePermissions); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}

	return nil
}

// Validate checks the provided settings for required fields and formatting,
// filling defaults for optional values.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if cfg.ListenAddress == "" {
		cfg.ListenAddress = DefaultListenAddress
	}

	if _, err := net.ResolveTCPAddr("tcp", cfg.ListenAddress); err != nil {
		return fmt.Errorf("invalid listen address: %w", err)
	}

	switch {
	case cfg.DrowsyDwell < 0:
		return errNegativeDwell
	case cfg.DrowsyDwell == 0:
		cfg.DrowsyDwell = DefaultDrowsyDwell
	}

	if cfg.MQTT.BrokerURL != "" {
		if _, err := url.Parse(cfg.MQTT.BrokerURL); err != nil {
			return fmt.Errorf("invalid MQTT broker URL: %w", err)
		}
	}

	if cfg.MQTT.Topic == "" {
		cfg.MQTT.Topic = DefaultMQTTTopic
	}

	if cfg.MQTT.ClientID == "" {
		cfg.MQTT.ClientID = DefaultMQTTClientID
	}

	if cfg.Telegram.BaseURL == "" {
		cfg.Telegram.BaseURL = DefaultTelegramBaseURL
	}

	if cfg.LogLevel == "" {
		cfg.LogLevel = DefaultLogLevel
	}

	return nil
}

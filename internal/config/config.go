// Package config provides configuration for the assistant service.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Storage backends understood by repository.Open.
const (
	StorageMemory    = "memory"
	StorageSQLite    = "sqlite"
	StoragePostgres  = "postgres"
	StorageFirestore = "firestore"
)

// DefaultDatabaseURL is a file database with WAL and immediate transactions,
// so turns on different sessions can write concurrently.
const DefaultDatabaseURL = "file:assistant.db?mode=rwc&_busy_timeout=5000&_journal_mode=WAL&_txlock=immediate"

// Config holds the assistant configuration.
type Config struct {
	// Server settings
	HTTPPort int

	// Storage
	StorageBackend   string
	DatabaseURL      string
	FirestoreProject string
	StoreTimeout     time.Duration

	Weather WeatherConfig
	Limits  LimitsConfig
	WS      WSConfig

	// When set, an unknown client-supplied session id becomes the id of the
	// new conversation instead of being replaced by a generated one.
	AdoptClientSessionID bool

	// Interval for reconciling the active-conversations gauge with the store.
	ActiveSyncInterval time.Duration

	// Logging
	LogLevel  string
	LogFormat string
}

// WeatherConfig configures the external weather provider.
type WeatherConfig struct {
	BaseURL     string
	APIKey      string
	Timeout     time.Duration
	DefaultCity string
	Units       string
	Lang        string
}

// LimitsConfig bounds caller input.
type LimitsConfig struct {
	MaxUserIDLength  int
	MaxMessageLength int
}

// WSConfig holds websocket connection settings.
type WSConfig struct {
	PingInterval   time.Duration
	WriteTimeout   time.Duration
	ReadTimeout    time.Duration
	MaxMessageSize int64
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("http_port", 8080)
	v.SetDefault("storage_backend", StorageSQLite)
	v.SetDefault("database_url", DefaultDatabaseURL)
	v.SetDefault("firestore_project", "")
	v.SetDefault("store_timeout_ms", 5000)
	v.SetDefault("weather_api_base_url", "https://api.openweathermap.org/data/2.5")
	v.SetDefault("weather_api_key", "")
	v.SetDefault("weather_api_timeout_ms", 5000)
	v.SetDefault("weather_default_city", "Buenos Aires")
	v.SetDefault("weather_units", "metric")
	v.SetDefault("weather_lang", "es")
	v.SetDefault("max_user_id_length", 100)
	v.SetDefault("max_message_length", 2000)
	v.SetDefault("adopt_client_session_id", false)
	v.SetDefault("active_sync_interval_ms", 60000)
	v.SetDefault("ws_ping_interval_ms", 30000)
	v.SetDefault("ws_write_timeout_ms", 10000)
	v.SetDefault("ws_read_timeout_ms", 60000)
	v.SetDefault("ws_max_message_size", 65536)
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "json")
}

// Load reads configuration from defaults, an optional YAML file named by
// CONFIG_FILE, and environment variables, in increasing precedence.
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	if path := v.GetString("config_file"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	cfg := &Config{
		HTTPPort:         v.GetInt("http_port"),
		StorageBackend:   strings.ToLower(v.GetString("storage_backend")),
		DatabaseURL:      v.GetString("database_url"),
		FirestoreProject: v.GetString("firestore_project"),
		StoreTimeout:     millis(v, "store_timeout_ms"),
		Weather: WeatherConfig{
			BaseURL:     v.GetString("weather_api_base_url"),
			APIKey:      v.GetString("weather_api_key"),
			Timeout:     millis(v, "weather_api_timeout_ms"),
			DefaultCity: v.GetString("weather_default_city"),
			Units:       v.GetString("weather_units"),
			Lang:        v.GetString("weather_lang"),
		},
		Limits: LimitsConfig{
			MaxUserIDLength:  v.GetInt("max_user_id_length"),
			MaxMessageLength: v.GetInt("max_message_length"),
		},
		WS: WSConfig{
			PingInterval:   millis(v, "ws_ping_interval_ms"),
			WriteTimeout:   millis(v, "ws_write_timeout_ms"),
			ReadTimeout:    millis(v, "ws_read_timeout_ms"),
			MaxMessageSize: v.GetInt64("ws_max_message_size"),
		},
		AdoptClientSessionID: v.GetBool("adopt_client_session_id"),
		ActiveSyncInterval:   millis(v, "active_sync_interval_ms"),
		LogLevel:             v.GetString("log_level"),
		LogFormat:            v.GetString("log_format"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks settings that would otherwise fail later at runtime.
func (c *Config) Validate() error {
	switch c.StorageBackend {
	case StorageMemory, StorageSQLite, StoragePostgres:
	case StorageFirestore:
		if c.FirestoreProject == "" {
			return fmt.Errorf("FIRESTORE_PROJECT is required for the firestore backend")
		}
	default:
		return fmt.Errorf("unknown storage backend %q", c.StorageBackend)
	}
	if c.Weather.DefaultCity == "" {
		return fmt.Errorf("WEATHER_DEFAULT_CITY must not be empty")
	}
	if c.Weather.Timeout <= 0 {
		return fmt.Errorf("WEATHER_API_TIMEOUT_MS must be positive")
	}
	if c.StoreTimeout <= 0 {
		return fmt.Errorf("STORE_TIMEOUT_MS must be positive")
	}
	if c.Limits.MaxUserIDLength <= 0 || c.Limits.MaxMessageLength <= 0 {
		return fmt.Errorf("input limits must be positive")
	}
	return nil
}

func millis(v *viper.Viper, key string) time.Duration {
	return time.Duration(v.GetInt(key)) * time.Millisecond
}

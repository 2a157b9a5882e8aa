// Package config loads the catalog service settings from defaults, an
// optional YAML file and CATALOG_* environment variables.
package config

import "time"

type Config struct {
	Server  ServerConfig  `mapstructure:"server" validate:"required"`
	Store   StoreConfig   `mapstructure:"store" validate:"required"`
	Watch   WatchConfig   `mapstructure:"watch" validate:"required"`
	Metrics MetricsConfig `mapstructure:"metrics"`
}

type ServerConfig struct {
	Port     int    `mapstructure:"port" validate:"required,gt=0,lt=65536"`
	LogLevel string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`

	// WriteLimit is the number of POST /items per client IP per WriteWindow.
	// Zero disables the limiter.
	WriteLimit  int           `mapstructure:"write_limit" validate:"gte=0"`
	WriteWindow time.Duration `mapstructure:"write_window" validate:"required_with=WriteLimit"`
}

type StoreConfig struct {
	Driver      string `mapstructure:"driver" validate:"required,oneof=file postgres memory"`
	Path        string `mapstructure:"path" validate:"required_if=Driver file"`
	Seed        bool   `mapstructure:"seed"`
	DatabaseURL string `mapstructure:"database_url" validate:"required_if=Driver postgres"`
}

// WatchConfig selects how the stats cache is told about changes. The cache
// re-checks the change signal on every read regardless of mode. Interval is
// also used when fsnotify is unavailable and the service falls back to
// polling, so it must be positive in every mode.
type WatchConfig struct {
	Mode     string        `mapstructure:"mode" validate:"required,oneof=fsnotify poll off"`
	Interval time.Duration `mapstructure:"interval" validate:"gt=0"`
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Token   string `mapstructure:"token" validate:"required_if=Enabled true"`
}

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const envPrefix = "CATALOG"

var defaults = map[string]any{
	"server.port":         8082,
	"server.log_level":    "info",
	"server.write_limit":  30,
	"server.write_window": time.Minute,
	"store.driver":        "file",
	"store.path":          "data/items.json",
	"store.seed":          false,
	"store.database_url":  "",
	"watch.mode":          "fsnotify",
	"watch.interval":      2 * time.Second,
	"metrics.enabled":     false,
	"metrics.token":       "",
}

// Load reads configuration. Values from the environment (CATALOG_SERVER_PORT
// and so on, optionally loaded from a .env file) override configPath, which
// overrides defaults. An empty configPath skips the file.
func Load(configPath string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !isNotExist(err) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	for k, val := range defaults {
		v.SetDefault(k, val)
	}

	if configPath != "" {
		v.SetConfigFile(configPath)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file %s: %w", configPath, err)
		}
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// AutomaticEnv only covers keys viper already knows; bind every default
	// so Unmarshal sees env-only overrides too.
	for k := range defaults {
		if err := v.BindEnv(k); err != nil {
			return nil, fmt.Errorf("bind env %s: %w", k, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

func isNotExist(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}

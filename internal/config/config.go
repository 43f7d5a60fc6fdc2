// Package config loads server settings from flags, environment (S3M_*) and
// an optional config file.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	KeyListen         = "listen"
	KeyDataDir        = "data_dir"
	KeySecretKey      = "secret_key"
	KeyPassword       = "password"
	KeyLogLevel       = "log_level"
	KeyRequestTimeout = "request_timeout"
	KeyViewsDir       = "views_dir"
)

// Config is the resolved server configuration
type Config struct {
	Listen         string
	DataDir        string
	SecretKey      string
	Password       string
	LogLevel       slog.Level
	RequestTimeout time.Duration
	ViewsDir       string
}

// StorePath is where configurations are persisted
func (c Config) StorePath() string {
	return filepath.Join(c.DataDir, "configs.json")
}

// KeyPath is where the generated secret key is kept when none is configured
func (c Config) KeyPath() string {
	return filepath.Join(c.DataDir, "secret.key")
}

// SetDefaults registers default values and environment binding on v
func SetDefaults(v *viper.Viper) {
	v.SetDefault(KeyListen, "127.0.0.1:8080")
	v.SetDefault(KeyDataDir, defaultDataDir())
	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyRequestTimeout, "5m")
	v.SetDefault(KeyViewsDir, "views")

	v.SetEnvPrefix("S3M")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
}

// Load resolves v into a Config. A config file, if set on v, must exist.
func Load(v *viper.Viper) (Config, error) {
	if v.ConfigFileUsed() != "" {
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	levels := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"info":    slog.LevelInfo,
		"warning": slog.LevelWarn,
		"warn":    slog.LevelWarn,
		"error":   slog.LevelError,
	}
	logLevel := strings.ToLower(v.GetString(KeyLogLevel))
	level, ok := levels[logLevel]
	if !ok {
		return Config{}, fmt.Errorf("invalid log level %q", logLevel)
	}

	cfg := Config{
		Listen:         v.GetString(KeyListen),
		DataDir:        v.GetString(KeyDataDir),
		SecretKey:      v.GetString(KeySecretKey),
		Password:       v.GetString(KeyPassword),
		LogLevel:       level,
		RequestTimeout: v.GetDuration(KeyRequestTimeout),
		ViewsDir:       v.GetString(KeyViewsDir),
	}
	return cfg, cfg.validate()
}

func (c Config) validate() error {
	if c.Listen == "" {
		return errors.New("listen address is required")
	}
	if c.DataDir == "" {
		return errors.New("data directory is required")
	}
	if c.SecretKey != "" && len(c.SecretKey) != 32 {
		return fmt.Errorf("secret key must be 32 bytes, got %d", len(c.SecretKey))
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("request timeout must be positive, got %s", c.RequestTimeout)
	}
	return nil
}

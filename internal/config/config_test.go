package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newViper(t *testing.T) *viper.Viper {
	t.Helper()
	v := viper.New()
	SetDefaults(v)
	return v
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(newViper(t))
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:8080", cfg.Listen)
	assert.NotEmpty(t, cfg.DataDir)
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel)
	assert.Equal(t, 5*time.Minute, cfg.RequestTimeout)
	assert.Equal(t, "views", cfg.ViewsDir)
	assert.Equal(t, filepath.Join(cfg.DataDir, "configs.json"), cfg.StorePath())
	assert.Equal(t, filepath.Join(cfg.DataDir, "secret.key"), cfg.KeyPath())
}

func TestLoad_Environment(t *testing.T) {
	t.Setenv("S3M_LISTEN", ":9999")
	t.Setenv("S3M_LOG_LEVEL", "warning")
	t.Setenv("S3M_PASSWORD", "hunter2")

	cfg, err := Load(newViper(t))
	require.NoError(t, err)

	assert.Equal(t, ":9999", cfg.Listen)
	assert.Equal(t, slog.LevelWarn, cfg.LogLevel)
	assert.Equal(t, "hunter2", cfg.Password)
}

func TestLoad_ConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "s3-manager.yaml")
	require.NoError(t, os.WriteFile(path, []byte("listen: \":7000\"\nlog_level: debug\ndata_dir: /tmp/s3m\n"), 0o600))

	v := newViper(t)
	v.SetConfigFile(path)
	cfg, err := Load(v)
	require.NoError(t, err)

	assert.Equal(t, ":7000", cfg.Listen)
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel)
	assert.Equal(t, "/tmp/s3m", cfg.DataDir)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value any
	}{
		{"log level", KeyLogLevel, "verbose"},
		{"short secret", KeySecretKey, "short"},
		{"empty listen", KeyListen, ""},
		{"zero timeout", KeyRequestTimeout, "0s"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := newViper(t)
			v.Set(tt.key, tt.value)
			_, err := Load(v)
			assert.Error(t, err)
		})
	}
}

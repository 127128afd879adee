package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadFromFile_DefaultsApplied(t *testing.T) {
	t.Setenv("BOOKO_TELEGRAM_TOKEN", "test-token")

	path := writeConfigFile(t, `
app:
  name: booko
`)

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, "test-token", cfg.Telegram.Token)
	assert.Equal(t, "polling", cfg.Telegram.Mode)
	assert.Equal(t, "https://nominatim.openstreetmap.org", cfg.Geocoding.BaseURL)
	assert.Equal(t, "TENNIS", cfg.Directory.SportID)
	assert.Equal(t, 50000, cfg.Directory.RadiusMeters)
	assert.Equal(t, 4, cfg.Search.Workers)
	assert.Equal(t, "piazza duomo Milan", cfg.Search.DefaultAddress)
	assert.Equal(t, "Europe/Rome", cfg.Search.DisplayTimezone)
	assert.Equal(t, "memory", cfg.Sessions.Store)
	assert.Equal(t, 1800, cfg.Sessions.TTL)
}

func TestLoadFromFile_ExplicitValuesWin(t *testing.T) {
	t.Setenv("BOOKO_TELEGRAM_TOKEN", "test-token")

	path := writeConfigFile(t, `
telegram:
  mode: webhook
  webhook_url: "https://bot.example.com/webhook/x"
search:
  workers: 8
  fetch_timeout: 2000
sessions:
  store: redis
redis:
  address: "redis:6379"
`)

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, "webhook", cfg.Telegram.Mode)
	assert.Equal(t, 8, cfg.Search.Workers)
	assert.Equal(t, 2*time.Second, GetDuration(cfg.Search.FetchTimeout))
	assert.Equal(t, "redis", cfg.Sessions.Store)
	assert.Equal(t, "redis:6379", cfg.Redis.Address)
}

func TestLoadFromFile_MissingTokenRejected(t *testing.T) {
	t.Setenv("BOOKO_TELEGRAM_TOKEN", "")

	path := writeConfigFile(t, `
app:
  name: booko
`)

	_, err := LoadFromFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "telegram.token")
}

func TestValidateConfig(t *testing.T) {
	base := func() *Config {
		cfg := &Config{}
		applyDefaults(cfg)
		cfg.Telegram.Token = "t"
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:   "valid defaults",
			mutate: func(*Config) {},
		},
		{
			name:    "bad mode",
			mutate:  func(c *Config) { c.Telegram.Mode = "carrier-pigeon" },
			wantErr: "telegram.mode",
		},
		{
			name:    "webhook without url",
			mutate:  func(c *Config) { c.Telegram.Mode = "webhook" },
			wantErr: "webhook_url",
		},
		{
			name:    "bad store",
			mutate:  func(c *Config) { c.Sessions.Store = "etcd" },
			wantErr: "sessions.store",
		},
		{
			name: "redis store without address",
			mutate: func(c *Config) {
				c.Sessions.Store = "redis"
				c.Redis.Address = ""
			},
			wantErr: "redis.address",
		},
		{
			name:    "zero workers",
			mutate:  func(c *Config) { c.Search.Workers = -1 },
			wantErr: "search.workers",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(cfg)

			err := validateConfig(cfg)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

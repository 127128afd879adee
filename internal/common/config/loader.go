package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Load reads config.yaml (plus an optional config.<env>.yaml overlay) and
// applies environment overrides. A missing file is fine: every key has a
// default or comes from the environment.
func Load() (*Config, error) {
	loadEnvFile()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./configs")
	v.AddConfigPath("../../configs")
	v.AddConfigPath(".")

	v.SetEnvPrefix("BOOKO")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading base config: %w", err)
		}
	}

	env := os.Getenv("BOOKO_APP_ENVIRONMENT")
	if env == "" {
		env = "development"
	}
	v.SetConfigName(fmt.Sprintf("config.%s", env))
	_ = v.MergeInConfig() // overlay is optional

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&cfg)

	// The token never lives in the yaml file.
	if cfg.Telegram.Token == "" {
		cfg.Telegram.Token = os.Getenv("BOOKO_TELEGRAM_TOKEN")
	}
	if cfg.Telegram.Token == "" {
		cfg.Telegram.Token = os.Getenv("TOKEN")
	}

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// LoadFromFile loads configuration from a specific file path.
func LoadFromFile(path string) (*Config, error) {
	loadEnvFile()

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&cfg)

	if cfg.Telegram.Token == "" {
		cfg.Telegram.Token = os.Getenv("BOOKO_TELEGRAM_TOKEN")
	}

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func loadEnvFile() {
	possiblePaths := []string{
		".env",
		"../.env",
		"../../.env",
	}

	if rootDir := findProjectRoot(); rootDir != "" {
		possiblePaths = append(possiblePaths, filepath.Join(rootDir, ".env"))
	}

	for _, path := range possiblePaths {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Load(path); err == nil {
				return
			}
		}
	}
}

// findProjectRoot walks up from the working directory looking for go.mod.
func findProjectRoot() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return ""
}

// applyDefaults sets default values for optional configuration fields.
// The search defaults mirror the service the bot was written for: tennis
// courts around the Milan Duomo.
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "booko"
	}
	if cfg.App.Environment == "" {
		cfg.App.Environment = "development"
	}

	if cfg.Telegram.Mode == "" {
		cfg.Telegram.Mode = "polling"
	}
	if cfg.Telegram.ListenAddr == "" {
		cfg.Telegram.ListenAddr = ":8080"
	}
	if cfg.Telegram.PollPeriod == 0 {
		cfg.Telegram.PollPeriod = 1000
	}

	if cfg.Geocoding.BaseURL == "" {
		cfg.Geocoding.BaseURL = "https://nominatim.openstreetmap.org"
	}
	if cfg.Geocoding.UserAgent == "" {
		cfg.Geocoding.UserAgent = "booko-bot"
	}
	if cfg.Geocoding.Timeout == 0 {
		cfg.Geocoding.Timeout = 10000
	}

	if cfg.Directory.BaseURL == "" {
		cfg.Directory.BaseURL = "https://playtomic.io/api"
	}
	if cfg.Directory.SportID == "" {
		cfg.Directory.SportID = "TENNIS"
	}
	if cfg.Directory.RadiusMeters == 0 {
		cfg.Directory.RadiusMeters = 50000
	}
	if cfg.Directory.PageSize == 0 {
		cfg.Directory.PageSize = 100
	}
	if cfg.Directory.Timeout == 0 {
		cfg.Directory.Timeout = 15000
	}

	if cfg.Search.Workers == 0 {
		cfg.Search.Workers = 4
	}
	if cfg.Search.FetchTimeout == 0 {
		cfg.Search.FetchTimeout = 10000
	}
	if cfg.Search.DefaultAddress == "" {
		cfg.Search.DefaultAddress = "piazza duomo Milan"
	}
	if cfg.Search.DefaultLat == 0 {
		cfg.Search.DefaultLat = 45.463910150000004
	}
	if cfg.Search.DefaultLon == 0 {
		cfg.Search.DefaultLon = 9.190642626255652
	}
	if cfg.Search.DisplayTimezone == "" {
		cfg.Search.DisplayTimezone = "Europe/Rome"
	}

	if cfg.Sessions.Store == "" {
		cfg.Sessions.Store = "memory"
	}
	if cfg.Sessions.TTL == 0 {
		cfg.Sessions.TTL = 1800
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}

	if cfg.Ops.ListenAddr == "" {
		cfg.Ops.ListenAddr = ":9090"
	}
}

// validateConfig validates critical configuration fields.
func validateConfig(cfg *Config) error {
	if cfg.Telegram.Token == "" {
		return fmt.Errorf("telegram.token is required (set BOOKO_TELEGRAM_TOKEN)")
	}

	if cfg.Telegram.Mode != "polling" && cfg.Telegram.Mode != "webhook" {
		return fmt.Errorf("telegram.mode must be polling or webhook, got %q", cfg.Telegram.Mode)
	}
	if cfg.Telegram.Mode == "webhook" && cfg.Telegram.WebhookURL == "" {
		return fmt.Errorf("telegram.webhook_url is required in webhook mode")
	}

	if cfg.Sessions.Store != "memory" && cfg.Sessions.Store != "redis" {
		return fmt.Errorf("sessions.store must be memory or redis, got %q", cfg.Sessions.Store)
	}
	if cfg.Sessions.Store == "redis" && cfg.Redis.Address == "" {
		return fmt.Errorf("redis.address is required when sessions.store is redis")
	}

	if cfg.Search.Workers < 1 {
		return fmt.Errorf("search.workers must be at least 1")
	}

	return nil
}

package config

import "time"

// Config is the main application configuration struct.
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Telegram  TelegramConfig  `mapstructure:"telegram"`
	Geocoding GeocodingConfig `mapstructure:"geocoding"`
	Directory DirectoryConfig `mapstructure:"directory"`
	Search    SearchConfig    `mapstructure:"search"`
	Sessions  SessionsConfig  `mapstructure:"sessions"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Ops       OpsConfig       `mapstructure:"ops"`
}

type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
}

// TelegramConfig configures the conversational transport.
type TelegramConfig struct {
	Token      string `mapstructure:"token"`
	Mode       string `mapstructure:"mode"` // "polling" or "webhook"
	WebhookURL string `mapstructure:"webhook_url"`
	ListenAddr string `mapstructure:"listen_addr"`
	PollPeriod int    `mapstructure:"poll_period"` // milliseconds between getUpdates calls
}

// GeocodingConfig points at the Nominatim-compatible geocoding service.
type GeocodingConfig struct {
	BaseURL   string `mapstructure:"base_url"`
	UserAgent string `mapstructure:"user_agent"`
	Timeout   int    `mapstructure:"timeout"` // milliseconds
}

// DirectoryConfig points at the venue directory / availability service.
type DirectoryConfig struct {
	BaseURL      string `mapstructure:"base_url"`
	SportID      string `mapstructure:"sport_id"`
	RadiusMeters int    `mapstructure:"radius_meters"`
	PageSize     int    `mapstructure:"page_size"`
	Timeout      int    `mapstructure:"timeout"` // milliseconds
}

// SearchConfig holds the defaults and limits of the discovery pipeline.
// These replace the module-level constants of earlier revisions so that
// nothing about the search is ambient global state.
type SearchConfig struct {
	Workers         int     `mapstructure:"workers"`
	FetchTimeout    int     `mapstructure:"fetch_timeout"` // milliseconds, per availability call
	DefaultAddress  string  `mapstructure:"default_address"`
	DefaultLat      float64 `mapstructure:"default_lat"`
	DefaultLon      float64 `mapstructure:"default_lon"`
	DisplayTimezone string  `mapstructure:"display_timezone"`
}

// SessionsConfig selects where in-progress conversations are kept.
type SessionsConfig struct {
	Store string `mapstructure:"store"` // "memory" or "redis"
	TTL   int    `mapstructure:"ttl"`   // seconds
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// OpsConfig configures the metrics/health side listener.
type OpsConfig struct {
	ListenAddr string `mapstructure:"listen_addr"`
}

// GetDuration converts milliseconds from config to time.Duration.
func GetDuration(milliseconds int) time.Duration {
	return time.Duration(milliseconds) * time.Millisecond
}

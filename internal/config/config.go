// Package config reads server settings from FITTRACK_* environment
// variables.
package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

const (
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
)

// Duration parses "10s", "5m" or a bare number of seconds.
type Duration time.Duration

// SetValue implements cleanenv.Setter.
func (d *Duration) SetValue(data string) error {
	v, err := parseDuration(data)
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

func (d Duration) Duration() time.Duration { return time.Duration(d) }

func parseDuration(s string) (time.Duration, error) {
	s = strings.Trim(strings.TrimSpace(s), `"'`)
	if s == "" {
		return 0, fmt.Errorf("empty duration")
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Duration(n) * time.Second, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("duration must be like 10s, 5m or a number of seconds: %w", err)
	}
	return d, nil
}

type Config struct {
	HTTP HTTPConfig
	Data DataConfig
	Log  LogConfig

	// Timezone is the default IANA zone for new accounts.
	Timezone string `env:"FITTRACK_TIMEZONE" env-default:"UTC"`
}

type HTTPConfig struct {
	Port          string   `env:"FITTRACK_PORT" env-default:"8080"`
	SecureCookies bool     `env:"FITTRACK_SECURE_COOKIES" env-default:"false"`
	ReadTimeout   Duration `env:"FITTRACK_HTTP_READ_TIMEOUT" env-default:"15s"`
	WriteTimeout  Duration `env:"FITTRACK_HTTP_WRITE_TIMEOUT" env-default:"15s"`
	IdleTimeout   Duration `env:"FITTRACK_HTTP_IDLE_TIMEOUT" env-default:"60s"`
}

type DataConfig struct {
	// DBPath is the SQLite file holding accounts, sessions and preferences,
	// and habits too when Backend is sqlite.
	DBPath      string `env:"FITTRACK_DB_PATH" env-default:"fittrack.db"`
	Backend     string `env:"FITTRACK_DATA_BACKEND" env-default:"sqlite"`
	DatabaseURL string `env:"FITTRACK_DATABASE_URL"`
}

type LogConfig struct {
	Level string `env:"FITTRACK_LOG_LEVEL" env-default:"info"`
	File  string `env:"FITTRACK_LOG_FILE"`
}

func (c Config) Addr() string {
	return ":" + c.HTTP.Port
}

// Location returns the configured default zone.
func (c Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Load reads the environment and checks cross-field rules.
func Load() (Config, error) {
	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return Config{}, fmt.Errorf("read env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	switch c.Data.Backend {
	case BackendSQLite:
	case BackendPostgres:
		if c.Data.DatabaseURL == "" {
			return fmt.Errorf("FITTRACK_DATABASE_URL is required when FITTRACK_DATA_BACKEND=postgres")
		}
	default:
		return fmt.Errorf("FITTRACK_DATA_BACKEND must be %q or %q, got %q", BackendSQLite, BackendPostgres, c.Data.Backend)
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("FITTRACK_TIMEZONE: %w", err)
	}
	return nil
}

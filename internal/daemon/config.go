// Package daemon manages the Blank daemon lifecycle and configuration.
package daemon

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
	_ "time/tzdata" // Day.Timezone must resolve on hosts without zoneinfo

	"github.com/BurntSushi/toml"
	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"go.uber.org/zap/zapcore"

	"github.com/blank-marketing/blank/internal/app/progression"
)

// EnvPrefix prefixes every environment override, e.g. BLANK_API_PORT.
const EnvPrefix = "BLANK_"

// DashboardOrigin is the local dashboard dev server, the only browser
// origin allowed by default.
const DashboardOrigin = "http://localhost:3000"

// Storage backends.
const (
	BackendSQLite = "sqlite"
	BackendFile   = "file"
	BackendMemory = "memory"
)

// Config holds all daemon configuration.
type Config struct {
	Store     StoreConfig     `toml:"store" envPrefix:"STORE_"`
	API       APIConfig       `toml:"api" envPrefix:"API_"`
	Day       DayConfig       `toml:"day" envPrefix:"DAY_"`
	Catalog   CatalogConfig   `toml:"catalog" envPrefix:"CATALOG_"`
	Logging   LoggingConfig   `toml:"logging" envPrefix:"LOG_"`
	Telemetry TelemetryConfig `toml:"telemetry" envPrefix:"TELEMETRY_"`
}

// StoreConfig selects where progression state lives.
type StoreConfig struct {
	Key           string `toml:"key" env:"KEY"`
	Backend       string `toml:"backend" env:"BACKEND"` // sqlite | file | memory
	Dir           string `toml:"dir" env:"DIR"`
	FlushInterval string `toml:"flush_interval" env:"FLUSH_INTERVAL"` // retry for failed writes, "0" disables
}

// APIConfig controls the HTTP API server.
type APIConfig struct {
	Host        string   `toml:"host" env:"HOST"`
	Port        int      `toml:"port" env:"PORT"`
	CORSOrigins []string `toml:"cors_origins" env:"CORS_ORIGINS" envSeparator:","`
}

// DayConfig defines the calendar day used by streaks and missions.
type DayConfig struct {
	Timezone   string `toml:"timezone" env:"TIMEZONE"`
	CutoffHour int    `toml:"cutoff_hour" env:"CUTOFF_HOUR"`
}

// CatalogConfig points at an optional YAML catalog override.
type CatalogConfig struct {
	File string `toml:"file" env:"FILE"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	Level  string `toml:"level" env:"LEVEL"`
	File   string `toml:"file" env:"FILE"` // empty logs to stderr
	Format string `toml:"format" env:"FORMAT"` // json | console
}

// TelemetryConfig controls metrics export.
type TelemetryConfig struct {
	Prometheus bool `toml:"prometheus" env:"PROMETHEUS"`
}

// DefaultConfig returns a sensible default configuration.
func DefaultConfig() Config {
	return Config{
		Store: StoreConfig{
			Key:           progression.DefaultKey,
			Backend:       BackendSQLite,
			Dir:           blankHome(),
			FlushInterval: "1m",
		},
		API: APIConfig{
			Host:        "127.0.0.1",
			Port:        7420,
			CORSOrigins: []string{DashboardOrigin},
		},
		Day: DayConfig{
			Timezone:   progression.DefaultTimezone,
			CutoffHour: 0,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Telemetry: TelemetryConfig{
			Prometheus: true,
		},
	}
}

// LoadConfig reads .env files, then ~/.blank/config.toml, then BLANK_*
// environment overrides.
func LoadConfig() (Config, error) {
	if err := loadDotEnv(".env", filepath.Join(blankHome(), ".env")); err != nil {
		return DefaultConfig(), err
	}
	return LoadConfigFrom(ConfigPath())
}

// LoadConfigFrom reads config from path, falling back to defaults when the
// file does not exist, and applies environment overrides.
func LoadConfigFrom(path string) (Config, error) {
	cfg := DefaultConfig()

	if _, err := os.Stat(path); err == nil {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config: %w", err)
		}
	} else if !os.IsNotExist(err) {
		return cfg, fmt.Errorf("stat config: %w", err)
	}

	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return cfg, fmt.Errorf("parse env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// loadDotEnv loads the first of paths that exists. Variables already set in
// the environment win.
func loadDotEnv(paths ...string) error {
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			return fmt.Errorf("load %s: %w", p, err)
		}
		return nil
	}
	return nil
}

// Validate reports every invalid setting at once.
func (c Config) Validate() error {
	var errs []error

	switch c.Store.Backend {
	case BackendSQLite, BackendFile, BackendMemory:
	default:
		errs = append(errs, fmt.Errorf("store.backend %q: want sqlite, file or memory", c.Store.Backend))
	}
	if c.Store.Backend != BackendMemory && c.Store.Dir == "" {
		errs = append(errs, errors.New("store.dir is required"))
	}
	if _, err := c.FlushInterval(); err != nil {
		errs = append(errs, err)
	}
	if c.API.Port < 1 || c.API.Port > 65535 {
		errs = append(errs, fmt.Errorf("api.port %d out of range", c.API.Port))
	}
	if c.Day.CutoffHour < 0 || c.Day.CutoffHour > 23 {
		errs = append(errs, fmt.Errorf("day.cutoff_hour %d: want 0-23", c.Day.CutoffHour))
	}
	if _, err := c.DayPolicy(); err != nil {
		errs = append(errs, fmt.Errorf("day.timezone: %w", err))
	}
	if _, err := zapcore.ParseLevel(c.Logging.Level); err != nil {
		errs = append(errs, fmt.Errorf("logging.level: %w", err))
	}
	switch c.Logging.Format {
	case "json", "console":
	default:
		errs = append(errs, fmt.Errorf("logging.format %q: want json or console", c.Logging.Format))
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}

// DayPolicy returns the store's day boundary.
func (c Config) DayPolicy() (progression.DayPolicy, error) {
	return progression.NewDayPolicy(c.Day.Timezone, c.Day.CutoffHour)
}

// FlushInterval parses store.flush_interval. Zero disables the retry job.
func (c Config) FlushInterval() (time.Duration, error) {
	if c.Store.FlushInterval == "" || c.Store.FlushInterval == "0" {
		return 0, nil
	}
	d, err := time.ParseDuration(c.Store.FlushInterval)
	if err != nil || d < 0 {
		return 0, fmt.Errorf("store.flush_interval %q: not a duration", c.Store.FlushInterval)
	}
	return d, nil
}

// Addr returns the listen address.
func (c Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.API.Host, c.API.Port)
}

// SaveConfig writes the config to ~/.blank/config.toml.
func SaveConfig(cfg Config) error {
	return SaveConfigTo(ConfigPath(), cfg)
}

// SaveConfigTo writes the config to path.
func SaveConfigTo(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	encoder := toml.NewEncoder(f)
	return encoder.Encode(cfg)
}

// ConfigPath returns the default config file location.
func ConfigPath() string {
	return filepath.Join(blankHome(), "config.toml")
}

// blankHome returns the Blank data directory.
func blankHome() string {
	if env := os.Getenv("BLANK_HOME"); env != "" {
		return env
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".blank")
}

// BlankHome is exported for use by other packages.
func BlankHome() string {
	return blankHome()
}

// Package config loads service configuration from a YAML file with
// environment overrides.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Calendar sources.
const (
	CalendarBuiltin  = "builtin"
	CalendarFile     = "file"
	CalendarPostgres = "postgres"
)

// Fetch modes.
const (
	FetchHTTP    = "http"
	FetchBrowser = "browser"
)

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Understat UnderstatConfig `yaml:"understat"`
	Calendar  CalendarConfig  `yaml:"calendar"`
	Pipeline  PipelineConfig  `yaml:"pipeline"`
	Redis     RedisConfig     `yaml:"redis"`
	Postgres  PostgresConfig  `yaml:"postgres"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	LogLevel  string          `yaml:"log_level"`
}

type ServerConfig struct {
	RESTPort        string        `yaml:"rest_port"`
	WSPort          string        `yaml:"ws_port"`
	AllowedOrigins  []string      `yaml:"allowed_origins"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

type UnderstatConfig struct {
	BaseURL   string        `yaml:"base_url"`
	League    string        `yaml:"league"`
	Season    string        `yaml:"season"`
	FetchMode string        `yaml:"fetch_mode"` // "http" or "browser"
	Timeout   time.Duration `yaml:"timeout"`
}

type CalendarConfig struct {
	Source string `yaml:"source"` // "builtin", "file" or "postgres"
	Path   string `yaml:"path"`
	Season string `yaml:"season"`
	Seed   bool   `yaml:"seed"` // seed the builtin windows into Postgres when the table is empty
}

type PipelineConfig struct {
	// DegradeRanking serves fixtures without opponent metrics when the
	// ranking path fails instead of failing the request.
	DegradeRanking bool `yaml:"degrade_ranking"`
}

type RedisConfig struct {
	URL         string        `yaml:"url"`
	CacheTTL    time.Duration `yaml:"cache_ttl"`    // raw Understat pages
	SnapshotTTL time.Duration `yaml:"snapshot_ttl"` // scheduled refresh payloads
}

type PostgresConfig struct {
	DSN string `yaml:"dsn"`
}

type SchedulerConfig struct {
	Enabled    bool          `yaml:"enabled"`
	Spec       string        `yaml:"spec"`
	MaxRetries int           `yaml:"max_retries"`
	RetryDelay time.Duration `yaml:"retry_delay"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			RESTPort:        "8080",
			WSPort:          "8081",
			AllowedOrigins:  []string{"*"},
			ShutdownTimeout: 5 * time.Second,
		},
		Understat: UnderstatConfig{
			BaseURL:   "https://understat.com",
			League:    "EPL",
			Season:    "2024",
			FetchMode: FetchHTTP,
			Timeout:   15 * time.Second,
		},
		Calendar: CalendarConfig{
			Source: CalendarBuiltin,
			Season: "2024",
		},
		Pipeline: PipelineConfig{
			DegradeRanking: true,
		},
		Redis: RedisConfig{
			CacheTTL:    10 * time.Minute,
			SnapshotTTL: 24 * time.Hour,
		},
		Scheduler: SchedulerConfig{
			Enabled:    false,
			Spec:       "@every 15m",
			MaxRetries: 3,
			RetryDelay: 5 * time.Second,
		},
		LogLevel: "info",
	}
}

// Load reads configPath on top of the defaults and applies environment
// overrides. An empty path skips the file.
func Load(configPath string) (*Config, error) {
	cfg := Default()

	if configPath != "" {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.Server.RESTPort = getEnv("REST_PORT", c.Server.RESTPort)
	c.Server.WSPort = getEnv("WS_PORT", c.Server.WSPort)
	c.Understat.BaseURL = getEnv("UNDERSTAT_BASE_URL", c.Understat.BaseURL)
	c.Understat.League = getEnv("LEAGUE", c.Understat.League)
	c.Understat.Season = getEnv("SEASON", c.Understat.Season)
	c.Understat.FetchMode = getEnv("FETCH_MODE", c.Understat.FetchMode)
	c.Calendar.Source = getEnv("CALENDAR_SOURCE", c.Calendar.Source)
	c.Calendar.Path = getEnv("CALENDAR_PATH", c.Calendar.Path)
	c.Calendar.Season = getEnv("CALENDAR_SEASON", c.Calendar.Season)
	c.Redis.URL = getEnv("REDIS_URL", c.Redis.URL)
	c.Postgres.DSN = getEnv("DATABASE_DSN", c.Postgres.DSN)
	c.Scheduler.Spec = getEnv("REFRESH_SPEC", c.Scheduler.Spec)
	c.Scheduler.Enabled = getEnvBool("ENABLE_SCHEDULER", c.Scheduler.Enabled)
	c.Pipeline.DegradeRanking = getEnvBool("DEGRADE_RANKING", c.Pipeline.DegradeRanking)
	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)
}

// Validate checks enumerated settings and their dependencies.
func (c *Config) Validate() error {
	switch c.Calendar.Source {
	case CalendarBuiltin:
	case CalendarFile:
		if c.Calendar.Path == "" {
			return fmt.Errorf("calendar source %q requires calendar.path", c.Calendar.Source)
		}
	case CalendarPostgres:
		if c.Postgres.DSN == "" {
			return fmt.Errorf("calendar source %q requires postgres.dsn", c.Calendar.Source)
		}
	default:
		return fmt.Errorf("unknown calendar source %q", c.Calendar.Source)
	}

	switch c.Understat.FetchMode {
	case FetchHTTP, FetchBrowser:
	default:
		return fmt.Errorf("unknown fetch mode %q", c.Understat.FetchMode)
	}

	if c.Understat.League == "" || c.Understat.Season == "" {
		return fmt.Errorf("understat league and season are required")
	}
	if c.Scheduler.Enabled && c.Scheduler.Spec == "" {
		return fmt.Errorf("scheduler enabled without a spec")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}
	return b
}

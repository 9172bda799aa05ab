package config

import (
	"errors"
	"os"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Env      string `yaml:"env"`
	LogLevel string `yaml:"log_level"`
	Listen   string `yaml:"listen"`

	DBType        string `yaml:"storage_backend"`
	DBDSN         string `yaml:"postgres_dsn"`
	FileSnapshots string `yaml:"snapshots_file"`
	FileGoals     string `yaml:"goals_file"`

	ProviderURL string `yaml:"provider_url"`
	AuthURL     string `yaml:"auth_url"`
	LocalToken  string `yaml:"local_token"`
	TimeZone    string `yaml:"time_zone"`

	DebounceInterval time.Duration `yaml:"debounce_interval"`
	RefreshInterval  time.Duration `yaml:"refresh_interval"`
	RefreshTimeout   time.Duration `yaml:"refresh_timeout"`
	ZeroGuardWindow  time.Duration `yaml:"zero_guard_window"`
}

var (
	cfg  *Config
	once sync.Once
)

// Load reads configuration once per process: an optional YAML file named
// by CONFIG_FILE first, then environment variables (with .env fallback)
// on top. Panics on invalid config; there is no recovering from it.
func Load() *Config {
	once.Do(func() {
		_ = loadDotEnv()
		cfg = defaults()
		if path := os.Getenv("CONFIG_FILE"); path != "" {
			if err := cfg.loadFile(path); err != nil {
				panic("Invalid config file: " + err.Error())
			}
		}
		cfg.loadEnv()
		if err := cfg.Validate(); err != nil {
			panic("Invalid config: " + err.Error())
		}
	})
	return cfg
}

func defaults() *Config {
	return &Config{
		Env:              "development",
		LogLevel:         "info",
		Listen:           ":8088",
		DBType:           "file",
		FileSnapshots:    "data/snapshots.json",
		FileGoals:        "data/goals.json",
		LocalToken:       "MOCK-TOKEN",
		TimeZone:         "Local",
		DebounceInterval: 150 * time.Millisecond,
		RefreshInterval:  5 * time.Minute,
		RefreshTimeout:   10 * time.Second,
		ZeroGuardWindow:  24 * time.Hour,
	}
}

func (c *Config) loadFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(raw, c)
}

func (c *Config) loadEnv() {
	c.Env = getEnv("APP_ENV", c.Env)
	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)
	c.Listen = getEnv("LISTEN_ADDR", c.Listen)
	c.DBType = getEnv("STORAGE_BACKEND", c.DBType)
	c.DBDSN = getEnv("POSTGRES_DSN", c.DBDSN)
	c.FileSnapshots = getEnv("SNAPSHOTS_FILE", c.FileSnapshots)
	c.FileGoals = getEnv("GOALS_FILE", c.FileGoals)
	c.ProviderURL = getEnv("PROVIDER_URL", c.ProviderURL)
	c.AuthURL = getEnv("AUTH_URL", c.AuthURL)
	c.LocalToken = getEnv("LOCAL_TOKEN", c.LocalToken)
	c.TimeZone = getEnv("TIME_ZONE", c.TimeZone)
	c.DebounceInterval = getDuration("DEBOUNCE_INTERVAL", c.DebounceInterval)
	c.RefreshInterval = getDuration("REFRESH_INTERVAL", c.RefreshInterval)
	c.RefreshTimeout = getDuration("REFRESH_TIMEOUT", c.RefreshTimeout)
	c.ZeroGuardWindow = getDuration("ZERO_GUARD_WINDOW", c.ZeroGuardWindow)
}

func (c *Config) Validate() error {
	if c.DBType == "postgres" && c.DBDSN == "" {
		return errors.New("POSTGRES_DSN is required when STORAGE_BACKEND=postgres")
	}
	if c.DBType == "file" && (c.FileSnapshots == "" || c.FileGoals == "") {
		return errors.New("File storage requires SNAPSHOTS_FILE and GOALS_FILE to be set")
	}
	if c.Env != "development" && c.Env != "staging" && c.Env != "production" {
		return errors.New("APP_ENV must be one of: development, staging, production")
	}
	if c.Env != "development" && c.AuthURL == "" {
		return errors.New("AUTH_URL is required outside development")
	}
	if c.DebounceInterval <= 0 || c.RefreshInterval <= 0 || c.RefreshTimeout <= 0 {
		return errors.New("intervals and timeouts must be positive durations")
	}
	return nil
}

// Location resolves the configured time zone; the day boundary for
// snapshots and streaks is local midnight in this zone.
func (c *Config) Location() *time.Location {
	if c.TimeZone == "" || c.TimeZone == "Local" {
		return time.Local
	}
	loc, err := time.LoadLocation(c.TimeZone)
	if err != nil {
		return time.Local
	}
	return loc
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func loadDotEnv() error {
	raw, err := os.ReadFile(".env")
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	for _, line := range strings.Split(string(raw), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if k, v, ok := strings.Cut(line, "="); ok {
			os.Setenv(strings.TrimSpace(k), strings.TrimSpace(v))
		}
	}
	return nil
}

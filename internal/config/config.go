package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	defaultAPIBaseURL           = "http://localhost:8080/api"
	defaultAPITimeoutSec        = 10
	defaultHeartbeatIntervalSec = 30
	defaultHeartbeatDebounceSec = 5
	defaultHeartbeatSource      = "APP"
	defaultSessionDBName        = "session.db"
)

type Config struct {
	API       APIConfig       `yaml:"api"`
	Heartbeat HeartbeatConfig `yaml:"heartbeat"`
	Session   SessionConfig   `yaml:"session"`
	Metrics   MetricsConfig   `yaml:"metrics"`
}

type APIConfig struct {
	BaseURL    string `yaml:"base_url"`
	TimeoutSec int    `yaml:"timeout_sec"`
}

type HeartbeatConfig struct {
	Enabled     bool   `yaml:"enabled"`
	IntervalSec int    `yaml:"interval_sec"`
	DebounceSec int    `yaml:"debounce_sec"`
	Source      string `yaml:"source"`
}

type SessionConfig struct {
	DBPath string `yaml:"db_path"`
}

type MetricsConfig struct {
	Bind string `yaml:"bind"`
}

func Default() Config {
	return Config{
		API: APIConfig{
			BaseURL:    defaultAPIBaseURL,
			TimeoutSec: defaultAPITimeoutSec,
		},
		Heartbeat: HeartbeatConfig{
			Enabled:     true,
			IntervalSec: defaultHeartbeatIntervalSec,
			DebounceSec: defaultHeartbeatDebounceSec,
			Source:      defaultHeartbeatSource,
		},
		Session: SessionConfig{
			DBPath: defaultSessionDBPath(),
		},
	}
}

// Load reads the yaml file at path (a missing file keeps the defaults), loads
// a .env file from the working directory if present, applies MTP_* overrides
// and validates the result.
func Load(path string) (Config, error) {
	cfg := Default()

	if strings.TrimSpace(path) != "" {
		body, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return Config{}, fmt.Errorf("read config: %w", err)
		default:
			if err := yaml.Unmarshal(body, &cfg); err != nil {
				return Config{}, fmt.Errorf("unmarshal config: %w", err)
			}
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}
	applyEnvOverrides(&cfg)
	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if c.API.BaseURL == "" {
		return errors.New("api.base_url is required")
	}
	if !strings.HasPrefix(c.API.BaseURL, "http://") && !strings.HasPrefix(c.API.BaseURL, "https://") {
		return fmt.Errorf("api.base_url must be an http(s) url: %q", c.API.BaseURL)
	}
	if c.API.TimeoutSec <= 0 {
		return errors.New("api.timeout_sec must be > 0")
	}
	if c.Heartbeat.IntervalSec <= 0 {
		return errors.New("heartbeat.interval_sec must be > 0")
	}
	if c.Heartbeat.DebounceSec < 0 {
		return errors.New("heartbeat.debounce_sec must be >= 0")
	}
	if c.Heartbeat.Source == "" {
		return errors.New("heartbeat.source is required")
	}
	if c.Session.DBPath == "" {
		return errors.New("session.db_path is required")
	}
	return nil
}

func (c *Config) normalize() {
	c.API.BaseURL = strings.TrimRight(strings.TrimSpace(c.API.BaseURL), "/")
	c.Heartbeat.Source = strings.ToUpper(strings.TrimSpace(c.Heartbeat.Source))
	c.Session.DBPath = expandHome(strings.TrimSpace(c.Session.DBPath))
	c.Metrics.Bind = strings.TrimSpace(c.Metrics.Bind)
}

func applyEnvOverrides(cfg *Config) {
	applyString := func(key string, dst *string) {
		if v, ok := os.LookupEnv(key); ok {
			*dst = strings.TrimSpace(v)
		}
	}
	applyInt := func(key string, dst *int) {
		if v, ok := os.LookupEnv(key); ok {
			if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
				*dst = n
			}
		}
	}
	applyBool := func(key string, dst *bool) {
		if v, ok := os.LookupEnv(key); ok {
			if b, err := strconv.ParseBool(strings.TrimSpace(v)); err == nil {
				*dst = b
			}
		}
	}

	applyString("MTP_API_BASE_URL", &cfg.API.BaseURL)
	applyInt("MTP_API_TIMEOUT_SEC", &cfg.API.TimeoutSec)
	applyBool("MTP_HEARTBEAT_ENABLED", &cfg.Heartbeat.Enabled)
	applyInt("MTP_HEARTBEAT_INTERVAL_SEC", &cfg.Heartbeat.IntervalSec)
	applyInt("MTP_HEARTBEAT_DEBOUNCE_SEC", &cfg.Heartbeat.DebounceSec)
	applyString("MTP_HEARTBEAT_SOURCE", &cfg.Heartbeat.Source)
	applyString("MTP_SESSION_DB_PATH", &cfg.Session.DBPath)
	applyString("MTP_METRICS_BIND", &cfg.Metrics.Bind)
}

func defaultSessionDBPath() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return filepath.Join(".mtp", defaultSessionDBName)
	}
	return filepath.Join(home, ".mtp", defaultSessionDBName)
}

func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}

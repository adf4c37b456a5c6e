package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the central typed configuration struct.
// Precedence, lowest to highest: built-in defaults, YAML file, process
// environment (a .env file only fills variables that are not already set).
type Config struct {
	App     AppConfig     `yaml:"app"`
	Log     LogConfig     `yaml:"log"`
	Bus     BusConfig     `yaml:"bus"`
	Metrics MetricsConfig `yaml:"metrics"`
}

type AppConfig struct {
	Name  string `yaml:"name"`
	Env   string `yaml:"env"` // local | production | testing
	Debug bool   `yaml:"debug"`
	Port  string `yaml:"port"`
}

type LogConfig struct {
	Level string `yaml:"level"` // debug | info | warn | error
}

type BusConfig struct {
	// SlowThreshold marks dispatches slower than this in the logs.
	SlowThreshold time.Duration `yaml:"slow_threshold"`
	// RateLimit and RateBurst feed the throttle behavior.
	RateLimit float64 `yaml:"rate_limit"`
	RateBurst int     `yaml:"rate_burst"`
}

type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// Load reads .env (if present), overlays an optional YAML file
// (CONFIG_FILE, default config.yaml), and lets process environment
// variables win. Call once at bootstrap.
func Load(envFiles ...string) (*Config, error) {
	files := envFiles
	if len(files) == 0 {
		files = []string{".env"}
	}
	// Non-fatal: .env may not exist in production.
	_ = godotenv.Load(files...)

	cfg := &Config{
		App: AppConfig{
			Name:  "go-mediator",
			Env:   "local",
			Debug: true,
			Port:  "8000",
		},
		Log: LogConfig{Level: "info"},
		Bus: BusConfig{
			SlowThreshold: 500 * time.Millisecond,
			RateLimit:     100,
			RateBurst:     200,
		},
		Metrics: MetricsConfig{Enabled: true, Path: "/metrics"},
	}

	if err := cfg.overlayFile(env("CONFIG_FILE", "config.yaml")); err != nil {
		return nil, err
	}
	cfg.overlayEnv()
	return cfg, nil
}

// overlayFile applies a YAML config file over the current values. A
// missing default file is fine; an explicitly configured one must exist.
func (c *Config) overlayFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && os.Getenv("CONFIG_FILE") == "" {
			return nil
		}
		return fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}
	return nil
}

// overlayEnv applies process environment variables, which take precedence
// over both defaults and the YAML file.
func (c *Config) overlayEnv() {
	c.App.Name = env("APP_NAME", c.App.Name)
	c.App.Env = env("APP_ENV", c.App.Env)
	c.App.Debug = envBool("APP_DEBUG", c.App.Debug)
	c.App.Port = env("APP_PORT", c.App.Port)
	c.Log.Level = env("LOG_LEVEL", c.Log.Level)
	c.Bus.SlowThreshold = envDuration("BUS_SLOW_THRESHOLD", c.Bus.SlowThreshold)
	c.Bus.RateLimit = envFloat("BUS_RATE_LIMIT", c.Bus.RateLimit)
	c.Bus.RateBurst = envInt("BUS_RATE_BURST", c.Bus.RateBurst)
	c.Metrics.Enabled = envBool("METRICS_ENABLED", c.Metrics.Enabled)
	c.Metrics.Path = env("METRICS_PATH", c.Metrics.Path)
}

// Get returns a raw env value, falling back to defaultVal.
func Get(key, defaultVal string) string {
	return env(key, defaultVal)
}

// GetInt returns an int env value.
func GetInt(key string, defaultVal int) int {
	return envInt(key, defaultVal)
}

// GetBool returns a bool env value.
func GetBool(key string, defaultVal bool) bool {
	return envBool(key, defaultVal)
}

// ── helpers ─────────────────────────────────────────────────────────────────

func env(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return i
}

func envFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}

func envDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}

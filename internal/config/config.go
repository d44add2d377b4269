// Package config handles watcher configuration: a YAML file defines sources
// and alerts, environment variables override process-level settings.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// SourceConfig is one watched window.
type SourceConfig struct {
	ID          string `yaml:"id"`
	WindowTitle string `yaml:"window_title"`
	MethodHint  string `yaml:"method_hint,omitempty"`
}

// AlertConfig is one logical alert with its template variants.
type AlertConfig struct {
	Name            string   `yaml:"name"`
	Templates       []string `yaml:"templates"`
	Threshold       float64  `yaml:"threshold"`
	CooldownSeconds float64  `yaml:"cooldown_seconds"`
	Enabled         *bool    `yaml:"enabled,omitempty"`
	Strategy        string   `yaml:"strategy,omitempty"`
}

// IsEnabled treats a missing enabled flag as true.
func (a *AlertConfig) IsEnabled() bool {
	return a.Enabled == nil || *a.Enabled
}

// Cooldown returns the alert cooldown as a duration.
func (a *AlertConfig) Cooldown() time.Duration {
	return time.Duration(a.CooldownSeconds * float64(time.Second))
}

type Config struct {
	HTTPAddr            string  `yaml:"http_addr"`
	PollIntervalSeconds float64 `yaml:"poll_interval_seconds"`
	LearnDBPath         string  `yaml:"learn_db_path"`
	DebugDir            string  `yaml:"debug_dir,omitempty"`
	LogLevel            string  `yaml:"log_level,omitempty"`

	Sources []SourceConfig `yaml:"sources"`
	Alerts  []AlertConfig  `yaml:"alerts"`
}

// PollInterval returns the cycle interval as a duration.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalSeconds * float64(time.Second))
}

func defaults() *Config {
	return &Config{
		HTTPAddr:            ":8000",
		PollIntervalSeconds: 2.0,
		LearnDBPath:         "gamewatch.db",
		LogLevel:            "info",
	}
}

// Load reads the YAML file at path, applies environment overrides, and
// validates the result. A missing file yields defaults plus env overrides so
// the process can start before any source is configured.
func Load(path string) (*Config, error) {
	cfg := defaults()

	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
	case err != nil:
		return nil, fmt.Errorf("config: read %q: %w", path, err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: parse %q: %w", path, err)
		}
	}

	cfg.HTTPAddr = getEnv("HTTP_ADDR", cfg.HTTPAddr)
	cfg.PollIntervalSeconds = getEnvFloat("POLL_INTERVAL_SECONDS", cfg.PollIntervalSeconds)
	cfg.LearnDBPath = getEnv("LEARN_DB_PATH", cfg.LearnDBPath)
	cfg.DebugDir = getEnv("DEBUG_DIR", cfg.DebugDir)
	cfg.LogLevel = getEnv("LOG_LEVEL", cfg.LogLevel)

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.PollIntervalSeconds <= 0 {
		return fmt.Errorf("config: poll_interval_seconds must be positive, got %v", c.PollIntervalSeconds)
	}
	seenSources := make(map[string]bool)
	for i, s := range c.Sources {
		if s.ID == "" {
			return fmt.Errorf("config: sources[%d]: id is required", i)
		}
		if s.WindowTitle == "" {
			return fmt.Errorf("config: source %q: window_title is required", s.ID)
		}
		if seenSources[s.ID] {
			return fmt.Errorf("config: duplicate source id %q", s.ID)
		}
		seenSources[s.ID] = true
	}
	seenAlerts := make(map[string]bool)
	for i, a := range c.Alerts {
		if a.Name == "" {
			return fmt.Errorf("config: alerts[%d]: name is required", i)
		}
		if seenAlerts[a.Name] {
			return fmt.Errorf("config: duplicate alert %q", a.Name)
		}
		seenAlerts[a.Name] = true
		if len(a.Templates) == 0 {
			return fmt.Errorf("config: alert %q: at least one template is required", a.Name)
		}
		if a.Threshold < 0 || a.Threshold > 1 {
			return fmt.Errorf("config: alert %q: threshold %v out of [0,1]", a.Name, a.Threshold)
		}
		if a.CooldownSeconds < 0 {
			return fmt.Errorf("config: alert %q: cooldown_seconds must not be negative", a.Name)
		}
		switch a.Strategy {
		case "", "best", "first", "all":
		default:
			return fmt.Errorf("config: alert %q: unknown strategy %q", a.Name, a.Strategy)
		}
	}
	return nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

// Package config loads the notary configuration.
//
// Values come from, in increasing priority: built-in defaults, an optional
// YAML file, and environment variables. Command-line flags are applied by the
// caller on top of the result.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// EnvConfigFile names the YAML file to load when no path is given.
const EnvConfigFile = "STARNOTARY_CONFIG"

// Config is the process configuration.
type Config struct {
	HTTP      HTTPConfig      `yaml:"http"`
	Redis     RedisConfig     `yaml:"redis"`
	Session   SessionConfig   `yaml:"session"`
	Story     StoryConfig     `yaml:"story"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Events    EventsConfig    `yaml:"events"`
	Grant     GrantConfig     `yaml:"grant"`
	Log       LogConfig       `yaml:"log"`
}

// HTTPConfig configures the listener.
type HTTPConfig struct {
	Addr            string        `yaml:"addr"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// RedisConfig selects the Redis backend. An empty URL runs everything in memory.
type RedisConfig struct {
	URL    string `yaml:"url"`
	Prefix string `yaml:"prefix"`
}

// SessionConfig configures ownership challenges.
type SessionConfig struct {
	// ValidationWindow is how long a challenge may be answered.
	ValidationWindow time.Duration `yaml:"validation_window"`

	// Retention keeps expired sessions around so callers learn they expired.
	Retention time.Duration `yaml:"retention"`
}

// StoryConfig bounds registered stories.
type StoryConfig struct {
	MaxBytes int `yaml:"max_bytes"`
}

// RateLimitConfig limits protocol requests per client. Zero RPS disables it.
type RateLimitConfig struct {
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
}

// EventsConfig configures the star registered stream.
type EventsConfig struct {
	Topic string `yaml:"topic"`
}

// GrantConfig configures registration grant signing.
// Without a key file an ephemeral key is generated at startup.
type GrantConfig struct {
	KeyFile string `yaml:"key_file"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level string `yaml:"level"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		HTTP: HTTPConfig{
			Addr:            ":9000",
			ShutdownTimeout: 10 * time.Second,
		},
		Redis: RedisConfig{
			Prefix: "starnotary:",
		},
		Session: SessionConfig{
			ValidationWindow: 300 * time.Second,
			Retention:        time.Hour,
		},
		Story: StoryConfig{
			MaxBytes: 500,
		},
		RateLimit: RateLimitConfig{
			RPS:   5,
			Burst: 20,
		},
		Events: EventsConfig{
			Topic: "starnotary.star_registered",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load builds the configuration from defaults, the YAML file at path (or
// $STARNOTARY_CONFIG when path is empty) and the environment.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = os.Getenv(EnvConfigFile)
	}
	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

// applyEnv overrides fields from non-empty environment variables
func (c *Config) applyEnv(getenv func(string) (string, bool)) error {
	lookup := func(key string) (string, bool) {
		v, ok := getenv(key)
		return v, ok && v != ""
	}

	if v, ok := lookup("STARNOTARY_ADDR"); ok {
		c.HTTP.Addr = v
	}
	if v, ok := lookup("REDIS_URL"); ok {
		c.Redis.URL = v
	}
	if v, ok := lookup("STARNOTARY_REDIS_PREFIX"); ok {
		c.Redis.Prefix = v
	}
	if v, ok := lookup("STARNOTARY_VALIDATION_WINDOW"); ok {
		d, err := parseSeconds(v)
		if err != nil {
			return fmt.Errorf("STARNOTARY_VALIDATION_WINDOW: %w", err)
		}
		c.Session.ValidationWindow = d
	}
	if v, ok := lookup("STARNOTARY_STORY_MAX_BYTES"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("STARNOTARY_STORY_MAX_BYTES: %w", err)
		}
		c.Story.MaxBytes = n
	}
	if v, ok := lookup("STARNOTARY_GRANT_KEY_FILE"); ok {
		c.Grant.KeyFile = v
	}
	if v, ok := lookup("STARNOTARY_LOG_LEVEL"); ok {
		c.Log.Level = v
	}
	return nil
}

// parseSeconds accepts a Go duration or a bare number of seconds
func parseSeconds(v string) (time.Duration, error) {
	v = strings.TrimSpace(v)
	if n, err := strconv.ParseInt(v, 10, 64); err == nil {
		return time.Duration(n) * time.Second, nil
	}
	return time.ParseDuration(v)
}

// Validate rejects settings the service cannot run with.
func (c *Config) Validate() error {
	var errs []error
	if c.HTTP.Addr == "" {
		errs = append(errs, errors.New("http.addr is required"))
	}
	if c.Session.ValidationWindow < time.Second {
		errs = append(errs, errors.New("session.validation_window must be at least 1s"))
	}
	if c.Session.Retention < 0 {
		errs = append(errs, errors.New("session.retention must not be negative"))
	}
	if c.Story.MaxBytes <= 0 {
		errs = append(errs, errors.New("story.max_bytes must be positive"))
	}
	if c.RateLimit.RPS < 0 || c.RateLimit.Burst < 0 {
		errs = append(errs, errors.New("rate_limit values must not be negative"))
	}
	if c.Events.Topic == "" {
		errs = append(errs, errors.New("events.topic is required"))
	}
	if _, err := c.LogLevel(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// LogLevel parses Log.Level.
func (c *Config) LogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Log.Level)); err != nil {
		return 0, fmt.Errorf("log.level: %w", err)
	}
	return level, nil
}

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	API     APIConfig     `yaml:"api"`
	Poll    PollConfig    `yaml:"poll"`
	Server  ServerConfig  `yaml:"server"`
	Events  EventsConfig  `yaml:"events"`
	Logging LoggingConfig `yaml:"logging"`
}

type APIConfig struct {
	URL     string        `yaml:"url"`
	Timeout time.Duration `yaml:"timeout"`
	// UsePush enables the websocket status stream alongside polling.
	UsePush bool `yaml:"use_push"`
}

type PollConfig struct {
	Interval    time.Duration `yaml:"interval"`
	MaxFailures int           `yaml:"max_failures"`
	MaxDuration time.Duration `yaml:"max_duration"`
}

type ServerConfig struct {
	Port string `yaml:"port"`
}

type EventsConfig struct {
	NATSURL string `yaml:"nats_url"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

const (
	DefaultAPIURL      = "http://localhost:8000"
	DefaultTimeout     = 30 * time.Second
	DefaultInterval    = 3 * time.Second
	DefaultMaxFailures = 3
	DefaultMaxDuration = 10 * time.Minute
	DefaultPort        = "8888"
)

// Load reads config from an optional YAML file and applies environment
// variable overrides. An empty path yields defaults plus environment.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}
	setDefaults(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func setDefaults(cfg *Config) {
	if cfg.API.URL == "" {
		cfg.API.URL = DefaultAPIURL
	}
	cfg.API.URL = strings.TrimRight(cfg.API.URL, "/")
	if cfg.API.Timeout == 0 {
		cfg.API.Timeout = DefaultTimeout
	}
	if cfg.Poll.Interval == 0 {
		cfg.Poll.Interval = DefaultInterval
	}
	if cfg.Poll.MaxFailures == 0 {
		cfg.Poll.MaxFailures = DefaultMaxFailures
	}
	if cfg.Poll.MaxDuration == 0 {
		cfg.Poll.MaxDuration = DefaultMaxDuration
	}
	if cfg.Server.Port == "" {
		cfg.Server.Port = DefaultPort
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "text"
	}
}

func applyEnvOverrides(cfg *Config) error {
	// VITE_API_URL is honoured so an existing frontend .env keeps working.
	if v := os.Getenv("VITE_API_URL"); v != "" {
		cfg.API.URL = v
	}
	if v := os.Getenv("INSPECTOR_API_URL"); v != "" {
		cfg.API.URL = v
	}
	if v := os.Getenv("INSPECTOR_API_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid INSPECTOR_API_TIMEOUT: %w", err)
		}
		cfg.API.Timeout = d
	}
	if v := os.Getenv("INSPECTOR_USE_PUSH"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid INSPECTOR_USE_PUSH: %w", err)
		}
		cfg.API.UsePush = b
	}
	if v := os.Getenv("INSPECTOR_POLL_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid INSPECTOR_POLL_INTERVAL: %w", err)
		}
		cfg.Poll.Interval = d
	}
	if v := os.Getenv("INSPECTOR_POLL_MAX_FAILURES"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid INSPECTOR_POLL_MAX_FAILURES: %w", err)
		}
		cfg.Poll.MaxFailures = n
	}
	if v := os.Getenv("INSPECTOR_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("INSPECTOR_LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
	if v := os.Getenv("NATS_URL"); v != "" {
		cfg.Events.NATSURL = v
	}
	if v := os.Getenv("PORT"); v != "" {
		cfg.Server.Port = v
	}
	return nil
}

func (c *Config) Validate() error {
	if !strings.HasPrefix(c.API.URL, "http://") && !strings.HasPrefix(c.API.URL, "https://") {
		return fmt.Errorf("api url must start with http:// or https://, got %q", c.API.URL)
	}
	if c.Poll.Interval < 0 || c.Poll.MaxDuration < 0 {
		return fmt.Errorf("poll durations must be positive")
	}
	if c.Poll.MaxFailures < 1 {
		return fmt.Errorf("poll max_failures must be at least 1, got %d", c.Poll.MaxFailures)
	}
	switch c.Logging.Format {
	case "text", "json":
	default:
		return fmt.Errorf("unsupported log format %q (supported: text, json)", c.Logging.Format)
	}
	return nil
}

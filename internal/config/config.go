package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the gateway
type Config struct {
	// Upstream analytics API
	Upstream UpstreamConfig `yaml:"upstream"`

	// HTTP listener
	Server ServerConfig `yaml:"server"`

	// Logging Configuration
	Logging LoggingConfig `yaml:"logging"`
}

// UpstreamConfig holds the analytics API settings
type UpstreamConfig struct {
	BaseURL        string        `yaml:"base_url" validate:"required,url"`
	Timeout        time.Duration `yaml:"timeout" validate:"gte=0"` // 0 = transport default, no deadline
	BreakerEnabled bool          `yaml:"breaker_enabled"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port               string   `yaml:"port" validate:"required,numeric"`
	CORSAllowedOrigins []string `yaml:"cors_allowed_origins" validate:"min=1"`
	PingMessage        string   `yaml:"ping_message"`
}

// LoggingConfig holds logging-related configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format" validate:"oneof=json console"` // json, console
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	return &Config{
		Upstream: UpstreamConfig{
			BaseURL: "http://localhost:8000",
		},
		Server: ServerConfig{
			Port:               "8080",
			CORSAllowedOrigins: []string{"*"},
			PingMessage:        "ping",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load loads configuration from .env files, an optional YAML file named by
// CONFIG_FILE, and environment variables, in increasing precedence.
func Load() (*Config, error) {
	// Load .env files (fails silently if files don't exist)
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	cfg := Default()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := loadFile(path, cfg); err != nil {
			return nil, err
		}
	}

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

func applyEnv(cfg *Config) error {
	if v := os.Getenv("API_BASE_URL"); v != "" {
		cfg.Upstream.BaseURL = strings.TrimRight(v, "/")
	}

	if v := os.Getenv("UPSTREAM_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid UPSTREAM_TIMEOUT %q: %w", v, err)
		}
		cfg.Upstream.Timeout = d
	}

	if v := os.Getenv("UPSTREAM_BREAKER_ENABLED"); v != "" {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid UPSTREAM_BREAKER_ENABLED %q: %w", v, err)
		}
		cfg.Upstream.BreakerEnabled = enabled
	}

	if v := os.Getenv("PORT"); v != "" {
		cfg.Server.Port = v
	}

	if v := os.Getenv("CORS_ALLOWED_ORIGINS"); v != "" {
		var origins []string
		for _, origin := range strings.Split(v, ",") {
			if origin = strings.TrimSpace(origin); origin != "" {
				origins = append(origins, origin)
			}
		}
		cfg.Server.CORSAllowedOrigins = origins
	}

	// PING_MESSAGE may legitimately be set to an empty string
	if v, ok := os.LookupEnv("PING_MESSAGE"); ok {
		cfg.Server.PingMessage = v
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}

	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Logging.Format = strings.ToLower(v)
	}

	return nil
}

// Validate checks the configuration for values the gateway cannot run with.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// Addr returns the listen address for the HTTP server.
func (c *Config) Addr() string {
	return ":" + c.Server.Port
}

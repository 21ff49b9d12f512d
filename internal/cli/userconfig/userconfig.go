package userconfig

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/qos-dev/qosdash/internal/cli/client"
	"github.com/qos-dev/qosdash/internal/cli/session"
	"github.com/qos-dev/qosdash/internal/cli/storage"
)

const (
	configDirName  = "qosdash"
	configFileName = "config.json"
)

// Environment variables that override the config file.
const (
	EnvAPIBaseURL = "QOS_API_BASE_URL"
	EnvGatewayURL = "QOS_GATEWAY_URL"
	EnvStorage    = "QOS_STORAGE"
	EnvConfigDir  = "QOS_CONFIG_DIR"
)

// UserConfig represents the user's local configuration stored in ~/.config/qosdash/config.json
type UserConfig struct {
	APIBaseURL string `json:"api_base_url,omitempty"`
	GatewayURL string `json:"gateway_url,omitempty"`
	Storage    string `json:"storage,omitempty"`
}

// ConfigDir returns the directory holding config.json (and the file storage
// backend). QOS_CONFIG_DIR overrides the default.
func ConfigDir() (string, error) {
	if dir := os.Getenv(EnvConfigDir); dir != "" {
		return dir, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}

	return filepath.Join(homeDir, ".config", configDirName), nil
}

// GetConfigPath returns the path to the user config file
func GetConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, configFileName), nil
}

// Load reads the user configuration file
func Load() (*UserConfig, error) {
	configPath, err := GetConfigPath()
	if err != nil {
		return nil, err
	}

	// If config doesn't exist, return empty config
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return &UserConfig{}, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read user config file: %w", err)
	}

	var cfg UserConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse user config file: %w", err)
	}

	return &cfg, nil
}

// Save writes the user configuration to a file
func Save(cfg *UserConfig) error {
	configPath, err := GetConfigPath()
	if err != nil {
		return err
	}

	// Create config directory if it doesn't exist
	if err := os.MkdirAll(filepath.Dir(configPath), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal user config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write user config file: %w", err)
	}

	return nil
}

// Set updates one key and saves the config.
func Set(key, value string) error {
	cfg, err := Load()
	if err != nil {
		return err
	}

	switch key {
	case "api_base_url":
		cfg.APIBaseURL = strings.TrimRight(value, "/")
	case "gateway_url":
		cfg.GatewayURL = strings.TrimRight(value, "/")
	case "storage":
		if err := storage.ValidKind(value); err != nil {
			return err
		}
		// memory forgets every login when the process exits; it is only
		// accepted as a per-run flag or environment override
		if strings.EqualFold(value, storage.KindMemory) {
			return fmt.Errorf("storage %q cannot be persisted (want %s or %s)", value, storage.KindKeyring, storage.KindFile)
		}
		cfg.Storage = strings.ToLower(value)
	default:
		return fmt.Errorf("unknown config key %q (want api_base_url, gateway_url or storage)", key)
	}

	return Save(cfg)
}

// Settings is the effective configuration after applying overrides.
type Settings struct {
	APIBaseURL  string
	GatewayURL  string
	Storage     string
	StoragePath string
}

// Resolve merges flag values (empty = unset), environment, the config file and
// defaults, in that order of precedence.
func Resolve(flags Settings) (*Settings, error) {
	cfg, err := Load()
	if err != nil {
		return nil, err
	}

	dir, err := ConfigDir()
	if err != nil {
		return nil, err
	}

	return &Settings{
		APIBaseURL:  firstNonEmpty(flags.APIBaseURL, os.Getenv(EnvAPIBaseURL), cfg.APIBaseURL, session.DefaultAPIBaseURL),
		GatewayURL:  firstNonEmpty(flags.GatewayURL, os.Getenv(EnvGatewayURL), cfg.GatewayURL, client.DefaultGatewayURL),
		Storage:     strings.ToLower(firstNonEmpty(flags.Storage, os.Getenv(EnvStorage), cfg.Storage, storage.KindKeyring)),
		StoragePath: filepath.Join(dir, "storage.json"),
	}, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

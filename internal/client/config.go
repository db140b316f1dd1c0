package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// DefaultServer is used until login stores another one
const DefaultServer = "http://localhost:8001"

// Config is the persisted CLI state
type Config struct {
	Server    string    `json:"server"`
	Token     string    `json:"token,omitempty"`
	ExpiresAt time.Time `json:"expires_at,omitempty"`
}

// LoggedIn reports whether a token is stored and has not expired
func (c *Config) LoggedIn(now time.Time) bool {
	return c.Token != "" && (c.ExpiresAt.IsZero() || now.Before(c.ExpiresAt))
}

// GetConfigDir returns ~/.domain-manager
func GetConfigDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(homeDir, ".domain-manager"), nil
}

// GetConfigPath returns the config file path
func GetConfigPath() (string, error) {
	dir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// LoadConfig reads path, returning defaults when the file does not exist
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Config{Server: DefaultServer}, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	if cfg.Server == "" {
		cfg.Server = DefaultServer
	}
	return &cfg, nil
}

// SaveConfig writes cfg to path with owner-only permissions
func SaveConfig(path string, cfg *Config) error {
	if cfg.Server == "" {
		return errors.New("server is required")
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

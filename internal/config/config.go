// Package config manages PolicyVault configuration and the .pvault directory
// structure. It handles loading, saving, and initializing the vault
// configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
)

const (
	VaultDir     = ".pvault"
	ConfigFile   = "config"
	DatabaseFile = "pvault.db"
	AuditFile    = "audit.db"
)

// Config represents the PolicyVault configuration
type Config struct {
	// SearchURL points at the Weaviate instance backing the policy library
	// index. Empty disables search indexing.
	SearchURL string `toml:"search_url"`

	// AckExpiryDays overrides the default one-year acknowledgment expiry.
	// Zero means the default.
	AckExpiryDays int `toml:"ack_expiry_days"`

	path string // path to .pvault directory
}

// FindVaultRoot finds the .pvault directory by walking up from current directory
func FindVaultRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}

	for {
		vaultPath := filepath.Join(dir, VaultDir)
		if info, err := os.Stat(vaultPath); err == nil && info.IsDir() {
			return vaultPath, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("not a pvault vault (or any parent up to root)")
		}
		dir = parent
	}
}

// Load loads the configuration from the .pvault directory
func Load() (*Config, error) {
	vaultPath, err := FindVaultRoot()
	if err != nil {
		return nil, err
	}

	configPath := filepath.Join(vaultPath, ConfigFile)
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.path = vaultPath
	return &cfg, nil
}

// Save saves the configuration to disk
func (c *Config) Save() error {
	configPath := filepath.Join(c.path, ConfigFile)
	data, err := toml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	return os.WriteFile(configPath, data, 0644)
}

// VaultPath returns the path to the .pvault directory
func (c *Config) VaultPath() string {
	return c.path
}

// DatabasePath returns the path to the SQLite database
func (c *Config) DatabasePath() string {
	return filepath.Join(c.path, DatabaseFile)
}

// AuditPath returns the path to the bbolt audit ledger
func (c *Config) AuditPath() string {
	return filepath.Join(c.path, AuditFile)
}

// Initialize creates a new .pvault directory with initial configuration
func Initialize(searchURL string) (*Config, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, err
	}

	vaultPath := filepath.Join(cwd, VaultDir)

	// Check if already initialized
	if _, err := os.Stat(vaultPath); err == nil {
		return nil, fmt.Errorf("pvault vault already exists")
	}

	if err := os.MkdirAll(vaultPath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create .pvault directory: %w", err)
	}

	cfg := &Config{
		SearchURL: searchURL,
		path:      vaultPath,
	}
	if err := cfg.Save(); err != nil {
		return nil, err
	}

	return cfg, nil
}

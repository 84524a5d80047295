package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed config.toml.sample
var configTemplate string

// DefaultQueryCacheMaxEntries bounds the persisted query cache when the
// config does not say otherwise.
const DefaultQueryCacheMaxEntries = 3000

type Config struct {
	// DataDir is where the RDE JSON dumps (dataset.json, template.json,
	// instruments.json, subGroup.json) live.
	DataDir string `toml:"data_dir"`

	// IndexDir is where the search index and query cache are written.
	// Defaults to <data_dir>/search_index.
	IndexDir string `toml:"index_dir,omitempty"`

	// QueryCacheMaxEntries bounds the number of cached query results.
	QueryCacheMaxEntries int `toml:"query_cache_max_entries,omitempty"`
}

func GetDefaultConfig() (*Config, error) {
	dataDir, err := GetDefaultDataDir()
	if err != nil {
		return nil, fmt.Errorf("getting default data directory: %w", err)
	}
	return &Config{
		DataDir:              dataDir,
		QueryCacheMaxEntries: DefaultQueryCacheMaxEntries,
	}, nil
}

func LoadConfig(configPath string) (*Config, error) {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return GetDefaultConfig()
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var config Config
	if err := toml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if config.DataDir == "" {
		dataDir, err := GetDefaultDataDir()
		if err != nil {
			return nil, fmt.Errorf("getting default data directory: %w", err)
		}
		config.DataDir = dataDir
	}

	if config.QueryCacheMaxEntries <= 0 {
		config.QueryCacheMaxEntries = DefaultQueryCacheMaxEntries
	}

	return &config, nil
}

func (c *Config) SaveConfig(configPath string) error {
	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := toml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	return os.WriteFile(configPath, data, 0644)
}

// SaveTemplateConfig writes the commented sample config, substituting the
// actual default data directory for the placeholder.
func (c *Config) SaveTemplateConfig(configPath string) error {
	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	template, err := c.generateConfigTemplate()
	if err != nil {
		return fmt.Errorf("generating config template: %w", err)
	}
	return os.WriteFile(configPath, []byte(template), 0644)
}

func (c *Config) generateConfigTemplate() (string, error) {
	dataDir := c.DataDir
	if dataDir == "" {
		var err error
		dataDir, err = GetDefaultDataDir()
		if err != nil {
			return "", fmt.Errorf("getting default data directory: %w", err)
		}
	}

	// Replace the placeholder data_dir with the actual path
	template := strings.Replace(configTemplate, "/home/user/.local/share/rdex", dataDir, -1)
	return template, nil
}

// ResolvedIndexDir returns the directory holding the index artifacts,
// applying the <data_dir>/search_index default.
func (c *Config) ResolvedIndexDir() string {
	if c.IndexDir != "" {
		return c.IndexDir
	}
	return filepath.Join(c.DataDir, "search_index")
}

// GetDefaultDataDir returns the default directory for the RDE JSON dumps
func GetDefaultDataDir() (string, error) {
	// Use XDG_DATA_HOME if set, otherwise use ~/.local/share
	dataDir := os.Getenv("XDG_DATA_HOME")
	if dataDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("getting user home directory: %w", err)
		}
		dataDir = filepath.Join(homeDir, ".local", "share")
	}

	rdexDir := filepath.Join(dataDir, "rdex")

	// Create the directory if it doesn't exist
	if err := os.MkdirAll(rdexDir, 0755); err != nil {
		return "", fmt.Errorf("creating data directory %s: %w", rdexDir, err)
	}

	return rdexDir, nil
}

// GetConfigDir returns the configuration directory for rdex
func GetConfigDir() (string, error) {
	// Use XDG_CONFIG_HOME if set, otherwise use ~/.config
	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("getting user home directory: %w", err)
		}
		configDir = filepath.Join(homeDir, ".config")
	}

	rdexConfigDir := filepath.Join(configDir, "rdex")

	// Create the directory if it doesn't exist
	if err := os.MkdirAll(rdexConfigDir, 0755); err != nil {
		return "", fmt.Errorf("creating config directory %s: %w", rdexConfigDir, err)
	}

	return rdexConfigDir, nil
}

// GetDefaultConfigPath returns the default configuration file path
func GetDefaultConfigPath() (string, error) {
	configDir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "config.toml"), nil
}

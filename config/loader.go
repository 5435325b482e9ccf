package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/nestd-go/nestd/errors"
)

// FileNames are the configuration file names Discover looks for, in order.
var FileNames = []string{".nestd.yaml", ".nestd.yml"}

// Discover searches for a configuration file in dir and then up the directory
// tree. It returns the config and the path where it was found. When no file
// exists the default configuration is returned with an empty path.
func Discover(dir string) (*Config, string, error) {
	if dir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, "", fmt.Errorf("failed to get current directory: %w", err)
		}
		dir = wd
	}

	dir, err := filepath.Abs(dir)
	if err != nil {
		return nil, "", fmt.Errorf("failed to resolve %s: %w", dir, err)
	}

	// Search up the directory tree
	for {
		for _, name := range FileNames {
			configPath := filepath.Join(dir, name)
			if _, err := os.Stat(configPath); err != nil {
				continue
			}

			config, err := Load(configPath)
			if err != nil {
				return nil, "", err
			}
			config.RootDir = dir
			return config, configPath, nil
		}

		// Move up one directory
		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached root without finding config
			return DefaultConfig(), "", nil
		}
		dir = parent
	}
}

// Load reads and validates the configuration file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.ErrConfigError("failed to read config file "+path, err)
	}

	config, err := Parse(data)
	if err != nil {
		return nil, err
	}
	config.RootDir = filepath.Dir(path)
	config.ConfigPath = path
	return config, nil
}

// Parse decodes YAML on top of the defaults and validates the result.
func Parse(data []byte) (*Config, error) {
	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, errors.ErrConfigError("failed to parse config file", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// Save writes the configuration to path.
func Save(config *Config, path string) error {
	data, err := yaml.Marshal(config)
	if err != nil {
		return errors.ErrConfigError("failed to marshal config", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.ErrConfigError("failed to write config file "+path, err)
	}
	return nil
}

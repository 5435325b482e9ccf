// Package config loads the .nestd.yaml file that configures logging and the
// container.
package config

import (
	"fmt"
	"slices"
	"strings"

	"github.com/nestd-go/nestd/container"
	"github.com/nestd-go/nestd/errors"
	"github.com/nestd-go/nestd/logger"
)

// Config is the nestd configuration file.
type Config struct {
	Logging   logger.LoggingConfig `yaml:"logging"`
	Container container.Config     `yaml:"container"`

	// Set by Discover and Load
	RootDir    string `yaml:"-"`
	ConfigPath string `yaml:"-"`
}

var (
	validLevels       = []string{"debug", "info", "warn", "warning", "error", "fatal"}
	validFormats      = []string{"console", "json"}
	validEnvironments = []string{"development", "production", "test"}
)

// DefaultConfig returns the configuration used when no file is found.
func DefaultConfig() *Config {
	return &Config{
		Logging: logger.LoggingConfig{
			Level:       "info",
			Format:      "console",
			Environment: "development",
			Output:      "stdout",
		},
		Container: container.DefaultConfig(),
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if !oneOf(c.Logging.Level, validLevels) {
		return errors.ErrValidationError("logging.level",
			fmt.Errorf("must be one of %s, got %q", strings.Join(validLevels, ", "), c.Logging.Level))
	}

	if !oneOf(c.Logging.Format, validFormats) {
		return errors.ErrValidationError("logging.format",
			fmt.Errorf("must be one of %s, got %q", strings.Join(validFormats, ", "), c.Logging.Format))
	}

	if !oneOf(c.Logging.Environment, validEnvironments) {
		return errors.ErrValidationError("logging.environment",
			fmt.Errorf("must be one of %s, got %q", strings.Join(validEnvironments, ", "), c.Logging.Environment))
	}

	return nil
}

// ContainerOptions returns the registry options the configuration describes.
// A nil log is replaced by a logger built from the logging section.
func (c *Config) ContainerOptions(log logger.Logger) []container.Option {
	if log == nil {
		log = logger.NewLogger(c.Logging)
	}
	return []container.Option{
		container.WithConfig(c.Container),
		container.WithLogger(log),
	}
}

// empty values fall back to the defaults and are accepted
func oneOf(v string, allowed []string) bool {
	return v == "" || slices.Contains(allowed, strings.ToLower(v))
}

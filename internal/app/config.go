package app

import (
	"errors"
	"fmt"
	"strings"

	"github.com/vk/modforge/internal/layout"
	"github.com/vk/modforge/internal/version"
)

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	BaseDir string

	// Name, Version and Layout override both the project file and what is
	// derived from the directory tree.
	Name    string
	Version string
	Layout  string

	// Feature is the highest release multi-release modules are compiled for.
	Feature int
	Workers int
	DryRun  bool

	JDKHome string
	// Tools maps tool names to executables.
	Tools map[string]string
	// SearchPath allows tools to be found on the PATH.
	SearchPath bool

	LogFormat string
	LogLevel  string
}

// NewConfig validates cfg and fills in defaults.
func NewConfig(cfg Config) (*Config, error) {
	if strings.TrimSpace(cfg.BaseDir) == "" {
		cfg.BaseDir = "."
	}
	if cfg.Version != "" {
		if _, err := version.Parse(cfg.Version); err != nil {
			return nil, err
		}
	}
	if cfg.Layout != "" {
		if _, err := layout.Parse(cfg.Layout); err != nil {
			return nil, err
		}
	}
	if cfg.Feature < 0 {
		return nil, fmt.Errorf("feature release must not be negative, got %d", cfg.Feature)
	}
	if cfg.Workers < 0 {
		return nil, fmt.Errorf("workers must not be negative, got %d", cfg.Workers)
	}

	cfg.LogFormat = strings.ToLower(cfg.LogFormat)
	switch cfg.LogFormat {
	case "":
		cfg.LogFormat = FormatText
	case FormatText, FormatJSON:
	default:
		return nil, errors.New("invalid log-format: must be 'text' or 'json'")
	}
	cfg.LogLevel = strings.ToLower(cfg.LogLevel)
	switch cfg.LogLevel {
	case "":
		cfg.LogLevel = "info"
	case "debug", "info", "warn", "error":
	default:
		return nil, errors.New("invalid log-level: must be 'debug', 'info', 'warn', or 'error'")
	}

	tools := make(map[string]string, len(cfg.Tools))
	for name, path := range cfg.Tools {
		if name == "" || path == "" {
			return nil, fmt.Errorf("invalid tool mapping %q=%q", name, path)
		}
		tools[name] = path
	}
	cfg.Tools = tools
	return &cfg, nil
}

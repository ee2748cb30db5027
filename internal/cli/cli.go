package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/fatih/color"

	"github.com/clintrovert/lazybird/internal/config"
)

// Options holds flags shared by every command
type Options struct {
	ConfigPath string
}

// DefaultConfigPath returns $LAZYBIRD_CONFIG or the default config location
func DefaultConfigPath() string {
	if path := os.Getenv("LAZYBIRD_CONFIG"); path != "" {
		return path
	}
	return config.DefaultPath()
}

func (o *Options) load() (*config.Config, error) {
	cfg, err := config.Load(o.ConfigPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("configuration file not found: %s", o.ConfigPath)
		}
		return nil, err
	}
	return cfg, nil
}

// loadOrEmpty returns an empty config when the file does not exist yet
func (o *Options) loadOrEmpty() (*config.Config, error) {
	cfg, err := config.Load(o.ConfigPath)
	if errors.Is(err, fs.ErrNotExist) {
		return &config.Config{}, nil
	}
	return cfg, err
}

var (
	green  = color.New(color.FgGreen).SprintFunc()
	yellow = color.New(color.FgYellow).SprintFunc()
	bold   = color.New(color.Bold).SprintFunc()
)

func enabledLabel(enabled bool) string {
	if enabled {
		return green("enabled")
	}
	return yellow("disabled")
}

func orNotSet(s string) string {
	if s == "" {
		return "(not set)"
	}
	return s
}

package ui

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

const (
	DefaultAPIURL = "http://localhost:8080"
	configDir     = "taskui"
	configFile    = "config.toml"
)

// Config holds the terminal client settings.
type Config struct {
	APIURL   string `toml:"api_url"`
	Timezone string `toml:"timezone"`
	// Live subscribes to the server change feed.
	Live bool `toml:"live"`
}

// DefaultConfigPath returns the user config file location, or "" when no
// config directory is known.
func DefaultConfigPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, configDir, configFile)
}

// LoadConfig applies, in order: defaults, the TOML file at path (missing file
// is fine), then TASKUI_API_URL and TASKUI_TZ.
func LoadConfig(path string) (Config, error) {
	cfg := Config{APIURL: DefaultAPIURL, Live: true}

	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("loading config file %s: %w", path, err)
		}
	}

	if v := os.Getenv("TASKUI_API_URL"); v != "" {
		cfg.APIURL = v
	}
	if v := os.Getenv("TASKUI_TZ"); v != "" {
		cfg.Timezone = v
	}

	if _, err := cfg.Location(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Location resolves Timezone, falling back to the local zone.
func (c Config) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

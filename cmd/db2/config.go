package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/samcharles93/db2kit/internal/layout"
)

// Config is the db2kit configuration file (~/.config/db2kit/config.yaml).
// Pointer fields distinguish "not set" from zero values.
type Config struct {
	TablesDir string   `yaml:"tables_dir"`
	Layouts   []string `yaml:"layouts"`

	// Output
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`

	// Server
	ServerAddress      string `yaml:"server_address"`
	Preload            *bool  `yaml:"preload"`
	PreloadConcurrency *int64 `yaml:"preload_concurrency"`
}

func configPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "db2kit", "config.yaml")
}

// LoadConfig reads the config file. A missing file yields a zero Config; a
// file that does not parse is an error.
func LoadConfig(path string) (Config, error) {
	if path == "" {
		return Config{}, nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Config{}, nil
	}
	if err != nil {
		return Config{}, err
	}
	var c Config
	if err := yaml.Unmarshal(data, &c); err != nil {
		return Config{}, fmt.Errorf("config %s: %w", path, err)
	}
	return c, nil
}

// flagSetter is the part of *cli.Command the config overrides need.
type flagSetter interface {
	IsSet(name string) bool
}

// applyGlobalConfig applies config file defaults to the global flags that
// were not set explicitly.
func applyGlobalConfig(c flagSetter, cfg Config) {
	if cfg.TablesDir != "" && !c.IsSet("tables") {
		tablesDir = cfg.TablesDir
	}
	if len(cfg.Layouts) > 0 && !c.IsSet("layout") {
		layoutPaths = cfg.Layouts
	}
	if cfg.LogLevel != "" && !c.IsSet("log-level") {
		logLevel = cfg.LogLevel
	}
	if cfg.LogFormat != "" && !c.IsSet("log-format") {
		logFormat = cfg.LogFormat
	}
}

// applyServeConfig applies config file defaults to serve command variables.
func applyServeConfig(c flagSetter, cfg Config, addr *string, preload *bool, concurrency *int64) {
	if cfg.ServerAddress != "" && !c.IsSet("addr") {
		*addr = cfg.ServerAddress
	}
	if cfg.Preload != nil && !c.IsSet("preload") {
		*preload = *cfg.Preload
	}
	if cfg.PreloadConcurrency != nil && !c.IsSet("preload-concurrency") {
		*concurrency = *cfg.PreloadConcurrency
	}
}

// loadLayouts builds the layout catalog from the configured paths, or
// returns nil when none are configured.
func loadLayouts(paths []string) (*layout.Catalog, error) {
	if len(paths) == 0 {
		return nil, nil
	}
	return layout.Load(paths...)
}

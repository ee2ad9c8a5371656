// asynctds - UFrame asynchronous requests to THREDDS catalog publishing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/asynctds

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the paths where config files are searched in order of priority.
// The first file found will be used.
var DefaultConfigPaths = []string{
	"asynctds.yaml",
	"asynctds.yml",
	"/etc/asynctds/config.yaml",
	"/etc/asynctds/config.yml",
}

// ConfigPathEnvVar is the environment variable that can override the config file path.
const ConfigPathEnvVar = "ASYNCTDS_CONFIG"

// defaultConfig returns a Config struct with all default values.
// These defaults are applied first, then overridden by config file and env vars.
func defaultConfig() *Config {
	return &Config{
		Paths: PathsConfig{
			UFrameNCRoot: "",
			TDSNCRoot:    "",
			DataHome:     "",
			User:         "_nouser",
		},
		UFrame: UFrameConfig{
			BaseURL:           "http://localhost:12576",
			Timeout:           30 * time.Second,
			RequestsPerSecond: 5,
			MaxRetries:        5,
		},
		Reconcile: ReconcileConfig{
			NoveltyByStream: false,
		},
		Placement: PlacementConfig{
			SourceCleanup: CleanupKeep,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
			Caller: false,
		},
		Metrics: MetricsConfig{
			Textfile: "",
		},
	}
}

// LoadWithKoanf loads configuration using Koanf v2 with layered sources:
//  1. Defaults: Built-in defaults
//  2. Config File: Optional YAML config file (if exists)
//  3. Environment Variables: Override any setting
//
// Every returned error wraps ErrConfig.
func LoadWithKoanf() (*Config, error) {
	return loadFrom(findConfigFile())
}

// LoadFrom is LoadWithKoanf with an explicit config file. An empty path
// falls back to the default search.
func LoadFrom(configPath string) (*Config, error) {
	if configPath == "" {
		configPath = findConfigFile()
	}
	return loadFrom(configPath)
}

// YAML renders the resolved configuration with koanf key names.
func (c *Config) YAML() ([]byte, error) {
	k := koanf.New(".")
	if err := k.Load(structs.Provider(c, "koanf"), nil); err != nil {
		return nil, err
	}
	return k.Marshal(yaml.Parser())
}

// loadFrom performs the layered load with an explicit config file path.
// An empty path skips the file layer.
func loadFrom(configPath string) (*Config, error) {
	k := koanf.New(".")

	// Layer 1: Load defaults from struct
	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("%w: failed to load defaults: %v", ErrConfig, err)
	}

	// Layer 2: Load config file (optional)
	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: failed to load config file %s: %v", ErrConfig, configPath, err)
		}
	}

	// Layer 3: Load environment variables (highest priority)
	// ASYNC_TDS_NC_ROOT -> paths.tds_nc_root
	// LOG_LEVEL -> logging.level
	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("%w: failed to load environment variables: %v", ErrConfig, err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("%w: failed to unmarshal configuration: %v", ErrConfig, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// findConfigFile searches for a config file in the default paths.
// Returns the path to the first file found, or empty string if none found.
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}

	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// envMappings maps environment variable names (lowercased) to koanf paths.
// The ASYNC_* names are the ones operators already export for the cron jobs.
var envMappings = map[string]string{
	// Paths
	"async_uframe_nc_root": "paths.uframe_nc_root",
	"async_tds_nc_root":    "paths.tds_nc_root",
	"async_data_home":      "paths.data_home",
	"async_user":           "paths.user",

	// UFrame
	"uframe_base_url":            "uframe.base_url",
	"uframe_timeout":             "uframe.timeout",
	"uframe_requests_per_second": "uframe.requests_per_second",
	"uframe_max_retries":         "uframe.max_retries",

	// Behavior switches
	"async_novelty_by_stream": "reconcile.novelty_by_stream",
	"async_source_cleanup":    "placement.source_cleanup",

	// Logging
	"log_level":  "logging.level",
	"log_format": "logging.format",
	"log_caller": "logging.caller",

	// Metrics
	"metrics_textfile": "metrics.textfile",
}

// envTransformFunc transforms environment variable names to koanf config paths.
//
// Examples:
//   - ASYNC_DATA_HOME -> paths.data_home
//   - UFRAME_BASE_URL -> uframe.base_url
//   - LOG_FORMAT -> logging.format
func envTransformFunc(key string) string {
	if mapped, ok := envMappings[strings.ToLower(key)]; ok {
		return mapped
	}

	// For unmapped keys, return empty string to skip them
	// This prevents random environment variables from polluting config
	return ""
}

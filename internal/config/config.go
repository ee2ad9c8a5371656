// asynctds - UFrame asynchronous requests to THREDDS catalog publishing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/asynctds

package config

import (
	"path/filepath"
	"time"
)

// Config holds all asynctds configuration loaded from defaults, an optional
// YAML file and environment variables.
//
// Configuration Loading Order (Koanf v2):
//  1. Defaults: Built-in defaults for all optional settings
//  2. Config File: Optional YAML file (asynctds.yaml or ASYNCTDS_CONFIG)
//  3. Environment Variables: ASYNC_* roots and friends override everything
//
// Configuration Categories:
//
//  1. Paths: the three filesystem roots every command works against
//  2. UFrame: the data-delivery API used by prepare --update
//  3. Reconcile / Placement: behavior switches for prepare and export
//  4. Observability: logging and the metrics textfile
//
// A Config is built once in main and handed to each component; nothing below
// cmd/ reads the environment directly.
type Config struct {
	Paths     PathsConfig     `koanf:"paths"`
	UFrame    UFrameConfig    `koanf:"uframe"`
	Reconcile ReconcileConfig `koanf:"reconcile"`
	Placement PlacementConfig `koanf:"placement"`
	Logging   LoggingConfig   `koanf:"logging"`
	Metrics   MetricsConfig   `koanf:"metrics"`
}

// PathsConfig holds the filesystem roots.
type PathsConfig struct {
	// UFrameNCRoot is where UFrame writes asynchronous request products.
	// Each user gets a sub-directory; each request a <uuid> directory below it.
	// Env: ASYNC_UFRAME_NC_ROOT
	UFrameNCRoot string `koanf:"uframe_nc_root"`

	// TDSNCRoot is the root of the THREDDS NetCDF catalog tree.
	// Env: ASYNC_TDS_NC_ROOT
	TDSNCRoot string `koanf:"tds_nc_root"`

	// DataHome holds known-streams, stream-requests, stream-queue and catalogs.
	// Env: ASYNC_DATA_HOME
	DataHome string `koanf:"data_home"`

	// User is the UFrame user the requests were submitted as.
	// Env: ASYNC_USER
	// Default: _nouser
	User string `koanf:"user"`
}

// UFrameConfig holds UFrame API client settings.
type UFrameConfig struct {
	// BaseURL is the scheme://host[:port] of the UFrame server.
	// Env: UFRAME_BASE_URL
	// Default: http://localhost:12576
	BaseURL string `koanf:"base_url"`

	// Timeout bounds each metadata request.
	// Default: 30s
	Timeout time.Duration `koanf:"timeout"`

	// RequestsPerSecond limits the metadata request rate. 0 disables limiting.
	// Default: 5
	RequestsPerSecond float64 `koanf:"requests_per_second"`

	// MaxRetries is the number of retries on HTTP 429.
	// Default: 5
	MaxRetries int `koanf:"max_retries"`
}

// ReconcileConfig holds prepare behavior switches.
type ReconcileConfig struct {
	// NoveltyByStream classifies a master record as new when its sensor-stream
	// key is unknown. When false, a record is new only if its sensor is unknown.
	// Env: ASYNC_NOVELTY_BY_STREAM
	// Default: false
	NoveltyByStream bool `koanf:"novelty_by_stream"`
}

// Source cleanup modes for PlacementConfig.SourceCleanup.
const (
	CleanupKeep  = "keep"
	CleanupPrune = "prune"
	CleanupPurge = "purge"
)

// PlacementConfig holds export behavior switches.
type PlacementConfig struct {
	// SourceCleanup controls what happens to the UFrame product directory
	// after a stream is placed: keep, prune (empty directories only) or purge.
	// Env: ASYNC_SOURCE_CLEANUP
	// Default: keep
	SourceCleanup string `koanf:"source_cleanup"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	// Level is the minimum log level: trace, debug, info, warn, error.
	// Default: info
	Level string `koanf:"level"`

	// Format is the output format: json or console.
	// Default: console
	Format string `koanf:"format"`

	// Caller includes caller file and line number in logs.
	// Default: false
	Caller bool `koanf:"caller"`
}

// MetricsConfig holds metrics export settings.
type MetricsConfig struct {
	// Textfile is a path for a node_exporter textfile written at the end of
	// each command. Empty disables the export.
	// Env: METRICS_TEXTFILE
	Textfile string `koanf:"textfile"`
}

// UFrameUserRoot returns the per-user UFrame product root.
func (c *Config) UFrameUserRoot() string {
	return filepath.Join(c.Paths.UFrameNCRoot, c.Paths.User)
}

// ProductDir returns the UFrame product directory of one request.
func (c *Config) ProductDir(requestUUID string) string {
	return filepath.Join(c.UFrameUserRoot(), requestUUID)
}

// KnownStreamsDir returns the directory holding <prefix>-known-meta.csv files.
func (c *Config) KnownStreamsDir() string {
	return filepath.Join(c.Paths.DataHome, "known-streams")
}

// StreamRequestsDir returns the directory holding <prefix>-urls.csv files.
func (c *Config) StreamRequestsDir() string {
	return filepath.Join(c.Paths.DataHome, "stream-requests")
}

// StreamQueueDir returns the directory holding request queue files.
func (c *Config) StreamQueueDir() string {
	return filepath.Join(c.Paths.DataHome, "stream-queue")
}

// NCMLTemplate returns the path of the NCML aggregation template.
func (c *Config) NCMLTemplate() string {
	return filepath.Join(c.Paths.DataHome, "catalogs", "stream-agg-template.ncml")
}

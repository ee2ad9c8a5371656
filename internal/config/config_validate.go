// asynctds - UFrame asynchronous requests to THREDDS catalog publishing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/asynctds

package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/tomtom215/asynctds/internal/logging"
)

// ErrConfig marks a missing or invalid setting. Commands exit with status 1
// when they see it, before doing any work.
var ErrConfig = errors.New("configuration error")

// Validate checks enumerations and URL shape. It does not touch the filesystem;
// see ValidateRoots for that.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateUFrame(); err != nil {
		return err
	}
	if err := c.validatePlacement(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.User) == "" {
		return fmt.Errorf("%w: ASYNC_USER must not be empty", ErrConfig)
	}
	if strings.ContainsAny(c.Paths.User, `/\`) {
		return fmt.Errorf("%w: ASYNC_USER must be a single path element, got %q", ErrConfig, c.Paths.User)
	}
	return nil
}

func (c *Config) validateUFrame() error {
	if err := validateHTTPURL(c.UFrame.BaseURL, "UFRAME_BASE_URL"); err != nil {
		return fmt.Errorf("%w: %v", ErrConfig, err)
	}
	if c.UFrame.Timeout <= 0 {
		return fmt.Errorf("%w: uframe.timeout must be positive, got %v", ErrConfig, c.UFrame.Timeout)
	}
	if c.UFrame.RequestsPerSecond < 0 {
		return fmt.Errorf("%w: uframe.requests_per_second must not be negative, got %v", ErrConfig, c.UFrame.RequestsPerSecond)
	}
	if c.UFrame.MaxRetries < 0 {
		return fmt.Errorf("%w: uframe.max_retries must not be negative, got %d", ErrConfig, c.UFrame.MaxRetries)
	}
	return nil
}

func (c *Config) validatePlacement() error {
	switch c.Placement.SourceCleanup {
	case CleanupKeep, CleanupPrune, CleanupPurge:
		return nil
	default:
		return fmt.Errorf("%w: placement.source_cleanup must be keep, prune or purge, got %q", ErrConfig, c.Placement.SourceCleanup)
	}
}

func (c *Config) validateLogging() error {
	if !logging.ValidLevel(c.Logging.Level) {
		return fmt.Errorf("%w: LOG_LEVEL is not a known level, got %q", ErrConfig, c.Logging.Level)
	}
	switch c.Logging.Format {
	case "json", "console":
	default:
		return fmt.Errorf("%w: LOG_FORMAT must be json or console, got %q", ErrConfig, c.Logging.Format)
	}
	return nil
}

// validateHTTPURL validates that a URL is properly formatted for HTTP/HTTPS services.
// Validates: scheme (http/https), host present, no paths or query params.
func validateHTTPURL(rawURL, fieldName string) error {
	parsedURL, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("%s failed to parse URL: %w", fieldName, err)
	}

	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return fmt.Errorf("%s scheme must be http or https, got: %s", fieldName, parsedURL.Scheme)
	}

	if parsedURL.Host == "" {
		return fmt.Errorf("%s host is required", fieldName)
	}

	// Allow trailing slash but no other paths
	if parsedURL.Path != "" && parsedURL.Path != "/" {
		return fmt.Errorf("%s should be base URL only, remove path: %s", fieldName, parsedURL.Path)
	}

	if parsedURL.RawQuery != "" {
		return fmt.Errorf("%s should not contain query parameters, remove: ?%s", fieldName, parsedURL.RawQuery)
	}

	return nil
}

// ValidateBaseURL checks a base URL given on the command line.
func ValidateBaseURL(rawURL string) error {
	if err := validateHTTPURL(rawURL, "base URL"); err != nil {
		return fmt.Errorf("%w: %v", ErrConfig, err)
	}
	return nil
}

// requireDir checks that path is set and names an existing directory.
func requireDir(path, envName string) error {
	if path == "" {
		return fmt.Errorf("%w: %s environment variable not set", ErrConfig, envName)
	}
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("%w: %s is invalid: %s", ErrConfig, envName, path)
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: %s is not a directory: %s", ErrConfig, envName, path)
	}
	return nil
}

// RequireDataHome checks ASYNC_DATA_HOME.
func (c *Config) RequireDataHome() error {
	return requireDir(c.Paths.DataHome, "ASYNC_DATA_HOME")
}

// RequireUFrameRoot checks that ASYNC_UFRAME_NC_ROOT plus the user sub-directory exists.
func (c *Config) RequireUFrameRoot() error {
	if c.Paths.UFrameNCRoot == "" {
		return fmt.Errorf("%w: ASYNC_UFRAME_NC_ROOT environment variable not set", ErrConfig)
	}
	return requireDir(c.UFrameUserRoot(), "ASYNC_UFRAME_NC_ROOT")
}

// RequireTDSRoot checks ASYNC_TDS_NC_ROOT.
func (c *Config) RequireTDSRoot() error {
	return requireDir(c.Paths.TDSNCRoot, "ASYNC_TDS_NC_ROOT")
}

// RequireNCMLTemplate checks that the NCML aggregation template is a readable file.
func (c *Config) RequireNCMLTemplate() error {
	info, err := os.Stat(c.NCMLTemplate())
	if err != nil || info.IsDir() {
		return fmt.Errorf("%w: NCML stream agg template not found: %s", ErrConfig, c.NCMLTemplate())
	}
	return nil
}

// ValidateRoots checks that all three roots exist.
func (c *Config) ValidateRoots() error {
	if err := c.RequireUFrameRoot(); err != nil {
		return err
	}
	if err := c.RequireTDSRoot(); err != nil {
		return err
	}
	return c.RequireDataHome()
}

// asynctds - UFrame asynchronous requests to THREDDS catalog publishing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/asynctds

// Package main is the asynctds command line tool.
//
// asynctds tracks which OOI sensor streams have been requested from UFrame as
// asynchronous NetCDF products and publishes finished products into a THREDDS
// catalog tree.
//
// # Commands
//
//	prepare  reconcile a master stream list and write request URLs
//	export   place finished requests of a stream-queue file into THREDDS
//	edit     list, delete, copy or move published datasets
//	tree     print the catalog tree as JSON
//	env      print the resolved configuration
//
// # Configuration
//
// Configuration is loaded via Koanf v2 (highest priority wins):
//   - Environment variables (ASYNC_UFRAME_NC_ROOT, ASYNC_TDS_NC_ROOT, ASYNC_DATA_HOME, ...)
//   - Config file (-config, $ASYNCTDS_CONFIG, ./asynctds.yaml, /etc/asynctds/config.yaml)
//   - Built-in defaults
//
// # Exit Status
//
// 0 on success, 1 on any failure including a configuration error, 2 on bad
// usage.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/maruel/subcommands"

	"github.com/tomtom215/asynctds/internal/config"
	"github.com/tomtom215/asynctds/internal/logging"
	"github.com/tomtom215/asynctds/internal/metrics"
)

// stdout receives command output. Logs go to stderr.
var stdout io.Writer = os.Stdout

// errUsage marks a command line mistake.
var errUsage = errors.New("usage")

func getApplication() *subcommands.DefaultApplication {
	return &subcommands.DefaultApplication{
		Name:  "asynctds",
		Title: "UFrame asynchronous request to THREDDS catalog tool",
		// Keep in alphabetical order of their name.
		Commands: []*subcommands.Command{
			cmdEdit(),
			cmdEnv(),
			cmdExport(),
			subcommands.CmdHelp,
			cmdPrepare(),
			cmdTree(),
		},
	}
}

func main() {
	os.Exit(subcommands.Run(getApplication(), nil))
}

// commonRun holds the flags every command has.
type commonRun struct {
	subcommands.CommandRunBase
	configPath string
	logLevel   string
	logFormat  string
}

func (r *commonRun) registerCommonFlags() {
	r.Flags.StringVar(&r.configPath, "config", "", "Path of the YAML config file")
	r.Flags.StringVar(&r.logLevel, "log-level", "", "Override the configured log level")
	r.Flags.StringVar(&r.logFormat, "log-format", "", "Override the configured log format: json or console")
}

// loadConfig resolves the configuration and initializes logging from it.
func (r *commonRun) loadConfig() (*config.Config, error) {
	cfg, err := config.LoadFrom(r.configPath)
	if err != nil {
		return nil, err
	}
	if r.logLevel != "" {
		if !logging.ValidLevel(r.logLevel) {
			return nil, fmt.Errorf("%w: invalid -log-level %q", config.ErrConfig, r.logLevel)
		}
		cfg.Logging.Level = r.logLevel
	}
	if r.logFormat != "" {
		cfg.Logging.Format = r.logFormat
	}

	logging.Init(logging.Config{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		Caller:    cfg.Logging.Caller,
		Timestamp: true,
	})
	return cfg, nil
}

// execute runs fn with a cancelable, run-scoped context and turns its error
// into an exit status. Run metrics are recorded and exported either way.
func (r *commonRun) execute(command string, fn func(ctx context.Context, cfg *config.Config) error) int {
	cfg, err := r.loadConfig()
	if err != nil {
		return r.done(context.Background(), command, err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logging.ContextWithNewRunID(ctx)

	logging.Ctx(ctx).Debug().Str("command", command).Msg("Starting")
	start := time.Now()
	err = fn(ctx, cfg)
	metrics.RecordRun(command, time.Since(start), err)

	if werr := metrics.WriteTextfile(cfg.Metrics.Textfile); werr != nil {
		logging.Ctx(ctx).Warn().Err(werr).Str("file", cfg.Metrics.Textfile).Msg("Failed to write metrics textfile")
	}
	return r.done(ctx, command, err)
}

// done logs err and maps it to an exit status.
func (r *commonRun) done(ctx context.Context, command string, err error) int {
	if err == nil {
		return 0
	}
	log := logging.Ctx(ctx)

	switch {
	case errors.Is(err, errUsage):
		fmt.Fprintf(os.Stderr, "%s: %v\n", command, err)
		return 2
	case errors.Is(err, config.ErrConfig):
		log.Error().Err(err).Msg("Configuration error")
	case errors.Is(err, context.Canceled):
		log.Warn().Msg("Interrupted")
	default:
		log.Error().Err(err).Str("command", command).Msg("Command failed")
	}
	return 1
}

// usageErrorf builds an error that makes the command exit with status 2.
func usageErrorf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", errUsage, fmt.Sprintf(format, args...))
}

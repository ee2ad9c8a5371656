// asynctds - UFrame asynchronous requests to THREDDS catalog publishing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/asynctds

// Package logging provides centralized zerolog-based structured logging for asynctds.
//
// Every command initializes the global logger once from config.LoggingConfig and
// attaches a short run ID to the context, so the lines of one invocation can be
// picked out of a shared cron log.
//
// # Quick Start
//
//	logging.Init(logging.Config{
//	    Level:  "info",
//	    Format: "console",
//	})
//
//	ctx = logging.ContextWithNewRunID(ctx)
//	logging.Ctx(ctx).Info().Str("queue", path).Msg("Processing request queue")
//
// # Configuration
//
// Environment Variables:
//
//	LOG_LEVEL   - Minimum log level: trace, debug, info, warn, error (default: info)
//	LOG_FORMAT  - Output format: json, console (default: console)
//	LOG_CALLER  - Include caller file:line: true, false (default: false)
//
// # Structured Logging
//
// Log through Ctx wherever a run context exists and prefer fields over
// formatted messages:
//
//	logging.Ctx(ctx).Info().Str("stream", key).Int("files", n).Msg("Placed stream")
//
// # Testing
//
//	var buf bytes.Buffer
//	logging.SetLogger(zerolog.New(&buf))
package logging

// asynctds - UFrame asynchronous requests to THREDDS catalog publishing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/asynctds

/*
Package config provides layered configuration for the asynctds commands.

# Configuration Sources

Settings are loaded with koanf v2, later layers overriding earlier ones:
  - Built-in defaults (structs provider)
  - Optional YAML file: $ASYNCTDS_CONFIG, ./asynctds.yaml, /etc/asynctds/config.yaml
  - Environment variables (explicit mapping, unknown variables ignored)

# Environment Variables

Paths:
  - ASYNC_UFRAME_NC_ROOT: UFrame asynchronous product root (user sub-directory appended)
  - ASYNC_TDS_NC_ROOT: THREDDS NetCDF catalog root
  - ASYNC_DATA_HOME: known-streams, stream-requests, stream-queue and catalogs
  - ASYNC_USER: UFrame user name (default: _nouser)

UFrame:
  - UFRAME_BASE_URL: server base URL (default: http://localhost:12576)
  - UFRAME_TIMEOUT, UFRAME_REQUESTS_PER_SECOND, UFRAME_MAX_RETRIES

Behavior:
  - ASYNC_NOVELTY_BY_STREAM: classify new streams by sensor-stream key (default: false)
  - ASYNC_SOURCE_CLEANUP: keep, prune or purge (default: keep)

Observability:
  - LOG_LEVEL, LOG_FORMAT, LOG_CALLER
  - METRICS_TEXTFILE: node_exporter textfile path

# Validation

Validate runs at load time and checks enumerations and URL shape. The roots
are checked separately by ValidateRoots and the Require* methods, because each
command needs a different subset. All errors wrap ErrConfig.

# Usage

	cfg, err := config.LoadWithKoanf()
	if err != nil {
	    return err
	}
	if err := cfg.ValidateRoots(); err != nil {
	    return err
	}
*/
package config

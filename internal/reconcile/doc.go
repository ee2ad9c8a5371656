// asynctds - UFrame asynchronous requests to THREDDS catalog publishing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/asynctds

// Package reconcile decides which sensor streams need an asynchronous UFrame
// request.
//
// A master stream list (data-home/<prefix>-*.csv) is compared with the known
// streams (known-streams/<prefix>-known-meta.csv). A master record is new when
// its sensor has never been seen; with reconcile.novelty_by_stream the full
// sensor-stream key is compared instead. With update checks enabled every
// known stream's time bounds are fetched from UFrame, and a stream whose bounds
// moved is requested again with the new bounds.
//
// New and updated records are merged into the known set, which is rewritten
// atomically, and their request URLs are written one per line to
// stream-requests/<prefix>-urls.csv.
package reconcile

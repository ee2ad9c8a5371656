// asynctds - UFrame asynchronous requests to THREDDS catalog publishing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/asynctds

/*
Package maintenance edits published THREDDS datasets in bulk.

The input is a CSV with "reference designator", "stream" and "telemetry"
columns. Each row names one dataset directory below the THREDDS root, derived
with tdspath. The Editor applies a single action to every row:

  - list (default): report the files, change nothing
  - validate: only check that the directory exists
  - delete: remove the files, then prune empty parents up to the root
  - copy: copy the files to the same relative path below a location root,
    skipping files already there
  - move: copy, then remove the sources and prune. If any copy fails the
    sources are all kept and ErrPartialMove is reported.

Failures are recorded per row in RecordReport; a bad row never stops the run.
*/
package maintenance

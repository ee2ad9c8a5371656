// asynctds - UFrame asynchronous requests to THREDDS catalog publishing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/asynctds

/*
Package placement publishes finished UFrame requests into the THREDDS tree.

Each row of a stream-queue CSV is one in-flight request. Coordinator.Run walks
the rows in order and moves each one through:

	queued -> in_progress -> files_found -> placed -> complete
	                 \             \            \
	                  `-------------`------------`--> failed(reason)

  - A row whose reason starts with "Complete" was placed by an earlier run and
    is kept as is.
  - A row without a requestUUID fails with "No requestUUID created".
  - The request is done when <uframe root>/<user>/<uuid>/status.txt exists and
    its first line is exactly "complete". Otherwise the row stays "In process".
  - Product files are the .nc files naming the stream, in the product directory
    and one level of sub-directories.
  - Files are renamed from their coverage attributes and copied, never moved,
    into <tds root>/<array>/<platform>/<instrument type>/<telemetry>/<dataset id>.
    A file already present there is skipped, so re-running is safe.
  - Once a file is present the <dataset id>.ncml aggregation is written from
    the template (if absent) and the row becomes "Complete".

Unless dry-run, completed rows are merged into the paired known-streams file
and the queue is rewritten, or removed once every row is Complete.
*/
package placement

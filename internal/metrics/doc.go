// asynctds - UFrame asynchronous requests to THREDDS catalog publishing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/asynctds

/*
Package metrics provides Prometheus metrics for asynctds runs.

asynctds is a batch tool, so nothing is served over HTTP. Metrics accumulate in
the default registry during a command and are written once at the end with
WriteTextfile, where node_exporter's textfile collector can pick them up:

	metrics:
	  textfile: /var/lib/node_exporter/textfile/asynctds.prom

# Available Metrics

Reconciliation:
  - asynctds_reconcile_records_total{source}
  - asynctds_reconcile_streams_total{kind}: new or updated streams
  - asynctds_reconcile_skipped_total{reason}
  - asynctds_request_urls_total

UFrame client:
  - asynctds_uframe_requests_total{result}
  - asynctds_uframe_request_duration_seconds (histogram)
  - circuit_breaker_state{name}, circuit_breaker_requests_total{name,result},
    circuit_breaker_consecutive_failures{name},
    circuit_breaker_state_transitions_total{name,from_state,to_state}

Placement:
  - asynctds_placement_entries_total{reason}
  - asynctds_placement_files_total{result}
  - asynctds_ncml_written_total

Maintenance:
  - asynctds_maintenance_files_total{action,result}
  - asynctds_pruned_directories_total

Runs:
  - asynctds_run_duration_seconds{command}
  - asynctds_run_last_success_timestamp{command}

# Thread Safety

All metrics are safe for concurrent use.
*/
package metrics

// asynctds - UFrame asynchronous requests to THREDDS catalog publishing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/asynctds

package metrics

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Reconciliation Metrics
	ReconcileRecords = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "asynctds_reconcile_records_total",
			Help: "Total number of records read by the reconciliation engine",
		},
		[]string{"source"}, // "master", "known"
	)

	ReconcileStreams = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "asynctds_reconcile_streams_total",
			Help: "Total number of streams selected for request",
		},
		[]string{"kind"}, // "new", "updated"
	)

	ReconcileSkipped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "asynctds_reconcile_skipped_total",
			Help: "Total number of streams skipped during reconciliation",
		},
		[]string{"reason"}, // "transient_network", "stream_not_found", "invalid_record", "bad_timestamp"
	)

	RequestURLsBuilt = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "asynctds_request_urls_total",
			Help: "Total number of UFrame request URLs generated",
		},
	)

	// UFrame Client Metrics
	UFrameRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "asynctds_uframe_requests_total",
			Help: "Total number of UFrame metadata requests",
		},
		[]string{"result"}, // "success", "error", "rate_limited"
	)

	UFrameRequestDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "asynctds_uframe_request_duration_seconds",
			Help:    "Duration of UFrame metadata requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	UFrameCacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "asynctds_uframe_metadata_cache_total",
			Help: "Total number of sensor metadata cache lookups",
		},
		[]string{"result"}, // "hit", "miss"
	)

	// Placement Metrics
	PlacementEntries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "asynctds_placement_entries_total",
			Help: "Total number of queue entries processed, by resulting reason",
		},
		[]string{"reason"},
	)

	PlacementFiles = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "asynctds_placement_files_total",
			Help: "Total number of NetCDF files handled during placement",
		},
		[]string{"result"}, // "copied", "exists", "error"
	)

	NCMLWritten = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "asynctds_ncml_written_total",
			Help: "Total number of NCML aggregation files written",
		},
	)

	// Maintenance Metrics
	MaintenanceActions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "asynctds_maintenance_files_total",
			Help: "Total number of files acted on by the catalog editor",
		},
		[]string{"action", "result"}, // action: list, delete, copy, move
	)

	PrunedDirectories = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "asynctds_pruned_directories_total",
			Help: "Total number of empty directories removed",
		},
	)

	// Run Metrics
	RunDuration = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "asynctds_run_duration_seconds",
			Help: "Duration of the most recent run of each command",
		},
		[]string{"command"},
	)

	RunLastSuccess = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "asynctds_run_last_success_timestamp",
			Help: "Unix timestamp of the last successful run of each command",
		},
		[]string{"command"},
	)

	// Circuit Breaker Metrics
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_requests_total",
			Help: "Total number of requests through circuit breaker",
		},
		[]string{"name", "result"}, // result: "success", "failure", "rejected"
	)

	CircuitBreakerConsecutiveFailures = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_consecutive_failures",
			Help: "Current number of consecutive failures",
		},
		[]string{"name"},
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_state_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"name", "from_state", "to_state"},
	)
)

// RecordUFrameRequest records a metadata request and its latency.
func RecordUFrameRequest(duration time.Duration, err error) {
	UFrameRequestDuration.Observe(duration.Seconds())
	if err != nil {
		UFrameRequests.WithLabelValues("error").Inc()
		return
	}
	UFrameRequests.WithLabelValues("success").Inc()
}

// RecordPlacementEntry counts a queue entry by the reason it ended with.
func RecordPlacementEntry(reason string) {
	if reason == "" {
		reason = "unknown"
	}
	PlacementEntries.WithLabelValues(reason).Inc()
}

// RecordMaintenance counts one file operation of the catalog editor.
func RecordMaintenance(action string, err error) {
	result := "success"
	if err != nil {
		result = "error"
	}
	MaintenanceActions.WithLabelValues(action, result).Inc()
}

// RecordRun records the outcome of a CLI command.
func RecordRun(command string, duration time.Duration, err error) {
	RunDuration.WithLabelValues(command).Set(duration.Seconds())
	if err == nil {
		RunLastSuccess.WithLabelValues(command).Set(float64(time.Now().Unix()))
	}
}

// WriteTextfile writes every registered metric to path in the Prometheus text
// format, for collection by node_exporter's textfile collector. An empty path
// is a no-op.
func WriteTextfile(path string) error {
	return writeTextfile(path, prometheus.DefaultGatherer)
}

func writeTextfile(path string, g prometheus.Gatherer) error {
	if path == "" {
		return nil
	}
	if dir := filepath.Dir(path); dir != "" {
		if _, err := os.Stat(dir); errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("metrics textfile directory %s does not exist", dir)
		}
	}
	if err := prometheus.WriteToTextfile(path, g); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}

// asynctds - UFrame asynchronous requests to THREDDS catalog publishing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/asynctds

package placement

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/goccy/go-json"

	"github.com/tomtom215/asynctds/internal/config"
	"github.com/tomtom215/asynctds/internal/csvio"
	"github.com/tomtom215/asynctds/internal/fsutil"
	"github.com/tomtom215/asynctds/internal/logging"
	"github.com/tomtom215/asynctds/internal/metrics"
	"github.com/tomtom215/asynctds/internal/models"
	"github.com/tomtom215/asynctds/internal/ncfile"
	"github.com/tomtom215/asynctds/internal/reconcile"
	"github.com/tomtom215/asynctds/internal/tdspath"
)

// State is where a queue entry ended up after one pass.
type State int

const (
	StateQueued State = iota
	StateInProgress
	StateFilesFound
	StatePlaced
	StateComplete
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateQueued:
		return "queued"
	case StateInProgress:
		return "in_progress"
	case StateFilesFound:
		return "files_found"
	case StatePlaced:
		return "placed"
	case StateComplete:
		return "complete"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// MarshalJSON renders the state name.
func (s State) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// File actions recorded in a FileResult.
const (
	ActionCopied  = "copied"
	ActionExists  = "exists"
	ActionPlanned = "planned"
	ActionError   = "error"
)

// FileResult describes one product file.
type FileResult struct {
	Source      string `json:"source"`
	Destination string `json:"destination,omitempty"`
	Action      string `json:"action"`
	Error       string `json:"error,omitempty"`
}

// EntryResult describes one queue entry.
type EntryResult struct {
	Stream         string       `json:"stream"`
	RequestUUID    string       `json:"request_uuid,omitempty"`
	State          State        `json:"state"`
	Reason         string       `json:"reason"`
	Destination    string       `json:"tds_destination,omitempty"`
	NCML           string       `json:"ncml,omitempty"`
	Files          []FileResult `json:"files,omitempty"`
	AlreadyDone    bool         `json:"already_done,omitempty"`
	Error          string       `json:"error,omitempty"`
	RemovedSources []string     `json:"removed_sources,omitempty"`
}

// Report is the outcome of one pass over a queue file.
type Report struct {
	Queue        string        `json:"queue"`
	DryRun       bool          `json:"dry_run"`
	Entries      []EntryResult `json:"entries"`
	QueueDeleted bool          `json:"queue_deleted"`
	KnownStreams string        `json:"known_streams,omitempty"`
}

// Complete counts the entries that ended Complete.
func (r *Report) Complete() int {
	n := 0
	for i := range r.Entries {
		if r.Entries[i].State == StateComplete {
			n++
		}
	}
	return n
}

// WriteJSON writes the report as indented JSON.
func (r *Report) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}

// Options controls a Coordinator.
type Options struct {
	// DryRun makes every read and decision but writes nothing.
	DryRun bool
	// Cleanup is one of config.CleanupKeep, CleanupPrune, CleanupPurge.
	Cleanup string
}

// Coordinator moves finished UFrame products into the THREDDS tree.
type Coordinator struct {
	cfg      *config.Config
	reader   ncfile.HeaderReader
	opts     Options
	copyFile func(src, dst string) error

	template     string
	templateRead bool
}

// NewCoordinator creates a coordinator reading headers with reader.
func NewCoordinator(cfg *config.Config, reader ncfile.HeaderReader, opts Options) *Coordinator {
	if opts.Cleanup == "" {
		opts.Cleanup = config.CleanupKeep
	}
	return &Coordinator{
		cfg:      cfg,
		reader:   reader,
		opts:     opts,
		copyFile: fsutil.CopyFile,
	}
}

// Run processes every entry of the queue file in order, then (unless dry-run)
// merges completed entries into the paired known-streams file and rewrites the
// queue. A queue whose entries are all Complete is deleted.
func (c *Coordinator) Run(ctx context.Context, queuePath string) (*Report, error) {
	log := logging.Ctx(ctx)
	report := &Report{Queue: queuePath, DryRun: c.opts.DryRun}

	table, err := csvio.ReadFile(queuePath)
	if err != nil {
		return nil, err
	}
	if len(table.Records) == 0 {
		log.Info().Str("queue", queuePath).Msg("Queue is empty")
		return report, nil
	}
	if err := table.RequireAny(models.ColInstrument, models.ColSensor, models.ColRefDes); err != nil {
		return nil, fmt.Errorf("%s: %w", queuePath, err)
	}
	if err := table.Require(models.ColStream, models.ColTelemetry); err != nil {
		return nil, fmt.Errorf("%s: %w", queuePath, err)
	}

	entries := table.Records
	for i := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		entries[i].EnsureColumn(models.ColTDSDestination)
		entries[i].EnsureColumn(models.ColReason)

		res := c.processEntry(ctx, &entries[i])
		metrics.RecordPlacementEntry(res.Reason)
		report.Entries = append(report.Entries, res)
	}

	if c.opts.DryRun {
		log.Info().Int("entries", len(entries)).Int("complete", report.Complete()).Msg("DRY RUN keeping stream request file")
		return report, nil
	}

	known, err := c.mergeKnown(ctx, queuePath, entries)
	if err != nil {
		return report, err
	}
	report.KnownStreams = known

	deleted, err := c.rewriteQueue(ctx, queuePath, entries)
	if err != nil {
		return report, err
	}
	report.QueueDeleted = deleted
	return report, nil
}

func (c *Coordinator) processEntry(ctx context.Context, rec *models.StreamRecord) EntryResult {
	log := logging.Ctx(ctx).With().Str("stream", rec.Key()).Logger()
	res := EntryResult{Stream: rec.Key(), RequestUUID: rec.RequestUUID, State: StateQueued}

	finish := func(state State, reason string) EntryResult {
		res.State = state
		rec.Reason = reason
		res.Reason = reason
		return res
	}

	if rec.IsComplete() {
		log.Info().Str("tds_destination", rec.TDSDestination).Msg("Request already complete and available on THREDDS")
		res.AlreadyDone = true
		res.Destination = rec.TDSDestination
		return finish(StateComplete, rec.Reason)
	}

	if rec.RequestUUID == "" {
		log.Warn().Str("request_url", rec.RequestURL).Msg("Request failed (no requestUUID)")
		return finish(StateFailed, models.ReasonNoRequestUUID)
	}

	productDir := c.cfg.ProductDir(rec.RequestUUID)
	if err := checkMarker(productDir); err != nil {
		if !errors.Is(err, ErrNotFoundYet) {
			log.Error().Err(err).Msg("Cannot read completion marker")
			res.Error = err.Error()
		} else {
			log.Info().Str("request", rec.RequestUUID).Msg("Request not completed yet")
		}
		return finish(StateInProgress, models.ReasonInProcess)
	}

	files, err := findProductFiles(productDir, rec.Stream)
	if err != nil {
		log.Error().Err(err).Str("dir", productDir).Msg("Cannot list product directory")
		res.Error = err.Error()
	}
	if len(files) == 0 {
		log.Warn().Str("dir", productDir).Msg("No NetCDF files found")
		return finish(StateFailed, models.ReasonNoFilesFound)
	}
	res.State = StateFilesFound

	tp, err := tdspath.Derive(rec.Sensor, rec.Stream, rec.Telemetry)
	if err != nil {
		log.Warn().Err(err).Msg("Cannot determine stream destination")
		res.Error = err.Error()
		return finish(StateFailed, models.ReasonNoDestination)
	}
	destDir := tp.Join(c.cfg.Paths.TDSNCRoot)
	res.Destination = destDir
	log.Info().Str("source", productDir).Str("destination", destDir).Int("files", len(files)).Msg("Placing stream")

	if c.opts.DryRun {
		if !fsutil.IsDir(destDir) {
			log.Info().Str("dir", destDir).Msg("DRY RUN skipping creation of stream destination")
		}
	} else if err := os.MkdirAll(destDir, fsutil.DirPerm); err != nil {
		log.Error().Err(err).Msg("Cannot create stream destination")
		res.Error = err.Error()
		return finish(StateFailed, models.ReasonNoFilesPlaced)
	}

	present, fileErrors := 0, 0
	for _, src := range files {
		fr := c.placeFile(ctx, src, destDir)
		switch fr.Action {
		case ActionCopied, ActionExists, ActionPlanned:
			present++
		default:
			fileErrors++
		}
		res.Files = append(res.Files, fr)
	}

	if present == 0 {
		return finish(StateFailed, models.ReasonNoFilesPlaced)
	}
	res.State = StatePlaced

	ncmlPath, err := c.writeNCML(ctx, tp, destDir)
	if err != nil {
		log.Error().Err(err).Msg("Cannot write NCML aggregation file")
		res.Error = err.Error()
		return finish(StatePlaced, rec.Reason)
	}
	res.NCML = ncmlPath

	rec.SetTDSDestination(destDir)
	res = finish(StateComplete, models.ReasonComplete)

	if fileErrors == 0 {
		res.RemovedSources = c.cleanup(ctx, productDir)
	}
	return res
}

// placeFile renames one product file and copies it into destDir.
func (c *Coordinator) placeFile(ctx context.Context, src, destDir string) FileResult {
	log := logging.Ctx(ctx)
	fr := FileResult{Source: src}

	name, err := ncfile.Rename(c.reader, src)
	if err != nil {
		log.Warn().Err(err).Str("file", src).Msg("Failed to timestamp UFrame NetCDF file")
		fr.Action = ActionError
		fr.Error = err.Error()
		metrics.PlacementFiles.WithLabelValues("error").Inc()
		return fr
	}
	fr.Destination = filepath.Join(destDir, name)

	if fsutil.Exists(fr.Destination) {
		log.Info().Str("file", fr.Destination).Msg("THREDDS NetCDF file exists, skipping")
		fr.Action = ActionExists
		metrics.PlacementFiles.WithLabelValues("exists").Inc()
		return fr
	}
	if c.opts.DryRun {
		log.Info().Str("source", src).Str("file", fr.Destination).Msg("DRY RUN would copy")
		fr.Action = ActionPlanned
		return fr
	}

	err = c.copyFile(src, fr.Destination)
	switch {
	case err == nil:
		log.Info().Str("source", src).Str("file", fr.Destination).Msg("Copied UFrame NetCDF file")
		fr.Action = ActionCopied
		metrics.PlacementFiles.WithLabelValues("copied").Inc()
	case errors.Is(err, fsutil.ErrDestinationExists):
		log.Info().Str("file", fr.Destination).Msg("THREDDS NetCDF file exists, skipping")
		fr.Action = ActionExists
		metrics.PlacementFiles.WithLabelValues("exists").Inc()
	default:
		log.Error().Err(err).Str("source", src).Msg("Failed to copy UFrame NetCDF file")
		fr.Action = ActionError
		fr.Error = err.Error()
		metrics.PlacementFiles.WithLabelValues("error").Inc()
	}
	return fr
}

// writeNCML writes <dataset id>.ncml into destDir unless it exists.
func (c *Coordinator) writeNCML(ctx context.Context, tp tdspath.Path, destDir string) (string, error) {
	log := logging.Ctx(ctx)
	path := filepath.Join(destDir, tp.DatasetID+".ncml")

	if fsutil.Exists(path) {
		return path, nil
	}
	if c.opts.DryRun {
		log.Info().Str("file", path).Msg("DRY RUN skipping NCML aggregation file creation")
		return path, nil
	}

	tmpl, err := c.loadTemplate()
	if err != nil {
		return "", err
	}
	body := FillTemplate(tmpl, tp.DatasetID, destDir)
	if err := fsutil.WriteFileAtomic(path, func(w io.Writer) error {
		_, err := io.WriteString(w, body)
		return err
	}); err != nil {
		return "", err
	}

	log.Info().Str("file", path).Msg("Wrote NCML aggregation file")
	metrics.NCMLWritten.Inc()
	return path, nil
}

func (c *Coordinator) loadTemplate() (string, error) {
	if c.templateRead {
		return c.template, nil
	}
	data, err := os.ReadFile(c.cfg.NCMLTemplate())
	if err != nil {
		return "", fmt.Errorf("%w: NCML stream agg template: %v", config.ErrConfig, err)
	}
	c.template = string(data)
	c.templateRead = true
	return c.template, nil
}

// cleanup applies the configured source cleanup to a placed product directory.
func (c *Coordinator) cleanup(ctx context.Context, productDir string) []string {
	log := logging.Ctx(ctx)

	switch c.opts.Cleanup {
	case config.CleanupPrune:
		if c.opts.DryRun {
			log.Info().Str("dir", productDir).Msg("DRY RUN skipping prune of UFrame product directory")
			return nil
		}
		removed, err := pruneTree(productDir)
		if err != nil {
			log.Warn().Err(err).Str("dir", productDir).Msg("Failed to prune UFrame product directory")
		}
		metrics.PrunedDirectories.Add(float64(len(removed)))
		return removed

	case config.CleanupPurge:
		if c.opts.DryRun {
			log.Info().Str("dir", productDir).Msg("DRY RUN skipping delete of UFrame product directory")
			return nil
		}
		log.Info().Str("dir", productDir).Msg("Deleting UFrame product directory")
		if err := os.RemoveAll(productDir); err != nil {
			log.Warn().Err(err).Str("dir", productDir).Msg("Failed to delete UFrame product directory")
			return nil
		}
		return []string{productDir}
	}
	return nil
}

// mergeKnown folds completed entries into known-streams/<prefix>-known-meta.csv.
func (c *Coordinator) mergeKnown(ctx context.Context, queuePath string, entries []models.StreamRecord) (string, error) {
	var done []models.StreamRecord
	for i := range entries {
		e := &entries[i]
		if !e.IsComplete() {
			continue
		}
		done = append(done, models.NewStreamRecord(e.Sensor, e.Stream, e.Telemetry, e.Method, e.BeginTime, e.EndTime))
	}
	if len(done) == 0 {
		return "", nil
	}

	path := filepath.Join(c.cfg.KnownStreamsDir(), reconcile.FilePrefix(queuePath)+"-known-meta.csv")
	known, err := csvio.ReadFileIfExists(path)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(path), fsutil.DirPerm); err != nil {
		return "", err
	}

	merged := reconcile.Merge(known.Records, done)
	if err := csvio.WriteFile(path, merged); err != nil {
		return "", fmt.Errorf("save known streams: %w", err)
	}
	logging.Ctx(ctx).Info().Str("file", path).Int("streams", len(merged)).Msg("Saved known streams")
	return path, nil
}

// rewriteQueue replaces the queue with the updated entries, or deletes it when
// nothing is left to do.
func (c *Coordinator) rewriteQueue(ctx context.Context, queuePath string, entries []models.StreamRecord) (bool, error) {
	log := logging.Ctx(ctx)

	allDone := true
	for i := range entries {
		if !entries[i].IsComplete() {
			allDone = false
			break
		}
	}

	if allDone {
		if err := os.Remove(queuePath); err != nil {
			return false, fmt.Errorf("remove request queue file: %w", err)
		}
		log.Info().Str("queue", queuePath).Msg("All requests complete, removed queue file")
		return true, nil
	}

	if err := csvio.WriteFile(queuePath, entries); err != nil {
		return false, fmt.Errorf("save updated requests: %w", err)
	}
	log.Info().Str("queue", queuePath).Msg("Saved updated requests")
	return false, nil
}

// asynctds - UFrame asynchronous requests to THREDDS catalog publishing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/asynctds

package maintenance

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/tomtom215/asynctds/internal/config"
	"github.com/tomtom215/asynctds/internal/csvio"
	"github.com/tomtom215/asynctds/internal/fsutil"
	"github.com/tomtom215/asynctds/internal/logging"
	"github.com/tomtom215/asynctds/internal/metrics"
	"github.com/tomtom215/asynctds/internal/models"
	"github.com/tomtom215/asynctds/internal/tdspath"
)

// Action is the operation applied to every dataset directory of the input.
type Action string

const (
	ActionList     Action = "list"
	ActionValidate Action = "validate"
	ActionDelete   Action = "delete"
	ActionCopy     Action = "copy"
	ActionMove     Action = "move"
)

// ErrPartialMove means at least one file of a dataset could not be copied
// during a move. All sources are kept.
var ErrPartialMove = errors.New("move incomplete, sources kept")

// ErrNoStreams is returned for an input file without records.
var ErrNoStreams = errors.New("no streams parsed from csv file")

// Options configures an Editor.
type Options struct {
	Action Action
	// Location is the destination root for copy and move.
	Location string
}

// FileResult is the outcome for one file of a dataset.
type FileResult struct {
	Path        string `json:"path"`
	Destination string `json:"destination,omitempty"`
	Result      string `json:"result"`
	Error       string `json:"error,omitempty"`
}

// Per-file results.
const (
	ResultListed  = "listed"
	ResultDeleted = "deleted"
	ResultCopied  = "copied"
	ResultExists  = "exists"
	ResultMoved   = "moved"
	ResultError   = "error"
)

// RecordReport is the outcome for one input record.
type RecordReport struct {
	Stream  string       `json:"stream"`
	Path    string       `json:"path,omitempty"`
	Exists  bool         `json:"exists"`
	Files   []FileResult `json:"files,omitempty"`
	Pruned  []string     `json:"pruned,omitempty"`
	Error   string       `json:"error,omitempty"`
	Skipped bool         `json:"skipped,omitempty"`

	err error
}

// Err returns the record's failure, if any.
func (r *RecordReport) Err() error { return r.err }

// Editor applies one Action to the dataset directories named by a CSV file.
type Editor struct {
	tdsRoot  string
	opts     Options
	copyFile func(src, dst string) error
	remove   func(path string) error
}

// NewEditor checks the roots needed by the action. Copy and move need an
// existing destination root.
func NewEditor(tdsRoot string, opts Options) (*Editor, error) {
	if opts.Action == "" {
		opts.Action = ActionList
	}
	switch opts.Action {
	case ActionList, ActionValidate, ActionDelete:
	case ActionCopy, ActionMove:
		if opts.Location == "" {
			return nil, fmt.Errorf("%w: %s requires a destination location", config.ErrConfig, opts.Action)
		}
		if !fsutil.IsDir(opts.Location) {
			return nil, fmt.Errorf("%w: destination location %s does not exist", config.ErrConfig, opts.Location)
		}
	default:
		return nil, fmt.Errorf("unknown action %q", opts.Action)
	}

	if tdsRoot == "" || !fsutil.IsDir(tdsRoot) {
		return nil, fmt.Errorf("%w: THREDDS root %q does not exist", config.ErrConfig, tdsRoot)
	}

	return &Editor{
		tdsRoot:  tdsRoot,
		opts:     opts,
		copyFile: fsutil.CopyFile,
		remove:   os.Remove,
	}, nil
}

// Run applies the editor's action to every record of csvPath, in order.
// Per-record failures are reported, not returned.
func (e *Editor) Run(ctx context.Context, csvPath string) ([]RecordReport, error) {
	table, err := csvio.ReadFile(csvPath)
	if err != nil {
		return nil, err
	}
	if len(table.Records) == 0 {
		return nil, fmt.Errorf("%s: %w", csvPath, ErrNoStreams)
	}
	if err := table.Require(models.ColRefDes, models.ColStream, models.ColTelemetry); err != nil {
		return nil, fmt.Errorf("%s: %w", csvPath, err)
	}

	reports := make([]RecordReport, 0, len(table.Records))
	for i := range table.Records {
		if err := ctx.Err(); err != nil {
			return reports, err
		}
		reports = append(reports, e.processRecord(ctx, &table.Records[i]))
	}
	return reports, nil
}

func (e *Editor) processRecord(ctx context.Context, rec *models.StreamRecord) RecordReport {
	log := logging.Ctx(ctx).With().Str("stream", rec.Key()).Str("action", string(e.opts.Action)).Logger()
	rep := RecordReport{Stream: rec.Key()}

	fail := func(err error) RecordReport {
		rep.err = err
		rep.Error = err.Error()
		return rep
	}

	tp, err := tdspath.Derive(rec.Sensor, rec.Stream, rec.Telemetry)
	if err != nil {
		log.Error().Err(err).Msg("Cannot determine dataset location")
		return fail(err)
	}
	rel := tp.String()
	dir := tp.Join(e.tdsRoot)
	rep.Path = dir

	if !fsutil.IsDir(dir) {
		log.Warn().Str("path", dir).Msg("Dataset location does not exist")
		rep.Skipped = true
		return rep
	}
	rep.Exists = true
	if e.opts.Action == ActionValidate {
		log.Info().Str("path", dir).Msg("Dataset location exists")
		return rep
	}

	files, err := datasetFiles(dir)
	if err != nil {
		log.Error().Err(err).Str("path", dir).Msg("Failed to list dataset")
		return fail(err)
	}
	if len(files) == 0 {
		log.Info().Str("path", dir).Msg("No files found")
		return rep
	}

	switch e.opts.Action {
	case ActionDelete:
		rep.Files = e.deleteFiles(ctx, files)
		rep.Pruned = e.prune(ctx, rel)
	case ActionCopy:
		rep.Files = e.copyFiles(ctx, files, tp.Join(e.opts.Location))
	case ActionMove:
		rep.Files = e.copyFiles(ctx, files, tp.Join(e.opts.Location))
		if failed := countErrors(rep.Files); failed > 0 {
			err := fmt.Errorf("%w: %d of %d file(s) failed to copy from %s", ErrPartialMove, failed, len(files), dir)
			log.Error().Err(err).Msg("Keeping all source files")
			return fail(err)
		}
		e.removeSources(ctx, rep.Files)
		if failed := countErrors(rep.Files); failed > 0 {
			return fail(fmt.Errorf("%d source file(s) not removed from %s", failed, dir))
		}
		rep.Pruned = e.prune(ctx, rel)
	default:
		for _, f := range files {
			log.Info().Str("file", f).Msg("Dataset file")
			rep.Files = append(rep.Files, FileResult{Path: f, Result: ResultListed})
			metrics.RecordMaintenance(string(ActionList), nil)
		}
	}

	if n := countErrors(rep.Files); n > 0 && rep.err == nil {
		return fail(fmt.Errorf("%d file(s) failed in %s", n, dir))
	}
	return rep
}

func (e *Editor) deleteFiles(ctx context.Context, files []string) []FileResult {
	log := logging.Ctx(ctx)
	results := make([]FileResult, 0, len(files))
	for _, f := range files {
		err := e.remove(f)
		metrics.RecordMaintenance(string(ActionDelete), err)
		if err != nil {
			log.Error().Err(err).Str("file", f).Msg("Failed to delete file")
			results = append(results, FileResult{Path: f, Result: ResultError, Error: err.Error()})
			continue
		}
		log.Info().Str("file", f).Msg("Deleted file")
		results = append(results, FileResult{Path: f, Result: ResultDeleted})
	}
	return results
}

// copyFiles copies files into destDir. A destination file that already exists
// counts as transferred.
func (e *Editor) copyFiles(ctx context.Context, files []string, destDir string) []FileResult {
	log := logging.Ctx(ctx)
	action := string(e.opts.Action)

	if err := os.MkdirAll(destDir, fsutil.DirPerm); err != nil {
		log.Error().Err(err).Str("path", destDir).Msg("Failed to create destination")
		results := make([]FileResult, 0, len(files))
		for _, f := range files {
			metrics.RecordMaintenance(action, err)
			results = append(results, FileResult{Path: f, Result: ResultError, Error: err.Error()})
		}
		return results
	}

	results := make([]FileResult, 0, len(files))
	for _, f := range files {
		fr := FileResult{Path: f, Destination: filepath.Join(destDir, filepath.Base(f))}
		err := e.copyFile(f, fr.Destination)
		switch {
		case err == nil:
			log.Info().Str("file", f).Str("destination", fr.Destination).Msg("Copied file")
			fr.Result = ResultCopied
			metrics.RecordMaintenance(action, nil)
		case errors.Is(err, fsutil.ErrDestinationExists):
			log.Info().Str("destination", fr.Destination).Msg("Destination file exists, skipping")
			fr.Result = ResultExists
			metrics.RecordMaintenance(action, nil)
		default:
			log.Error().Err(err).Str("file", f).Msg("Failed to copy file")
			fr.Result = ResultError
			fr.Error = err.Error()
			metrics.RecordMaintenance(action, err)
		}
		results = append(results, fr)
	}
	return results
}

// removeSources deletes the sources of a fully copied dataset.
func (e *Editor) removeSources(ctx context.Context, results []FileResult) {
	log := logging.Ctx(ctx)
	for i := range results {
		if err := e.remove(results[i].Path); err != nil {
			log.Error().Err(err).Str("file", results[i].Path).Msg("Failed to remove moved file")
			results[i].Result = ResultError
			results[i].Error = err.Error()
			continue
		}
		results[i].Result = ResultMoved
	}
}

func (e *Editor) prune(ctx context.Context, rel string) []string {
	log := logging.Ctx(ctx)
	removed, err := fsutil.PruneEmptyDirs(e.tdsRoot, rel)
	metrics.PrunedDirectories.Add(float64(len(removed)))
	for _, d := range removed {
		log.Info().Str("path", d).Msg("Removed empty directory")
	}
	if err != nil {
		log.Warn().Err(err).Str("path", rel).Msg("Failed to prune directories")
	}
	return removed
}

// datasetFiles returns the regular files in dir that have an extension,
// sorted by name.
func datasetFiles(dir string) ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "*.*"))
	if err != nil {
		return nil, err
	}
	files := matches[:0]
	for _, m := range matches {
		info, err := os.Lstat(m)
		if err != nil {
			return nil, err
		}
		if info.Mode().IsRegular() {
			files = append(files, m)
		}
	}
	return files, nil
}

func countErrors(results []FileResult) int {
	n := 0
	for _, r := range results {
		if r.Result == ResultError {
			n++
		}
	}
	return n
}

// asynctds - UFrame asynchronous requests to THREDDS catalog publishing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/asynctds

package reconcile

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/tomtom215/asynctds/internal/config"
	"github.com/tomtom215/asynctds/internal/csvio"
	"github.com/tomtom215/asynctds/internal/fsutil"
	"github.com/tomtom215/asynctds/internal/logging"
	"github.com/tomtom215/asynctds/internal/models"
)

// ErrNoStreams is returned when the master file holds no records.
var ErrNoStreams = errors.New("no streams found")

// Runner drives a prepare run: read the master and known files, reconcile,
// persist the merged known set and write the request URLs.
type Runner struct {
	cfg    *config.Config
	engine *Engine

	// DryRun logs URLs instead of writing any file.
	DryRun       bool
	CheckUpdates bool
	// User overrides cfg.Paths.User in request URLs when non-empty.
	User string
}

// NewRunner creates a prepare driver.
func NewRunner(cfg *config.Config, engine *Engine) *Runner {
	return &Runner{cfg: cfg, engine: engine}
}

// FilePrefix returns the part of a master file name before the first "-".
// A name without "-" yields the name without its extension.
func FilePrefix(masterPath string) string {
	name := filepath.Base(masterPath)
	if i := strings.Index(name, "-"); i > 0 {
		return name[:i]
	}
	return strings.TrimSuffix(name, filepath.Ext(name))
}

// KnownStreamsFile returns the known-streams file paired with a master file.
func (r *Runner) KnownStreamsFile(masterPath string) string {
	return filepath.Join(r.cfg.KnownStreamsDir(), FilePrefix(masterPath)+"-known-meta.csv")
}

// RequestsFile returns the request URL file paired with a master file.
func (r *Runner) RequestsFile(masterPath string) string {
	return filepath.Join(r.cfg.StreamRequestsDir(), FilePrefix(masterPath)+"-urls.csv")
}

// Run reconciles one master file.
func (r *Runner) Run(ctx context.Context, masterPath string) (*Result, error) {
	log := logging.Ctx(ctx)

	if !r.DryRun {
		if err := r.ensureDirs(); err != nil {
			return nil, err
		}
	}

	log.Info().Str("file", masterPath).Msg("Reading master stream file")
	master, err := csvio.ReadFile(masterPath)
	if err != nil {
		return nil, err
	}
	if len(master.Records) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoStreams, masterPath)
	}
	if err := master.RequireAny(models.ColSensor, models.ColInstrument, models.ColRefDes); err != nil {
		return nil, fmt.Errorf("%s: %w", masterPath, err)
	}
	// Checked before the known file is touched.
	if err := master.Require(models.ColStream, models.ColMethod, models.ColBeginTime, models.ColEndTime); err != nil {
		return nil, fmt.Errorf("%s: %w", masterPath, err)
	}

	knownPath := r.KnownStreamsFile(masterPath)
	var known []models.StreamRecord
	if fsutil.Exists(knownPath) {
		log.Info().Str("file", knownPath).Msg("Reading known streams file")
		t, err := csvio.ReadFile(knownPath)
		if err != nil {
			return nil, err
		}
		known = t.Records
	} else {
		log.Info().Str("file", knownPath).Msg("No known streams file, processing all master streams")
	}

	user := r.User
	if user == "" {
		user = r.cfg.Paths.User
	}

	res, err := r.engine.Reconcile(ctx, master.Records, known, Options{
		CheckUpdates:    r.CheckUpdates,
		NoveltyByStream: r.cfg.Reconcile.NoveltyByStream,
		User:            user,
	})
	if err != nil {
		return nil, err
	}

	log.Info().
		Int("new", res.Stats.New).
		Int("updated", res.Stats.Updated).
		Int("skipped", res.Stats.TransientErrors+res.Stats.StreamNotFound+res.Stats.BadTimestamps+res.Stats.InvalidRecords).
		Msg("Reconciled streams")

	if r.DryRun {
		for _, u := range res.URLs {
			log.Info().Str("url", u).Msg("DRY RUN async query")
		}
		return res, nil
	}

	if len(res.Merged) > 0 {
		log.Info().Str("file", knownPath).Int("streams", len(res.Merged)).Msg("Saving known streams")
		if err := csvio.WriteFile(knownPath, res.Merged); err != nil {
			return nil, fmt.Errorf("save known streams: %w", err)
		}
	}

	if len(res.URLs) > 0 {
		reqPath := r.RequestsFile(masterPath)
		log.Info().Str("file", reqPath).Int("urls", len(res.URLs)).Msg("Writing asynchronous queries")
		if err := csvio.WriteLines(reqPath, res.URLs); err != nil {
			return nil, fmt.Errorf("write request urls: %w", err)
		}
	}

	return res, nil
}

func (r *Runner) ensureDirs() error {
	for _, dir := range []string{r.cfg.KnownStreamsDir(), r.cfg.StreamRequestsDir(), r.cfg.StreamQueueDir()} {
		if err := os.MkdirAll(dir, fsutil.DirPerm); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}
	return nil
}

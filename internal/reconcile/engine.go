// asynctds - UFrame asynchronous requests to THREDDS catalog publishing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/asynctds

package reconcile

import (
	"context"
	"errors"
	"strings"

	"github.com/tomtom215/asynctds/internal/logging"
	"github.com/tomtom215/asynctds/internal/metrics"
	"github.com/tomtom215/asynctds/internal/models"
	"github.com/tomtom215/asynctds/internal/uframe"
	"github.com/tomtom215/asynctds/internal/validation"
)

// MetadataFetcher returns the UFrame "times" entries for a record's sensor.
type MetadataFetcher interface {
	FetchTimes(ctx context.Context, rec *models.StreamRecord) ([]models.StreamTimes, error)
}

// URLBuilder builds the asynchronous request URL for a stream.
type URLBuilder interface {
	BuildRequestURL(rec *models.StreamRecord, user string) (string, error)
}

// Options controls a reconciliation pass.
type Options struct {
	// CheckUpdates asks UFrame whether known streams have new time bounds.
	CheckUpdates bool
	// NoveltyByStream treats a master record as new when its sensor-stream
	// key is unknown. By default only the sensor is compared.
	NoveltyByStream bool
	// User is appended to request URLs when non-empty.
	User string
}

// Stats counts what a pass saw.
type Stats struct {
	MasterRecords   int
	KnownRecords    int
	New             int
	Updated         int
	TransientErrors int
	StreamNotFound  int
	BadTimestamps   int
	InvalidRecords  int
}

// Result is the outcome of Engine.Reconcile.
type Result struct {
	// NewOrUpdated holds new master records followed by updated known records.
	NewOrUpdated []models.StreamRecord
	// Merged is the known set with NewOrUpdated merged in.
	Merged []models.StreamRecord
	// URLs are the request URLs for the valid NewOrUpdated records, in order.
	URLs  []string
	Stats Stats
}

// Engine diffs a master stream list against the known streams.
type Engine struct {
	fetcher MetadataFetcher
	urls    URLBuilder
}

// NewEngine creates an engine. fetcher may be nil when updates are never checked.
func NewEngine(fetcher MetadataFetcher, urls URLBuilder) *Engine {
	return &Engine{fetcher: fetcher, urls: urls}
}

// Reconcile finds new and updated streams, merges them into known and builds
// their request URLs. A failed metadata lookup skips that record only; the
// returned error is non-nil only when ctx is done.
func (e *Engine) Reconcile(ctx context.Context, master, known []models.StreamRecord, opts Options) (*Result, error) {
	log := logging.Ctx(ctx)
	res := &Result{}
	res.Stats.MasterRecords = len(master)
	res.Stats.KnownRecords = len(known)

	if opts.NoveltyByStream {
		log.Info().Msg("Novelty keyed on sensor and stream")
	}

	for _, rec := range findNew(master, known, opts.NoveltyByStream) {
		log.Info().Str("stream", rec.Key()).Msg("New stream")
		res.NewOrUpdated = append(res.NewOrUpdated, rec)
		res.Stats.New++
	}

	if opts.CheckUpdates && len(known) > 0 {
		if e.fetcher == nil {
			return nil, errors.New("update check requested without a metadata fetcher")
		}
		log.Info().Int("known", len(known)).Msg("Checking for updates to existing streams")

		updated, err := e.findUpdated(ctx, known, &res.Stats)
		if err != nil {
			return nil, err
		}
		res.NewOrUpdated = append(res.NewOrUpdated, updated...)
	}

	res.Merged = Merge(known, res.NewOrUpdated)

	urls, invalid := BuildRequests(ctx, e.urls, res.NewOrUpdated, opts.User)
	res.URLs = urls
	res.Stats.InvalidRecords += invalid

	recordStats(&res.Stats, len(res.URLs))
	return res, nil
}

// findNew returns copies of the master records whose sensor (or full key, with
// byStream) is absent from known.
func findNew(master, known []models.StreamRecord, byStream bool) []models.StreamRecord {
	id := func(r *models.StreamRecord) string {
		if byStream {
			return r.Key()
		}
		return r.Sensor
	}

	seen := make(map[string]struct{}, len(known))
	for i := range known {
		seen[id(&known[i])] = struct{}{}
	}

	var out []models.StreamRecord
	for i := range master {
		if _, ok := seen[id(&master[i])]; ok {
			continue
		}
		out = append(out, master[i].Clone())
	}
	return out
}

func (e *Engine) findUpdated(ctx context.Context, known []models.StreamRecord, stats *Stats) ([]models.StreamRecord, error) {
	log := logging.Ctx(ctx)
	var updated []models.StreamRecord

	for i := range known {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rec := &known[i]

		times, err := e.fetcher.FetchTimes(ctx, rec)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			log.Warn().Err(err).Str("stream", rec.Key()).Msg("Metadata lookup failed, skipping")
			if errors.Is(err, uframe.ErrTransientNetwork) {
				stats.TransientErrors++
				metrics.ReconcileSkipped.WithLabelValues("transient_network").Inc()
			} else {
				stats.InvalidRecords++
				metrics.ReconcileSkipped.WithLabelValues("invalid_record").Inc()
			}
			continue
		}

		current, err := uframe.FindStream(times, rec.Stream)
		if err != nil {
			log.Warn().Str("sensor", rec.Sensor).Str("stream", rec.Stream).Msg("Stream not found")
			stats.StreamNotFound++
			metrics.ReconcileSkipped.WithLabelValues("stream_not_found").Inc()
			continue
		}

		changed, err := timesDiffer(rec, &current)
		if err != nil {
			log.Warn().Err(err).Str("stream", rec.Key()).Msg("Cannot compare stream times, skipping")
			stats.BadTimestamps++
			metrics.ReconcileSkipped.WithLabelValues("bad_timestamp").Inc()
			continue
		}
		if !changed {
			continue
		}

		log.Info().
			Str("stream", rec.Key()).
			Str("begin", current.BeginTime).
			Str("end", current.EndTime).
			Msg("Stream updated")

		u := rec.Clone()
		u.BeginTime = current.BeginTime
		u.EndTime = current.EndTime
		updated = append(updated, u)
		stats.Updated++
	}

	return updated, nil
}

// timesDiffer compares begin and end as instants, not strings.
func timesDiffer(rec *models.StreamRecord, cur *models.StreamTimes) (bool, error) {
	pairs := [][2]string{{rec.BeginTime, cur.BeginTime}, {rec.EndTime, cur.EndTime}}
	for _, p := range pairs {
		a, err := models.ParseTimestamp(p[0])
		if err != nil {
			return false, err
		}
		b, err := models.ParseTimestamp(p[1])
		if err != nil {
			return false, err
		}
		if !a.Equal(b) {
			return true, nil
		}
	}
	return false, nil
}

// Merge returns known with updates applied: a record whose key is already
// present replaces it in place, others are appended in order. Neither input
// is modified.
func Merge(known, updates []models.StreamRecord) []models.StreamRecord {
	merged := make([]models.StreamRecord, 0, len(known)+len(updates))
	index := make(map[string]int, len(known)+len(updates))

	for i := range known {
		merged = append(merged, known[i].Clone())
		if _, ok := index[known[i].Key()]; !ok {
			index[known[i].Key()] = len(merged) - 1
		}
	}
	for i := range updates {
		key := updates[i].Key()
		if at, ok := index[key]; ok {
			merged[at] = updates[i].Clone()
			continue
		}
		merged = append(merged, updates[i].Clone())
		index[key] = len(merged) - 1
	}
	return merged
}

// requestFields are the columns a request URL is built from.
type requestFields struct {
	Stream    string `csv:"stream" validate:"required"`
	BeginTime string `csv:"beginTime" validate:"required"`
	EndTime   string `csv:"endTime" validate:"required"`
	Sensor    string `csv:"sensor" validate:"required,refdes"`
	Method    string `csv:"method" validate:"required"`
}

// BuildRequests returns request URLs for records, skipping (and counting)
// records that lack a required field.
func BuildRequests(ctx context.Context, b URLBuilder, records []models.StreamRecord, user string) ([]string, int) {
	log := logging.Ctx(ctx)
	var (
		urls    []string
		invalid int
	)

	for i := range records {
		rec := &records[i]
		fields := requestFields{
			Stream:    strings.TrimSpace(rec.Stream),
			BeginTime: strings.TrimSpace(rec.BeginTime),
			EndTime:   strings.TrimSpace(rec.EndTime),
			Sensor:    strings.TrimSpace(rec.Sensor),
			Method:    strings.TrimSpace(rec.Method),
		}
		if verr := validation.ValidateStruct(&fields); verr != nil {
			log.Warn().
				Str("stream", rec.Key()).
				Strs("fields", verr.Fields()).
				Msg("Stream metadata is missing required columns, skipping")
			invalid++
			metrics.ReconcileSkipped.WithLabelValues("invalid_record").Inc()
			continue
		}

		u, err := b.BuildRequestURL(rec, user)
		if err != nil {
			log.Warn().Err(err).Str("stream", rec.Key()).Msg("Cannot build request URL, skipping")
			invalid++
			metrics.ReconcileSkipped.WithLabelValues("invalid_record").Inc()
			continue
		}
		urls = append(urls, u)
	}
	return urls, invalid
}

func recordStats(s *Stats, urls int) {
	metrics.ReconcileRecords.WithLabelValues("master").Add(float64(s.MasterRecords))
	metrics.ReconcileRecords.WithLabelValues("known").Add(float64(s.KnownRecords))
	metrics.ReconcileStreams.WithLabelValues("new").Add(float64(s.New))
	metrics.ReconcileStreams.WithLabelValues("updated").Add(float64(s.Updated))
	metrics.RequestURLsBuilt.Add(float64(urls))
}

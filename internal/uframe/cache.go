// asynctds - UFrame asynchronous requests to THREDDS catalog publishing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/asynctds

package uframe

import (
	"context"
	"time"

	"github.com/tomtom215/asynctds/internal/cache"
	"github.com/tomtom215/asynctds/internal/metrics"
	"github.com/tomtom215/asynctds/internal/models"
)

// CachedFetcher remembers the metadata times of each sensor for ttl. The
// metadata endpoint returns every stream of a sensor, so known streams that
// share a sensor cost one lookup. Failures are not cached.
type CachedFetcher struct {
	next  timesFetcher
	cache *cache.LRU[[]models.StreamTimes]
}

// NewCachedFetcher wraps next. Zero capacity or ttl take the cache defaults.
func NewCachedFetcher(next timesFetcher, capacity int, ttl time.Duration) *CachedFetcher {
	return &CachedFetcher{
		next:  next,
		cache: cache.NewLRU[[]models.StreamTimes](capacity, ttl),
	}
}

// FetchTimes implements reconcile.MetadataFetcher.
func (f *CachedFetcher) FetchTimes(ctx context.Context, rec *models.StreamRecord) ([]models.StreamTimes, error) {
	if times, ok := f.cache.Get(rec.Sensor); ok {
		metrics.UFrameCacheLookups.WithLabelValues("hit").Inc()
		return times, nil
	}
	metrics.UFrameCacheLookups.WithLabelValues("miss").Inc()

	times, err := f.next.FetchTimes(ctx, rec)
	if err != nil {
		return nil, err
	}
	f.cache.Add(rec.Sensor, times)
	return times, nil
}

// Stats returns the cache counters.
func (f *CachedFetcher) Stats() cache.Stats {
	return f.cache.Stats()
}

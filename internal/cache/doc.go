// asynctds - UFrame asynchronous requests to THREDDS catalog publishing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/asynctds

// Package cache provides an in-memory LRU cache with TTL expiry.
//
// It backs uframe.CachedFetcher: UFrame answers a metadata request with the
// times of every stream of a sensor, so one lookup serves all of that
// sensor's known streams during a prepare -update run.
//
//	c := cache.NewLRU[[]models.StreamTimes](1024, 10*time.Minute)
//	c.Add(sensor, times)
//	times, ok := c.Get(sensor)
package cache

// asynctds - UFrame asynchronous requests to THREDDS catalog publishing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/asynctds

// Package uframe builds UFrame sensor inventory URLs and fetches sensor
// metadata.
//
// Client.BuildRequestURL produces the asynchronous NetCDF request for a stream:
//
//	{base}/sensor/inv/{subsite}/{node}/{port}-{instrument}/{method}/{stream}
//	    ?beginDT=..&endDT=..&limit=-1&execDPA=true
//	    &format=application/netcdf&include_provenance=true[&user=..]
//
// Client.FetchTimes GETs {base}/sensor/inv/{subsite}/{node}/{port}-{instrument}/metadata
// and returns its "times" array. Lookups are rate limited with
// golang.org/x/time/rate and retried with backoff on HTTP 429. BreakerFetcher
// adds a sony/gobreaker circuit breaker in front of any fetcher.
package uframe

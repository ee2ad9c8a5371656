// asynctds - UFrame asynchronous requests to THREDDS catalog publishing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/asynctds

package uframe

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"golang.org/x/time/rate"

	"github.com/tomtom215/asynctds/internal/config"
	"github.com/tomtom215/asynctds/internal/logging"
	"github.com/tomtom215/asynctds/internal/metrics"
	"github.com/tomtom215/asynctds/internal/models"
	"github.com/tomtom215/asynctds/internal/tdspath"
)

// inventoryPath is appended to the configured host to reach the sensor inventory.
const inventoryPath = "/sensor/inv"

// maxErrorBodySize limits how much of an error response is kept for diagnostics.
const maxErrorBodySize = 64 * 1024 // 64KB

var (
	// ErrTransientNetwork marks a metadata lookup that failed for reasons a
	// later run may not hit: connection errors, non-200 statuses, open breaker.
	ErrTransientNetwork = errors.New("uframe metadata request failed")

	// ErrStreamNotFound is returned when a sensor's metadata lacks the stream.
	ErrStreamNotFound = errors.New("stream not found in sensor metadata")

	// ErrMalformedResponse is returned when the metadata body is not the expected JSON.
	ErrMalformedResponse = errors.New("malformed uframe metadata response")
)

// readBodyForError reads at most maxErrorBodySize bytes of r.
func readBodyForError(r io.Reader) []byte {
	body, err := io.ReadAll(io.LimitReader(r, maxErrorBodySize))
	if err != nil {
		return []byte("(failed to read response body)")
	}
	if len(body) == maxErrorBodySize {
		return append(body, []byte("\n... (truncated)")...)
	}
	return body
}

// Client talks to the UFrame sensor inventory.
//
// Request URLs are only built, never sent: the asynchronous request itself is
// issued by an external dispatcher. Metadata lookups are sent, rate limited,
// with exponential backoff on HTTP 429.
type Client struct {
	baseURL        string
	client         *http.Client
	limiter        *rate.Limiter
	maxRetries     int
	retryBaseDelay time.Duration
}

// NewClient creates a client for the inventory under cfg.BaseURL.
func NewClient(cfg config.UFrameConfig) *Client {
	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL:        strings.TrimRight(cfg.BaseURL, "/") + inventoryPath,
		client:         &http.Client{Timeout: timeout},
		limiter:        rate.NewLimiter(limit, 1),
		maxRetries:     cfg.MaxRetries,
		retryBaseDelay: time.Second,
	}
}

// BaseURL returns the inventory root all URLs are built under.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// BuildRequestURL returns the asynchronous NetCDF request URL for a stream.
// The user parameter is appended when user is non-empty.
func (c *Client) BuildRequestURL(rec *models.StreamRecord, user string) (string, error) {
	d, err := tdspath.ParseDesignator(rec.Sensor)
	if err != nil {
		return "", err
	}

	u := fmt.Sprintf("%s/%s/%s/%s-%s/%s/%s?beginDT=%s&endDT=%s&limit=-1&execDPA=true&format=application/netcdf&include_provenance=true",
		c.baseURL, d.Subsite, d.Node, d.Port, d.Instrument,
		rec.Method, rec.Stream, rec.BeginTime, rec.EndTime)
	if user != "" {
		u += "&user=" + user
	}
	return u, nil
}

// BuildMetadataURL returns the metadata URL for the record's sensor.
func (c *Client) BuildMetadataURL(rec *models.StreamRecord) (string, error) {
	d, err := tdspath.ParseDesignator(rec.Sensor)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s/%s/%s/%s-%s/metadata", c.baseURL, d.Subsite, d.Node, d.Port, d.Instrument), nil
}

// FetchTimes returns the "times" array of the record's sensor metadata.
// Network failures and non-200 responses wrap ErrTransientNetwork.
func (c *Client) FetchTimes(ctx context.Context, rec *models.StreamRecord) ([]models.StreamTimes, error) {
	metaURL, err := c.BuildMetadataURL(rec)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	times, err := c.fetchTimes(ctx, metaURL)
	metrics.RecordUFrameRequest(time.Since(start), err)
	if err != nil {
		return nil, err
	}

	logging.Ctx(ctx).Debug().
		Str("url", metaURL).
		Int("streams", len(times)).
		Msg("Fetched sensor metadata")
	return times, nil
}

func (c *Client) fetchTimes(ctx context.Context, metaURL string) ([]models.StreamTimes, error) {
	resp, err := c.doRequestWithRateLimit(ctx, metaURL)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: %s: %v", ErrTransientNetwork, metaURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body := readBodyForError(resp.Body)
		return nil, fmt.Errorf("%w: %s: status %d: %s", ErrTransientNetwork, metaURL, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var meta models.SensorMetadata
	if err := json.NewDecoder(resp.Body).Decode(&meta); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformedResponse, metaURL, err)
	}
	return meta.Times, nil
}

// doRequestWithRateLimit performs a GET, waiting on the client's limiter before
// each attempt. HTTP 429 is retried with exponential backoff (1s, 2s, 4s...)
// unless the server sends Retry-After.
func (c *Client) doRequestWithRateLimit(ctx context.Context, reqURL string) (*http.Response, error) {
	var lastErr error

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, http.NoBody)
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Accept", "application/json")

		resp, err := c.client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("HTTP request failed: %w", err)
		}

		if resp.StatusCode != http.StatusTooManyRequests {
			return resp, nil
		}

		_ = resp.Body.Close()
		metrics.UFrameRequests.WithLabelValues("rate_limited").Inc()

		if attempt == c.maxRetries {
			lastErr = fmt.Errorf("rate limit exceeded after %d retries (HTTP 429)", c.maxRetries)
			break
		}

		delay := c.retryBaseDelay * time.Duration(1<<uint(attempt))
		if retryAfter := resp.Header.Get("Retry-After"); retryAfter != "" {
			if seconds, err := time.ParseDuration(retryAfter + "s"); err == nil {
				delay = seconds
			}
		}

		logging.Ctx(ctx).Warn().
			Int("attempt", attempt+1).
			Dur("delay", delay).
			Msg("UFrame rate limited, backing off")

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	return nil, lastErr
}

// FindStream returns the entry for stream in times.
func FindStream(times []models.StreamTimes, stream string) (models.StreamTimes, error) {
	for _, t := range times {
		if t.Stream == stream {
			return t, nil
		}
	}
	return models.StreamTimes{}, fmt.Errorf("%w: %s", ErrStreamNotFound, stream)
}

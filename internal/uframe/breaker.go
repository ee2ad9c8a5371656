// asynctds - UFrame asynchronous requests to THREDDS catalog publishing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/asynctds

package uframe

import (
	"context"
	"errors"
	"fmt"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/asynctds/internal/logging"
	"github.com/tomtom215/asynctds/internal/metrics"
	"github.com/tomtom215/asynctds/internal/models"
)

// timesFetcher is the call BreakerFetcher and CachedFetcher wrap.
type timesFetcher interface {
	FetchTimes(ctx context.Context, rec *models.StreamRecord) ([]models.StreamTimes, error)
}

// BreakerFetcher wraps a metadata fetcher with a circuit breaker so that an
// unreachable UFrame host costs one timeout per few records instead of one
// per record. A rejected call wraps ErrTransientNetwork like any other
// network failure, so callers skip the record and move on.
//
// The breaker uses real time (via sony/gobreaker) for its timeout. Tests of
// record handling should use the wrapped fetcher directly.
type BreakerFetcher struct {
	next timesFetcher
	cb   *gobreaker.CircuitBreaker[interface{}]
	name string
}

// BreakerSettings tunes NewBreakerFetcher. Zero values take defaults.
type BreakerSettings struct {
	// ConsecutiveFailures opens the circuit. Default 5.
	ConsecutiveFailures uint32
	// Timeout is how long the circuit stays open. Default 30s.
	Timeout time.Duration
}

// NewBreakerFetcher wraps next.
func NewBreakerFetcher(next timesFetcher, s BreakerSettings) *BreakerFetcher {
	const cbName = "uframe-metadata"

	if s.ConsecutiveFailures == 0 {
		s.ConsecutiveFailures = 5
	}
	if s.Timeout <= 0 {
		s.Timeout = 30 * time.Second
	}

	metrics.CircuitBreakerState.WithLabelValues(cbName).Set(0)
	metrics.CircuitBreakerConsecutiveFailures.WithLabelValues(cbName).Set(0)

	threshold := s.ConsecutiveFailures
	cb := gobreaker.NewCircuitBreaker[interface{}](gobreaker.Settings{
		Name:        cbName,
		MaxRequests: 1,
		Timeout:     s.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			trip := counts.ConsecutiveFailures >= threshold
			if trip {
				logging.Warn().Uint32("consecutive_failures", counts.ConsecutiveFailures).Msg("[CIRCUIT BREAKER] Opening circuit")
			}
			return trip
		},
		// A missing stream or bad body is the server answering; it says
		// nothing about reachability.
		IsSuccessful: func(err error) bool {
			return err == nil || !errors.Is(err, ErrTransientNetwork)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			fromStr := stateToString(from)
			toStr := stateToString(to)

			logging.Info().Str("from", fromStr).Str("to", toStr).Msg("[CIRCUIT BREAKER] State transition")

			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateToFloat(to))
			metrics.CircuitBreakerTransitions.WithLabelValues(name, fromStr, toStr).Inc()
			if to == gobreaker.StateClosed {
				metrics.CircuitBreakerConsecutiveFailures.WithLabelValues(name).Set(0)
			}
		},
	})

	return &BreakerFetcher{next: next, cb: cb, name: cbName}
}

// FetchTimes calls the wrapped fetcher unless the circuit is open.
func (b *BreakerFetcher) FetchTimes(ctx context.Context, rec *models.StreamRecord) ([]models.StreamTimes, error) {
	result, err := b.cb.Execute(func() (interface{}, error) {
		return b.next.FetchTimes(ctx, rec)
	})

	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			metrics.CircuitBreakerRequests.WithLabelValues(b.name, "rejected").Inc()
			return nil, fmt.Errorf("%w: %s: %v", ErrTransientNetwork, rec.Sensor, err)
		}
		metrics.CircuitBreakerRequests.WithLabelValues(b.name, "failure").Inc()
		metrics.CircuitBreakerConsecutiveFailures.WithLabelValues(b.name).Set(float64(b.cb.Counts().ConsecutiveFailures))
		return nil, err
	}

	metrics.CircuitBreakerRequests.WithLabelValues(b.name, "success").Inc()
	metrics.CircuitBreakerConsecutiveFailures.WithLabelValues(b.name).Set(0)

	times, ok := result.([]models.StreamTimes)
	if !ok && result != nil {
		return nil, fmt.Errorf("circuit breaker: unexpected result type %T", result)
	}
	return times, nil
}

// State returns the breaker state name.
func (b *BreakerFetcher) State() string {
	return stateToString(b.cb.State())
}

// stateToFloat converts circuit breaker state to numeric value for metrics
func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}

func stateToString(state gobreaker.State) string {
	switch state {
	case gobreaker.StateClosed:
		return "closed"
	case gobreaker.StateHalfOpen:
		return "half-open"
	case gobreaker.StateOpen:
		return "open"
	default:
		return "unknown"
	}
}

// asynctds - UFrame asynchronous requests to THREDDS catalog publishing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/asynctds

package models

import (
	"fmt"
	"strings"
	"time"
)

// Request queue reasons.
const (
	ReasonInProcess     = "In process"
	ReasonComplete      = "Complete"
	ReasonNoRequestUUID = "No requestUUID created"
	ReasonNoFilesFound  = "No NetCDF files found"
	ReasonNoDestination = "Cannot determine stream destination"
	ReasonNoFilesPlaced = "No NetCDF files placed"
)

// IsComplete reports whether a queue entry was already placed by an earlier run.
func (r *StreamRecord) IsComplete() bool {
	return strings.HasPrefix(r.Reason, ReasonComplete)
}

// StreamTimes is one entry of the UFrame sensor metadata "times" array.
type StreamTimes struct {
	Sensor    string `json:"sensor,omitempty"`
	Stream    string `json:"stream"`
	Method    string `json:"method"`
	BeginTime string `json:"beginTime"`
	EndTime   string `json:"endTime"`
}

// SensorMetadata is the body of a UFrame .../metadata response.
type SensorMetadata struct {
	Times []StreamTimes `json:"times"`
}

// timestampLayouts are tried in order by ParseTimestamp.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04Z07:00",
	"2006-01-02T15:04",
	"2006-01-02",
}

// ParseTimestamp parses the ISO-8601 variants UFrame emits. Timestamps without
// a zone are taken as UTC.
func ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}

// SameInstant reports whether two timestamp strings name the same instant.
// Unparseable values are compared as strings.
func SameInstant(a, b string) bool {
	ta, errA := ParseTimestamp(a)
	tb, errB := ParseTimestamp(b)
	if errA != nil || errB != nil {
		return strings.TrimSpace(a) == strings.TrimSpace(b)
	}
	return ta.Equal(tb)
}

// asynctds - UFrame asynchronous requests to THREDDS catalog publishing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/asynctds

package models

import (
	"strings"
)

// Column names as written by the tools. Lookup is always case-insensitive.
const (
	ColSensor         = "sensor"
	ColInstrument     = "instrument"
	ColRefDes         = "reference designator"
	ColStream         = "stream"
	ColTelemetry      = "telemetry"
	ColMethod         = "method"
	ColBeginTime      = "beginTime"
	ColEndTime        = "endTime"
	ColRequestUUID    = "requestUUID"
	ColRequestURL     = "request_url"
	ColReason         = "reason"
	ColTDSDestination = "tds_destination"
)

// DefaultColumns is the header used for records that were not read from a file.
var DefaultColumns = []string{ColSensor, ColStream, ColTelemetry, ColMethod, ColBeginTime, ColEndTime}

type field int

const (
	fieldExtra field = iota
	fieldSensor
	fieldStream
	fieldTelemetry
	fieldMethod
	fieldBeginTime
	fieldEndTime
	fieldRequestUUID
	fieldRequestURL
	fieldReason
	fieldTDSDestination
)

// fieldByColumn maps lowercased column names to typed fields.
var fieldByColumn = map[string]field{
	"sensor":               fieldSensor,
	"instrument":           fieldSensor,
	"reference designator": fieldSensor,
	"stream":               fieldStream,
	"telemetry":            fieldTelemetry,
	"method":               fieldMethod,
	"begintime":            fieldBeginTime,
	"endtime":              fieldEndTime,
	"requestuuid":          fieldRequestUUID,
	"request_url":          fieldRequestURL,
	"reason":               fieldReason,
	"tds_destination":      fieldTDSDestination,
}

type column struct {
	name  string
	field field
}

// StreamRecord is one row of sensor-stream metadata.
//
// Sensor is a 4-token reference designator such as CP01CNSM-RID27-04-VELPTA000.
// The request fields (RequestUUID, RequestURL, Reason, TDSDestination) are only
// present on request queue entries.
type StreamRecord struct {
	Sensor         string
	Stream         string
	Telemetry      string
	Method         string
	BeginTime      string
	EndTime        string
	RequestUUID    string
	RequestURL     string
	Reason         string
	TDSDestination string

	columns []column
	extra   map[string]string
}

// NewStreamRecord builds a record with the default column layout.
func NewStreamRecord(sensor, stream, telemetry, method, beginTime, endTime string) StreamRecord {
	return StreamRecord{
		Sensor:    sensor,
		Stream:    stream,
		Telemetry: telemetry,
		Method:    method,
		BeginTime: beginTime,
		EndTime:   endTime,
	}
}

// RecordFromRow maps a CSV row onto header positionally. Short rows are padded
// with empty values; cells beyond the header are dropped.
//
// When more than one sensor alias column is present, the first one feeds Sensor
// and the others are kept as extra columns.
func RecordFromRow(header, row []string) StreamRecord {
	r := StreamRecord{columns: make([]column, 0, len(header))}
	sensorBound := false

	for i, name := range header {
		value := ""
		if i < len(row) {
			value = row[i]
		}

		f := fieldByColumn[strings.ToLower(strings.TrimSpace(name))]
		if f == fieldSensor {
			if sensorBound {
				f = fieldExtra
			}
			sensorBound = true
		}

		r.columns = append(r.columns, column{name: name, field: f})
		r.setField(f, name, value)
	}

	return r
}

// Key returns the sensor-stream identity used for dedup and merge.
func (r *StreamRecord) Key() string {
	return r.Sensor + "-" + r.Stream
}

// Columns returns the record's header in order.
func (r *StreamRecord) Columns() []string {
	if len(r.columns) == 0 {
		return append([]string(nil), DefaultColumns...)
	}
	names := make([]string, len(r.columns))
	for i, c := range r.columns {
		names[i] = c.name
	}
	return names
}

// HasColumn reports whether the record carries a column, ignoring case.
// Records without a stored layout report the default columns.
func (r *StreamRecord) HasColumn(name string) bool {
	for _, c := range r.Columns() {
		if strings.EqualFold(c, name) {
			return true
		}
	}
	return false
}

// Get returns the value of a column, ignoring case.
func (r *StreamRecord) Get(name string) (string, bool) {
	lower := strings.ToLower(strings.TrimSpace(name))
	for _, c := range r.columns {
		if strings.ToLower(c.name) == lower {
			return r.getField(c.field, c.name), true
		}
	}
	if len(r.columns) == 0 {
		for _, c := range DefaultColumns {
			if strings.ToLower(c) == lower {
				return r.getField(fieldByColumn[lower], c), true
			}
		}
	}
	return "", false
}

// Set assigns a column value, appending the column when the record lacks it.
func (r *StreamRecord) Set(name, value string) {
	r.EnsureColumn(name)
	lower := strings.ToLower(strings.TrimSpace(name))
	for _, c := range r.columns {
		if strings.ToLower(c.name) == lower {
			r.setField(c.field, c.name, value)
			return
		}
	}
}

// EnsureColumn appends a column to the record's layout if it is missing.
func (r *StreamRecord) EnsureColumn(name string) {
	if len(r.columns) == 0 {
		for _, c := range DefaultColumns {
			r.columns = append(r.columns, column{name: c, field: fieldByColumn[strings.ToLower(c)]})
		}
	}
	lower := strings.ToLower(strings.TrimSpace(name))
	for _, c := range r.columns {
		if strings.ToLower(c.name) == lower {
			return
		}
	}

	f := fieldByColumn[lower]
	if f == fieldSensor {
		for _, c := range r.columns {
			if c.field == fieldSensor {
				f = fieldExtra
				break
			}
		}
	}
	r.columns = append(r.columns, column{name: name, field: f})
}

// SetTDSDestination records where the stream was placed.
func (r *StreamRecord) SetTDSDestination(path string) {
	r.EnsureColumn(ColTDSDestination)
	r.TDSDestination = path
}

// Row renders the record against header. Columns the record lacks are empty.
func (r *StreamRecord) Row(header []string) []string {
	row := make([]string, len(header))
	for i, name := range header {
		if v, ok := r.Get(name); ok {
			row[i] = v
		}
	}
	return row
}

// Clone returns a deep copy.
func (r *StreamRecord) Clone() StreamRecord {
	c := *r
	if r.columns != nil {
		c.columns = append([]column(nil), r.columns...)
	}
	if r.extra != nil {
		c.extra = make(map[string]string, len(r.extra))
		for k, v := range r.extra {
			c.extra[k] = v
		}
	}
	return c
}

func (r *StreamRecord) getField(f field, name string) string {
	switch f {
	case fieldSensor:
		return r.Sensor
	case fieldStream:
		return r.Stream
	case fieldTelemetry:
		return r.Telemetry
	case fieldMethod:
		return r.Method
	case fieldBeginTime:
		return r.BeginTime
	case fieldEndTime:
		return r.EndTime
	case fieldRequestUUID:
		return r.RequestUUID
	case fieldRequestURL:
		return r.RequestURL
	case fieldReason:
		return r.Reason
	case fieldTDSDestination:
		return r.TDSDestination
	default:
		return r.extra[strings.ToLower(name)]
	}
}

func (r *StreamRecord) setField(f field, name, value string) {
	switch f {
	case fieldSensor:
		r.Sensor = value
	case fieldStream:
		r.Stream = value
	case fieldTelemetry:
		r.Telemetry = value
	case fieldMethod:
		r.Method = value
	case fieldBeginTime:
		r.BeginTime = value
	case fieldEndTime:
		r.EndTime = value
	case fieldRequestUUID:
		r.RequestUUID = value
	case fieldRequestURL:
		r.RequestURL = value
	case fieldReason:
		r.Reason = value
	case fieldTDSDestination:
		r.TDSDestination = value
	default:
		if r.extra == nil {
			r.extra = make(map[string]string)
		}
		r.extra[strings.ToLower(name)] = value
	}
}

// asynctds - UFrame asynchronous requests to THREDDS catalog publishing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/asynctds

// Package tdspath derives the canonical THREDDS catalog path of a sensor stream.
//
// A stream identified by reference designator, stream name and telemetry lives at
//
//	<ArrayName>/<Platform>/<InstrumentType>/<Telemetry>/<Sensor>-<Stream>-<Telemetry>
//
// where ArrayName comes from the first two characters of the designator,
// Platform is designator token 0 and InstrumentType is tokens 2 and 3 joined
// by "-". Derivation is pure: it never touches the filesystem.
package tdspath

import (
	"errors"
	"fmt"
	"path"
	"path/filepath"
	"sort"
	"strings"
)

var (
	// ErrMalformedDesignator is returned when the reference designator does not
	// have exactly four non-empty tokens, or a path segment would be empty.
	ErrMalformedDesignator = errors.New("malformed reference designator")

	// ErrUnknownArray is returned when the array code is not in the array table.
	ErrUnknownArray = errors.New("unknown array code")
)

// arrays is the single array table, shared by ingestion and maintenance.
var arrays = map[string]string{
	"CP": "Coastal_Pioneer",
	"CE": "Coastal_Endurance",
	"GP": "Global_Station_Papa",
	"GI": "Global_Irminger_Sea",
	"GA": "Global_Argentine_Basin",
	"GS": "Global_Southern_Ocean",
	"RS": "Cabled_Array",
	"SS": "Shore Station", // with a space, as published on disk
}

// ArrayName returns the directory name of a two-letter array code.
func ArrayName(code string) (string, bool) {
	name, ok := arrays[code]
	return name, ok
}

// ArrayCodes returns all known array codes, sorted.
func ArrayCodes() []string {
	codes := make([]string, 0, len(arrays))
	for c := range arrays {
		codes = append(codes, c)
	}
	sort.Strings(codes)
	return codes
}

// DerivationError describes why a stream has no canonical path.
type DerivationError struct {
	Sensor    string
	Stream    string
	Telemetry string
	Reason    string
	Err       error
}

func (e *DerivationError) Error() string {
	return fmt.Sprintf("cannot derive path for %s-%s-%s: %s: %v", e.Sensor, e.Stream, e.Telemetry, e.Reason, e.Err)
}

func (e *DerivationError) Unwrap() error {
	return e.Err
}

// Designator is a parsed 4-token reference designator such as
// CP01CNSM-RID27-04-VELPTA000.
type Designator struct {
	Subsite    string
	Node       string
	Port       string
	Instrument string
}

// ParseDesignator splits a reference designator into its four tokens.
func ParseDesignator(s string) (Designator, error) {
	tokens := strings.Split(s, "-")
	if len(tokens) != 4 {
		return Designator{}, fmt.Errorf("%w: %q has %d tokens, want 4", ErrMalformedDesignator, s, len(tokens))
	}
	for i, tok := range tokens {
		if tok == "" || strings.ContainsAny(tok, `/\ `) {
			return Designator{}, fmt.Errorf("%w: %q token %d is invalid", ErrMalformedDesignator, s, i)
		}
	}
	return Designator{
		Subsite:    tokens[0],
		Node:       tokens[1],
		Port:       tokens[2],
		Instrument: tokens[3],
	}, nil
}

// String reassembles the designator.
func (d Designator) String() string {
	return d.Subsite + "-" + d.Node + "-" + d.Port + "-" + d.Instrument
}

// ArrayCode returns the first two characters of the subsite.
func (d Designator) ArrayCode() string {
	if len(d.Subsite) < 2 {
		return d.Subsite
	}
	return d.Subsite[:2]
}

// InstrumentType returns "<port>-<instrument>".
func (d Designator) InstrumentType() string {
	return d.Port + "-" + d.Instrument
}

// Path is a canonical catalog path, relative to a THREDDS root.
type Path struct {
	Array          string
	Platform       string
	InstrumentType string
	Telemetry      string
	DatasetID      string
}

// Segments returns the path elements from the array down to the dataset.
func (p Path) Segments() []string {
	return []string{p.Array, p.Platform, p.InstrumentType, p.Telemetry, p.DatasetID}
}

// String returns the slash-separated relative path.
func (p Path) String() string {
	return path.Join(p.Segments()...)
}

// Join returns the OS-specific path of p below root.
func (p Path) Join(root string) string {
	return filepath.Join(append([]string{root}, p.Segments()...)...)
}

// DatasetID returns "<sensor>-<stream>-<telemetry>", the leaf directory name
// and the base name of its NCML aggregation file.
func DatasetID(sensor, stream, telemetry string) string {
	return sensor + "-" + stream + "-" + telemetry
}

// Derive computes the canonical path of a stream.
func Derive(sensor, stream, telemetry string) (Path, error) {
	fail := func(reason string, err error) (Path, error) {
		return Path{}, &DerivationError{Sensor: sensor, Stream: stream, Telemetry: telemetry, Reason: reason, Err: err}
	}

	d, err := ParseDesignator(sensor)
	if err != nil {
		return fail("bad designator", err)
	}

	array, ok := arrays[d.ArrayCode()]
	if !ok {
		return fail("no array name", fmt.Errorf("%w: %q", ErrUnknownArray, d.ArrayCode()))
	}

	if !validSegment(stream) {
		return fail("bad stream", fmt.Errorf("%w: stream %q", ErrMalformedDesignator, stream))
	}
	if !validSegment(telemetry) {
		return fail("bad telemetry", fmt.Errorf("%w: telemetry %q", ErrMalformedDesignator, telemetry))
	}

	return Path{
		Array:          array,
		Platform:       d.Subsite,
		InstrumentType: d.InstrumentType(),
		Telemetry:      telemetry,
		DatasetID:      DatasetID(sensor, stream, telemetry),
	}, nil
}

// validSegment rejects values that would produce an empty or escaping path element.
func validSegment(s string) bool {
	return s != "" && s != "." && s != ".." && !strings.ContainsAny(s, `/\`)
}

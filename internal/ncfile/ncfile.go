// asynctds - UFrame asynchronous requests to THREDDS catalog publishing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/asynctds

// Package ncfile reads NetCDF coverage timestamps and derives the published
// file name from them.
package ncfile

import (
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/batchatco/go-native-netcdf/netcdf"
)

// Global attribute names read from every product file.
const (
	AttrCoverageStart = "time_coverage_start"
	AttrCoverageEnd   = "time_coverage_end"
)

var (
	// ErrUnrecognizedFilename is returned for names that do not look like
	// deployment####_<designator>...nc.
	ErrUnrecognizedFilename = errors.New("unrecognized NetCDF filename")

	// ErrMissingAttribute is returned when a coverage attribute is absent or empty.
	ErrMissingAttribute = errors.New("missing NetCDF global attribute")
)

var (
	productName = regexp.MustCompile(`^(deployment\d+)_(\w+-\w+-\w+-\w+.*)\.nc$`)
	// coverageSuffix matches a name already stamped by TimestampedName.
	coverageSuffix = regexp.MustCompile(`-\d{8}T\d{6}-\d{8}T\d{6}$`)
)

// Coverage is the time span a file claims in its header.
type Coverage struct {
	Start string
	End   string
}

// HeaderReader extracts the coverage attributes from a file.
type HeaderReader interface {
	ReadCoverage(path string) (Coverage, error)
}

// NetCDFReader reads headers with the pure-Go go-native-netcdf decoder.
type NetCDFReader struct{}

// ReadCoverage opens path and returns its time_coverage_start and
// time_coverage_end global attributes.
func (NetCDFReader) ReadCoverage(path string) (Coverage, error) {
	nc, err := netcdf.Open(path)
	if err != nil {
		return Coverage{}, fmt.Errorf("open %s: %w", path, err)
	}
	defer nc.Close()

	attrs := nc.Attributes()
	get := func(name string) (string, error) {
		v, ok := attrs.Get(name)
		if !ok {
			return "", fmt.Errorf("%w: %s: %s", ErrMissingAttribute, path, name)
		}
		s, ok := v.(string)
		if !ok || strings.TrimSpace(s) == "" {
			return "", fmt.Errorf("%w: %s: %s has no text value", ErrMissingAttribute, path, name)
		}
		return s, nil
	}

	var c Coverage
	if c.Start, err = get(AttrCoverageStart); err != nil {
		return Coverage{}, err
	}
	if c.End, err = get(AttrCoverageEnd); err != nil {
		return Coverage{}, err
	}
	return c, nil
}

// compactTimestamp turns 2014-04-17T18:30:00.000Z into 20140417T183000.
func compactTimestamp(ts string) string {
	ts = strings.TrimSpace(ts)
	if len(ts) > 19 {
		ts = ts[:19]
	}
	return strings.NewReplacer("-", "", ":", "").Replace(ts)
}

// TimestampedName returns the published name for a product file:
//
//	deployment0001_CP01CNSM-RID27-04-VELPTA000-recovered_host-velpt.nc
//	-> CP01CNSM-RID27-04-VELPTA000-recovered_host-velpt-20140417T183000-20141001T000000.nc
//
// Only the base name of filename is used. A name that already carries a
// coverage suffix has it replaced, so deriving twice is stable.
func TimestampedName(filename string, c Coverage) (string, error) {
	base := filepath.Base(filename)
	m := productName.FindStringSubmatch(base)
	if m == nil {
		return "", fmt.Errorf("%w: %s", ErrUnrecognizedFilename, base)
	}
	if strings.TrimSpace(c.Start) == "" || strings.TrimSpace(c.End) == "" {
		return "", fmt.Errorf("%w: %s: empty coverage", ErrMissingAttribute, base)
	}

	stem := coverageSuffix.ReplaceAllString(m[2], "")
	return fmt.Sprintf("%s-%s-%s.nc", stem, compactTimestamp(c.Start), compactTimestamp(c.End)), nil
}

// Rename reads path's header with r and returns its published name.
func Rename(r HeaderReader, path string) (string, error) {
	if !productName.MatchString(filepath.Base(path)) {
		return "", fmt.Errorf("%w: %s", ErrUnrecognizedFilename, filepath.Base(path))
	}
	c, err := r.ReadCoverage(path)
	if err != nil {
		return "", err
	}
	return TimestampedName(path, c)
}

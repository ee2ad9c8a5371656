// asynctds - UFrame asynchronous requests to THREDDS catalog publishing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/asynctds

// Package csvio maps stream CSV files to models.StreamRecord values and back.
//
// Input rules:
//   - The first row is the header; column lookup ignores case.
//   - Rows whose first cell starts with "#" are comments.
//   - Rows map positionally onto the header; short rows are padded.
//   - A zero-byte file is an empty record set, not an error.
//
// Output uses the first record's columns as the header and is written
// atomically through fsutil.WriteFileAtomic.
package csvio

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/tomtom215/asynctds/internal/fsutil"
	"github.com/tomtom215/asynctds/internal/models"
)

// ErrInvalidFormat is returned when a file lacks a required column or cannot
// be parsed as CSV.
var ErrInvalidFormat = errors.New("invalid csv file format")

// Table is a parsed CSV file.
type Table struct {
	Header  []string
	Records []models.StreamRecord
}

// Require checks that every named column is in the header, ignoring case.
func (t *Table) Require(columns ...string) error {
	have := make(map[string]bool, len(t.Header))
	for _, h := range t.Header {
		have[strings.ToLower(strings.TrimSpace(h))] = true
	}

	var missing []string
	for _, c := range columns {
		if !have[strings.ToLower(c)] {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing column(s) %s", ErrInvalidFormat, strings.Join(missing, ", "))
	}
	return nil
}

// RequireAny checks that at least one of the named columns is present.
func (t *Table) RequireAny(columns ...string) error {
	for _, c := range columns {
		if t.Require(c) == nil {
			return nil
		}
	}
	return fmt.Errorf("%w: need one of %s", ErrInvalidFormat, strings.Join(columns, ", "))
}

// Read parses CSV from r.
func Read(r io.Reader) (*Table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return &Table{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: header: %v", ErrInvalidFormat, err)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\uFEFF")
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}

	t := &Table{Header: header}
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidFormat, err)
		}
		if len(row) > 0 && strings.HasPrefix(row[0], "#") {
			continue
		}
		t.Records = append(t.Records, models.RecordFromRow(header, row))
	}
	return t, nil
}

// ReadFile parses a CSV file. A zero-byte file yields an empty table.
func ReadFile(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	t, err := Read(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}

// ReadFileIfExists is ReadFile, except that a missing file yields an empty table.
func ReadFileIfExists(path string) (*Table, error) {
	t, err := ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return &Table{}, nil
	}
	return t, err
}

// Header returns the output header for records: the first record's columns.
func Header(records []models.StreamRecord) []string {
	if len(records) == 0 {
		return nil
	}
	return records[0].Columns()
}

// Write renders records as CSV. No records produce no output.
func Write(w io.Writer, records []models.StreamRecord) error {
	if len(records) == 0 {
		return nil
	}

	header := Header(records)
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return err
	}
	for i := range records {
		if err := cw.Write(records[i].Row(header)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteFile atomically replaces path with records.
func WriteFile(path string, records []models.StreamRecord) error {
	return fsutil.WriteFileAtomic(path, func(w io.Writer) error {
		return Write(w, records)
	})
}

// WriteLines atomically replaces path with one line per entry.
func WriteLines(path string, lines []string) error {
	return fsutil.WriteFileAtomic(path, func(w io.Writer) error {
		for _, l := range lines {
			if _, err := io.WriteString(w, l+"\n"); err != nil {
				return err
			}
		}
		return nil
	})
}

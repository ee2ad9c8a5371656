// asynctds - UFrame asynchronous requests to THREDDS catalog publishing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/asynctds

package csvio

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/tomtom215/asynctds/internal/models"
)

func TestRead(t *testing.T) {
	input := strings.Join([]string{
		"sensor,stream,telemetry,method,beginTime,endTime",
		"CP01CNSM-RID27-04-VELPTA000,velpt_ab_instrument_recovered,recovered_host,recovered_host,2014-04-17T18:30:00Z,2014-10-01T00:00:00Z",
		"#CE02SHSM-RID26-07-NUTNRB000,nutnr_b_instrument_recovered,recovered_inst,recovered_inst,x,y",
		"GA01SUMO-RII11-02-CTDMOQ011,ctdmo_ghqr_instrument_recovered",
	}, "\n")

	table, err := Read(strings.NewReader(input))
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}

	if len(table.Records) != 2 {
		t.Fatalf("got %d records, want 2 (comment skipped)", len(table.Records))
	}
	if table.Records[0].Stream != "velpt_ab_instrument_recovered" {
		t.Errorf("record 0 stream = %q", table.Records[0].Stream)
	}
	if table.Records[1].EndTime != "" {
		t.Errorf("short row should be padded, got endTime %q", table.Records[1].EndTime)
	}
	if err := table.Require("stream", "BEGINTIME", "sensor", "method", "endTime"); err != nil {
		t.Errorf("Require() error = %v", err)
	}
}

func TestRead_Empty(t *testing.T) {
	table, err := Read(strings.NewReader(""))
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if len(table.Records) != 0 || len(table.Header) != 0 {
		t.Errorf("expected empty table, got %+v", table)
	}
}

func TestReadFile_ZeroByteKnownFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "CP-known-meta.csv")
	if err := os.WriteFile(path, nil, 0o644); err != nil {
		t.Fatal(err)
	}

	table, err := ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() on 0-byte file error = %v", err)
	}
	if len(table.Records) != 0 {
		t.Errorf("expected no records, got %d", len(table.Records))
	}
}

func TestReadFileIfExists(t *testing.T) {
	table, err := ReadFileIfExists(filepath.Join(t.TempDir(), "missing.csv"))
	if err != nil {
		t.Fatalf("ReadFileIfExists() error = %v", err)
	}
	if len(table.Records) != 0 {
		t.Errorf("expected empty table")
	}

	if _, err := ReadFile(filepath.Join(t.TempDir(), "missing.csv")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("ReadFile() on missing file error = %v, want ErrNotExist", err)
	}
}

func TestRequire_Missing(t *testing.T) {
	table, err := Read(strings.NewReader("Reference Designator,stream\nCP01CNSM-RID27-04-VELPTA000,velpt\n"))
	if err != nil {
		t.Fatal(err)
	}

	err = table.Require("reference designator", "stream", "telemetry")
	if !errors.Is(err, ErrInvalidFormat) {
		t.Fatalf("Require() error = %v, want ErrInvalidFormat", err)
	}
	if !strings.Contains(err.Error(), "telemetry") {
		t.Errorf("error should name the missing column: %v", err)
	}

	if err := table.RequireAny("sensor", "instrument", "reference designator"); err != nil {
		t.Errorf("RequireAny() error = %v", err)
	}
	if err := table.RequireAny("sensor", "instrument"); !errors.Is(err, ErrInvalidFormat) {
		t.Errorf("RequireAny() error = %v, want ErrInvalidFormat", err)
	}
}

func TestRead_BOMAndQuoting(t *testing.T) {
	input := "\uFEFFsensor,stream,notes\nCP01CNSM-RID27-04-VELPTA000,velpt,\"has, comma\"\n"
	table, err := Read(strings.NewReader(input))
	if err != nil {
		t.Fatal(err)
	}
	if table.Header[0] != "sensor" {
		t.Errorf("BOM not stripped: %q", table.Header[0])
	}
	if v, _ := table.Records[0].Get("notes"); v != "has, comma" {
		t.Errorf("notes = %q", v)
	}
}

func TestRead_Malformed(t *testing.T) {
	_, err := Read(strings.NewReader("sensor,stream\n\"unterminated,x\n"))
	if !errors.Is(err, ErrInvalidFormat) {
		t.Errorf("Read() error = %v, want ErrInvalidFormat", err)
	}
}

func TestWriteThenRead(t *testing.T) {
	input := "instrument,stream,telemetry,requestUUID,request_url,reason,custom\n" +
		"GA01SUMO-RII11-02-CTDMOQ011,ctdmo,recovered_inst,u-1,http://x,In process,keep\n" +
		"CP01CNSM-RID27-04-VELPTA000,velpt,recovered_host,,http://y,No requestUUID created,\n"

	table, err := Read(strings.NewReader(input))
	if err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	if err := Write(&buf, table.Records); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if diff := cmp.Diff(input, buf.String()); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestWrite_HeaderFromFirstRecord(t *testing.T) {
	first := models.NewStreamRecord("A-B-C-D", "s1", "t", "m", "b", "e")
	second := models.RecordFromRow([]string{"sensor", "stream", "extra"}, []string{"W-X-Y-Z", "s2", "dropped"})

	var buf bytes.Buffer
	if err := Write(&buf, []models.StreamRecord{first, second}); err != nil {
		t.Fatal(err)
	}

	want := "sensor,stream,telemetry,method,beginTime,endTime\n" +
		"A-B-C-D,s1,t,m,b,e\n" +
		"W-X-Y-Z,s2,,,,\n"
	if diff := cmp.Diff(want, buf.String()); diff != "" {
		t.Errorf("Write() mismatch (-want +got):\n%s", diff)
	}
}

func TestWriteFileAndLines(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "known.csv")
	recs := []models.StreamRecord{models.NewStreamRecord("A-B-C-D", "s", "t", "m", "b", "e")}

	if err := WriteFile(path, recs); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	table, err := ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(table.Records) != 1 || table.Records[0].Key() != "A-B-C-D-s" {
		t.Errorf("read back %+v", table.Records)
	}

	urls := filepath.Join(dir, "CP-urls.csv")
	if err := WriteLines(urls, []string{"http://a", "http://b"}); err != nil {
		t.Fatal(err)
	}
	got, _ := os.ReadFile(urls)
	if string(got) != "http://a\nhttp://b\n" {
		t.Errorf("WriteLines() content = %q", got)
	}
}

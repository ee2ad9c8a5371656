// asynctds - UFrame asynchronous requests to THREDDS catalog publishing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/asynctds

package placement

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/tomtom215/asynctds/internal/config"
	"github.com/tomtom215/asynctds/internal/csvio"
	"github.com/tomtom215/asynctds/internal/ncfile"
)

const (
	velpt       = "CP01CNSM-RID27-04-VELPTA000"
	velptStream = "velpt_ab_instrument_recovered"
	template    = "<netcdf id=\"{:s}\">\n  <scan location=\"{:s}\" suffix=\".nc\"/>\n</netcdf>\n"
	queueHeader = "instrument,stream,telemetry,method,beginTime,endTime,requestUUID,request_url,reason\n"
)

// coverageReader returns a distinct coverage per deployment number.
type coverageReader struct{}

func (coverageReader) ReadCoverage(path string) (ncfile.Coverage, error) {
	base := filepath.Base(path)
	switch {
	case strings.HasPrefix(base, "deployment0001"):
		return ncfile.Coverage{Start: "2014-04-17T18:30:00.000Z", End: "2014-10-01T00:00:00.000Z"}, nil
	case strings.HasPrefix(base, "deployment0002"):
		return ncfile.Coverage{Start: "2014-10-02T00:00:00.000Z", End: "2015-04-01T00:00:00.000Z"}, nil
	}
	return ncfile.Coverage{}, ncfile.ErrMissingAttribute
}

type env struct {
	cfg   *config.Config
	queue string
}

func newEnv(t *testing.T) *env {
	t.Helper()
	root := t.TempDir()
	cfg := &config.Config{Paths: config.PathsConfig{
		UFrameNCRoot: filepath.Join(root, "uframe"),
		TDSNCRoot:    filepath.Join(root, "tds"),
		DataHome:     filepath.Join(root, "home"),
		User:         "_nouser",
	}}
	for _, d := range []string{cfg.UFrameUserRoot(), cfg.Paths.TDSNCRoot, filepath.Dir(cfg.NCMLTemplate()), cfg.StreamQueueDir()} {
		mustMkdir(t, d)
	}
	mustWrite(t, cfg.NCMLTemplate(), template)
	return &env{cfg: cfg, queue: filepath.Join(cfg.StreamQueueDir(), "CP-queue.csv")}
}

func mustMkdir(t *testing.T, dir string) {
	t.Helper()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
}

func mustWrite(t *testing.T, path, content string) {
	t.Helper()
	mustMkdir(t, filepath.Dir(path))
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

// product creates a UFrame product directory for uuid.
func (e *env) product(t *testing.T, uuid, marker string, files ...string) string {
	t.Helper()
	dir := e.cfg.ProductDir(uuid)
	mustMkdir(t, dir)
	if marker != "" {
		mustWrite(t, filepath.Join(dir, MarkerFile), marker)
	}
	for _, f := range files {
		mustWrite(t, filepath.Join(dir, f), "netcdf:"+f)
	}
	return dir
}

func (e *env) writeQueue(t *testing.T, rows ...string) {
	t.Helper()
	mustWrite(t, e.queue, queueHeader+strings.Join(rows, "\n")+"\n")
}

func row(instrument, stream, uuid, reason string) string {
	return strings.Join([]string{instrument, stream, "recovered_host", "recovered_host",
		"2014-04-17T18:30:00.000Z", "2015-04-01T00:00:00.000Z", uuid, "http://uframe/" + stream, reason}, ",")
}

func productFiles(stream string) []string {
	return []string{
		"bin0/deployment0001_" + velpt + "-recovered_host-" + stream + ".nc",
		"bin1/deployment0002_" + velpt + "-recovered_host-" + stream + ".nc",
		"bin1/deployment0002_" + velpt + "-recovered_host-other_stream.nc",
		"bin1/notes.txt",
	}
}

func listFiles(t *testing.T, root string) []string {
	t.Helper()
	var out []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			rel, _ := filepath.Rel(root, path)
			out = append(out, filepath.ToSlash(rel))
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	sort.Strings(out)
	return out
}

const destRel = "Coastal_Pioneer/CP01CNSM/04-VELPTA000/recovered_host/" + velpt + "-" + velptStream + "-recovered_host"

func TestRun_StateMachine(t *testing.T) {
	e := newEnv(t)
	e.product(t, "u-done", "complete\n", productFiles(velptStream)...)
	e.product(t, "u-wait", "")
	e.product(t, "u-notyet", "running\n")
	e.product(t, "u-empty", "complete\n")
	e.product(t, "u-baddes", "complete\n", "bin0/deployment0001_CP01CNSM-RID27-04-VELPTA000-recovered_host-ctdbp.nc")

	e.writeQueue(t,
		row(velpt, velptStream, "u-done", "In process"),
		row(velpt, "velpt_wait", "u-wait", ""),
		row(velpt, "velpt_notyet", "u-notyet", "In process"),
		row(velpt, "velpt_none", "", ""),
		row(velpt, "velpt_empty", "u-empty", ""),
		row("CP01CNSM-RID27", "ctdbp", "u-baddes", ""),
	)

	c := NewCoordinator(e.cfg, coverageReader{}, Options{})
	report, err := c.Run(context.Background(), e.queue)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	type outcome struct{ State, Reason string }
	var got []outcome
	for _, r := range report.Entries {
		got = append(got, outcome{r.State.String(), r.Reason})
	}
	want := []outcome{
		{"complete", "Complete"},
		{"in_progress", "In process"},
		{"in_progress", "In process"},
		{"failed", "No requestUUID created"},
		{"failed", "No NetCDF files found"},
		{"failed", "Cannot determine stream destination"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("outcomes mismatch (-want +got):\n%s", diff)
	}

	wantFiles := []string{
		destRel + "/" + velpt + "-recovered_host-" + velptStream + "-20140417T183000-20141001T000000.nc",
		destRel + "/" + velpt + "-recovered_host-" + velptStream + "-20141002T000000-20150401T000000.nc",
		destRel + "/" + velpt + "-" + velptStream + "-recovered_host.ncml",
	}
	if diff := cmp.Diff(wantFiles, listFiles(t, e.cfg.Paths.TDSNCRoot)); diff != "" {
		t.Errorf("THREDDS tree mismatch (-want +got):\n%s", diff)
	}

	dest := filepath.Join(e.cfg.Paths.TDSNCRoot, filepath.FromSlash(destRel))
	ncml, err := os.ReadFile(filepath.Join(dest, velpt+"-"+velptStream+"-recovered_host.ncml"))
	if err != nil {
		t.Fatal(err)
	}
	wantNCML := "<netcdf id=\"" + velpt + "-" + velptStream + "-recovered_host\">\n  <scan location=\"" + dest + "\" suffix=\".nc\"/>\n</netcdf>\n"
	if string(ncml) != wantNCML {
		t.Errorf("ncml =\n%s\nwant\n%s", ncml, wantNCML)
	}

	// queue rewritten with statuses and destination
	table, err := csvio.ReadFile(e.queue)
	if err != nil {
		t.Fatal(err)
	}
	if len(table.Records) != 6 {
		t.Fatalf("queue has %d rows, want 6", len(table.Records))
	}
	if table.Header[len(table.Header)-1] != "tds_destination" {
		t.Errorf("queue header = %v", table.Header)
	}
	if got := table.Records[0].TDSDestination; got != dest {
		t.Errorf("tds_destination = %q, want %q", got, dest)
	}
	if table.Records[3].Reason != "No requestUUID created" {
		t.Errorf("row 3 reason = %q", table.Records[3].Reason)
	}

	// completed stream merged into known streams
	known, err := csvio.ReadFile(filepath.Join(e.cfg.KnownStreamsDir(), "CP-known-meta.csv"))
	if err != nil {
		t.Fatal(err)
	}
	if len(known.Records) != 1 || known.Records[0].Key() != velpt+"-"+velptStream {
		t.Errorf("known streams = %+v", known.Records)
	}
	if report.QueueDeleted {
		t.Error("queue with pending rows must not be deleted")
	}
}

func TestRun_PlacementIdempotent(t *testing.T) {
	e := newEnv(t)
	e.product(t, "u-done", "complete\n", productFiles(velptStream)...)
	queue := row(velpt, velptStream, "u-done", "In process")

	c := NewCoordinator(e.cfg, coverageReader{}, Options{})

	e.writeQueue(t, queue, row(velpt, "pending", "u-missing", ""))
	if _, err := c.Run(context.Background(), e.queue); err != nil {
		t.Fatalf("first Run() error = %v", err)
	}
	first := listFiles(t, e.cfg.Paths.TDSNCRoot)

	// same request again, as if the queue had not been updated
	e.writeQueue(t, queue, row(velpt, "pending", "u-missing", ""))
	report, err := c.Run(context.Background(), e.queue)
	if err != nil {
		t.Fatalf("second Run() error = %v", err)
	}
	if diff := cmp.Diff(first, listFiles(t, e.cfg.Paths.TDSNCRoot)); diff != "" {
		t.Errorf("destination changed on second run (-first +second):\n%s", diff)
	}
	for _, f := range report.Entries[0].Files {
		if f.Action != ActionExists {
			t.Errorf("second run %s: action %s, want exists", f.Source, f.Action)
		}
	}
	if report.Entries[0].State != StateComplete {
		t.Errorf("state = %s, want complete", report.Entries[0].State)
	}
}

func TestRun_AlreadyCompleteAndQueueRemoval(t *testing.T) {
	e := newEnv(t)
	e.product(t, "u-done", "complete\n", productFiles(velptStream)...)
	e.writeQueue(t,
		row(velpt, velptStream, "u-done", "In process"),
		row(velpt, "older", "u-old", "Complete (2016-01-01)"),
	)

	c := NewCoordinator(e.cfg, coverageReader{}, Options{})
	report, err := c.Run(context.Background(), e.queue)
	if err != nil {
		t.Fatal(err)
	}
	if !report.Entries[1].AlreadyDone || report.Entries[1].Reason != "Complete (2016-01-01)" {
		t.Errorf("already complete entry = %+v", report.Entries[1])
	}
	if !report.QueueDeleted {
		t.Error("queue should be deleted when every entry is complete")
	}
	if _, err := os.Stat(e.queue); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("queue file still present: %v", err)
	}
}

func TestRun_DryRunWritesNothing(t *testing.T) {
	e := newEnv(t)
	src := e.product(t, "u-done", "complete\n", productFiles(velptStream)...)
	e.writeQueue(t, row(velpt, velptStream, "u-done", "In process"))
	before, _ := os.ReadFile(e.queue)

	c := NewCoordinator(e.cfg, coverageReader{}, Options{DryRun: true, Cleanup: config.CleanupPurge})
	report, err := c.Run(context.Background(), e.queue)
	if err != nil {
		t.Fatal(err)
	}

	if report.Entries[0].State != StateComplete {
		t.Errorf("dry run decision = %s, want complete", report.Entries[0].State)
	}
	for _, f := range report.Entries[0].Files {
		if f.Action != ActionPlanned {
			t.Errorf("%s action = %s, want planned", f.Source, f.Action)
		}
	}
	if files := listFiles(t, e.cfg.Paths.TDSNCRoot); len(files) != 0 {
		t.Errorf("dry run wrote %v", files)
	}
	after, _ := os.ReadFile(e.queue)
	if string(before) != string(after) {
		t.Error("dry run rewrote the queue")
	}
	if _, err := os.Stat(src); err != nil {
		t.Error("dry run removed the product directory")
	}
	if _, err := os.Stat(e.cfg.KnownStreamsDir()); !errors.Is(err, os.ErrNotExist) {
		t.Error("dry run created known streams")
	}
}

func TestRun_Cleanup(t *testing.T) {
	tests := []struct {
		name        string
		cleanup     string
		failCopy    bool
		wantProduct bool
		wantEmpty   bool
	}{
		{name: "keep", cleanup: config.CleanupKeep, wantProduct: true, wantEmpty: true},
		{name: "prune", cleanup: config.CleanupPrune, wantProduct: true, wantEmpty: false},
		{name: "purge", cleanup: config.CleanupPurge, wantProduct: false},
		{name: "purge after copy failure", cleanup: config.CleanupPurge, failCopy: true, wantProduct: true, wantEmpty: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newEnv(t)
			src := e.product(t, "u-done", "complete\n", productFiles(velptStream)...)
			mustMkdir(t, filepath.Join(src, "empty"))
			e.writeQueue(t, row(velpt, velptStream, "u-done", ""))

			c := NewCoordinator(e.cfg, coverageReader{}, Options{Cleanup: tt.cleanup})
			if tt.failCopy {
				calls := 0
				c.copyFile = func(s, d string) error {
					calls++
					if calls == 2 {
						return errors.New("disk full")
					}
					return os.WriteFile(d, []byte("x"), 0o644)
				}
			}

			report, err := c.Run(context.Background(), e.queue)
			if err != nil {
				t.Fatal(err)
			}
			if report.Entries[0].State != StateComplete {
				t.Fatalf("state = %s (%s)", report.Entries[0].State, report.Entries[0].Reason)
			}

			_, err = os.Stat(src)
			if gotProduct := err == nil; gotProduct != tt.wantProduct {
				t.Fatalf("product dir present = %v, want %v", gotProduct, tt.wantProduct)
			}
			if tt.wantProduct {
				_, err := os.Stat(filepath.Join(src, "empty"))
				if gotEmpty := err == nil; gotEmpty != tt.wantEmpty {
					t.Errorf("empty sub-directory present = %v, want %v", gotEmpty, tt.wantEmpty)
				}
			}
		})
	}
}

func TestRun_NoFilesPlaced(t *testing.T) {
	e := newEnv(t)
	e.product(t, "u-bad", "complete\n", "bin0/"+velptStream+".nc")
	e.writeQueue(t, row(velpt, velptStream, "u-bad", ""))

	c := NewCoordinator(e.cfg, coverageReader{}, Options{})
	report, err := c.Run(context.Background(), e.queue)
	if err != nil {
		t.Fatal(err)
	}
	if got := report.Entries[0].Reason; got != "No NetCDF files placed" {
		t.Errorf("reason = %q, want No NetCDF files placed", got)
	}
	if report.Entries[0].Files[0].Action != ActionError {
		t.Errorf("file action = %s, want error", report.Entries[0].Files[0].Action)
	}
}

func TestRun_QueueErrors(t *testing.T) {
	e := newEnv(t)
	c := NewCoordinator(e.cfg, coverageReader{}, Options{})

	if _, err := c.Run(context.Background(), filepath.Join(e.cfg.StreamQueueDir(), "missing.csv")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("missing queue error = %v", err)
	}

	mustWrite(t, e.queue, "stream,reason\nx,y\n")
	if _, err := c.Run(context.Background(), e.queue); !errors.Is(err, csvio.ErrInvalidFormat) {
		t.Errorf("bad queue error = %v, want ErrInvalidFormat", err)
	}

	mustWrite(t, e.queue, "")
	report, err := c.Run(context.Background(), e.queue)
	if err != nil || len(report.Entries) != 0 {
		t.Errorf("empty queue: %v, %+v", err, report)
	}
}

func TestReportWriteJSON(t *testing.T) {
	r := &Report{Queue: "q.csv", Entries: []EntryResult{{Stream: "a-b", State: StateInProgress, Reason: "In process"}}}
	var b strings.Builder
	if err := r.WriteJSON(&b); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(b.String(), `"state": "in_progress"`) {
		t.Errorf("json = %s", b.String())
	}
}

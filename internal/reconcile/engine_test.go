// asynctds - UFrame asynchronous requests to THREDDS catalog publishing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/asynctds

package reconcile

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/tomtom215/asynctds/internal/config"
	"github.com/tomtom215/asynctds/internal/models"
	"github.com/tomtom215/asynctds/internal/uframe"
)

const (
	velpt = "CP01CNSM-RID27-04-VELPTA000"
	nutnr = "CE02SHSM-RID26-07-NUTNRB000"
	ctdmo = "GA01SUMO-RII11-02-CTDMOQ011"
)

type fakeFetcher struct {
	bySensor map[string][]models.StreamTimes
	errs     map[string]error
	calls    int
}

func (f *fakeFetcher) FetchTimes(ctx context.Context, rec *models.StreamRecord) ([]models.StreamTimes, error) {
	f.calls++
	if err, ok := f.errs[rec.Sensor]; ok {
		return nil, err
	}
	return f.bySensor[rec.Sensor], nil
}

func rec(sensor, stream, begin, end string) models.StreamRecord {
	return models.NewStreamRecord(sensor, stream, "recovered_host", "recovered_host", begin, end)
}

func keys(recs []models.StreamRecord) []string {
	out := make([]string, len(recs))
	for i := range recs {
		out[i] = recs[i].Key()
	}
	return out
}

func urlBuilder() *uframe.Client {
	return uframe.NewClient(config.UFrameConfig{BaseURL: "http://localhost:12576"})
}

func TestReconcile_AllNewWhenNothingKnown(t *testing.T) {
	master := []models.StreamRecord{
		rec(velpt, "velpt_ab_instrument_recovered", "2014-04-17T18:30:00Z", "2014-10-01T00:00:00Z"),
		rec(nutnr, "nutnr_b_instrument_recovered", "2015-01-01T00:00:00Z", "2015-06-01T00:00:00Z"),
	}

	e := NewEngine(nil, urlBuilder())
	res, err := e.Reconcile(context.Background(), master, nil, Options{User: "_nouser"})
	if err != nil {
		t.Fatalf("Reconcile() error = %v", err)
	}

	if diff := cmp.Diff(keys(master), keys(res.NewOrUpdated)); diff != "" {
		t.Errorf("NewOrUpdated mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(keys(master), keys(res.Merged)); diff != "" {
		t.Errorf("Merged mismatch (-want +got):\n%s", diff)
	}
	if len(res.URLs) != 2 {
		t.Fatalf("got %d URLs, want 2", len(res.URLs))
	}
	if !strings.HasSuffix(res.URLs[0], "&user=_nouser") {
		t.Errorf("URL missing user: %s", res.URLs[0])
	}
	if res.Stats.New != 2 {
		t.Errorf("Stats.New = %d, want 2", res.Stats.New)
	}
}

func TestReconcile_Novelty(t *testing.T) {
	master := []models.StreamRecord{
		rec(velpt, "velpt_ab_instrument_recovered", "2014-04-17T18:30:00Z", "2014-10-01T00:00:00Z"),
		rec(velpt, "velpt_ab_dcl_instrument", "2014-04-17T18:30:00Z", "2014-10-01T00:00:00Z"),
		rec(ctdmo, "ctdmo_ghqr_instrument_recovered", "2014-04-17T18:30:00Z", "2014-10-01T00:00:00Z"),
	}
	known := []models.StreamRecord{master[0]}

	tests := []struct {
		name     string
		byStream bool
		wantNew  []string
	}{
		{
			name:    "sensor only",
			wantNew: []string{ctdmo + "-ctdmo_ghqr_instrument_recovered"},
		},
		{
			name:     "full key",
			byStream: true,
			wantNew:  []string{velpt + "-velpt_ab_dcl_instrument", ctdmo + "-ctdmo_ghqr_instrument_recovered"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := NewEngine(nil, urlBuilder())
			res, err := e.Reconcile(context.Background(), master, known, Options{NoveltyByStream: tt.byStream})
			if err != nil {
				t.Fatal(err)
			}
			if diff := cmp.Diff(tt.wantNew, keys(res.NewOrUpdated)); diff != "" {
				t.Errorf("new streams mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestReconcile_UpdateCheck(t *testing.T) {
	known := []models.StreamRecord{
		rec(velpt, "velpt_ab_instrument_recovered", "2014-04-17T18:30:00Z", "2014-10-01T00:00:00Z"),
		rec(nutnr, "nutnr_b_instrument_recovered", "2015-01-01T00:00:00Z", "2015-06-01T00:00:00Z"),
		rec(ctdmo, "ctdmo_ghqr_instrument_recovered", "2014-04-17T18:30:00Z", "2014-10-01T00:00:00Z"),
		rec("CP02PMUO-WFP01-03-CTDPFK000", "ctdpf_ckl_wfp_instrument_recovered", "2014-04-17T18:30:00Z", "2014-10-01T00:00:00Z"),
	}

	fetcher := &fakeFetcher{
		bySensor: map[string][]models.StreamTimes{
			// end time moved
			velpt: {{Stream: "velpt_ab_instrument_recovered", BeginTime: "2014-04-17T18:30:00.000Z", EndTime: "2015-03-01T00:00:00.000Z"}},
			// same instants, different spelling
			nutnr: {{Stream: "nutnr_b_instrument_recovered", BeginTime: "2015-01-01T00:00:00.000Z", EndTime: "2015-06-01 00:00:00"}},
			// stream missing from the sensor's metadata
			ctdmo: {{Stream: "ctdmo_other", BeginTime: "x", EndTime: "y"}},
		},
		errs: map[string]error{
			"CP02PMUO-WFP01-03-CTDPFK000": fmt.Errorf("%w: connection refused", uframe.ErrTransientNetwork),
		},
	}

	e := NewEngine(fetcher, urlBuilder())
	res, err := e.Reconcile(context.Background(), known, known, Options{CheckUpdates: true})
	if err != nil {
		t.Fatalf("Reconcile() error = %v", err)
	}

	if fetcher.calls != 4 {
		t.Errorf("fetcher called %d times, want 4", fetcher.calls)
	}
	want := Stats{MasterRecords: 4, KnownRecords: 4, Updated: 1, TransientErrors: 1, StreamNotFound: 1}
	if diff := cmp.Diff(want, res.Stats); diff != "" {
		t.Errorf("Stats mismatch (-want +got):\n%s", diff)
	}

	if len(res.NewOrUpdated) != 1 {
		t.Fatalf("NewOrUpdated = %v", keys(res.NewOrUpdated))
	}
	if got := res.NewOrUpdated[0].EndTime; got != "2015-03-01T00:00:00.000Z" {
		t.Errorf("updated record should carry fetched end time, got %q", got)
	}

	// merged in place, order kept
	if diff := cmp.Diff(keys(known), keys(res.Merged)); diff != "" {
		t.Errorf("Merged order mismatch (-want +got):\n%s", diff)
	}
	if res.Merged[0].EndTime != "2015-03-01T00:00:00.000Z" {
		t.Errorf("Merged[0] not replaced: %q", res.Merged[0].EndTime)
	}
	if known[0].EndTime != "2014-10-01T00:00:00Z" {
		t.Error("Reconcile modified its input")
	}
}

func TestReconcile_ContextCanceled(t *testing.T) {
	known := []models.StreamRecord{rec(velpt, "s", "2014-01-01", "2014-02-01")}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	e := NewEngine(&fakeFetcher{}, urlBuilder())
	if _, err := e.Reconcile(ctx, nil, known, Options{CheckUpdates: true}); !errors.Is(err, context.Canceled) {
		t.Errorf("Reconcile() error = %v, want context.Canceled", err)
	}
}

func TestMerge(t *testing.T) {
	known := []models.StreamRecord{
		rec(velpt, "a", "1", "1"),
		rec(velpt, "b", "1", "1"),
	}
	updates := []models.StreamRecord{
		rec(velpt, "b", "2", "2"),
		rec(ctdmo, "c", "2", "2"),
	}

	merged := Merge(known, updates)
	if diff := cmp.Diff([]string{velpt + "-a", velpt + "-b", ctdmo + "-c"}, keys(merged)); diff != "" {
		t.Errorf("Merge() keys mismatch (-want +got):\n%s", diff)
	}
	if merged[1].BeginTime != "2" {
		t.Errorf("existing key not replaced in place")
	}

	again := Merge(merged, updates)
	if diff := cmp.Diff(keys(merged), keys(again)); diff != "" {
		t.Errorf("Merge() not idempotent (-want +got):\n%s", diff)
	}
	for i := range again {
		if again[i].BeginTime != merged[i].BeginTime {
			t.Errorf("record %d changed on second merge", i)
		}
	}
}

func TestBuildRequests_SkipsInvalid(t *testing.T) {
	records := []models.StreamRecord{
		rec(velpt, "velpt_ab_instrument_recovered", "2014-04-17T18:30:00Z", "2014-10-01T00:00:00Z"),
		rec(velpt, "", "2014-04-17T18:30:00Z", "2014-10-01T00:00:00Z"),
		rec("CP01CNSM-RID27", "velpt", "2014-04-17T18:30:00Z", "2014-10-01T00:00:00Z"),
		rec(nutnr, "nutnr_b_instrument_recovered", "", "2014-10-01T00:00:00Z"),
	}

	urls, invalid := BuildRequests(context.Background(), urlBuilder(), records, "")
	if len(urls) != 1 || invalid != 3 {
		t.Fatalf("BuildRequests() = %d urls, %d invalid; want 1, 3", len(urls), invalid)
	}
	want := "http://localhost:12576/sensor/inv/CP01CNSM/RID27/04-VELPTA000/recovered_host/velpt_ab_instrument_recovered" +
		"?beginDT=2014-04-17T18:30:00Z&endDT=2014-10-01T00:00:00Z&limit=-1&execDPA=true&format=application/netcdf&include_provenance=true"
	if urls[0] != want {
		t.Errorf("url = %s", urls[0])
	}
}

// asynctds - UFrame asynchronous requests to THREDDS catalog publishing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/asynctds

package tdspath

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestDerive_Scenario(t *testing.T) {
	p, err := Derive("CP01CNSM-RID27-04-VELPTA000", "velpt_ab_instrument_recovered", "recovered_host")
	if err != nil {
		t.Fatalf("Derive() error = %v", err)
	}

	want := "Coastal_Pioneer/CP01CNSM/04-VELPTA000/recovered_host/CP01CNSM-RID27-04-VELPTA000-velpt_ab_instrument_recovered-recovered_host"
	if got := p.String(); got != want {
		t.Errorf("Derive().String() =\n  %s\nwant\n  %s", got, want)
	}
	if got, want := p.Join("/tds"), filepath.Join("/tds", filepath.FromSlash(want)); got != want {
		t.Errorf("Join() = %q, want %q", got, want)
	}
	if p.DatasetID != "CP01CNSM-RID27-04-VELPTA000-velpt_ab_instrument_recovered-recovered_host" {
		t.Errorf("DatasetID = %q", p.DatasetID)
	}
}

func TestDerive_EveryArray(t *testing.T) {
	tests := []struct {
		sensor string
		array  string
	}{
		{"CP02PMUO-WFP01-03-CTDPFK000", "Coastal_Pioneer"},
		{"CE02SHSM-RID26-07-NUTNRB000", "Coastal_Endurance"},
		{"GP03FLMA-RIM01-02-CTDMOG040", "Global_Station_Papa"},
		{"GI01SUMO-RII11-02-CTDMOQ011", "Global_Irminger_Sea"},
		{"GA01SUMO-SBD11-06-METBKA000", "Global_Argentine_Basin"},
		{"GS01SUMO-RID16-03-CTDBPF000", "Global_Southern_Ocean"},
		{"RS03AXPS-SF03A-2A-CTDPFA302", "Cabled_Array"},
		{"SSRSPACC-SQ00A-01-TEST00000", "Shore Station"},
	}

	for _, tt := range tests {
		t.Run(tt.sensor, func(t *testing.T) {
			p, err := Derive(tt.sensor, "s", "telemetered")
			if err != nil {
				t.Fatalf("Derive() error = %v", err)
			}
			if p.Array != tt.array {
				t.Errorf("Array = %q, want %q", p.Array, tt.array)
			}
		})
	}

	if len(ArrayCodes()) != 8 {
		t.Errorf("ArrayCodes() = %v, want 8 entries", ArrayCodes())
	}
}

func TestDerive_Deterministic(t *testing.T) {
	inputs := [][3]string{
		{"CP01CNSM-RID27-04-VELPTA000", "velpt_ab_instrument_recovered", "recovered_host"},
		{"GA01SUMO-RII11-02-CTDMOQ011", "ctdmo_ghqr_instrument_recovered", "recovered_inst"},
		{"RS01SBPS-PC01A-4C-FLORDD103", "flort_d_data_record", "streamed"},
	}

	for _, in := range inputs {
		first, err1 := Derive(in[0], in[1], in[2])
		second, err2 := Derive(in[0], in[1], in[2])
		if err1 != nil || err2 != nil {
			t.Fatalf("Derive(%v) errors = %v, %v", in, err1, err2)
		}
		if diff := cmp.Diff(first, second); diff != "" {
			t.Errorf("Derive(%v) not deterministic (-first +second):\n%s", in, diff)
		}
		if first.String() != second.String() {
			t.Errorf("path strings differ: %q vs %q", first.String(), second.String())
		}
	}
}

func TestDerive_Malformed(t *testing.T) {
	tests := []struct {
		name      string
		sensor    string
		stream    string
		telemetry string
		want      error
	}{
		{"three tokens", "CP01CNSM-RID27-04", "s", "t", ErrMalformedDesignator},
		{"five tokens", "CP01CNSM-RID27-04-VELPTA000-X", "s", "t", ErrMalformedDesignator},
		{"one token", "CP01CNSM", "s", "t", ErrMalformedDesignator},
		{"empty", "", "s", "t", ErrMalformedDesignator},
		{"empty token", "CP01CNSM--04-VELPTA000", "s", "t", ErrMalformedDesignator},
		{"empty stream", "CP01CNSM-RID27-04-VELPTA000", "", "t", ErrMalformedDesignator},
		{"empty telemetry", "CP01CNSM-RID27-04-VELPTA000", "s", "", ErrMalformedDesignator},
		{"escaping stream", "CP01CNSM-RID27-04-VELPTA000", "../x", "t", ErrMalformedDesignator},
		{"unknown array", "XX01CNSM-RID27-04-VELPTA000", "s", "t", ErrUnknownArray},
		{"lowercase array", "cp01cnsm-RID27-04-VELPTA000", "s", "t", ErrUnknownArray},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Derive(tt.sensor, tt.stream, tt.telemetry)
			if !errors.Is(err, tt.want) {
				t.Fatalf("Derive() error = %v, want %v", err, tt.want)
			}
			var de *DerivationError
			if !errors.As(err, &de) {
				t.Fatalf("expected *DerivationError, got %T", err)
			}
			if de.Sensor != tt.sensor {
				t.Errorf("DerivationError.Sensor = %q", de.Sensor)
			}
		})
	}
}

func TestParseDesignator(t *testing.T) {
	d, err := ParseDesignator("CE04OSPS-SF01B-2A-CTDPFA107")
	if err != nil {
		t.Fatalf("ParseDesignator() error = %v", err)
	}
	want := Designator{Subsite: "CE04OSPS", Node: "SF01B", Port: "2A", Instrument: "CTDPFA107"}
	if diff := cmp.Diff(want, d); diff != "" {
		t.Errorf("ParseDesignator() mismatch (-want +got):\n%s", diff)
	}
	if d.String() != "CE04OSPS-SF01B-2A-CTDPFA107" {
		t.Errorf("String() = %q", d.String())
	}
	if d.ArrayCode() != "CE" || d.InstrumentType() != "2A-CTDPFA107" {
		t.Errorf("ArrayCode()=%q InstrumentType()=%q", d.ArrayCode(), d.InstrumentType())
	}
}

func TestDerive_ShoreStationPath(t *testing.T) {
	p, err := Derive("SSRSPACC-SQ00A-01-TEST00000", "test_stream", "streamed")
	if err != nil {
		t.Fatalf("Derive() error = %v", err)
	}
	want := "Shore Station/SSRSPACC/01-TEST00000/streamed/SSRSPACC-SQ00A-01-TEST00000-test_stream-streamed"
	if got := p.String(); got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}

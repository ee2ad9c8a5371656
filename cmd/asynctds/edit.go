// asynctds - UFrame asynchronous requests to THREDDS catalog publishing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/asynctds

package main

import (
	"context"
	"fmt"

	"github.com/goccy/go-json"
	"github.com/maruel/subcommands"

	"github.com/tomtom215/asynctds/internal/config"
	"github.com/tomtom215/asynctds/internal/maintenance"
)

func cmdEdit() *subcommands.Command {
	return &subcommands.Command{
		UsageLine: "edit [options] <dataset csv>",
		ShortDesc: "list, delete, copy or move THREDDS datasets",
		LongDesc: `Operates on the dataset directories named by a csv file with
"reference designator", "stream" and "telemetry" columns. Without an action
flag the files of each dataset are listed.`,
		CommandRun: func() subcommands.CommandRun {
			r := &editRun{}
			r.registerCommonFlags()
			r.Flags.BoolVar(&r.delete, "delete", false, "Delete the dataset files and prune empty directories")
			r.Flags.BoolVar(&r.move, "move", false, "Move the datasets below -location")
			r.Flags.BoolVar(&r.copy, "copy", false, "Copy the datasets below -location")
			r.Flags.BoolVar(&r.validate, "validate", false, "Check that each dataset directory exists, perform no action")
			r.Flags.StringVar(&r.tdsRoot, "tdsroot", "", "THREDDS root holding the datasets (default $ASYNC_TDS_NC_ROOT)")
			r.Flags.StringVar(&r.location, "location", "", "Destination root for -move and -copy")
			r.Flags.BoolVar(&r.json, "json", false, "Print the per-dataset report as JSON")
			return r
		},
	}
}

type editRun struct {
	commonRun
	delete   bool
	move     bool
	copy     bool
	validate bool
	tdsRoot  string
	location string
	json     bool
}

// action resolves the action flags. At most one may be set.
func (r *editRun) action() (maintenance.Action, error) {
	var set []maintenance.Action
	for _, a := range []struct {
		on     bool
		action maintenance.Action
	}{
		{r.validate, maintenance.ActionValidate},
		{r.delete, maintenance.ActionDelete},
		{r.copy, maintenance.ActionCopy},
		{r.move, maintenance.ActionMove},
	} {
		if a.on {
			set = append(set, a.action)
		}
	}
	switch len(set) {
	case 0:
		return maintenance.ActionList, nil
	case 1:
		return set[0], nil
	default:
		return "", usageErrorf("-validate, -delete, -copy and -move are mutually exclusive")
	}
}

func (r *editRun) Run(_ subcommands.Application, args []string, _ subcommands.Env) int {
	if len(args) != 1 {
		return r.done(context.Background(), "edit", usageErrorf("expected exactly one dataset csv"))
	}
	action, err := r.action()
	if err != nil {
		return r.done(context.Background(), "edit", err)
	}
	return r.execute("edit", func(ctx context.Context, cfg *config.Config) error {
		return r.edit(ctx, cfg, action, args[0])
	})
}

func (r *editRun) edit(ctx context.Context, cfg *config.Config, action maintenance.Action, csvPath string) error {
	tdsRoot := r.tdsRoot
	if tdsRoot == "" {
		tdsRoot = cfg.Paths.TDSNCRoot
	}

	editor, err := maintenance.NewEditor(tdsRoot, maintenance.Options{Action: action, Location: r.location})
	if err != nil {
		return err
	}
	reports, err := editor.Run(ctx, csvPath)
	if err != nil {
		return err
	}

	if r.json {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(reports); err != nil {
			return err
		}
	}

	failed := 0
	for i := range reports {
		rep := &reports[i]
		if rep.Err() != nil {
			failed++
		}
		if r.json {
			continue
		}
		switch {
		case rep.Err() != nil:
			fmt.Fprintf(stdout, "%s: error: %v\n", rep.Stream, rep.Err())
		case !rep.Exists:
			fmt.Fprintf(stdout, "%s: missing %s\n", rep.Stream, rep.Path)
		default:
			fmt.Fprintf(stdout, "%s: %s (%d file(s))\n", rep.Stream, rep.Path, len(rep.Files))
			for _, f := range rep.Files {
				fmt.Fprintf(stdout, "  %s %s\n", f.Result, f.Path)
			}
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d dataset(s) failed", failed, len(reports))
	}
	return nil
}

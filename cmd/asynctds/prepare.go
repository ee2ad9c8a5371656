// asynctds - UFrame asynchronous requests to THREDDS catalog publishing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/asynctds

package main

import (
	"context"
	"fmt"

	"github.com/maruel/subcommands"

	"github.com/tomtom215/asynctds/internal/config"
	"github.com/tomtom215/asynctds/internal/reconcile"
	"github.com/tomtom215/asynctds/internal/uframe"
)

func cmdPrepare() *subcommands.Command {
	return &subcommands.Command{
		UsageLine: "prepare [options] <master stream csv>",
		ShortDesc: "find new or updated streams and write UFrame request URLs",
		LongDesc: `Compares a master stream list against the paired known-streams file in
$ASYNC_DATA_HOME/known-streams. New streams, and with -update known streams
whose time coverage changed in UFrame, get an asynchronous request URL written
to $ASYNC_DATA_HOME/stream-requests/<prefix>-urls.csv. The known-streams file
is updated to include them.`,
		CommandRun: func() subcommands.CommandRun {
			r := &prepareRun{}
			r.registerCommonFlags()
			r.Flags.StringVar(&r.baseURL, "base-url", "", "Alternate UFrame server URL; must start with http:// or https://")
			r.Flags.StringVar(&r.user, "user", "", "Alternate UFrame user name (default from config, _nouser)")
			r.Flags.BoolVar(&r.update, "update", false, "Check known streams for metadata updates")
			r.Flags.BoolVar(&r.dryRun, "dry-run", false, "Log the request URLs but write nothing")
			return r
		},
	}
}

type prepareRun struct {
	commonRun
	baseURL string
	user    string
	update  bool
	dryRun  bool
}

func (r *prepareRun) Run(_ subcommands.Application, args []string, _ subcommands.Env) int {
	if len(args) != 1 {
		return r.done(context.Background(), "prepare", usageErrorf("expected exactly one master stream csv"))
	}
	return r.execute("prepare", func(ctx context.Context, cfg *config.Config) error {
		return r.prepare(ctx, cfg, args[0])
	})
}

func (r *prepareRun) prepare(ctx context.Context, cfg *config.Config, masterPath string) error {
	if r.baseURL != "" {
		if err := config.ValidateBaseURL(r.baseURL); err != nil {
			return err
		}
		cfg.UFrame.BaseURL = r.baseURL
	}
	if r.user != "" {
		cfg.Paths.User = r.user
	}
	if err := cfg.ValidateRoots(); err != nil {
		return err
	}

	client := uframe.NewClient(cfg.UFrame)
	fetcher := uframe.NewCachedFetcher(uframe.NewBreakerFetcher(client, uframe.BreakerSettings{}), 0, 0)
	runner := reconcile.NewRunner(cfg, reconcile.NewEngine(fetcher, client))
	runner.DryRun = r.dryRun
	runner.CheckUpdates = r.update

	res, err := runner.Run(ctx, masterPath)
	if err != nil {
		return err
	}

	fmt.Fprintf(stdout, "%d new, %d updated, %d request url(s)\n", res.Stats.New, res.Stats.Updated, len(res.URLs))
	return nil
}

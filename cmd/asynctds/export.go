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
	"github.com/tomtom215/asynctds/internal/logging"
	"github.com/tomtom215/asynctds/internal/ncfile"
	"github.com/tomtom215/asynctds/internal/placement"
)

func cmdExport() *subcommands.Command {
	return &subcommands.Command{
		UsageLine: "export [options] <stream queue csv>...",
		ShortDesc: "place finished UFrame requests into the THREDDS tree",
		LongDesc: `Checks every request of a stream-queue file. Requests whose UFrame
product is complete have their NetCDF files renamed by time coverage and copied
below $ASYNC_TDS_NC_ROOT, with an NCML aggregation for the dataset. Without
-move nothing is written.`,
		CommandRun: func() subcommands.CommandRun {
			r := &exportRun{}
			r.registerCommonFlags()
			r.Flags.StringVar(&r.user, "user", "", "Alternate UFrame user name (default from config, _nouser)")
			r.Flags.BoolVar(&r.move, "move", false, "Create NCML files and copy NetCDF files to THREDDS")
			r.Flags.StringVar(&r.cleanup, "cleanup", "", "UFrame product cleanup after placement: keep, prune or purge (default from config)")
			r.Flags.BoolVar(&r.validate, "validate", false, "Validate the environment set up only")
			r.Flags.BoolVar(&r.json, "json", false, "Print the placement report as JSON")
			return r
		},
	}
}

type exportRun struct {
	commonRun
	user     string
	move     bool
	cleanup  string
	validate bool
	json     bool
}

func (r *exportRun) Run(_ subcommands.Application, args []string, _ subcommands.Env) int {
	if !r.validate && len(args) == 0 {
		return r.done(context.Background(), "export", usageErrorf("expected at least one stream queue csv"))
	}
	return r.execute("export", func(ctx context.Context, cfg *config.Config) error {
		return r.export(ctx, cfg, args)
	})
}

func (r *exportRun) export(ctx context.Context, cfg *config.Config, queues []string) error {
	if r.user != "" {
		cfg.Paths.User = r.user
	}
	if r.cleanup != "" {
		cfg.Placement.SourceCleanup = r.cleanup
		if err := cfg.Validate(); err != nil {
			return err
		}
	}
	if err := cfg.ValidateRoots(); err != nil {
		return err
	}
	if err := cfg.RequireNCMLTemplate(); err != nil {
		return err
	}

	if r.validate {
		fmt.Fprintf(stdout, "UFrame NetCDF root: %s\n", cfg.UFrameUserRoot())
		fmt.Fprintf(stdout, "THREDDS NetCDF root: %s\n", cfg.Paths.TDSNCRoot)
		fmt.Fprintf(stdout, "Async data home: %s\n", cfg.Paths.DataHome)
		fmt.Fprintf(stdout, "NCML template: %s\n", cfg.NCMLTemplate())
		return nil
	}

	coord := placement.NewCoordinator(cfg, ncfile.NetCDFReader{}, placement.Options{
		DryRun:  !r.move,
		Cleanup: cfg.Placement.SourceCleanup,
	})

	log := logging.Ctx(ctx)
	for _, queue := range queues {
		report, err := coord.Run(ctx, queue)
		if err != nil {
			return fmt.Errorf("%s: %w", queue, err)
		}
		log.Info().
			Str("queue", queue).
			Int("entries", len(report.Entries)).
			Int("complete", report.Complete()).
			Bool("queue_deleted", report.QueueDeleted).
			Msg("Processed stream queue")

		if r.json {
			if err := report.WriteJSON(stdout); err != nil {
				return err
			}
			continue
		}
		fmt.Fprintf(stdout, "%s: %d of %d request(s) complete\n", queue, report.Complete(), len(report.Entries))
	}
	return nil
}

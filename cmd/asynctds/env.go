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
)

func cmdEnv() *subcommands.Command {
	return &subcommands.Command{
		UsageLine: "env [options]",
		ShortDesc: "print the resolved configuration",
		LongDesc:  "Prints the configuration after defaults, config file and environment are applied, then checks the filesystem roots.",
		CommandRun: func() subcommands.CommandRun {
			r := &envRun{}
			r.registerCommonFlags()
			return r
		},
	}
}

type envRun struct {
	commonRun
}

func (r *envRun) Run(_ subcommands.Application, args []string, _ subcommands.Env) int {
	if len(args) != 0 {
		return r.done(context.Background(), "env", usageErrorf("unexpected arguments"))
	}
	return r.execute("env", func(_ context.Context, cfg *config.Config) error {
		out, err := cfg.YAML()
		if err != nil {
			return err
		}
		if _, err := stdout.Write(out); err != nil {
			return err
		}

		for _, check := range []struct {
			name string
			fn   func() error
		}{
			{"uframe root", cfg.RequireUFrameRoot},
			{"tds root", cfg.RequireTDSRoot},
			{"data home", cfg.RequireDataHome},
			{"ncml template", cfg.RequireNCMLTemplate},
		} {
			status := "ok"
			if err := check.fn(); err != nil {
				status = err.Error()
			}
			fmt.Fprintf(stdout, "# %s: %s\n", check.name, status)
		}
		return nil
	})
}

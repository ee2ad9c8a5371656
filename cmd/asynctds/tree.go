// asynctds - UFrame asynchronous requests to THREDDS catalog publishing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/asynctds

package main

import (
	"context"
	"io"

	"github.com/maruel/subcommands"

	"github.com/tomtom215/asynctds/internal/catalogtree"
	"github.com/tomtom215/asynctds/internal/config"
	"github.com/tomtom215/asynctds/internal/fsutil"
	"github.com/tomtom215/asynctds/internal/logging"
)

func cmdTree() *subcommands.Command {
	return &subcommands.Command{
		UsageLine: "tree [options] [root]",
		ShortDesc: "print a directory tree as JSON",
		LongDesc:  "Prints root, by default $ASYNC_TDS_NC_ROOT, as nested {name, type, children} JSON nodes.",
		CommandRun: func() subcommands.CommandRun {
			r := &treeRun{}
			r.registerCommonFlags()
			r.Flags.StringVar(&r.out, "out", "", "Write the JSON to this file instead of stdout")
			r.Flags.BoolVar(&r.indent, "indent", false, "Indent the JSON output")
			return r
		},
	}
}

type treeRun struct {
	commonRun
	out    string
	indent bool
}

func (r *treeRun) Run(_ subcommands.Application, args []string, _ subcommands.Env) int {
	if len(args) > 1 {
		return r.done(context.Background(), "tree", usageErrorf("expected at most one root"))
	}
	return r.execute("tree", func(ctx context.Context, cfg *config.Config) error {
		root := cfg.Paths.TDSNCRoot
		if len(args) == 1 {
			root = args[0]
		} else if err := cfg.RequireTDSRoot(); err != nil {
			return err
		}
		return r.tree(ctx, root)
	})
}

func (r *treeRun) tree(ctx context.Context, root string) error {
	node, err := catalogtree.Build(ctx, root)
	if err != nil {
		return err
	}
	dirs, files := node.Count()
	logging.Ctx(ctx).Debug().Str("root", root).Int("directories", dirs).Int("files", files).Msg("Built catalog tree")

	if r.out == "" {
		return node.WriteJSON(stdout, r.indent)
	}
	return fsutil.WriteFileAtomic(r.out, func(w io.Writer) error {
		return node.WriteJSON(w, r.indent)
	})
}

// SPDX-License-Identifier: MIT

package main

import (
	"context"
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/katalvlaran/wavemoth/precompute"
	"github.com/katalvlaran/wavemoth/resource"
	"gopkg.in/alecthomas/kingpin.v2"
)

func mergeCommand(app *kingpin.Application, g *globals) (*kingpin.CmdClause, handler) {
	cmd := app.Command("merge", "check worker shards and write the resource file")
	output := cmd.Flag("output", "resource file (overrides output)").Short('o').String()
	dirs := cmd.Arg("shards", "shard directories").Required().ExistingDirs()

	return cmd, func(ctx context.Context) int {
		cfg, logger, code := g.setup()
		if code != 0 {
			return code
		}
		defer func() { _ = logger.Sync() }()
		if *output != "" {
			cfg.Output = *output
		}
		h := resource.Header{Lmax: cfg.Lmax, Mmax: cfg.Mmax, Nside: cfg.Nside}
		st, err := precompute.MergeDirs(ctx, h, *dirs, cfg.Output, logger)
		if err != nil {
			logger.Sugar().Errorw("merge", "error", err)

			return 1
		}
		fmt.Fprintf(os.Stdout, "%s: %d keys, %s\n", cfg.Output, st.Keys, humanize.Bytes(uint64(st.Bytes)))

		return 0
	}
}

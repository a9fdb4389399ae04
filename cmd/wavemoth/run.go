// SPDX-License-Identifier: MIT

package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/katalvlaran/wavemoth/legendre"
	"github.com/katalvlaran/wavemoth/pool"
	"github.com/katalvlaran/wavemoth/precompute"
	"gopkg.in/alecthomas/kingpin.v2"
)

func runCommand(app *kingpin.Application, g *globals) (*kingpin.CmdClause, handler) {
	cmd := app.Command("run", "compress every (m, odd) matrix and write the resource file")
	workers := cmd.Flag("workers", "parallel workers (overrides workers)").Int()
	output := cmd.Flag("output", "resource file (overrides output)").Short('o').String()
	keep := cmd.Flag("keep-shards", "keep worker shards after the merge").Bool()

	return cmd, func(ctx context.Context) int {
		cfg, logger, code := g.setup()
		if code != 0 {
			return code
		}
		defer func() { _ = logger.Sync() }()
		if *workers > 0 {
			cfg.Workers = *workers
		}
		if *output != "" {
			cfg.Output = *output
		}
		cfg.KeepShards = cfg.KeepShards || *keep

		p, err := legendre.NewProvider(cfg)
		if err != nil {
			logger.Sugar().Errorw("provider", "error", err)

			return 1
		}
		var exec pool.Executor[precompute.Report]
		if cfg.Workers == 1 {
			exec = pool.NewImmediate[precompute.Report]()
		} else {
			exec = pool.NewPool[precompute.Report](ctx, cfg.Workers)
		}
		sum, err := precompute.Run(ctx, cfg, p, exec, logger)
		_ = exec.Close()
		if err != nil {
			logger.Sugar().Errorw("run", "error", err)

			return 1
		}
		fmt.Fprintf(os.Stdout, "%s: %d keys, %s in %s\n",
			sum.Output, sum.Merge.Keys, humanize.Bytes(uint64(sum.Merge.Bytes)), sum.Elapsed.Round(time.Millisecond))

		return 0
	}
}

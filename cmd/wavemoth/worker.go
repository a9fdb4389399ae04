// SPDX-License-Identifier: MIT

package main

import (
	"context"
	"fmt"
	"os"

	"github.com/katalvlaran/wavemoth/legendre"
	"github.com/katalvlaran/wavemoth/precompute"
	"github.com/katalvlaran/wavemoth/shard"
	"go.uber.org/zap"
	"gopkg.in/alecthomas/kingpin.v2"
)

// workerCommand runs one partition of a distributed run; `merge` assembles
// the shards afterwards.
func workerCommand(app *kingpin.Application, g *globals) (*kingpin.CmdClause, handler) {
	cmd := app.Command("worker", "compress one round-robin partition of the keys into a shard")
	index := cmd.Flag("index", "partition index").Required().Int()
	count := cmd.Flag("count", "number of partitions").Required().Int()
	dir := cmd.Arg("shard", "shard directory").Required().String()

	return cmd, func(ctx context.Context) int {
		cfg, logger, code := g.setup()
		if code != 0 {
			return code
		}
		defer func() { _ = logger.Sync() }()
		if *count < 1 || *index < 0 || *index >= *count {
			fmt.Fprintf(os.Stderr, "wavemoth: --index %d outside [0, %d)\n", *index, *count)

			return 2
		}
		codec, err := shard.ParseCodec(cfg.ShardCodec)
		if err != nil {
			fmt.Fprintln(os.Stderr, "wavemoth:", err)

			return 2
		}
		p, err := legendre.NewProvider(cfg)
		if err != nil {
			logger.Sugar().Errorw("provider", "error", err)

			return 1
		}
		log := logger.With(zap.Int("worker", *index))
		st, err := shard.Open(*dir, shard.WithCodec(codec), shard.WithLogger(log))
		if err != nil {
			log.Sugar().Errorw("open shard", "error", err)

			return 1
		}
		w := &precompute.Worker{Provider: p, Store: st, RaiseOnFPError: cfg.RaiseFPErrors, Logger: log}
		_, err = w.Run(ctx, precompute.Partition(precompute.Keys(cfg.Mmax), *count, *index))
		if cerr := st.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			log.Sugar().Errorw("worker", "error", err)

			return 1
		}

		return 0
	}
}

// SPDX-License-Identifier: MIT

package precompute

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/katalvlaran/wavemoth/config"
	"github.com/katalvlaran/wavemoth/pool"
	"github.com/katalvlaran/wavemoth/resource"
	"github.com/katalvlaran/wavemoth/shard"
	"go.uber.org/zap"
)

// Summary describes a finished Run.
type Summary struct {
	RunID   string
	Output  string
	Workers []Report
	Merge   MergeStats
	Elapsed time.Duration
}

// ShardDirs lists the per-worker shard directories of a run.
func ShardDirs(root, runID string, workers int) []string {
	dirs := make([]string, workers)
	for i := range dirs {
		dirs[i] = filepath.Join(root, runID, "worker-"+strconv.Itoa(i))
	}

	return dirs
}

// Run partitions the keys of provider over cfg.Workers tasks submitted
// to exec, waits for all of them and merges the shards into cfg.Output.
// The output appears atomically; on failure the shards are kept.
func Run(ctx context.Context, cfg config.Config, provider Provider, exec pool.Executor[Report], logger *zap.Logger) (Summary, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	sugar := logger.Sugar()
	if err := cfg.Validate(); err != nil {
		return Summary{}, fmt.Errorf("precompute: %w: %w", ErrInvalidPlan, err)
	}
	codec, err := shard.ParseCodec(cfg.ShardCodec)
	if err != nil {
		return Summary{}, fmt.Errorf("precompute: %w: %w", ErrInvalidPlan, err)
	}
	h := provider.Header()
	if h.Lmax != cfg.Lmax || h.Mmax != cfg.Mmax || h.Nside != cfg.Nside {
		return Summary{}, fmt.Errorf("precompute: provider header %+v does not match config: %w", h, ErrInvalidPlan)
	}

	start := time.Now()
	sum := Summary{RunID: uuid.NewString(), Output: cfg.Output}
	keys := Keys(h.Mmax)
	dirs := ShardDirs(cfg.ShardDir, sum.RunID, cfg.Workers)
	sugar.Infow("run started",
		"run", sum.RunID,
		"nside", h.Nside, "lmax", h.Lmax, "mmax", h.Mmax,
		"keys", len(keys), "workers", cfg.Workers)

	handles := make([]*pool.Handle[Report], len(dirs))
	for i, dir := range dirs {
		part := Partition(keys, len(dirs), i)
		handles[i] = exec.Submit(func(ctx context.Context) (Report, error) {
			return runWorker(ctx, dir, part, provider, codec, cfg.RaiseFPErrors, logger.With(zap.Int("worker", i)))
		})
	}
	var failed []error
	for i, hd := range handles {
		rep, err := hd.Await(ctx)
		if err != nil {
			failed = append(failed, fmt.Errorf("worker %d: %w", i, err))

			continue
		}
		sum.Workers = append(sum.Workers, rep)
	}
	if err = errors.Join(failed...); err != nil {
		sugar.Errorw("run failed", "run", sum.RunID, "shards", filepath.Join(cfg.ShardDir, sum.RunID), "error", err)

		return sum, fmt.Errorf("precompute: %w", err)
	}

	if sum.Merge, err = MergeDirs(ctx, h, dirs, cfg.Output, logger); err != nil {
		return sum, err
	}
	if !cfg.KeepShards {
		if err = os.RemoveAll(filepath.Join(cfg.ShardDir, sum.RunID)); err != nil {
			sugar.Warnw("shard cleanup failed", "error", err)
		}
	}
	sum.Elapsed = time.Since(start)
	sugar.Infow("run done",
		"run", sum.RunID,
		"output", cfg.Output,
		"size", humanize.Bytes(uint64(sum.Merge.Bytes)),
		"elapsed", sum.Elapsed)

	return sum, nil
}

func runWorker(ctx context.Context, dir string, keys []resource.Key, p Provider, codec shard.Codec, raise bool, log *zap.Logger) (rep Report, err error) {
	st, err := shard.Open(dir, shard.WithCodec(codec), shard.WithLogger(log))
	if err != nil {
		return Report{}, err
	}
	defer func() {
		if cerr := st.Close(); err == nil {
			err = cerr
		}
	}()
	w := &Worker{Provider: p, Store: st, RaiseOnFPError: raise, Logger: log}

	return w.Run(ctx, keys)
}

// MergeDirs opens the shards in dirs, merges them and renames the result
// into place at output.
func MergeDirs(ctx context.Context, h resource.Header, dirs []string, output string, logger *zap.Logger) (st MergeStats, err error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	stores := make([]*shard.Store, 0, len(dirs))
	defer func() {
		for _, s := range stores {
			if cerr := s.Close(); err == nil && cerr != nil {
				err = fmt.Errorf("precompute: merge: %w", cerr)
			}
		}
	}()
	for _, dir := range dirs {
		if _, serr := os.Stat(dir); serr != nil {
			return st, fmt.Errorf("precompute: merge: %w", serr)
		}
		s, oerr := shard.Open(dir, shard.WithLogger(logger))
		if oerr != nil {
			return st, fmt.Errorf("precompute: merge: %w", oerr)
		}
		stores = append(stores, s)
	}

	if err = os.MkdirAll(filepath.Dir(output), 0o755); err != nil {
		return st, fmt.Errorf("precompute: merge: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(output), ".merge-*")
	if err != nil {
		return st, fmt.Errorf("precompute: merge: %w", err)
	}
	keep := false
	defer func() {
		if !keep {
			_ = os.Remove(tmp.Name())
		}
	}()
	if st, err = Merge(ctx, h, stores, tmp); err != nil {
		_ = tmp.Close()

		return st, err
	}
	if err = tmp.Chmod(0o644); err == nil {
		err = tmp.Sync()
	}
	if err == nil {
		err = tmp.Close()
	}
	if err == nil {
		err = os.Rename(tmp.Name(), output)
	}
	if err != nil {
		_ = tmp.Close()

		return st, fmt.Errorf("precompute: merge: %w", err)
	}
	keep = true
	logger.Info("merged",
		zap.String("output", output),
		zap.Int("keys", st.Keys),
		zap.Int("duplicates", st.Duplicates),
		zap.String("size", humanize.Bytes(uint64(st.Bytes))))

	return st, nil
}

// SPDX-License-Identifier: MIT

package main

import (
	"context"
	"fmt"
	"os"

	"github.com/katalvlaran/wavemoth/legendre"
	"github.com/katalvlaran/wavemoth/precompute"
	"github.com/katalvlaran/wavemoth/resource"
	"gopkg.in/alecthomas/kingpin.v2"
)

// verifyCommand recomputes one dense matrix and compares it with the tree
// stored for its key.
func verifyCommand(app *kingpin.Application, g *globals) (*kingpin.CmdClause, handler) {
	cmd := app.Command("verify", "compare a stored tree with its dense matrix on the unit basis")
	path := cmd.Arg("file", "resource file").Required().ExistingFile()
	m := cmd.Arg("m", "order").Required().Int()
	odd := cmd.Flag("odd", "odd parity").Bool()
	tol := cmd.Flag("tol", "largest acceptable residual; 0 means 100*eps").Float64()

	return cmd, func(context.Context) int {
		cfg, logger, code := g.setup()
		if code != 0 {
			return code
		}
		defer func() { _ = logger.Sync() }()
		r, err := resource.Open(*path)
		if err != nil {
			fmt.Fprintln(os.Stderr, "wavemoth:", err)

			return 1
		}
		defer r.Close()

		// The file header is authoritative for the matrix shape.
		h := r.Header()
		cfg.Nside, cfg.Lmax, cfg.Mmax = h.Nside, h.Lmax, h.Mmax
		p, err := legendre.NewProvider(cfg)
		if err != nil {
			fmt.Fprintln(os.Stderr, "wavemoth:", err)

			return 1
		}
		k := resource.Key{M: *m, Odd: *odd}
		prob, err := p.Problem(k)
		if err != nil {
			fmt.Fprintln(os.Stderr, "wavemoth:", err)

			return 1
		}
		tree, combined, err := r.Tree(k)
		if err != nil {
			fmt.Fprintln(os.Stderr, "wavemoth:", err)

			return 1
		}
		res, err := precompute.Verify(tree, prob.Matrix)
		if err != nil {
			fmt.Fprintln(os.Stderr, "wavemoth:", err)

			return 1
		}
		limit := *tol
		if limit == 0 {
			limit = 100 * tree.Eps()
		}
		fmt.Printf("%s: %dx%d combined=%d forward=%.3e (column %d) transpose=%.3e limit=%.1e\n",
			k, tree.Rows(), tree.Cols(), combined, res.Forward, res.WorstColumn, res.Transpose, limit)
		if res.Forward > limit || res.Transpose > limit {
			return 1
		}

		return 0
	}
}

// SPDX-License-Identifier: MIT

package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/katalvlaran/wavemoth/resource"
	"gopkg.in/alecthomas/kingpin.v2"
)

func inspectCommand(app *kingpin.Application, _ *globals) (*kingpin.CmdClause, handler) {
	cmd := app.Command("inspect", "print the header and per-key tree summaries of a resource file")
	path := cmd.Arg("file", "resource file").Required().ExistingFile()
	headerOnly := cmd.Flag("header", "print the header only").Bool()

	return cmd, func(context.Context) int {
		if *headerOnly {
			h, err := resource.QueryFile(*path)
			if err != nil {
				fmt.Fprintln(os.Stderr, "wavemoth:", err)

				return 1
			}
			fmt.Printf("lmax=%d mmax=%d nside=%d\n", h.Lmax, h.Mmax, h.Nside)

			return 0
		}
		r, err := resource.Open(*path)
		if err != nil {
			fmt.Fprintln(os.Stderr, "wavemoth:", err)

			return 1
		}
		defer r.Close()

		h := r.Header()
		fmt.Printf("lmax=%d mmax=%d nside=%d size=%s\n", h.Lmax, h.Mmax, h.Nside, humanize.Bytes(uint64(r.Size())))
		tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', tabwriter.AlignRight)
		fmt.Fprintln(tw, "key\trows\tcols\tnodes\tmax rank\tstored\tbytes\t")
		var total int64
		for _, k := range r.Keys() {
			info, err := r.Inspect(k)
			if err != nil {
				fmt.Fprintln(os.Stderr, "wavemoth:", err)

				return 1
			}
			total += info.StoredElements
			fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%d\t%s\t%s\t\n", k, info.Rows, info.Cols, info.Nodes, info.MaxRank,
				humanize.Comma(info.StoredElements), humanize.Bytes(uint64(info.Bytes)))
		}
		_ = tw.Flush()
		fmt.Printf("%d keys, %s stored elements\n", len(r.Keys()), humanize.Comma(total))

		return 0
	}
}

// SPDX-License-Identifier: MIT

package main

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/alecthomas/kingpin.v2"
)

func configCommand(app *kingpin.Application, g *globals) (*kingpin.CmdClause, handler) {
	cmd := app.Command("config", "print the effective configuration as TOML")

	return cmd, func(context.Context) int {
		cfg, err := g.load()
		if err != nil {
			fmt.Fprintln(os.Stderr, "wavemoth:", err)

			return 2
		}
		if err = cfg.Encode(os.Stdout); err != nil {
			fmt.Fprintln(os.Stderr, "wavemoth:", err)

			return 1
		}

		return 0
	}
}

// SPDX-License-Identifier: MIT

// Command wavemoth precomputes, inspects, verifies and publishes butterfly
// compressed Legendre resource files.
//
//	wavemoth run --config run.toml
//	wavemoth worker --config run.toml --index 2 --count 8 shards/w2
//	wavemoth merge --config run.toml shards/w0 shards/w1 ...
//	wavemoth inspect rev1/64.dat
//	wavemoth verify --config run.toml rev1/64.dat 3 --odd
//	wavemoth publish --config run.toml rev1/64.dat
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"gopkg.in/alecthomas/kingpin.v2"
)

type handler func(ctx context.Context) int

type command func(app *kingpin.Application, g *globals) (*kingpin.CmdClause, handler)

var commands = []command{
	runCommand,
	workerCommand,
	mergeCommand,
	inspectCommand,
	verifyCommand,
	publishCommand,
	configCommand,
}

// newApp builds the application with every command registered.
func newApp() (*kingpin.Application, *globals, map[string]handler) {
	app := kingpin.New("wavemoth", "Butterfly compression of spherical harmonic transform matrices.")
	app.HelpFlag.Short('h')
	g := addGlobals(app)

	handlers := map[string]handler{}
	for _, cmd := range commands {
		clause, h := cmd(app, g)
		handlers[clause.FullCommand()] = h
	}

	return app, g, handlers
}

func main() {
	app, _, handlers := newApp()
	input := kingpin.MustParse(app.Parse(os.Args[1:]))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := handlers[input](ctx)
	stop()
	os.Exit(code)
}

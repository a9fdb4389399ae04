// SPDX-License-Identifier: MIT

package main

import (
	"fmt"
	"os"

	"github.com/katalvlaran/wavemoth/config"
	"go.uber.org/zap"
	"gopkg.in/alecthomas/kingpin.v2"
)

// globals are the flags shared by every command. Flags left unset keep the
// values from the config file.
type globals struct {
	configPath *string
	logFormat  *string
	nside      *int
	lmax       *int
	mmax       *int
	eps        *float64
	minRows    *int
	chunkSize  *int
}

func addGlobals(app *kingpin.Application) *globals {
	return &globals{
		configPath: app.Flag("config", "TOML run configuration").Short('c').Envar("WAVEMOTH_CONFIG").String(),
		logFormat:  app.Flag("log-format", "console or json (overrides log_format)").Enum("console", "json"),
		nside:      app.Flag("nside", "HEALPix Nside (overrides nside)").Int(),
		lmax:       app.Flag("lmax", "maximum degree (overrides lmax)").Int(),
		mmax:       app.Flag("mmax", "maximum order (overrides mmax)").Int(),
		eps:        app.Flag("eps", "interpolative decomposition tolerance (overrides eps)").Float64(),
		minRows:    app.Flag("min-rows", "smallest node row count (overrides min_rows)").Int(),
		chunkSize:  app.Flag("chunk-size", "root column group width (overrides chunk_size)").Int(),
	}
}

// load reads the config file, applies flag overrides and validates.
func (g *globals) load() (config.Config, error) {
	cfg := config.Default()
	if *g.configPath != "" {
		var err error
		if cfg, err = config.Load(*g.configPath); err != nil {
			return config.Config{}, err
		}
	}
	if *g.nside != 0 {
		// lmax, mmax and output follow the new Nside unless given explicitly.
		cfg.Nside = *g.nside
		cfg.Lmax, cfg.Mmax, cfg.Output = 0, 0, ""
	}
	if *g.lmax != 0 {
		cfg.Lmax = *g.lmax
	}
	if *g.mmax != 0 {
		cfg.Mmax = *g.mmax
	}
	if *g.eps != 0 {
		cfg.Eps = *g.eps
	}
	if *g.minRows != 0 {
		cfg.MinRows = *g.minRows
	}
	if *g.chunkSize != 0 {
		cfg.ChunkSize = *g.chunkSize
	}
	if *g.logFormat != "" {
		cfg.LogFormat = *g.logFormat
	}
	cfg.Resolve()
	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}

	return cfg, nil
}

func newLogger(format string) (*zap.Logger, error) {
	if format == "json" {
		return zap.NewProduction()
	}

	return zap.NewDevelopment()
}

// setup is load plus a logger; failures are printed and mapped to exit code 2.
func (g *globals) setup() (config.Config, *zap.Logger, int) {
	cfg, err := g.load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "wavemoth:", err)

		return cfg, nil, 2
	}
	logger, err := newLogger(cfg.LogFormat)
	if err != nil {
		fmt.Fprintln(os.Stderr, "wavemoth: logger:", err)

		return cfg, nil, 2
	}

	return cfg, logger, 0
}

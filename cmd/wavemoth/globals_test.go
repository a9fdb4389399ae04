package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parseGlobals(t *testing.T, args ...string) *globals {
	t.Helper()
	app, g, handlers := newApp()
	input, err := app.Parse(append(args, "config"))
	require.NoError(t, err)
	require.Contains(t, handlers, input)

	return g
}

func TestLoadFlagsOverrideFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.toml")
	require.NoError(t, os.WriteFile(path, []byte("nside = 8\neps = 1e-8\nworkers = 3\n"), 0o600))

	cfg, err := parseGlobals(t, "--config", path).load()
	require.NoError(t, err)
	assert.Equal(t, 8, cfg.Nside)
	assert.Equal(t, 16, cfg.Lmax)
	assert.Equal(t, 1e-8, cfg.Eps)
	assert.Equal(t, 3, cfg.Workers)

	cfg, err = parseGlobals(t, "--config", path, "--nside", "32", "--mmax", "10", "--eps", "1e-12").load()
	require.NoError(t, err)
	assert.Equal(t, 32, cfg.Nside)
	assert.Equal(t, 64, cfg.Lmax)
	assert.Equal(t, 10, cfg.Mmax)
	assert.Equal(t, 1e-12, cfg.Eps)
	assert.Equal(t, "rev1/32.dat", cfg.Output)
}

func TestLoadRejectsInvalid(t *testing.T) {
	_, err := parseGlobals(t, "--nside", "4", "--mmax", "20").load()
	require.Error(t, err)
}

func TestHelpHasShortFlag(t *testing.T) {
	app, _, _ := newApp()
	var short rune
	for _, f := range app.Model().Flags {
		if f.Name == "help" {
			short = f.Short
		}
	}
	assert.Equal(t, 'h', short)
}

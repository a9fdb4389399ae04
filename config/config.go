// SPDX-License-Identifier: MIT

// Package config loads the TOML description of a precompute run.
//
// Example:
//
//	nside = 64
//	eps = 1e-10
//	workers = 8
//	output = "data/rev1/64.dat"
//
//	[publish]
//	backend = "s3"
//	bucket = "wavemoth-tables"
//
// lmax and mmax default to 2·nside when omitted.
package config

import (
	"errors"
	"fmt"
	"io"
	"math"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/katalvlaran/wavemoth/shard"
)

// Default values applied by Default and Load.
const (
	DefaultNside      = 16
	DefaultMinRows    = 32
	DefaultChunkSize  = 32
	DefaultEps        = 1e-10
	DefaultWorkers    = 1
	DefaultShardDir   = "shards"
	DefaultShardCodec = "zstd"
	DefaultLogFormat  = "console"
	DefaultBackend    = "local"
)

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("config: invalid")

// Publish describes where `wavemoth publish` uploads resource files.
type Publish struct {
	Backend  string `toml:"backend"`
	Root     string `toml:"root"`
	Bucket   string `toml:"bucket"`
	Prefix   string `toml:"prefix"`
	Endpoint string `toml:"endpoint"`
	Region   string `toml:"region"`
	Secure   bool   `toml:"secure"`
}

// Config is one precompute run.
type Config struct {
	Nside         int     `toml:"nside"`
	Lmax          int     `toml:"lmax"`
	Mmax          int     `toml:"mmax"`
	MinRows       int     `toml:"min_rows"`
	ChunkSize     int     `toml:"chunk_size"`
	Eps           float64 `toml:"eps"`
	Workers       int     `toml:"workers"`
	ShardDir      string  `toml:"shard_dir"`
	ShardCodec    string  `toml:"shard_codec"`
	KeepShards    bool    `toml:"keep_shards"`
	Output        string  `toml:"output"`
	RaiseFPErrors bool    `toml:"raise_fp_errors"`
	LogFormat     string  `toml:"log_format"`
	Publish       Publish `toml:"publish"`
}

// Default returns the defaults; Lmax and Mmax are left 0 so they follow Nside.
func Default() Config {
	return Config{
		Nside:         DefaultNside,
		MinRows:       DefaultMinRows,
		ChunkSize:     DefaultChunkSize,
		Eps:           DefaultEps,
		Workers:       DefaultWorkers,
		ShardDir:      DefaultShardDir,
		ShardCodec:    DefaultShardCodec,
		RaiseFPErrors: true,
		LogFormat:     DefaultLogFormat,
		Publish:       Publish{Backend: DefaultBackend},
	}
}

// Load reads path over the defaults and resolves derived values.
// Unknown keys are an error.
func Load(path string) (Config, error) {
	c := Default()
	md, err := toml.DecodeFile(path, &c)
	if err != nil {
		return Config{}, fmt.Errorf("config: %s: %w", path, err)
	}
	if err = checkUndecoded(md); err != nil {
		return Config{}, fmt.Errorf("config: %s: %w", path, err)
	}
	c.Resolve()

	return c, nil
}

// Parse is Load for an in-memory document.
func Parse(doc string) (Config, error) {
	c := Default()
	md, err := toml.Decode(doc, &c)
	if err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	if err = checkUndecoded(md); err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	c.Resolve()

	return c, nil
}

func checkUndecoded(md toml.MetaData) error {
	keys := md.Undecoded()
	if len(keys) == 0 {
		return nil
	}
	names := make([]string, len(keys))
	for i, k := range keys {
		names[i] = k.String()
	}
	sort.Strings(names)

	return fmt.Errorf("unknown keys %s: %w", strings.Join(names, ", "), ErrInvalid)
}

// Resolve fills Lmax, Mmax and Output from Nside when unset.
func (c *Config) Resolve() {
	if c.Lmax == 0 {
		c.Lmax = 2 * c.Nside
	}
	if c.Mmax == 0 {
		c.Mmax = c.Lmax
	}
	if c.Output == "" {
		c.Output = fmt.Sprintf("rev1/%d.dat", c.Nside)
	}
}

// Validate reports the first unusable value.
func (c Config) Validate() error {
	fail := func(format string, args ...interface{}) error {
		return fmt.Errorf("config: "+format+": %w", append(args, ErrInvalid)...)
	}
	switch {
	case c.Nside < 1:
		return fail("nside=%d", c.Nside)
	case c.Mmax < 0 || c.Lmax < c.Mmax:
		return fail("need 0 <= mmax <= lmax, have mmax=%d lmax=%d", c.Mmax, c.Lmax)
	case c.MinRows < 1:
		return fail("min_rows=%d", c.MinRows)
	case c.ChunkSize < 1:
		return fail("chunk_size=%d", c.ChunkSize)
	case !(c.Eps > 0) || math.IsInf(c.Eps, 0):
		return fail("eps=%g", c.Eps)
	case c.Workers < 1:
		return fail("workers=%d", c.Workers)
	case c.Output == "":
		return fail("output is empty")
	case c.ShardDir == "":
		return fail("shard_dir is empty")
	case c.LogFormat != "console" && c.LogFormat != "json":
		return fail("log_format=%q", c.LogFormat)
	}
	if _, err := shard.ParseCodec(c.ShardCodec); err != nil {
		return fail("shard_codec: %v", err)
	}
	switch c.Publish.Backend {
	case "local", "s3", "minio":
	default:
		return fail("publish.backend=%q", c.Publish.Backend)
	}
	if c.Publish.Backend != "local" && c.Publish.Bucket == "" {
		return fail("publish.bucket is required for %s", c.Publish.Backend)
	}
	if c.Publish.Backend == "minio" && c.Publish.Endpoint == "" {
		return fail("publish.endpoint is required for minio")
	}

	return nil
}

// Encode writes c as TOML.
func (c Config) Encode(w io.Writer) error {
	return toml.NewEncoder(w).Encode(c)
}

// SPDX-License-Identifier: MIT

package shard

import "go.uber.org/zap"

// DefaultCodec compresses payloads with zstd.
const DefaultCodec = CodecZstd

// Options configures Open.
type Options struct {
	Codec  Codec
	Logger *zap.Logger
}

// Option mutates Options.
type Option func(*Options)

// WithCodec selects the payload codec for new writes.
// It panics on an unknown codec.
func WithCodec(c Codec) Option {
	if c > CodecZstd {
		panic("shard: WithCodec: unknown codec")
	}

	return func(o *Options) { o.Codec = c }
}

// WithLogger attaches a logger; nil means zap.NewNop().
func WithLogger(l *zap.Logger) Option {
	return func(o *Options) { o.Logger = l }
}

func gatherOptions(opts []Option) Options {
	o := Options{Codec: DefaultCodec}
	for _, fn := range opts {
		fn(&o)
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}

	return o
}

// SPDX-License-Identifier: MIT

package shard

import (
	"encoding/binary"
	"fmt"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Codec selects the payload compression. The codec byte is stored with
// every payload, so stores written with different codecs read back alike.
type Codec uint8

const (
	// CodecNone stores tree bytes verbatim.
	CodecNone Codec = 0
	// CodecLZ4 uses LZ4 blocks with a uint32 length prefix.
	CodecLZ4 Codec = 1
	// CodecZstd uses a zstd frame.
	CodecZstd Codec = 2
)

// String returns the configuration name of c.
func (c Codec) String() string {
	switch c {
	case CodecNone:
		return "none"
	case CodecLZ4:
		return "lz4"
	case CodecZstd:
		return "zstd"
	}

	return fmt.Sprintf("codec(%d)", uint8(c))
}

// ParseCodec maps "none", "lz4" or "zstd" to a Codec.
func ParseCodec(name string) (Codec, error) {
	switch name {
	case "none", "":
		return CodecNone, nil
	case "lz4":
		return CodecLZ4, nil
	case "zstd":
		return CodecZstd, nil
	}

	return 0, fmt.Errorf("%q: %w", name, ErrUnknownCodec)
}

// payloadCodec holds the zstd state shared by a Store; EncodeAll and
// DecodeAll are safe for concurrent use.
type payloadCodec struct {
	enc *zstd.Encoder
	dec *zstd.Decoder
}

func newPayloadCodec() (*payloadCodec, error) {
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, err
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		_ = enc.Close()

		return nil, err
	}

	return &payloadCodec{enc: enc, dec: dec}, nil
}

func (pc *payloadCodec) close() {
	_ = pc.enc.Close()
	pc.dec.Close()
}

// encode returns the stored form of data. Incompressible LZ4 input falls
// back to CodecNone.
func (pc *payloadCodec) encode(c Codec, data []byte) ([]byte, error) {
	switch c {
	case CodecNone:
		return append([]byte{byte(CodecNone)}, data...), nil
	case CodecZstd:
		return pc.enc.EncodeAll(data, []byte{byte(CodecZstd)}), nil
	case CodecLZ4:
		out := make([]byte, 5+lz4.CompressBlockBound(len(data)))
		n, err := lz4.CompressBlock(data, out[5:], nil)
		if err != nil {
			return nil, err
		}
		if n == 0 {
			return pc.encode(CodecNone, data)
		}
		out[0] = byte(CodecLZ4)
		binary.LittleEndian.PutUint32(out[1:], uint32(len(data)))

		return out[:5+n], nil
	}

	return nil, fmt.Errorf("%v: %w", c, ErrUnknownCodec)
}

func (pc *payloadCodec) decode(stored []byte) ([]byte, error) {
	if len(stored) == 0 {
		return nil, fmt.Errorf("empty payload: %w", ErrCorrupt)
	}
	body := stored[1:]
	switch Codec(stored[0]) {
	case CodecNone:
		return append([]byte(nil), body...), nil
	case CodecZstd:
		out, err := pc.dec.DecodeAll(body, nil)
		if err != nil {
			return nil, fmt.Errorf("zstd: %v: %w", err, ErrCorrupt)
		}

		return out, nil
	case CodecLZ4:
		if len(body) < 4 {
			return nil, fmt.Errorf("lz4 header: %w", ErrCorrupt)
		}
		out := make([]byte, binary.LittleEndian.Uint32(body))
		n, err := lz4.UncompressBlock(body[4:], out)
		if err != nil || n != len(out) {
			return nil, fmt.Errorf("lz4: %d of %d bytes: %w", n, len(out), ErrCorrupt)
		}

		return out, nil
	}

	return nil, fmt.Errorf("codec byte %d: %w", stored[0], ErrUnknownCodec)
}

// Package compress provides the block codecs used to store finalized
// in-memory directory contents and harness artifacts in compact form.
//
// Test harnesses routinely hold hundreds of directories in memory at
// once; compressing finalized (immutable) file contents keeps the
// footprint of large randomized runs bounded.
package compress

import (
	"fmt"

	"github.com/golang/snappy"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Type identifies a compression codec.
type Type uint8

const (
	// None stores data uncompressed.
	None Type = iota

	// Snappy uses Google Snappy. Fast with modest ratios; the default.
	Snappy

	// LZ4 uses LZ4 fast mode.
	LZ4

	// Zstd uses Zstandard at the default level.
	Zstd
)

// String returns the human-readable codec name.
func (t Type) String() string {
	switch t {
	case None:
		return "none"
	case Snappy:
		return "snappy"
	case LZ4:
		return "lz4"
	case Zstd:
		return "zstd"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(t))
	}
}

// ParseType parses a codec name as it appears in settings.
func ParseType(s string) (Type, error) {
	switch s {
	case "none", "":
		return None, nil
	case "snappy":
		return Snappy, nil
	case "lz4":
		return LZ4, nil
	case "zstd":
		return Zstd, nil
	default:
		return None, fmt.Errorf("compress: unknown codec %q", s)
	}
}

// Encode compresses data with the given codec.
func Encode(t Type, data []byte) ([]byte, error) {
	switch t {
	case None:
		return data, nil

	case Snappy:
		return snappy.Encode(nil, data), nil

	case LZ4:
		buf := make([]byte, lz4.CompressBlockBound(len(data)))
		var c lz4.Compressor
		n, err := c.CompressBlock(data, buf)
		if err != nil {
			return nil, fmt.Errorf("compress: lz4 encode: %w", err)
		}
		if n == 0 {
			// Incompressible input; CompressBlock signals this with n == 0.
			return append(encodeRawHeader(len(data)), data...), nil
		}
		return append(encodeRawHeader(-len(data)), buf[:n]...), nil

	case Zstd:
		w, err := zstd.NewWriter(nil)
		if err != nil {
			return nil, fmt.Errorf("compress: zstd writer: %w", err)
		}
		out := w.EncodeAll(data, nil)
		if err := w.Close(); err != nil {
			return nil, fmt.Errorf("compress: zstd close: %w", err)
		}
		return out, nil

	default:
		return nil, fmt.Errorf("compress: unsupported codec %s", t)
	}
}

// Decode decompresses data produced by Encode with the same codec.
func Decode(t Type, data []byte) ([]byte, error) {
	switch t {
	case None:
		return data, nil

	case Snappy:
		out, err := snappy.Decode(nil, data)
		if err != nil {
			return nil, fmt.Errorf("compress: snappy decode: %w", err)
		}
		return out, nil

	case LZ4:
		size, payload, err := decodeRawHeader(data)
		if err != nil {
			return nil, err
		}
		if size >= 0 {
			// Stored uncompressed.
			return payload, nil
		}
		out := make([]byte, -size)
		n, err := lz4.UncompressBlock(payload, out)
		if err != nil {
			return nil, fmt.Errorf("compress: lz4 decode: %w", err)
		}
		return out[:n], nil

	case Zstd:
		r, err := zstd.NewReader(nil)
		if err != nil {
			return nil, fmt.Errorf("compress: zstd reader: %w", err)
		}
		defer r.Close()
		out, err := r.DecodeAll(data, nil)
		if err != nil {
			return nil, fmt.Errorf("compress: zstd decode: %w", err)
		}
		return out, nil

	default:
		return nil, fmt.Errorf("compress: unsupported codec %s", t)
	}
}

// LZ4 block framing: a fixed-width 8-byte little-endian length prefix.
// Negative means the payload is compressed and abs(size) is the original
// length; non-negative means the payload is stored raw.
func encodeRawHeader(size int) []byte {
	hdr := make([]byte, 8)
	v := uint64(int64(size))
	for i := 0; i < 8; i++ {
		hdr[i] = byte(v >> (8 * i))
	}
	return hdr
}

func decodeRawHeader(data []byte) (int, []byte, error) {
	if len(data) < 8 {
		return 0, nil, fmt.Errorf("compress: lz4 block too short (%d bytes)", len(data))
	}
	var v uint64
	for i := 0; i < 8; i++ {
		v |= uint64(data[i]) << (8 * i)
	}
	return int(int64(v)), data[8:], nil
}

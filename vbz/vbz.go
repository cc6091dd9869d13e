/*
Package vbz implements the VBZ codec used to compress nanopore raw signal
chunks.

The pipeline is, in order: delta against the previous sample (initial
previous is zero), zig-zag mapping of the (possibly negative) delta to an
unsigned value, packing via stream-vbyte-16 (one key bit per sample: 0
means the packed value fits in one byte, 1 means two bytes), then a zstd
pass over the packed bytes.

The stream-vbyte stage is the same idea as github.com/koeng101/svb, which
bebop-poly's bio/slow5 package already uses to shrink raw nanopore signal
before storage; VBZ generalizes it from svb's fixed 4-byte lanes to a
1-/2-byte keyed scheme and adds the zig-zag/delta and zstd stages around
it.

Cheers,

Keoni
*/
package vbz

import (
	"fmt"

	"github.com/klauspost/compress/zstd"
)

// MaxCompressedSize returns an upper bound, in bytes, on the size of the
// VBZ-compressed output for n samples. It is intentionally loose: it
// bounds the packed stream-vbyte size (key bytes plus up to 2 bytes of
// data per sample) and then pads by a zstd frame-overhead bound.
func MaxCompressedSize(n int) (int, error) {
	if n < 0 {
		return 0, fmt.Errorf("vbz: negative sample count %d: %w", n, ErrInvalidArgument)
	}
	packed := packedBound(n)
	return zstdCompressBound(packed), nil
}

// packedBound returns an upper bound on the stream-vbyte-16 packed size
// for n samples: ceil(n/8) key bytes plus at most 2 bytes of data per
// sample.
func packedBound(n int) int {
	return keyLen(n) + 2*n
}

// zstdCompressBound mirrors the classic ZSTD_compressBound formula: a
// cheap, always-sufficient upper bound on the compressed size of a
// srcSize-byte buffer, without needing to actually run the encoder.
func zstdCompressBound(srcSize int) int {
	bound := srcSize + (srcSize >> 8)
	if srcSize < 128<<10 {
		bound += (128<<10 - srcSize) >> 11
	}
	return bound + 12
}

var encoder, _ = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
var decoder, _ = zstd.NewReader(nil)

// Compress encodes samples into a VBZ byte stream.
func Compress(samples []int16) ([]byte, error) {
	packed := pack(samples)
	return encoder.EncodeAll(packed, make([]byte, 0, len(packed)/2+16)), nil
}

// Decompress decodes a VBZ byte stream produced by Compress back into n
// samples, writing them into out. len(out) must equal n.
func Decompress(compressed []byte, n int, out []int16) error {
	if len(out) != n {
		return fmt.Errorf("vbz: output buffer has %d elements, want %d: %w", len(out), n, ErrInvalidArgument)
	}
	packed, err := decoder.DecodeAll(compressed, make([]byte, 0, packedBound(n)))
	if err != nil {
		return fmt.Errorf("vbz: zstd decompress failed: %w", err)
	}
	if hasVectorizedDecode() {
		return decodeVectorized(packed, n, out)
	}
	return unpack(packed, n, out)
}

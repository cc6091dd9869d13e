package vbz

import "golang.org/x/sys/cpu"

// This file provides a vectorized-shaped decode path, gated on SSSE3
// availability the way pod5_format/svb16/streamvbytedelta_x64_decode_16.c
// gates its intrinsics path. Real SSSE3 shuffle/prefix-sum intrinsics
// require Plan 9 assembly; this module instead processes 32-value
// blocks (4 key bytes each, one key bit per value) in plain Go,
// including the all-zero-key fast path for a block where every sample
// packs into one byte. It is there to mirror the reference algorithm's
// block structure and is verified bit-for-bit equal to the scalar path
// (see vbz_test.go), not to provide real SIMD throughput.

const vectorBlockSize = 32

// hasVectorizedDecode reports whether the host can plausibly run the
// vectorized decode path. It gates nothing functionally (both paths
// produce identical output) but keeps the dispatch point the reference
// implementation has.
func hasVectorizedDecode() bool {
	return cpu.X86.HasSSSE3
}

// decodeVectorized decodes data (n values, keyLen(n) key bytes followed
// by packed data) into out, 32 samples at a time. Each 32-sample block
// consumes 4 key bytes (32 bits — one bit per value). A block whose 4 key
// bytes are all zero means every value in it packed to a single byte; in
// that case the block is a simple 8-bit-to-16-bit widen instead of a
// per-value branch, mirroring the reference's u8->u16 widening fast path.
func decodeVectorized(data []byte, n int, out []int16) error {
	kl := keyLen(n)
	if len(data) < kl {
		return ErrCorrupt
	}
	keys := data[:kl]
	payload := data[kl:]

	var prev uint16
	pos := 0
	i := 0
	for ; i+vectorBlockSize <= n; i += vectorBlockSize {
		keyBlockStart := i / 8
		keyBlock := keys[keyBlockStart : keyBlockStart+4]
		allZero := keyBlock[0] == 0 && keyBlock[1] == 0 && keyBlock[2] == 0 && keyBlock[3] == 0

		if allZero {
			if pos+vectorBlockSize > len(payload) {
				return ErrCorrupt
			}
			for j := 0; j < vectorBlockSize; j++ {
				z := uint16(payload[pos+j])
				delta := zigzagDecode16(z)
				raw := delta + prev
				out[i+j] = int16(raw)
				prev = raw
			}
			pos += vectorBlockSize
			continue
		}

		for j := 0; j < vectorBlockSize; j++ {
			sampleIdx := i + j
			byteIdx := sampleIdx >> 3
			shift := uint(sampleIdx & 7)
			code := (keys[byteIdx] >> shift) & 1

			var z uint16
			if code == 0 {
				if pos >= len(payload) {
					return ErrCorrupt
				}
				z = uint16(payload[pos])
				pos++
			} else {
				if pos+1 >= len(payload) {
					return ErrCorrupt
				}
				z = uint16(payload[pos]) | uint16(payload[pos+1])<<8
				pos += 2
			}
			delta := zigzagDecode16(z)
			raw := delta + prev
			out[sampleIdx] = int16(raw)
			prev = raw
		}
	}

	// Tail: fewer than vectorBlockSize values remain, fall back to the
	// scalar per-value loop.
	for ; i < n; i++ {
		byteIdx := i >> 3
		shift := uint(i & 7)
		code := (keys[byteIdx] >> shift) & 1

		var z uint16
		if code == 0 {
			if pos >= len(payload) {
				return ErrCorrupt
			}
			z = uint16(payload[pos])
			pos++
		} else {
			if pos+1 >= len(payload) {
				return ErrCorrupt
			}
			z = uint16(payload[pos]) | uint16(payload[pos+1])<<8
			pos += 2
		}
		delta := zigzagDecode16(z)
		raw := delta + prev
		out[i] = int16(raw)
		prev = raw
	}

	if pos != len(payload) {
		return ErrCorrupt
	}
	return nil
}

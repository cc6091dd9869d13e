package vbz

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func roundTrip(t *testing.T, samples []int16) {
	t.Helper()
	compressed, err := Compress(samples)
	if err != nil {
		t.Fatalf("Compress: %s", err)
	}
	bound, err := MaxCompressedSize(len(samples))
	if err != nil {
		t.Fatalf("MaxCompressedSize: %s", err)
	}
	if len(compressed) > bound {
		t.Errorf("compressed size %d exceeds MaxCompressedSize %d", len(compressed), bound)
	}

	out := make([]int16, len(samples))
	if err := Decompress(compressed, len(samples), out); err != nil {
		t.Fatalf("Decompress: %s", err)
	}
	if diff := cmp.Diff(samples, out); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestRoundTripEmpty(t *testing.T) {
	roundTrip(t, nil)
}

func TestRoundTripSingleElement(t *testing.T) {
	roundTrip(t, []int16{0})
	roundTrip(t, []int16{-32768})
	roundTrip(t, []int16{32767})
}

func TestRoundTripKnownRuns(t *testing.T) {
	// Repeated constant values pack to one-byte deltas with all key bits
	// zero (S3). Four samples are fewer than one 32-value block, so the
	// vectorized decoder handles them in its per-value tail loop.
	roundTrip(t, []int16{100, 100, 100, 100})
}

func TestRoundTripExtremes(t *testing.T) {
	roundTrip(t, []int16{0, 1, -1, 32767, -32768})
}

func TestRoundTripLarge(t *testing.T) {
	n := 1 << 16
	samples := make([]int16, n)
	state := int16(42)
	for i := range samples {
		state = state*1103 + int16(i)
		samples[i] = state
	}
	roundTrip(t, samples)
}

func TestRoundTripAcrossBlockBoundaries(t *testing.T) {
	for _, n := range []int{1, 7, 8, 9, 31, 32, 33, 63, 64, 65, 127, 128, 129} {
		samples := make([]int16, n)
		for i := range samples {
			samples[i] = int16(i*7 - 3)
		}
		roundTrip(t, samples)
	}
}

func TestScalarAndVectorizedDecodeAgree(t *testing.T) {
	n := 257
	samples := make([]int16, n)
	for i := range samples {
		samples[i] = int16((i * 31) % 65536)
	}
	packed := pack(samples)

	scalarOut := make([]int16, n)
	if err := unpack(packed, n, scalarOut); err != nil {
		t.Fatalf("unpack: %s", err)
	}

	vectorOut := make([]int16, n)
	if err := decodeVectorized(packed, n, vectorOut); err != nil {
		t.Fatalf("decodeVectorized: %s", err)
	}

	if diff := cmp.Diff(scalarOut, vectorOut); diff != "" {
		t.Errorf("scalar vs vectorized decode mismatch (-scalar +vector):\n%s", diff)
	}
	if diff := cmp.Diff(samples, scalarOut); diff != "" {
		t.Errorf("scalar decode did not reproduce input (-want +got):\n%s", diff)
	}
}

func TestDecompressRejectsWrongOutputLength(t *testing.T) {
	compressed, err := Compress([]int16{1, 2, 3})
	if err != nil {
		t.Fatalf("Compress: %s", err)
	}
	out := make([]int16, 2)
	if err := Decompress(compressed, 3, out); err == nil {
		t.Fatal("expected error for mismatched output buffer length")
	}
}

func TestDecompressRejectsCorruptBuffer(t *testing.T) {
	out := make([]int16, 4)
	if err := Decompress([]byte("not a zstd frame"), 4, out); err == nil {
		t.Fatal("expected error decompressing an invalid buffer")
	}
}

func TestUnpackRejectsTruncatedPayload(t *testing.T) {
	samples := []int16{1, 2, 3, 4, 5}
	packed := pack(samples)
	truncated := packed[:len(packed)-1]
	out := make([]int16, len(samples))
	if err := unpack(truncated, len(samples), out); err == nil {
		t.Fatal("expected error unpacking truncated payload")
	}
}

func TestKeyLenMatchesCeilDiv8(t *testing.T) {
	for n := 0; n < 64; n++ {
		want := (n + 7) / 8
		if got := keyLen(n); got != want {
			t.Errorf("keyLen(%d) = %d, want %d", n, got, want)
		}
	}
}

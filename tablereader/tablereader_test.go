package tablereader

import (
	"bytes"
	"testing"

	"github.com/apache/arrow/go/v14/arrow/memory"
	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"

	"github.com/koeng101/pod5/schema"
	"github.com/koeng101/pod5/tablewriter"
)

func testMetadata() schema.Description {
	return schema.Description{
		FileIdentifier: "11111111-1111-1111-1111-111111111111",
		Software:       "pod5 go test",
		Pod5Version:    schema.Version{Major: 0, Minor: 3, Patch: 10},
	}
}

// fixedLocator satisfies the planner interface ExtractSamples expects,
// mapping a signal row index directly to (batch 0, row index) — correct
// for these single-batch tests.
type fixedLocator struct{}

func (fixedLocator) Locate(rowIndex uint64) (int, int, error) {
	return 0, int(rowIndex), nil
}

func TestSignalTableRoundTrip(t *testing.T) {
	mem := memory.NewGoAllocator()
	var buf bytes.Buffer

	w, err := tablewriter.NewSignalTableWriter(&buf, mem, testMetadata())
	if err != nil {
		t.Fatalf("NewSignalTableWriter: %v", err)
	}
	readID := uuid.New()
	samples := []int16{10, 20, 30, -5, -10}
	if _, err := w.AppendChunk(readID, samples); err != nil {
		t.Fatalf("AppendChunk: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	ra := bytes.NewReader(buf.Bytes())
	r, err := NewSignalTableReader(ra, mem, schema.Version{Major: 0, Minor: 3, Patch: 10})
	if err != nil {
		t.Fatalf("NewSignalTableReader: %v", err)
	}
	defer r.Close()

	got, err := r.ReadRow(0, 0)
	if err != nil {
		t.Fatalf("ReadRow: %v", err)
	}
	if diff := cmp.Diff(samples, got); diff != "" {
		t.Fatalf("samples round trip mismatch (-want +got):\n%s", diff)
	}

	gotID, err := r.ReadIDAt(0, 0)
	if err != nil {
		t.Fatalf("ReadIDAt: %v", err)
	}
	var want [16]byte
	copy(want[:], readID[:])
	if diff := cmp.Diff(want, gotID); diff != "" {
		t.Fatalf("read_id round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestReadTableRoundTrip(t *testing.T) {
	mem := memory.NewGoAllocator()
	var buf bytes.Buffer

	w, err := tablewriter.NewReadTableWriter(&buf, mem, testMetadata())
	if err != nil {
		t.Fatalf("NewReadTableWriter: %v", err)
	}
	row := tablewriter.ReadRow{
		ReadNumber:        7,
		Start:             1000,
		MedianBefore:      95.2,
		NumSamples:        200,
		Channel:           12,
		Well:              2,
		PoreType:          "r10.4.1",
		CalibrationOffset: 3.0,
		CalibrationScale:  0.2,
		EndReason:         "signal_positive",
		EndReasonForced:   false,
		RunInfo:           "acq-1",
		Signal:            []uint64{0},
	}
	if err := w.AppendRead(row); err != nil {
		t.Fatalf("AppendRead: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	ra := bytes.NewReader(buf.Bytes())
	r, err := NewReadTableReader(ra, mem, schema.Version{Major: 0, Minor: 3, Patch: 10})
	if err != nil {
		t.Fatalf("NewReadTableReader: %v", err)
	}
	defer r.Close()

	got, err := r.ReadRowAt(0, 0)
	if err != nil {
		t.Fatalf("ReadRowAt: %v", err)
	}
	if got.PoreType != "r10.4.1" {
		t.Errorf("PoreType = %q, want r10.4.1", got.PoreType)
	}
	if got.EndReason != "signal_positive" {
		t.Errorf("EndReason = %q, want signal_positive", got.EndReason)
	}
	if got.RunInfo != "acq-1" {
		t.Errorf("RunInfo = %q, want acq-1", got.RunInfo)
	}
	if got.ReadNumber != 7 {
		t.Errorf("ReadNumber = %d, want 7", got.ReadNumber)
	}
}

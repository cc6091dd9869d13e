package tablewriter

import (
	"bytes"
	"testing"
	"time"

	"github.com/apache/arrow/go/v14/arrow/memory"

	"github.com/koeng101/pod5/schema"
)

func testMetadata() schema.Description {
	return schema.Description{
		FileIdentifier: "11111111-1111-1111-1111-111111111111",
		Software:       "pod5 go test",
		Pod5Version:    schema.Version{Major: 0, Minor: 3, Patch: 10},
	}
}

func TestSignalTableWriterFlushesAtBatchSize(t *testing.T) {
	var buf bytes.Buffer
	w, err := NewSignalTableWriter(&buf, memory.NewGoAllocator(), testMetadata())
	if err != nil {
		t.Fatalf("NewSignalTableWriter: %v", err)
	}
	w.MaxRowsPerBatch = 2

	var readID [16]byte
	locs := make([]SignalRowLocation, 0, 3)
	for i := 0; i < 3; i++ {
		loc, err := w.AppendChunk(readID, []int16{1, 2, 3})
		if err != nil {
			t.Fatalf("AppendChunk: %v", err)
		}
		locs = append(locs, loc)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	if locs[0].Batch != 0 || locs[1].Batch != 0 || locs[2].Batch != 1 {
		t.Fatalf("unexpected batch assignment: %+v", locs)
	}
	if buf.Len() == 0 {
		t.Fatal("expected non-empty IPC stream output")
	}
}

func TestReadTableWriterWritesRows(t *testing.T) {
	var buf bytes.Buffer
	w, err := NewReadTableWriter(&buf, memory.NewGoAllocator(), testMetadata())
	if err != nil {
		t.Fatalf("NewReadTableWriter: %v", err)
	}

	row := ReadRow{
		ReadNumber:        1,
		Start:             0,
		MedianBefore:      120.5,
		NumSamples:        300,
		Channel:           17,
		Well:              1,
		PoreType:          "r10",
		CalibrationOffset: 2.5,
		CalibrationScale:  0.1,
		EndReason:         "signal_positive",
		EndReasonForced:   false,
		RunInfo:           "run-1",
		Signal:            []uint64{0, 1},
	}
	if err := w.AppendRead(row); err != nil {
		t.Fatalf("AppendRead: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if buf.Len() == 0 {
		t.Fatal("expected non-empty IPC stream output")
	}
}

func TestRunInfoTableWriterSingleBatch(t *testing.T) {
	var buf bytes.Buffer
	w, err := NewRunInfoTableWriter(&buf, memory.NewGoAllocator(), testMetadata())
	if err != nil {
		t.Fatalf("NewRunInfoTableWriter: %v", err)
	}
	row := RunInfoRow{
		AcquisitionID:        "acq-1",
		AcquisitionStartTime: time.Now(),
		AdcMax:               2047,
		AdcMin:               -2048,
		ContextTags:          map[string]string{"experiment_type": "genomic_dna"},
		SampleRate:           4000,
		TrackingID:           map[string]string{"device_id": "X1"},
	}
	if err := w.AppendRunInfo(row); err != nil {
		t.Fatalf("AppendRunInfo: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if buf.Len() == 0 {
		t.Fatal("expected non-empty IPC stream output")
	}
}

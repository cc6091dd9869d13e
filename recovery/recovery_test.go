package recovery

import (
	"bytes"
	"testing"

	"github.com/apache/arrow/go/v14/arrow"
	"github.com/apache/arrow/go/v14/arrow/array"
	"github.com/apache/arrow/go/v14/arrow/ipc"
	"github.com/apache/arrow/go/v14/arrow/memory"
)

func writeStream(t *testing.T, numBatches, rowsPerBatch int) []byte {
	t.Helper()
	mem := memory.NewGoAllocator()
	sch := arrow.NewSchema([]arrow.Field{
		{Name: "value", Type: arrow.PrimitiveTypes.Uint32},
	}, nil)

	var buf bytes.Buffer
	w := ipc.NewWriter(&buf, ipc.WithSchema(sch), ipc.WithAllocator(mem))

	next := uint32(0)
	for b := 0; b < numBatches; b++ {
		bldr := array.NewUint32Builder(mem)
		for i := 0; i < rowsPerBatch; i++ {
			bldr.Append(next)
			next++
		}
		col := bldr.NewArray()
		rec := array.NewRecord(sch, []arrow.Array{col}, int64(rowsPerBatch))
		if err := w.Write(rec); err != nil {
			t.Fatalf("Write batch %d: %v", b, err)
		}
		rec.Release()
		col.Release()
		bldr.Release()
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	return buf.Bytes()
}

func TestRecoverCleanStream(t *testing.T) {
	data := writeStream(t, 3, 4)
	mem := memory.NewGoAllocator()

	got, err := Recover(bytes.NewReader(data), mem)
	if err != nil {
		t.Fatalf("Recover: %v", err)
	}
	defer got.Release()

	if len(got.Batches) != 3 {
		t.Fatalf("recovered %d batches, want 3", len(got.Batches))
	}
	if got.RecoveredRows != 12 {
		t.Fatalf("RecoveredRows = %d, want 12", got.RecoveredRows)
	}
	if got.FailedBatch != nil {
		t.Fatalf("FailedBatch = %v, want nil for a clean stream", got.FailedBatch)
	}
}

func TestRecoverTruncatedStream(t *testing.T) {
	data := writeStream(t, 4, 5)
	// Cut the data well before the end, inside the final batch's
	// body: Recover should still return every batch that fully
	// preceded the cut.
	truncated := data[:len(data)-20]

	mem := memory.NewGoAllocator()
	got, err := Recover(bytes.NewReader(truncated), mem)
	if err != nil {
		t.Fatalf("Recover: %v", err)
	}
	defer got.Release()

	if len(got.Batches) == 0 {
		t.Fatal("recovered zero batches from a truncated stream")
	}
	if len(got.Batches) >= 4 {
		t.Fatalf("recovered all %d batches from truncated data, truncation had no effect", len(got.Batches))
	}
	for _, rec := range got.Batches {
		if rec.NumRows() != 5 {
			t.Errorf("recovered batch has %d rows, want 5", rec.NumRows())
		}
	}
}

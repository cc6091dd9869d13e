/*
Package tablewriter drives the Arrow IPC writers backing the read and
signal sub-tables: batching rows, flushing record batches at a row
threshold, and wiring pod5's extension types (read_id as
minknow.uuid, signal as minknow.vbz) and dictionary columns into each
batch.

Grounded on the record-batch chunking pod5_format performs in
original_source/c++/pod5_format/signal_table_writer.cpp and
read_table_writer.cpp: one flush per DefaultSignalBatchSize /
DefaultReadBatchSize rows, schema metadata attached once per sub-file.
*/
package tablewriter

import (
	"fmt"
	"io"

	"github.com/apache/arrow/go/v14/arrow"
	"github.com/apache/arrow/go/v14/arrow/array"
	"github.com/apache/arrow/go/v14/arrow/ipc"
	"github.com/apache/arrow/go/v14/arrow/memory"
	"github.com/google/uuid"

	"github.com/koeng101/pod5/extype"
	"github.com/koeng101/pod5/schema"
	"github.com/koeng101/pod5/vbz"
)

// DefaultSignalBatchSize is the number of signal-table rows flushed per
// record batch when the caller does not override it.
const DefaultSignalBatchSize = 1000

// SignalRowLocation is the (batch, row-within-batch) address of a
// signal-table row, resolved at write time so it can be recorded in
// the owning read's signal index column.
type SignalRowLocation struct {
	Batch int
	Row   int
}

// SignalTableWriter appends VBZ-compressed signal chunks to a signal
// sub-table and flushes record batches at DefaultSignalBatchSize-row
// boundaries (or whatever MaxRowsPerBatch is set to).
type SignalTableWriter struct {
	mem             memory.Allocator
	w               *ipc.FileWriter
	schema          *arrow.Schema
	MaxRowsPerBatch int

	readIDBuilder *array.ExtensionBuilder
	signalBuilder *array.ExtensionBuilder
	samplesBldr   *array.Uint32Builder

	rowsInBatch int
	batchIndex  int
	closed      bool
}

// NewSignalTableWriter opens a signal sub-table writer against w,
// attaching metadata to its Arrow schema.
func NewSignalTableWriter(w io.Writer, mem memory.Allocator, metadata schema.Description) (*SignalTableWriter, error) {
	sch := schema.SignalTableSchema(schema.LatestSignalTableVersion, schema.MakeKeyValueMetadata(metadata))
	ipcWriter, err := ipc.NewFileWriter(w, ipc.WithSchema(sch), ipc.WithAllocator(mem))
	if err != nil {
		return nil, fmt.Errorf("pod5: open signal table writer: %w", err)
	}

	return &SignalTableWriter{
		mem:             mem,
		w:               ipcWriter,
		schema:          sch,
		MaxRowsPerBatch: DefaultSignalBatchSize,
		readIDBuilder:   array.NewExtensionBuilder(mem, extype.NewUUIDType()),
		signalBuilder:   array.NewExtensionBuilder(mem, extype.NewVBZSignalType()),
		samplesBldr:     array.NewUint32Builder(mem),
	}, nil
}

// AppendChunk VBZ-compresses samples and appends one signal-table row
// for them, returning the row's location for the owning read to record.
func (w *SignalTableWriter) AppendChunk(readID uuid.UUID, samples []int16) (SignalRowLocation, error) {
	if w.closed {
		return SignalRowLocation{}, fmt.Errorf("pod5: signal table writer is closed")
	}
	compressed, err := vbz.Compress(samples)
	if err != nil {
		return SignalRowLocation{}, fmt.Errorf("pod5: compress signal chunk: %w", err)
	}
	return w.appendRow(readID, compressed, len(samples))
}

// AppendPreCompressedChunk appends one signal-table row from a cell
// that is already VBZ-encoded, skipping vbz.Compress. This is for a
// caller relaying chunks it read (and decided not to decompress) from
// another pod5 file's signal table.
func (w *SignalTableWriter) AppendPreCompressedChunk(readID uuid.UUID, compressed []byte, sampleCount int) (SignalRowLocation, error) {
	if w.closed {
		return SignalRowLocation{}, fmt.Errorf("pod5: signal table writer is closed")
	}
	return w.appendRow(readID, compressed, sampleCount)
}

func (w *SignalTableWriter) appendRow(readID uuid.UUID, compressed []byte, sampleCount int) (SignalRowLocation, error) {
	w.readIDBuilder.StorageBuilder().(*array.FixedSizeBinaryBuilder).Append(readID[:])
	w.signalBuilder.StorageBuilder().(*array.BinaryBuilder).Append(compressed)
	w.samplesBldr.Append(uint32(sampleCount))

	loc := SignalRowLocation{Batch: w.batchIndex, Row: w.rowsInBatch}
	w.rowsInBatch++

	if w.rowsInBatch >= w.MaxRowsPerBatch {
		if err := w.flush(); err != nil {
			return SignalRowLocation{}, err
		}
	}
	return loc, nil
}

func (w *SignalTableWriter) flush() error {
	if w.rowsInBatch == 0 {
		return nil
	}
	readIDCol := w.readIDBuilder.NewArray()
	signalCol := w.signalBuilder.NewArray()
	samplesCol := w.samplesBldr.NewArray()
	defer readIDCol.Release()
	defer signalCol.Release()
	defer samplesCol.Release()

	rec := array.NewRecord(w.schema, []arrow.Array{readIDCol, signalCol, samplesCol}, int64(w.rowsInBatch))
	defer rec.Release()

	if err := w.w.Write(rec); err != nil {
		return fmt.Errorf("pod5: write signal record batch: %w", err)
	}
	w.rowsInBatch = 0
	w.batchIndex++
	return nil
}

// Close flushes any buffered rows and closes the underlying IPC writer.
func (w *SignalTableWriter) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true
	if err := w.flush(); err != nil {
		return err
	}
	w.readIDBuilder.Release()
	w.signalBuilder.Release()
	w.samplesBldr.Release()
	return w.w.Close()
}

package tablereader

import (
	"fmt"

	"github.com/apache/arrow/go/v14/arrow/array"
)

// BatchLocator converts a flat absolute signal-row index (the form
// ReadData.Signal stores, per spec.md §4.5's "absolute signal-row
// index") into a (batch, row) pair, satisfying the planner shape
// ExtractSamples and ExtractSampleCount expect. Per §4.6 step 1, the
// batch size is read from batch 0 once and assumed constant for every
// batch but (possibly) the last.
type BatchLocator struct {
	batchSize  int
	numBatches int
}

// NewBatchLocator derives a BatchLocator from r's first batch.
func NewBatchLocator(r *SignalTableReader) (*BatchLocator, error) {
	numBatches := r.NumBatches()
	if numBatches == 0 {
		return &BatchLocator{numBatches: 0}, nil
	}
	rec, err := r.batch(0)
	if err != nil {
		return nil, err
	}
	return &BatchLocator{batchSize: int(rec.NumRows()), numBatches: numBatches}, nil
}

// Locate implements the planner interface ExtractSamples/
// ExtractSampleCount expect.
func (b *BatchLocator) Locate(rowIndex uint64) (batch, row int, err error) {
	if b.batchSize == 0 {
		return 0, 0, fmt.Errorf("pod5: signal table has no batches, cannot locate row %d", rowIndex)
	}
	batch = int(rowIndex) / b.batchSize
	row = int(rowIndex) % b.batchSize
	if batch >= b.numBatches {
		return 0, 0, fmt.Errorf("pod5: signal row index %d out of range (batch %d >= %d batches)", rowIndex, batch, b.numBatches)
	}
	return batch, row, nil
}

// ExtractSamples concatenates the decompressed samples of every signal
// row a read references, in order. It mirrors
// original_source/c++/pod5_format/read_table_reader.cpp's
// extract_samples: each signal row is read from whichever batch owns
// it, relying on SignalTableReader's single-batch cache so a read whose
// chunks are contiguous (the overwhelmingly common case) touches each
// batch once.
func ExtractSamples(signalReader *SignalTableReader, planner interface {
	Locate(rowIndex uint64) (batch, row int, err error)
}, signalRowIndices []uint64) ([]int16, error) {
	var out []int16
	for _, rowIndex := range signalRowIndices {
		batch, row, err := planner.Locate(rowIndex)
		if err != nil {
			return nil, fmt.Errorf("pod5: locate signal row %d: %w", rowIndex, err)
		}
		samples, err := signalReader.ReadRow(batch, row)
		if err != nil {
			return nil, err
		}
		out = append(out, samples...)
	}
	return out, nil
}

// ExtractSampleCount sums the samples field of every signal row a read
// references without decompressing any of them, for callers that only
// need a read's total sample count.
func ExtractSampleCount(signalReader *SignalTableReader, planner interface {
	Locate(rowIndex uint64) (batch, row int, err error)
}, signalRowIndices []uint64) (uint64, error) {
	var total uint64
	for _, rowIndex := range signalRowIndices {
		batch, row, err := planner.Locate(rowIndex)
		if err != nil {
			return 0, fmt.Errorf("pod5: locate signal row %d: %w", rowIndex, err)
		}
		rec, err := signalReader.batch(batch)
		if err != nil {
			return 0, err
		}
		samplesField, ok := signalReader.desc.Resolved["samples"]
		if !ok {
			return 0, fmt.Errorf("pod5: signal table missing resolved samples field")
		}
		total += uint64(rec.Column(samplesField.Index).(*array.Uint32).Value(row))
	}
	return total, nil
}

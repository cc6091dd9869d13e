package tablewriter

import (
	"fmt"
	"io"

	"github.com/apache/arrow/go/v14/arrow"
	"github.com/apache/arrow/go/v14/arrow/array"
	"github.com/apache/arrow/go/v14/arrow/ipc"
	"github.com/apache/arrow/go/v14/arrow/memory"

	"github.com/koeng101/pod5/dictionary"
	"github.com/koeng101/pod5/extype"
	"github.com/koeng101/pod5/schema"
)

// DefaultReadBatchSize is the number of read-table rows flushed per
// record batch when the caller does not override it.
const DefaultReadBatchSize = 500

// ReadRow is one read-table row as tablewriter itself sees it: the
// caller's job (the root pod5 package's Writer) is to translate its own
// ReadData into a ReadRow, keeping this package free of a dependency on
// the root package.
type ReadRow struct {
	ReadID       [16]byte
	Signal       []uint64
	ReadNumber   uint32
	Start        uint64
	MedianBefore float32

	NumMinknowEvents       uint64
	TrackedScalingScale    float32
	TrackedScalingShift    float32
	PredictedScalingScale  float32
	PredictedScalingShift  float32
	NumReadsSinceMuxChange uint32
	TimeSinceMuxChange     float32

	NumSamples uint64

	Channel           uint16
	Well              uint8
	PoreType          string
	CalibrationOffset float32
	CalibrationScale  float32
	EndReason         string
	EndReasonForced   bool
	RunInfo           string
}

// ReadTableWriter appends ReadData rows to a read sub-table, flushing
// record batches at DefaultReadBatchSize-row boundaries (or whatever
// MaxRowsPerBatch is set to).
type ReadTableWriter struct {
	mem             memory.Allocator
	w               *ipc.FileWriter
	schema          *arrow.Schema
	MaxRowsPerBatch int

	poreDict      *dictionary.DictionaryWriter
	endReasonDict *dictionary.DictionaryWriter
	runInfoDict   *dictionary.DictionaryWriter

	readID       *array.ExtensionBuilder
	signal       *array.ListBuilder
	signalValues *array.Uint64Builder
	readNumber   *array.Uint32Builder
	start        *array.Uint64Builder
	medianBefore *array.Float32Builder

	numMinknowEvents       *array.Uint64Builder
	trackedScalingScale    *array.Float32Builder
	trackedScalingShift    *array.Float32Builder
	predictedScalingScale  *array.Float32Builder
	predictedScalingShift  *array.Float32Builder
	numReadsSinceMuxChange *array.Uint32Builder
	timeSinceMuxChange     *array.Float32Builder

	numSamples *array.Uint64Builder

	channel           *array.Uint16Builder
	well              *array.Uint8Builder
	poreType          *dictionary.IndexBuilder
	calibrationOffset *array.Float32Builder
	calibrationScale  *array.Float32Builder
	endReason         *dictionary.IndexBuilder
	endReasonForced   *array.BooleanBuilder
	runInfo           *dictionary.IndexBuilder

	rowsInBatch int
	batchIndex  int
	closed      bool
}

// NewReadTableWriter opens a read sub-table writer against w.
func NewReadTableWriter(w io.Writer, mem memory.Allocator, metadata schema.Description) (*ReadTableWriter, error) {
	sch := schema.ReadTableSchema(schema.LatestReadTableVersion, schema.MakeKeyValueMetadata(metadata))
	ipcWriter, err := ipc.NewFileWriter(w, ipc.WithSchema(sch), ipc.WithAllocator(mem))
	if err != nil {
		return nil, fmt.Errorf("pod5: open read table writer: %w", err)
	}

	signalList := array.NewListBuilder(mem, arrow.PrimitiveTypes.Uint64)

	poreDict := dictionary.NewDictionaryWriter(mem)
	endReasonDict := dictionary.NewDictionaryWriter(mem)
	runInfoDict := dictionary.NewDictionaryWriter(mem)

	return &ReadTableWriter{
		mem:             mem,
		w:               ipcWriter,
		schema:          sch,
		MaxRowsPerBatch: DefaultReadBatchSize,

		poreDict:      poreDict,
		endReasonDict: endReasonDict,
		runInfoDict:   runInfoDict,

		readID:       array.NewExtensionBuilder(mem, extype.NewUUIDType()),
		signal:       signalList,
		signalValues: signalList.ValueBuilder().(*array.Uint64Builder),
		readNumber:   array.NewUint32Builder(mem),
		start:        array.NewUint64Builder(mem),
		medianBefore: array.NewFloat32Builder(mem),

		numMinknowEvents:       array.NewUint64Builder(mem),
		trackedScalingScale:    array.NewFloat32Builder(mem),
		trackedScalingShift:    array.NewFloat32Builder(mem),
		predictedScalingScale:  array.NewFloat32Builder(mem),
		predictedScalingShift:  array.NewFloat32Builder(mem),
		numReadsSinceMuxChange: array.NewUint32Builder(mem),
		timeSinceMuxChange:     array.NewFloat32Builder(mem),

		numSamples: array.NewUint64Builder(mem),

		channel:           array.NewUint16Builder(mem),
		well:              array.NewUint8Builder(mem),
		poreType:          dictionary.NewIndexBuilder(mem, poreDict),
		calibrationOffset: array.NewFloat32Builder(mem),
		calibrationScale:  array.NewFloat32Builder(mem),
		endReason:         dictionary.NewIndexBuilder(mem, endReasonDict),
		endReasonForced:   array.NewBooleanBuilder(mem),
		runInfo:           dictionary.NewIndexBuilder(mem, runInfoDict),
	}, nil
}

// AppendRead appends one read-table row.
func (w *ReadTableWriter) AppendRead(r ReadRow) error {
	if w.closed {
		return fmt.Errorf("pod5: read table writer is closed")
	}

	w.readID.StorageBuilder().(*array.FixedSizeBinaryBuilder).Append(r.ReadID[:])

	w.signal.Append(true)
	for _, rowIdx := range r.Signal {
		w.signalValues.Append(rowIdx)
	}

	w.readNumber.Append(r.ReadNumber)
	w.start.Append(r.Start)
	w.medianBefore.Append(r.MedianBefore)

	w.numMinknowEvents.Append(r.NumMinknowEvents)
	w.trackedScalingScale.Append(r.TrackedScalingScale)
	w.trackedScalingShift.Append(r.TrackedScalingShift)
	w.predictedScalingScale.Append(r.PredictedScalingScale)
	w.predictedScalingShift.Append(r.PredictedScalingShift)
	w.numReadsSinceMuxChange.Append(r.NumReadsSinceMuxChange)
	w.timeSinceMuxChange.Append(r.TimeSinceMuxChange)

	w.numSamples.Append(r.NumSamples)

	w.channel.Append(r.Channel)
	w.well.Append(r.Well)
	if err := w.poreType.Append(r.PoreType); err != nil {
		return fmt.Errorf("pod5: append pore_type: %w", err)
	}
	w.calibrationOffset.Append(r.CalibrationOffset)
	w.calibrationScale.Append(r.CalibrationScale)
	if err := w.endReason.Append(r.EndReason); err != nil {
		return fmt.Errorf("pod5: append end_reason: %w", err)
	}
	w.endReasonForced.Append(r.EndReasonForced)
	if err := w.runInfo.Append(r.RunInfo); err != nil {
		return fmt.Errorf("pod5: append run_info: %w", err)
	}

	w.rowsInBatch++
	if w.rowsInBatch >= w.MaxRowsPerBatch {
		if err := w.flush(); err != nil {
			return err
		}
	}
	return nil
}

func (w *ReadTableWriter) flush() error {
	if w.rowsInBatch == 0 {
		return nil
	}

	poreTypeCol, err := w.poreType.NewDictionaryArray(dictType())
	if err != nil {
		return err
	}
	endReasonCol, err := w.endReason.NewDictionaryArray(dictType())
	if err != nil {
		return err
	}
	runInfoCol, err := w.runInfo.NewDictionaryArray(dictType())
	if err != nil {
		return err
	}

	cols := []arrow.Array{
		w.readID.NewArray(),
		w.signal.NewArray(),
		w.readNumber.NewArray(),
		w.start.NewArray(),
		w.medianBefore.NewArray(),
		w.numMinknowEvents.NewArray(),
		w.trackedScalingScale.NewArray(),
		w.trackedScalingShift.NewArray(),
		w.predictedScalingScale.NewArray(),
		w.predictedScalingShift.NewArray(),
		w.numReadsSinceMuxChange.NewArray(),
		w.timeSinceMuxChange.NewArray(),
		w.numSamples.NewArray(),
		w.channel.NewArray(),
		w.well.NewArray(),
		poreTypeCol,
		w.calibrationOffset.NewArray(),
		w.calibrationScale.NewArray(),
		endReasonCol,
		w.endReasonForced.NewArray(),
		runInfoCol,
	}
	defer func() {
		for _, c := range cols {
			c.Release()
		}
	}()

	rec := array.NewRecord(w.schema, cols, int64(w.rowsInBatch))
	defer rec.Release()

	if err := w.w.Write(rec); err != nil {
		return fmt.Errorf("pod5: write read record batch: %w", err)
	}
	w.rowsInBatch = 0
	w.batchIndex++
	return nil
}

func dictType() *arrow.DictionaryType {
	return &arrow.DictionaryType{IndexType: arrow.PrimitiveTypes.Int16, ValueType: arrow.BinaryTypes.String}
}

// Close flushes any buffered rows and closes the underlying IPC writer.
func (w *ReadTableWriter) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true
	if err := w.flush(); err != nil {
		return err
	}
	builders := []interface {
		Release()
	}{
		w.readID, w.signal, w.readNumber, w.start, w.medianBefore,
		w.numMinknowEvents, w.trackedScalingScale, w.trackedScalingShift,
		w.predictedScalingScale, w.predictedScalingShift, w.numReadsSinceMuxChange,
		w.timeSinceMuxChange, w.numSamples, w.channel, w.well,
		w.poreType, w.calibrationOffset, w.calibrationScale,
		w.endReason, w.endReasonForced, w.runInfo,
	}
	for _, b := range builders {
		b.Release()
	}
	return w.w.Close()
}

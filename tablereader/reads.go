package tablereader

import (
	"fmt"

	"github.com/apache/arrow/go/v14/arrow"
	"github.com/apache/arrow/go/v14/arrow/array"
	"github.com/apache/arrow/go/v14/arrow/ipc"
	"github.com/apache/arrow/go/v14/arrow/memory"

	"github.com/koeng101/pod5/extype"
	"github.com/koeng101/pod5/schema"
)

// ReadRow is one decoded read-table row, with dictionary columns
// already resolved to their string value.
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

// ReadTableReader gives batch-by-batch access to a read sub-table.
type ReadTableReader struct {
	r      *ipc.FileReader
	desc   *schema.ReadTableSchemaDescription
	handle *extype.Handle

	cachedBatch int
	cachedRec   arrow.Record
}

// NewReadTableReader opens a read sub-table reader over ra.
func NewReadTableReader(ra ipc.ReadAtSeeker, mem memory.Allocator, fileVersion schema.Version) (*ReadTableReader, error) {
	handle := extype.RegisterAll()
	r, err := ipc.NewFileReader(ra, ipc.WithAllocator(mem))
	if err != nil {
		handle.Release()
		return nil, fmt.Errorf("pod5: open read table reader: %w", err)
	}
	desc, err := schema.ResolveReadTableSchema(fileVersion, r.Schema())
	if err != nil {
		handle.Release()
		return nil, err
	}
	return &ReadTableReader{r: r, desc: desc, handle: handle, cachedBatch: -1}, nil
}

// NumBatches returns the number of record batches in the sub-table.
func (r *ReadTableReader) NumBatches() int { return r.r.NumRecords() }

func (r *ReadTableReader) batch(batch int) (arrow.Record, error) {
	if batch == r.cachedBatch {
		return r.cachedRec, nil
	}
	rec, err := r.r.Record(batch)
	if err != nil {
		return nil, fmt.Errorf("pod5: read read-table batch %d: %w", batch, err)
	}
	if r.cachedRec != nil {
		r.cachedRec.Release()
	}
	r.cachedBatch = batch
	r.cachedRec = rec
	return rec, nil
}

// BatchNumRows returns the row count of the given batch.
func (r *ReadTableReader) BatchNumRows(batch int) (int, error) {
	rec, err := r.batch(batch)
	if err != nil {
		return 0, err
	}
	return int(rec.NumRows()), nil
}

// ReadIDs returns every read_id in the given batch, in row order.
func (r *ReadTableReader) ReadIDs(batch int) ([][16]byte, error) {
	rec, err := r.batch(batch)
	if err != nil {
		return nil, err
	}
	idx, ok := r.desc.Resolved["read_id"]
	if !ok {
		return nil, fmt.Errorf("pod5: read table missing resolved read_id field")
	}
	col := rec.Column(idx.Index).(*extype.UUIDArray)
	out := make([][16]byte, rec.NumRows())
	for row := range out {
		copy(out[row][:], col.Value(row))
	}
	return out, nil
}

func (r *ReadTableReader) resolveDictValue(rec arrow.Record, fieldName string, row int, legacyType arrow.DataType) (string, error) {
	resolved, ok := r.desc.Resolved[fieldName]
	if !ok {
		return "", fmt.Errorf("pod5: read table missing resolved %s field", fieldName)
	}
	isLegacy, err := schema.ResolveDictionaryField(r.r.Schema(), resolved, legacyType)
	if err != nil {
		return "", err
	}
	dictCol := rec.Column(resolved.Index).(*array.Dictionary)
	if dictCol.IsNull(row) {
		return "", nil
	}
	code := dictCol.Indices().(*array.Int16).Value(row)

	if isLegacy {
		legacy := dictCol.Dictionary().(*array.Struct)
		return legacyDictString(legacy, int(code), fieldName)
	}
	values := dictCol.Dictionary().(*array.String)
	return values.Value(int(code)), nil
}

// legacyDictString extracts the human-readable identifier out of a
// legacy struct-valued dictionary entry: pore_type from its "pore_type"
// member, end_reason from its "name" member.
func legacyDictString(s *array.Struct, code int, fieldName string) (string, error) {
	var memberName string
	switch fieldName {
	case "pore_type":
		memberName = "pore_type"
	case "end_reason":
		memberName = "name"
	default:
		return "", fmt.Errorf("pod5: no legacy struct member mapping for field %q", fieldName)
	}
	for i := 0; i < s.NumField(); i++ {
		if s.DataType().(*arrow.StructType).Field(i).Name == memberName {
			return s.Field(i).(*array.String).Value(code), nil
		}
	}
	return "", fmt.Errorf("pod5: legacy struct missing member %q", memberName)
}

// ReadRowAt decodes read-table row (batch, row).
func (r *ReadTableReader) ReadRowAt(batch, row int) (ReadRow, error) {
	rec, err := r.batch(batch)
	if err != nil {
		return ReadRow{}, err
	}

	get := func(name string) (int, error) {
		f, ok := r.desc.Resolved[name]
		if !ok {
			return 0, fmt.Errorf("pod5: read table missing resolved %s field", name)
		}
		return f.Index, nil
	}

	var out ReadRow

	if idx, err := get("read_id"); err == nil {
		copy(out.ReadID[:], rec.Column(idx).(*extype.UUIDArray).Value(row))
	} else {
		return ReadRow{}, err
	}

	if idx, err := get("signal"); err == nil {
		list := rec.Column(idx).(*array.List)
		values := list.ListValues().(*array.Uint64)
		start, end := list.ValueOffsets(row)
		out.Signal = make([]uint64, 0, end-start)
		for i := start; i < end; i++ {
			out.Signal = append(out.Signal, values.Value(int(i)))
		}
	} else {
		return ReadRow{}, err
	}

	if idx, err := get("read_number"); err == nil {
		out.ReadNumber = rec.Column(idx).(*array.Uint32).Value(row)
	}
	if idx, err := get("start"); err == nil {
		out.Start = rec.Column(idx).(*array.Uint64).Value(row)
	}
	if idx, err := get("median_before"); err == nil {
		out.MedianBefore = rec.Column(idx).(*array.Float32).Value(row)
	}
	if idx, err := get("num_minknow_events"); err == nil {
		out.NumMinknowEvents = rec.Column(idx).(*array.Uint64).Value(row)
	}
	if idx, err := get("tracked_scaling_scale"); err == nil {
		out.TrackedScalingScale = rec.Column(idx).(*array.Float32).Value(row)
	}
	if idx, err := get("tracked_scaling_shift"); err == nil {
		out.TrackedScalingShift = rec.Column(idx).(*array.Float32).Value(row)
	}
	if idx, err := get("predicted_scaling_scale"); err == nil {
		out.PredictedScalingScale = rec.Column(idx).(*array.Float32).Value(row)
	}
	if idx, err := get("predicted_scaling_shift"); err == nil {
		out.PredictedScalingShift = rec.Column(idx).(*array.Float32).Value(row)
	}
	if idx, err := get("num_reads_since_mux_change"); err == nil {
		out.NumReadsSinceMuxChange = rec.Column(idx).(*array.Uint32).Value(row)
	}
	if idx, err := get("time_since_mux_change"); err == nil {
		out.TimeSinceMuxChange = rec.Column(idx).(*array.Float32).Value(row)
	}
	if idx, err := get("num_samples"); err == nil {
		out.NumSamples = rec.Column(idx).(*array.Uint64).Value(row)
	}
	if idx, err := get("channel"); err == nil {
		out.Channel = rec.Column(idx).(*array.Uint16).Value(row)
	}
	if idx, err := get("well"); err == nil {
		out.Well = rec.Column(idx).(*array.Uint8).Value(row)
	}
	if poreType, err := r.resolveDictValue(rec, "pore_type", row, schema.LegacyPoreStructType()); err == nil {
		out.PoreType = poreType
	} else {
		return ReadRow{}, err
	}
	if idx, err := get("calibration_offset"); err == nil {
		out.CalibrationOffset = rec.Column(idx).(*array.Float32).Value(row)
	}
	if idx, err := get("calibration_scale"); err == nil {
		out.CalibrationScale = rec.Column(idx).(*array.Float32).Value(row)
	}
	if endReason, err := r.resolveDictValue(rec, "end_reason", row, schema.LegacyEndReasonStructType()); err == nil {
		out.EndReason = endReason
	} else {
		return ReadRow{}, err
	}
	if idx, err := get("end_reason_forced"); err == nil {
		out.EndReasonForced = rec.Column(idx).(*array.Boolean).Value(row)
	}
	if runInfo, err := r.resolveDictValue(rec, "run_info", row, nil); err == nil {
		out.RunInfo = runInfo
	} else {
		return ReadRow{}, err
	}

	return out, nil
}

// Close releases the cached batch and this reader's extension-type
// registration handle. The underlying IPC file reader is not closed.
func (r *ReadTableReader) Close() error {
	if r.cachedRec != nil {
		r.cachedRec.Release()
		r.cachedRec = nil
	}
	r.handle.Release()
	return nil
}

package pod5

import (
	"fmt"

	"github.com/apache/arrow/go/v14/arrow/memory"
	"github.com/google/uuid"
	"golang.org/x/exp/mmap"

	"github.com/koeng101/pod5/envelope"
	"github.com/koeng101/pod5/planner"
	"github.com/koeng101/pod5/schema"
	"github.com/koeng101/pod5/tablereader"
)

// ReaderOptions configures Open/OpenSplit. The zero value selects
// memory.NewGoAllocator().
type ReaderOptions struct {
	Allocator memory.Allocator
}

func (o ReaderOptions) withDefaults() ReaderOptions {
	if o.Allocator == nil {
		o.Allocator = memory.NewGoAllocator()
	}
	return o
}

// Reader gives read access to an opened pod5 file: its reads, signal,
// and (if present) run-info sub-tables, plus the means to materialize a
// read's full sample sequence.
type Reader struct {
	mappings []*mmap.ReaderAt
	cr       *envelope.Reader // nil for a split-file open; there is no outer envelope

	reads   *tablereader.ReadTableReader
	signal  *tablereader.SignalTableReader
	runInfo *tablereader.RunInfoTableReader
	locator *tablereader.BatchLocator

	fileIdentifier string
}

// OpenCombined memory-maps path read-only, parses its footer, and opens
// an Arrow IPC reader over each embedded sub-file (§4.8).
func OpenCombined(path string, opts ReaderOptions) (*Reader, error) {
	opts = opts.withDefaults()

	mapped, err := mmap.Open(path)
	if err != nil {
		return nil, newError("OpenCombined", KindIO, err)
	}

	cr, err := envelope.Open(mapped, int64(mapped.Len()))
	if err != nil {
		mapped.Close()
		return nil, newError("OpenCombined", KindInvalid, err)
	}

	version, err := schema.ParseVersion(cr.Footer.Pod5Version)
	if err != nil {
		mapped.Close()
		return nil, newError("OpenCombined", KindConsistency, err)
	}

	readsRA, err := cr.SubFile(envelope.ContentTypeReadsTable)
	if err != nil {
		mapped.Close()
		return nil, newError("OpenCombined", KindInvalid, err)
	}
	reads, err := tablereader.NewReadTableReader(readsRA, opts.Allocator, version)
	if err != nil {
		mapped.Close()
		return nil, newError("OpenCombined", KindType, err)
	}

	signalRA, err := cr.SubFile(envelope.ContentTypeSignalTable)
	if err != nil {
		mapped.Close()
		return nil, newError("OpenCombined", KindInvalid, err)
	}
	signal, err := tablereader.NewSignalTableReader(signalRA, opts.Allocator, version)
	if err != nil {
		mapped.Close()
		return nil, newError("OpenCombined", KindType, err)
	}

	// Both sub-tables must carry the footer's file identifier.
	for _, ra := range []*envelope.SubFileReader{readsRA, signalRA} {
		meta, err := tablereader.PeekMetadata(ra)
		if err != nil {
			mapped.Close()
			return nil, newError("OpenCombined", KindType, err)
		}
		if meta.FileIdentifier != cr.Footer.FileIdentifier {
			mapped.Close()
			return nil, newError("OpenCombined", KindConsistency, fmt.Errorf(
				"sub-table file_identifier %q does not match footer file_identifier %q",
				meta.FileIdentifier, cr.Footer.FileIdentifier))
		}
	}

	locator, err := tablereader.NewBatchLocator(signal)
	if err != nil {
		mapped.Close()
		return nil, newError("OpenCombined", KindInvalid, err)
	}

	var runInfo *tablereader.RunInfoTableReader
	if runInfoRA, err := cr.SubFile(envelope.ContentTypeRunInfoTable); err == nil {
		runInfo, err = tablereader.NewRunInfoTableReader(runInfoRA, opts.Allocator, version)
		if err != nil {
			mapped.Close()
			return nil, newError("OpenCombined", KindType, err)
		}
	}

	return &Reader{
		mappings:       []*mmap.ReaderAt{mapped},
		cr:             cr,
		reads:          reads,
		signal:         signal,
		runInfo:        runInfo,
		locator:        locator,
		fileIdentifier: cr.Footer.FileIdentifier,
	}, nil
}

// OpenSplit opens a reads sub-table and a signal sub-table stored as
// two standalone Arrow IPC files rather than wrapped in one combined
// envelope (§4.8's open_split: identical to OpenCombined but skipping
// footer parsing, since each file's mapped region already is the whole
// sub-file). The two files' MINKNOW:file_identifier metadata values
// must match.
func OpenSplit(signalPath, readsPath string, opts ReaderOptions) (*Reader, error) {
	opts = opts.withDefaults()

	mappedSignal, err := mmap.Open(signalPath)
	if err != nil {
		return nil, newError("OpenSplit", KindIO, err)
	}
	mappedReads, err := mmap.Open(readsPath)
	if err != nil {
		mappedSignal.Close()
		return nil, newError("OpenSplit", KindIO, err)
	}
	mappings := []*mmap.ReaderAt{mappedSignal, mappedReads}
	fail := func(op string, kind Kind, err error) (*Reader, error) {
		for _, m := range mappings {
			m.Close()
		}
		return nil, newError(op, kind, err)
	}

	signalFull := envelope.WholeFile(mappedSignal)
	readsFull := envelope.WholeFile(mappedReads)

	readsMeta, err := tablereader.PeekMetadata(readsFull)
	if err != nil {
		return fail("OpenSplit", KindType, err)
	}
	signalMeta, err := tablereader.PeekMetadata(signalFull)
	if err != nil {
		return fail("OpenSplit", KindType, err)
	}
	if readsMeta.FileIdentifier != signalMeta.FileIdentifier {
		return fail("OpenSplit", KindConsistency, fmt.Errorf(
			"reads table file_identifier %q does not match signal table file_identifier %q",
			readsMeta.FileIdentifier, signalMeta.FileIdentifier))
	}

	version := readsMeta.Pod5Version

	reads, err := tablereader.NewReadTableReader(readsFull, opts.Allocator, version)
	if err != nil {
		return fail("OpenSplit", KindType, err)
	}
	signal, err := tablereader.NewSignalTableReader(signalFull, opts.Allocator, version)
	if err != nil {
		return fail("OpenSplit", KindType, err)
	}
	locator, err := tablereader.NewBatchLocator(signal)
	if err != nil {
		return fail("OpenSplit", KindInvalid, err)
	}

	return &Reader{
		mappings:       mappings,
		reads:          reads,
		signal:         signal,
		locator:        locator,
		fileIdentifier: readsMeta.FileIdentifier,
	}, nil
}

// FileIdentifier returns the UUID shared by every sub-table in the
// opened file.
func (r *Reader) FileIdentifier() string { return r.fileIdentifier }

// NumReadBatches returns the number of record batches in the read
// table.
func (r *Reader) NumReadBatches() int { return r.reads.NumBatches() }

// ReadAt decodes read-table row (batch, row) into a ReadData, resolving
// its PoreData/CalibrationData/EndReasonData/RunInfo fields from the
// decoded row.
func (r *Reader) ReadAt(batch, row int) (ReadData, error) {
	decoded, err := r.reads.ReadRowAt(batch, row)
	if err != nil {
		return ReadData{}, newError("ReadAt", KindIO, err)
	}
	return fromReadRow(decoded), nil
}

func fromReadRow(decoded tablereader.ReadRow) ReadData {
	return ReadData{
		ReadID:                 uuid.UUID(decoded.ReadID),
		ReadNumber:             decoded.ReadNumber,
		Start:                  decoded.Start,
		MedianBefore:           decoded.MedianBefore,
		NumMinknowEvents:       decoded.NumMinknowEvents,
		TrackedScalingScale:    decoded.TrackedScalingScale,
		TrackedScalingShift:    decoded.TrackedScalingShift,
		PredictedScalingScale:  decoded.PredictedScalingScale,
		PredictedScalingShift:  decoded.PredictedScalingShift,
		NumReadsSinceMuxChange: decoded.NumReadsSinceMuxChange,
		TimeSinceMuxChange:     decoded.TimeSinceMuxChange,
		NumSamples:             decoded.NumSamples,
		Pore: PoreData{
			Channel:  decoded.Channel,
			Well:     decoded.Well,
			PoreType: decoded.PoreType,
		},
		Calibration: CalibrationData{
			Offset: decoded.CalibrationOffset,
			Scale:  decoded.CalibrationScale,
		},
		EndReason: EndReasonData{
			Name:   parseEndReasonType(decoded.EndReason),
			Forced: decoded.EndReasonForced,
		},
		RunInfo: decoded.RunInfo,
		Signal:  decoded.Signal,
	}
}

// ExtractSamples returns the full, decompressed sample sequence a read
// references, in order.
func (r *Reader) ExtractSamples(read ReadData) ([]int16, error) {
	samples, err := tablereader.ExtractSamples(r.signal, r.locator, read.Signal)
	if err != nil {
		return nil, newError("ExtractSamples", KindConsistency, err)
	}
	return samples, nil
}

// ExtractSampleCount returns a read's total sample count without
// decompressing its signal chunks.
func (r *Reader) ExtractSampleCount(read ReadData) (uint64, error) {
	n, err := tablereader.ExtractSampleCount(r.signal, r.locator, read.Signal)
	if err != nil {
		return 0, newError("ExtractSampleCount", KindConsistency, err)
	}
	return n, nil
}

// RunInfoByAcquisitionID looks up a run-info row by acquisition id, as
// referenced by ReadData.RunInfo.
func (r *Reader) RunInfoByAcquisitionID(id string) (RunInfoData, bool) {
	if r.runInfo == nil {
		return RunInfoData{}, false
	}
	row, ok := r.runInfo.ByAcquisitionID(id)
	if !ok {
		return RunInfoData{}, false
	}
	return fromRunInfoRow(row), true
}

func fromRunInfoRow(row tablereader.RunInfoRow) RunInfoData {
	return RunInfoData{
		AcquisitionID:         row.AcquisitionID,
		AcquisitionStartTime:  row.AcquisitionStartTime,
		AdcMax:                row.AdcMax,
		AdcMin:                row.AdcMin,
		ContextTags:           row.ContextTags,
		ExperimentName:        row.ExperimentName,
		FlowCellID:            row.FlowCellID,
		FlowCellProductCode:   row.FlowCellProductCode,
		ProtocolName:          row.ProtocolName,
		ProtocolRunID:         row.ProtocolRunID,
		ProtocolStartTime:     row.ProtocolStartTime,
		SampleID:              row.SampleID,
		SampleRate:            row.SampleRate,
		SequencingKit:         row.SequencingKit,
		SequencerPosition:     row.SequencerPosition,
		SequencerPositionType: row.SequencerPositionType,
		Software:              row.Software,
		SystemName:            row.SystemName,
		SystemType:            row.SystemType,
		TrackingID:            row.TrackingID,
	}
}

// FindReads locates reads by UUID across the read table via
// planner.BuildPlan, returning each found read fully decoded, indexed
// by its position in ids (a position absent from the result was not
// found).
func (r *Reader) FindReads(ids []uuid.UUID) (map[int]ReadData, error) {
	plan, err := planner.BuildPlan(r.reads, ids)
	if err != nil {
		return nil, newError("FindReads", KindConsistency, err)
	}
	out := make(map[int]ReadData, plan.SuccessCount)
	for pos, loc := range plan.Found {
		read, err := r.ReadAt(loc.Batch, loc.Row)
		if err != nil {
			return nil, err
		}
		out[pos] = read
	}
	return out, nil
}

// Close releases both table readers and the underlying memory mapping.
func (r *Reader) Close() error {
	r.reads.Close()
	r.signal.Close()
	if r.runInfo != nil {
		// RunInfoTableReader decodes everything up front and holds no
		// live Arrow resources to release.
	}
	var firstErr error
	for _, m := range r.mappings {
		if err := m.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if firstErr != nil {
		return newError("Close", KindIO, fmt.Errorf("unmap file: %w", firstErr))
	}
	return nil
}

package pod5

import (
	"fmt"
	"io"
	"os"

	"github.com/apache/arrow/go/v14/arrow/memory"
	"github.com/google/uuid"

	"github.com/koeng101/pod5/envelope"
	"github.com/koeng101/pod5/schema"
	"github.com/koeng101/pod5/tablewriter"
)

// DefaultMaxSignalChunkSize bounds the number of samples in a single
// signal-table row when a caller does not choose one explicitly.
const DefaultMaxSignalChunkSize = 102400

// WriterOptions configures a Writer's batching policy. The zero value
// selects every documented default.
type WriterOptions struct {
	// ReadTableBatchSize is the number of read-table rows per flushed
	// record batch. Zero selects tablewriter.DefaultReadBatchSize.
	ReadTableBatchSize int
	// SignalTableBatchSize is the number of signal-table rows per
	// flushed record batch. Zero selects tablewriter.DefaultSignalBatchSize.
	SignalTableBatchSize int
	// MaxSignalChunkSize bounds samples per signal-table row. Zero
	// selects DefaultMaxSignalChunkSize.
	MaxSignalChunkSize int
	// Allocator is the Arrow memory pool every column builder uses.
	// Nil selects memory.NewGoAllocator().
	Allocator memory.Allocator
}

func (o WriterOptions) withDefaults() WriterOptions {
	if o.ReadTableBatchSize <= 0 {
		o.ReadTableBatchSize = tablewriter.DefaultReadBatchSize
	}
	if o.SignalTableBatchSize <= 0 {
		o.SignalTableBatchSize = tablewriter.DefaultSignalBatchSize
	}
	if o.MaxSignalChunkSize <= 0 {
		o.MaxSignalChunkSize = DefaultMaxSignalChunkSize
	}
	if o.Allocator == nil {
		o.Allocator = memory.NewGoAllocator()
	}
	return o
}

// Writer creates a combined pod5 file: one outer envelope wrapping a
// reads sub-table, a signal sub-table, and a run-info sub-table, each
// streamed directly into the output as rows are appended (§4.5-§4.8).
//
// AddRead drives both table writers per spec.md's per-read append
// protocol: a read's samples are chunked to MaxSignalChunkSize, each
// chunk appended to the signal table first, and only then is the read
// row (carrying the resolved signal-row indices) appended to the read
// table — so a crash always leaves signal rows with no dangling
// read-row reference, never the reverse.
type Writer struct {
	opts WriterOptions

	cw *envelope.Writer

	readsSub    *envelope.SubFileWriter
	signalSub   *envelope.SubFileWriter
	runInfoSub  *envelope.SubFileWriter
	reads       *tablewriter.ReadTableWriter
	signal      *tablewriter.SignalTableWriter
	runInfo     *tablewriter.RunInfoTableWriter
	fileIDStr   string
	pod5Version string
	software    string

	closed bool
}

// Create opens path and starts a new combined pod5 file, generating a
// fresh file identifier.
func Create(path string, software string, opts WriterOptions) (*Writer, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, newError("Create", KindIO, err)
	}
	w, err := newWriter(f, software, opts)
	if err != nil {
		f.Close()
		return nil, err
	}
	return w, nil
}

func newWriter(out io.Writer, software string, opts WriterOptions) (*Writer, error) {
	opts = opts.withDefaults()

	cw, err := envelope.NewWriter(out)
	if err != nil {
		return nil, newError("Create", KindIO, err)
	}

	fileID := uuid.New().String()
	version := schema.Version{Major: 0, Minor: 3, Patch: 10}
	metadata := schema.Description{
		FileIdentifier: fileID,
		Software:       software,
		Pod5Version:    version,
	}

	readsSub, err := cw.BeginSubFile()
	if err != nil {
		return nil, newError("Create", KindIO, err)
	}
	reads, err := tablewriter.NewReadTableWriter(readsSub, opts.Allocator, metadata)
	if err != nil {
		return nil, newError("Create", KindIO, err)
	}
	reads.MaxRowsPerBatch = opts.ReadTableBatchSize

	signalSub, err := cw.BeginSubFile()
	if err != nil {
		return nil, newError("Create", KindIO, err)
	}
	signal, err := tablewriter.NewSignalTableWriter(signalSub, opts.Allocator, metadata)
	if err != nil {
		return nil, newError("Create", KindIO, err)
	}
	signal.MaxRowsPerBatch = opts.SignalTableBatchSize

	runInfoSub, err := cw.BeginSubFile()
	if err != nil {
		return nil, newError("Create", KindIO, err)
	}
	runInfo, err := tablewriter.NewRunInfoTableWriter(runInfoSub, opts.Allocator, metadata)
	if err != nil {
		return nil, newError("Create", KindIO, err)
	}

	return &Writer{
		opts:        opts,
		cw:          cw,
		readsSub:    readsSub,
		signalSub:   signalSub,
		runInfoSub:  runInfoSub,
		reads:       reads,
		signal:      signal,
		runInfo:     runInfo,
		fileIDStr:   fileID,
		pod5Version: version.String(),
		software:    software,
	}, nil
}

// FileIdentifier returns the UUID this writer stamped onto its file.
func (w *Writer) FileIdentifier() string { return w.fileIDStr }

// AddRunInfo appends a run-info row. Reads reference it afterward by
// its AcquisitionID via ReadData.RunInfo.
func (w *Writer) AddRunInfo(r RunInfoData) error {
	if w.closed {
		return newError("AddRunInfo", KindState, fmt.Errorf("writer is closed"))
	}
	row := tablewriter.RunInfoRow{
		AcquisitionID:         r.AcquisitionID,
		AcquisitionStartTime:  r.AcquisitionStartTime,
		AdcMax:                r.AdcMax,
		AdcMin:                r.AdcMin,
		ContextTags:           r.ContextTags,
		ExperimentName:        r.ExperimentName,
		FlowCellID:            r.FlowCellID,
		FlowCellProductCode:   r.FlowCellProductCode,
		ProtocolName:          r.ProtocolName,
		ProtocolRunID:         r.ProtocolRunID,
		ProtocolStartTime:     r.ProtocolStartTime,
		SampleID:              r.SampleID,
		SampleRate:            r.SampleRate,
		SequencingKit:         r.SequencingKit,
		SequencerPosition:     r.SequencerPosition,
		SequencerPositionType: r.SequencerPositionType,
		Software:              r.Software,
		SystemName:            r.SystemName,
		SystemType:            r.SystemType,
		TrackingID:            r.TrackingID,
	}
	if err := w.runInfo.AppendRunInfo(row); err != nil {
		return newError("AddRunInfo", KindIO, err)
	}
	return nil
}

// AddRead appends one read, chunking its raw samples into the signal
// table (each chunk ≤ MaxSignalChunkSize samples) before appending the
// owning row to the read table. read.Signal is ignored on input and
// populated on return with the resolved signal-row indices.
func (w *Writer) AddRead(read ReadData, samples []int16) (ReadData, error) {
	if w.closed {
		return ReadData{}, newError("AddRead", KindState, fmt.Errorf("writer is closed"))
	}

	chunkSize := w.opts.MaxSignalChunkSize
	var indices []uint64
	for start := 0; start < len(samples); start += chunkSize {
		end := start + chunkSize
		if end > len(samples) {
			end = len(samples)
		}
		loc, err := w.signal.AppendChunk(read.ReadID, samples[start:end])
		if err != nil {
			return ReadData{}, newError("AddRead", KindCodec, err)
		}
		indices = append(indices, rowIndex(loc, w.opts.SignalTableBatchSize))
	}

	read.Signal = indices
	read.NumSamples = uint64(len(samples))

	var readIDRaw [16]byte
	copy(readIDRaw[:], read.ReadID[:])
	row := tablewriter.ReadRow{
		ReadID:                 readIDRaw,
		Signal:                 indices,
		ReadNumber:             read.ReadNumber,
		Start:                  read.Start,
		MedianBefore:           read.MedianBefore,
		NumMinknowEvents:       read.NumMinknowEvents,
		TrackedScalingScale:    read.TrackedScalingScale,
		TrackedScalingShift:    read.TrackedScalingShift,
		PredictedScalingScale:  read.PredictedScalingScale,
		PredictedScalingShift:  read.PredictedScalingShift,
		NumReadsSinceMuxChange: read.NumReadsSinceMuxChange,
		TimeSinceMuxChange:     read.TimeSinceMuxChange,
		NumSamples:             read.NumSamples,
		Channel:                read.Pore.Channel,
		Well:                   read.Pore.Well,
		PoreType:               read.Pore.PoreType,
		CalibrationOffset:      read.Calibration.Offset,
		CalibrationScale:       read.Calibration.Scale,
		EndReason:              read.EndReason.Name.String(),
		EndReasonForced:        read.EndReason.Forced,
		RunInfo:                read.RunInfo,
	}
	if err := w.reads.AppendRead(row); err != nil {
		return ReadData{}, newError("AddRead", KindIO, err)
	}
	return read, nil
}

// rowIndex converts a writer-local (batch, row) location into the flat
// absolute signal-row index spec.md §4.5 has add_signal/
// add_pre_compressed_signal return (flushed rows + current batch
// rows): the signal table's batch size is fixed for a writer's
// lifetime, so this is exact for every full batch and for the
// still-filling last one.
func rowIndex(loc tablewriter.SignalRowLocation, batchSize int) uint64 {
	return uint64(loc.Batch)*uint64(batchSize) + uint64(loc.Row)
}

// Close flushes and closes all three sub-tables, then writes the
// combined file's footer.
func (w *Writer) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true

	if err := w.reads.Close(); err != nil {
		return newError("Close", KindIO, err)
	}
	w.readsSub.Finish(envelope.ContentTypeReadsTable)

	if err := w.signal.Close(); err != nil {
		return newError("Close", KindIO, err)
	}
	w.signalSub.Finish(envelope.ContentTypeSignalTable)

	if err := w.runInfo.Close(); err != nil {
		return newError("Close", KindIO, err)
	}
	w.runInfoSub.Finish(envelope.ContentTypeRunInfoTable)

	if _, err := w.cw.Close(w.fileIDStr, w.software, w.pod5Version); err != nil {
		return newError("Close", KindIO, err)
	}
	return nil
}

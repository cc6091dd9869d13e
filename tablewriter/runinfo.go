package tablewriter

import (
	"fmt"
	"io"
	"time"

	"github.com/apache/arrow/go/v14/arrow"
	"github.com/apache/arrow/go/v14/arrow/array"
	"github.com/apache/arrow/go/v14/arrow/ipc"
	"github.com/apache/arrow/go/v14/arrow/memory"

	"github.com/koeng101/pod5/dictionary"
	"github.com/koeng101/pod5/schema"
)

// RunInfoRow is one run-info-table row.
type RunInfoRow struct {
	AcquisitionID         string
	AcquisitionStartTime  time.Time
	AdcMax                int16
	AdcMin                int16
	ContextTags           map[string]string
	ExperimentName        string
	FlowCellID            string
	FlowCellProductCode   string
	ProtocolName          string
	ProtocolRunID         string
	ProtocolStartTime     time.Time
	SampleID              string
	SampleRate            uint16
	SequencingKit         string
	SequencerPosition     string
	SequencerPositionType string
	Software              string
	SystemName            string
	SystemType            string
	TrackingID            map[string]string
}

// RunInfoTableWriter appends RunInfoRow rows to a run-info sub-table.
// The run-info table is small (one row per distinct acquisition) so it
// is flushed in a single record batch on Close, not on a row threshold.
type RunInfoTableWriter struct {
	mem    memory.Allocator
	w      *ipc.FileWriter
	schema *arrow.Schema

	acquisitionID         *array.StringBuilder
	acquisitionStartTime  *array.TimestampBuilder
	adcMax                *array.Int16Builder
	adcMin                *array.Int16Builder
	contextTags           *dictionary.StringMapBuilder
	experimentName        *array.StringBuilder
	flowCellID            *array.StringBuilder
	flowCellProductCode   *array.StringBuilder
	protocolName          *array.StringBuilder
	protocolRunID         *array.StringBuilder
	protocolStartTime     *array.TimestampBuilder
	sampleID              *array.StringBuilder
	sampleRate            *array.Uint16Builder
	sequencingKit         *array.StringBuilder
	sequencerPosition     *array.StringBuilder
	sequencerPositionType *array.StringBuilder
	software              *array.StringBuilder
	systemName            *array.StringBuilder
	systemType            *array.StringBuilder
	trackingID            *dictionary.StringMapBuilder

	rows   int
	closed bool
}

// NewRunInfoTableWriter opens a run-info sub-table writer against w.
func NewRunInfoTableWriter(w io.Writer, mem memory.Allocator, metadata schema.Description) (*RunInfoTableWriter, error) {
	sch := schema.RunInfoTableSchema(schema.LatestRunInfoTableVersion, schema.MakeKeyValueMetadata(metadata))
	ipcWriter, err := ipc.NewFileWriter(w, ipc.WithSchema(sch), ipc.WithAllocator(mem))
	if err != nil {
		return nil, fmt.Errorf("pod5: open run info table writer: %w", err)
	}

	return &RunInfoTableWriter{
		mem:    mem,
		w:      ipcWriter,
		schema: sch,

		acquisitionID:         array.NewStringBuilder(mem),
		acquisitionStartTime:  array.NewTimestampBuilder(mem, arrow.FixedWidthTypes.Timestamp_ms.(*arrow.TimestampType)),
		adcMax:                array.NewInt16Builder(mem),
		adcMin:                array.NewInt16Builder(mem),
		contextTags:           dictionary.NewStringMapBuilder(mem),
		experimentName:        array.NewStringBuilder(mem),
		flowCellID:            array.NewStringBuilder(mem),
		flowCellProductCode:   array.NewStringBuilder(mem),
		protocolName:          array.NewStringBuilder(mem),
		protocolRunID:         array.NewStringBuilder(mem),
		protocolStartTime:     array.NewTimestampBuilder(mem, arrow.FixedWidthTypes.Timestamp_ms.(*arrow.TimestampType)),
		sampleID:              array.NewStringBuilder(mem),
		sampleRate:            array.NewUint16Builder(mem),
		sequencingKit:         array.NewStringBuilder(mem),
		sequencerPosition:     array.NewStringBuilder(mem),
		sequencerPositionType: array.NewStringBuilder(mem),
		software:              array.NewStringBuilder(mem),
		systemName:            array.NewStringBuilder(mem),
		systemType:            array.NewStringBuilder(mem),
		trackingID:            dictionary.NewStringMapBuilder(mem),
	}, nil
}

// AppendRunInfo appends one run-info-table row.
func (w *RunInfoTableWriter) AppendRunInfo(r RunInfoRow) error {
	if w.closed {
		return fmt.Errorf("pod5: run info table writer is closed")
	}

	w.acquisitionID.Append(r.AcquisitionID)
	w.acquisitionStartTime.Append(arrow.Timestamp(r.AcquisitionStartTime.UnixMilli()))
	w.adcMax.Append(r.AdcMax)
	w.adcMin.Append(r.AdcMin)
	w.contextTags.Append(r.ContextTags)
	w.experimentName.Append(r.ExperimentName)
	w.flowCellID.Append(r.FlowCellID)
	w.flowCellProductCode.Append(r.FlowCellProductCode)
	w.protocolName.Append(r.ProtocolName)
	w.protocolRunID.Append(r.ProtocolRunID)
	w.protocolStartTime.Append(arrow.Timestamp(r.ProtocolStartTime.UnixMilli()))
	w.sampleID.Append(r.SampleID)
	w.sampleRate.Append(r.SampleRate)
	w.sequencingKit.Append(r.SequencingKit)
	w.sequencerPosition.Append(r.SequencerPosition)
	w.sequencerPositionType.Append(r.SequencerPositionType)
	w.software.Append(r.Software)
	w.systemName.Append(r.SystemName)
	w.systemType.Append(r.SystemType)
	w.trackingID.Append(r.TrackingID)

	w.rows++
	return nil
}

func (w *RunInfoTableWriter) flush() error {
	if w.rows == 0 {
		return nil
	}
	cols := []arrow.Array{
		w.acquisitionID.NewArray(),
		w.acquisitionStartTime.NewArray(),
		w.adcMax.NewArray(),
		w.adcMin.NewArray(),
		w.contextTags.NewArray(),
		w.experimentName.NewArray(),
		w.flowCellID.NewArray(),
		w.flowCellProductCode.NewArray(),
		w.protocolName.NewArray(),
		w.protocolRunID.NewArray(),
		w.protocolStartTime.NewArray(),
		w.sampleID.NewArray(),
		w.sampleRate.NewArray(),
		w.sequencingKit.NewArray(),
		w.sequencerPosition.NewArray(),
		w.sequencerPositionType.NewArray(),
		w.software.NewArray(),
		w.systemName.NewArray(),
		w.systemType.NewArray(),
		w.trackingID.NewArray(),
	}
	defer func() {
		for _, c := range cols {
			c.Release()
		}
	}()

	rec := array.NewRecord(w.schema, cols, int64(w.rows))
	defer rec.Release()
	if err := w.w.Write(rec); err != nil {
		return fmt.Errorf("pod5: write run info record batch: %w", err)
	}
	w.rows = 0
	return nil
}

// Close flushes the single run-info record batch and closes the
// underlying IPC writer.
func (w *RunInfoTableWriter) Close() error {
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
		w.acquisitionID, w.acquisitionStartTime, w.adcMax, w.adcMin, w.contextTags,
		w.experimentName, w.flowCellID, w.flowCellProductCode, w.protocolName,
		w.protocolRunID, w.protocolStartTime, w.sampleID, w.sampleRate,
		w.sequencingKit, w.sequencerPosition, w.sequencerPositionType,
		w.software, w.systemName, w.systemType, w.trackingID,
	}
	for _, b := range builders {
		b.Release()
	}
	return w.w.Close()
}

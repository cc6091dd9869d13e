package tablereader

import (
	"fmt"
	"time"

	"github.com/apache/arrow/go/v14/arrow"
	"github.com/apache/arrow/go/v14/arrow/array"
	"github.com/apache/arrow/go/v14/arrow/ipc"
	"github.com/apache/arrow/go/v14/arrow/memory"

	"github.com/koeng101/pod5/schema"
)

// RunInfoRow is one decoded run-info-table row.
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

// RunInfoTableReader reads a run-info sub-table in full: it is always
// small (one row per acquisition), so unlike the read/signal readers it
// decodes every row up front rather than caching batches.
type RunInfoTableReader struct {
	rows []RunInfoRow
}

// NewRunInfoTableReader opens and fully decodes a run-info sub-table.
func NewRunInfoTableReader(ra ipc.ReadAtSeeker, mem memory.Allocator, fileVersion schema.Version) (*RunInfoTableReader, error) {
	r, err := ipc.NewFileReader(ra, ipc.WithAllocator(mem))
	if err != nil {
		return nil, fmt.Errorf("pod5: open run info table reader: %w", err)
	}
	defer r.Close()

	desc, err := schema.ResolveRunInfoTableSchema(fileVersion, r.Schema())
	if err != nil {
		return nil, err
	}

	var rows []RunInfoRow
	for b := 0; b < r.NumRecords(); b++ {
		rec, err := r.Record(b)
		if err != nil {
			return nil, fmt.Errorf("pod5: read run-info batch %d: %w", b, err)
		}
		for row := 0; row < int(rec.NumRows()); row++ {
			decoded, err := decodeRunInfoRow(rec, desc, row)
			if err != nil {
				rec.Release()
				return nil, err
			}
			rows = append(rows, decoded)
		}
		rec.Release()
	}
	return &RunInfoTableReader{rows: rows}, nil
}

func decodeRunInfoRow(rec arrow.Record, desc *schema.RunInfoTableSchemaDescription, row int) (RunInfoRow, error) {
	var out RunInfoRow
	get := func(name string) (int, bool) {
		f, ok := desc.Resolved[name]
		if !ok {
			return 0, false
		}
		return f.Index, true
	}

	if idx, ok := get("acquisition_id"); ok {
		out.AcquisitionID = rec.Column(idx).(*array.String).Value(row)
	}
	if idx, ok := get("acquisition_start_time"); ok {
		out.AcquisitionStartTime = timestampToTime(rec.Column(idx).(*array.Timestamp).Value(row))
	}
	if idx, ok := get("adc_max"); ok {
		out.AdcMax = rec.Column(idx).(*array.Int16).Value(row)
	}
	if idx, ok := get("adc_min"); ok {
		out.AdcMin = rec.Column(idx).(*array.Int16).Value(row)
	}
	if idx, ok := get("context_tags"); ok {
		out.ContextTags = decodeStringMap(rec.Column(idx).(*array.Map), row)
	}
	if idx, ok := get("experiment_name"); ok {
		out.ExperimentName = rec.Column(idx).(*array.String).Value(row)
	}
	if idx, ok := get("flow_cell_id"); ok {
		out.FlowCellID = rec.Column(idx).(*array.String).Value(row)
	}
	if idx, ok := get("flow_cell_product_code"); ok {
		out.FlowCellProductCode = rec.Column(idx).(*array.String).Value(row)
	}
	if idx, ok := get("protocol_name"); ok {
		out.ProtocolName = rec.Column(idx).(*array.String).Value(row)
	}
	if idx, ok := get("protocol_run_id"); ok {
		out.ProtocolRunID = rec.Column(idx).(*array.String).Value(row)
	}
	if idx, ok := get("protocol_start_time"); ok {
		out.ProtocolStartTime = timestampToTime(rec.Column(idx).(*array.Timestamp).Value(row))
	}
	if idx, ok := get("sample_id"); ok {
		out.SampleID = rec.Column(idx).(*array.String).Value(row)
	}
	if idx, ok := get("sample_rate"); ok {
		out.SampleRate = rec.Column(idx).(*array.Uint16).Value(row)
	}
	if idx, ok := get("sequencing_kit"); ok {
		out.SequencingKit = rec.Column(idx).(*array.String).Value(row)
	}
	if idx, ok := get("sequencer_position"); ok {
		out.SequencerPosition = rec.Column(idx).(*array.String).Value(row)
	}
	if idx, ok := get("sequencer_position_type"); ok {
		out.SequencerPositionType = rec.Column(idx).(*array.String).Value(row)
	}
	if idx, ok := get("software"); ok {
		out.Software = rec.Column(idx).(*array.String).Value(row)
	}
	if idx, ok := get("system_name"); ok {
		out.SystemName = rec.Column(idx).(*array.String).Value(row)
	}
	if idx, ok := get("system_type"); ok {
		out.SystemType = rec.Column(idx).(*array.String).Value(row)
	}
	if idx, ok := get("tracking_id"); ok {
		out.TrackingID = decodeStringMap(rec.Column(idx).(*array.Map), row)
	}
	return out, nil
}

func timestampToTime(ts arrow.Timestamp) time.Time {
	return time.UnixMilli(int64(ts)).UTC()
}

func decodeStringMap(m *array.Map, row int) map[string]string {
	start, end := m.ValueOffsets(row)
	keys := m.Keys().(*array.String)
	items := m.Items().(*array.String)
	out := make(map[string]string, end-start)
	for i := start; i < end; i++ {
		out[keys.Value(int(i))] = items.Value(int(i))
	}
	return out
}

// ByAcquisitionID looks up a run-info row by acquisition_id.
func (r *RunInfoTableReader) ByAcquisitionID(id string) (RunInfoRow, bool) {
	for _, row := range r.rows {
		if row.AcquisitionID == id {
			return row, true
		}
	}
	return RunInfoRow{}, false
}

// All returns every decoded run-info row.
func (r *RunInfoTableReader) All() []RunInfoRow { return r.rows }

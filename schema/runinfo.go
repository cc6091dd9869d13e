package schema

import (
	"github.com/apache/arrow/go/v14/arrow"
)

// RunInfoTableFields is the run-info table's column list. The run-info
// table is a dictionary target, not a per-read record stream: every read
// referencing a given run_info name shares one row here. Field list built
// from spec.md §3's RunInfoData, since the filtered original_source
// retrieval set did not carry pod5_format's own run_info_table_schema.cpp
// (only the older mkr_format sibling survived filtering); the shape
// otherwise follows the same Field/TableVersion convention as the read
// and signal tables.
var RunInfoTableFields = []Field{
	{Name: "acquisition_id", Type: arrow.BinaryTypes.String, AddedAt: 0, RemovedAt: NeverRemoved},
	{Name: "acquisition_start_time", Type: arrow.FixedWidthTypes.Timestamp_ms, AddedAt: 0, RemovedAt: NeverRemoved},
	{Name: "adc_max", Type: arrow.PrimitiveTypes.Int16, AddedAt: 0, RemovedAt: NeverRemoved},
	{Name: "adc_min", Type: arrow.PrimitiveTypes.Int16, AddedAt: 0, RemovedAt: NeverRemoved},
	{Name: "context_tags", Type: stringMapType(), AddedAt: 0, RemovedAt: NeverRemoved},
	{Name: "experiment_name", Type: arrow.BinaryTypes.String, AddedAt: 0, RemovedAt: NeverRemoved},
	{Name: "flow_cell_id", Type: arrow.BinaryTypes.String, AddedAt: 0, RemovedAt: NeverRemoved},
	{Name: "flow_cell_product_code", Type: arrow.BinaryTypes.String, AddedAt: 0, RemovedAt: NeverRemoved},
	{Name: "protocol_name", Type: arrow.BinaryTypes.String, AddedAt: 0, RemovedAt: NeverRemoved},
	{Name: "protocol_run_id", Type: arrow.BinaryTypes.String, AddedAt: 0, RemovedAt: NeverRemoved},
	{Name: "protocol_start_time", Type: arrow.FixedWidthTypes.Timestamp_ms, AddedAt: 0, RemovedAt: NeverRemoved},
	{Name: "sample_id", Type: arrow.BinaryTypes.String, AddedAt: 0, RemovedAt: NeverRemoved},
	{Name: "sample_rate", Type: arrow.PrimitiveTypes.Uint16, AddedAt: 0, RemovedAt: NeverRemoved},
	{Name: "sequencing_kit", Type: arrow.BinaryTypes.String, AddedAt: 0, RemovedAt: NeverRemoved},
	{Name: "sequencer_position", Type: arrow.BinaryTypes.String, AddedAt: 0, RemovedAt: NeverRemoved},
	{Name: "sequencer_position_type", Type: arrow.BinaryTypes.String, AddedAt: 0, RemovedAt: NeverRemoved},
	{Name: "software", Type: arrow.BinaryTypes.String, AddedAt: 0, RemovedAt: NeverRemoved},
	{Name: "system_name", Type: arrow.BinaryTypes.String, AddedAt: 0, RemovedAt: NeverRemoved},
	{Name: "system_type", Type: arrow.BinaryTypes.String, AddedAt: 0, RemovedAt: NeverRemoved},
	{Name: "tracking_id", Type: stringMapType(), AddedAt: 0, RemovedAt: NeverRemoved},
}

// stringMapType is the Arrow representation of a string-to-string map,
// used for the context_tags and tracking_id key-value columns.
func stringMapType() *arrow.MapType {
	return arrow.MapOf(arrow.BinaryTypes.String, arrow.BinaryTypes.String)
}

// RunInfoTableSchema builds the Arrow schema a run-info-table writer at
// the given version should emit.
func RunInfoTableSchema(version TableVersion, metadata *arrow.Metadata) *arrow.Schema {
	return arrow.NewSchema(WriterFields(RunInfoTableFields, version), metadata)
}

// RunInfoTableSchemaDescription is the resolved field layout of an
// opened run-info table.
type RunInfoTableSchemaDescription struct {
	Version  TableVersion
	Resolved map[string]ResolvedField
}

// ResolveRunInfoTableSchema resolves the run-info table's fields against
// an opened Arrow schema.
func ResolveRunInfoTableSchema(fileVersion Version, arrowSchema *arrow.Schema) (*RunInfoTableSchemaDescription, error) {
	version := LatestRunInfoTableVersion
	resolved, err := ResolveFields(RunInfoTableFields, version, arrowSchema)
	if err != nil {
		return nil, err
	}
	return &RunInfoTableSchemaDescription{Version: version, Resolved: resolved}, nil
}

package schema

import (
	"github.com/apache/arrow/go/v14/arrow"

	"github.com/koeng101/pod5/extype"
)

// ReadTableFields is the read table's column list, in write order, each
// tagged with the table-spec version it was introduced at. Grounded on
// original_source/c++/pod5_format/read_table_schema.cpp.
var ReadTableFields = []Field{
	// v0
	{Name: "read_id", Type: extype.NewUUIDType(), AddedAt: 0, RemovedAt: NeverRemoved},
	{Name: "signal", Type: arrow.ListOf(arrow.PrimitiveTypes.Uint64), AddedAt: 0, RemovedAt: NeverRemoved},
	{Name: "read_number", Type: arrow.PrimitiveTypes.Uint32, AddedAt: 0, RemovedAt: NeverRemoved},
	{Name: "start", Type: arrow.PrimitiveTypes.Uint64, AddedAt: 0, RemovedAt: NeverRemoved},
	{Name: "median_before", Type: arrow.PrimitiveTypes.Float32, AddedAt: 0, RemovedAt: NeverRemoved},

	// v1
	{Name: "num_minknow_events", Type: arrow.PrimitiveTypes.Uint64, AddedAt: 1, RemovedAt: NeverRemoved},
	{Name: "tracked_scaling_scale", Type: arrow.PrimitiveTypes.Float32, AddedAt: 1, RemovedAt: NeverRemoved},
	{Name: "tracked_scaling_shift", Type: arrow.PrimitiveTypes.Float32, AddedAt: 1, RemovedAt: NeverRemoved},
	{Name: "predicted_scaling_scale", Type: arrow.PrimitiveTypes.Float32, AddedAt: 1, RemovedAt: NeverRemoved},
	{Name: "predicted_scaling_shift", Type: arrow.PrimitiveTypes.Float32, AddedAt: 1, RemovedAt: NeverRemoved},
	{Name: "num_reads_since_mux_change", Type: arrow.PrimitiveTypes.Uint32, AddedAt: 1, RemovedAt: NeverRemoved},
	{Name: "time_since_mux_change", Type: arrow.PrimitiveTypes.Float32, AddedAt: 1, RemovedAt: NeverRemoved},

	// v2
	{Name: "num_samples", Type: arrow.PrimitiveTypes.Uint64, AddedAt: 2, RemovedAt: NeverRemoved},

	// v3
	{Name: "channel", Type: arrow.PrimitiveTypes.Uint16, AddedAt: 3, RemovedAt: NeverRemoved},
	{Name: "well", Type: arrow.PrimitiveTypes.Uint8, AddedAt: 3, RemovedAt: NeverRemoved},
	{Name: "pore_type", Type: stringDictionary(), AddedAt: 3, RemovedAt: NeverRemoved},
	{Name: "calibration_offset", Type: arrow.PrimitiveTypes.Float32, AddedAt: 3, RemovedAt: NeverRemoved},
	{Name: "calibration_scale", Type: arrow.PrimitiveTypes.Float32, AddedAt: 3, RemovedAt: NeverRemoved},
	{Name: "end_reason", Type: stringDictionary(), AddedAt: 3, RemovedAt: NeverRemoved},
	{Name: "end_reason_forced", Type: arrow.FixedWidthTypes.Boolean, AddedAt: 3, RemovedAt: NeverRemoved},
	{Name: "run_info", Type: stringDictionary(), AddedAt: 3, RemovedAt: NeverRemoved},
}

func stringDictionary() *arrow.DictionaryType {
	return &arrow.DictionaryType{IndexType: arrow.PrimitiveTypes.Int16, ValueType: arrow.BinaryTypes.String}
}

// LegacyPoreStructType is the pre-v3 pore_type dictionary value struct:
// a dictionary<int16, struct<...>> column's value type. Readers must
// still be able to resolve it (spec.md §4.4, §9); writers never emit
// it. ResolveDictionaryField compares this directly against a resolved
// column's ValueType, so it must be the bare struct type, not a
// dictionary wrapping it.
func LegacyPoreStructType() arrow.DataType {
	return arrow.StructOf(
		arrow.Field{Name: "channel", Type: arrow.PrimitiveTypes.Uint16},
		arrow.Field{Name: "well", Type: arrow.PrimitiveTypes.Uint8},
		arrow.Field{Name: "pore_type", Type: arrow.BinaryTypes.String},
	)
}

// LegacyEndReasonStructType is the pre-v3 end_reason dictionary value
// struct.
func LegacyEndReasonStructType() arrow.DataType {
	return arrow.StructOf(
		arrow.Field{Name: "name", Type: arrow.BinaryTypes.String},
		arrow.Field{Name: "forced", Type: arrow.FixedWidthTypes.Boolean},
	)
}

// ReadTableSchema builds the Arrow schema a read-table writer at the
// given version should emit, with the given schema metadata attached.
func ReadTableSchema(version TableVersion, metadata *arrow.Metadata) *arrow.Schema {
	return arrow.NewSchema(WriterFields(ReadTableFields, version), metadata)
}

// ReadTableSchemaDescription is the resolved field layout of a read
// table actually opened from a file: every applicable field's column
// index inside the concrete Arrow schema.
type ReadTableSchemaDescription struct {
	Version  TableVersion
	Resolved map[string]ResolvedField
}

// ResolveReadTableSchema resolves fields applicable at the expected
// version against an opened Arrow schema.
func ResolveReadTableSchema(fileVersion Version, arrowSchema *arrow.Schema) (*ReadTableSchemaDescription, error) {
	version := ExpectedReadTableVersion(fileVersion)
	resolved, err := ResolveFields(ReadTableFields, version, arrowSchema)
	if err != nil {
		return nil, err
	}
	return &ReadTableSchemaDescription{Version: version, Resolved: resolved}, nil
}

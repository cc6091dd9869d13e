package schema

import (
	"fmt"

	"github.com/apache/arrow/go/v14/arrow"

	"github.com/koeng101/pod5/extype"
)

// SignalTableFields is the signal table's column list. Grounded on
// original_source/c++/pod5_format/signal_table_schema.cpp.
//
// The reference format stores signal two ways depending on how the file
// was written: "uncompressed" files carry a plain list<int16> samples
// column, "vbz" files (the default, and the only variant this package
// writes) carry a large_binary column wrapped in the minknow.vbz
// extension type, with the decompressed sample count recorded alongside
// it so a reader never has to decompress just to learn a chunk's length.
var SignalTableFields = []Field{
	{Name: "read_id", Type: extype.NewUUIDType(), AddedAt: 0, RemovedAt: NeverRemoved},
	{Name: "signal", Type: extype.NewVBZSignalType(), AddedAt: 0, RemovedAt: NeverRemoved},
	{Name: "samples", Type: arrow.PrimitiveTypes.Uint32, AddedAt: 0, RemovedAt: NeverRemoved},
}

// UncompressedSignalType is the column type of the "signal" field in a
// file written without VBZ compression. ResolveSignalTableSchema falls
// back to checking for this when the vbz extension type is absent.
var UncompressedSignalType = arrow.ListOf(arrow.PrimitiveTypes.Int16)

// SignalTableSchema builds the Arrow schema a signal-table writer at the
// given version should emit.
func SignalTableSchema(version TableVersion, metadata *arrow.Metadata) *arrow.Schema {
	return arrow.NewSchema(WriterFields(SignalTableFields, version), metadata)
}

// SignalTableSchemaDescription describes a resolved signal table,
// recording whether its signal column is VBZ-compressed or raw.
type SignalTableSchemaDescription struct {
	Version      TableVersion
	Resolved     map[string]ResolvedField
	Uncompressed bool
}

// ResolveSignalTableSchema resolves the signal table's fields against an
// opened Arrow schema, accepting either the VBZ-compressed or the
// uncompressed signal column shape.
func ResolveSignalTableSchema(fileVersion Version, arrowSchema *arrow.Schema) (*SignalTableSchemaDescription, error) {
	version := ExpectedSignalTableVersion(fileVersion)

	indices := arrowSchema.FieldIndices("signal")
	if len(indices) == 0 {
		return nil, fmt.Errorf("pod5: schema missing required field %q", "signal")
	}
	signalType := arrowSchema.Field(indices[0]).Type

	fields := make([]Field, len(SignalTableFields))
	copy(fields, SignalTableFields)
	uncompressed := false
	if !arrow.TypeEqual(signalType, extype.NewVBZSignalType()) {
		uncompressed = true
		for i, f := range fields {
			if f.Name == "signal" {
				fields[i].Type = UncompressedSignalType
			}
		}
	}

	resolved, err := ResolveFields(fields, version, arrowSchema)
	if err != nil {
		return nil, err
	}
	return &SignalTableSchemaDescription{Version: version, Resolved: resolved, Uncompressed: uncompressed}, nil
}


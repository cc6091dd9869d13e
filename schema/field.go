package schema

import (
	"fmt"

	"github.com/apache/arrow/go/v14/arrow"
)

// Field is one column of a table description: its name, declared Arrow
// type, and the table-spec version range it is present for.
type Field struct {
	Name      string
	Type      arrow.DataType
	AddedAt   TableVersion
	RemovedAt TableVersion // NeverRemoved if still current
}

// appliesAt reports whether f is part of the schema at the given
// table-spec version.
func (f Field) appliesAt(version TableVersion) bool {
	return f.AddedAt <= version && (f.RemovedAt == NeverRemoved || f.RemovedAt > version)
}

// WriterFields returns, in declaration order, the fields a writer at
// version should emit: those added at or before version whose
// removed_at (if any) is greater than version, i.e. not yet removed.
func WriterFields(fields []Field, version TableVersion) []arrow.Field {
	out := make([]arrow.Field, 0, len(fields))
	for _, f := range fields {
		if f.appliesAt(version) {
			out = append(out, arrow.Field{Name: f.Name, Type: f.Type})
		}
	}
	return out
}

// ResolvedField records where a schema field was found in an actual
// Arrow schema once read back from a file.
type ResolvedField struct {
	Field Field
	Index int
}

// ResolveFields locates, by name, every field applicable at version
// inside arrowSchema, checking that each has the expected Arrow type.
// Dictionary fields' value type equivalence is left to the caller (see
// ResolveDictionaryField), since a dictionary column's value type may
// legitimately differ between older struct-valued and newer utf8-valued
// schema variants.
func ResolveFields(fields []Field, version TableVersion, arrowSchema *arrow.Schema) (map[string]ResolvedField, error) {
	resolved := make(map[string]ResolvedField, len(fields))
	for _, f := range fields {
		if !f.appliesAt(version) {
			continue
		}
		indices := arrowSchema.FieldIndices(f.Name)
		if len(indices) == 0 {
			return nil, fmt.Errorf("pod5: schema missing required field %q", f.Name)
		}
		fieldIdx := indices[0]
		actual := arrowSchema.Field(fieldIdx).Type
		if f.Type.ID() != arrow.DICTIONARY && !arrow.TypeEqual(actual, f.Type) {
			return nil, fmt.Errorf("pod5: field %q has type %s, want %s", f.Name, actual, f.Type)
		}
		resolved[f.Name] = ResolvedField{Field: f, Index: fieldIdx}
	}
	return resolved, nil
}

// ResolveDictionaryField validates a dictionary-typed column against the
// two value shapes a reader must accept: the current dictionary<int16,
// utf8> columns, and the legacy dictionary<int16, struct<...>> columns
// emitted by older writers (spec.md §4.3, §9). It returns true if the
// value type was the struct-valued legacy shape.
func ResolveDictionaryField(arrowSchema *arrow.Schema, r ResolvedField, legacyValueType arrow.DataType) (isLegacy bool, err error) {
	actual, ok := arrowSchema.Field(r.Index).Type.(*arrow.DictionaryType)
	if !ok {
		return false, fmt.Errorf("pod5: field %q is not a dictionary column", r.Field.Name)
	}
	if actual.IndexType.ID() != arrow.INT16 {
		return false, fmt.Errorf("pod5: field %q has dictionary index type %s, want int16", r.Field.Name, actual.IndexType)
	}
	switch {
	case arrow.TypeEqual(actual.ValueType, arrow.BinaryTypes.String):
		return false, nil
	case legacyValueType != nil && arrow.TypeEqual(actual.ValueType, legacyValueType):
		return true, nil
	default:
		return false, fmt.Errorf("pod5: field %q has dictionary value type %s, want utf8 or legacy struct", r.Field.Name, actual.ValueType)
	}
}

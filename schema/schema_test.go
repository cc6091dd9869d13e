package schema

import (
	"testing"

	"github.com/apache/arrow/go/v14/arrow"
	"github.com/google/go-cmp/cmp"
)

func TestParseVersionRoundTrip(t *testing.T) {
	v, err := ParseVersion("0.3.12")
	if err != nil {
		t.Fatalf("ParseVersion: %v", err)
	}
	want := Version{Major: 0, Minor: 3, Patch: 12}
	if diff := cmp.Diff(want, v); diff != "" {
		t.Fatalf("ParseVersion mismatch (-want +got):\n%s", diff)
	}
	if got := v.String(); got != "0.3.12" {
		t.Fatalf("String() = %q, want %q", got, "0.3.12")
	}
}

func TestParseVersionRejectsMalformed(t *testing.T) {
	cases := []string{"1.2", "1.2.3.4", "a.b.c", "1..3", ""}
	for _, c := range cases {
		if _, err := ParseVersion(c); err == nil {
			t.Errorf("ParseVersion(%q) succeeded, want error", c)
		}
	}
}

func TestExpectedVersionsPinnedToLatest(t *testing.T) {
	old := Version{Major: 0, Minor: 0, Patch: 1}
	if got := ExpectedReadTableVersion(old); got != LatestReadTableVersion {
		t.Fatalf("ExpectedReadTableVersion(%v) = %d, want %d", old, got, LatestReadTableVersion)
	}
	if got := ExpectedSignalTableVersion(old); got != LatestSignalTableVersion {
		t.Fatalf("ExpectedSignalTableVersion(%v) = %d, want %d", old, got, LatestSignalTableVersion)
	}
}

func TestWriterFieldsRespectsVersionWindow(t *testing.T) {
	fields := WriterFields(ReadTableFields, 0)
	names := fieldNames(fields)
	for _, later := range []string{"num_minknow_events", "num_samples", "channel", "pore_type"} {
		if contains(names, later) {
			t.Errorf("v0 writer fields unexpectedly include %q", later)
		}
	}
	for _, v0 := range []string{"read_id", "signal", "read_number", "start", "median_before"} {
		if !contains(names, v0) {
			t.Errorf("v0 writer fields missing %q", v0)
		}
	}

	latest := WriterFields(ReadTableFields, LatestReadTableVersion)
	if len(latest) != len(ReadTableFields) {
		t.Fatalf("latest writer fields = %d, want %d", len(latest), len(ReadTableFields))
	}
}

func TestResolveFieldsRejectsMissingColumn(t *testing.T) {
	s := arrow.NewSchema([]arrow.Field{{Name: "read_id", Type: ReadTableFields[0].Type}}, nil)
	if _, err := ResolveFields(ReadTableFields, 0, s); err == nil {
		t.Fatal("expected error resolving against schema missing required fields")
	}
}

func TestResolveFieldsRejectsWrongType(t *testing.T) {
	s := arrow.NewSchema([]arrow.Field{
		{Name: "read_id", Type: arrow.BinaryTypes.String},
	}, nil)
	readID := []Field{ReadTableFields[0]}
	if _, err := ResolveFields(readID, 0, s); err == nil {
		t.Fatal("expected type mismatch error for read_id")
	}
}

func TestResolveDictionaryFieldAcceptsBothShapes(t *testing.T) {
	latest := arrow.NewSchema([]arrow.Field{
		{Name: "pore_type", Type: stringDictionary()},
	}, nil)
	resolved, err := ResolveFields([]Field{{Name: "pore_type", Type: stringDictionary(), AddedAt: 0, RemovedAt: NeverRemoved}}, 0, latest)
	if err != nil {
		t.Fatalf("ResolveFields: %v", err)
	}
	isLegacy, err := ResolveDictionaryField(latest, resolved["pore_type"], LegacyPoreStructType())
	if err != nil {
		t.Fatalf("ResolveDictionaryField (utf8 shape): %v", err)
	}
	if isLegacy {
		t.Fatal("utf8-valued dictionary misreported as legacy")
	}

	legacySchema := arrow.NewSchema([]arrow.Field{
		{Name: "pore_type", Type: &arrow.DictionaryType{IndexType: arrow.PrimitiveTypes.Int16, ValueType: LegacyPoreStructType()}},
	}, nil)
	resolvedLegacy, err := ResolveFields([]Field{{Name: "pore_type", Type: stringDictionary(), AddedAt: 0, RemovedAt: NeverRemoved}}, 0, legacySchema)
	if err != nil {
		t.Fatalf("ResolveFields (legacy schema): %v", err)
	}
	isLegacy, err = ResolveDictionaryField(legacySchema, resolvedLegacy["pore_type"], LegacyPoreStructType())
	if err != nil {
		t.Fatalf("ResolveDictionaryField (legacy shape): %v", err)
	}
	if !isLegacy {
		t.Fatal("struct-valued dictionary not reported as legacy")
	}
}

func TestMetadataRoundTrip(t *testing.T) {
	want := Description{
		FileIdentifier: "11111111-2222-3333-4444-555555555555",
		Software:       "pod5 go 0.1.0",
		Pod5Version:    Version{Major: 0, Minor: 3, Patch: 10},
	}
	metadata := MakeKeyValueMetadata(want)
	got, err := ReadKeyValueMetadata(*metadata)
	if err != nil {
		t.Fatalf("ReadKeyValueMetadata: %v", err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("metadata round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestReadKeyValueMetadataRejectsMissingKeys(t *testing.T) {
	m := arrow.NewMetadata([]string{MetadataKeySoftware}, []string{"x"})
	if _, err := ReadKeyValueMetadata(m); err == nil {
		t.Fatal("expected error for missing file identifier key")
	}
}

func TestResolveSignalTableSchemaDetectsUncompressed(t *testing.T) {
	compressed := SignalTableSchema(0, nil)
	desc, err := ResolveSignalTableSchema(Version{0, 3, 0}, compressed)
	if err != nil {
		t.Fatalf("ResolveSignalTableSchema (vbz): %v", err)
	}
	if desc.Uncompressed {
		t.Fatal("vbz schema misreported as uncompressed")
	}

	uncompressed := arrow.NewSchema([]arrow.Field{
		{Name: "read_id", Type: SignalTableFields[0].Type},
		{Name: "signal", Type: UncompressedSignalType},
		{Name: "samples", Type: arrow.PrimitiveTypes.Uint32},
	}, nil)
	desc, err = ResolveSignalTableSchema(Version{0, 3, 0}, uncompressed)
	if err != nil {
		t.Fatalf("ResolveSignalTableSchema (uncompressed): %v", err)
	}
	if !desc.Uncompressed {
		t.Fatal("uncompressed schema not detected")
	}
}

func fieldNames(fields []arrow.Field) []string {
	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = f.Name
	}
	return names
}

func contains(names []string, name string) bool {
	for _, n := range names {
		if n == name {
			return true
		}
	}
	return false
}

/*
Package schema describes the read, signal, and run-info table layouts:
immutable lists of fields, each carrying the table-spec version it was
added at and, optionally, the version it was removed at. Field lookup is
keyed by name and checked against the Arrow type the file actually
carries.

Grounded on original_source/c++/pod5_format/read_table_schema.cpp and
signal_table_schema.cpp for the exact field lists and versions.
*/
package schema

import (
	"fmt"
	"strconv"
	"strings"
)

// TableVersion is a monotonically increasing table-spec version, carried
// per field as the version it was added at and, optionally, removed at.
type TableVersion uint8

// NeverRemoved marks a field that has not been removed in any known
// table-spec version.
const NeverRemoved TableVersion = 255

// LatestReadTableVersion is the newest read-table-spec version this
// package implements.
const LatestReadTableVersion TableVersion = 3

// LatestSignalTableVersion is the newest signal-table-spec version this
// package implements.
const LatestSignalTableVersion TableVersion = 0

// LatestRunInfoTableVersion is the newest run-info-table-spec version
// this package implements.
const LatestRunInfoTableVersion TableVersion = 0

// ExpectedReadTableVersion returns the table-spec version a reader
// should expect for the read table. The reference implementation always
// resolves to the newest version it knows regardless of the file's pod5
// version string (table_version_from_file_version returns
// ReadTableSpecVersion::latest() unconditionally); this keeps that
// behavior; file_version is accepted for interface symmetry and so a
// future version-dependent resolution is a one-line change.
func ExpectedReadTableVersion(fileVersion Version) TableVersion {
	return LatestReadTableVersion
}

// ExpectedSignalTableVersion mirrors ExpectedReadTableVersion for the
// signal table.
func ExpectedSignalTableVersion(fileVersion Version) TableVersion {
	return LatestSignalTableVersion
}

// Version is a three-component dotted pod5 file-format version, e.g.
// "0.3.2", as stored in the MINKNOW:pod5_version schema metadata key.
type Version struct {
	Major, Minor, Patch uint16
}

// String renders a Version as "major.minor.patch".
func (v Version) String() string {
	return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
}

// ParseVersion parses a pod5_version string. It requires exactly three
// dot-separated components, each a plain non-negative integer with no
// trailing characters; any other shape is rejected, matching
// parse_version_number in original_source/c++/pod5_format/schema_metadata.cpp.
func ParseVersion(s string) (Version, error) {
	parts := strings.Split(s, ".")
	if len(parts) != 3 {
		return Version{}, fmt.Errorf("pod5: version %q must have exactly 3 components, got %d", s, len(parts))
	}
	var components [3]uint16
	for i, part := range parts {
		n, err := strconv.ParseUint(part, 10, 16)
		if err != nil {
			return Version{}, fmt.Errorf("pod5: version %q component %q is not a valid integer: %w", s, part, err)
		}
		components[i] = uint16(n)
	}
	return Version{Major: components[0], Minor: components[1], Patch: components[2]}, nil
}

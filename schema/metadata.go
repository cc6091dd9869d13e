package schema

import (
	"fmt"

	"github.com/apache/arrow/go/v14/arrow"
)

// Arrow schema-level key-value metadata keys carried by every pod5
// sub-table, mirroring original_source/c++/pod5_format/schema_metadata.cpp.
const (
	MetadataKeyFileIdentifier = "MINKNOW:file_identifier"
	MetadataKeySoftware       = "MINKNOW:software"
	MetadataKeyPod5Version    = "MINKNOW:pod5_version"
)

// Description is the parsed form of a sub-table's schema metadata.
type Description struct {
	FileIdentifier string
	Software       string
	Pod5Version    Version
}

// MakeKeyValueMetadata builds the Arrow schema metadata a writer attaches
// to each sub-table file: the shared file identifier, the writing
// software's name, and the pod5 file-format version being written.
func MakeKeyValueMetadata(d Description) *arrow.Metadata {
	keys := []string{MetadataKeyFileIdentifier, MetadataKeySoftware, MetadataKeyPod5Version}
	values := []string{d.FileIdentifier, d.Software, d.Pod5Version.String()}
	m := arrow.NewMetadata(keys, values)
	return &m
}

// ReadKeyValueMetadata parses a sub-table's schema metadata, requiring
// all three keys to be present.
func ReadKeyValueMetadata(metadata arrow.Metadata) (Description, error) {
	fileIdentifier := metadata.FindKey(MetadataKeyFileIdentifier)
	if fileIdentifier < 0 {
		return Description{}, fmt.Errorf("pod5: schema metadata missing %q", MetadataKeyFileIdentifier)
	}

	softwareIdx := metadata.FindKey(MetadataKeySoftware)
	if softwareIdx < 0 {
		return Description{}, fmt.Errorf("pod5: schema metadata missing %q", MetadataKeySoftware)
	}

	versionIdx := metadata.FindKey(MetadataKeyPod5Version)
	if versionIdx < 0 {
		return Description{}, fmt.Errorf("pod5: schema metadata missing %q", MetadataKeyPod5Version)
	}

	version, err := ParseVersion(metadata.Values()[versionIdx])
	if err != nil {
		return Description{}, err
	}

	return Description{
		FileIdentifier: metadata.Values()[fileIdentifier],
		Software:       metadata.Values()[softwareIdx],
		Pod5Version:    version,
	}, nil
}

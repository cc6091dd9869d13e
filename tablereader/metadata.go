package tablereader

import (
	"fmt"

	"github.com/apache/arrow/go/v14/arrow/ipc"
	"github.com/apache/arrow/go/v14/arrow/memory"

	"github.com/koeng101/pod5/extype"
	"github.com/koeng101/pod5/schema"
)

// PeekMetadata opens ra as an Arrow IPC file just far enough to read
// its schema's key-value metadata (file_identifier, software,
// pod5_version), without resolving any table-spec field list. Used by
// a split-file open to cross-check the reads and signal sub-files
// share one file_identifier before committing to either table version.
func PeekMetadata(ra ipc.ReadAtSeeker) (schema.Description, error) {
	handle := extype.RegisterAll()
	defer handle.Release()

	r, err := ipc.NewFileReader(ra, ipc.WithAllocator(memory.NewGoAllocator()))
	if err != nil {
		return schema.Description{}, fmt.Errorf("pod5: peek metadata: open ipc file: %w", err)
	}
	defer r.Close()

	desc, err := schema.ReadKeyValueMetadata(r.Schema().Metadata())
	if err != nil {
		return schema.Description{}, fmt.Errorf("pod5: peek metadata: %w", err)
	}
	return desc, nil
}

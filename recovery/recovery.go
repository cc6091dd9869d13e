/*
Package recovery reopens a sub-file whose footer failed to parse (a
crash or a truncated copy) as a plain Arrow IPC stream and salvages
whatever complete record batches precede the damage.

Grounded on the §4.10 fallback path of
original_source/c++/pod5_format/internal/combined_file_utils.h's
read_footer callers: when the trailing footer can't be found or
decoded, a pod5 sub-file is still a valid Arrow stream up to the point
of damage, because the File-format writer this module uses (see
tablewriter) emits its batches exactly the way the streaming format
does, only adding the file format's 8-byte leading magic and appending
the random-access footer at Close. Consuming the bytes after that
leading magic with ipc.NewReader (the streaming reader, which never
looks at a trailing footer) recovers every batch written before the
failure; Recover itself does not skip the magic.
*/
package recovery

import (
	"fmt"
	"io"

	"github.com/apache/arrow/go/v14/arrow"
	"github.com/apache/arrow/go/v14/arrow/ipc"
	"github.com/apache/arrow/go/v14/arrow/memory"
)

// RecoveredData is the result of a best-effort recovery pass: every
// batch read successfully, the total row count across them, the schema
// they were read against, and, for a partial recovery, the error that
// stopped consumption.
type RecoveredData struct {
	Batches       []arrow.Record
	RecoveredRows uint64
	Schema        *arrow.Schema
	FailedBatch   error
}

// Release releases every recovered batch. Callers must call this once
// done with the batches (or take ownership of them individually and
// skip it).
func (r *RecoveredData) Release() {
	for _, rec := range r.Batches {
		rec.Release()
	}
}

// Recover consumes r as an Arrow IPC stream (the same batch sequence a
// sub-file's File-format writer produced, without requiring its
// trailing footer) and returns every batch read before EOF or the
// first read error. r must begin at the first stream message: for a
// File-format sub-file, that is after its 8-byte leading magic. Every
// batch read before EOF or the
// first read error. A clean end-of-stream is not an error: FailedBatch
// is nil in that case. An error partway through is reported via
// FailedBatch, with every batch recovered up to that point still
// returned.
func Recover(r io.Reader, mem memory.Allocator) (*RecoveredData, error) {
	stream, err := ipc.NewReader(r, ipc.WithAllocator(mem))
	if err != nil {
		return nil, fmt.Errorf("pod5: recovery: open ipc stream: %w", err)
	}
	defer stream.Release()

	out := &RecoveredData{Schema: stream.Schema()}
	for stream.Next() {
		rec := stream.Record()
		rec.Retain()
		out.Batches = append(out.Batches, rec)
		out.RecoveredRows += uint64(rec.NumRows())
	}
	if err := stream.Err(); err != nil && err != io.EOF {
		out.FailedBatch = fmt.Errorf("pod5: recovery: read batch %d: %w", len(out.Batches), err)
	}
	return out, nil
}

// RecoverBatches is a convenience wrapper returning the batches and
// row count, with FailedBatch as the error value (nil for a clean
// recovery); the batches read before a failure are returned alongside
// it.
func RecoverBatches(r io.Reader, mem memory.Allocator) ([]arrow.Record, uint64, error) {
	data, err := Recover(r, mem)
	if err != nil {
		return nil, 0, err
	}
	return data.Batches, data.RecoveredRows, data.FailedBatch
}

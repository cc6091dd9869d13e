/*
Package envelope implements the combined-file container format a pod5
file wraps around its Arrow IPC sub-files: an 8-byte file signature, a
16-byte UUID section marker, one embedded Arrow IPC sub-file per table,
and a trailing footer (8-byte magic, a flatbuffer describing each
sub-file's byte range, 8-byte alignment padding, a little-endian footer
length, the section marker again, and the file signature again) so the
footer can be found and verified by scanning from either end of the
file.

Grounded on combined_file_utils.h in
original_source/c++/mkr_format/internal (the filtered retrieval set
kept the MKR-era combined-file writer/reader rather than pod5_format's
own, functionally identical version); the flatbuffer footer table is
encoded and decoded directly against github.com/google/flatbuffers/go's
Builder and Table primitives, the same primitives flatc-generated
accessors call, since no .fbs schema survived filtering to run flatc
against.
*/
package envelope

import (
	"fmt"

	flatbuffers "github.com/google/flatbuffers/go"
)

// FileSignature is pod5's 8-byte combined-file signature, an analogue
// of MKR's own ('\213','M','K','R','\r','\n','\032','\n'): a non-ASCII
// lead byte plus a CRLF/EOF-aware tail so truncation by a text-mode
// transfer is detectable, tagged with this format's own magic letters
// so a pod5 reader never mistakes an MKR file for one of its own.
var FileSignature = [8]byte{0x8b, 'P', 'O', 'D', '\r', '\n', 0x1a, '\n'}

// FooterMagic marks the start of the footer, immediately after the
// last embedded sub-file.
var FooterMagic = [8]byte{'F', 'O', 'O', 'T', 'E', 'R', 0, 0}

// ContentType identifies which table an embedded sub-file holds.
type ContentType int8

const (
	ContentTypeReadsTable ContentType = iota
	ContentTypeSignalTable
	ContentTypeRunInfoTable
)

// Format identifies the wire format of an embedded sub-file. pod5 only
// ever embeds the Arrow IPC file (random-access) format.
type Format int8

const ArrowIPCFile Format = 0

// EmbeddedFile is one sub-file's byte range inside the combined file,
// plus what it holds.
type EmbeddedFile struct {
	Offset      int64
	Length      int64
	Format      Format
	ContentType ContentType
}

// Footer is the fully decoded footer metadata: the file-wide identifier
// and writing software, the pod5 version string, and each embedded
// sub-file's location.
type Footer struct {
	FileIdentifier string
	Software       string
	Pod5Version    string
	Contents       []EmbeddedFile
}

// flatbuffer vtable field offsets, in declaration order: matches the
// slot numbers used by both encodeEmbeddedFile/encodeFooter and their
// decode counterparts.
const (
	embeddedFieldOffset      = 0
	embeddedFieldLength      = 1
	embeddedFieldFormat      = 2
	embeddedFieldContentType = 3

	footerFieldFileIdentifier = 0
	footerFieldSoftware       = 1
	footerFieldPod5Version    = 2
	footerFieldContents       = 3
)

func encodeEmbeddedFile(b *flatbuffers.Builder, f EmbeddedFile) flatbuffers.UOffsetT {
	b.StartObject(4)
	b.PrependInt8Slot(embeddedFieldContentType, int8(f.ContentType), 0)
	b.PrependInt8Slot(embeddedFieldFormat, int8(f.Format), 0)
	b.PrependInt64Slot(embeddedFieldLength, f.Length, 0)
	b.PrependInt64Slot(embeddedFieldOffset, f.Offset, 0)
	return b.EndObject()
}

// EncodeFooter serializes footer as a flatbuffer and returns the
// finished buffer (flatbuffers.Builder.FinishedBytes' slice, which
// callers must not mutate).
func EncodeFooter(footer Footer) []byte {
	b := flatbuffers.NewBuilder(1024)

	fileOffsets := make([]flatbuffers.UOffsetT, len(footer.Contents))
	for i, f := range footer.Contents {
		fileOffsets[i] = encodeEmbeddedFile(b, f)
	}

	b.StartVector(4, len(fileOffsets), 4)
	for i := len(fileOffsets) - 1; i >= 0; i-- {
		b.PrependUOffsetT(fileOffsets[i])
	}
	contentsVector := b.EndVector(len(fileOffsets))

	fileIdentifier := b.CreateString(footer.FileIdentifier)
	software := b.CreateString(footer.Software)
	version := b.CreateString(footer.Pod5Version)

	b.StartObject(4)
	b.PrependUOffsetTSlot(footerFieldContents, contentsVector, 0)
	b.PrependUOffsetTSlot(footerFieldPod5Version, version, 0)
	b.PrependUOffsetTSlot(footerFieldSoftware, software, 0)
	b.PrependUOffsetTSlot(footerFieldFileIdentifier, fileIdentifier, 0)
	footerOffset := b.EndObject()

	b.Finish(footerOffset)
	return b.FinishedBytes()
}

// DecodeFooter parses a footer flatbuffer produced by EncodeFooter.
func DecodeFooter(data []byte) (Footer, error) {
	if len(data) < 4 {
		return Footer{}, fmt.Errorf("pod5: footer buffer too short (%d bytes)", len(data))
	}
	rootOffset := flatbuffers.GetUOffsetT(data)
	tbl := &flatbuffers.Table{Bytes: data, Pos: rootOffset}

	fileIdentifier, err := requiredStringField(tbl, footerFieldFileIdentifier, "file_identifier")
	if err != nil {
		return Footer{}, err
	}
	software, err := requiredStringField(tbl, footerFieldSoftware, "software")
	if err != nil {
		return Footer{}, err
	}
	version, err := requiredStringField(tbl, footerFieldPod5Version, "pod5_version")
	if err != nil {
		return Footer{}, err
	}

	contentsField := tbl.Offset(flatbuffers.VOffsetT((footerFieldContents + 2) * 2))
	if contentsField == 0 {
		return Footer{}, fmt.Errorf("pod5: footer missing contents vector")
	}
	vectorStart := tbl.Vector(flatbuffers.UOffsetT(contentsField))
	vectorLen := tbl.VectorLen(flatbuffers.UOffsetT(contentsField))

	contents := make([]EmbeddedFile, vectorLen)
	for i := 0; i < vectorLen; i++ {
		elemPos := vectorStart + flatbuffers.UOffsetT(i)*4
		elemOffset := flatbuffers.GetUOffsetT(data[elemPos:])
		elemTbl := &flatbuffers.Table{Bytes: data, Pos: elemPos + elemOffset}

		f, err := decodeEmbeddedFile(elemTbl)
		if err != nil {
			return Footer{}, err
		}
		contents[i] = f
	}

	return Footer{
		FileIdentifier: fileIdentifier,
		Software:       software,
		Pod5Version:    version,
		Contents:       contents,
	}, nil
}

func decodeEmbeddedFile(tbl *flatbuffers.Table) (EmbeddedFile, error) {
	var f EmbeddedFile

	if o := tbl.Offset(flatbuffers.VOffsetT((embeddedFieldOffset + 2) * 2)); o != 0 {
		f.Offset = tbl.GetInt64(tbl.Pos + flatbuffers.UOffsetT(o))
	}
	if o := tbl.Offset(flatbuffers.VOffsetT((embeddedFieldLength + 2) * 2)); o != 0 {
		f.Length = tbl.GetInt64(tbl.Pos + flatbuffers.UOffsetT(o))
	}
	if o := tbl.Offset(flatbuffers.VOffsetT((embeddedFieldFormat + 2) * 2)); o != 0 {
		f.Format = Format(tbl.GetInt8(tbl.Pos + flatbuffers.UOffsetT(o)))
	}
	if o := tbl.Offset(flatbuffers.VOffsetT((embeddedFieldContentType + 2) * 2)); o != 0 {
		f.ContentType = ContentType(tbl.GetInt8(tbl.Pos + flatbuffers.UOffsetT(o)))
	}

	if f.Offset == 0 || f.Length == 0 {
		return EmbeddedFile{}, fmt.Errorf("pod5: embedded file has zero offset or length")
	}
	return f, nil
}

func requiredStringField(tbl *flatbuffers.Table, field int, name string) (string, error) {
	o := tbl.Offset(flatbuffers.VOffsetT((field + 2) * 2))
	if o == 0 {
		return "", fmt.Errorf("pod5: footer missing required field %q", name)
	}
	return string(tbl.ByteVector(tbl.Pos + flatbuffers.UOffsetT(o))), nil
}

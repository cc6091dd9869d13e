package envelope

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/google/uuid"
)

// Writer assembles a combined pod5 file: a header, one embedded
// sub-file per EmbedFile call or BeginSubFile/Finish pair, and a
// closing footer. It works over any io.Writer, counting the bytes it
// writes to track the current offset itself.
type Writer struct {
	w             io.Writer
	offset        int64
	sectionMarker uuid.UUID
	contents      []EmbeddedFile
}

// NewWriter writes the combined-file header (file signature + section
// marker) to w and returns a Writer ready to accept embedded sub-files.
func NewWriter(w io.Writer) (*Writer, error) {
	sectionMarker := uuid.New()
	cw := &Writer{w: w, sectionMarker: sectionMarker}

	if err := cw.writeBytes(FileSignature[:]); err != nil {
		return nil, fmt.Errorf("pod5: write file signature: %w", err)
	}
	if err := cw.writeBytes(sectionMarker[:]); err != nil {
		return nil, fmt.Errorf("pod5: write section marker: %w", err)
	}
	return cw, nil
}

func (w *Writer) writeBytes(b []byte) error {
	n, err := w.w.Write(b)
	w.offset += int64(n)
	return err
}

// Offset returns the writer's current position, the start offset of
// whatever is written next.
func (w *Writer) Offset() int64 { return w.offset }

// SubFileWriter is an io.Writer that forwards bytes straight into the
// combined file's stream while tracking the span written, so a table
// writer's Arrow IPC output lands directly in the combined file
// without first being buffered separately in memory.
type SubFileWriter struct {
	cw    *Writer
	start int64
	n     int64
}

// BeginSubFile pads to the next 8-byte boundary (per sub-file
// alignment) and returns a writer for the next embedded sub-file's
// bytes. Call Finish once the table writer writing through it has been
// closed.
func (w *Writer) BeginSubFile() (*SubFileWriter, error) {
	if err := w.padTo(8); err != nil {
		return nil, fmt.Errorf("pod5: align sub-file start: %w", err)
	}
	return &SubFileWriter{cw: w, start: w.offset}, nil
}

func (s *SubFileWriter) Write(p []byte) (int, error) {
	if err := s.cw.writeBytes(p); err != nil {
		return 0, err
	}
	s.n += int64(len(p))
	return len(p), nil
}

// Finish records this sub-file's byte range in the combined file's
// footer contents, tagged with contentType.
func (s *SubFileWriter) Finish(contentType ContentType) {
	s.cw.contents = append(s.cw.contents, EmbeddedFile{
		Offset:      s.start,
		Length:      s.n,
		Format:      ArrowIPCFile,
		ContentType: contentType,
	})
}

// EmbedFile records sub-file data (already serialized by the caller,
// e.g. an Arrow IPC file writer writing into its own buffer) at the
// writer's current offset, tagging it with contentType, and appends it
// to the footer's file list. Exported as the whole-buffer counterpart
// to BeginSubFile/SubFileWriter's incremental form, for a caller that
// already has a sub-file's complete bytes rather than streaming them.
func (w *Writer) EmbedFile(data []byte, contentType ContentType) error {
	if err := w.padTo(8); err != nil {
		return fmt.Errorf("pod5: align sub-file start: %w", err)
	}
	start := w.offset
	if err := w.writeBytes(data); err != nil {
		return fmt.Errorf("pod5: embed sub-file: %w", err)
	}
	w.contents = append(w.contents, EmbeddedFile{
		Offset:      start,
		Length:      int64(len(data)),
		Format:      ArrowIPCFile,
		ContentType: contentType,
	})
	return nil
}

// Close writes the footer (magic, flatbuffer, alignment padding,
// little-endian footer length, section marker, file signature) and
// returns the completed footer metadata.
func (w *Writer) Close(fileIdentifier, software, pod5Version string) (Footer, error) {
	footer := Footer{
		FileIdentifier: fileIdentifier,
		Software:       software,
		Pod5Version:    pod5Version,
		Contents:       w.contents,
	}

	if err := w.writeBytes(FooterMagic[:]); err != nil {
		return Footer{}, fmt.Errorf("pod5: write footer magic: %w", err)
	}

	fb := EncodeFooter(footer)
	if err := w.writeBytes(fb); err != nil {
		return Footer{}, fmt.Errorf("pod5: write footer flatbuffer: %w", err)
	}

	offsetBeforePad := w.offset
	if err := w.padTo(8); err != nil {
		return Footer{}, fmt.Errorf("pod5: pad footer: %w", err)
	}
	paddedLength := len(fb) + int(w.offset-offsetBeforePad)

	// The length field records the padded span [flatbuffer start,
	// padding end), not just the raw flatbuffer size: flatbuffers
	// verify fine with trailing zero padding, but a reader can only
	// locate the true flatbuffer start by walking back exactly this
	// many bytes from the length field, and the padding amount isn't
	// otherwise recoverable from the file.
	var lengthBuf [8]byte
	binary.LittleEndian.PutUint64(lengthBuf[:], uint64(paddedLength))
	if err := w.writeBytes(lengthBuf[:]); err != nil {
		return Footer{}, fmt.Errorf("pod5: write footer length: %w", err)
	}

	if err := w.writeBytes(w.sectionMarker[:]); err != nil {
		return Footer{}, fmt.Errorf("pod5: write closing section marker: %w", err)
	}
	if err := w.writeBytes(FileSignature[:]); err != nil {
		return Footer{}, fmt.Errorf("pod5: write closing file signature: %w", err)
	}

	return footer, nil
}

func (w *Writer) padTo(alignment int64) error {
	remainder := w.offset % alignment
	if remainder == 0 {
		return nil
	}
	padding := make([]byte, alignment-remainder)
	return w.writeBytes(padding)
}

// Reader gives random access to an opened combined pod5 file: its
// footer, and each embedded sub-file's byte range as an io.ReaderAt
// window.
type Reader struct {
	ra     io.ReaderAt
	size   int64
	Footer Footer
}

// Open parses the footer out of ra (of the given total size) and
// verifies both file-signature copies.
func Open(ra io.ReaderAt, size int64) (*Reader, error) {
	if err := checkSignature(ra, 0); err != nil {
		return nil, err
	}
	if err := checkSignature(ra, size-int64(len(FileSignature))); err != nil {
		return nil, err
	}

	footerLengthEnd := size - int64(len(FileSignature)) - 16
	var lengthBuf [8]byte
	if _, err := ra.ReadAt(lengthBuf[:], footerLengthEnd-8); err != nil {
		return nil, fmt.Errorf("pod5: read footer length: %w", err)
	}
	footerLength := int64(binary.LittleEndian.Uint64(lengthBuf[:]))
	if footerLength <= 0 || footerLength > footerLengthEnd {
		return nil, fmt.Errorf("pod5: implausible footer length %d", footerLength)
	}

	footerData := make([]byte, footerLength)
	footerStart := footerLengthEnd - 8 - footerLength
	if _, err := ra.ReadAt(footerData, footerStart); err != nil {
		return nil, fmt.Errorf("pod5: read footer flatbuffer: %w", err)
	}

	footer, err := DecodeFooter(footerData)
	if err != nil {
		return nil, fmt.Errorf("pod5: decode footer: %w", err)
	}

	return &Reader{ra: ra, size: size, Footer: footer}, nil
}

func checkSignature(ra io.ReaderAt, offset int64) error {
	var got [8]byte
	if _, err := ra.ReadAt(got[:], offset); err != nil {
		return fmt.Errorf("pod5: read file signature at %d: %w", offset, err)
	}
	if !bytes.Equal(got[:], FileSignature[:]) {
		return fmt.Errorf("pod5: invalid file signature at offset %d", offset)
	}
	return nil
}

// WholeFile wraps ra (of the given total size) as a SubFileReader
// spanning the entire thing, the (offset 0, length size) window a
// split-file open needs when a sub-table's Arrow IPC file has no outer
// envelope to carve a window out of.
func WholeFile(ra lenReaderAt) *SubFileReader {
	return &SubFileReader{ra: ra, offset: 0, length: int64(ra.Len())}
}

// lenReaderAt is the io.ReaderAt + Len() surface golang.org/x/exp/mmap's
// ReaderAt exposes.
type lenReaderAt interface {
	io.ReaderAt
	Len() int
}

// SubFile returns an io.ReaderAt windowed onto the named embedded
// sub-file.
func (r *Reader) SubFile(contentType ContentType) (*SubFileReader, error) {
	for _, f := range r.Footer.Contents {
		if f.ContentType == contentType {
			return &SubFileReader{ra: r.ra, offset: f.Offset, length: f.Length}, nil
		}
	}
	return nil, fmt.Errorf("pod5: no embedded sub-file of content type %d", contentType)
}

// SubFileReader is an io.ReaderAt restricted to one embedded sub-file's
// byte range, implementing the (io.ReaderAt + io.Seeker + io.Reader)
// surface Arrow's ipc.NewFileReader requires.
type SubFileReader struct {
	ra     io.ReaderAt
	offset int64
	length int64
	pos    int64
}

func (s *SubFileReader) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 || off > s.length {
		return 0, fmt.Errorf("pod5: read offset %d out of sub-file range [0,%d)", off, s.length)
	}
	max := s.length - off
	if int64(len(p)) > max {
		p = p[:max]
	}
	n, err := s.ra.ReadAt(p, s.offset+off)
	if err != nil && err != io.EOF {
		return n, err
	}
	if int64(n) < int64(len(p)) {
		return n, io.ErrUnexpectedEOF
	}
	return n, nil
}

func (s *SubFileReader) Read(p []byte) (int, error) {
	n, err := s.ReadAt(p, s.pos)
	s.pos += int64(n)
	if err == nil && s.pos >= s.length {
		err = io.EOF
	}
	return n, err
}

func (s *SubFileReader) Seek(offset int64, whence int) (int64, error) {
	var newPos int64
	switch whence {
	case io.SeekStart:
		newPos = offset
	case io.SeekCurrent:
		newPos = s.pos + offset
	case io.SeekEnd:
		newPos = s.length + offset
	default:
		return 0, fmt.Errorf("pod5: invalid whence %d", whence)
	}
	if newPos < 0 {
		return 0, fmt.Errorf("pod5: negative seek position %d", newPos)
	}
	s.pos = newPos
	return newPos, nil
}

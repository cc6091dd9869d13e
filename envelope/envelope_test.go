package envelope

import (
	"bytes"
	"io"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestCombinedFileRoundTrip(t *testing.T) {
	var buf bytes.Buffer

	w, err := NewWriter(&buf)
	if err != nil {
		t.Fatalf("NewWriter: %v", err)
	}

	reads := bytes.Repeat([]byte{0xAA}, 37)
	signal := bytes.Repeat([]byte{0xBB}, 101)
	runInfo := bytes.Repeat([]byte{0xCC}, 19)

	if err := w.EmbedFile(reads, ContentTypeReadsTable); err != nil {
		t.Fatalf("EmbedFile(reads): %v", err)
	}
	if err := w.EmbedFile(signal, ContentTypeSignalTable); err != nil {
		t.Fatalf("EmbedFile(signal): %v", err)
	}
	if err := w.EmbedFile(runInfo, ContentTypeRunInfoTable); err != nil {
		t.Fatalf("EmbedFile(runInfo): %v", err)
	}

	footer, err := w.Close("11111111-1111-1111-1111-111111111111", "pod5 go test", "0.3.10")
	if err != nil {
		t.Fatalf("Close: %v", err)
	}
	if len(footer.Contents) != 3 {
		t.Fatalf("footer has %d embedded files, want 3", len(footer.Contents))
	}

	data := buf.Bytes()
	r, err := Open(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	if r.Footer.FileIdentifier != "11111111-1111-1111-1111-111111111111" {
		t.Errorf("FileIdentifier = %q", r.Footer.FileIdentifier)
	}
	if r.Footer.Software != "pod5 go test" {
		t.Errorf("Software = %q", r.Footer.Software)
	}
	if r.Footer.Pod5Version != "0.3.10" {
		t.Errorf("Pod5Version = %q", r.Footer.Pod5Version)
	}
	if diff := cmp.Diff(footer.Contents, r.Footer.Contents); diff != "" {
		t.Fatalf("embedded file list mismatch (-want +got):\n%s", diff)
	}

	for _, tc := range []struct {
		contentType ContentType
		want        []byte
	}{
		{ContentTypeReadsTable, reads},
		{ContentTypeSignalTable, signal},
		{ContentTypeRunInfoTable, runInfo},
	} {
		sub, err := r.SubFile(tc.contentType)
		if err != nil {
			t.Fatalf("SubFile(%d): %v", tc.contentType, err)
		}
		got := make([]byte, len(tc.want))
		if _, err := sub.ReadAt(got, 0); err != nil {
			t.Fatalf("ReadAt(%d): %v", tc.contentType, err)
		}
		if !bytes.Equal(got, tc.want) {
			t.Errorf("content type %d: got %x, want %x", tc.contentType, got, tc.want)
		}
	}
}

// TestCombinedFileRoundTripUnalignedFlatbuffer exercises the case where
// the footer flatbuffer's encoded length is not already a multiple of
// 8, forcing Close to pad: regression test for the footer-length field
// recording the padded span rather than the raw flatbuffer size (the
// only way a reader can find the true flatbuffer start without also
// knowing the absolute file offset it begins at).
func TestCombinedFileRoundTripUnalignedFlatbuffer(t *testing.T) {
	for _, software := range []string{"a", "ab", "abc", "abcd", "abcde", "abcdef", "abcdefg"} {
		var buf bytes.Buffer
		w, err := NewWriter(&buf)
		if err != nil {
			t.Fatalf("NewWriter: %v", err)
		}
		if err := w.EmbedFile([]byte{1, 2, 3}, ContentTypeReadsTable); err != nil {
			t.Fatalf("EmbedFile: %v", err)
		}
		if _, err := w.Close("id", software, "0.3.10"); err != nil {
			t.Fatalf("Close: %v", err)
		}

		data := buf.Bytes()
		r, err := Open(bytes.NewReader(data), int64(len(data)))
		if err != nil {
			t.Fatalf("Open (software=%q): %v", software, err)
		}
		if r.Footer.Software != software {
			t.Errorf("Software = %q, want %q", r.Footer.Software, software)
		}
	}
}

func TestOpenRejectsBadSignature(t *testing.T) {
	var buf bytes.Buffer
	w, err := NewWriter(&buf)
	if err != nil {
		t.Fatalf("NewWriter: %v", err)
	}
	if err := w.EmbedFile([]byte{1}, ContentTypeReadsTable); err != nil {
		t.Fatalf("EmbedFile: %v", err)
	}
	if _, err := w.Close("id", "sw", "0.3.10"); err != nil {
		t.Fatalf("Close: %v", err)
	}

	data := buf.Bytes()
	corrupted := append([]byte(nil), data...)
	corrupted[0] ^= 0xFF
	if _, err := Open(bytes.NewReader(corrupted), int64(len(corrupted))); err == nil {
		t.Fatal("Open succeeded with corrupted leading signature, want error")
	}

	corruptedTail := append([]byte(nil), data...)
	corruptedTail[len(corruptedTail)-1] ^= 0xFF
	if _, err := Open(bytes.NewReader(corruptedTail), int64(len(corruptedTail))); err == nil {
		t.Fatal("Open succeeded with corrupted trailing signature, want error")
	}
}

func TestSubFileReaderSeekAndSequentialRead(t *testing.T) {
	backing := []byte("0123456789abcdefghij")
	s := &SubFileReader{ra: bytes.NewReader(backing), offset: 5, length: 10}

	var got [4]byte
	n, err := s.Read(got[:])
	if err != nil || n != 4 {
		t.Fatalf("Read: n=%d err=%v", n, err)
	}
	if string(got[:]) != "5678" {
		t.Fatalf("Read = %q, want 5678", got[:])
	}

	pos, err := s.Seek(2, io.SeekStart)
	if err != nil {
		t.Fatalf("Seek: %v", err)
	}
	if pos != 2 {
		t.Fatalf("Seek returned %d, want 2", pos)
	}

	rest := make([]byte, 8)
	n, err = s.Read(rest)
	if n != 8 {
		t.Fatalf("Read after seek: n=%d err=%v", n, err)
	}
	if string(rest) != "789abcde" {
		t.Fatalf("Read after seek = %q, want 789abcde", rest)
	}

	n, err = s.Read(make([]byte, 1))
	if n != 0 || err == nil {
		t.Fatalf("Read past end: n=%d err=%v, want (0, EOF-like error)", n, err)
	}
}

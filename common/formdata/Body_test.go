package formdata

import (
	"bytes"
	"encoding/json"
	"io"
	"mime"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"crashreporter/common/format"
	"crashreporter/common/report"
)

func newReport(t *testing.T, path string) *report.CrashReport {
	t.Helper()
	r, err := report.FromArgs([]string{
		"http://localhost:9999/api/crash", "key123", path, "1.2.3", "guid-1",
		"1234", "5678", "0xC0000005", "0x7FF6A1B2", "0", "1234567890", "4194304",
	}, func() time.Time { return time.Unix(1700000000, 0) })
	if err != nil {
		t.Fatalf("FromArgs: %v", err)
	}
	return r
}

func writeDump(t *testing.T, size int) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "dump.dmp")
	data := make([]byte, size)
	for i := range data {
		data[i] = byte(i % 251)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("write dump: %v", err)
	}
	return path
}

func TestRequestSizeMatchesBody(t *testing.T) {
	for _, size := range []int{0, 1, 10000, ChunkSize - 1, ChunkSize, ChunkSize + 1, 3*ChunkSize + 17} {
		path := writeDump(t, size)
		for _, boundary := range []string{"", "xyz", "----Other-Boundary_42"} {
			w, err := NewWriter(newReport(t, path), boundary)
			if err != nil {
				t.Fatalf("NewWriter: %v", err)
			}
			want, err := w.RequestSize()
			if err != nil {
				t.Fatalf("RequestSize: %v", err)
			}
			var buf bytes.Buffer
			n, err := w.WriteBody(&buf)
			if err != nil {
				t.Fatalf("WriteBody: %v", err)
			}
			if n != want || int64(buf.Len()) != want {
				t.Fatalf("size %d boundary %q: RequestSize=%d written=%d buffered=%d", size, boundary, want, n, buf.Len())
			}
		}
	}
}

func TestBodyLayout(t *testing.T) {
	path := writeDump(t, 10000)
	r := newReport(t, path)
	w, err := NewWriter(r, "")
	if err != nil {
		t.Fatalf("NewWriter: %v", err)
	}
	var buf bytes.Buffer
	if _, err := w.WriteBody(&buf); err != nil {
		t.Fatalf("WriteBody: %v", err)
	}
	body := buf.String()
	if !strings.HasPrefix(body, "--"+DefaultBoundary+"\r\n") {
		t.Fatalf("unexpected body start: %q", body[:40])
	}
	if !strings.HasSuffix(body, "\r\n--"+DefaultBoundary+"--\r\n") {
		t.Fatalf("missing closing delimiter")
	}

	_, params, err := mime.ParseMediaType(w.ContentType())
	if err != nil || params["boundary"] != DefaultBoundary {
		t.Fatalf("bad content type %q: %v", w.ContentType(), err)
	}

	mr := multipart.NewReader(&buf, params["boundary"])
	meta, err := mr.NextPart()
	if err != nil {
		t.Fatalf("metadata part: %v", err)
	}
	if meta.FormName() != MetadataField || meta.Header.Get("Content-Type") != "application/json" {
		t.Fatalf("unexpected metadata part headers: %v", meta.Header)
	}
	var got format.Metadata
	if err := json.NewDecoder(meta).Decode(&got); err != nil {
		t.Fatalf("decode metadata: %v", err)
	}
	if got != *r.Metadata() {
		t.Fatalf("metadata mismatch: %+v vs %+v", got, *r.Metadata())
	}

	file, err := mr.NextPart()
	if err != nil {
		t.Fatalf("file part: %v", err)
	}
	if file.FormName() != MinidumpField || file.FileName() != "dump.dmp" {
		t.Fatalf("unexpected file part: %q %q", file.FormName(), file.FileName())
	}
	if file.Header.Get("Content-Type") != "application/octet-stream" {
		t.Fatalf("unexpected file content type %q", file.Header.Get("Content-Type"))
	}
	data, err := io.ReadAll(file)
	if err != nil {
		t.Fatalf("read file part: %v", err)
	}
	want, _ := os.ReadFile(path)
	if !bytes.Equal(data, want) {
		t.Fatalf("file content mismatch: %d vs %d bytes", len(data), len(want))
	}
	if _, err := mr.NextPart(); err != io.EOF {
		t.Fatalf("expected end of body, got %v", err)
	}
}

func TestWindowsFilename(t *testing.T) {
	r := newReport(t, `C:\a\b\dump.dmp`)
	w, err := NewWriter(r, "")
	if err != nil {
		t.Fatalf("NewWriter: %v", err)
	}
	if !strings.Contains(w.fileHeader().Get("Content-Disposition"), `filename="dump.dmp"`) {
		t.Fatalf("unexpected header %v", w.fileHeader())
	}
}

func TestMissingFile(t *testing.T) {
	r := newReport(t, filepath.Join(t.TempDir(), "absent.dmp"))
	w, err := NewWriter(r, "")
	if err != nil {
		t.Fatalf("NewWriter: %v", err)
	}
	size, err := w.RequestSize()
	if err != nil {
		t.Fatalf("RequestSize: %v", err)
	}
	if size <= 0 {
		t.Fatalf("expected envelope size, got %d", size)
	}
	if _, err := w.WriteBody(io.Discard); err == nil {
		t.Fatalf("expected open error")
	}
}

func TestInvalidBoundary(t *testing.T) {
	r := newReport(t, "dump.dmp")
	if _, err := NewWriter(r, "bad boundary\n"); err == nil {
		t.Fatalf("expected boundary error")
	}
	if _, err := NewWriter(r, strings.Repeat("a", 71)); err == nil {
		t.Fatalf("expected length error")
	}
}

type failingWriter struct {
	left int
}

func (f *failingWriter) Write(p []byte) (int, error) {
	if len(p) > f.left {
		n := f.left
		f.left = 0
		return n, io.ErrClosedPipe
	}
	f.left -= len(p)
	return len(p), nil
}

func TestWriteFailureAborts(t *testing.T) {
	path := writeDump(t, 2*ChunkSize)
	w, err := NewWriter(newReport(t, path), "")
	if err != nil {
		t.Fatalf("NewWriter: %v", err)
	}
	total, _ := w.RequestSize()
	for _, limit := range []int{0, 50, 400, int(total) - ChunkSize, int(total) - 5} {
		if _, err := w.WriteBody(&failingWriter{left: limit}); err == nil {
			t.Fatalf("limit %d: expected write error", limit)
		}
	}
}

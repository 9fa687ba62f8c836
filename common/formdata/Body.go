// Package formdata produces the multipart/form-data body of a crash upload.
//
// The body has two parts, the JSON metadata and the raw minidump. The
// minidump is streamed from disk and never held in memory. RequestSize and
// WriteBody share the envelope code so the announced Content-Length always
// matches the bytes put on the wire.
package formdata

import (
	"io"
	"mime/multipart"
	"net/textproto"
	"os"
	"strings"

	"crashreporter/common/report"
	"crashreporter/common/utils"

	"github.com/go-errors/errors"
	log "github.com/sirupsen/logrus"
)

const (
	DefaultBoundary = "----CrashBoundary1234567890"
	ChunkSize       = 64 * 1024

	MetadataField = "metadata"
	MinidumpField = "minidump"
)

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

// Writer renders the upload body of a single crash report.
type Writer struct {
	report    *report.CrashReport
	boundary  string
	chunkSize int
	metadata  []byte
}

func NewWriter(r *report.CrashReport, boundary string) (*Writer, error) {
	if boundary == "" {
		boundary = DefaultBoundary
	}
	// SetBoundary applies the RFC 2046 character and length rules.
	if err := multipart.NewWriter(io.Discard).SetBoundary(boundary); err != nil {
		return nil, errors.WrapPrefix(err, "boundary "+boundary, 0)
	}

	metadata, err := r.Metadata().Encode()
	if err != nil {
		return nil, errors.WrapPrefix(err, "encode metadata", 0)
	}

	return &Writer{
		report:    r,
		boundary:  boundary,
		chunkSize: ChunkSize,
		metadata:  metadata,
	}, nil
}

func (w *Writer) Boundary() string {
	return w.boundary
}

func (w *Writer) ContentType() string {
	return "multipart/form-data; boundary=" + w.boundary
}

// RequestSize returns the exact number of bytes WriteBody will produce.
// A minidump that cannot be opened counts as empty.
func (w *Writer) RequestSize() (int64, error) {
	counter := &countingWriter{w: io.Discard}
	mw, err := w.writeHead(counter)
	if err != nil {
		return 0, err
	}
	if err := mw.Close(); err != nil {
		return 0, errors.WrapPrefix(err, "closing boundary", 0)
	}
	return counter.n + fileSize(w.report.MinidumpPath), nil
}

// RequestSize is a shorthand for NewWriter(r, boundary).RequestSize().
func RequestSize(r *report.CrashReport, boundary string) (int64, error) {
	w, err := NewWriter(r, boundary)
	if err != nil {
		return 0, err
	}
	return w.RequestSize()
}

// WriteBody streams the whole body to dst and returns the number of bytes
// written. Any failed write or read aborts the body.
func (w *Writer) WriteBody(dst io.Writer) (int64, error) {
	counter := &countingWriter{w: dst}
	mw, err := w.writeHead(counter)
	if err != nil {
		return counter.n, err
	}

	sent, err := w.streamFile(counter)
	if err != nil {
		return counter.n, err
	}
	log.WithFields(log.Fields{
		"file":  w.report.MinidumpPath,
		"bytes": sent,
	}).Debug("Minidump sent")

	if err := mw.Close(); err != nil {
		return counter.n, errors.WrapPrefix(err, "closing boundary", 0)
	}
	return counter.n, nil
}

// writeHead writes the metadata part and the minidump part header.
func (w *Writer) writeHead(dst io.Writer) (*multipart.Writer, error) {
	mw := multipart.NewWriter(dst)
	if err := mw.SetBoundary(w.boundary); err != nil {
		return nil, errors.WrapPrefix(err, "boundary", 0)
	}

	part, err := mw.CreatePart(w.metadataHeader())
	if err != nil {
		return nil, errors.WrapPrefix(err, "metadata part header", 0)
	}
	if _, err := part.Write(w.metadata); err != nil {
		return nil, errors.WrapPrefix(err, "metadata part", 0)
	}

	if _, err := mw.CreatePart(w.fileHeader()); err != nil {
		return nil, errors.WrapPrefix(err, "minidump part header", 0)
	}
	return mw, nil
}

func (w *Writer) metadataHeader() textproto.MIMEHeader {
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="`+MetadataField+`"`)
	h.Set("Content-Type", "application/json")
	return h
}

func (w *Writer) fileHeader() textproto.MIMEHeader {
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="`+MinidumpField+`"; filename="`+
		quoteEscaper.Replace(utils.Basename(w.report.MinidumpPath))+`"`)
	h.Set("Content-Type", "application/octet-stream")
	return h
}

// streamFile copies the minidump in chunkSize pieces. The file is closed
// before it returns.
func (w *Writer) streamFile(dst io.Writer) (int64, error) {
	file, err := os.Open(w.report.MinidumpPath)
	if err != nil {
		return 0, errors.WrapPrefix(err, "open minidump", 0)
	}
	defer file.Close()

	buf := make([]byte, w.chunkSize)
	var sent int64
	for {
		n, rerr := file.Read(buf)
		if n > 0 {
			if _, err := dst.Write(buf[:n]); err != nil {
				return sent, errors.WrapPrefix(err, "minidump chunk", 0)
			}
			sent += int64(n)
			log.WithField("sent", sent).Debug("Minidump chunk written")
		}
		if rerr == io.EOF {
			return sent, nil
		}
		if rerr != nil {
			return sent, errors.WrapPrefix(rerr, "read minidump", 0)
		}
	}
}

func fileSize(path string) int64 {
	file, err := os.Open(path)
	if err != nil {
		return 0
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return 0
	}
	return info.Size()
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}

package minidump

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"
)

func headerBytes(t *testing.T, h Header) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := binary.Write(&buf, binary.LittleEndian, &h); err != nil {
		t.Fatalf("encode header: %v", err)
	}
	return buf.Bytes()
}

func TestReadHeader(t *testing.T) {
	data := headerBytes(t, Header{
		Signature:     Signature,
		Version:       Version,
		Streams:       12,
		TimeDateStamp: 1700000000,
		Flags:         0x421826,
	})
	if len(data) != HeaderSize {
		t.Fatalf("header is %d bytes", len(data))
	}
	if string(data[:4]) != "MDMP" {
		t.Fatalf("unexpected magic %q", data[:4])
	}

	path := filepath.Join(t.TempDir(), "a.dmp")
	if err := os.WriteFile(path, append(data, make([]byte, 100)...), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	h, err := HeaderFromFile(path)
	if err != nil {
		t.Fatalf("HeaderFromFile: %v", err)
	}
	if h.Version != Version || h.Streams != 12 || h.TimeDateStamp != 1700000000 || h.Flags != 0x421826 {
		t.Fatalf("unexpected header %+v", h)
	}
}

func TestReadHeaderErrors(t *testing.T) {
	if _, err := ReadHeader(bytes.NewReader(headerBytes(t, Header{Signature: 0x12345678}))); err != ErrNotMinidump {
		t.Fatalf("expected ErrNotMinidump, got %v", err)
	}
	if _, err := ReadHeader(bytes.NewReader([]byte("MDMP"))); err == nil {
		t.Fatalf("expected short read error")
	}
	if _, err := HeaderFromFile(filepath.Join(t.TempDir(), "absent.dmp")); err == nil {
		t.Fatalf("expected open error")
	}
}

func TestExceptionName(t *testing.T) {
	if ExceptionName(0xC0000005) != "EXCEPTION_ACCESS_VIOLATION" {
		t.Fatalf("unexpected name %q", ExceptionName(0xC0000005))
	}
	if ExceptionName(0x1) != "UNKNOWN_EXCEPTION" {
		t.Fatalf("unexpected name for unknown code")
	}
}

package format

import (
	"strings"
	"testing"
)

func TestFormatExceptionCode(t *testing.T) {
	cases := map[uint32]string{
		0xc0000005: "0xC0000005",
		0x5:        "0x00000005",
		0:          "0x00000000",
	}
	for in, want := range cases {
		got := FormatExceptionCode(in)
		if got != want {
			t.Fatalf("FormatExceptionCode(%#x) = %q, want %q", in, got, want)
		}
		if len(got) != 10 {
			t.Fatalf("expected 8 hex digits, got %q", got)
		}
	}
}

func TestFormatExceptionAddress(t *testing.T) {
	got := FormatExceptionAddress(0x1234)
	if len(got) != 2+AddressDigits {
		t.Fatalf("unexpected width: %q", got)
	}
	if !strings.HasSuffix(got, "1234") || !strings.HasPrefix(got, "0x0") {
		t.Fatalf("unexpected address: %q", got)
	}
}

func TestEncodeFieldOrder(t *testing.T) {
	m := Metadata{
		Timestamp:        "2024-01-02T03:04:05.678Z",
		ExeVersion:       "1.0",
		ExeGuid:          "guid",
		ExceptionCode:    FormatExceptionCode(0xC0000005),
		ExceptionAddress: "0x00007FF6A1B2C3D4",
	}
	data, err := m.Encode()
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	order := []string{"timestamp", "exe_version", "exe_guid", "exe_age", "pid", "tid",
		"exception_code", "exception_address", "exe_time_date_stamp", "exe_size_of_image"}
	last := -1
	for _, key := range order {
		idx := strings.Index(string(data), `"`+key+`"`)
		if idx <= last {
			t.Fatalf("field %s out of order in %s", key, data)
		}
		last = idx
	}
}

func TestValidate(t *testing.T) {
	m := Metadata{
		Timestamp:        "2024-01-02T03:04:05.678Z",
		ExceptionCode:    "0xC0000005",
		ExceptionAddress: "0x00007FF6A1B2C3D4",
	}
	if err := m.Validate(); err != nil {
		t.Fatalf("valid metadata rejected: %v", err)
	}

	m.ExceptionCode = "C0000005"
	if err := m.Validate(); err == nil {
		t.Fatalf("expected error for missing 0x prefix")
	}

	m.ExceptionCode = "0xZZZZZZZZ"
	if err := m.Validate(); err == nil {
		t.Fatalf("expected error for non-hex code")
	}
}

func TestParseHex(t *testing.T) {
	v, err := ParseHex("0xC0000005", 32)
	if err != nil || v != 0xC0000005 {
		t.Fatalf("ParseHex = %#x, %v", v, err)
	}
	if _, err := ParseHex("1FFFFFFFF", 32); err == nil {
		t.Fatalf("expected range error")
	}
}

package pipeline

import (
	"testing"

	"crashreporter/common/format"
	"crashreporter/common/format/minidump"
)

func TestExceptionSignature(t *testing.T) {
	var r minidump.Report
	stop := (&ExceptionSignature{}).Process(&r, &format.Metadata{
		ExceptionCode:    "0xC00000FD",
		ExceptionAddress: "0x00007FF6A1B2C3D4",
	})
	if stop {
		t.Fatalf("signature stage must not stop the pipeline")
	}
	if r.CrashType != "EXCEPTION_STACK_OVERFLOW" || r.Address != "0x00007FF6A1B2C3D4" {
		t.Fatalf("unexpected report %+v", r)
	}
	if r.Signature != "EXCEPTION_STACK_OVERFLOW at 0x00007FF6A1B2C3D4" {
		t.Fatalf("unexpected signature %q", r.Signature)
	}

	(&ExceptionSignature{}).Process(&r, &format.Metadata{ExceptionCode: "zz"})
	if r.CrashType != "UNKNOWN_EXCEPTION" {
		t.Fatalf("unexpected crash type %q", r.CrashType)
	}
}

func TestRx(t *testing.T) {
	rx := NewRx([]string{`^999\.999\.999$`, `-autotests$`, `(`})
	if len(rx.Regexps) != 2 {
		t.Fatalf("invalid expression should be dropped, got %d", len(rx.Regexps))
	}

	for version, skip := range map[string]bool{
		"999.999.999":     true,
		"1.2.3-autotests": true,
		"1.2.3":           false,
		"":                false,
	} {
		var r minidump.Report
		stop := rx.Process(&r, &format.Metadata{ExeVersion: version})
		if stop != skip || r.Skipped != skip {
			t.Fatalf("version %q: stop=%v skipped=%v, want %v", version, stop, r.Skipped, skip)
		}
	}
}

package utils

import "testing"

func TestBasename(t *testing.T) {
	cases := map[string]string{
		`C:\a\b\dump.dmp`:    "dump.dmp",
		"dump.dmp":           "dump.dmp",
		"/var/crash/x.dmp":   "x.dmp",
		`C:\mixed/dir\y.dmp`: "y.dmp",
		"dir/":               "",
	}
	for in, want := range cases {
		if got := Basename(in); got != want {
			t.Fatalf("Basename(%q) = %q, want %q", in, got, want)
		}
		if again := Basename(Basename(in)); again != Basename(in) {
			t.Fatalf("Basename not idempotent for %q", in)
		}
	}
}

func TestTrim(t *testing.T) {
	if got := Trim("\x00 1.2.3\r\n"); got != " 1.2.3" {
		t.Fatalf("unexpected trim result %q", got)
	}
}

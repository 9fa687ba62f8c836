package main

import (
	"os"
	"path/filepath"
	"regexp"
	"testing"
	"time"

	"crashreporter/common/format"
)

var now = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func storeCrash(t *testing.T, dir, id, version string, at time.Time) string {
	t.Helper()
	path := filepath.Join(dir, id)
	if err := os.MkdirAll(path, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	meta := &format.Metadata{
		Timestamp:        at.UTC().Format(format.TimestampLayout),
		ExeVersion:       version,
		ExceptionCode:    "0xC0000005",
		ExceptionAddress: "0x1",
	}
	data, err := meta.Encode()
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if err := os.WriteFile(filepath.Join(path, metadataFile), data, 0o644); err != nil {
		t.Fatalf("write metadata: %v", err)
	}
	return path
}

func TestParseAge(t *testing.T) {
	for in, want := range map[string]time.Duration{
		"16d":     16 * 24 * time.Hour,
		"2w":      14 * 24 * time.Hour,
		"36h":     36 * time.Hour,
		"90m":     90 * time.Minute,
		"0d":      0,
		"1h30m0s": 90 * time.Minute,
	} {
		got, err := ParseAge(in)
		if err != nil || got != want {
			t.Fatalf("ParseAge(%q) = %v, %v; want %v", in, got, err, want)
		}
	}
	for _, in := range []string{"", "d", "-1d", "1.5d", "-3h", "soon"} {
		if _, err := ParseAge(in); err == nil {
			t.Fatalf("ParseAge(%q): expected error", in)
		}
	}
}

func TestFindCrashes(t *testing.T) {
	dir := t.TempDir()
	storeCrash(t, dir, "old-autotests", "1.0-autotests", now.Add(-40*24*time.Hour))
	storeCrash(t, dir, "older-autotests", "1.1-autotests", now.Add(-50*24*time.Hour))
	storeCrash(t, dir, "old-release", "1.0", now.Add(-30*24*time.Hour))
	storeCrash(t, dir, "fresh-autotests", "2.0-autotests", now.Add(-time.Hour))
	os.MkdirAll(filepath.Join(dir, "no-metadata"), 0o755)
	os.WriteFile(filepath.Join(dir, "stray.txt"), []byte("x"), 0o644)

	found, err := FindCrashes(dir, 16*24*time.Hour, regexp.MustCompile(".*autotests"), 1000, now)
	if err != nil {
		t.Fatalf("FindCrashes: %v", err)
	}
	if len(found) != 2 || found[0].Id != "older-autotests" || found[1].Id != "old-autotests" {
		t.Fatalf("unexpected crashes %+v", found)
	}

	found, err = FindCrashes(dir, 16*24*time.Hour, regexp.MustCompile(".*"), 2, now)
	if err != nil {
		t.Fatalf("FindCrashes: %v", err)
	}
	if len(found) != 2 || found[0].Id != "older-autotests" {
		t.Fatalf("count not applied oldest first: %+v", found)
	}

	if _, err := FindCrashes(filepath.Join(dir, "absent"), 0, regexp.MustCompile(".*"), 1, now); err == nil {
		t.Fatalf("expected error for missing directory")
	}
}

func TestRemoveCommand(t *testing.T) {
	dir := t.TempDir()
	old := storeCrash(t, dir, "old", "1.0", time.Now().Add(-20*24*time.Hour))
	fresh := storeCrash(t, dir, "fresh", "1.0", time.Now())

	if err := newApp().Run([]string{"crashes-cli", "rm", "--dir", dir, "--show_only", "crashes"}); err != nil {
		t.Fatalf("show_only: %v", err)
	}
	if _, err := os.Stat(old); err != nil {
		t.Fatalf("show_only removed a crash")
	}

	if err := newApp().Run([]string{"crashes-cli", "remove", "--dir", dir, "--older", "16d", "crashes"}); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if _, err := os.Stat(old); !os.IsNotExist(err) {
		t.Fatalf("old crash still present")
	}
	if _, err := os.Stat(fresh); err != nil {
		t.Fatalf("fresh crash removed")
	}
}

func TestRemoveUnknownTask(t *testing.T) {
	if err := newApp().Run([]string{"crashes-cli", "rm", "symbols"}); err == nil {
		t.Fatalf("expected unknown task error")
	}
	if err := newApp().Run([]string{"crashes-cli", "rm"}); err == nil {
		t.Fatalf("expected empty task error")
	}
}

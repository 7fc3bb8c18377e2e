package fileutil

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestCopyVerified(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.jpg")
	dst := filepath.Join(dir, "out", "dst.jpg")
	if err := os.WriteFile(src, []byte("hello world"), 0o600); err != nil {
		t.Fatal(err)
	}

	sum, err := CopyVerified(src, dst)
	if err != nil {
		t.Fatalf("CopyVerified: %v", err)
	}
	if sum != "b94d27b9934d3e08a52e52d7da7dabfac484efe37a5380ee9088f7ace2efcde9" {
		t.Fatalf("digest = %s", sum)
	}
	got, err := os.ReadFile(dst)
	if err != nil || string(got) != "hello world" {
		t.Fatalf("dst = %q, %v", got, err)
	}
	entries, _ := os.ReadDir(filepath.Dir(dst))
	if len(entries) != 1 {
		t.Fatalf("temp files left behind: %v", entries)
	}
}

func TestCopyVerifiedMissingSource(t *testing.T) {
	dir := t.TempDir()
	if _, err := CopyVerified(filepath.Join(dir, "missing"), filepath.Join(dir, "dst")); err == nil {
		t.Fatal("expected error")
	}
	if _, err := os.Stat(filepath.Join(dir, "dst")); !os.IsNotExist(err) {
		t.Fatal("dst should not exist")
	}
}

func TestUniquePath(t *testing.T) {
	dir := t.TempDir()
	first, err := UniquePath(dir, "a.jpg")
	if err != nil || first != filepath.Join(dir, "a.jpg") {
		t.Fatalf("first = %s, %v", first, err)
	}
	for _, name := range []string{"a.jpg", "a-1.jpg"} {
		if err := os.WriteFile(filepath.Join(dir, name), nil, 0o644); err != nil {
			t.Fatal(err)
		}
	}
	next, err := UniquePath(dir, "a.jpg")
	if err != nil || next != filepath.Join(dir, "a-2.jpg") {
		t.Fatalf("next = %s, %v", next, err)
	}
}

func TestSetTimes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a.jpg")
	if err := os.WriteFile(path, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	at := time.Date(2015, 6, 1, 12, 0, 0, 0, time.UTC)
	if err := SetTimes(path, at); err != nil {
		t.Fatal(err)
	}
	info, err := os.Stat(path)
	if err != nil || !info.ModTime().Equal(at) {
		t.Fatalf("mtime = %v, %v", info.ModTime(), err)
	}
	if err := SetTimes(path, time.Time{}); err != nil {
		t.Fatal(err)
	}
}

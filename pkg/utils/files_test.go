package utils

import (
	"os"
	"path/filepath"
	"testing"
)

func TestGetPathInfo(t *testing.T) {
	full, dir, err := GetPathInfo("a/../b/main.qrs")
	if err != nil {
		t.Fatalf("GetPathInfo failed: %v", err)
	}
	if !filepath.IsAbs(full) || filepath.Base(full) != "main.qrs" {
		t.Errorf("fullPath = %q", full)
	}
	if filepath.Base(dir) != "b" {
		t.Errorf("parentDir = %q", dir)
	}
}

func TestRustOutputPath(t *testing.T) {
	got, err := RustOutputPath("src/main.qrs", "")
	if err != nil {
		t.Fatalf("RustOutputPath failed: %v", err)
	}
	if filepath.Base(got) != "main.rs" || filepath.Base(filepath.Dir(got)) != "src" {
		t.Errorf("next to source: got %q", got)
	}

	got, err = RustOutputPath("src/lib.qrs", filepath.Join("out", "gen"))
	if err != nil {
		t.Fatalf("RustOutputPath failed: %v", err)
	}
	if got != filepath.Join("out", "gen", "lib.rs") {
		t.Errorf("with outDir: got %q", got)
	}
}

func TestWriteOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "main.rs")
	if err := WriteOutput(path, "fn main() {}\n"); err != nil {
		t.Fatalf("WriteOutput failed: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if string(data) != "fn main() {}\n" {
		t.Errorf("got %q", data)
	}
}

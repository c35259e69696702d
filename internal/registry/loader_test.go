package registry

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadDirFiltersGGUF(t *testing.T) {
	dir := t.TempDir()
	files := []string{
		"a.gguf",
		"b.GGUF", // case-insensitive
		"not-model.txt",
		"model.bin",
	}
	for _, f := range files {
		if err := os.WriteFile(filepath.Join(dir, f), []byte(""), 0o644); err != nil {
			t.Fatalf("write temp file: %v", err)
		}
	}
	exports, err := LoadDir(dir)
	if err != nil {
		t.Fatalf("scan error: %v", err)
	}
	if len(exports) != 2 {
		t.Fatalf("expected 2 exports, got %d", len(exports))
	}
	for _, e := range exports {
		if !strings.HasSuffix(strings.ToLower(e.ID), ".gguf") {
			t.Fatalf("id not gguf: %s", e.ID)
		}
	}
}

func TestResolveFilePassthrough(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "m.gguf")
	if err := os.WriteFile(p, []byte(""), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	got, err := Resolve(p)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if got != p {
		t.Fatalf("got %s want %s", got, p)
	}
}

func TestResolveDirPicksFirstExport(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "m.gguf"), []byte(""), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	got, err := Resolve(dir)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if filepath.Base(got) != "m.gguf" {
		t.Fatalf("unexpected: %s", got)
	}
}

func TestResolveErrors(t *testing.T) {
	if got, err := Resolve(""); err != nil || got != "" {
		t.Fatalf("empty path must stay empty: %q %v", got, err)
	}
	if _, err := Resolve("/definitely/not/a/real/path-9876"); err == nil {
		t.Fatalf("expected error for nonexistent path")
	}
	empty := t.TempDir()
	if _, err := Resolve(empty); err == nil {
		t.Fatalf("expected error for directory without exports")
	}
}

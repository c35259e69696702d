// Package registry discovers local GGUF exports on disk, used to resolve the
// caption model for the cpu understanding path.
package registry

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"imaged/internal/common/fsutil"
)

// Export is one discovered model file.
type Export struct {
	ID   string
	Path string
}

// LoadDir scans a directory for *.gguf files. ID is the full filename
// (including extension); Path is the absolute file path.
func LoadDir(dir string) ([]Export, error) {
	base, err := fsutil.ExpandHome(dir)
	if err != nil {
		return nil, err
	}
	abs, err := filepath.Abs(base)
	if err != nil {
		return nil, fmt.Errorf("abs path: %w", err)
	}
	entries, err := os.ReadDir(abs)
	if err != nil {
		return nil, fmt.Errorf("read dir: %w", err)
	}
	var exports []Export
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if !strings.HasSuffix(strings.ToLower(name), ".gguf") {
			continue
		}
		exports = append(exports, Export{ID: name, Path: filepath.Join(abs, name)})
	}
	return exports, nil
}

// Resolve maps a path argument to a concrete model file: a file path is
// returned as-is, a directory yields its first GGUF export, empty stays empty.
func Resolve(path string) (string, error) {
	if path == "" {
		return "", nil
	}
	expanded, err := fsutil.ExpandHome(path)
	if err != nil {
		return "", err
	}
	info, err := os.Stat(expanded)
	if err != nil {
		return "", err
	}
	if !info.IsDir() {
		return expanded, nil
	}
	exports, err := LoadDir(expanded)
	if err != nil {
		return "", err
	}
	if len(exports) == 0 {
		return "", fmt.Errorf("no gguf exports in %s", expanded)
	}
	return exports[0].Path, nil
}

package workspace

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

var _ FileReader = (*FSReader)(nil)

// FSReader reads files from the local filesystem, confined to a root.
type FSReader struct {
	rootPath string
}

func NewFSReader(rootPath string) *FSReader {
	if abs, err := filepath.Abs(rootPath); err == nil {
		rootPath = abs
	}
	return &FSReader{rootPath: filepath.Clean(rootPath)}
}

// Root returns the absolute root directory.
func (r *FSReader) Root() string { return r.rootPath }

func (r *FSReader) ReadFile(relPath string) ([]byte, error) {
	absPath, err := r.resolve(relPath)
	if err != nil {
		return nil, err
	}
	return os.ReadFile(absPath)
}

// Glob expands pattern relative to the root and returns matching regular
// files as root-relative paths in lexical order.
func (r *FSReader) Glob(pattern string) ([]string, error) {
	absPattern, err := r.resolve(pattern)
	if err != nil {
		return nil, err
	}
	matches, err := filepath.Glob(absPattern)
	if err != nil {
		return nil, fmt.Errorf("bad pattern %q: %w", pattern, err)
	}

	var out []string
	for _, m := range matches {
		info, err := os.Stat(m)
		if err != nil || !info.Mode().IsRegular() {
			continue
		}
		rel, err := filepath.Rel(r.rootPath, m)
		if err != nil {
			continue
		}
		out = append(out, filepath.ToSlash(rel))
	}
	return out, nil
}

func (r *FSReader) resolve(relPath string) (string, error) {
	absPath := filepath.Clean(filepath.Join(r.rootPath, relPath))

	// パストラバーサル防止
	rel, err := filepath.Rel(r.rootPath, absPath)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("path %q is outside root", relPath)
	}
	return absPath, nil
}

// Package source provides file content access for analyzers.
package source

import (
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

// Filesystem reads files from the local filesystem, resolving candidate
// paths against a root directory and capping each read at maxFileBytes.
type Filesystem struct {
	root         string
	maxFileBytes int64
}

// NewFilesystem creates a source rooted at root. maxFileBytes <= 0 means
// no read cap.
func NewFilesystem(root string, maxFileBytes int64) *Filesystem {
	return &Filesystem{root: root, maxFileBytes: maxFileBytes}
}

// Read implements neardup.ContentSource.
func (f *Filesystem) Read(path string) ([]byte, error) {
	full := path
	if f.root != "" {
		full = filepath.Join(f.root, path)
	}
	if f.maxFileBytes <= 0 {
		return os.ReadFile(full)
	}

	file, err := os.Open(full)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return io.ReadAll(io.LimitReader(file, f.maxFileBytes))
}

// Memory serves content from an in-memory map, for tests and embedding.
type Memory struct {
	files map[string][]byte
}

// NewMemory creates a source backed by the given path-to-content map.
func NewMemory(files map[string][]byte) *Memory {
	return &Memory{files: files}
}

// Read implements neardup.ContentSource.
func (m *Memory) Read(path string) ([]byte, error) {
	content, ok := m.files[path]
	if !ok {
		return nil, fs.ErrNotExist
	}
	return content, nil
}

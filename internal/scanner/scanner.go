// Package scanner walks a source tree and produces the candidate files
// handed to the near-duplicate analyzer.
package scanner

import (
	"bytes"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-git/v5/plumbing/format/gitignore"

	"github.com/tomars/doppel/pkg/analyzer/neardup"
	"github.com/tomars/doppel/pkg/config"
	"github.com/tomars/doppel/pkg/lang"
	"github.com/tomars/doppel/pkg/modkey"
	"github.com/tomars/doppel/pkg/source"
)

// binarySniffLen is how many leading bytes are checked for a NUL byte.
const binarySniffLen = 8192

// Scanner finds candidate source files in a directory tree.
type Scanner struct {
	config   *config.Config
	matchers []gitignore.Matcher
}

// New creates a scanner. A nil config uses defaults.
func New(cfg *config.Config) *Scanner {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	return &Scanner{config: cfg}
}

// findGitRoot walks up from start looking for a .git directory.
// Returns empty string when not inside a git repository.
func findGitRoot(start string) string {
	dir := start
	for {
		if info, err := os.Stat(filepath.Join(dir, ".git")); err == nil && info.IsDir() {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// loadIgnorePatterns collects .gitignore rules from the enclosing git
// repository when enabled.
func (s *Scanner) loadIgnorePatterns(root string) {
	if !s.config.Scan.Gitignore {
		return
	}
	gitRoot := findGitRoot(root)
	if gitRoot == "" {
		return
	}
	bfs := osfs.New(gitRoot)
	if patterns, err := gitignore.ReadPatterns(bfs, nil); err == nil && len(patterns) > 0 {
		s.matchers = append(s.matchers, gitignore.NewMatcher(patterns))
	}
}

func (s *Scanner) isIgnored(relPath string, isDir bool) bool {
	if len(s.matchers) == 0 {
		return false
	}
	parts := strings.Split(relPath, string(filepath.Separator))
	for _, m := range s.matchers {
		if m.Match(parts, isDir) {
			return true
		}
	}
	return false
}

func (s *Scanner) isExcludedDir(name string) bool {
	for _, dir := range s.config.Scan.ExcludeDirs {
		if name == dir {
			return true
		}
	}
	return false
}

// Scan walks root and returns one candidate per text file with a known
// language, carrying the relative path, module key, language tag, byte
// size, and code-line count, plus a content source serving the bytes
// already read during the walk so the analyzer never touches the tree a
// second time. Unreadable files are skipped, not errors.
func (s *Scanner) Scan(root string) ([]neardup.FileCandidate, *source.Memory, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, nil, err
	}

	s.loadIgnorePatterns(absRoot)

	var candidates []neardup.FileCandidate
	contents := make(map[string][]byte)
	walkErr := filepath.WalkDir(absRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		relPath, relErr := filepath.Rel(absRoot, path)
		if relErr != nil || relPath == "." {
			return nil
		}

		if d.IsDir() {
			if s.isExcludedDir(d.Name()) || s.isIgnored(relPath, true) {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		if s.isIgnored(relPath, false) {
			return nil
		}

		tag := lang.Detect(path)
		if tag == lang.Unknown {
			return nil
		}

		content, readErr := os.ReadFile(path)
		if readErr != nil {
			return nil
		}
		if isBinary(content) {
			return nil
		}

		slashPath := filepath.ToSlash(relPath)
		contents[slashPath] = content
		candidates = append(candidates, neardup.FileCandidate{
			Path:      slashPath,
			Module:    modkey.Derive(slashPath, s.config.Scan.ModuleRoots, s.config.Scan.ModuleDepth),
			Lang:      tag,
			Bytes:     int64(len(content)),
			CodeLines: countCodeLines(content),
		})
		return nil
	})
	if walkErr != nil {
		return nil, nil, walkErr
	}
	return candidates, source.NewMemory(contents), nil
}

// isBinary reports whether content looks like binary data (a NUL byte in
// the leading window).
func isBinary(content []byte) bool {
	sniff := content
	if len(sniff) > binarySniffLen {
		sniff = sniff[:binarySniffLen]
	}
	return bytes.IndexByte(sniff, 0) >= 0
}

// countCodeLines counts non-blank lines.
func countCodeLines(content []byte) int {
	count := 0
	for _, line := range bytes.Split(content, []byte("\n")) {
		if len(bytes.TrimSpace(line)) > 0 {
			count++
		}
	}
	return count
}

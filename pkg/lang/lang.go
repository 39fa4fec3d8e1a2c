// Package lang tags files with a language name based on file extension.
package lang

import (
	"path/filepath"
	"strings"
)

// Unknown is returned for extensions with no known language.
const Unknown = ""

var byExtension = map[string]string{
	".go":    "go",
	".rs":    "rust",
	".py":    "python",
	".ts":    "typescript",
	".tsx":   "typescript",
	".js":    "javascript",
	".jsx":   "javascript",
	".mjs":   "javascript",
	".c":     "c",
	".h":     "c",
	".cpp":   "cpp",
	".cc":    "cpp",
	".cxx":   "cpp",
	".hpp":   "cpp",
	".java":  "java",
	".kt":    "kotlin",
	".kts":   "kotlin",
	".rb":    "ruby",
	".php":   "php",
	".cs":    "csharp",
	".swift": "swift",
	".scala": "scala",
	".sh":    "shell",
	".bash":  "shell",
	".pl":    "perl",
	".lua":   "lua",
	".sql":   "sql",
	".html":  "html",
	".css":   "css",
	".scss":  "css",
	".json":  "json",
	".yaml":  "yaml",
	".yml":   "yaml",
	".toml":  "toml",
	".md":    "markdown",
	".proto": "protobuf",
	".tf":    "terraform",
	".zig":   "zig",
	".ex":    "elixir",
	".exs":   "elixir",
}

// Detect returns the language name for a path, or Unknown.
func Detect(path string) string {
	return byExtension[strings.ToLower(filepath.Ext(path))]
}

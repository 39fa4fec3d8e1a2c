// Package modkey derives deterministic module keys from file paths, used
// to group files for module-scoped comparison.
package modkey

import "strings"

// RootKey is the module key assigned to files at the tree root.
const RootKey = "(root)"

// Derive computes a module key from a relative path.
//
// Root-level files map to "(root)". When the first directory segment is
// one of moduleRoots (e.g. "crates", "packages"), the key includes up to
// depth directory segments; otherwise the key is the first segment alone.
func Derive(path string, moduleRoots []string, depth int) string {
	p := strings.ReplaceAll(path, `\`, "/")
	p = strings.TrimPrefix(p, "./")
	p = strings.TrimLeft(p, "/")

	slash := strings.LastIndex(p, "/")
	if slash < 0 {
		return RootKey
	}

	var dirs []string
	for _, seg := range strings.Split(p[:slash], "/") {
		if seg != "" && seg != "." {
			dirs = append(dirs, seg)
		}
	}
	if len(dirs) == 0 {
		return RootKey
	}

	first := dirs[0]
	isModuleRoot := false
	for _, r := range moduleRoots {
		if r == first {
			isModuleRoot = true
			break
		}
	}
	if !isModuleRoot {
		return first
	}

	if depth < 1 {
		depth = 1
	}
	if depth > len(dirs) {
		depth = len(dirs)
	}
	return strings.Join(dirs[:depth], "/")
}

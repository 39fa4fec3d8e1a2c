package neardup

import (
	"slices"

	"github.com/cespare/xxhash/v2"
)

// Fingerprinting constants. K and W are coupled: any run of at least
// K+W-1 identical tokens shared by two files is guaranteed to produce at
// least one common fingerprint, so changing one without the other changes
// the detection guarantee.
const (
	// KGramSize is the number of tokens per shingle.
	KGramSize = 25
	// WindowSize is the Winnowing window size.
	WindowSize = 4
	// MaxPostings is the posting-list cutoff above which a fingerprint is
	// treated as ubiquitous boilerplate and skipped during pairing.
	MaxPostings = 50
)

// tokenSep terminates every token fed to the k-gram hash. Tokens contain
// only ASCII alphanumerics and underscore, so 0xff can never appear inside
// one; without it "ab","c" and "a","bc" would hash identically.
var tokenSep = []byte{0xff}

func isTokenByte(b byte) bool {
	return b == '_' ||
		('a' <= b && b <= 'z') ||
		('A' <= b && b <= 'Z') ||
		('0' <= b && b <= '9')
}

// tokenize splits text into maximal runs of ASCII alphanumeric or
// underscore bytes. Every other byte is a separator. The returned slices
// alias text.
func tokenize(text []byte) [][]byte {
	var tokens [][]byte
	start := -1
	for i, b := range text {
		if isTokenByte(b) {
			if start < 0 {
				start = i
			}
		} else if start >= 0 {
			tokens = append(tokens, text[start:i])
			start = -1
		}
	}
	if start >= 0 {
		tokens = append(tokens, text[start:])
	}
	return tokens
}

// shingleHashes computes one xxhash digest per window of k consecutive
// tokens, in position order. Token order matters: permuting two tokens
// inside a window changes the hash. Returns nil when fewer than k tokens
// exist, so very short files never fingerprint.
func shingleHashes(tokens [][]byte, k int) []uint64 {
	if len(tokens) < k {
		return nil
	}
	hashes := make([]uint64, 0, len(tokens)-k+1)
	var d xxhash.Digest
	for i := 0; i+k <= len(tokens); i++ {
		d.Reset()
		for _, tok := range tokens[i : i+k] {
			d.Write(tok)
			d.Write(tokenSep)
		}
		hashes = append(hashes, d.Sum64())
	}
	return hashes
}

// winnow selects fingerprints from the hash sequence: in each window of w
// consecutive hashes, the rightmost occurrence of the minimum value wins
// (the <= comparison while scanning left to right is what makes it the
// rightmost). A hash is emitted only when the selected position changes,
// which collapses runs where the same minimum stays selected across
// overlapping windows. Sequences shorter than w are returned unchanged.
func winnow(hashes []uint64, w int) []uint64 {
	if len(hashes) < w {
		return slices.Clone(hashes)
	}

	var fingerprints []uint64
	prevMinIdx := -1

	for start := 0; start+w <= len(hashes); start++ {
		minVal := hashes[start]
		minIdx := start
		for off, h := range hashes[start : start+w] {
			if h <= minVal {
				minVal = h
				minIdx = start + off
			}
		}
		if minIdx != prevMinIdx {
			fingerprints = append(fingerprints, minVal)
			prevMinIdx = minIdx
		}
	}

	return fingerprints
}

// Fingerprint computes the deduplicated, sorted fingerprint set for one
// file's content. An empty result means the file has too few tokens to
// participate in matching.
func Fingerprint(content []byte) []uint64 {
	fps := winnow(shingleHashes(tokenize(content), KGramSize), WindowSize)
	slices.Sort(fps)
	return slices.Compact(fps)
}

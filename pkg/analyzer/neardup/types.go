package neardup

import "fmt"

// Scope selects which files may ever be compared with each other.
type Scope string

const (
	// ScopeGlobal compares every file against every other file.
	ScopeGlobal Scope = "global"
	// ScopeModule compares only files sharing the same module key.
	ScopeModule Scope = "module"
	// ScopeLanguage compares only files sharing the same language tag.
	ScopeLanguage Scope = "language"
)

// ParseScope converts a string to a Scope.
func ParseScope(s string) (Scope, error) {
	switch s {
	case "global":
		return ScopeGlobal, nil
	case "module", "mod":
		return ScopeModule, nil
	case "language", "lang":
		return ScopeLanguage, nil
	default:
		return "", fmt.Errorf("unknown scope %q (want global, module, or language)", s)
	}
}

// FileCandidate is one file eligible for comparison. The analyzer treats
// candidates as read-only input; the caller owns them.
type FileCandidate struct {
	Path      string `json:"path"`
	Module    string `json:"module"`
	Lang      string `json:"lang"`
	Bytes     int64  `json:"bytes"`
	CodeLines int    `json:"code_lines"`
}

// ContentSource provides file content, keyed by candidate path.
type ContentSource interface {
	Read(path string) ([]byte, error)
}

// Algorithm echoes the fixed fingerprinting constants back in the report
// so results are reproducible.
type Algorithm struct {
	KGramSize   int `json:"k_gram_size"`
	WindowSize  int `json:"window_size"`
	MaxPostings int `json:"max_postings"`
}

// Params is the resolved configuration for one run, immutable for the
// run's duration and echoed back in the report.
type Params struct {
	Scope           Scope     `json:"scope"`
	Threshold       float64   `json:"threshold"`
	MaxFiles        int       `json:"max_files"`
	MaxPairs        int       `json:"max_pairs,omitempty"`
	MaxBytes        int64     `json:"max_bytes,omitempty"`
	MaxFileBytes    int64     `json:"max_file_bytes"`
	SelectionMethod string    `json:"selection_method,omitempty"`
	Algorithm       Algorithm `json:"algorithm"`
	ExcludePatterns []string  `json:"exclude_patterns,omitempty"`
}

// PairRow is a near-duplicate file pair that met the similarity threshold.
// Left sorts before Right by path.
type PairRow struct {
	Left               string  `json:"left"`
	Right              string  `json:"right"`
	Similarity         float64 `json:"similarity"`
	SharedFingerprints int     `json:"shared_fingerprints"`
	LeftFingerprints   int     `json:"left_fingerprints"`
	RightFingerprints  int     `json:"right_fingerprints"`
}

// Cluster is a maximal connected component of the pair graph.
type Cluster struct {
	Files          []string `json:"files"`
	Representative string   `json:"representative"`
	MaxSimilarity  float64  `json:"max_similarity"`
	PairCount      int      `json:"pair_count"`
}

// Stats carries timing and volume counters for one run.
type Stats struct {
	FingerprintingMS int64 `json:"fingerprinting_ms"`
	PairingMS        int64 `json:"pairing_ms"`
	BytesProcessed   int64 `json:"bytes_processed"`
}

// Report is the full near-duplicate detection result.
type Report struct {
	Params            Params    `json:"params"`
	Pairs             []PairRow `json:"pairs"`
	Clusters          []Cluster `json:"clusters,omitempty"`
	FilesAnalyzed     int       `json:"files_analyzed"`
	FilesSkipped      int       `json:"files_skipped"`
	EligibleFiles     int       `json:"eligible_files"`
	ExcludedByPattern int       `json:"excluded_by_pattern,omitempty"`
	Truncated         bool      `json:"truncated"`
	Stats             *Stats    `json:"stats,omitempty"`
}

// Package neardup detects near-duplicate files: files that are not
// byte-identical but share substantial content (copy-paste-with-edits,
// generated variants, vendored forks).
//
// The pipeline: tokenize each file into alphanumeric/underscore runs,
// hash every window of K consecutive tokens (xxhash), apply Winnowing
// with window W to select a position-stable subset of those hashes as
// fingerprints, build a per-partition inverted index from fingerprints to
// files, score candidate pairs by Jaccard similarity over fingerprint
// sets, and group qualifying pairs into connected components.
//
// The k-gram hash is deliberately non-cryptographic: a collision only
// produces an occasional spurious shared fingerprint, which the Jaccard
// score then dilutes rather than trusts.
package neardup

import (
	"bytes"
	"fmt"
	"sort"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/tomars/doppel/internal/fileproc"
)

// DefaultMaxFileBytes is the per-file size cap when none is configured.
const DefaultMaxFileBytes = 512_000

// selectionMethod describes how candidates are ranked before the
// max-files cap is applied, echoed in params for reproducibility.
const selectionMethod = "top_by_code_lines_then_path"

// Analyzer detects near-duplicate files within a candidate set.
// Construction resolves all parameters; one Analyzer may run any number
// of reports, each a fresh single pass with no state carried between runs.
type Analyzer struct {
	params  Params
	workers int
}

// Option is a functional option for configuring Analyzer.
type Option func(*Analyzer)

// WithScope sets the comparison scope.
func WithScope(scope Scope) Option {
	return func(a *Analyzer) {
		a.params.Scope = scope
	}
}

// WithThreshold sets the minimum Jaccard similarity for a reported pair.
func WithThreshold(threshold float64) Option {
	return func(a *Analyzer) {
		a.params.Threshold = threshold
	}
}

// WithMaxFiles caps how many candidates are analyzed (0 = no cap).
func WithMaxFiles(n int) Option {
	return func(a *Analyzer) {
		a.params.MaxFiles = n
	}
}

// WithMaxPairs caps the emitted pair list (0 = no cap). Clusters are
// never affected by this cap.
func WithMaxPairs(n int) Option {
	return func(a *Analyzer) {
		a.params.MaxPairs = n
	}
}

// WithMaxBytes caps the total bytes fingerprinted across the run
// (0 = no cap).
func WithMaxBytes(n int64) Option {
	return func(a *Analyzer) {
		a.params.MaxBytes = n
	}
}

// WithMaxFileBytes sets the per-file size cap.
func WithMaxFileBytes(n int64) Option {
	return func(a *Analyzer) {
		if n > 0 {
			a.params.MaxFileBytes = n
		}
	}
}

// WithExcludePatterns sets gitignore-style glob patterns matched against
// candidate paths. Malformed patterns fail the run before scanning starts.
func WithExcludePatterns(patterns []string) Option {
	return func(a *Analyzer) {
		a.params.ExcludePatterns = patterns
	}
}

// WithWorkers sets the fingerprinting worker count (0 = 2x NumCPU).
// Output is identical at any worker count.
func WithWorkers(n int) Option {
	return func(a *Analyzer) {
		a.workers = n
	}
}

// DefaultParams returns the resolved defaults.
func DefaultParams() Params {
	return Params{
		Scope:           ScopeModule,
		Threshold:       0.80,
		MaxFiles:        2000,
		MaxFileBytes:    DefaultMaxFileBytes,
		SelectionMethod: selectionMethod,
		Algorithm: Algorithm{
			KGramSize:   KGramSize,
			WindowSize:  WindowSize,
			MaxPostings: MaxPostings,
		},
	}
}

// New creates a near-duplicate analyzer.
func New(opts ...Option) *Analyzer {
	a := &Analyzer{params: DefaultParams()}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Params returns the resolved run parameters.
func (a *Analyzer) Params() Params {
	return a.params
}

// BuildReport analyzes the candidate set and returns the near-duplicate
// report. Per-file read failures drop that file silently; the only error
// returned is a configuration error (malformed exclude pattern).
func (a *Analyzer) BuildReport(candidates []FileCandidate, src ContentSource) (*Report, error) {
	return a.BuildReportWithProgress(candidates, src, nil)
}

// SelectCandidates returns the candidates that survive eligibility
// filtering and the file and byte caps, in fingerprinting order. This is
// exactly the set BuildReport will process, so callers sizing progress
// displays get an accurate total.
func (a *Analyzer) SelectCandidates(candidates []FileCandidate) ([]FileCandidate, error) {
	files, _, _, _, err := selectCandidates(a.params, candidates)
	return files, err
}

// selectCandidates applies pattern validation, eligibility filtering,
// ranking, and the file and byte caps. The counters feed the report.
func selectCandidates(params Params, candidates []FileCandidate) (files []FileCandidate, eligible, skipped, excludedByPattern int, err error) {
	// Fail fast on malformed patterns, before any file is touched.
	for _, pat := range params.ExcludePatterns {
		if !doublestar.ValidatePattern(pat) {
			return nil, 0, 0, 0, fmt.Errorf("invalid exclude pattern %q", pat)
		}
	}

	// Eligibility: per-file size cap first, then glob exclusion.
	files = make([]FileCandidate, 0, len(candidates))
	for _, c := range candidates {
		if c.Bytes > params.MaxFileBytes {
			continue
		}
		if matchesAny(params.ExcludePatterns, c.Path) {
			excludedByPattern++
			continue
		}
		files = append(files, c)
	}

	// Rank by code lines desc then path so the max-files cap keeps the
	// most substantial files and stays deterministic.
	sort.Slice(files, func(i, j int) bool {
		if files[i].CodeLines != files[j].CodeLines {
			return files[i].CodeLines > files[j].CodeLines
		}
		return files[i].Path < files[j].Path
	})

	eligible = len(files)
	if params.MaxFiles > 0 && len(files) > params.MaxFiles {
		skipped = len(files) - params.MaxFiles
		files = files[:params.MaxFiles]
	}
	if params.MaxBytes > 0 {
		var total int64
		cut := len(files)
		for i, f := range files {
			if total+f.Bytes > params.MaxBytes {
				cut = i
				break
			}
			total += f.Bytes
		}
		skipped += len(files) - cut
		files = files[:cut]
	}
	return files, eligible, skipped, excludedByPattern, nil
}

// BuildReportWithProgress is BuildReport with a per-file progress callback
// invoked during the fingerprinting phase.
func (a *Analyzer) BuildReportWithProgress(candidates []FileCandidate, src ContentSource, onProgress fileproc.ProgressFunc) (*Report, error) {
	params := a.params

	files, eligibleFiles, filesSkipped, excludedByPattern, err := selectCandidates(params, candidates)
	if err != nil {
		return nil, err
	}
	filesAnalyzed := len(files)

	partitions := partitionFiles(files, params.Scope)

	// Phase 1: fingerprinting. Every file is independent, so this runs on
	// a worker pool; results land at their input index, which keeps the
	// rest of the pipeline identical at any parallelism.
	type fpResult struct {
		fps   []uint64
		bytes int64
	}
	fpStart := time.Now()
	results := fileproc.MapIndexed(files, a.workers, func(_ int, f FileCandidate) (fpResult, error) {
		content, err := src.Read(f.Path)
		if err != nil {
			// Unreadable file: dropped, never a run failure.
			return fpResult{}, err
		}
		if len(content) == 0 || bytes.IndexByte(content, 0) >= 0 {
			// Empty or binary content never fingerprints.
			return fpResult{}, nil
		}
		return fpResult{fps: Fingerprint(content), bytes: int64(len(content))}, nil
	}, onProgress)
	fingerprintingMS := time.Since(fpStart).Milliseconds()

	var bytesProcessed int64
	for _, r := range results {
		if len(r.fps) > 0 {
			bytesProcessed += r.bytes
		}
	}

	// Phase 2: pairing, partition by partition. The inverted index and
	// pair counts are discarded at each partition boundary.
	pairStart := time.Now()
	allPairs := []PairRow{}
	for _, partition := range partitions {
		members := make([]fileFingerprints, 0, len(partition))
		for _, fileIdx := range partition {
			if len(results[fileIdx].fps) == 0 {
				continue
			}
			members = append(members, fileFingerprints{
				fileIdx: fileIdx,
				fps:     results[fileIdx].fps,
			})
		}
		allPairs = append(allPairs, pairPartition(files, members, params.Threshold)...)
	}
	pairingMS := time.Since(pairStart).Milliseconds()

	sort.Slice(allPairs, func(i, j int) bool {
		if allPairs[i].Similarity != allPairs[j].Similarity {
			return allPairs[i].Similarity > allPairs[j].Similarity
		}
		if allPairs[i].Left != allPairs[j].Left {
			return allPairs[i].Left < allPairs[j].Left
		}
		return allPairs[i].Right < allPairs[j].Right
	})

	// Clusters come from the complete pair list; the max-pairs cap below
	// only shortens the emitted pairs.
	var clusters []Cluster
	if len(allPairs) > 0 {
		clusters = buildClusters(allPairs)
	}

	truncated := false
	if params.MaxPairs > 0 && len(allPairs) > params.MaxPairs {
		allPairs = allPairs[:params.MaxPairs]
		truncated = true
	}

	return &Report{
		Params:            params,
		Pairs:             allPairs,
		Clusters:          clusters,
		FilesAnalyzed:     filesAnalyzed,
		FilesSkipped:      filesSkipped,
		EligibleFiles:     eligibleFiles,
		ExcludedByPattern: excludedByPattern,
		Truncated:         truncated,
		Stats: &Stats{
			FingerprintingMS: fingerprintingMS,
			PairingMS:        pairingMS,
			BytesProcessed:   bytesProcessed,
		},
	}, nil
}

func matchesAny(patterns []string, path string) bool {
	for _, pat := range patterns {
		if doublestar.MatchUnvalidated(pat, path) {
			return true
		}
	}
	return false
}

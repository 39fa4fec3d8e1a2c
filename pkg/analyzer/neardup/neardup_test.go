package neardup

import (
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tomars/doppel/pkg/source"
)

// fixture builds candidates plus a memory source from path->content.
func fixture(contents map[string]string) ([]FileCandidate, *source.Memory) {
	paths := make([]string, 0, len(contents))
	for p := range contents {
		paths = append(paths, p)
	}
	files := make(map[string][]byte, len(contents))
	candidates := make([]FileCandidate, 0, len(contents))
	for _, p := range paths {
		content := contents[p]
		files[p] = []byte(content)
		candidates = append(candidates, FileCandidate{
			Path:      p,
			Module:    "(root)",
			Lang:      "go",
			Bytes:     int64(len(content)),
			CodeLines: strings.Count(content, "\n") + 1,
		})
	}
	return candidates, source.NewMemory(files)
}

func TestIdenticalPair(t *testing.T) {
	body := genTokens("token", 100)
	candidates, src := fixture(map[string]string{
		"a.go": body,
		"b.go": body,
	})

	report, err := New(WithScope(ScopeGlobal)).BuildReport(candidates, src)
	require.NoError(t, err)

	require.Len(t, report.Pairs, 1)
	p := report.Pairs[0]
	assert.Equal(t, "a.go", p.Left)
	assert.Equal(t, "b.go", p.Right)
	assert.Equal(t, 1.0, p.Similarity)
	assert.Equal(t, p.LeftFingerprints, p.RightFingerprints)
	assert.Equal(t, p.LeftFingerprints, p.SharedFingerprints)

	require.Len(t, report.Clusters, 1)
	c := report.Clusters[0]
	assert.Equal(t, []string{"a.go", "b.go"}, c.Files)
	assert.Equal(t, 1.0, c.MaxSimilarity)
	assert.Equal(t, 1, c.PairCount)
	assert.Equal(t, 2, report.FilesAnalyzed)
	assert.False(t, report.Truncated)
}

func TestThreeIdenticalFiles(t *testing.T) {
	body := genTokens("token", 100)
	candidates, src := fixture(map[string]string{
		"a.go": body,
		"b.go": body,
		"c.go": body,
	})

	report, err := New(WithScope(ScopeGlobal)).BuildReport(candidates, src)
	require.NoError(t, err)

	require.Len(t, report.Pairs, 3)
	for _, p := range report.Pairs {
		assert.Equal(t, 1.0, p.Similarity)
		assert.Less(t, p.Left, p.Right)
	}

	require.Len(t, report.Clusters, 1)
	assert.Len(t, report.Clusters[0].Files, 3)
	assert.Equal(t, 3, report.Clusters[0].PairCount)
}

func TestTinyFileNeverPairs(t *testing.T) {
	candidates, src := fixture(map[string]string{
		"tiny.go":  "just five little tokens here",
		"tiny2.go": "just five little tokens here",
	})

	report, err := New(WithScope(ScopeGlobal)).BuildReport(candidates, src)
	require.NoError(t, err)

	assert.Empty(t, report.Pairs)
	assert.Empty(t, report.Clusters)
	assert.Equal(t, 2, report.FilesAnalyzed)
}

func TestMaxPairsTruncatesOnlyPairs(t *testing.T) {
	body := genTokens("token", 100)
	candidates, src := fixture(map[string]string{
		"a.go": body,
		"b.go": body,
		"c.go": body,
		"d.go": body,
	})

	report, err := New(WithScope(ScopeGlobal), WithMaxPairs(2)).BuildReport(candidates, src)
	require.NoError(t, err)

	assert.Len(t, report.Pairs, 2)
	assert.True(t, report.Truncated)

	// Clusters are built from the full pair graph, not the emitted list.
	require.Len(t, report.Clusters, 1)
	assert.Len(t, report.Clusters[0].Files, 4)
	assert.Equal(t, 6, report.Clusters[0].PairCount)
}

func TestDisjointVocabularies(t *testing.T) {
	candidates, src := fixture(map[string]string{
		"a.go": genTokens("alpha", 100),
		"b.go": genTokens("omega", 100),
	})

	report, err := New(WithScope(ScopeGlobal)).BuildReport(candidates, src)
	require.NoError(t, err)
	assert.Empty(t, report.Pairs)
}

func TestThresholdFiltersPairs(t *testing.T) {
	// Shared prefix plus distinct suffixes: similar but not identical.
	shared := genTokens("shared", 80)
	candidates, src := fixture(map[string]string{
		"a.go": shared + " " + genTokens("lefty", 30),
		"b.go": shared + " " + genTokens("righty", 30),
	})

	low, err := New(WithScope(ScopeGlobal), WithThreshold(0.01)).BuildReport(candidates, src)
	require.NoError(t, err)
	require.Len(t, low.Pairs, 1)
	sim := low.Pairs[0].Similarity
	assert.Greater(t, sim, 0.0)
	assert.Less(t, sim, 1.0)

	high, err := New(WithScope(ScopeGlobal), WithThreshold(sim+0.05)).BuildReport(candidates, src)
	require.NoError(t, err)
	assert.Empty(t, high.Pairs)

	// Threshold is inclusive: identical files survive threshold 1.0.
	identical, identSrc := fixture(map[string]string{
		"x.go": shared,
		"y.go": shared,
	})
	at, err := New(WithScope(ScopeGlobal), WithThreshold(1.0)).BuildReport(identical, identSrc)
	require.NoError(t, err)
	assert.Len(t, at.Pairs, 1)
}

func TestModuleScopeSeparatesFiles(t *testing.T) {
	body := genTokens("token", 100)
	candidates, src := fixture(map[string]string{
		"x/a.go": body,
		"y/b.go": body,
	})
	candidates[0].Module = "x"
	candidates[1].Module = "y"

	scoped, err := New(WithScope(ScopeModule)).BuildReport(candidates, src)
	require.NoError(t, err)
	assert.Empty(t, scoped.Pairs, "cross-module files must never pair under module scope")

	global, err := New(WithScope(ScopeGlobal)).BuildReport(candidates, src)
	require.NoError(t, err)
	assert.Len(t, global.Pairs, 1)
}

func TestLanguageScopeSeparatesFiles(t *testing.T) {
	body := genTokens("token", 100)
	candidates, src := fixture(map[string]string{
		"a.go": body,
		"b.rs": body,
	})
	candidates[0].Lang = "go"
	candidates[1].Lang = "rust"

	report, err := New(WithScope(ScopeLanguage)).BuildReport(candidates, src)
	require.NoError(t, err)
	assert.Empty(t, report.Pairs)
}

func TestDeterministicAcrossWorkerCounts(t *testing.T) {
	contents := make(map[string]string, 20)
	for i := 0; i < 10; i++ {
		body := genTokens(fmt.Sprintf("grp%d", i), 100)
		contents[fmt.Sprintf("file%02d_a.go", i)] = body
		contents[fmt.Sprintf("file%02d_b.go", i)] = body
	}
	candidates, src := fixture(contents)

	var baseline []byte
	for _, workers := range []int{1, 2, 8} {
		report, err := New(WithScope(ScopeGlobal), WithWorkers(workers)).BuildReport(candidates, src)
		require.NoError(t, err)
		report.Stats = nil

		encoded, err := json.Marshal(report)
		require.NoError(t, err)
		if baseline == nil {
			baseline = encoded
			continue
		}
		assert.Equal(t, string(baseline), string(encoded), "workers=%d diverged", workers)
	}
}

func TestInvalidExcludePatternFailsFast(t *testing.T) {
	candidates, src := fixture(map[string]string{"a.go": genTokens("token", 100)})

	_, err := New(WithExcludePatterns([]string{"src/["})).BuildReport(candidates, src)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid exclude pattern")
}

func TestExcludePatterns(t *testing.T) {
	body := genTokens("token", 100)
	candidates, src := fixture(map[string]string{
		"gen/a.go": body,
		"gen/b.go": body,
		"src/c.go": body,
	})

	report, err := New(
		WithScope(ScopeGlobal),
		WithExcludePatterns([]string{"gen/**"}),
	).BuildReport(candidates, src)
	require.NoError(t, err)

	assert.Empty(t, report.Pairs)
	assert.Equal(t, 2, report.ExcludedByPattern)
	assert.Equal(t, 1, report.EligibleFiles)
	assert.Equal(t, 1, report.FilesAnalyzed)
}

func TestMaxFilesKeepsLargestFiles(t *testing.T) {
	body := genTokens("token", 100)
	candidates, src := fixture(map[string]string{
		"big.go":    genTokens("unique", 100),
		"small1.go": body,
		"small2.go": body,
	})
	for i := range candidates {
		if candidates[i].Path == "big.go" {
			candidates[i].CodeLines = 500
		} else {
			candidates[i].CodeLines = 10
		}
	}

	// The cap keeps big.go plus small1.go (code lines desc, then path):
	// the identical small pair is split, so nothing matches.
	capped, err := New(WithScope(ScopeGlobal), WithMaxFiles(2)).BuildReport(candidates, src)
	require.NoError(t, err)
	assert.Empty(t, capped.Pairs)
	assert.Equal(t, 2, capped.FilesAnalyzed)
	assert.Equal(t, 1, capped.FilesSkipped)
	assert.Equal(t, 3, capped.EligibleFiles)

	full, err := New(WithScope(ScopeGlobal), WithMaxFiles(3)).BuildReport(candidates, src)
	require.NoError(t, err)
	assert.Len(t, full.Pairs, 1)
	assert.Zero(t, full.FilesSkipped)
}

func TestMaxBytesBudget(t *testing.T) {
	body := genTokens("token", 100)
	candidates, src := fixture(map[string]string{
		"a.go": body,
		"b.go": body,
		"c.go": body,
	})

	// Budget for two files only; the third counts as skipped.
	budget := 2 * int64(len(body))
	report, err := New(WithScope(ScopeGlobal), WithMaxBytes(budget)).BuildReport(candidates, src)
	require.NoError(t, err)

	assert.Equal(t, 2, report.FilesAnalyzed)
	assert.Equal(t, 1, report.FilesSkipped)
	assert.Len(t, report.Pairs, 1)
}

func TestMaxFileBytesExcludesOversize(t *testing.T) {
	body := genTokens("token", 100)
	candidates, src := fixture(map[string]string{
		"a.go": body,
		"b.go": body,
	})

	report, err := New(
		WithScope(ScopeGlobal),
		WithMaxFileBytes(int64(len(body))-1),
	).BuildReport(candidates, src)
	require.NoError(t, err)

	assert.Zero(t, report.EligibleFiles)
	assert.Zero(t, report.FilesAnalyzed)
	assert.Empty(t, report.Pairs)
}

func TestUnreadableFileDroppedSilently(t *testing.T) {
	body := genTokens("token", 100)
	candidates, src := fixture(map[string]string{
		"a.go": body,
		"b.go": body,
	})
	candidates = append(candidates, FileCandidate{
		Path: "ghost.go", Module: "(root)", Lang: "go", Bytes: 10, CodeLines: 1,
	})

	report, err := New(WithScope(ScopeGlobal)).BuildReport(candidates, src)
	require.NoError(t, err)
	assert.Len(t, report.Pairs, 1)
	assert.Equal(t, 3, report.FilesAnalyzed)
}

func TestEmptyAndBinaryContentSkipped(t *testing.T) {
	body := genTokens("token", 100)
	candidates, src := fixture(map[string]string{
		"a.go":     body,
		"b.go":     body,
		"empty.go": "",
		"bin.go":   "prefix\x00suffix " + body,
	})

	report, err := New(WithScope(ScopeGlobal)).BuildReport(candidates, src)
	require.NoError(t, err)
	require.Len(t, report.Pairs, 1)
	assert.Equal(t, "a.go", report.Pairs[0].Left)
	assert.Equal(t, "b.go", report.Pairs[0].Right)
}

func TestPairOrdering(t *testing.T) {
	shared := genTokens("shared", 200)
	near := shared + " " + genTokens("extra", 10)
	candidates, src := fixture(map[string]string{
		"z.go": shared,
		"a.go": shared,
		"m.go": near,
	})

	report, err := New(WithScope(ScopeGlobal), WithThreshold(0.5)).BuildReport(candidates, src)
	require.NoError(t, err)
	require.Len(t, report.Pairs, 3)

	// Similarity descending, then left then right ascending.
	for i := 1; i < len(report.Pairs); i++ {
		prev, cur := report.Pairs[i-1], report.Pairs[i]
		if prev.Similarity == cur.Similarity {
			assert.LessOrEqual(t, prev.Left, cur.Left)
		} else {
			assert.Greater(t, prev.Similarity, cur.Similarity)
		}
	}
	assert.Equal(t, "a.go", report.Pairs[0].Left)
	assert.Equal(t, "z.go", report.Pairs[0].Right)
	assert.Equal(t, 1.0, report.Pairs[0].Similarity)
}

func TestParamsEchoedInReport(t *testing.T) {
	candidates, src := fixture(map[string]string{"a.go": genTokens("token", 100)})

	report, err := New(
		WithScope(ScopeLanguage),
		WithThreshold(0.9),
		WithMaxFiles(10),
	).BuildReport(candidates, src)
	require.NoError(t, err)

	assert.Equal(t, ScopeLanguage, report.Params.Scope)
	assert.Equal(t, 0.9, report.Params.Threshold)
	assert.Equal(t, 10, report.Params.MaxFiles)
	assert.Equal(t, KGramSize, report.Params.Algorithm.KGramSize)
	assert.Equal(t, WindowSize, report.Params.Algorithm.WindowSize)
	assert.Equal(t, MaxPostings, report.Params.Algorithm.MaxPostings)
	assert.Equal(t, "top_by_code_lines_then_path", report.Params.SelectionMethod)
	require.NotNil(t, report.Stats)
	assert.Equal(t, int64(len(genTokens("token", 100))), report.Stats.BytesProcessed)
}

func TestSelectCandidatesMatchesAnalyzedCount(t *testing.T) {
	body := genTokens("token", 100)
	candidates, src := fixture(map[string]string{
		"keep1.go":    body,
		"keep2.go":    body,
		"gen/skip.go": body,
	})
	candidates = append(candidates, FileCandidate{
		Path: "huge.go", Module: "(root)", Lang: "go",
		Bytes: DefaultMaxFileBytes + 1, CodeLines: 9000,
	})

	a := New(WithScope(ScopeGlobal), WithExcludePatterns([]string{"gen/**"}))
	selected, err := a.SelectCandidates(candidates)
	require.NoError(t, err)
	assert.Len(t, selected, 2)

	// The selection is exactly what a report run processes.
	report, err := a.BuildReport(candidates, src)
	require.NoError(t, err)
	assert.Equal(t, len(selected), report.FilesAnalyzed)
}

func TestSelectCandidatesInvalidPattern(t *testing.T) {
	_, err := New(WithExcludePatterns([]string{"src/["})).SelectCandidates(nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid exclude pattern")
}

func TestDefaultParams(t *testing.T) {
	p := DefaultParams()
	assert.Equal(t, ScopeModule, p.Scope)
	assert.Equal(t, 0.80, p.Threshold)
	assert.Equal(t, 2000, p.MaxFiles)
	assert.Equal(t, int64(DefaultMaxFileBytes), p.MaxFileBytes)
}

func TestEmptyCandidateSet(t *testing.T) {
	report, err := New().BuildReport(nil, source.NewMemory(nil))
	require.NoError(t, err)
	assert.NotNil(t, report.Pairs)
	assert.Empty(t, report.Pairs)
	assert.Empty(t, report.Clusters)
	assert.Zero(t, report.FilesAnalyzed)
}

func TestRound4(t *testing.T) {
	assert.Equal(t, 0.3333, round4(1.0/3.0))
	assert.Equal(t, 0.6667, round4(2.0/3.0))
	assert.Equal(t, 1.0, round4(1.0))
}

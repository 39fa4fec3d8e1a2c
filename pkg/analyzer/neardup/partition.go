package neardup

import "sort"

// partitionFiles splits candidate indices into disjoint comparison groups.
// Only files within the same group are ever paired. Groups come back in a
// stable order (sorted by key) so downstream phases are deterministic.
func partitionFiles(files []FileCandidate, scope Scope) [][]int {
	switch scope {
	case ScopeModule:
		return groupByKey(files, func(f FileCandidate) string { return f.Module })
	case ScopeLanguage:
		return groupByKey(files, func(f FileCandidate) string { return f.Lang })
	default:
		all := make([]int, len(files))
		for i := range files {
			all[i] = i
		}
		return [][]int{all}
	}
}

func groupByKey(files []FileCandidate, key func(FileCandidate) string) [][]int {
	groups := make(map[string][]int)
	for i, f := range files {
		k := key(f)
		groups[k] = append(groups[k], i)
	}

	keys := make([]string, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([][]int, 0, len(keys))
	for _, k := range keys {
		out = append(out, groups[k])
	}
	return out
}

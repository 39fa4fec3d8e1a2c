package neardup

import "sort"

// disjointSets is a union-find over file indices with path compression and
// union by rank. find is iterative: pathological components (tens of
// thousands of files) must not turn into recursion depth.
type disjointSets struct {
	parent []int
	rank   []int
}

func newDisjointSets(n int) *disjointSets {
	d := &disjointSets{
		parent: make([]int, n),
		rank:   make([]int, n),
	}
	for i := range d.parent {
		d.parent[i] = i
	}
	return d
}

func (d *disjointSets) find(x int) int {
	root := x
	for d.parent[root] != root {
		root = d.parent[root]
	}
	// Second pass: repoint everything on the walked path at the root.
	for d.parent[x] != root {
		d.parent[x], x = root, d.parent[x]
	}
	return root
}

func (d *disjointSets) union(a, b int) {
	ra, rb := d.find(a), d.find(b)
	if ra == rb {
		return
	}
	switch {
	case d.rank[ra] < d.rank[rb]:
		d.parent[ra] = rb
	case d.rank[ra] > d.rank[rb]:
		d.parent[rb] = ra
	default:
		d.parent[rb] = ra
		d.rank[ra]++
	}
}

// buildClusters groups the full pair list into connected components.
// It must always see every pair, never a truncated list: clusters reflect
// the true similarity graph regardless of any output cap on pairs.
func buildClusters(pairs []PairRow) []Cluster {
	// Assign indices to distinct file names in first-appearance order over
	// the (already sorted) pair list.
	nameToIdx := make(map[string]int)
	var names []string
	idxOf := func(name string) int {
		if idx, ok := nameToIdx[name]; ok {
			return idx
		}
		idx := len(names)
		nameToIdx[name] = idx
		names = append(names, name)
		return idx
	}

	for _, p := range pairs {
		idxOf(p.Left)
		idxOf(p.Right)
	}

	ds := newDisjointSets(len(names))
	connections := make([]int, len(names))
	for _, p := range pairs {
		a, b := nameToIdx[p.Left], nameToIdx[p.Right]
		ds.union(a, b)
		connections[a]++
		connections[b]++
	}

	// Group files by root, keeping roots in first-seen order.
	components := make(map[int][]int)
	var roots []int
	for i := range names {
		root := ds.find(i)
		if _, seen := components[root]; !seen {
			roots = append(roots, root)
		}
		components[root] = append(components[root], i)
	}

	maxSim := make(map[int]float64)
	pairCount := make(map[int]int)
	for _, p := range pairs {
		root := ds.find(nameToIdx[p.Left])
		if p.Similarity > maxSim[root] {
			maxSim[root] = p.Similarity
		}
		pairCount[root]++
	}

	clusters := make([]Cluster, 0, len(roots))
	for _, root := range roots {
		members := components[root]

		fileList := make([]string, len(members))
		for i, idx := range members {
			fileList[i] = names[idx]
		}
		sort.Strings(fileList)

		// Representative: most-connected file; ties go to the
		// alphabetically first name.
		best := members[0]
		for _, idx := range members[1:] {
			if connections[idx] > connections[best] ||
				(connections[idx] == connections[best] && names[idx] < names[best]) {
				best = idx
			}
		}

		clusters = append(clusters, Cluster{
			Files:          fileList,
			Representative: names[best],
			MaxSimilarity:  maxSim[root],
			PairCount:      pairCount[root],
		})
	}

	sort.Slice(clusters, func(i, j int) bool {
		if clusters[i].MaxSimilarity != clusters[j].MaxSimilarity {
			return clusters[i].MaxSimilarity > clusters[j].MaxSimilarity
		}
		return clusters[i].Representative < clusters[j].Representative
	})

	return clusters
}

package neardup

import "math"

// fileFingerprints ties one candidate's index to its sorted, deduplicated
// fingerprint set.
type fileFingerprints struct {
	fileIdx int
	fps     []uint64
}

type pairKey struct {
	a, b int // local indices, a < b
}

// pairPartition builds an inverted index over one partition's fingerprints
// and scores every candidate pair by Jaccard similarity. The index and the
// shared-count map live only for this call; nothing is carried across
// partitions.
func pairPartition(files []FileCandidate, members []fileFingerprints, threshold float64) []PairRow {
	if len(members) < 2 {
		return nil
	}

	inverted := make(map[uint64][]int)
	for localIdx, m := range members {
		for _, fp := range m.fps {
			inverted[fp] = append(inverted[fp], localIdx)
		}
	}

	shared := make(map[pairKey]int)
	for _, postings := range inverted {
		if len(postings) > MaxPostings {
			// Ubiquitous boilerplate: carries no pair information and
			// would make pairing quadratic in the partition size.
			continue
		}
		for i := 0; i < len(postings); i++ {
			for j := i + 1; j < len(postings); j++ {
				a, b := postings[i], postings[j]
				if a == b {
					continue
				}
				if a > b {
					a, b = b, a
				}
				shared[pairKey{a, b}]++
			}
		}
	}

	var pairs []PairRow
	for key, count := range shared {
		fpA := len(members[key.a].fps)
		fpB := len(members[key.b].fps)
		union := fpA + fpB - count
		if union == 0 {
			continue
		}
		similarity := float64(count) / float64(union)
		if similarity < threshold {
			continue
		}

		left := files[members[key.a].fileIdx].Path
		right := files[members[key.b].fileIdx].Path
		if right < left {
			left, right = right, left
			fpA, fpB = fpB, fpA
		}
		pairs = append(pairs, PairRow{
			Left:               left,
			Right:              right,
			Similarity:         round4(similarity),
			SharedFingerprints: count,
			LeftFingerprints:   fpA,
			RightFingerprints:  fpB,
		})
	}

	return pairs
}

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}

// Package stats provides statistical helpers for report summaries.
package stats

import "gonum.org/v1/gonum/stat"

// Percentile returns the p-th percentile (0-100) of a slice sorted in
// ascending order. Returns 0 for an empty slice.
func Percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	return stat.Quantile(p/100, stat.Empirical, sorted, nil)
}

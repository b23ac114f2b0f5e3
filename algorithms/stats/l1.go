package stats

import (
	"gonum.org/v1/gonum/floats"
)

// L1Distance returns the Manhattan distance between the overlapping prefix of
// two vectors
func L1Distance(a, b []float64) float64 {
	n := min(len(a), len(b))
	if n == 0 {
		return 0.0
	}
	return floats.Distance(a[:n], b[:n], 1)
}

// WindowedL1Distance compares a[offset : offset+window] with b[0 : window].
// It reports false when the window does not fit.
func WindowedL1Distance(a, b []float64, offset, window int) (float64, bool) {
	if offset < 0 || window <= 0 || offset+window > len(a) || window > len(b) {
		return 0.0, false
	}
	return floats.Distance(a[offset:offset+window], b[:window], 1), true
}

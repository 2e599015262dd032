// Package filter implements the intrinsic per-trace filters that run
// before timing extraction: the median rank pre-filter (C2) and the
// baseline corrector (C3). Grounded on the original source's
// `DMedianFilter::apply` and the inline baseline block in
// `DRS4Worker::runSingleThreaded`/`runMultiThreaded`
// (original_source/drs4worker.cpp).
package filter

import "sort"

// validMedianWindows are the only window sizes the in-place rank filter
// accepts (spec.md §4.2).
var validMedianWindows = map[int]bool{3: true, 5: true, 7: true, 9: true}

// Median applies an odd-window rank filter to v in place. Boundary cells
// are filtered against a window clipped to the available samples. It
// returns false (no-op) if window is even, not in {3,5,7,9}, or exceeds
// len(v).
func Median(v []float64, window int) bool {
	if !validMedianWindows[window] || window > len(v) {
		return false
	}

	half := window / 2
	out := make([]float64, len(v))
	buf := make([]float64, 0, window)

	for i := range v {
		lo := i - half
		if lo < 0 {
			lo = 0
		}
		hi := i + half
		if hi > len(v)-1 {
			hi = len(v) - 1
		}

		buf = buf[:0]
		buf = append(buf, v[lo:hi+1]...)
		sort.Float64s(buf)
		out[i] = buf[len(buf)/2]
	}

	copy(v, out)
	return true
}

package interp

import "sort"

// linearInterpolant is piecewise-linear over x/y, clamped to the endpoint
// value outside [x[0], x[n-1]] (§4.1 edge policy).
type linearInterpolant struct {
	x, y []float64
}

func newLinear(x, y []float64) Interpolant {
	return &linearInterpolant{x: x, y: y}
}

func (l *linearInterpolant) Eval(t float64) float64 {
	n := len(l.x)
	if n == 1 {
		return l.y[0]
	}
	if t <= l.x[0] {
		return l.y[0]
	}
	if t >= l.x[n-1] {
		return l.y[n-1]
	}

	// i is the first index whose x strictly exceeds t.
	i := sort.Search(n, func(i int) bool { return l.x[i] > t })
	lo, hi := i-1, i
	frac := (t - l.x[lo]) / (l.x[hi] - l.x[lo])
	return l.y[lo] + frac*(l.y[hi]-l.y[lo])
}

package interp

import "math"

// monotonicHermite is the Fritsch-Carlson (1980) monotone cubic Hermite
// interpolant: it guarantees that any monotone run of input samples
// stays monotone in the interpolated curve (spec.md §4.1). Where two
// adjacent samples are exactly equal, the local secant is zero and the
// Fritsch-Carlson tangent clamp forces both endpoint tangents to zero —
// the segment degenerates to a flat (constant) line, which is linear
// interpolation within that span (spec.md §9 open question).
type monotonicHermite struct {
	x, y []float64
	t    []float64
}

func newMonotonicHermite(x, y []float64) Interpolant {
	n := len(x)
	secant := make([]float64, n-1)
	for i := 0; i < n-1; i++ {
		secant[i] = (y[i+1] - y[i]) / (x[i+1] - x[i])
	}

	t := make([]float64, n)
	t[0] = secant[0]
	t[n-1] = secant[n-2]
	for i := 1; i < n-1; i++ {
		if secant[i-1] == 0 || secant[i] == 0 || (secant[i-1] > 0) != (secant[i] > 0) {
			t[i] = 0
			continue
		}
		t[i] = (secant[i-1] + secant[i]) / 2
	}

	// Clamp tangents so each segment stays monotone (Fritsch-Carlson).
	for i := 0; i < n-1; i++ {
		if secant[i] == 0 {
			t[i] = 0
			t[i+1] = 0
			continue
		}
		a := t[i] / secant[i]
		b := t[i+1] / secant[i]
		if a < 0 {
			t[i] = 0
			a = 0
		}
		if b < 0 {
			t[i+1] = 0
			b = 0
		}
		if h := a*a + b*b; h > 9 {
			scale := 3 / math.Sqrt(h)
			t[i] = scale * a * secant[i]
			t[i+1] = scale * b * secant[i]
		}
	}

	return &monotonicHermite{x: x, y: y, t: t}
}

func (s *monotonicHermite) Eval(t float64) float64 {
	i := findSegment(s.x, t)
	return hermiteSegment(s.x[i], s.x[i+1], s.y[i], s.y[i+1], s.t[i], s.t[i+1], t)
}

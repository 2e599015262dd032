package interp

import "math"

// akima is Akima's 1970 piecewise-cubic interpolant, grounded on the
// teacher's reference `akimaSpline` class (Fit/dspline.h). It is less
// sensitive to outlier samples than a natural cubic spline because its
// per-segment slope weights are local (only 5 neighboring points),
// rather than solving a global tridiagonal system.
type akima struct {
	x, y []float64
	t    []float64 // per-knot slope estimate
}

func newAkima(x, y []float64) Interpolant {
	n := len(x)

	// Extend the secant-slope sequence with two virtual points on each
	// side (the standard Akima boundary extrapolation).
	m := make([]float64, n+3) // m[2..n] are real secants m[i+2]=(y[i+1]-y[i])/(x[i+1]-x[i])
	for i := 0; i < n-1; i++ {
		m[i+2] = (y[i+1] - y[i]) / (x[i+1] - x[i])
	}
	m[1] = 2*m[2] - m[3]
	m[0] = 2*m[1] - m[2]
	m[n+1] = 2*m[n] - m[n-1]
	m[n+2] = 2*m[n+1] - m[n]

	t := make([]float64, n)
	for i := 0; i < n; i++ {
		// m is offset by 2: the secant at knot i is m[i+2].
		mm1, m0, m1, m2 := m[i], m[i+1], m[i+2], m[i+3]
		w1 := math.Abs(m2 - m1)
		w2 := math.Abs(m0 - mm1)
		if w1+w2 == 0 {
			t[i] = (m0 + m1) / 2
		} else {
			t[i] = (w1*m0 + w2*m1) / (w1 + w2)
		}
	}

	return &akima{x: x, y: y, t: t}
}

func (s *akima) segment(t float64) int {
	n := len(s.x)
	if t <= s.x[0] {
		return 0
	}
	if t >= s.x[n-1] {
		return n - 2
	}
	lo, hi := 0, n-1
	for hi-lo > 1 {
		mid := (lo + hi) / 2
		if s.x[mid] <= t {
			lo = mid
		} else {
			hi = mid
		}
	}
	return lo
}

func (s *akima) Eval(t float64) float64 {
	i := s.segment(t)
	h := s.x[i+1] - s.x[i]
	dx := t - s.x[i]

	p0 := s.y[i]
	p1 := s.t[i]
	secant := (s.y[i+1] - s.y[i]) / h
	p2 := (3*secant - 2*s.t[i] - s.t[i+1]) / h
	p3 := (s.t[i] + s.t[i+1] - 2*secant) / (h * h)

	return p0 + p1*dx + p2*dx*dx + p3*dx*dx*dx
}

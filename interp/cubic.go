package interp

import "sort"

// cubicNatural is a natural (zero second-derivative boundary) cubic
// spline, grounded on the teacher's reference `spline` class
// (Fit/dspline.h in the retrieval pack's original_source, itself a
// trimmed port of Tino Kluge's tridiagonal-solve spline). Coefficients
// are precomputed once at Build time; Eval is O(log n).
type cubicNatural struct {
	x, y    []float64
	a, b, c []float64 // per-segment cubic coefficients: f(x)=a*dx^3+b*dx^2+c*dx+y_i
}

func newCubicNatural(x, y []float64) Interpolant {
	n := len(x)
	h := make([]float64, n-1)
	for i := 0; i < n-1; i++ {
		h[i] = x[i+1] - x[i]
	}

	// Solve the tridiagonal system for second derivatives m (natural
	// boundary: m[0] = m[n-1] = 0).
	m := make([]float64, n)
	alpha := make([]float64, n)
	l := make([]float64, n)
	mu := make([]float64, n)
	z := make([]float64, n)

	l[0] = 1
	for i := 1; i < n-1; i++ {
		alpha[i] = 6*(y[i+1]-y[i])/h[i] - 6*(y[i]-y[i-1])/h[i-1]
	}
	for i := 1; i < n-1; i++ {
		l[i] = 2*(x[i+1]-x[i-1]) - h[i-1]*mu[i-1]
		mu[i] = h[i] / l[i]
		z[i] = (alpha[i] - h[i-1]*z[i-1]) / l[i]
	}
	l[n-1] = 1
	m[n-1] = 0
	for j := n - 2; j >= 0; j-- {
		m[j] = z[j] - mu[j]*m[j+1]
	}

	a := make([]float64, n-1)
	b := make([]float64, n-1)
	c := make([]float64, n-1)
	for i := 0; i < n-1; i++ {
		b[i] = m[i] / 2
		a[i] = (m[i+1] - m[i]) / (6 * h[i])
		c[i] = (y[i+1]-y[i])/h[i] - h[i]*(2*m[i]+m[i+1])/6
	}

	return &cubicNatural{x: x, y: y, a: a, b: b, c: c}
}

func (s *cubicNatural) segment(t float64) int {
	n := len(s.x)
	if t <= s.x[0] {
		return 0
	}
	if t >= s.x[n-1] {
		return n - 2
	}
	i := sort.Search(n, func(i int) bool { return s.x[i] > t })
	return i - 1
}

func (s *cubicNatural) Eval(t float64) float64 {
	i := s.segment(t)
	dx := t - s.x[i]
	return s.y[i] + s.c[i]*dx + s.b[i]*dx*dx + s.a[i]*dx*dx*dx
}

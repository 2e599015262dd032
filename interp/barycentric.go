package interp

// barycentricPoly is a numerically-stable barycentric-form polynomial
// interpolant (Berrut & Trefethen, "Barycentric Lagrange Interpolation",
// SIAM Review 2004) over the whole cell window. It generalizes the
// teacher's hand-rolled, fixed-order `LagrangeInterpolator` (order 1 or
// 3 only; no longer part of this module's dsp package) to an arbitrary
// window size, which is
// what spec.md §4.1 calls for ("polynomial over the whole cell window").
//
// algo-approx's real, grounded API (piano/utils.go, piano/piano.go:
// `approx.FastExp(x float32) float32`) is a fast exponential, not a
// polynomial-interpolation routine, so it has no honest role here; it is
// wired instead into internal/demogen's pulse envelope, where an
// exponential decay is actually called for. This stays a
// dependency-free primitive in the same spirit as dsp/dsp.go.
type barycentricPoly struct {
	x, y, w []float64
}

func newBarycentric(x, y []float64) Interpolant {
	n := len(x)
	w := make([]float64, n)
	for j := 0; j < n; j++ {
		wj := 1.0
		for k := 0; k < n; k++ {
			if k == j {
				continue
			}
			wj /= x[j] - x[k]
		}
		w[j] = wj
	}
	return &barycentricPoly{x: x, y: y, w: w}
}

func (b *barycentricPoly) Eval(t float64) float64 {
	var num, den float64
	for j := range b.x {
		d := t - b.x[j]
		if d == 0 {
			return b.y[j]
		}
		term := b.w[j] / d
		num += term * b.y[j]
		den += term
	}
	if den == 0 {
		return 0
	}
	return num / den
}

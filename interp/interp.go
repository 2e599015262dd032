// Package interp provides the bounded-window evaluators the CFD extractor
// (package cfd) uses to refine sample-resolution extrema and level
// crossings into sub-cell timestamps. The interpolation kind is a
// runtime-selected tagged variant (design note: "best modeled as a tagged
// variant with a single eval(t) -> f64 operation"); all kinds share the
// Interpolant interface below.
package interp

import "fmt"

// Kind selects the evaluator build builds.
type Kind int

const (
	Linear Kind = iota
	CubicNatural
	Akima
	CatmullRom
	MonotonicHermite
	Barycentric
)

func (k Kind) String() string {
	switch k {
	case Linear:
		return "Linear"
	case CubicNatural:
		return "CubicNatural"
	case Akima:
		return "Akima"
	case CatmullRom:
		return "CatmullRom"
	case MonotonicHermite:
		return "MonotonicHermite"
	case Barycentric:
		return "Barycentric"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Interpolant evaluates the interpolated curve at an arbitrary t within
// (or, for splines, beyond) the built window.
type Interpolant interface {
	Eval(t float64) float64
}

const minNonLinearPoints = 4

// Build constructs an Interpolant of the requested kind over x (strictly
// increasing) and y, len(x) == len(y). Non-linear kinds require at least
// 4 points. Build panics on malformed input — it is always called by the
// pipeline with a pre-validated ROI slice, never on untrusted data.
func Build(kind Kind, x, y []float64) Interpolant {
	if len(x) != len(y) {
		panic("interp: len(x) != len(y)")
	}
	if kind != Linear && len(x) < minNonLinearPoints {
		panic("interp: need at least 4 points for a non-linear kind")
	}
	for i := 1; i < len(x); i++ {
		if x[i] <= x[i-1] {
			panic("interp: x must be strictly increasing")
		}
	}

	switch kind {
	case Linear:
		return newLinear(x, y)
	case CubicNatural:
		return newCubicNatural(x, y)
	case Akima:
		return newAkima(x, y)
	case CatmullRom:
		return newCatmullRom(x, y)
	case MonotonicHermite:
		return newMonotonicHermite(x, y)
	case Barycentric:
		return newBarycentric(x, y)
	default:
		panic(fmt.Sprintf("interp: unknown kind %v", kind))
	}
}

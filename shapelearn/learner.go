// Package shapelearn implements the pulse-shape filter learner (C6,
// spec.md §4.6): online recording of accepted pulses, each folded into
// per-grid-point running (mean, stddev) statistics over the fixed
// 4381-point grid rather than kept in a pool, followed by envelope
// construction from those statistics. Grounded on
// DRS4Worker::recordPulseShapeData/calculateMeanTraceA/
// calculateStdDevTraceA in original_source/drs4worker.cpp, and on
// Fit/dspline.h's `DSpline` for the per-pulse fit.
package shapelearn

import (
	"github.com/palsflow/pals/feature"
	"github.com/palsflow/pals/interp"
)

// GridPoints is the fixed envelope grid size (spec.md §3, §9 design
// note): large enough to resolve a ~200 ns sweep at ~0.1-0.2 ns digitizer
// cell spacing. Downstream consumers (feature.ApplyShapeFilter via the
// built Envelope) assume exactly this grid.
const GridPoints = 4381

// GridLeftNS, GridRightNS bound the fixed grid (spec.md §3).
const (
	GridLeftNS  = -200.0
	GridRightNS = 200.0
)

// Grid returns the fixed evaluation grid, recomputed on demand (cheap:
// 4381 float64s) rather than held as global mutable state.
func Grid() []float64 {
	g := make([]float64, GridPoints)
	step := (GridRightNS - GridLeftNS) / float64(GridPoints-1)
	for i := range g {
		g[i] = GridLeftNS + float64(i)*step
	}
	return g
}

// Envelope is the learned mean(t)/stddev(t) band (spec.md §3 "Shape-filter
// envelope"), read-only once published.
type Envelope struct {
	GridT   []float64
	MeanY   []float64
	StdDevY []float64

	Mean   interp.Interpolant
	StdDev interp.Interpolant
}

// BuildEnvelope constructs the spline pair from flat grid/mean/stddev
// arrays, as handed across the settings-view boundary (spec.md §4.10).
func BuildEnvelope(gridT, meanY, stdDevY []float64) Envelope {
	return Envelope{
		GridT:   gridT,
		MeanY:   meanY,
		StdDevY: stdDevY,
		Mean:    interp.Build(interp.CubicNatural, gridT, meanY),
		StdDev:  interp.Build(interp.CubicNatural, gridT, stdDevY),
	}
}

// Recorder accumulates N accepted pulses for one channel and one branch
// (AB/BA/prompt, selected by the caller before recording starts) and
// produces an Envelope once full.
type Recorder struct {
	target int
	count  int
	grid   []float64
	stats  []feature.BinStats
	done   bool
	result Envelope
}

// NewRecorder starts recording for numberOfPulses accepted pulses
// (spec.md §4.6 "Triggered in recording mode for N accepted pulses").
func NewRecorder(numberOfPulses int) *Recorder {
	return &Recorder{
		target: numberOfPulses,
		grid:   Grid(),
		stats:  make([]feature.BinStats, GridPoints),
	}
}

// Recording reports whether the recorder still needs more pulses.
func (r *Recorder) Recording() bool { return !r.done }

// Progress returns pulses recorded so far.
func (r *Recorder) Progress() int { return r.count }

// Record folds one accepted pulse's ROI samples into the pool. relT/y
// must already be time-shifted by -tOfExtr and normalized by yExtr
// (spec.md §4.6 steps 1-2), and relT strictly increasing. Traversal
// direction alternates by pulse index (even: as given; odd: reversed) to
// balance temporal sampling density (spec.md §4.6 step 3) — for an
// already time-sorted trace this only affects the order samples are
// fed to the per-pulse spline fit, which produces the same fitted curve
// since the underlying (t, y) pairs are unchanged; the reversal is kept
// for fidelity to the documented behavior.
func (r *Recorder) Record(relT, y []float64) {
	if r.done || len(relT) < 4 {
		return
	}

	x := relT
	yy := y
	if r.count%2 == 1 {
		x = reversed(relT)
		yy = reversed(y)
		x, yy = sortByX(x, yy)
	}

	spline := interp.Build(interp.CubicNatural, x, yy)
	lo, hi := x[0], x[len(x)-1]
	for i, gt := range r.grid {
		if gt < lo || gt > hi {
			continue
		}
		r.stats[i].Add(spline.Eval(gt))
	}

	r.count++
	if r.count >= r.target {
		r.finish()
	}
}

func (r *Recorder) finish() {
	meanY := make([]float64, GridPoints)
	stdY := make([]float64, GridPoints)
	for i := range r.stats {
		meanY[i] = r.stats[i].Mean()
		stdY[i] = r.stats[i].StdDev()
	}
	r.result = BuildEnvelope(r.grid, meanY, stdY)
	r.done = true
}

// Envelope returns the learned envelope; valid only once Recording()
// reports false.
func (r *Recorder) Envelope() Envelope { return r.result }

func reversed(v []float64) []float64 {
	out := make([]float64, len(v))
	for i, x := range v {
		out[len(v)-1-i] = x
	}
	return out
}

// sortByX re-sorts x/y pairs ascending by x (required: interp.Build
// demands strictly increasing x).
func sortByX(x, y []float64) ([]float64, []float64) {
	type pt struct{ x, y float64 }
	pts := make([]pt, len(x))
	for i := range x {
		pts[i] = pt{x[i], y[i]}
	}
	for i := 1; i < len(pts); i++ {
		for j := i; j > 0 && pts[j].x < pts[j-1].x; j-- {
			pts[j], pts[j-1] = pts[j-1], pts[j]
		}
	}
	ox := make([]float64, len(x))
	oy := make([]float64, len(x))
	for i, p := range pts {
		ox[i], oy[i] = p.x, p.y
	}
	return ox, oy
}

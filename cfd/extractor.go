// Package cfd implements the constant-fraction-discriminator timing
// extractor (C4, spec.md §4.4), grounded on the scan/bracket/refine loop
// in original_source/drs4worker.cpp (the `for (int a = reducedEndRange...`
// block in DRS4Worker::runSingleThreaded/runMultiThreaded and the
// "render"/"intraRenderPoints" subdivision that follows it).
package cfd

import (
	"math"

	"github.com/palsflow/pals/interp"
)

// RejectReason enumerates why a single channel's CFD extraction failed
// (spec.md §4.4 "Failure conditions" / §7 taxonomy).
type RejectReason int

const (
	RejectNone RejectReason = iota
	RejectExtremumTooCloseToStart
	RejectExtremumDegenerate
	RejectBracketAmbiguous
	RejectBracketMissing
	RejectLevelZero
	RejectLevelOutOfRange
	RejectPolarityMismatch
	RejectNonFiniteSlope
)

// Params configures one channel's extraction.
type Params struct {
	StartCell         int
	StopCell          int // exclusive
	CFDFraction       float64
	Positive          bool
	IntraRenderPoints int
	Kind              interp.Kind
}

// Result is one channel's extracted timing and extremum.
type Result struct {
	TCFD, T10, T90 float64
	YExtr          float64
	TOfExtr        float64
	CellOfExtr     int
	Reject         RejectReason
}

// minCellsFromStart is the "insufficient pre-pulse context" guard
// (spec.md §4.4 step 1).
const minCellsFromStart = 15

// slopeEpsilon is the minimum |slope| considered "on the rising/falling
// edge" (spec.md §4.4 step 3; matches the literal 1E-6 in
// original_source/drs4worker.cpp).
const slopeEpsilon = 1e-6

// levelRangeMV is the ±500 mV sanity bound on a CFD level (spec.md
// §4.4 "Failure conditions").
const levelRangeMV = 500.0

// Extract runs the full CFD procedure over one channel's samples within
// [StartCell, StopCell).
func Extract(t, v []float64, p Params) Result {
	res := Result{CellOfExtr: -1}

	// Step 1: raw extremum scan. Both the max and the min are tracked
	// (not just the one matching the declared polarity) so the polarity
	// check below has something real to compare against.
	cellMax, cellMin := -1, -1
	yMax := math.Inf(-1)
	yMin := math.Inf(1)
	for c := p.StartCell; c < p.StopCell; c++ {
		if v[c] >= yMax {
			yMax = v[c]
			cellMax = c
		}
		if v[c] <= yMin {
			yMin = v[c]
			cellMin = c
		}
	}
	if cellMax == -1 || cellMin == -1 {
		res.Reject = RejectExtremumDegenerate
		return res
	}

	// Step 2: polarity consistency. A positive-declared pulse must have
	// its positive excursion dominate the negative one, and vice versa
	// (matches the `abs(yMinA) > abs(yMaxA)` / `abs(yMinA) < abs(yMaxA)`
	// checks in original_source/drs4worker.cpp).
	if p.Positive {
		if math.Abs(yMin) > math.Abs(yMax) {
			res.Reject = RejectPolarityMismatch
			return res
		}
	} else {
		if math.Abs(yMin) < math.Abs(yMax) {
			res.Reject = RejectPolarityMismatch
			return res
		}
	}

	var cellExtr int
	var yExtr float64
	if p.Positive {
		cellExtr, yExtr = cellMax, yMax
	} else {
		cellExtr, yExtr = cellMin, yMin
	}
	if cellExtr-p.StartCell < minCellsFromStart {
		res.Reject = RejectExtremumTooCloseToStart
		return res
	}

	levelMain := p.CFDFraction * yExtr
	level10 := 0.10 * yExtr
	level90 := 0.90 * yExtr

	brMain, okMain := findBracket(t, v, p, levelMain)
	if !okMain {
		res.Reject = brMain.reason
		return res
	}
	br10, ok10 := findBracket(t, v, p, level10)
	br90, ok90 := findBracket(t, v, p, level90)

	// Step 4: refine the extremum via the ROI interpolant.
	roiX := t[p.StartCell:p.StopCell]
	roiY := v[p.StartCell:p.StopCell]
	kind := p.Kind
	in := interp.Build(kind, roiX, roiY)

	refinedY, refinedT := refineExtremum(in, t, cellExtr, p)
	if p.Positive {
		if refinedY > yExtr {
			yExtr = refinedY
			res.TOfExtr = refinedT
		} else {
			res.TOfExtr = t[cellExtr]
		}
	} else {
		if refinedY < yExtr {
			yExtr = refinedY
			res.TOfExtr = refinedT
		} else {
			res.TOfExtr = t[cellExtr]
		}
	}
	res.YExtr = yExtr
	res.CellOfExtr = cellExtr

	if p.Positive {
		if levelMain > levelRangeMV || levelMain <= 0 || int(levelMain) == int(yExtr) {
			res.Reject = RejectLevelOutOfRange
			return res
		}
	} else {
		if levelMain < -levelRangeMV || levelMain >= 0 || int(levelMain) == int(yExtr) {
			res.Reject = RejectLevelOutOfRange
			return res
		}
	}
	res.TCFD = refineCrossing(in, t, brMain, levelMain, p)
	if ok10 {
		res.T10 = refineCrossing(in, t, br10, level10, p)
	}
	if ok90 {
		res.T90 = refineCrossing(in, t, br90, level90, p)
	}

	res.Reject = RejectNone
	return res
}

type bracket struct {
	lo, hi int
	count  int
	reason RejectReason
}

// findBracket walks adjacent cell pairs on the slope side matching the
// declared polarity and locates the unique straddling pair for level
// (spec.md §4.4 step 3).
func findBracket(t, v []float64, p Params, level float64) (bracket, bool) {
	var br bracket
	count := 0
	lo, hi := -1, -1

	for c := p.StartCell + 1; c < p.StopCell; c++ {
		prev := c - 1
		dt := t[c] - t[prev]
		if dt == 0 {
			continue
		}
		slope := (v[c] - v[prev]) / dt
		if math.IsInf(slope, 0) || math.IsNaN(slope) {
			return bracket{reason: RejectNonFiniteSlope}, false
		}

		onSide := slope > slopeEpsilon
		if !p.Positive {
			onSide = slope < -slopeEpsilon
		}
		if !onSide {
			continue
		}

		straddles := false
		if p.Positive {
			straddles = v[c] > level && v[prev] < level
		} else {
			straddles = v[c] < level && v[prev] > level
		}

		switch {
		case straddles:
			lo, hi = prev, c
			count++
		case v[c] == level:
			lo, hi = c, c
			count++
		case v[prev] == level:
			lo, hi = prev, prev
			count++
		}
	}

	br = bracket{lo: lo, hi: hi, count: count}
	if count == 0 {
		br.reason = RejectBracketMissing
		return br, false
	}
	if count > 1 {
		br.reason = RejectBracketAmbiguous
		return br, false
	}
	return br, true
}

// refineExtremum evaluates the interpolant on a dense subdivision
// between the two raw-sample cells adjacent to the raw extremum and
// returns the refined (y, t) pair (spec.md §4.4 step 4). Per the
// "interpolated extrema monotonically refine the raw-sample extrema"
// invariant, callers only adopt the refined value if it does not shrink
// |y|.
func refineExtremum(in interp.Interpolant, t []float64, cellExtr int, p Params) (y, tOfY float64) {
	lo := cellExtr - 1
	hi := cellExtr + 1
	if lo < p.StartCell {
		lo = cellExtr
	}
	if hi >= p.StopCell {
		hi = cellExtr
	}
	if lo == hi {
		return in.Eval(t[cellExtr]), t[cellExtr]
	}

	best := in.Eval(t[lo])
	bestT := t[lo]
	n := p.IntraRenderPoints
	if n < 1 {
		n = 1
	}
	step := (t[hi] - t[lo]) / float64(n)
	for i := 0; i <= n; i++ {
		tt := t[lo] + float64(i)*step
		val := in.Eval(tt)
		if p.Positive {
			if val > best {
				best, bestT = val, tt
			}
		} else {
			if val < best {
				best, bestT = val, tt
			}
		}
	}
	return best, bestT
}

// refineCrossing evaluates the interpolant on a dense subdivision between
// the bracketing cells and returns the sub-cell crossing time for level,
// solved linearly within the first matching subinterval (spec.md §4.4
// step 5). For the Linear kind, subdivision is skipped — the crossing is
// solved directly between the two bracketing cells.
func refineCrossing(in interp.Interpolant, t []float64, br bracket, level float64, p Params) float64 {
	if br.lo == br.hi {
		return t[br.lo]
	}

	if p.Kind == interp.Linear {
		return solveLinear(t[br.lo], in.Eval(t[br.lo]), t[br.hi], in.Eval(t[br.hi]), level)
	}

	n := p.IntraRenderPoints
	if n < 1 {
		n = 1
	}
	step := (t[br.hi] - t[br.lo]) / float64(n)

	prevT := t[br.lo]
	prevV := in.Eval(prevT)
	for i := 1; i <= n; i++ {
		tt := t[br.lo] + float64(i)*step
		vv := in.Eval(tt)

		straddles := false
		if p.Positive {
			straddles = vv > level && prevV < level
		} else {
			straddles = vv < level && prevV > level
		}
		if straddles {
			return solveLinear(prevT, prevV, tt, vv, level)
		}
		prevT, prevV = tt, vv
	}
	// No sub-grid straddle found (can happen if the level sits exactly at
	// a subdivision boundary) — fall back to the coarse bracket.
	return solveLinear(t[br.lo], in.Eval(t[br.lo]), t[br.hi], in.Eval(t[br.hi]), level)
}

// solveLinear finds t such that the line through (t0,v0)-(t1,v1) equals
// level, via slope-intercept solve (spec.md §4.4 step 5).
func solveLinear(t0, v0, t1, v1, level float64) float64 {
	if v1 == v0 {
		return t0
	}
	slope := (v1 - v0) / (t1 - t0)
	return t0 + (level-v0)/slope
}

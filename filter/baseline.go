package filter

import (
	"math"

	"github.com/palsflow/pals/dsp"
)

// BaselineParams configures the baseline corrector (C3, spec.md §4.3).
type BaselineParams struct {
	StartCell        int
	RegionWidth      int
	ReferenceValueMV float64
	LimitPercentFS   float64
	RejectOnLimit    bool
}

// Baseline computes the mean over [StartCell, StartCell+RegionWidth) and,
// unless rejected, subtracts it from every sample of v in place. It
// returns (baselineMV, rejected). Rejection happens only when
// RejectOnLimit is set and the computed baseline deviates from
// ReferenceValueMV by more than LimitPercentFS percent of the 500 mV
// full-scale reference (matching the literal `/500.0` in
// original_source/drs4worker.cpp).
func Baseline(v []float64, p BaselineParams) (baselineMV float64, rejected bool) {
	end := p.StartCell + p.RegionWidth
	var sum float64
	for i := p.StartCell; i < end; i++ {
		sum += v[i]
	}
	b := sum / float64(p.RegionWidth)

	const fullScaleMV = 500.0
	exceeded := math.Abs(b-p.ReferenceValueMV)/fullScaleMV > p.LimitPercentFS*0.01

	if p.RejectOnLimit && exceeded {
		return b, true
	}

	for i := range v {
		v[i] = dsp.FlushDenormals64(v[i] - b)
	}
	return b, false
}

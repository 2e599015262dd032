package feature

import "github.com/palsflow/pals/interp"

// ShapeParams configures the pulse-shape envelope filter (spec.md §4.5
// "Pulse-shape filter (application)").
type ShapeParams struct {
	LeftNS, RightNS           float64
	UpperFracStdDev           float64
	LowerFracStdDev           float64
}

// ShapeSample is one ROI sample, time-shifted relative to the channel's
// refined extremum.
type ShapeSample struct {
	RelT float64 // t - tOfExtr, ns
	Y    float64 // raw voltage, mV
}

// ApplyShapeFilter accepts a channel iff every ROI sample within
// [-LeftNS, +RightNS] of the extremum, normalized by yExtr, falls inside
// [mean-lowerFrac*stddev, mean+upperFrac*stddev]. A single out-of-band
// sample rejects the whole channel (spec.md §4.5: "Any single
// out-of-band sample rejects the channel").
func ApplyShapeFilter(samples []ShapeSample, yExtr float64, mean, stddev interp.Interpolant, p ShapeParams) bool {
	if yExtr == 0 {
		return false
	}
	for _, s := range samples {
		if s.RelT < -p.LeftNS || s.RelT > p.RightNS {
			continue
		}
		yNorm := s.Y / yExtr
		m := mean.Eval(s.RelT)
		sd := stddev.Eval(s.RelT)
		lo := m - p.LowerFracStdDev*sd
		hi := m + p.UpperFracStdDev*sd
		if yNorm < lo || yNorm > hi {
			return false
		}
	}
	return true
}

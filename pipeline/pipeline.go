// Package pipeline implements the pulse-pair pipeline (C8, spec.md
// §4.8): a pure function orchestrating the median pre-filter, baseline
// corrector, CFD extractor, feature filters, and spectrum classification
// for one trace pair. Grounded on the main per-event scan loop in
// original_source/drs4worker.cpp (DRS4Worker::runSingleThreaded /
// runMultiThreaded), which this package decomposes into the same
// sequence of stages but as a single side-effect-free function over an
// explicit result value instead of mutated member fields.
package pipeline

import (
	"github.com/palsflow/pals/cfd"
	"github.com/palsflow/pals/feature"
	"github.com/palsflow/pals/filter"
	"github.com/palsflow/pals/settings"
	"github.com/palsflow/pals/spectrum"
	"github.com/palsflow/pals/trace"
)

// Reason enumerates why an entire pulse pair was rejected (spec.md §7
// taxonomy, pipeline layer). Distinct from cfd.RejectReason, which is
// per-channel.
type Reason int

const (
	Accepted Reason = iota
	RejectBaselineA
	RejectBaselineB
	RejectCFDA
	RejectCFDB
	RejectAreaFilter
	RejectRiseTime
	RejectShapeFilter
)

// AreaPoint is one channel's scatter point for the area-filter overlay
// (spec.md §3 "area_point(channel, phs, area)"). Points for both channels
// are recorded before the area filter runs, so a rejected pair can carry
// them too.
type AreaPoint struct {
	Channel int
	PHSBin  int
	Area    float64
}

// Result is everything one pulse pair produced (spec.md §3 "Pulse-pair
// result"): zero or more histogram increments plus side-channel points,
// or a whole-pair rejection reason.
type Result struct {
	Reject Reason

	PHSBinA, PHSBinB int
	TCFDA, TCFDB     float64 // fed to spectrum.Accumulator.Update by the merge step
	Branch           spectrum.Branch

	AreaPoints []AreaPoint

	RiseTimeBinA, RiseTimeBinB int
	RiseTimeAcceptA, RiseTimeAcceptB bool

	// ShapeRecordA/ShapeRecordB hold one channel's translated,
	// normalized ROI sample set ready for shapelearn.Recorder.Record,
	// set only if the pair landed in the configured recording branch
	// (spec.md §4.8 step 10). Nil otherwise.
	ShapeRecordA, ShapeRecordB *ShapeObservation
}

// ShapeObservation is one channel's time axis and normalized voltage,
// already shifted by -tOfExtr and clipped to [-200,+200] ns.
type ShapeObservation struct {
	RelT, Y []float64
}

// Process runs the full ten-step sequence of spec.md §4.8 over one
// trace pair and the given immutable settings snapshot. It never
// mutates snap; traces are copied internally when an intrinsic filter
// is enabled, per step 1.
func Process(pairA, pairB trace.Trace, snap settings.Snapshot) Result {
	s := snap.Settings
	var res Result

	// Step 1: copy raw traces only if an intrinsic filter needs to run
	// in place (median/baseline mutate voltages).
	vA := pairA.V
	vB := pairB.V
	if s.ChannelA.Median.Enabled || s.ChannelA.Baseline.Enabled {
		cp := pairA.V
		vA = cp
	}
	if s.ChannelB.Median.Enabled || s.ChannelB.Baseline.Enabled {
		cp := pairB.V
		vB = cp
	}

	// Step 2: median, then baseline.
	if s.ChannelA.Median.Enabled {
		filter.Median(vA[:], s.ChannelA.Median.Window)
	}
	if s.ChannelB.Median.Enabled {
		filter.Median(vB[:], s.ChannelB.Median.Window)
	}
	if s.ChannelA.Baseline.Enabled {
		if _, rejected := filter.Baseline(vA[:], s.ChannelA.Baseline.Params); rejected {
			res.Reject = RejectBaselineA
			return res
		}
	}
	if s.ChannelB.Baseline.Enabled {
		if _, rejected := filter.Baseline(vB[:], s.ChannelB.Baseline.Params); rejected {
			res.Reject = RejectBaselineB
			return res
		}
	}

	// Step 3: CFD extraction, both channels. Reject the whole pair on
	// any extractor failure (spec.md §9 open question: refine-then-bin,
	// which means a CFD failure on either channel rejects before any
	// PHS bin is ever appended).
	cfdA := cfd.Extract(pairA.T[:], vA[:], cfd.Params{
		StartCell: s.ChannelA.ROI.StartCell, StopCell: s.ChannelA.ROI.StopCell,
		CFDFraction: s.ChannelA.CFDFraction, Positive: s.ChannelA.Positive,
		IntraRenderPoints: s.IntraRenderPoints, Kind: s.InterpKind,
	})
	if cfdA.Reject != cfd.RejectNone {
		res.Reject = RejectCFDA
		return res
	}
	cfdB := cfd.Extract(pairB.T[:], vB[:], cfd.Params{
		StartCell: s.ChannelB.ROI.StartCell, StopCell: s.ChannelB.ROI.StopCell,
		CFDFraction: s.ChannelB.CFDFraction, Positive: s.ChannelB.Positive,
		IntraRenderPoints: s.IntraRenderPoints, Kind: s.InterpKind,
	})
	if cfdB.Reject != cfd.RejectNone {
		res.Reject = RejectCFDB
		return res
	}

	// Steps 4-5: the extrema are already refined by cfd.Extract; bin PHS
	// from the refined yExtr.
	res.PHSBinA = spectrum.PHSBin(cfdA.YExtr, s.PHSBins)
	res.PHSBinB = spectrum.PHSBin(cfdB.YExtr, s.PHSBins)

	// Step 6: area. Rejects the whole pair if either channel's area
	// falls outside its acceptance band (matches the original's
	// "!y_AInside || !y_BInside -> continue").
	if s.Area.Enabled {
		areaA := feature.Area(pairA.T[:], vA[:], s.ChannelA.ROI.StartCell, s.ChannelA.ROI.StopCell, s.Area.Norm)
		areaB := feature.Area(pairB.T[:], vB[:], s.ChannelB.ROI.StartCell, s.ChannelB.ROI.StopCell, s.Area.Norm)
		areaBinnedA := areaA * s.Area.Binning
		areaBinnedB := areaB * s.Area.Binning
		if s.Area.PlotEnabled {
			res.AreaPoints = append(res.AreaPoints,
				AreaPoint{Channel: 0, PHSBin: res.PHSBinA, Area: areaBinnedA},
				AreaPoint{Channel: 1, PHSBin: res.PHSBinB, Area: areaBinnedB},
			)
		}
		if s.Area.FilterEnabled {
			areaAcceptA := s.Area.Band.Accept(res.PHSBinA, areaBinnedA)
			areaAcceptB := s.Area.Band.Accept(res.PHSBinB, areaBinnedB)
			if !areaAcceptA || !areaAcceptB {
				res.Reject = RejectAreaFilter
				return res
			}
		}
	}

	// Step 7: rise-time filter. Likewise a whole-pair rejection (matches
	// the original's "!bAcceptedA || !bAcceptedB -> continue").
	if s.RiseTime.Enabled {
		res.RiseTimeBinA = s.RiseTime.Params.Bin(cfdA.T10, cfdA.T90)
		res.RiseTimeBinB = s.RiseTime.Params.Bin(cfdB.T10, cfdB.T90)
		res.RiseTimeAcceptA = s.RiseTime.Params.Accept(res.RiseTimeBinA)
		res.RiseTimeAcceptB = s.RiseTime.Params.Accept(res.RiseTimeBinB)
		if !res.RiseTimeAcceptA || !res.RiseTimeAcceptB {
			res.Reject = RejectRiseTime
			return res
		}
	} else {
		res.RiseTimeAcceptA, res.RiseTimeAcceptB = true, true
	}

	// Step 8: pulse-shape filter. Every pair reaching this point has
	// already cleared the area and rise-time filters on both channels.
	// Each channel is judged against its own learned envelope (spec.md
	// line 191: "per channel"); a channel with no envelope yet learned
	// passes unfiltered.
	if s.Shape.Enabled {
		if snap.EnvelopeA != nil {
			meanA, stddevA := snap.EnvelopeA.Rebuild()
			samplesA := roiSamples(pairA.T[:], vA[:], s.ChannelA.ROI, cfdA.TOfExtr)
			if !feature.ApplyShapeFilter(samplesA, cfdA.YExtr, meanA, stddevA, s.Shape.Params) {
				res.Reject = RejectShapeFilter
				return res
			}
		}
		if snap.EnvelopeB != nil {
			meanB, stddevB := snap.EnvelopeB.Rebuild()
			samplesB := roiSamples(pairB.T[:], vB[:], s.ChannelB.ROI, cfdB.TOfExtr)
			if !feature.ApplyShapeFilter(samplesB, cfdB.YExtr, meanB, stddevB, s.Shape.Params) {
				res.Reject = RejectShapeFilter
				return res
			}
		}
	}

	// Step 9: classify branch and prepare spectrum update (caller owns
	// the shared Accumulator and performs the actual increment during
	// the serial merge step).
	res.TCFDA, res.TCFDB = cfdA.TCFD, cfdB.TCFD
	res.Branch, _ = spectrum.Classify(res.PHSBinA, res.PHSBinB, s.StartWindow, s.StopWindow, s.ForcePrompt, cfdA.TCFD, cfdB.TCFD)

	// Step 10: pulse-shape learning samples, per channel, only if that
	// channel's learner is active and the pair landed in its configured
	// recording branch (spec.md line 191: independent per-channel
	// recording).
	if s.ShapeLearnA.Enabled && res.Branch == s.ShapeLearnA.Branch {
		relA, yA := relativeSamples(pairA.T[:], vA[:], s.ChannelA.ROI, cfdA.TOfExtr, cfdA.YExtr)
		res.ShapeRecordA = &ShapeObservation{RelT: relA, Y: yA}
	}
	if s.ShapeLearnB.Enabled && res.Branch == s.ShapeLearnB.Branch {
		relB, yB := relativeSamples(pairB.T[:], vB[:], s.ChannelB.ROI, cfdB.TOfExtr, cfdB.YExtr)
		res.ShapeRecordB = &ShapeObservation{RelT: relB, Y: yB}
	}

	return res
}

// roiSamples builds the ShapeSample slice for feature.ApplyShapeFilter,
// time-shifted relative to the channel's refined extremum.
func roiSamples(t, v []float64, roi settings.ROI, tOfExtr float64) []feature.ShapeSample {
	out := make([]feature.ShapeSample, 0, roi.StopCell-roi.StartCell)
	for c := roi.StartCell; c < roi.StopCell; c++ {
		out = append(out, feature.ShapeSample{RelT: t[c] - tOfExtr, Y: v[c]})
	}
	return out
}

// relativeSamples returns the translated (spec.md §4.6 step 1: shift by
// -tOfExtr, clip to [-200,+200] ns) and yExtr-normalized (step 2) sample
// arrays for the shape-filter learner.
func relativeSamples(t, v []float64, roi settings.ROI, tOfExtr, yExtr float64) (relT, y []float64) {
	if yExtr == 0 {
		return nil, nil
	}
	for c := roi.StartCell; c < roi.StopCell; c++ {
		rel := t[c] - tOfExtr
		if rel < -200 || rel > 200 {
			continue
		}
		relT = append(relT, rel)
		y = append(y, v[c]/yExtr)
	}
	return relT, y
}

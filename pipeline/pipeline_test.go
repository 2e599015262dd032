package pipeline

import (
	"math"
	"testing"

	"github.com/palsflow/pals/feature"
	"github.com/palsflow/pals/filter"
	"github.com/palsflow/pals/interp"
	"github.com/palsflow/pals/settings"
	"github.com/palsflow/pals/spectrum"
	"github.com/palsflow/pals/trace"
)

const cellWidthNS = 0.1953 // nominal DRS4 sweep, matches S1-S6 parameters

func deltaTrace(peakCell int, amplitude float64) trace.Trace {
	var tr trace.Trace
	sigma := 3.0
	for i := 0; i < trace.NumCells; i++ {
		tr.T[i] = float64(i) * cellWidthNS
		dx := float64(i - peakCell)
		tr.V[i] = amplitude * math.Exp(-(dx*dx)/(2*sigma*sigma))
	}
	return tr
}

func baseChannelSettings(idx int, positive bool) settings.ChannelSettings {
	return settings.ChannelSettings{
		ChannelIndex: idx,
		CFDFraction:  0.25,
		Positive:     positive,
		ROI:          settings.ROI{StartCell: 0, StopCell: trace.NumCells},
	}
}

func baseSettings() settings.Settings {
	start := spectrum.Window{Min: 0, Max: 2000}
	stop := spectrum.Window{Min: 0, Max: 2000}
	geomMerged := spectrum.Geometry{N: 4096, OffsetNS: 5, ScalerNS: 20, AllowNeg: false}
	return settings.Settings{
		ChannelA:          baseChannelSettings(0, false),
		ChannelB:          baseChannelSettings(1, false),
		InterpKind:        interp.CubicNatural,
		IntraRenderPoints: 10,
		PHSBins:           2000,
		StartWindow:       start,
		StopWindow:        stop,
		AB:                settings.SpectrumSettings{Geometry: geomMerged},
		BA:                settings.SpectrumSettings{Geometry: geomMerged},
		Prompt:            settings.SpectrumSettings{Geometry: geomMerged},
		Merged:            settings.SpectrumSettings{Geometry: geomMerged},
	}
}

// TestS1TwoDeltaPulsesClassifyAB mirrors spec scenario S1: a spike at
// cell 300 of channel A and cell 340 of channel B should classify as AB
// (A leads) with no rejection.
func TestS1TwoDeltaPulsesClassifyAB(t *testing.T) {
	a := deltaTrace(300, -300)
	b := deltaTrace(340, -300)
	snap := settings.NewSnapshot(baseSettings(), nil, nil)

	res := Process(a, b, snap)
	if res.Reject != Accepted {
		t.Fatalf("unexpected reject: %v", res.Reject)
	}
	if res.Branch != spectrum.BranchAB {
		t.Fatalf("branch = %v, want AB", res.Branch)
	}
}

// TestS2PolarityMismatchRejects mirrors spec scenario S2: declaring the
// wrong polarity on a negative pulse must reject via the CFD polarity
// check, yielding zero spectrum increments.
func TestS2PolarityMismatchRejects(t *testing.T) {
	a := deltaTrace(300, -300)
	b := deltaTrace(340, -300)
	s := baseSettings()
	s.ChannelA.Positive = true
	s.ChannelB.Positive = true
	snap := settings.NewSnapshot(s, nil, nil)

	res := Process(a, b, snap)
	if res.Reject == Accepted {
		t.Fatal("expected reject for polarity mismatch")
	}
}

// TestS3BaselineExceedRejects mirrors spec scenario S3: a +30 mV DC
// offset against a 2% limit and reference 0 must reject the pair before
// any CFD/spectrum work runs.
func TestS3BaselineExceedRejects(t *testing.T) {
	a := deltaTrace(300, -300)
	for i := range a.V {
		a.V[i] += 30
	}
	b := deltaTrace(340, -300)
	s := baseSettings()
	s.ChannelA.Baseline = settings.BaselineConfig{
		Enabled: true,
		Params: filter.BaselineParams{
			StartCell: 0, RegionWidth: 50,
			ReferenceValueMV: 0, LimitPercentFS: 2, RejectOnLimit: true,
		},
	}
	snap := settings.NewSnapshot(s, nil, nil)

	res := Process(a, b, snap)
	if res.Reject != RejectBaselineA {
		t.Fatalf("reject = %v, want RejectBaselineA", res.Reject)
	}
}

// TestS5AreaFilterBandRejects mirrors spec scenario S5: a pulse whose
// area falls outside the band (here below the lower line, since the
// normalized area is far smaller than phs bin - 20) rejects the whole pair (spec.md
// §4.8 step 6; matches the original's "!y_AInside || !y_BInside ->
// continue", which drops the pair from every downstream spectrum).
func TestS5AreaFilterBandRejects(t *testing.T) {
	a := deltaTrace(300, -900) // phs bin ~3599, normalized area ~0.26: below the lower line
	b := deltaTrace(340, -300)
	s := baseSettings()
	s.Area = settings.AreaConfig{
		Enabled:       true,
		FilterEnabled: true,
		Norm:          1.0,
		Binning:       1.0,
		Band:          feature.AreaBand{SlopeUpper: 1, InterceptUpper: 20, SlopeLower: 1, InterceptLower: -20},
	}
	snap := settings.NewSnapshot(s, nil, nil)

	res := Process(a, b, snap)
	if res.Reject != RejectAreaFilter {
		t.Fatalf("reject = %v, want RejectAreaFilter", res.Reject)
	}
}

// TestAreaFilterBandAcceptsWithinRange checks the accept path still
// passes a pair whose area lands inside both channels' bands.
func TestAreaFilterBandAcceptsWithinRange(t *testing.T) {
	a := deltaTrace(300, -300)
	b := deltaTrace(340, -300)
	s := baseSettings()
	s.Area = settings.AreaConfig{
		Enabled:       true,
		FilterEnabled: true,
		Norm:          1.0,
		Binning:       1.0,
		Band:          feature.AreaBand{SlopeUpper: 1, InterceptUpper: 1e9, SlopeLower: 1, InterceptLower: -1e9},
	}
	snap := settings.NewSnapshot(s, nil, nil)

	res := Process(a, b, snap)
	if res.Reject != Accepted {
		t.Fatalf("unexpected reject: %v", res.Reject)
	}
}

// TestProcessNeverMutatesSnapshotSettings checks the "settings snapshot
// captured by a chunk is never mutated for the lifetime of that chunk"
// invariant by running the same snapshot across two pairs and comparing
// the settings value before/after.
func TestProcessNeverMutatesSnapshotSettings(t *testing.T) {
	s := baseSettings()
	snap := settings.NewSnapshot(s, nil, nil)
	before := snap.Settings

	a := deltaTrace(300, -300)
	b := deltaTrace(340, -300)
	Process(a, b, snap)
	Process(a, b, snap)

	if before != snap.Settings {
		t.Fatal("Process mutated the settings snapshot")
	}
}

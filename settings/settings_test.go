package settings

import (
	"testing"

	"github.com/palsflow/pals/shapelearn"
)

func baseSettings() Settings {
	return Settings{
		ChannelA:          ChannelSettings{CFDFraction: 0.25, Positive: false, ROI: ROI{StartCell: 0, StopCell: 1024}},
		ChannelB:          ChannelSettings{CFDFraction: 0.25, Positive: false, ROI: ROI{StartCell: 0, StopCell: 1024}},
		IntraRenderPoints: 10,
		PHSBins:           2000,
	}
}

func TestSettingsIsComparable(t *testing.T) {
	a := baseSettings()
	b := baseSettings()
	if a != b {
		t.Fatal("two identically constructed Settings values should compare equal with ==")
	}
	b.ChannelA.CFDFraction = 0.3
	if a == b {
		t.Fatal("mutating a copy must not affect the original")
	}
}

func TestNewSnapshotWithNilEnvelope(t *testing.T) {
	snap := NewSnapshot(baseSettings(), nil, nil)
	if snap.EnvelopeA != nil || snap.EnvelopeB != nil {
		t.Fatal("expected nil EnvelopeA/EnvelopeB when none is supplied")
	}
	if snap.Settings != baseSettings() {
		t.Fatal("snapshot should carry the settings value unchanged")
	}
}

func TestFlattenEnvelopeRoundTrip(t *testing.T) {
	grid := shapelearn.Grid()
	meanY := make([]float64, len(grid))
	stdY := make([]float64, len(grid))
	for i := range grid {
		meanY[i] = 1.0
		stdY[i] = 0.1
	}
	env := shapelearn.BuildEnvelope(grid, meanY, stdY)

	flat := FlattenEnvelope(env)
	if flat.GridT[0] != float32(shapelearn.GridLeftNS) {
		t.Fatalf("GridT[0] = %v, want %v", flat.GridT[0], shapelearn.GridLeftNS)
	}
	if flat.MeanY[0] != 1.0 {
		t.Fatalf("MeanY[0] = %v, want 1.0", flat.MeanY[0])
	}

	snap := NewSnapshot(baseSettings(), &env, nil)
	if snap.EnvelopeA == nil {
		t.Fatal("expected a non-nil EnvelopeA snapshot")
	}
	if snap.EnvelopeB != nil {
		t.Fatal("expected a nil EnvelopeB snapshot when none is supplied")
	}

	mean, stddev := snap.EnvelopeA.Rebuild()
	got := mean.Eval(0)
	if got < 0.99 || got > 1.01 {
		t.Fatalf("rebuilt mean at t=0 = %v, want ~1.0", got)
	}
	if sd := stddev.Eval(0); sd < 0.09 || sd > 0.11 {
		t.Fatalf("rebuilt stddev at t=0 = %v, want ~0.1", sd)
	}
}

package calibrate

import (
	"math"
	"testing"
	"time"

	"github.com/palsflow/pals/interp"
	"github.com/palsflow/pals/settings"
	"github.com/palsflow/pals/spectrum"
	"github.com/palsflow/pals/trace"
)

func deltaTrace(peakCell int, amplitude float64) trace.Trace {
	var tr trace.Trace
	sigma := 3.0
	for i := 0; i < trace.NumCells; i++ {
		tr.T[i] = float64(i) * 0.1953
		dx := float64(i - peakCell)
		tr.V[i] = amplitude * math.Exp(-(dx*dx)/(2*sigma*sigma))
	}
	return tr
}

func baseSettings() settings.Settings {
	return settings.Settings{
		ChannelA:          settings.ChannelSettings{CFDFraction: 0.25, Positive: false, ROI: settings.ROI{StartCell: 0, StopCell: trace.NumCells}},
		ChannelB:          settings.ChannelSettings{CFDFraction: 0.25, Positive: false, ROI: settings.ROI{StartCell: 0, StopCell: trace.NumCells}},
		InterpKind:        interp.CubicNatural,
		IntraRenderPoints: 10,
		PHSBins:           2000,
		StartWindow:       spectrum.Window{Min: 0, Max: 2000},
		StopWindow:        spectrum.Window{Min: 0, Max: 2000},
	}
}

func TestRunFindsBestCandidateWithinBudget(t *testing.T) {
	corpus := make([]trace.Pair, 0, 40)
	for i := 0; i < 40; i++ {
		corpus = append(corpus, trace.Pair{
			A: deltaTrace(300, -300),
			B: deltaTrace(300+40+i%3, -300),
		})
	}

	cfg := Config{
		Base:         baseSettings(),
		Corpus:       corpus,
		Workers:      2,
		MaxEvals:     200,
		MayflyPop:    8,
		MayflyRounds: 1,
		TimeBudget:   5 * time.Second,
	}
	res, err := Run(cfg)
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if math.IsInf(res.Sharpness, 1) {
		t.Fatal("expected a usable candidate to be found")
	}
	if res.Evals == 0 {
		t.Fatal("expected at least one evaluation")
	}
}

package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/palsflow/pals/calibrate"
	"github.com/palsflow/pals/internal/demogen"
	"github.com/palsflow/pals/interp"
	"github.com/palsflow/pals/settings"
	"github.com/palsflow/pals/spectrum"
	"github.com/palsflow/pals/trace"
)

func main() {
	corpusSize := flag.Int("corpus-size", 2000, "Number of synthetic pulse pairs to calibrate against")
	workers := flag.Int("workers", 0, "Parallel calibration workers (0 = GOMAXPROCS)")
	maxEvals := flag.Int("max-evals", 4000, "Maximum objective evaluations")
	mayflyPop := flag.Int("mayfly-pop", 20, "Mayfly population size")
	mayflyRounds := flag.Int("mayfly-rounds", 4, "Mayfly rounds per worker")
	timeBudget := flag.Float64("time-budget", 30.0, "Calibration time budget in seconds")
	seed := flag.Int64("seed", 1, "Random seed for the synthetic corpus")
	flag.Parse()

	genParams := demogen.DefaultParams()
	genParams.Seed = *seed
	gen := demogen.New(genParams, *corpusSize)
	corpus := make([]trace.Pair, 0, *corpusSize)
	for {
		a, b, ok := gen.ReceivePair()
		if !ok {
			break
		}
		corpus = append(corpus, trace.Pair{A: a, B: b})
	}

	base := settings.Settings{
		ChannelA:          settings.ChannelSettings{CFDFraction: 0.25, Positive: false, ROI: settings.ROI{StartCell: 0, StopCell: trace.NumCells}},
		ChannelB:          settings.ChannelSettings{CFDFraction: 0.25, Positive: false, ROI: settings.ROI{StartCell: 0, StopCell: trace.NumCells}},
		InterpKind:        interp.CubicNatural,
		IntraRenderPoints: 10,
		PHSBins:           2000,
		StartWindow:       spectrum.Window{Min: 0, Max: 2000},
		StopWindow:        spectrum.Window{Min: 0, Max: 2000},
		Area: settings.AreaConfig{
			Enabled:       true,
			FilterEnabled: true,
			Norm:          1.0,
			Binning:       1.0,
		},
	}

	res, err := calibrate.Run(calibrate.Config{
		Base:         base,
		Corpus:       corpus,
		Workers:      *workers,
		MaxEvals:     *maxEvals,
		MayflyPop:    *mayflyPop,
		MayflyRounds: *mayflyRounds,
		TimeBudget:   time.Duration(*timeBudget * float64(time.Second)),
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "calibration failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Best candidate: bandWidth=%.3f baselineShift=%.3f mV, sharpness=%.4f, evals=%d, elapsed=%s\n",
		res.Best.BandWidth, res.Best.BaselineShift, res.Sharpness, res.Evals, res.Elapsed)
}

package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/palsflow/pals/engine"
	"github.com/palsflow/pals/internal/demogen"
	"github.com/palsflow/pals/interp"
	"github.com/palsflow/pals/settings"
	"github.com/palsflow/pals/spectrum"
	"github.com/palsflow/pals/trace"
)

func main() {
	pairs := flag.Int("pairs", 100000, "Number of synthetic pulse pairs to process (0 = unbounded, run until the process is stopped)")
	burst := flag.Bool("burst", true, "Use the multi-threaded chunked scheduler instead of single-threaded")
	cfdFraction := flag.Float64("cfd", 0.25, "Constant-fraction level")
	interpKind := flag.String("interp", "cubic", "Interpolation kind: linear|cubic|akima|catmullrom|monotonic|barycentric")
	scalerNS := flag.Float64("scaler-ns", 20, "Merged-spectrum scaler, ns")
	offsetNS := flag.Float64("offset-ns", 5, "Merged-spectrum offset, ns")
	bins := flag.Int("bins", 4096, "Merged-spectrum bin count")
	seed := flag.Int64("seed", 1, "Synthetic generator random seed")
	flag.Parse()

	kind, err := parseKind(*interpKind)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}

	geom := spectrum.Geometry{N: *bins, OffsetNS: *offsetNS, ScalerNS: *scalerNS, AllowNeg: false}
	s := settings.Settings{
		ChannelA: settings.ChannelSettings{
			CFDFraction: *cfdFraction, Positive: false,
			ROI: settings.ROI{StartCell: 0, StopCell: trace.NumCells},
		},
		ChannelB: settings.ChannelSettings{
			CFDFraction: *cfdFraction, Positive: false,
			ROI: settings.ROI{StartCell: 0, StopCell: trace.NumCells},
		},
		InterpKind:        kind,
		IntraRenderPoints: 10,
		PHSBins:           2000,
		StartWindow:       spectrum.Window{Min: 0, Max: 2000},
		StopWindow:        spectrum.Window{Min: 0, Max: 2000},
		AB:                settings.SpectrumSettings{Geometry: geom},
		BA:                settings.SpectrumSettings{Geometry: geom},
		Prompt:            settings.SpectrumSettings{Geometry: geom},
		Merged:            settings.SpectrumSettings{Geometry: geom},
		BurstMode:         *burst,
	}

	e := engine.New(s, s.PHSBins)

	genParams := demogen.DefaultParams()
	genParams.Seed = *seed
	gen := demogen.New(genParams, *pairs)

	start := time.Now()
	e.Run(gen)
	elapsed := time.Since(start)

	ab, ba, prompt, merged, phsA, phsB := e.Spectra()
	fmt.Printf("Processed in %s (%.1f kHz)\n", elapsed, float64(*pairs)/elapsed.Seconds()/1000.0)
	fmt.Printf("AB=%d BA=%d Prompt=%d Merged=%d PHSA=%d PHSB=%d\n",
		sumCounts(ab), sumCounts(ba), sumCounts(prompt), sumCounts(merged), sumCounts(phsA), sumCounts(phsB))
}

func sumCounts(h []int64) int64 {
	var total int64
	for _, c := range h {
		total += c
	}
	return total
}

func parseKind(s string) (interp.Kind, error) {
	switch s {
	case "linear":
		return interp.Linear, nil
	case "cubic":
		return interp.CubicNatural, nil
	case "akima":
		return interp.Akima, nil
	case "catmullrom":
		return interp.CatmullRom, nil
	case "monotonic":
		return interp.MonotonicHermite, nil
	case "barycentric":
		return interp.Barycentric, nil
	default:
		return 0, fmt.Errorf("unknown interpolation kind %q", s)
	}
}

// Package demogen implements a synthetic trace.PulseGenerator for
// cmd/pals-demo, standing in for a real digitizer. It builds a canonical
// unipolar pulse shape at a coarse master sample rate, then resamples it
// to the 1024-cell digitizer grid for each pair. The resampled shape and
// its peak cell are the same for every pair; only the added Gaussian
// noise differs from pair to pair.
//
// Grounded on piano.Piano's decay-envelope use of
// github.com/cwbudde/algo-approx's FastExp (piano/piano.go,
// piano/utils.go) for the pulse's exponential tail, and on
// github.com/cwbudde/algo-dsp/dsp/resample's Resample, as used by the
// pitch-shifter in the retrieved algo-dsp example, to re-grid the
// canonical shape onto the digitizer's cell count.
package demogen

import (
	"math"
	"math/rand"

	"github.com/cwbudde/algo-approx"
	"github.com/cwbudde/algo-dsp/dsp/resample"

	"github.com/palsflow/pals/trace"
)

// Params configures the synthetic pulse shape.
type Params struct {
	CellWidthNS   float64 // nominal digitizer cell pitch
	PeakCellA     int
	PeakCellB     int
	AmplitudeMV   float64 // negative for a negative-polarity pulse
	RiseSamples   int     // canonical-shape samples for the rising edge
	DecayConstant float64 // FastExp argument scale for the falling edge
	NoiseStdDevMV float64
	Seed          int64
}

// DefaultParams mirrors spec.md's S1 scenario parameters.
func DefaultParams() Params {
	return Params{
		CellWidthNS:   0.1953,
		PeakCellA:     300,
		PeakCellB:     340,
		AmplitudeMV:   -300,
		RiseSamples:   64,
		DecayConstant: 0.08,
		NoiseStdDevMV: 0.5,
		Seed:          1,
	}
}

// Generator produces an unbounded (or n-limited) stream of synthetic
// pulse pairs.
type Generator struct {
	p        Params
	rng      *rand.Rand
	shape    []float64 // canonical master-rate pulse, peak at index shapePeak
	shapePeak int
	remaining int // -1 = unbounded
}

// New builds a Generator. count <= 0 means unbounded.
func New(p Params, count int) *Generator {
	g := &Generator{
		p:         p,
		rng:       rand.New(rand.NewSource(p.Seed)),
		remaining: count,
	}
	if g.remaining == 0 {
		g.remaining = -1
	}
	g.shape, g.shapePeak = buildCanonicalShape(p)
	return g
}

// buildCanonicalShape renders a master-rate unipolar pulse: a raised-
// cosine rise to the peak, then an exponential decay evaluated with
// algo-approx's fast exponential (the same primitive the teacher's piano
// voice envelope uses for its amplitude decay).
func buildCanonicalShape(p Params) (shape []float64, peakIdx int) {
	rise := p.RiseSamples
	if rise < 4 {
		rise = 4
	}
	decayLen := rise * 6
	n := rise + decayLen
	shape = make([]float64, n)

	for i := 0; i < rise; i++ {
		frac := float64(i) / float64(rise)
		shape[i] = 0.5 * (1 - math.Cos(math.Pi*frac))
	}
	for i := 0; i < decayLen; i++ {
		arg := -p.DecayConstant * float64(i)
		shape[rise+i] = float64(approx.FastExp(float32(arg)))
	}
	return shape, rise
}

// onGrid resamples the canonical shape onto a 1024-cell trace centered
// at peakCell, scaled to amplitudeMV, via algo-dsp's polyphase resampler.
func onGrid(shape []float64, shapePeak int, peakCell int, amplitudeMV float64) ([trace.NumCells]float64, error) {
	var out [trace.NumCells]float64

	// Treat the canonical shape as sampled at a rate proportional to its
	// own length and resample it to a rate that lands its peak exactly
	// at peakCell on the 1024-cell grid.
	inRate := len(shape)
	outRate := trace.NumCells
	resampled, err := resample.Resample(shape, inRate, outRate, resample.WithQuality(resample.QualityBalanced))
	if err != nil {
		return out, err
	}

	// Locate the resampled peak (nearest index to shapePeak scaled by
	// the rate ratio) and shift it onto peakCell.
	scaledPeak := int(float64(shapePeak) * float64(outRate) / float64(inRate))
	shift := peakCell - scaledPeak

	for i := 0; i < trace.NumCells; i++ {
		src := i - shift
		if src < 0 || src >= len(resampled) {
			continue
		}
		out[i] = resampled[src] * amplitudeMV
	}
	return out, nil
}

// ReceivePair implements trace.PulseGenerator.
func (g *Generator) ReceivePair() (a, b trace.Trace, ok bool) {
	if g.remaining == 0 {
		return trace.Trace{}, trace.Trace{}, false
	}
	if g.remaining > 0 {
		g.remaining--
	}

	va, err := onGrid(g.shape, g.shapePeak, g.p.PeakCellA, g.p.AmplitudeMV)
	if err != nil {
		return trace.Trace{}, trace.Trace{}, false
	}
	vb, err := onGrid(g.shape, g.shapePeak, g.p.PeakCellB, g.p.AmplitudeMV)
	if err != nil {
		return trace.Trace{}, trace.Trace{}, false
	}

	for i := 0; i < trace.NumCells; i++ {
		a.T[i] = float64(i) * g.p.CellWidthNS
		b.T[i] = float64(i) * g.p.CellWidthNS
		a.V[i] = va[i] + g.noise()
		b.V[i] = vb[i] + g.noise()
	}
	return a, b, true
}

func (g *Generator) noise() float64 {
	if g.p.NoiseStdDevMV == 0 {
		return 0
	}
	return g.rng.NormFloat64() * g.p.NoiseStdDevMV
}

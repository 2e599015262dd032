// Package spectrum implements the spectrum accumulator (C7, spec.md
// §4.7): branch classification of a CFD timestamp pair into AB/BA/prompt
// histograms plus a merged histogram, and the PHS histograms per
// channel. Grounded on the binMerged/m_phsA[cellPHSA]++ formulas and the
// start/stop membership windows in original_source/drs4worker.cpp.
package spectrum

// Histogram is an ordered, fixed-size sequence of non-negative counts
// (spec.md §3 "Histogram").
type Histogram struct {
	Counts []int64
}

// NewHistogram allocates a histogram with n bins.
func NewHistogram(n int) *Histogram {
	return &Histogram{Counts: make([]int64, n)}
}

// Add increments bin if in range, silently dropping out-of-range
// indices (spec.md §7 IndexOutOfRange); returns whether it incremented.
func (h *Histogram) Add(bin int) bool {
	if bin < 0 || bin >= len(h.Counts) {
		return false
	}
	h.Counts[bin]++
	return true
}

// Reset zeroes every bin (independent of any other counter reset;
// spec.md §9 open question: reset semantics at run-restart vs.
// spectrum-clear are treated as independent operations).
func (h *Histogram) Reset() {
	for i := range h.Counts {
		h.Counts[i] = 0
	}
}

// Merge folds another histogram of the same size into this one; bins
// beyond this histogram's length are ignored.
func (h *Histogram) Merge(other *Histogram) {
	for i, c := range other.Counts {
		if i < len(h.Counts) {
			h.Counts[i] += c
		}
	}
}

// Geometry configures one spectrum's offset/scaler/bin-count mapping
// (spec.md §3 "spectrum geometries").
type Geometry struct {
	N          int
	OffsetNS   float64
	ScalerNS   float64
	AllowNeg   bool
}

// Bin maps a time difference (ns) to a histogram bin index using the
// spec's bin formula: round(((delta+offset)/scaler)*N) - 1.
func (g Geometry) Bin(delta float64) (int, bool) {
	if !g.AllowNeg && delta < 0 {
		return 0, false
	}
	if g.ScalerNS == 0 || g.N <= 0 {
		return 0, false
	}
	frac := (delta + g.OffsetNS) / g.ScalerNS
	bin := roundHalfAwayFromZero(frac*float64(g.N)) - 1
	return bin, true
}

func roundHalfAwayFromZero(v float64) int {
	if v >= 0 {
		return int(v + 0.5)
	}
	return -int(-v + 0.5)
}

// PHSBin maps a channel's extracted pulse height into a PHS histogram
// bin: int(|yExtr|/500 * n) - 1 (matching the literal `yExtr*0.002`
// fractional-full-scale scaling in original_source/drs4worker.cpp,
// where 0.002 == 1/500 mV full scale).
func PHSBin(yExtr float64, n int) int {
	frac := abs(yExtr) / 500.0
	return int(frac*float64(n)) - 1
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

// Window is a closed phs-bin membership interval (spec.md §4.7
// "start/stop membership").
type Window struct {
	Min, Max int
}

// Contains reports whether bin falls within the window, inclusive.
func (w Window) Contains(bin int) bool {
	return bin >= w.Min && bin <= w.Max
}

// Branch identifies which spectrum (if any) a classified pair feeds.
type Branch int

const (
	BranchNone Branch = iota
	BranchAB
	BranchBA
	BranchPrompt
)

// Classify implements the start/stop branch-selection rules of spec.md
// §4.7: given each channel's PHS bin and the configured start/stop
// windows, decide which branch (if any) this pair belongs to and the
// signed delta feeding its histogram(s).
func Classify(phsA, phsB int, start, stop Window, forcePrompt bool, tA, tB float64) (branch Branch, delta float64) {
	aStart, bStop := start.Contains(phsA), stop.Contains(phsB)
	bStart, aStop := start.Contains(phsB), stop.Contains(phsA)

	switch {
	case aStart && bStop && !forcePrompt:
		return BranchAB, tB - tA
	case bStart && aStop && !forcePrompt:
		return BranchBA, tA - tB
	case aStop && bStop:
		return BranchPrompt, tA - tB
	default:
		return BranchNone, 0
	}
}

// Accumulator holds every histogram the pipeline updates per pulse pair
// (AB, BA, prompt, merged, and per-channel PHS).
type Accumulator struct {
	PHSA, PHSB     *Histogram
	AB, BA, Prompt *Histogram
	Merged         *Histogram

	GeomAB, GeomBA, GeomPrompt, GeomMerged Geometry

	ATSNS float64 // arrival-time-spread correction applied to the merged spectrum
}

// NewAccumulator allocates all histograms from the given geometries and
// PHS bin counts.
func NewAccumulator(phsBins int, geomAB, geomBA, geomPrompt, geomMerged Geometry, atsNS float64) *Accumulator {
	return &Accumulator{
		PHSA:       NewHistogram(phsBins),
		PHSB:       NewHistogram(phsBins),
		AB:         NewHistogram(geomAB.N),
		BA:         NewHistogram(geomBA.N),
		Prompt:     NewHistogram(geomPrompt.N),
		Merged:     NewHistogram(geomMerged.N),
		GeomAB:     geomAB,
		GeomBA:     geomBA,
		GeomPrompt: geomPrompt,
		GeomMerged: geomMerged,
		ATSNS:      atsNS,
	}
}

// Update classifies one pulse pair and increments the corresponding
// histogram(s), including the shared merged spectrum with its branch-
// dependent ATS sign (spec.md §4.7: "+ATS" for AB, "-ATS" for BA).
func (a *Accumulator) Update(phsA, phsB int, start, stop Window, forcePrompt bool, tA, tB float64) Branch {
	branch, delta := Classify(phsA, phsB, start, stop, forcePrompt, tA, tB)
	switch branch {
	case BranchAB:
		if bin, ok := a.GeomAB.Bin(delta); ok {
			a.AB.Add(bin)
		}
		if bin, ok := a.GeomMerged.Bin(delta + a.ATSNS); ok {
			a.Merged.Add(bin)
		}
	case BranchBA:
		if bin, ok := a.GeomBA.Bin(delta); ok {
			a.BA.Add(bin)
		}
		if bin, ok := a.GeomMerged.Bin(delta - a.ATSNS); ok {
			a.Merged.Add(bin)
		}
	case BranchPrompt:
		if bin, ok := a.GeomPrompt.Bin(delta); ok {
			a.Prompt.Add(bin)
		}
	}
	return branch
}

// Merge folds another accumulator's counters into this one (all
// geometries must match). The scheduler's merge step does not use it;
// it updates one accumulator per result through Update.
func (a *Accumulator) Merge(other *Accumulator) {
	a.PHSA.Merge(other.PHSA)
	a.PHSB.Merge(other.PHSB)
	a.AB.Merge(other.AB)
	a.BA.Merge(other.BA)
	a.Prompt.Merge(other.Prompt)
	a.Merged.Merge(other.Merged)
}

// Package settings implements the immutable settings view (C10,
// spec.md §3, §4.10): a value-typed configuration struct and a flat,
// cache-friendly per-chunk Snapshot that a worker copies once and never
// shares with another goroutine. Grounded on
// DRS4ConcurrentCopyInputData's flat-array fields in
// original_source/drs4worker.h, and on preset/json.go's pointer-field
// tri-state JSON config in the teacher repo.
package settings

import (
	"github.com/palsflow/pals/feature"
	"github.com/palsflow/pals/filter"
	"github.com/palsflow/pals/interp"
	"github.com/palsflow/pals/shapelearn"
	"github.com/palsflow/pals/spectrum"
)

// ROI is the channel's region of interest, in digitizer cells.
type ROI struct {
	StartCell, StopCell int
}

// MedianConfig toggles and configures the median pre-filter (C2).
type MedianConfig struct {
	Enabled bool
	Window  int
}

// BaselineConfig toggles and configures the baseline corrector (C3).
type BaselineConfig struct {
	Enabled bool
	Params  filter.BaselineParams
}

// AreaConfig toggles area computation, area-plot recording, and the
// area-filter acceptance band (C5).
type AreaConfig struct {
	Enabled       bool
	PlotEnabled   bool
	FilterEnabled bool
	Norm          float64

	// Binning multiplies the normalized area before it is compared
	// against Band or plotted (spec.md line 89's "area·binning"; matches
	// the original's distinct `pulseAreaFilterBinningA`, separate from
	// Norm).
	Binning float64

	Band feature.AreaBand
}

// RiseTimeConfig toggles the rise-time filter (C5).
type RiseTimeConfig struct {
	Enabled bool
	Params  feature.RiseTimeParams
}

// ShapeConfig toggles the pulse-shape filter (C5) and names the
// envelope tolerance.
type ShapeConfig struct {
	Enabled bool
	Params  feature.ShapeParams
}

// ChannelSettings bundles the per-channel CFD and filter configuration.
type ChannelSettings struct {
	ChannelIndex int
	CFDFraction  float64
	Positive     bool
	ROI          ROI
	Median       MedianConfig
	Baseline     BaselineConfig
}

// SpectrumSettings configures one output spectrum's geometry.
type SpectrumSettings struct {
	Geometry spectrum.Geometry
}

// ShapeLearnConfig configures one channel's shape-filter learner (C6):
// which branch to record from and how many accepted pulses to pool.
// Each channel records and applies its own envelope independently
// (spec.md line 191: "per channel"; matches the original's separate
// startRecordingForShapeFilterA/B entry points).
type ShapeLearnConfig struct {
	Enabled        bool
	Branch         spectrum.Branch
	PulsesToRecord int
}

// Settings is the full, immutable configuration for one engine run
// (spec.md §3 "Settings snapshot"). It is never mutated after
// construction; a new Settings replaces the old one on change.
type Settings struct {
	ChannelA, ChannelB ChannelSettings

	InterpKind        interp.Kind
	IntraRenderPoints int

	Area     AreaConfig
	RiseTime RiseTimeConfig
	Shape    ShapeConfig

	PHSBins int

	StartWindow, StopWindow spectrum.Window
	ForcePrompt             bool

	AB, BA, Prompt, Merged SpectrumSettings
	ATSNS                  float64
	AllowNegativeLifetime  bool

	BurstMode bool

	ShapeLearnA, ShapeLearnB ShapeLearnConfig
}

// EnvelopeSnapshot is the flat, cache-friendly copy of a learned
// pulse-shape envelope handed to each worker (spec.md §4.10): "flat
// float pairs (x[4381], y[4381]) for both mean and stddev traces, so
// the worker rebuilds a local spline without touching shared state."
type EnvelopeSnapshot struct {
	GridT   [shapelearn.GridPoints]float32
	MeanY   [shapelearn.GridPoints]float32
	StdDevY [shapelearn.GridPoints]float32
}

// FlattenEnvelope copies an Envelope's arrays into a fixed-size
// snapshot for per-chunk distribution.
func FlattenEnvelope(env shapelearn.Envelope) EnvelopeSnapshot {
	var s EnvelopeSnapshot
	for i := 0; i < shapelearn.GridPoints && i < len(env.GridT); i++ {
		s.GridT[i] = float32(env.GridT[i])
		s.MeanY[i] = float32(env.MeanY[i])
		s.StdDevY[i] = float32(env.StdDevY[i])
	}
	return s
}

// Rebuild reconstructs mean/stddev interpolants from a flat snapshot,
// local to the calling worker (no shared state touched).
func (s EnvelopeSnapshot) Rebuild() (mean, stddev interp.Interpolant) {
	gridT := make([]float64, shapelearn.GridPoints)
	meanY := make([]float64, shapelearn.GridPoints)
	stdY := make([]float64, shapelearn.GridPoints)
	for i := 0; i < shapelearn.GridPoints; i++ {
		gridT[i] = float64(s.GridT[i])
		meanY[i] = float64(s.MeanY[i])
		stdY[i] = float64(s.StdDevY[i])
	}
	return interp.Build(interp.CubicNatural, gridT, meanY), interp.Build(interp.CubicNatural, gridT, stdY)
}

// Snapshot is the immutable, per-chunk bundle handed to every worker in
// a chunk: the settings value plus each channel's flattened shape-filter
// envelope (nil if no envelope was supplied for that channel, i.e. none
// has been learned yet — spec.md line 191, "per channel"; whether the
// shape filter is enabled is read from Settings.Shape). Settings and
// EnvelopeSnapshot are both plain value types, so a Snapshot copy shares
// no mutable state with the producer or any other worker (spec.md
// invariant: "The settings snapshot captured by a chunk is never
// mutated for the lifetime of that chunk").
type Snapshot struct {
	Settings            Settings
	EnvelopeA, EnvelopeB *EnvelopeSnapshot // nil if unavailable
}

// NewSnapshot captures the current settings and, if present, flattens
// each channel's learned envelope for distribution to workers.
func NewSnapshot(s Settings, envA, envB *shapelearn.Envelope) Snapshot {
	snap := Snapshot{Settings: s}
	if envA != nil {
		flat := FlattenEnvelope(*envA)
		snap.EnvelopeA = &flat
	}
	if envB != nil {
		flat := FlattenEnvelope(*envB)
		snap.EnvelopeB = &flat
	}
	return snap
}

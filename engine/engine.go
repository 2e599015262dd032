// Package engine owns the single top-level instance that wires
// settings, the worker scheduler, the spectrum accumulators, and the
// shape-filter learner together (spec.md §9 design note: "a single
// owned top-level Engine instance holding all state, with read-only
// borrows handed out to the UI"). Grounded on piano.Piano's role as the
// one owned top-level engine struct (piano/piano.go) and on
// DRS4Worker's public getter surface (original_source/drs4worker.h) for
// the read-only snapshot accessors.
package engine

import (
	"sync"

	"github.com/palsflow/pals/feature"
	"github.com/palsflow/pals/pipeline"
	"github.com/palsflow/pals/settings"
	"github.com/palsflow/pals/shapelearn"
	"github.com/palsflow/pals/spectrum"
	"github.com/palsflow/pals/trace"
	"github.com/palsflow/pals/worker"
)

// Engine is the single owned instance for one acquisition run. All
// mutable shared state (accumulators, settings, learner) lives behind
// mu; the scheduler's merge callback is the only writer.
type Engine struct {
	mu sync.Mutex

	settings settings.Settings
	envelopeA, envelopeB *shapelearn.Envelope

	acc      *spectrum.Accumulator
	areaA    *feature.AreaStats
	areaB    *feature.AreaStats
	scatterA *feature.ScatterBuffer
	scatterB *feature.ScatterBuffer
	learnerA *shapelearn.Recorder
	learnerB *shapelearn.Recorder

	sched *worker.Scheduler
}

// New constructs an Engine from an initial settings value and spectrum
// geometry, with no shape-filter envelope yet learned.
func New(s settings.Settings, phsBins int) *Engine {
	acc := spectrum.NewAccumulator(phsBins,
		s.AB.Geometry, s.BA.Geometry, s.Prompt.Geometry, s.Merged.Geometry, s.ATSNS)
	return &Engine{
		settings: s,
		acc:      acc,
		areaA:    feature.NewAreaStats(phsBins),
		areaB:    feature.NewAreaStats(phsBins),
		scatterA: feature.NewScatterBuffer(),
		scatterB: feature.NewScatterBuffer(),
	}
}

// UpdateSettings swaps in a new immutable settings value (spec.md §9:
// "replace the global singleton lock with a value-typed immutable
// snapshot"). Safe to call while a run is active; the next chunk picks
// it up.
func (e *Engine) UpdateSettings(s settings.Settings) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.settings = s
}

// snapshot builds the immutable per-chunk Snapshot the scheduler hands
// to workers; called under the engine's own lock so the envelope
// pointer can't be swapped mid-flatten.
func (e *Engine) snapshot() settings.Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return settings.NewSnapshot(e.settings, e.envelopeA, e.envelopeB)
}

// StartRecordingA begins a new shape-filter learning pass (C6) on channel
// A for the given branch and pulse count, replacing any recorder already
// running on that channel. Channel B's learner, if any, is unaffected
// (spec.md line 191: independent per-channel recording; matches the
// original's separate startRecordingForShapeFilterA/B entry points).
func (e *Engine) StartRecordingA(branch spectrum.Branch, pulses int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.settings.ShapeLearnA = settings.ShapeLearnConfig{Enabled: true, Branch: branch, PulsesToRecord: pulses}
	e.learnerA = shapelearn.NewRecorder(pulses)
}

// StartRecordingB begins a new shape-filter learning pass (C6) on channel
// B. See StartRecordingA.
func (e *Engine) StartRecordingB(branch spectrum.Branch, pulses int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.settings.ShapeLearnB = settings.ShapeLearnConfig{Enabled: true, Branch: branch, PulsesToRecord: pulses}
	e.learnerB = shapelearn.NewRecorder(pulses)
}

// RecordingProgressA reports (recording, pulsesSoFar) for channel A's
// learner.
func (e *Engine) RecordingProgressA() (bool, int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.learnerA == nil {
		return false, 0
	}
	return e.learnerA.Recording(), e.learnerA.Progress()
}

// RecordingProgressB reports (recording, pulsesSoFar) for channel B's
// learner.
func (e *Engine) RecordingProgressB() (bool, int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.learnerB == nil {
		return false, 0
	}
	return e.learnerB.Recording(), e.learnerB.Progress()
}

// merge is the scheduler's serial merge callback: folds a chunk's
// pipeline results into the accumulator and, if a learner is active,
// into its pool (spec.md §4.8 step 10, §4.9 "merge step").
func (e *Engine) merge(results []pipeline.Result) {
	e.mu.Lock()
	defer e.mu.Unlock()

	start, stop := e.settings.StartWindow, e.settings.StopWindow
	forcePrompt := e.settings.ForcePrompt

	for _, r := range results {
		// The scatter buffer records every area point handed up by the
		// pipeline regardless of accept/reject (matches the original's
		// m_areaFilterDataA/B, populated before its accept/reject check
		// runs) — distinct from the (mean, stddev) accumulator below,
		// which only sees pairs the whole pipeline accepted.
		for _, pt := range r.AreaPoints {
			if pt.Channel == 0 {
				e.scatterA.Add(pt.PHSBin, pt.Area)
			} else {
				e.scatterB.Add(pt.PHSBin, pt.Area)
			}
		}

		if r.Reject != pipeline.Accepted {
			continue
		}
		e.acc.PHSA.Add(r.PHSBinA)
		e.acc.PHSB.Add(r.PHSBinB)
		e.acc.Update(r.PHSBinA, r.PHSBinB, start, stop, forcePrompt, r.TCFDA, r.TCFDB)

		for _, pt := range r.AreaPoints {
			if pt.Channel == 0 {
				e.areaA.Add(pt.PHSBin, pt.Area)
			} else {
				e.areaB.Add(pt.PHSBin, pt.Area)
			}
		}

		if e.learnerA != nil && e.learnerA.Recording() {
			if r.ShapeRecordA != nil {
				e.learnerA.Record(r.ShapeRecordA.RelT, r.ShapeRecordA.Y)
			}
			if !e.learnerA.Recording() {
				env := e.learnerA.Envelope()
				e.envelopeA = &env
			}
		}
		if e.learnerB != nil && e.learnerB.Recording() {
			if r.ShapeRecordB != nil {
				e.learnerB.Record(r.ShapeRecordB.RelT, r.ShapeRecordB.Y)
			}
			if !e.learnerB.Recording() {
				env := e.learnerB.Envelope()
				e.envelopeB = &env
			}
		}
	}
}

// Run starts the scheduler over src, single- or multi-threaded per the
// burst-mode flag (spec.md §4.9), blocking until src is exhausted or
// Stop is called.
func (e *Engine) Run(src trace.PulseGenerator) {
	e.mu.Lock()
	burst := e.settings.BurstMode
	e.mu.Unlock()

	e.sched = worker.NewScheduler(src, e.snapshot, e.merge)
	if burst {
		e.sched.RunMultiThreaded()
	} else {
		e.sched.RunSingleThreaded()
	}
}

// Stop requests cooperative shutdown of the active run.
func (e *Engine) Stop() {
	if e.sched != nil {
		e.sched.Stop()
	}
}

// Stats returns the live pair-rate statistics, or nil if no run has
// started.
func (e *Engine) Stats() *worker.Stats {
	if e.sched == nil {
		return nil
	}
	return e.sched.Stats()
}

// Spectra returns read-only snapshots of the live histograms, copied
// under the lock so the caller never observes a torn write mid-merge
// (spec.md §5: "exposed as length-prefixed read-only slices").
func (e *Engine) Spectra() (ab, ba, prompt, merged, phsA, phsB []int64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return cloneCounts(e.acc.AB), cloneCounts(e.acc.BA), cloneCounts(e.acc.Prompt),
		cloneCounts(e.acc.Merged), cloneCounts(e.acc.PHSA), cloneCounts(e.acc.PHSB)
}

// AreaStats returns read-only copies of the per-channel area-filter
// (mean, stddev) scatter statistics (spec.md §5 "Area-filter
// statistics: per phs-bin (mean_area, stddev_area, n)").
func (e *Engine) AreaStats() (a, b []feature.BinStats) {
	e.mu.Lock()
	defer e.mu.Unlock()
	a = make([]feature.BinStats, len(e.areaA.Bins))
	copy(a, e.areaA.Bins)
	b = make([]feature.BinStats, len(e.areaB.Bins))
	copy(b, e.areaB.Bins)
	return a, b
}

// AreaScatter returns read-only copies of the per-channel recent-points
// scatter buffer (spec.md line 187).
func (e *Engine) AreaScatter() (a, b []feature.ScatterPoint) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.scatterA.Points(), e.scatterB.Points()
}

func cloneCounts(h *spectrum.Histogram) []int64 {
	out := make([]int64, len(h.Counts))
	copy(out, h.Counts)
	return out
}

// ResetSpectra zeroes every histogram, independent of any learner reset
// (spec.md §9 open question: run-restart and spectrum-clear are
// independent operations).
func (e *Engine) ResetSpectra() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.acc.AB.Reset()
	e.acc.BA.Reset()
	e.acc.Prompt.Reset()
	e.acc.Merged.Reset()
	e.acc.PHSA.Reset()
	e.acc.PHSB.Reset()
}

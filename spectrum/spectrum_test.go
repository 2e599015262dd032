package spectrum

import "testing"

func TestGeometryBinFormula(t *testing.T) {
	g := Geometry{N: 4096, OffsetNS: 5, ScalerNS: 20, AllowNeg: false}
	delta := 40 * 0.1953 // ~tB-tA per S1 parameters
	bin, ok := g.Bin(delta)
	if !ok {
		t.Fatal("expected bin to be computed")
	}
	want := roundHalfAwayFromZero(((delta+5)/20)*4096) - 1
	if bin != want {
		t.Fatalf("bin = %d, want %d", bin, want)
	}
}

func TestGeometryRejectsNegativeUnlessAllowed(t *testing.T) {
	g := Geometry{N: 100, OffsetNS: 0, ScalerNS: 10, AllowNeg: false}
	if _, ok := g.Bin(-1); ok {
		t.Fatal("expected negative delta rejected")
	}
	g.AllowNeg = true
	if _, ok := g.Bin(-1); !ok {
		t.Fatal("expected negative delta accepted when allowed")
	}
}

func TestClassifyAB(t *testing.T) {
	start := Window{Min: 0, Max: 100}
	stop := Window{Min: 200, Max: 300}
	branch, delta := Classify(50, 250, start, stop, false, 10, 18)
	if branch != BranchAB {
		t.Fatalf("branch = %v, want AB", branch)
	}
	if delta != 8 {
		t.Fatalf("delta = %v, want 8", delta)
	}
}

func TestClassifyBA(t *testing.T) {
	start := Window{Min: 0, Max: 100}
	stop := Window{Min: 200, Max: 300}
	branch, delta := Classify(250, 50, start, stop, false, 18, 10)
	if branch != BranchBA {
		t.Fatalf("branch = %v, want BA", branch)
	}
	if delta != 8 {
		t.Fatalf("delta = %v, want 8", delta)
	}
}

func TestClassifyPrompt(t *testing.T) {
	start := Window{Min: 0, Max: 100}
	stop := Window{Min: 200, Max: 300}
	branch, _ := Classify(220, 280, start, stop, false, 10, 12)
	if branch != BranchPrompt {
		t.Fatalf("branch = %v, want Prompt", branch)
	}
}

func TestClassifyForcePromptSuppressesABBA(t *testing.T) {
	start := Window{Min: 0, Max: 100}
	stop := Window{Min: 200, Max: 300}
	branch, _ := Classify(50, 250, start, stop, true, 10, 18)
	if branch != BranchNone {
		t.Fatalf("branch = %v, want None when forcePrompt suppresses AB/BA and neither is stop/stop", branch)
	}
}

func TestAccumulatorDisjointness(t *testing.T) {
	// OffsetNS keeps the prompt pair's negative delta (tA-tB = -2 ns) on a
	// valid bin; with a zero offset it would map below bin 0 and be dropped.
	geom := Geometry{N: 1000, OffsetNS: 10, ScalerNS: 100, AllowNeg: true}
	acc := NewAccumulator(512, geom, geom, geom, geom, 0)
	start := Window{Min: 0, Max: 100}
	stop := Window{Min: 200, Max: 300}

	acc.Update(50, 250, start, stop, false, 10, 18) // AB
	acc.Update(250, 50, start, stop, false, 18, 10) // BA
	acc.Update(220, 280, start, stop, false, 10, 12) // Prompt
	acc.Update(500, 500, start, stop, false, 0, 0)   // none

	total := int64(0)
	for _, h := range []*Histogram{acc.AB, acc.BA, acc.Prompt} {
		for _, c := range h.Counts {
			total += c
		}
	}
	if total != 3 {
		t.Fatalf("total AB+BA+Prompt = %d, want 3", total)
	}
}

func TestHistogramMergeAndReset(t *testing.T) {
	a := NewHistogram(4)
	b := NewHistogram(4)
	a.Add(1)
	b.Add(1)
	b.Add(2)
	a.Merge(b)
	if a.Counts[1] != 2 || a.Counts[2] != 1 {
		t.Fatalf("merged counts = %v", a.Counts)
	}
	a.Reset()
	for _, c := range a.Counts {
		if c != 0 {
			t.Fatal("expected all-zero after reset")
		}
	}
}

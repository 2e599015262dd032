package cfd

import (
	"math"
	"testing"

	"github.com/palsflow/pals/interp"
)

func deltaPulse(peakCell int, amplitude float64, n int) (t, v []float64) {
	t = make([]float64, n)
	v = make([]float64, n)
	const cellWidth = 0.1953 // ns/cell, nominal DRS4 sweep
	sigma := 3.0
	for i := 0; i < n; i++ {
		t[i] = float64(i) * cellWidth
		dx := float64(i - peakCell)
		v[i] = amplitude * math.Exp(-(dx*dx)/(2*sigma*sigma))
	}
	return t, v
}

func TestExtractNegativePulse(t *testing.T) {
	tt, vv := deltaPulse(300, -300, 1024)
	res := Extract(tt, vv, Params{
		StartCell:         0,
		StopCell:          1024,
		CFDFraction:       0.25,
		Positive:          false,
		IntraRenderPoints: 10,
		Kind:              interp.CubicNatural,
	})
	if res.Reject != RejectNone {
		t.Fatalf("unexpected reject: %v", res.Reject)
	}
	if math.Abs(res.TOfExtr-tt[300]) > 1.0 {
		t.Fatalf("tOfExtr = %v, want near %v", res.TOfExtr, tt[300])
	}
	if res.YExtr > -295 {
		t.Fatalf("yExtr = %v, want close to -300 (refined can only grow |y|)", res.YExtr)
	}
}

func TestExtractPolarityMismatchRejects(t *testing.T) {
	tt, vv := deltaPulse(300, -300, 1024)
	res := Extract(tt, vv, Params{
		StartCell:         0,
		StopCell:          1024,
		CFDFraction:       0.25,
		Positive:          true, // wrong polarity: pulse is negative, declared positive
		IntraRenderPoints: 10,
		Kind:              interp.CubicNatural,
	})
	if res.Reject != RejectPolarityMismatch {
		t.Fatalf("reject = %v, want RejectPolarityMismatch", res.Reject)
	}
}

func TestExtractRejectsExtremumTooCloseToStart(t *testing.T) {
	tt, vv := deltaPulse(5, -300, 1024)
	res := Extract(tt, vv, Params{
		StartCell:         0,
		StopCell:          1024,
		CFDFraction:       0.25,
		Positive:          false,
		IntraRenderPoints: 10,
		Kind:              interp.CubicNatural,
	})
	if res.Reject != RejectExtremumTooCloseToStart {
		t.Fatalf("reject = %v, want RejectExtremumTooCloseToStart", res.Reject)
	}
}

func TestExtractIdempotentUnderResampling(t *testing.T) {
	tt, vv := deltaPulse(300, -300, 1024)
	p := Params{StartCell: 0, StopCell: 1024, CFDFraction: 0.25, Positive: false, IntraRenderPoints: 10, Kind: interp.CubicNatural}
	res1 := Extract(tt, vv, p)

	// Re-sample the trace at 10x density using the same interpolation
	// kind, then re-run CFD; the timestamp should match within 1 ps.
	in := interp.Build(interp.CubicNatural, tt, vv)
	n2 := len(tt) * 10
	tt2 := make([]float64, n2)
	vv2 := make([]float64, n2)
	step := (tt[len(tt)-1] - tt[0]) / float64(n2-1)
	for i := 0; i < n2; i++ {
		tt2[i] = tt[0] + float64(i)*step
		vv2[i] = in.Eval(tt2[i])
	}
	p2 := p
	p2.StopCell = n2
	res2 := Extract(tt2, vv2, p2)

	if res1.Reject != RejectNone || res2.Reject != RejectNone {
		t.Fatalf("unexpected reject: %v / %v", res1.Reject, res2.Reject)
	}
	if math.Abs(res1.TCFD-res2.TCFD) > 1e-3 { // 1 ps = 1e-3 ns
		t.Fatalf("CFD not idempotent: %v vs %v (delta %v ns)", res1.TCFD, res2.TCFD, res1.TCFD-res2.TCFD)
	}
}

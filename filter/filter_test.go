package filter

import (
	"math"
	"math/rand"
	"testing"
)

func TestMedianRejectsBadWindow(t *testing.T) {
	v := make([]float64, 10)
	if Median(v, 4) {
		t.Fatal("even window should be rejected")
	}
	if Median(v, 11) {
		t.Fatal("window > len(v) should be rejected")
	}
}

func TestMedianRemovesImpulseNoise(t *testing.T) {
	v := []float64{1, 1, 1, 1, 100, 1, 1, 1, 1}
	if !Median(v, 3) {
		t.Fatal("expected Median to apply")
	}
	if v[4] != 1 {
		t.Fatalf("impulse at center not removed: %v", v[4])
	}
}

func TestBaselineSubtractsMean(t *testing.T) {
	v := make([]float64, 100)
	for i := range v {
		v[i] = 10
	}
	b, rej := Baseline(v, BaselineParams{StartCell: 0, RegionWidth: 20, ReferenceValueMV: 0, LimitPercentFS: 100, RejectOnLimit: false})
	if rej {
		t.Fatal("unexpected rejection")
	}
	if math.Abs(b-10) > 1e-9 {
		t.Fatalf("baseline = %v, want 10", b)
	}
	for _, x := range v {
		if math.Abs(x) > 1e-9 {
			t.Fatalf("sample not corrected: %v", x)
		}
	}
}

func TestBaselineZeroMeanNoiseApproximatelyZero(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	region := 200
	v := make([]float64, region)
	for i := range v {
		v[i] = rng.NormFloat64()
	}
	b, _ := Baseline(v, BaselineParams{StartCell: 0, RegionWidth: region, ReferenceValueMV: 0, LimitPercentFS: 100})
	tol := 5.0 / math.Sqrt(float64(region))
	if math.Abs(b) > tol {
		t.Fatalf("baseline = %v, want within %v of 0", b, tol)
	}
}

func TestBaselineRejectsOutOfLimit(t *testing.T) {
	v := make([]float64, 50)
	for i := range v {
		v[i] = 30 // +30 mV DC offset
	}
	_, rej := Baseline(v, BaselineParams{
		StartCell:        0,
		RegionWidth:      50,
		ReferenceValueMV: 0,
		LimitPercentFS:   2,
		RejectOnLimit:    true,
	})
	if !rej {
		t.Fatal("expected rejection for +30mV offset with 2% limit")
	}
}

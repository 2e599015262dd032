package feature

import "math"

// BinStats is a per-phs-bin Welford online (mean, stddev) accumulator,
// backing the area-filter scatter overlay's statistics side-effect
// (spec.md §4.5 "Statistics side-effect").
type BinStats struct {
	n       int
	mean    float64
	m2      float64
}

// Add folds one more sample into the running statistics.
func (s *BinStats) Add(x float64) {
	s.n++
	delta := x - s.mean
	s.mean += delta / float64(s.n)
	delta2 := x - s.mean
	s.m2 += delta * delta2
}

// N returns the accumulated sample count.
func (s *BinStats) N() int { return s.n }

// Mean returns the running mean.
func (s *BinStats) Mean() float64 { return s.mean }

// StdDev returns the running (population) standard deviation, 0 if
// fewer than 2 samples have been added.
func (s *BinStats) StdDev() float64 {
	if s.n < 2 {
		return 0
	}
	return math.Sqrt(s.m2 / float64(s.n))
}

// Merge folds another BinStats into this one using the parallel-variance
// combine formula. The scheduler's merge step does not call it; engine
// folds area samples one at a time through AreaStats.Add.
func (s *BinStats) Merge(other *BinStats) {
	if other.n == 0 {
		return
	}
	if s.n == 0 {
		*s = *other
		return
	}
	n := s.n + other.n
	delta := other.mean - s.mean
	mean := s.mean + delta*float64(other.n)/float64(n)
	m2 := s.m2 + other.m2 + delta*delta*float64(s.n)*float64(other.n)/float64(n)
	s.n, s.mean, s.m2 = n, mean, m2
}

// AreaStats is the per-channel collection of per-phs-bin BinStats.
type AreaStats struct {
	Bins []BinStats
}

// NewAreaStats allocates a stats table with n phs bins.
func NewAreaStats(n int) *AreaStats {
	return &AreaStats{Bins: make([]BinStats, n)}
}

// Add folds one accepted (phsBin, area) sample into the table; a
// out-of-range bin is silently dropped (spec.md §7 IndexOutOfRange).
func (a *AreaStats) Add(phsBin int, area float64) {
	if phsBin < 0 || phsBin >= len(a.Bins) {
		return
	}
	a.Bins[phsBin].Add(area)
}

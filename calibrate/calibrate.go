// Package calibrate implements an auto-calibration search over
// area-filter band lines (and, optionally, a baseline shift) that
// sharpens a reference lifetime spectrum, using the same
// goroutine-pool-plus-mayfly-rounds structure as
// cmd/piano-fit/optimize.go's runOptimization. This is a genuine
// supplement beyond spec.md: original_source's DRS4 calibration was a
// manual, GUI-driven procedure with no programmatic analog, but an
// automated search is a natural extension of the settings view (C10)
// and a direct beneficiary of the worker-pool pattern the original spec
// already mandates for C9.
package calibrate

import (
	"fmt"
	"math"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cwbudde/mayfly"

	"github.com/palsflow/pals/feature"
	"github.com/palsflow/pals/pipeline"
	"github.com/palsflow/pals/settings"
	"github.com/palsflow/pals/trace"
)

// Candidate is one point in the search space: a symmetric area-filter
// band around the nominal line, plus an optional channel-A baseline
// shift.
type Candidate struct {
	BandWidth     float64 // half-width added above/below the nominal band lines
	BaselineShift float64 // mV added to ChannelA.Baseline.Params.ReferenceValueMV
}

// Config configures one calibration run.
type Config struct {
	Base          settings.Settings
	Corpus        []trace.Pair // a fixed, pre-acquired corpus re-evaluated per candidate
	Workers       int
	MaxEvals      int
	Seed          int64
	MayflyPop     int
	MayflyRounds  int
	TimeBudget    time.Duration
}

// Result is the best candidate found and its score.
type Result struct {
	Best       Candidate
	Sharpness  float64
	Evals      int
	Elapsed    time.Duration
}

type state struct {
	mu    sync.Mutex
	best  Candidate
	score float64 // lower is better (mayfly minimizes)
}

// Run evaluates candidates against cfg.Corpus, searching for the
// (bandWidth, baselineShift) pair that minimizes evaluate's score: the
// standard deviation of TCFDB-TCFDA over accepted pairs plus a
// 1/accepted penalty (a narrower spread is treated as "sharper").
func Run(cfg Config) (Result, error) {
	start := time.Now()
	deadline := start.Add(cfg.TimeBudget)
	if cfg.TimeBudget <= 0 {
		deadline = start.Add(24 * time.Hour)
	}

	workers := cfg.Workers
	if workers < 1 {
		workers = runtime.GOMAXPROCS(0)
	}
	pop := cfg.MayflyPop
	if pop < 4 {
		pop = 20
	}
	rounds := cfg.MayflyRounds
	if rounds < 1 {
		rounds = 4
	}

	st := &state{score: math.Inf(1)}
	var evals int64

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			for round := 0; round < rounds; round++ {
				if time.Now().After(deadline) {
					return
				}
				if cfg.MaxEvals > 0 && atomic.LoadInt64(&evals) >= int64(cfg.MaxEvals) {
					return
				}

				mCfg := mayfly.NewDefaultConfig()
				mCfg.ProblemSize = 2
				mCfg.LowerBound = 0.0
				mCfg.UpperBound = 1.0
				mCfg.MaxIterations = 20
				mCfg.NPop = pop
				mCfg.NPopF = pop
				mCfg.NC = 2 * pop
				mCfg.NM = maxInt(1, int(math.Round(0.05*float64(pop))))
				mCfg.ObjectiveFunc = func(pos []float64) float64 {
					if cfg.MaxEvals > 0 {
						if _, ok := reserveEval(&evals, cfg.MaxEvals); !ok {
							st.mu.Lock()
							cur := st.score
							st.mu.Unlock()
							return cur + 1.0
						}
					} else {
						atomic.AddInt64(&evals, 1)
					}

					cand := Candidate{
						BandWidth:     pos[0] * 50.0,  // 0-50 units
						BaselineShift: (pos[1] - 0.5) * 20.0, // +/-10 mV
					}
					score := evaluate(cfg.Base, cfg.Corpus, cand)

					st.mu.Lock()
					if score < st.score {
						st.score = score
						st.best = cand
					}
					st.mu.Unlock()
					return score
				}

				if err := runMayfly(mCfg); err != nil {
					fmt.Printf("calibrate: worker %d round %d mayfly error: %v\n", workerID, round, err)
					return
				}
			}
		}(w)
	}
	wg.Wait()

	return Result{
		Best:      st.best,
		Sharpness: st.score,
		Evals:     int(atomic.LoadInt64(&evals)),
		Elapsed:   time.Since(start),
	}, nil
}

// evaluate applies cand to base settings, replays the corpus, and scores
// the result: lower is sharper (smaller standard deviation of
// TCFDB-TCFDA around its mean over the accepted pairs).
func evaluate(base settings.Settings, corpus []trace.Pair, cand Candidate) float64 {
	s := base
	s.Area.Band.InterceptUpper += cand.BandWidth
	s.Area.Band.InterceptLower -= cand.BandWidth
	s.ChannelA.Baseline.Params.ReferenceValueMV += cand.BaselineShift

	snap := settings.NewSnapshot(s, nil, nil)
	var stats feature.BinStats
	accepted := 0
	for _, pair := range corpus {
		r := pipeline.Process(pair.A, pair.B, snap)
		if r.Reject != pipeline.Accepted {
			continue
		}
		accepted++
		stats.Add(r.TCFDB - r.TCFDA)
	}
	if accepted < 2 {
		return math.Inf(1) // unusable candidate: no statistics to sharpen
	}
	// Penalize both spread and under-acceptance.
	acceptPenalty := 1.0 / float64(accepted)
	return stats.StdDev() + acceptPenalty
}

func runMayfly(cfg *mayfly.Config) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("mayfly panic: %v", r)
		}
	}()
	_, err = mayfly.Optimize(cfg)
	return err
}

func reserveEval(evals *int64, maxEvals int) (int64, bool) {
	for {
		cur := atomic.LoadInt64(evals)
		if cur >= int64(maxEvals) {
			return 0, false
		}
		if atomic.CompareAndSwapInt64(evals, cur, cur+1) {
			return cur + 1, true
		}
	}
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

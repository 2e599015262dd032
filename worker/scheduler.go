// Package worker implements the pulse-pair worker scheduler (C9,
// spec.md §4.9): a single-threaded inline mode and a multi-threaded
// chunked-dispatch mode with a single in-flight chunk and a serial
// merge step. Grounded on the goroutine-pool-plus-WaitGroup-plus-atomic
// pattern in
// _examples/CWBudde-algo-piano/cmd/piano-fit/optimize.go's
// runOptimization, adapted from "mayfly rounds consumed by N worker
// goroutines" to "pulse-pair chunks consumed by a worker pool with a
// serial merge", and on DRS4WorkerConcurrentManager's
// runSingleThreaded/runMultiThreaded split in
// original_source/drs4worker.cpp.
package worker

import (
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/palsflow/pals/pipeline"
	"github.com/palsflow/pals/settings"
	"github.com/palsflow/pals/spectrum"
	"github.com/palsflow/pals/trace"
)

// DefaultChunkSize is a small multiple of core count, tunable (spec.md
// §4.9 "Chunk size defaults to a small multiple of core count").
func DefaultChunkSize() int {
	n := runtime.GOMAXPROCS(0) * 4
	if n < 1 {
		n = 1
	}
	return n
}

// Rates is one statistics-rate snapshot, as returned by Stats.Tick.
type Rates struct {
	PairsPerSec       float64
	AveragePairsPerSec float64
}

// Stats are the monotonic counters the scheduler maintains. The
// scheduler does not compute or report rates on its own; rates exist only
// when a caller invokes Tick, at whatever interval that caller chooses.
type Stats struct {
	TotalPairs   atomic.Int64
	AcceptedPairs atomic.Int64
	startTime    time.Time
	lastTick     time.Time
	lastCount    int64
}

func newStats() *Stats {
	now := time.Now()
	return &Stats{startTime: now, lastTick: now}
}

// Tick computes the current pair rate since the last call and the
// average pair rate since the counters were created.
func (s *Stats) Tick() Rates {
	now := time.Now()
	total := s.TotalPairs.Load()

	dt := now.Sub(s.lastTick).Seconds()
	dn := total - s.lastCount
	cur := 0.0
	if dt > 0 {
		cur = float64(dn) / dt
	}

	avgDT := now.Sub(s.startTime).Seconds()
	avg := 0.0
	if avgDT > 0 {
		avg = float64(total) / avgDT
	}

	s.lastTick = now
	s.lastCount = total
	return Rates{PairsPerSec: cur, AveragePairsPerSec: avg}
}

// Scheduler runs the producer/worker/merge pipeline over a
// trace.PulseGenerator, mutating a shared spectrum.Accumulator and
// shapelearn recorders owned by the caller via the Merge callback.
type Scheduler struct {
	Source    trace.PulseGenerator
	Snapshot  func() settings.Snapshot
	ChunkSize int
	Workers   int

	// Merge is invoked once per completed chunk, strictly serially
	// (spec.md §4.9 "Ordering": "merge runs strictly between chunks").
	// It receives the chunk's pipeline.Result slice in worker-submission
	// order (pair order within the chunk carries no meaning; chunk order
	// does, for reproducible rate reporting).
	Merge func(results []pipeline.Result)

	running atomic.Bool
	stats   *Stats
}

// NewScheduler constructs a Scheduler with default chunk size and
// worker count (GOMAXPROCS).
func NewScheduler(src trace.PulseGenerator, snap func() settings.Snapshot, merge func([]pipeline.Result)) *Scheduler {
	return &Scheduler{
		Source:    src,
		Snapshot:  snap,
		ChunkSize: DefaultChunkSize(),
		Workers:   runtime.GOMAXPROCS(0),
		Merge:     merge,
		stats:     newStats(),
	}
}

// Stats returns the running statistics counters.
func (s *Scheduler) Stats() *Stats { return s.stats }

// Stop requests cooperative shutdown; the producer loop exits after the
// outstanding chunk is awaited (spec.md §4.9 "Cancellation"):
// "a stop request flips running=false; the producer exits its loop; the
// outstanding chunk is awaited (never dropped mid-flight)".
func (s *Scheduler) Stop() { s.running.Store(false) }

// RunSingleThreaded reads one pair at a time, runs the pipeline inline,
// and merges its result immediately — no chunking, no goroutines (spec.md
// §4.9 "Single-threaded": "used for diagnostic pulse-by-pulse tracing and
// when the host has one core").
func (s *Scheduler) RunSingleThreaded() {
	s.running.Store(true)
	if s.stats == nil {
		s.stats = newStats()
	}
	for s.running.Load() {
		a, b, ok := s.Source.ReceivePair()
		if !ok {
			return
		}
		snap := s.Snapshot()
		res := pipeline.Process(a, b, snap)
		s.stats.TotalPairs.Add(1)
		if res.Reject == pipeline.Accepted {
			s.stats.AcceptedPairs.Add(1)
		}
		s.Merge([]pipeline.Result{res})
	}
}

// RunMultiThreaded fills a chunk of K pairs, submits it to a worker pool,
// and overlaps accumulation of the next chunk with the outstanding
// chunk's pool run (spec.md §4.9 "Multi-threaded"): "exactly one chunk
// is in flight; the producer accumulates the next chunk in parallel.
// When the current chunk completes, merge runs, then the newly
// accumulated chunk is submitted."
func (s *Scheduler) RunMultiThreaded() {
	s.running.Store(true)
	if s.stats == nil {
		s.stats = newStats()
	}
	chunkSize := s.ChunkSize
	if chunkSize < 1 {
		chunkSize = DefaultChunkSize()
	}
	workers := s.Workers
	if workers < 1 {
		workers = runtime.GOMAXPROCS(0)
	}

	var inFlight chan []pipeline.Result
	var pending []trace.Pair
	var seq uint64

	drain := func(ch chan []pipeline.Result) {
		if ch == nil {
			return
		}
		results := <-ch
		s.Merge(results)
	}

	for s.running.Load() {
		a, b, ok := s.Source.ReceivePair()
		if !ok {
			break
		}
		pending = append(pending, trace.Pair{A: a, B: b, SequenceID: seq})
		seq++

		if len(pending) < chunkSize {
			continue
		}

		chunk := pending
		pending = nil

		// Await the previously submitted chunk (at most one in flight)
		// before submitting this one.
		drain(inFlight)

		snap := s.Snapshot()
		inFlight = s.dispatchChunk(chunk, snap, workers)
	}

	// Never drop a partial final chunk: await and merge whatever was
	// already in flight, then dispatch it and wait for it too.
	if len(pending) > 0 {
		drain(inFlight)
		snap := s.Snapshot()
		inFlight = s.dispatchChunk(pending, snap, workers)
	}
	drain(inFlight)
}

// dispatchChunk runs one chunk's worker pool and returns a channel that
// yields the completed results in submission order, once every worker
// task has finished (spec.md §4.9 "the pool maps one task per worker via
// the pipeline producing a vector of per-pair outputs").
func (s *Scheduler) dispatchChunk(chunk []trace.Pair, snap settings.Snapshot, workers int) chan []pipeline.Result {
	out := make(chan []pipeline.Result, 1)
	results := make([]pipeline.Result, len(chunk))

	go func() {
		var wg sync.WaitGroup
		var next atomic.Int64
		if workers > len(chunk) {
			workers = len(chunk)
		}
		if workers < 1 {
			workers = 1
		}
		for w := 0; w < workers; w++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for {
					i := int(next.Add(1)) - 1
					if i >= len(chunk) {
						return
					}
					results[i] = pipeline.Process(chunk[i].A, chunk[i].B, snap)
				}
			}()
		}
		wg.Wait()

		accepted := int64(0)
		for _, r := range results {
			if r.Reject == pipeline.Accepted {
				accepted++
			}
		}
		s.stats.TotalPairs.Add(int64(len(results)))
		s.stats.AcceptedPairs.Add(accepted)

		out <- results
	}()

	return out
}

// ApplyToAccumulator is the canonical Merge callback: folds every
// accepted pair's classification into the shared spectrum.Accumulator
// (spec.md §4.7/§4.9 "merge step"). Callers compose it with shapelearn
// recording and area-stats updates as needed.
func ApplyToAccumulator(acc *spectrum.Accumulator, start, stop spectrum.Window, forcePrompt bool) func([]pipeline.Result) {
	return func(results []pipeline.Result) {
		for _, r := range results {
			if r.Reject != pipeline.Accepted {
				continue
			}
			acc.PHSA.Add(r.PHSBinA)
			acc.PHSB.Add(r.PHSBinB)
			acc.Update(r.PHSBinA, r.PHSBinB, start, stop, forcePrompt, r.TCFDA, r.TCFDB)
		}
	}
}

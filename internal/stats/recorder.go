// Package stats summarises command run times for the end-of-job report.
package stats

import (
	"sort"
	"sync"
	"time"

	"github.com/influxdata/tdigest"
)

// digestCompression keeps ~100 centroids per program.
const digestCompression = 100

// programStats accumulates runs of one program.
type programStats struct {
	digest *tdigest.TDigest
	states map[string]int
	total  time.Duration
	min    time.Duration
	max    time.Duration
	count  int
}

// Recorder collects durations per program. Safe for concurrent use.
type Recorder struct {
	mu       sync.Mutex
	programs map[string]*programStats
	started  time.Time
}

// NewRecorder creates an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{
		programs: make(map[string]*programStats),
		started:  time.Now(),
	}
}

// Observe records one finished run. Only runs that exited normally carry
// a meaningful duration; others are counted but not added to the digest.
func (r *Recorder) Observe(program, state string, d time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ps, ok := r.programs[program]
	if !ok {
		ps = &programStats{
			digest: tdigest.NewWithCompression(digestCompression),
			states: make(map[string]int),
		}
		r.programs[program] = ps
	}

	ps.states[state]++
	if d <= 0 {
		return
	}

	ps.digest.Add(float64(d.Nanoseconds()), 1)
	ps.total += d
	if ps.count == 0 || d < ps.min {
		ps.min = d
	}
	if d > ps.max {
		ps.max = d
	}
	ps.count++
}

// Quantile returns the q-th duration quantile for program, or 0 when no
// timed run was observed.
func (r *Recorder) Quantile(program string, q float64) time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()

	ps, ok := r.programs[program]
	if !ok || ps.count == 0 {
		return 0
	}
	return time.Duration(ps.digest.Quantile(q))
}

// ProgramSummary is a point-in-time view of one program's runs.
type ProgramSummary struct {
	Program string
	Runs    int
	States  map[string]int
	Mean    time.Duration
	Min     time.Duration
	Max     time.Duration
	P50     time.Duration
	P95     time.Duration
	P99     time.Duration
}

// Snapshot returns a summary per program, sorted by name.
func (r *Recorder) Snapshot() []ProgramSummary {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]ProgramSummary, 0, len(r.programs))
	for name, ps := range r.programs {
		s := ProgramSummary{
			Program: name,
			States:  make(map[string]int, len(ps.states)),
			Min:     ps.min,
			Max:     ps.max,
		}
		for state, n := range ps.states {
			s.States[state] = n
			s.Runs += n
		}
		if ps.count > 0 {
			s.Mean = ps.total / time.Duration(ps.count)
			s.P50 = time.Duration(ps.digest.Quantile(0.50))
			s.P95 = time.Duration(ps.digest.Quantile(0.95))
			s.P99 = time.Duration(ps.digest.Quantile(0.99))
		}
		out = append(out, s)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Program < out[j].Program })
	return out
}

// Elapsed returns the time since the recorder was created.
func (r *Recorder) Elapsed() time.Duration {
	return time.Since(r.started)
}

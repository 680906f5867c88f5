// Package metrics provides Prometheus metrics for render-runner.
//
// All series are labelled by program name (blender, ffmpeg, ...), which
// keeps cardinality bounded by the tools a job uses.
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/randomizedcoder/render-runner/internal/command"
)

// DurationBuckets cover quick probes through multi-hour renders.
var DurationBuckets = []float64{0.1, 0.5, 1, 5, 15, 60, 300, 900, 3600, 4 * 3600}

// Collector records command lifecycle metrics. It implements
// command.Observer.
type Collector struct {
	info            *prometheus.GaugeVec
	commandsStarted *prometheus.CounterVec
	commandsDone    *prometheus.CounterVec
	commandsRunning prometheus.Gauge
	commandDuration *prometheus.HistogramVec
	jobSteps        *prometheus.CounterVec

	// For summary generation
	mu        sync.Mutex
	startTime time.Time
	started   int64
	finished  map[command.State]int64
	peak      int
	running   int
}

// CollectorConfig holds configuration for the collector.
type CollectorConfig struct {
	Version string
	Job     string
}

// NewCollector creates a collector registered with the default registry.
func NewCollector(cfg CollectorConfig) *Collector {
	return NewCollectorWithRegistry(cfg, prometheus.DefaultRegisterer)
}

// NewCollectorWithRegistry creates a collector with a custom registry.
// Useful for testing.
func NewCollectorWithRegistry(cfg CollectorConfig, registry prometheus.Registerer) *Collector {
	c := &Collector{
		info: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "render_runner_info",
				Help: "Information about the running job (value always 1)",
			},
			[]string{"version", "job"},
		),
		commandsStarted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "render_runner_commands_started_total",
				Help: "External commands started",
			},
			[]string{"program"},
		),
		commandsDone: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "render_runner_commands_finished_total",
				Help: "External commands finished, by outcome (succeeded, failed, cancelled, launch_failed)",
			},
			[]string{"program", "outcome"},
		),
		commandsRunning: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "render_runner_commands_running",
				Help: "External commands currently running",
			},
		),
		commandDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "render_runner_command_duration_seconds",
				Help:    "Run time of commands that exited on their own",
				Buckets: DurationBuckets,
			},
			[]string{"program"},
		),
		jobSteps: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "render_runner_job_steps_total",
				Help: "Job steps completed, by result",
			},
			[]string{"result"},
		),
		startTime: time.Now(),
		finished:  make(map[command.State]int64),
	}

	registry.MustRegister(
		c.info,
		c.commandsStarted,
		c.commandsDone,
		c.commandsRunning,
		c.commandDuration,
		c.jobSteps,
	)

	c.info.WithLabelValues(cfg.Version, cfg.Job).Set(1)
	return c
}

// =============================================================================
// Event Recording Methods
// =============================================================================

// CommandStarted records a command start.
func (c *Collector) CommandStarted(program string) {
	c.commandsStarted.WithLabelValues(program).Inc()
	c.commandsRunning.Inc()

	c.mu.Lock()
	c.started++
	c.running++
	if c.running > c.peak {
		c.peak = c.running
	}
	c.mu.Unlock()
}

// CommandFinished records a command end. d is only observed for runs that
// exited on their own.
func (c *Collector) CommandFinished(program string, state command.State, d time.Duration) {
	c.commandsDone.WithLabelValues(program, string(state)).Inc()
	c.commandsRunning.Dec()

	if state == command.StateSucceeded || state == command.StateFailed {
		c.commandDuration.WithLabelValues(program).Observe(d.Seconds())
	}

	c.mu.Lock()
	c.finished[state]++
	c.running--
	c.mu.Unlock()
}

// StepCompleted records the result of one job step.
func (c *Collector) StepCompleted(result string) {
	c.jobSteps.WithLabelValues(result).Inc()
}

// =============================================================================
// Summary Generation
// =============================================================================

// Summary holds totals for the end-of-run report.
type Summary struct {
	Duration    time.Duration
	Started     int64
	Finished    map[command.State]int64
	PeakRunning int
}

// GenerateSummary creates a summary of the run.
func (c *Collector) GenerateSummary() *Summary {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := &Summary{
		Duration:    time.Since(c.startTime),
		Started:     c.started,
		Finished:    make(map[command.State]int64, len(c.finished)),
		PeakRunning: c.peak,
	}
	for state, n := range c.finished {
		s.Finished[state] = n
	}
	return s
}

// Running returns the number of commands currently running.
func (c *Collector) Running() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}

package pipeline

import "time"

// Limits bounds how much work individual stages take on.
type Limits struct {
	MaxCandidatesPerWorker int
	MaxTopCandidates       int
	MaxValidations         int
	WorkerTimeout          time.Duration
}

// DefaultLimits mirrors the defaults named throughout the component design:
// up to 50 candidates per worker, top-N selection of 50, validation of the
// top 10, and a 20s per-worker timeout. Worker concurrency is not part of
// Limits.
func DefaultLimits() Limits {
	return Limits{
		MaxCandidatesPerWorker: 50,
		MaxTopCandidates:       50,
		MaxValidations:         10,
		WorkerTimeout:          20 * time.Second,
	}
}

// Flags toggle optional stage behavior.
type Flags struct {
	SkipEnhancement bool
	SkipValidation  bool
	SkipYoutube     bool
}

// RunOptions configures one call to Execute.
type RunOptions struct {
	DryRun          bool
	FromStage       int
	SourceRunID     string
	StopAfterStage  int // -1 means run through stage 10
	ContinueOnError bool
	Limits          Limits
	Flags           Flags
}

// DefaultRunOptions returns the zero-value-safe baseline: full run, no
// resume, fail-fast, default limits.
func DefaultRunOptions() RunOptions {
	return RunOptions{
		FromStage:      0,
		StopAfterStage: -1,
		Limits:         DefaultLimits(),
	}
}

// Option mutates a RunOptions in place. Functional options compose with a
// base RunOptions the way the teacher's engine composes Options with
// variadic functional overrides.
type Option func(*RunOptions)

// WithDryRun enables plan-only execution: no checkpoint I/O.
func WithDryRun(v bool) Option { return func(o *RunOptions) { o.DryRun = v } }

// WithResume configures fromStage/sourceRunId together, since resuming past
// stage 0 requires both.
func WithResume(fromStage int, sourceRunID string) Option {
	return func(o *RunOptions) {
		o.FromStage = fromStage
		o.SourceRunID = sourceRunID
	}
}

// WithStopAfterStage sets an early-stop stage number.
func WithStopAfterStage(n int) Option { return func(o *RunOptions) { o.StopAfterStage = n } }

// WithContinueOnError enables degraded-mode execution.
func WithContinueOnError(v bool) Option { return func(o *RunOptions) { o.ContinueOnError = v } }

// WithLimits overrides the default resource limits.
func WithLimits(l Limits) Option { return func(o *RunOptions) { o.Limits = l } }

// WithFlags overrides the default stage-skip flags.
func WithFlags(f Flags) Option { return func(o *RunOptions) { o.Flags = f } }

// NewRunOptions builds a RunOptions from DefaultRunOptions with overrides
// applied in order.
func NewRunOptions(opts ...Option) RunOptions {
	o := DefaultRunOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

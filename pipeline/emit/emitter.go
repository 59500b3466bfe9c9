// Package emit provides event emission and observability for pipeline
// execution: stage starts/completions, worker pool activity, and retry or
// circuit-breaker transitions, routed to a pluggable backend.
package emit

import "context"

// Event represents one observability event emitted during a run.
type Event struct {
	// RunID identifies the pipeline run that emitted this event.
	RunID string

	// Step is the stage number the event pertains to, or 0 for run-level events.
	Step int

	// NodeID identifies the stage or worker that emitted the event, e.g.
	// "05_dedupe_cluster" or "worker:places".
	NodeID string

	// Msg is a short human-readable description, e.g. "stage complete",
	// "circuit opened", "worker timed out".
	Msg string

	// Meta carries structured detail: sha256, sizeBytes, durationMs, tokens,
	// retryable, provider, attempt.
	Meta map[string]interface{}
}

// Emitter receives observability events. Implementations must not block the
// pipeline and must not panic; a failing backend should drop or buffer
// events rather than disrupt a run.
type Emitter interface {
	Emit(event Event)
	EmitBatch(ctx context.Context, events []Event) error
	Flush(ctx context.Context) error
}

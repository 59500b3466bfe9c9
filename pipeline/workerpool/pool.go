package workerpool

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/wayfarerlabs/discovery-pipeline/domain"
	"github.com/wayfarerlabs/discovery-pipeline/pipeline/emit"
	"github.com/wayfarerlabs/discovery-pipeline/pipeline/metrics"
)

// Executor runs a single worker assignment to completion. Implementations
// live in providers/* and must never panic; a panic is still recovered by
// the pool as a defensive measure, but a well-behaved Executor returns an
// error instead.
type Executor func(ctx context.Context, assignment domain.WorkerAssignment) (domain.WorkerOutput, error)

// Pool fans a WorkerPlan out across its assignments, bounded by a
// concurrency Limiter, gated per-provider by a CircuitBreaker, and
// collects results back into assignment order regardless of completion
// order.
type Pool struct {
	Limiter *Limiter
	Breaker *CircuitBreaker
	Emitter emit.Emitter
	Metrics *metrics.Metrics
	RunID   string
}

// NewPool returns a Pool with a concurrency limit of maxConcurrent
// (default 3) and the default circuit breaker configuration.
func NewPool(maxConcurrent int, runID string) *Pool {
	if maxConcurrent <= 0 {
		maxConcurrent = 3
	}
	return &Pool{
		Limiter: NewLimiter(maxConcurrent),
		Breaker: NewCircuitBreaker(DefaultBreakerConfig()),
		RunID:   runID,
	}
}

type indexedResult struct {
	index  int
	output domain.WorkerOutput
}

// Run executes every assignment concurrently (bounded by p.Limiter) and
// returns one WorkerOutput per assignment, in assignment order. A failed or
// skipped worker never blocks the others, and Run itself never returns an
// error: every failure mode is represented as a WorkerOutput with
// status=error or status=skipped.
func (p *Pool) Run(ctx context.Context, assignments []domain.WorkerAssignment, exec Executor) []domain.WorkerOutput {
	results := make(chan indexedResult, len(assignments))
	var wg sync.WaitGroup

	for i, assignment := range assignments {
		wg.Add(1)
		go func(i int, a domain.WorkerAssignment) {
			defer wg.Done()
			results <- indexedResult{index: i, output: p.runOne(ctx, a, exec)}
		}(i, assignment)
	}

	wg.Wait()
	close(results)

	outputs := make([]domain.WorkerOutput, len(assignments))
	for r := range results {
		outputs[r.index] = r.output
	}
	return outputs
}

func (p *Pool) runOne(ctx context.Context, a domain.WorkerAssignment, exec Executor) (out domain.WorkerOutput) {
	defer func() {
		if r := recover(); r != nil {
			out = domain.WorkerOutput{WorkerID: a.WorkerID, Status: domain.WorkerStatusError, Error: fmt.Sprintf("panic: %v", r)}
		}
	}()

	if p.Breaker != nil && p.Breaker.IsOpen(a.Provider) {
		return domain.WorkerOutput{WorkerID: a.WorkerID, Status: domain.WorkerStatusSkipped, Error: "circuit breaker open"}
	}

	start := time.Now()
	runErr := p.Limiter.Run(ctx, func() error {
		timeout := a.Timeout
		if timeout <= 0 {
			timeout = 20 * time.Second
		}
		callCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		result, err := exec(callCtx, a)
		out = result
		if err != nil {
			return err
		}
		return nil
	})
	duration := time.Since(start)

	if runErr != nil {
		if p.Breaker != nil {
			p.Breaker.RecordFailure(a.Provider)
		}
		msg := runErr.Error()
		if runErr == context.DeadlineExceeded {
			msg = fmt.Sprintf("timed out after %dms", duration.Milliseconds())
		}
		out = domain.WorkerOutput{WorkerID: a.WorkerID, Status: domain.WorkerStatusError, Error: msg, DurationMs: duration.Milliseconds()}
		p.emit(a, "worker error", msg)
		return out
	}

	if p.Breaker != nil {
		p.Breaker.RecordSuccess(a.Provider)
	}
	out.WorkerID = a.WorkerID
	out.DurationMs = duration.Milliseconds()
	if out.Status == "" {
		out.Status = domain.WorkerStatusOK
	}
	return out
}

func (p *Pool) emit(a domain.WorkerAssignment, msg, detail string) {
	if p.Emitter == nil {
		return
	}
	p.Emitter.Emit(emit.Event{
		RunID:  p.RunID,
		NodeID: "worker:" + a.WorkerID,
		Msg:    msg,
		Meta:   map[string]any{"provider": a.Provider, "detail": detail},
	})
}

// Package workerpool implements the bounded-concurrency fan-out stage 3 runs
// its provider workers through: a FIFO concurrency limiter, a per-provider
// circuit breaker, and exponential-backoff-with-jitter retry, composed into
// a Pool that turns a WorkerPlan into an assignment-ordered []WorkerOutput.
package workerpool

import "context"

// Limiter is a FIFO-queuing concurrency semaphore. An operation never holds
// a slot while queued: acquire blocks until a slot is free (or ctx is
// cancelled), and Run guarantees release on every exit path, including a
// panicking fn.
type Limiter struct {
	slots chan struct{}
}

// NewLimiter returns a Limiter admitting at most n concurrent holders.
func NewLimiter(n int) *Limiter {
	if n <= 0 {
		n = 1
	}
	return &Limiter{slots: make(chan struct{}, n)}
}

// Acquire blocks until a slot is available or ctx is cancelled.
func (l *Limiter) Acquire(ctx context.Context) error {
	select {
	case l.slots <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Release frees a slot acquired by Acquire.
func (l *Limiter) Release() {
	<-l.slots
}

// InUse reports how many slots are currently held, for metrics reporting.
func (l *Limiter) InUse() int { return len(l.slots) }

// Run acquires a slot, executes fn, and releases the slot on every exit
// path: normal return, error, or panic. A panic is recovered just long
// enough to release the slot, then re-raised.
func (l *Limiter) Run(ctx context.Context, fn func() error) (err error) {
	if acqErr := l.Acquire(ctx); acqErr != nil {
		return acqErr
	}

	defer func() {
		l.Release()
		if r := recover(); r != nil {
			panic(r)
		}
	}()

	err = fn()
	return err
}

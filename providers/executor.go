package providers

import (
	"context"
	"math/rand"
	"time"

	"github.com/wayfarerlabs/discovery-pipeline/domain"
	"github.com/wayfarerlabs/discovery-pipeline/pipeline/workerpool"
)

// Searcher is the common shape of WebResearcher, PlacesClient, and
// VideoSocialClient: a single query-in, candidates-out call.
type Searcher interface {
	Search(ctx context.Context, query string, maxResults int) ([]domain.Candidate, error)
}

// NewExecutor adapts a Searcher into a workerpool.Executor: it runs every
// query in the assignment (retrying transient failures per policy),
// dedupes the combined results by placeId when present, else by exact
// (unnormalized) title+location, and reports status=partial if some but not
// all queries failed.
func NewExecutor(searcher Searcher, policy workerpool.RetryPolicy) workerpool.Executor {
	return func(ctx context.Context, a domain.WorkerAssignment) (domain.WorkerOutput, error) {
		rng := rand.New(rand.NewSource(assignmentSeed(a.WorkerID)))
		var all []domain.Candidate
		queryErrors := 0

		for _, q := range a.Queries {
			results, err := searchWithRetry(ctx, searcher, q, a.MaxResults, policy, rng)
			if err != nil {
				queryErrors++
				continue
			}
			all = append(all, results...)
		}

		// The pool wraps ctx in a per-assignment deadline; once it expires,
		// surface that as a real error so the pool reports a timeout rather
		// than folding it into the generic query-failure counts.
		if ctx.Err() == context.DeadlineExceeded {
			return domain.WorkerOutput{}, context.DeadlineExceeded
		}

		status := domain.WorkerStatusOK
		var errMsg string
		switch {
		case queryErrors == len(a.Queries) && len(a.Queries) > 0:
			status = domain.WorkerStatusError
			errMsg = "all queries failed"
		case queryErrors > 0:
			status = domain.WorkerStatusPartial
			errMsg = "some queries failed"
		}

		return domain.WorkerOutput{
			WorkerID:   a.WorkerID,
			Status:     status,
			Candidates: dedupeByIdentifier(all),
			Error:      errMsg,
		}, nil
	}
}

func searchWithRetry(ctx context.Context, searcher Searcher, query string, maxResults int, policy workerpool.RetryPolicy, rng *rand.Rand) ([]domain.Candidate, error) {
	var lastErr error
	attempts := policy.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			delay := workerpool.ComputeBackoff(attempt-1, policy.BaseDelay, policy.MaxDelay, policy.Jitter, rng)
			timer := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return nil, ctx.Err()
			case <-timer.C:
			}
		}
		results, err := searcher.Search(ctx, query, maxResults)
		if err == nil {
			return results, nil
		}
		lastErr = err
		if !workerpool.IsRetryableNetworkError(err) {
			return nil, err
		}
	}
	return nil, lastErr
}

// dedupeByIdentifier removes duplicate candidates returned by different
// queries within the same worker, keyed by placeId when present else by
// the exact title and location strings. This is the worker-level dedupe the spec
// requires before results ever reach the normalizer.
func dedupeByIdentifier(candidates []domain.Candidate) []domain.Candidate {
	seen := make(map[string]bool, len(candidates))
	out := make([]domain.Candidate, 0, len(candidates))
	for _, c := range candidates {
		key := c.Title + "|" + c.LocationText
		if placeID, ok := c.Metadata["placeId"]; ok {
			if s, ok := placeID.(string); ok && s != "" {
				key = "place:" + s
			}
		}
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, c)
	}
	return out
}

// assignmentSeed derives a deterministic RNG seed from a worker ID so
// retry jitter is reproducible per assignment without a shared global RNG.
func assignmentSeed(workerID string) int64 {
	var h int64 = 1469598103934665603
	for i := 0; i < len(workerID); i++ {
		h ^= int64(workerID[i])
		h *= 1099511628211
	}
	return h
}

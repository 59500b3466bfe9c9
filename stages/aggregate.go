package stages

import (
	"context"
	"math/rand"
	"time"

	"github.com/wayfarerlabs/discovery-pipeline/domain"
	"github.com/wayfarerlabs/discovery-pipeline/pipeline/workerpool"
)

// AggregateConfig controls the stage-9 narrative call.
type AggregateConfig struct {
	Timeout     time.Duration
	MaxAttempts int
}

// DefaultAggregateConfig matches a 20s per-attempt timeout with 3 retries.
func DefaultAggregateConfig() AggregateConfig {
	return AggregateConfig{Timeout: 20 * time.Second, MaxAttempts: 4}
}

// NarrativeGenerator produces a Narrative from the selected clusters.
// Implementations live in providers/chat.
type NarrativeGenerator func(ctx context.Context, clusters []domain.Cluster) (domain.Narrative, error)

// Aggregate attempts narrative generation up to MaxAttempts times, each
// bounded by Timeout with exponential backoff between attempts. Exhausting
// all attempts degrades gracefully: the candidates pass through unchanged,
// narrative is nil, and stats record the failure rather than failing the
// stage outright.
func Aggregate(ctx context.Context, clusters []domain.Cluster, cfg AggregateConfig, generate NarrativeGenerator) domain.AggregateOutput {
	if cfg.MaxAttempts <= 0 {
		cfg = DefaultAggregateConfig()
	}
	rng := rand.New(rand.NewSource(1))
	policy := workerpool.RetryPolicy{MaxAttempts: cfg.MaxAttempts, BaseDelay: time.Second, MaxDelay: 8 * time.Second, Jitter: 500 * time.Millisecond}

	var lastErr error
attempts:
	for attempt := 0; attempt < policy.MaxAttempts; attempt++ {
		if attempt > 0 {
			delay := workerpool.ComputeBackoff(attempt-1, policy.BaseDelay, policy.MaxDelay, policy.Jitter, rng)
			select {
			case <-ctx.Done():
				lastErr = ctx.Err()
				break attempts
			case <-time.After(delay):
			}
		}

		callCtx, cancel := context.WithTimeout(ctx, cfg.Timeout)
		narrative, err := generate(callCtx, clusters)
		cancel()
		if err == nil {
			return domain.AggregateOutput{
				Clusters:  clusters,
				Narrative: &narrative,
				Stats:     domain.AggregateStats{NarrativeGenerated: true},
			}
		}
		lastErr = err
	}
	_ = lastErr

	return domain.AggregateOutput{
		Clusters:  clusters,
		Narrative: nil,
		Stats:     domain.AggregateStats{NarrativeGenerated: false},
	}
}

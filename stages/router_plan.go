package stages

import (
	"fmt"
	"time"

	"github.com/wayfarerlabs/discovery-pipeline/domain"
)

// RouterConfig controls how many queries and results each provider's
// worker is assigned.
type RouterConfig struct {
	MaxResultsPerWorker int
	WorkerTimeout       time.Duration
	SkipYoutube         bool
}

// DefaultRouterConfig matches the default per-worker result cap and
// timeout (see pipeline.DefaultLimits).
func DefaultRouterConfig() RouterConfig {
	return RouterConfig{MaxResultsPerWorker: 50, WorkerTimeout: 20 * time.Second}
}

// Route is stage 2: it turns an EnrichedIntent into a WorkerPlan, assigning
// one worker per destination per provider (web, places, and youtube unless
// skipped). Queries combine the destination with the intent's interests and
// inferred tags so each provider worker searches a focused query set.
func Route(intent domain.EnrichedIntent, cfg RouterConfig) domain.WorkerPlan {
	if cfg.MaxResultsPerWorker <= 0 {
		cfg.MaxResultsPerWorker = DefaultRouterConfig().MaxResultsPerWorker
	}
	if cfg.WorkerTimeout <= 0 {
		cfg.WorkerTimeout = DefaultRouterConfig().WorkerTimeout
	}

	queries := buildQueries(intent)
	providers := []string{"web", "places"}
	if !cfg.SkipYoutube {
		providers = append(providers, "youtube")
	}

	var assignments []domain.WorkerAssignment
	for _, destination := range intent.Destinations {
		for _, provider := range providers {
			assignments = append(assignments, domain.WorkerAssignment{
				WorkerID:   fmt.Sprintf("%s:%s", provider, destination),
				Provider:   provider,
				Queries:    queriesFor(destination, queries),
				MaxResults: cfg.MaxResultsPerWorker,
				Timeout:    cfg.WorkerTimeout,
			})
		}
	}

	return domain.WorkerPlan{SessionID: intent.SessionID, Assignments: assignments}
}

func buildQueries(intent domain.EnrichedIntent) []string {
	var queries []string
	queries = append(queries, intent.Interests...)
	queries = append(queries, intent.InferredTags...)
	if len(queries) == 0 {
		queries = []string{"things to do"}
	}
	return queries
}

func queriesFor(destination string, base []string) []string {
	out := make([]string, 0, len(base))
	for _, q := range base {
		out = append(out, fmt.Sprintf("%s %s", q, destination))
	}
	return out
}

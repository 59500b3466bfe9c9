// Package providers defines the narrow interfaces stage 3's workers and
// stage 9's aggregator call through. Concrete SDK usage (HTTP clients,
// Anthropic/OpenAI/Gemini API shapes, the YouTube Data API) never crosses
// these boundaries; callers depend only on the interfaces here.
package providers

import (
	"context"

	"github.com/wayfarerlabs/discovery-pipeline/domain"
)

// WebResearcher answers a grounded-knowledge query with candidate places or
// activities plus their source citations.
type WebResearcher interface {
	Search(ctx context.Context, query string, maxResults int) ([]domain.Candidate, error)
}

// PlacesClient answers a point-of-interest query against a places-like API.
type PlacesClient interface {
	Search(ctx context.Context, query string, maxResults int) ([]domain.Candidate, error)
}

// VideoSocialClient answers a query against a video/social platform (the
// default implementation targets YouTube's Data API).
type VideoSocialClient interface {
	Search(ctx context.Context, query string, maxResults int) ([]domain.Candidate, error)
}

// ChatModel is the narrow surface stage 7 (fact-check) and stage 9
// (narrative) call through, regardless of which vendor backs it.
type ChatModel interface {
	// FactCheck returns a Validation verdict for a single candidate.
	FactCheck(ctx context.Context, c domain.Candidate) (domain.Validation, error)
	// Narrate produces a narrative summary over the selected clusters.
	Narrate(ctx context.Context, clusters []domain.Cluster) (domain.Narrative, error)
	// Model identifies the backing model for cost tracking (e.g. "gpt-4o-mini").
	Model() string
}

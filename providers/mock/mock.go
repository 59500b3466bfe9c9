// Package mock provides deterministic, network-free implementations of the
// providers package interfaces, used by tests and by cmd/pipeline in place
// of any provider that has no credentials configured.
package mock

import (
	"context"
	"fmt"

	"github.com/wayfarerlabs/discovery-pipeline/domain"
)

// SearchFunc lets tests override the result set per query without a full
// struct redefinition.
type SearchFunc func(ctx context.Context, query string, maxResults int) ([]domain.Candidate, error)

// Searcher is a deterministic WebResearcher/PlacesClient/VideoSocialClient
// implementation: it either delegates to Fn or returns Fixed truncated to
// maxResults.
type Searcher struct {
	Fn    SearchFunc
	Fixed []domain.Candidate
	Err   error
}

func (s *Searcher) Search(ctx context.Context, query string, maxResults int) ([]domain.Candidate, error) {
	if s.Fn != nil {
		return s.Fn(ctx, query, maxResults)
	}
	if s.Err != nil {
		return nil, s.Err
	}
	if maxResults > 0 && maxResults < len(s.Fixed) {
		return append([]domain.Candidate{}, s.Fixed[:maxResults]...), nil
	}
	return append([]domain.Candidate{}, s.Fixed...), nil
}

// ChatModel is a deterministic providers.ChatModel: FactCheck always
// verifies, Narrate produces a single-sentence summary giving the cluster
// count plus one highlight per cluster (its ID, noted with the
// representative's title), unless overridden via the Fact/Narration fields.
type ChatModel struct {
	ModelName  string
	Fact       *domain.Validation
	FactErr    error
	Narration  *domain.Narrative
	NarrateErr error
}

func (m *ChatModel) Model() string {
	if m.ModelName == "" {
		return "mock-chat"
	}
	return m.ModelName
}

func (m *ChatModel) FactCheck(ctx context.Context, c domain.Candidate) (domain.Validation, error) {
	if m.FactErr != nil {
		return domain.Validation{}, m.FactErr
	}
	if m.Fact != nil {
		return *m.Fact, nil
	}
	return domain.Validation{Status: domain.ValidationVerified, Notes: "mock verification"}, nil
}

func (m *ChatModel) Narrate(ctx context.Context, clusters []domain.Cluster) (domain.Narrative, error) {
	if m.NarrateErr != nil {
		return domain.Narrative{}, m.NarrateErr
	}
	if m.Narration != nil {
		return *m.Narration, nil
	}
	highlights := make([]domain.Highlight, 0, len(clusters))
	for _, c := range clusters {
		highlights = append(highlights, domain.Highlight{ClusterID: c.ClusterID, Note: c.Representative.Title})
	}
	return domain.Narrative{
		Summary:    fmt.Sprintf("%d candidates selected for this trip.", len(clusters)),
		Highlights: highlights,
	}, nil
}

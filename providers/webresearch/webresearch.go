// Package webresearch implements a providers.WebResearcher on top of a
// generic providers/llm.ChatModel, instructing it to ground its answer in
// web sources and return a structured candidate list.
package webresearch

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/wayfarerlabs/discovery-pipeline/domain"
	"github.com/wayfarerlabs/discovery-pipeline/providers/llm"
)

// Client implements providers.WebResearcher by prompting a ChatModel to
// research a query and cite sources.
type Client struct {
	Model llm.ChatModel
}

// New returns a Client backed by m.
func New(m llm.ChatModel) *Client {
	return &Client{Model: m}
}

const systemPrompt = `You are a travel research assistant grounded in web search. Given a search query, return up to the requested number of real, verifiable places or activities. Respond with ONLY a JSON array, each element: {"title":"...","summary":"...","locationText":"...","sourceUrl":"...","publisher":"...","tags":["..."]}. No prose outside the JSON array.`

// Search asks the model to research query and returns the candidates it
// cites. A candidate carries one sourceRef when the model gave a sourceUrl
// and none otherwise; Confidence is left for the normalizer, which sets it
// from each candidate's own sourceRefs.
func (c *Client) Search(ctx context.Context, query string, maxResults int) ([]domain.Candidate, error) {
	prompt := fmt.Sprintf("Query: %s\nReturn at most %d results.", query, maxResults)
	messages := []llm.Message{
		{Role: llm.RoleSystem, Content: systemPrompt},
		{Role: llm.RoleUser, Content: prompt},
	}

	out, err := c.Model.Chat(ctx, messages, nil)
	if err != nil {
		return nil, fmt.Errorf("webresearch: chat: %w", err)
	}

	var results []researchResult
	if err := json.Unmarshal([]byte(extractJSON(out.Text)), &results); err != nil {
		return nil, fmt.Errorf("webresearch: parse response: %w", err)
	}

	candidates := make([]domain.Candidate, 0, len(results))
	for _, r := range results {
		if r.Title == "" {
			continue
		}
		c := domain.Candidate{
			Type:         domain.CandidateTypeActivity,
			Title:        r.Title,
			Summary:      r.Summary,
			LocationText: r.LocationText,
			Tags:         r.Tags,
		}
		if r.SourceURL != "" {
			c.SourceRefs = []domain.SourceRef{{URL: r.SourceURL, Publisher: r.Publisher}}
		}
		candidates = append(candidates, c)
	}
	if maxResults > 0 && len(candidates) > maxResults {
		candidates = candidates[:maxResults]
	}
	return candidates, nil
}

type researchResult struct {
	Title        string   `json:"title"`
	Summary      string   `json:"summary"`
	LocationText string   `json:"locationText"`
	SourceURL    string   `json:"sourceUrl"`
	Publisher    string   `json:"publisher"`
	Tags         []string `json:"tags"`
}

func extractJSON(text string) string {
	trimmed := strings.TrimSpace(text)
	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSuffix(trimmed, "```")
	return strings.TrimSpace(trimmed)
}

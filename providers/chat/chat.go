// Package chat adapts the generic providers/llm.ChatModel interface (backed
// by Anthropic, OpenAI, or Gemini) into providers.ChatModel's narrow
// fact-check/narrate contract, via JSON-instructed prompts.
package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/wayfarerlabs/discovery-pipeline/domain"
	"github.com/wayfarerlabs/discovery-pipeline/pipeline/cost"
	"github.com/wayfarerlabs/discovery-pipeline/providers/llm"
)

// Backend wraps any providers/llm.ChatModel implementation (Anthropic,
// OpenAI, Gemini, or a test double) as a providers.ChatModel.
type Backend struct {
	Underlying llm.ChatModel
	ModelName  string
	Tracker    *cost.Tracker
}

// New returns a Backend around underlying, identified by modelName for
// cost tracking. tracker may be nil to disable cost recording.
func New(underlying llm.ChatModel, modelName string, tracker *cost.Tracker) *Backend {
	return &Backend{Underlying: underlying, ModelName: modelName, Tracker: tracker}
}

func (b *Backend) Model() string { return b.ModelName }

const factCheckSystemPrompt = `You are a fact-checking assistant for a travel discovery pipeline. Given a candidate place or activity, verify its claims are plausible and respond with ONLY a JSON object of the form {"status":"verified|partially_verified|conflict_detected|unverified|not_applicable","notes":"...","sources":["..."]}. No prose outside the JSON.`

// FactCheck asks the backing model to verify a single candidate's claims.
func (b *Backend) FactCheck(ctx context.Context, c domain.Candidate) (domain.Validation, error) {
	prompt := fmt.Sprintf("Candidate: %s\nLocation: %s\nSummary: %s\nTags: %s",
		c.Title, c.LocationText, c.Summary, strings.Join(c.Tags, ", "))

	messages := []llm.Message{
		{Role: llm.RoleSystem, Content: factCheckSystemPrompt},
		{Role: llm.RoleUser, Content: prompt},
	}

	out, err := b.Underlying.Chat(ctx, messages, nil)
	if err != nil {
		return domain.Validation{}, fmt.Errorf("chat: fact check: %w", err)
	}
	b.recordCost("07_candidates_validated", prompt, out.Text)

	var v domain.Validation
	if err := json.Unmarshal([]byte(extractJSON(out.Text)), &v); err != nil {
		return domain.Validation{}, fmt.Errorf("chat: parse fact-check response: %w", err)
	}
	return v, nil
}

const narrateSystemPrompt = `You are a travel narrative writer. Given a JSON list of ranked trip candidates, respond with ONLY a JSON object of the form {"summary":"...","highlights":[{"clusterId":"...","note":"..."}],"sections":[{"heading":"...","clusterIds":["..."]}],"recommendations":["..."]}. No prose outside the JSON.`

// Narrate asks the backing model to summarize the selected clusters into a
// Narrative.
func (b *Backend) Narrate(ctx context.Context, clusters []domain.Cluster) (domain.Narrative, error) {
	payload, err := json.Marshal(clusters)
	if err != nil {
		return domain.Narrative{}, fmt.Errorf("chat: marshal clusters: %w", err)
	}

	messages := []llm.Message{
		{Role: llm.RoleSystem, Content: narrateSystemPrompt},
		{Role: llm.RoleUser, Content: string(payload)},
	}

	out, err := b.Underlying.Chat(ctx, messages, nil)
	if err != nil {
		return domain.Narrative{}, fmt.Errorf("chat: narrate: %w", err)
	}
	b.recordCost("09_aggregator_output", string(payload), out.Text)

	var n domain.Narrative
	if err := json.Unmarshal([]byte(extractJSON(out.Text)), &n); err != nil {
		return domain.Narrative{}, fmt.Errorf("chat: parse narrate response: %w", err)
	}
	return n, nil
}

func (b *Backend) recordCost(stageID, input, output string) {
	if b.Tracker == nil {
		return
	}
	// ~4 chars/token is a coarse estimate; providers don't expose exact
	// token counts through the narrow ChatModel interface.
	inputTokens := len(input) / 4
	outputTokens := len(output) / 4
	b.Tracker.Record(stageID, b.ModelName, inputTokens, outputTokens)
}

// extractJSON trims a leading/trailing code fence some providers wrap JSON
// responses in despite being asked not to.
func extractJSON(text string) string {
	trimmed := strings.TrimSpace(text)
	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSuffix(trimmed, "```")
	return strings.TrimSpace(trimmed)
}

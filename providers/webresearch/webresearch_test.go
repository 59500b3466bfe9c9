package webresearch

import (
	"context"
	"testing"

	"github.com/wayfarerlabs/discovery-pipeline/providers/llm"
)

type scriptedModel struct {
	response string
	err      error
}

func (s *scriptedModel) Chat(ctx context.Context, messages []llm.Message, tools []llm.ToolSpec) (llm.ChatOut, error) {
	if s.err != nil {
		return llm.ChatOut{}, s.err
	}
	return llm.ChatOut{Text: s.response}, nil
}

func TestSearch_ParsesCandidatesFromJSONArray(t *testing.T) {
	client := New(&scriptedModel{response: `[
		{"title":"Shibuya Crossing","summary":"busy intersection","locationText":"Tokyo","sourceUrl":"https://example.com/a","publisher":"Guide"},
		{"title":"Senso-ji","summary":"ancient temple","locationText":"Tokyo","sourceUrl":"https://example.com/b","publisher":"Guide"}
	]`})

	candidates, err := client.Search(context.Background(), "things to do in tokyo", 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(candidates) != 2 {
		t.Fatalf("expected 2 candidates, got %d", len(candidates))
	}
	if candidates[0].Title != "Shibuya Crossing" {
		t.Fatalf("unexpected first candidate: %+v", candidates[0])
	}
	if len(candidates[0].SourceRefs) != 1 || candidates[0].SourceRefs[0].URL != "https://example.com/a" {
		t.Fatalf("expected a source ref populated from sourceUrl, got %+v", candidates[0].SourceRefs)
	}
}

func TestSearch_SkipsResultsMissingATitle(t *testing.T) {
	client := New(&scriptedModel{response: `[{"title":"","summary":"no title here"},{"title":"Valid","summary":"ok"}]`})

	candidates, err := client.Search(context.Background(), "q", 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(candidates) != 1 || candidates[0].Title != "Valid" {
		t.Fatalf("expected the untitled result to be dropped, got %+v", candidates)
	}
}

func TestSearch_TruncatesToMaxResults(t *testing.T) {
	client := New(&scriptedModel{response: `[{"title":"A"},{"title":"B"},{"title":"C"}]`})

	candidates, err := client.Search(context.Background(), "q", 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(candidates) != 2 {
		t.Fatalf("expected results truncated to maxResults=2, got %d", len(candidates))
	}
}

func TestSearch_PropagatesUnderlyingChatError(t *testing.T) {
	client := New(&scriptedModel{err: errBoom})
	if _, err := client.Search(context.Background(), "q", 5); err == nil {
		t.Fatalf("expected the underlying chat error to propagate")
	}
}

var errBoom = searchError("boom")

type searchError string

func (e searchError) Error() string { return string(e) }

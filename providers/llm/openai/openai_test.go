package openai

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/wayfarerlabs/discovery-pipeline/providers/llm"
)

type fakeBackend struct {
	out   llm.ChatOut
	err   error
	calls int
}

func (f *fakeBackend) createChatCompletion(ctx context.Context, messages []llm.Message, tools []llm.ToolSpec) (llm.ChatOut, error) {
	f.calls++
	if f.err != nil {
		return llm.ChatOut{}, f.err
	}
	return f.out, nil
}

func TestNew_DefaultsModelNameWhenEmpty(t *testing.T) {
	c := New("key", "")
	if c.modelName == "" {
		t.Fatalf("expected a default model name to be set")
	}
}

func TestChat_ReturnsBackendOutputOnFirstSuccess(t *testing.T) {
	backend := &fakeBackend{out: llm.ChatOut{Text: "hello"}}
	c := &Client{backend: backend, maxRetries: 3, retryDelay: time.Millisecond}

	out, err := c.Chat(context.Background(), []llm.Message{{Role: llm.RoleUser, Content: "hi"}}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Text != "hello" {
		t.Fatalf("expected backend text to pass through, got %q", out.Text)
	}
	if backend.calls != 1 {
		t.Fatalf("expected exactly 1 call on success, got %d", backend.calls)
	}
}

func TestChat_RetriesTransientErrorsThenSucceeds(t *testing.T) {
	backend := &retryingBackend{failures: 2, out: llm.ChatOut{Text: "ok"}}
	c := &Client{backend: backend, maxRetries: 3, retryDelay: time.Millisecond}

	out, err := c.Chat(context.Background(), []llm.Message{{Role: llm.RoleUser, Content: "hi"}}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Text != "ok" {
		t.Fatalf("expected eventual success text, got %q", out.Text)
	}
	if backend.calls != 3 {
		t.Fatalf("expected 3 attempts (2 failures + 1 success), got %d", backend.calls)
	}
}

func TestChat_DoesNotRetryNonTransientErrors(t *testing.T) {
	backend := &fakeBackend{err: errors.New("invalid request: bad schema")}
	c := &Client{backend: backend, maxRetries: 3, retryDelay: time.Millisecond}

	_, err := c.Chat(context.Background(), []llm.Message{{Role: llm.RoleUser, Content: "hi"}}, nil)
	if err == nil {
		t.Fatalf("expected an error")
	}
	if backend.calls != 1 {
		t.Fatalf("expected no retries for a non-transient error, got %d calls", backend.calls)
	}
}

func TestChat_GivesUpAfterMaxRetries(t *testing.T) {
	backend := &retryingBackend{failures: 10, out: llm.ChatOut{Text: "never"}}
	c := &Client{backend: backend, maxRetries: 2, retryDelay: time.Millisecond}

	_, err := c.Chat(context.Background(), []llm.Message{{Role: llm.RoleUser, Content: "hi"}}, nil)
	if err == nil {
		t.Fatalf("expected an error after exhausting retries")
	}
	if backend.calls != 3 {
		t.Fatalf("expected maxRetries+1 attempts, got %d", backend.calls)
	}
}

func TestChat_RespectsContextCancellation(t *testing.T) {
	c := &Client{backend: &fakeBackend{out: llm.ChatOut{Text: "hello"}}, maxRetries: 3, retryDelay: time.Millisecond}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.Chat(ctx, []llm.Message{{Role: llm.RoleUser, Content: "hi"}}, nil)
	if err == nil {
		t.Fatalf("expected a cancelled context to short-circuit the call")
	}
}

func TestParseToolInput_ParsesValidJSON(t *testing.T) {
	got := parseToolInput(`{"query":"paris"}`)
	if got["query"] != "paris" {
		t.Fatalf("expected parsed query field, got %v", got)
	}
}

func TestParseToolInput_FallsBackOnInvalidJSON(t *testing.T) {
	got := parseToolInput("not json")
	if got["_raw"] != "not json" {
		t.Fatalf("expected raw fallback, got %v", got)
	}
}

// retryingBackend fails its first N calls with a transient error, then
// succeeds, simulating a rate-limited API recovering.
type retryingBackend struct {
	failures int
	calls    int
	out      llm.ChatOut
}

func (b *retryingBackend) createChatCompletion(ctx context.Context, messages []llm.Message, tools []llm.ToolSpec) (llm.ChatOut, error) {
	b.calls++
	if b.calls <= b.failures {
		return llm.ChatOut{}, &rateLimitError{message: "rate limited"}
	}
	return b.out, nil
}

// Package llm defines the vendor-neutral chat transport that
// providers/chat.Backend drives: a single Chat call shared by the
// Anthropic, Google, and OpenAI backends under this package.
package llm

import "context"

// ChatModel is implemented by each vendor backend (anthropic.Client,
// google.Client, openai.Client). providers/chat.Backend is the only caller.
type ChatModel interface {
	Chat(ctx context.Context, messages []Message, tools []ToolSpec) (ChatOut, error)
}

// Message is one turn in a conversation sent to Chat.
type Message struct {
	Role    string
	Content string
}

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ToolSpec describes a tool the model may call. Unused by this repo's
// callers (providers/chat and providers/webresearch always pass nil), kept
// because every backend's wire format supports it.
type ToolSpec struct {
	Name        string
	Description string
	Schema      map[string]interface{}
}

// ChatOut is Chat's response: generated text, and/or tool calls the backend
// wants executed.
type ChatOut struct {
	Text      string
	ToolCalls []ToolCall
}

// ToolCall is a single tool invocation requested by the model.
type ToolCall struct {
	Name  string
	Input map[string]interface{}
}

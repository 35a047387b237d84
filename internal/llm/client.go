package llm

import "context"

// Roles used in Message.Role. Tool results travel as RoleUser messages with
// ToolCallID set; each provider maps them to its own wire shape.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

type Message struct {
	Role       string     `json:"role"`
	Content    string     `json:"content,omitempty"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"` // for tool result messages
}

// UserMessage is a plain message typed by the user.
func UserMessage(text string) Message {
	return Message{Role: RoleUser, Content: text}
}

// ToolResult answers the tool call with the given ID.
func ToolResult(callID, content string) Message {
	return Message{Role: RoleUser, Content: content, ToolCallID: callID}
}

// IsToolResult reports whether m carries the output of a tool call.
func (m Message) IsToolResult() bool {
	return m.ToolCallID != ""
}

type ToolCall struct {
	ID     string         `json:"id"`
	Name   string         `json:"name"`
	Params map[string]any `json:"params"`
}

type Response struct {
	Content   string
	ToolCalls []ToolCall
}

type Tool struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"` // JSON Schema
}

// Client is one chat-completion backend.
type Client interface {
	Chat(ctx context.Context, systemPrompt string, messages []Message, tools []Tool) (*Response, error)
}

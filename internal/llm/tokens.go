package llm

import (
	"encoding/json"
	"unicode/utf8"
)

// charsPerToken approximates English text. Reflection messages are full of
// emoji and punctuation, so characters are counted as runes, not bytes.
const charsPerToken = 4

// outputReserve is kept free in the context window for the model's reply.
const outputReserve = 4096

// minMessageBudget guarantees room for at least the current turn.
const minMessageBudget = 1000

// EstimateTokens returns a rough token count for a string, rounded up.
func EstimateTokens(s string) int {
	n := utf8.RuneCountInString(s)
	if n == 0 {
		return 0
	}
	return (n + charsPerToken - 1) / charsPerToken
}

// EstimateMessageTokens counts content, tool calls and per-message framing.
func EstimateMessageTokens(m Message) int {
	tokens := 4 // role and delimiters
	tokens += EstimateTokens(m.Content)
	for _, tc := range m.ToolCalls {
		tokens += EstimateTokens(tc.Name)
		if params, err := json.Marshal(tc.Params); err == nil {
			tokens += EstimateTokens(string(params))
		}
		tokens += 4
	}
	if m.IsToolResult() {
		tokens += EstimateTokens(m.ToolCallID) + 2
	}
	return tokens
}

func EstimateMessagesTokens(messages []Message) int {
	total := 0
	for _, m := range messages {
		total += EstimateMessageTokens(m)
	}
	return total
}

// EstimateToolsTokens counts tool definitions, which are sent as JSON schema
// with every request.
func EstimateToolsTokens(tools []Tool) int {
	total := 0
	for _, t := range tools {
		total += EstimateTokens(t.Name)
		total += EstimateTokens(t.Description)
		if schema, err := json.Marshal(t.Parameters); err == nil {
			total += EstimateTokens(string(schema))
		}
		total += 10
	}
	return total
}

// MessageBudget is what is left of maxContext for the message history once
// the system prompt, the tools and the reply reserve are paid for.
func MessageBudget(maxContext int, systemPrompt string, tools []Tool) int {
	budget := maxContext - EstimateTokens(systemPrompt) - EstimateToolsTokens(tools) - outputReserve
	if budget < minMessageBudget {
		return minMessageBudget
	}
	return budget
}

package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	anthropicAPI     = "https://api.anthropic.com/v1/messages"
	anthropicVersion = "2023-06-01"
	anthropicModel   = "claude-sonnet-4-20250514"
	maxOutputTokens  = 4096
	maxRetries       = 2
)

// AnthropicClient calls the Messages API over plain HTTP. Rate-limit and
// overload responses are retried with exponential backoff.
type AnthropicClient struct {
	apiKey    string
	authToken string
	model     string
	endpoint  string
	backoff   time.Duration
	http      *http.Client
}

func NewAnthropicClient(apiKey, authToken, model string) *AnthropicClient {
	return &AnthropicClient{
		apiKey:    apiKey,
		authToken: authToken,
		model:     modelOr(model, anthropicModel),
		endpoint:  anthropicAPI,
		backoff:   time.Second,
		http:      &http.Client{Timeout: 2 * time.Minute},
	}
}

type anthRequest struct {
	Model     string        `json:"model"`
	MaxTokens int           `json:"max_tokens"`
	System    []anthText    `json:"system,omitempty"`
	Messages  []anthMessage `json:"messages"`
	Tools     []anthTool    `json:"tools,omitempty"`
}

type anthText struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type anthMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"` // string or []anthBlock
}

type anthBlock struct {
	Type      string          `json:"type"`
	Text      string          `json:"text,omitempty"`
	ID        string          `json:"id,omitempty"`
	Name      string          `json:"name,omitempty"`
	Input     json.RawMessage `json:"input,omitempty"`
	ToolUseID string          `json:"tool_use_id,omitempty"`
	Content   string          `json:"content,omitempty"`
}

type anthTool struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	InputSchema map[string]any `json:"input_schema"`
}

type anthResponse struct {
	Content []anthBlock `json:"content"`
	Error   *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func (c *AnthropicClient) Chat(ctx context.Context, systemPrompt string, messages []Message, tools []Tool) (*Response, error) {
	body, err := json.Marshal(anthRequest{
		Model:     c.model,
		MaxTokens: maxOutputTokens,
		System:    []anthText{{Type: "text", Text: systemPrompt}},
		Messages:  anthropicMessages(messages),
		Tools:     anthropicTools(tools),
	})
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(c.backoff << (attempt - 1)):
			}
		}
		resp, retry, err := c.post(ctx, body)
		if err == nil {
			return resp, nil
		}
		lastErr = err
		if !retry {
			break
		}
	}
	return nil, lastErr
}

// post sends one request. retry reports whether the failure is worth another
// attempt (429, 5xx and 529 overloaded).
func (c *AnthropicClient) post(ctx context.Context, body []byte) (*Response, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, false, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("anthropic-version", anthropicVersion)
	req.Header.Set("User-Agent", "attune/1.0")
	if c.authToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.authToken)
		req.Header.Set("anthropic-beta", "oauth-2025-04-20")
	} else if c.apiKey != "" {
		req.Header.Set("X-Api-Key", c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, ctx.Err() == nil, fmt.Errorf("anthropic request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, true, fmt.Errorf("reading response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		retry := resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500
		return nil, retry, fmt.Errorf("anthropic chat: %s %s", resp.Status, apiError(respBody))
	}

	var out anthResponse
	if err := json.Unmarshal(respBody, &out); err != nil {
		return nil, false, fmt.Errorf("parsing response: %w", err)
	}
	return out.toResponse(), false, nil
}

func apiError(body []byte) string {
	var r anthResponse
	if json.Unmarshal(body, &r) == nil && r.Error != nil {
		return r.Error.Type + ": " + r.Error.Message
	}
	return string(body)
}

// anthropicTools keeps only the schema keys the API accepts.
func anthropicTools(tools []Tool) []anthTool {
	out := make([]anthTool, len(tools))
	for i, t := range tools {
		schema := map[string]any{"type": "object"}
		if props, ok := t.Parameters["properties"]; ok {
			schema["properties"] = props
		}
		if req, ok := t.Parameters["required"]; ok {
			schema["required"] = req
		}
		out[i] = anthTool{Name: t.Name, Description: t.Description, InputSchema: schema}
	}
	return out
}

func anthropicMessages(messages []Message) []anthMessage {
	var out []anthMessage
	for _, m := range messages {
		switch {
		case m.IsToolResult():
			out = append(out, anthMessage{Role: RoleUser, Content: []anthBlock{{
				Type:      "tool_result",
				ToolUseID: m.ToolCallID,
				Content:   m.Content,
			}}})
		case m.Role == RoleAssistant && len(m.ToolCalls) > 0:
			var blocks []anthBlock
			if m.Content != "" {
				blocks = append(blocks, anthBlock{Type: "text", Text: m.Content})
			}
			for _, tc := range m.ToolCalls {
				input, _ := json.Marshal(tc.Params)
				blocks = append(blocks, anthBlock{Type: "tool_use", ID: tc.ID, Name: tc.Name, Input: input})
			}
			out = append(out, anthMessage{Role: RoleAssistant, Content: blocks})
		case m.Role == RoleUser || m.Role == RoleAssistant:
			out = append(out, anthMessage{Role: m.Role, Content: m.Content})
		}
	}
	return out
}

func (r anthResponse) toResponse() *Response {
	out := &Response{}
	for _, block := range r.Content {
		switch block.Type {
		case "text":
			out.Content += block.Text
		case "tool_use":
			params := map[string]any{}
			_ = json.Unmarshal(block.Input, &params)
			out.ToolCalls = append(out.ToolCalls, ToolCall{ID: block.ID, Name: block.Name, Params: params})
		}
	}
	return out
}

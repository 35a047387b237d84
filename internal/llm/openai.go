package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/packages/param"
)

// OpenAIClient talks to OpenAI or any server speaking its chat-completions
// protocol (Ollama).
type OpenAIClient struct {
	client openai.Client
	model  string
}

func NewOpenAIClient(apiKey, model, baseURL string, extra ...option.RequestOption) *OpenAIClient {
	opts := []option.RequestOption{
		option.WithRequestTimeout(2 * time.Minute),
		option.WithHeader("User-Agent", "attune/1.0"),
	}
	if apiKey != "" {
		opts = append(opts, option.WithAPIKey(apiKey))
	}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	opts = append(opts, extra...)
	return &OpenAIClient{client: openai.NewClient(opts...), model: modelOr(model, defaultOpenAIModel)}
}

func (c *OpenAIClient) Chat(ctx context.Context, systemPrompt string, messages []Message, tools []Tool) (*Response, error) {
	resp, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(c.model),
		Messages: openAIMessages(systemPrompt, messages),
		Tools:    openAITools(tools),
	})
	if err != nil {
		return nil, fmt.Errorf("openai chat: %w", err)
	}
	if len(resp.Choices) == 0 {
		return &Response{}, nil
	}
	return fromOpenAI(resp.Choices[0].Message), nil
}

func openAITools(tools []Tool) []openai.ChatCompletionToolUnionParam {
	out := make([]openai.ChatCompletionToolUnionParam, len(tools))
	for i, t := range tools {
		out[i] = openai.ChatCompletionFunctionTool(openai.FunctionDefinitionParam{
			Name:        t.Name,
			Description: openai.String(t.Description),
			Parameters:  openai.FunctionParameters(t.Parameters),
		})
	}
	return out
}

func openAIMessages(systemPrompt string, messages []Message) []openai.ChatCompletionMessageParamUnion {
	out := []openai.ChatCompletionMessageParamUnion{openai.SystemMessage(systemPrompt)}
	for _, m := range messages {
		switch {
		case m.IsToolResult():
			out = append(out, openai.ToolMessage(m.Content, m.ToolCallID))
		case m.Role == RoleUser:
			out = append(out, openai.UserMessage(m.Content))
		case m.Role == RoleAssistant && len(m.ToolCalls) > 0:
			out = append(out, openAIToolCalls(m))
		case m.Role == RoleAssistant:
			out = append(out, openai.AssistantMessage(m.Content))
		}
	}
	return out
}

func openAIToolCalls(m Message) openai.ChatCompletionMessageParamUnion {
	calls := make([]openai.ChatCompletionMessageToolCallUnionParam, len(m.ToolCalls))
	for i, tc := range m.ToolCalls {
		args, _ := json.Marshal(tc.Params)
		calls[i] = openai.ChatCompletionMessageToolCallUnionParam{
			OfFunction: &openai.ChatCompletionMessageFunctionToolCallParam{
				ID: tc.ID,
				Function: openai.ChatCompletionMessageFunctionToolCallFunctionParam{
					Name:      tc.Name,
					Arguments: string(args),
				},
			},
		}
	}
	return openai.ChatCompletionMessageParamUnion{
		OfAssistant: &openai.ChatCompletionAssistantMessageParam{
			Content: openai.ChatCompletionAssistantMessageParamContentUnion{
				OfString: param.NewOpt(m.Content),
			},
			ToolCalls: calls,
		},
	}
}

// fromOpenAI converts a reply. Unparseable tool arguments become empty
// params so the agent reports a missing-parameter error instead of failing
// the whole turn.
func fromOpenAI(msg openai.ChatCompletionMessage) *Response {
	out := &Response{Content: msg.Content}
	for _, tc := range msg.ToolCalls {
		fn := tc.AsFunction()
		params := map[string]any{}
		_ = json.Unmarshal([]byte(fn.Function.Arguments), &params)
		out.ToolCalls = append(out.ToolCalls, ToolCall{ID: fn.ID, Name: fn.Function.Name, Params: params})
	}
	return out
}

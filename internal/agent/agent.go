package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/chris/attune/internal/checkin"
	"github.com/chris/attune/internal/db"
	"github.com/chris/attune/internal/llm"
)

const maxToolRounds = 10

type Agent struct {
	checkin          *checkin.Service
	db               *db.DB
	client           llm.Client
	log              *zap.Logger
	MaxContextTokens int
}

func New(svc *checkin.Service, database *db.DB, client llm.Client, maxContextTokens int, log *zap.Logger) *Agent {
	if log == nil {
		log = zap.NewNop()
	}
	return &Agent{checkin: svc, db: database, client: client, log: log, MaxContextTokens: maxContextTokens}
}

// Run takes a user message, runs the tool-calling loop, and returns the final text response.
func (a *Agent) Run(ctx context.Context, history []llm.Message, userMessage string) (string, []llm.Message, error) {
	messages := make([]llm.Message, len(history))
	copy(messages, history)
	messages = append(messages, llm.UserMessage(userMessage))

	system := llm.SystemPrompt + "\n\n" + BuildContext(ctx, a.checkin)

	messageBudget := llm.MessageBudget(a.MaxContextTokens, system, llm.AgentTools)

	for i := 0; i < maxToolRounds; i++ {
		trimmed := llm.TrimMessages(messages, messageBudget)
		if len(trimmed) < len(messages) {
			a.log.Debug("context trimmed", zap.Int("from", len(messages)), zap.Int("to", len(trimmed)))
		}
		resp, err := a.client.Chat(ctx, system, trimmed, llm.AgentTools)
		if err != nil {
			return "", nil, fmt.Errorf("llm chat: %w", err)
		}

		// No tool calls: final answer
		if len(resp.ToolCalls) == 0 {
			messages = append(messages, llm.Message{Role: llm.RoleAssistant, Content: resp.Content})
			return resp.Content, messages, nil
		}

		// Append assistant message with tool calls
		messages = append(messages, llm.Message{
			Role:      llm.RoleAssistant,
			Content:   resp.Content,
			ToolCalls: resp.ToolCalls,
		})

		// Execute each tool call and append results
		for _, tc := range resp.ToolCalls {
			result := a.executeTool(ctx, tc.Name, tc.Params)
			a.log.Debug("tool call", zap.String("tool", tc.Name), zap.String("result", truncate(result, 200)))
			messages = append(messages, llm.ToolResult(tc.ID, result))
		}
	}

	return "I hit the maximum number of tool calls. Here's what I have so far.", messages, nil
}

func (a *Agent) executeTool(ctx context.Context, name string, params map[string]any) string {
	var result any
	var err error

	switch name {
	case "track_response":
		field, _ := getString(params, "field")
		value, _ := getString(params, "value")
		date, _ := getString(params, "date")
		values, _ := getStrings(params, "values")
		out, e := a.checkin.Track(ctx, checkin.TrackRequest{
			Date:   date,
			Field:  field,
			Value:  value,
			Values: values,
		})
		if e != nil {
			err = e
		} else {
			r := map[string]any{
				"status":   "tracked",
				"field":    out.Field.String(),
				"complete": out.Result.Complete,
				"message":  out.Message,
			}
			if out.Result.Ignored {
				r["status"] = "ignored"
			}
			if out.Reflection != "" {
				r["reflection"] = out.Reflection
			}
			result = r
		}

	case "get_insight":
		text, e := a.checkin.Insight(ctx)
		if e != nil {
			err = e
		} else {
			result = map[string]any{"insight": text}
		}

	case "get_consolidated":
		date, _ := getString(params, "date")
		text, e := a.checkin.Consolidated(ctx, date)
		if e != nil {
			err = e
		} else {
			result = map[string]any{"reflection": text}
		}

	case "get_weekly_summary":
		report, e := a.checkin.Weekly(ctx)
		if e != nil {
			err = e
		} else {
			result = map[string]any{"summary": report.Text()}
		}

	case "get_tracking_summary":
		result, err = a.checkin.State(ctx)

	case "get_note":
		key, _ := getString(params, "key")
		if key == "" {
			notes, e := a.db.ListNotes()
			if e != nil {
				err = e
			} else {
				result = map[string]any{"notes": notes}
			}
			break
		}
		val, e := a.db.GetNote(key)
		if e != nil {
			err = e
		} else if val == "" {
			result = map[string]any{"value": nil, "message": "no note found for this key"}
		} else {
			result = map[string]any{"value": val}
		}

	case "set_note":
		key, _ := getString(params, "key")
		value, _ := getString(params, "value")
		err = a.db.SetUserNote(key, value)
		if err == nil {
			result = map[string]any{"status": "saved"}
		}

	case "get_time":
		now := a.checkin.Store().Today()
		result = map[string]any{
			"local": now.Format(time.RFC3339),
			"utc":   now.UTC().Format(time.RFC3339),
			"date":  now.Format("2006-01-02"),
			"day":   now.Weekday().String(),
		}

	default:
		result = map[string]any{"error": "unknown tool: " + name}
	}

	if err != nil {
		result = map[string]any{"error": err.Error()}
	}

	b, _ := json.Marshal(result) // results are plain maps or the tracking state; marshal cannot fail
	return string(b)
}

func getString(params map[string]any, key string) (string, bool) {
	v, ok := params[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// getStrings reads a JSON array of strings. LLMs send arrays as []any.
func getStrings(params map[string]any, key string) ([]string, bool) {
	v, ok := params[key]
	if !ok {
		return nil, false
	}
	switch arr := v.(type) {
	case []string:
		return arr, true
	case []any:
		out := make([]string, 0, len(arr))
		for _, item := range arr {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out, true
	}
	return nil, false
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

package agent

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/chris/attune/internal/checkin"
	"github.com/chris/attune/internal/db"
	"github.com/chris/attune/internal/insight"
	"github.com/chris/attune/internal/llm"
	"github.com/chris/attune/internal/tracking"
)

// scriptedClient replays canned responses and records what it was sent.
type scriptedClient struct {
	responses []*llm.Response
	systems   []string
	calls     int
	err       error
}

func (c *scriptedClient) Chat(_ context.Context, system string, _ []llm.Message, _ []llm.Tool) (*llm.Response, error) {
	if c.err != nil {
		return nil, c.err
	}
	c.systems = append(c.systems, system)
	r := c.responses[c.calls%len(c.responses)]
	c.calls++
	return r, nil
}

func newTestAgent(t *testing.T, client llm.Client) *Agent {
	t.Helper()
	database, err := db.Open(":memory:")
	if err != nil {
		t.Fatalf("opening db: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	now := time.Date(2026, 3, 10, 21, 0, 0, 0, time.UTC)
	store := tracking.NewStore(filepath.Join(t.TempDir(), "tracking.json"),
		tracking.WithClock(func() time.Time { return now }),
		tracking.WithLocation(time.UTC),
	)
	return New(checkin.New(store), database, client, 100000, nil)
}

func toolCall(id, name string, params map[string]any) *llm.Response {
	return &llm.Response{ToolCalls: []llm.ToolCall{{ID: id, Name: name, Params: params}}}
}

func decode(t *testing.T, s string) map[string]any {
	t.Helper()
	var m map[string]any
	if err := json.Unmarshal([]byte(s), &m); err != nil {
		t.Fatalf("decoding tool result %q: %v", s, err)
	}
	return m
}

// --- Run ---

func TestRun_TracksThroughTools(t *testing.T) {
	client := &scriptedClient{responses: []*llm.Response{
		toolCall("c1", "track_response", map[string]any{"field": "emotion", "value": "8"}),
		{Content: "Noted, an 8."},
	}}
	a := newTestAgent(t, client)

	reply, history, err := a.Run(context.Background(), nil, "emotion was an 8")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if reply != "Noted, an 8." {
		t.Errorf("reply = %q", reply)
	}
	// user, assistant tool call, tool result, assistant answer
	if len(history) != 4 {
		t.Fatalf("expected 4 messages, got %d", len(history))
	}
	if history[2].ToolCallID != "c1" || decode(t, history[2].Content)["status"] != "tracked" {
		t.Errorf("unexpected tool result: %+v", history[2])
	}

	state, err := a.checkin.State(context.Background())
	if err != nil {
		t.Fatalf("State: %v", err)
	}
	if e, ok := state.Entry("2026-03-10"); !ok || *e.Emotion != 8 {
		t.Errorf("emotion not recorded: %+v", state.Days)
	}
	if !strings.Contains(client.systems[0], "## Today\n2026-03-10 (Tuesday)") {
		t.Errorf("system prompt missing today context:\n%s", client.systems[0])
	}
}

func TestRun_StopsAfterMaxRounds(t *testing.T) {
	client := &scriptedClient{responses: []*llm.Response{
		toolCall("loop", "get_time", nil),
	}}
	a := newTestAgent(t, client)

	reply, _, err := a.Run(context.Background(), nil, "what time is it")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if client.calls != maxToolRounds {
		t.Errorf("expected %d calls, got %d", maxToolRounds, client.calls)
	}
	if !strings.Contains(reply, "maximum number of tool calls") {
		t.Errorf("reply = %q", reply)
	}
}

func TestRun_ClientError(t *testing.T) {
	a := newTestAgent(t, &scriptedClient{err: errors.New("offline")})
	if _, _, err := a.Run(context.Background(), nil, "hi"); err == nil {
		t.Fatal("expected error")
	}
}

// --- executeTool ---

func TestExecuteTool_CompleteDayReturnsReflection(t *testing.T) {
	a := newTestAgent(t, nil)
	ctx := context.Background()

	for field, value := range map[string]string{"presence": "9", "emotion": "8", "gratitude": "7"} {
		a.executeTool(ctx, "track_response", map[string]any{"field": field, "value": value})
	}
	got := decode(t, a.executeTool(ctx, "track_response", map[string]any{"field": "meditation_times", "value": "2x"}))
	if got["complete"] != true {
		t.Errorf("expected complete, got %v", got)
	}
	if r, _ := got["reflection"].(string); !strings.Contains(r, insight.TierElevated) {
		t.Errorf("expected elevated reflection, got %q", r)
	}

	got = decode(t, a.executeTool(ctx, "get_consolidated", map[string]any{}))
	if r, _ := got["reflection"].(string); !strings.Contains(r, "9/10") {
		t.Errorf("consolidated = %v", got)
	}
}

func TestExecuteTool_Gratitudes(t *testing.T) {
	a := newTestAgent(t, nil)
	ctx := context.Background()

	a.executeTool(ctx, "track_response", map[string]any{
		"field":  "gratitudes",
		"values": []any{"health", "the sea", 3},
	})
	state, _ := a.checkin.State(ctx)
	e, _ := state.Entry("2026-03-10")
	if strings.Join(e.Gratitudes, "|") != "health|the sea" {
		t.Errorf("gratitudes = %v", e.Gratitudes)
	}
}

func TestExecuteTool_Errors(t *testing.T) {
	a := newTestAgent(t, nil)
	ctx := context.Background()

	got := decode(t, a.executeTool(ctx, "track_response", map[string]any{"field": "presence", "value": "11"}))
	if e, _ := got["error"].(string); !strings.Contains(e, "out of range") {
		t.Errorf("expected range error, got %v", got)
	}
	got = decode(t, a.executeTool(ctx, "track_response", map[string]any{"field": "mood", "value": "5"}))
	if got["status"] != "ignored" {
		t.Errorf("expected ignored, got %v", got)
	}
	got = decode(t, a.executeTool(ctx, "launch_rocket", nil))
	if got["error"] != "unknown tool: launch_rocket" {
		t.Errorf("unexpected: %v", got)
	}
}

func TestExecuteTool_NotesAndTime(t *testing.T) {
	a := newTestAgent(t, nil)
	ctx := context.Background()

	got := decode(t, a.executeTool(ctx, "get_note", map[string]any{"key": "partner"}))
	if got["value"] != nil {
		t.Errorf("expected nil value, got %v", got)
	}
	a.executeTool(ctx, "set_note", map[string]any{"key": "partner", "value": "Alex"})
	got = decode(t, a.executeTool(ctx, "get_note", map[string]any{"key": "partner"}))
	if got["value"] != "Alex" {
		t.Errorf("expected Alex, got %v", got)
	}

	got = decode(t, a.executeTool(ctx, "set_note", map[string]any{"key": "_discord_user_id", "value": "x"}))
	if got["error"] == nil {
		t.Errorf("expected reserved key to be refused, got %v", got)
	}
	got = decode(t, a.executeTool(ctx, "get_note", map[string]any{}))
	notes, ok := got["notes"].([]any)
	if !ok || len(notes) != 1 {
		t.Errorf("expected one listed note, got %v", got)
	}

	got = decode(t, a.executeTool(ctx, "get_time", nil))
	if got["date"] != "2026-03-10" || got["day"] != "Tuesday" {
		t.Errorf("unexpected time: %v", got)
	}
}

// --- BuildContext ---

func TestBuildContext(t *testing.T) {
	a := newTestAgent(t, nil)
	ctx := context.Background()

	if got := BuildContext(ctx, a.checkin); !strings.Contains(got, "Nothing recorded yet.") {
		t.Errorf("empty day:\n%s", got)
	}
	a.executeTool(ctx, "track_response", map[string]any{"field": "emotion", "value": "6"})
	got := BuildContext(ctx, a.checkin)
	if !strings.Contains(got, "Answered: emotion") || !strings.Contains(got, "Still missing: presence, gratitude, meditation_times") {
		t.Errorf("partial day:\n%s", got)
	}
}

// --- getStrings ---

func TestGetStrings_AnySlice(t *testing.T) {
	v, ok := getStrings(map[string]any{"values": []any{"a", 1, "b"}}, "values")
	if !ok || strings.Join(v, ",") != "a,b" {
		t.Errorf("expected ([a b], true), got (%v, %v)", v, ok)
	}
}

func TestGetStrings_StringSlice(t *testing.T) {
	v, ok := getStrings(map[string]any{"values": []string{"x"}}, "values")
	if !ok || len(v) != 1 {
		t.Errorf("expected ([x], true), got (%v, %v)", v, ok)
	}
}

func TestGetStrings_MissingOrWrongType(t *testing.T) {
	if _, ok := getStrings(map[string]any{}, "values"); ok {
		t.Error("expected false for missing key")
	}
	if _, ok := getStrings(map[string]any{"values": "a"}, "values"); ok {
		t.Error("expected false for a plain string")
	}
}

// --- getString ---

func TestGetString_Present(t *testing.T) {
	p := map[string]any{"key": "value"}
	v, ok := getString(p, "key")
	if !ok || v != "value" {
		t.Errorf("expected (value, true), got (%s, %v)", v, ok)
	}
}

func TestGetString_MissingKey(t *testing.T) {
	p := map[string]any{}
	v, ok := getString(p, "key")
	if ok || v != "" {
		t.Errorf("expected ('', false), got (%s, %v)", v, ok)
	}
}

func TestGetString_WrongType(t *testing.T) {
	p := map[string]any{"key": 123}
	_, ok := getString(p, "key")
	if ok {
		t.Error("expected false for non-string value")
	}
}

func TestGetString_EmptyString(t *testing.T) {
	p := map[string]any{"key": ""}
	v, ok := getString(p, "key")
	if !ok || v != "" {
		t.Errorf("expected ('', true), got (%s, %v)", v, ok)
	}
}

// --- truncate ---

func TestTruncate_Short(t *testing.T) {
	got := truncate("hello", 10)
	if got != "hello" {
		t.Errorf("expected 'hello', got %q", got)
	}
}

func TestTruncate_Exact(t *testing.T) {
	got := truncate("hello", 5)
	if got != "hello" {
		t.Errorf("expected 'hello', got %q", got)
	}
}

func TestTruncate_Long(t *testing.T) {
	got := truncate("hello world", 5)
	if got != "hello..." {
		t.Errorf("expected 'hello...', got %q", got)
	}
}

func TestTruncate_Empty(t *testing.T) {
	got := truncate("", 5)
	if got != "" {
		t.Errorf("expected '', got %q", got)
	}
}

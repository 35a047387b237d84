package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chris/attune/internal/checkin"
	"github.com/chris/attune/internal/llm"
	"github.com/chris/attune/internal/scheduler"
)

// isolate points every path at a temp dir and clears the delivery and LLM
// settings so nothing on the host leaks in.
func isolate(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("ATTUNE_HOME", home)
	t.Setenv("TRACKING_PATH", filepath.Join(home, "tracking.json"))
	t.Setenv("DATABASE_PATH", filepath.Join(home, "attune.db"))
	t.Setenv("TIMEZONE", "UTC")
	t.Setenv("LOG_LEVEL", "error")
	for _, k := range []string{
		"USER_NAME", "PROMPT_LIBRARY", "DISCORD_BOT_TOKEN", "DISCORD_WEBHOOK_URL",
		"LLM_PROVIDER", "ANTHROPIC_API_KEY", "ANTHROPIC_AUTH_TOKEN", "OPENAI_API_KEY",
		"OLLAMA_BASE_URL",
	} {
		t.Setenv(k, "")
	}
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(wd) })
	return home
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := NewRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(io.Discard)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func mustRun(t *testing.T, args ...string) string {
	t.Helper()
	out, err := run(t, args...)
	require.NoError(t, err, "attune %s", strings.Join(args, " "))
	return out
}

func TestTrackAndReports(t *testing.T) {
	isolate(t)

	out := mustRun(t, "track", "emotion", "8")
	assert.Contains(t, out, "✓ Tracked: emotion = 8")
	assert.Contains(t, out, "Streak 1")

	assert.Equal(t, "✓ presence\n", mustRun(t, "track", "--silent", "presence", "9"))

	out = mustRun(t, "consolidated")
	assert.Equal(t, checkin.IncompleteToday+"\n", out)

	mustRun(t, "track", "gratitude", "7")
	out = mustRun(t, "track", "meditate", "1x")
	assert.Contains(t, out, "9/10", "completing the day includes the reflection")

	out = mustRun(t, "consolidated")
	assert.Contains(t, out, "8/10")

	out = mustRun(t, "summary")
	var doc map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &doc))
	assert.Len(t, doc["days"], 1)

	out = mustRun(t, "status")
	assert.Contains(t, out, "Your stats")
	assert.Contains(t, out, "today")

	assert.NotEmpty(t, mustRun(t, "insight"))
	assert.NotEmpty(t, mustRun(t, "weekly"))
}

func TestTrackErrors(t *testing.T) {
	isolate(t)

	_, err := run(t, "track", "emotion", "11")
	assert.Error(t, err)

	_, err = run(t, "track", "emotion")
	assert.Error(t, err, "missing value")

	_, err = run(t, "track", "2999-01-01", "emotion", "5")
	assert.Error(t, err)

	out := mustRun(t, "track", "mood", "5")
	assert.Contains(t, out, "ignored unknown field")
}

func TestConsolidatedForOtherDay(t *testing.T) {
	isolate(t)
	out := mustRun(t, "consolidated", "--date", "2020-01-01")
	assert.Equal(t, "No entry for 2020-01-01.\n", out)
}

func TestSchedules(t *testing.T) {
	isolate(t)

	assert.Contains(t, mustRun(t, "schedule", "list"), "No schedules")

	mustRun(t, "schedule", "add", "morning", "voice", "0 7 * * *", "--arg", "morning_intention")
	mustRun(t, "schedule", "add", "nudge", "prompt", "0 12 * * *")

	_, err := run(t, "schedule", "add", "bad", "prompt", "every day")
	assert.Error(t, err, "invalid cron")
	_, err = run(t, "schedule", "add", "bad", "podcast", "0 7 * * *")
	assert.Error(t, err, "unknown kind")
	_, err = run(t, "schedule", "add", "bad", "voice", "0 7 * * *")
	assert.Error(t, err, "voice needs a moment")

	assert.Equal(t, "✓ Disabled nudge\n", mustRun(t, "schedule", "disable", "nudge"))
	out := mustRun(t, "schedules", "list")
	assert.Contains(t, out, "morning")
	assert.Contains(t, out, "morning_intention")
	assert.Regexp(t, `nudge\s+prompt\s+0 12 \* \* \*\s+false`, out)

	_, err = run(t, "schedule", "enable", "missing")
	assert.Error(t, err)

	mustRun(t, "schedule", "rm", "nudge")
	assert.NotContains(t, mustRun(t, "schedule", "list"), "nudge")
}

type webhookSink struct {
	mu       sync.Mutex
	contents []string
}

func (s *webhookSink) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Content string `json:"content"`
	}
	_ = json.NewDecoder(r.Body).Decode(&body)
	s.mu.Lock()
	s.contents = append(s.contents, body.Content)
	s.mu.Unlock()
	w.WriteHeader(http.StatusNoContent)
}

func TestSendViaWebhook(t *testing.T) {
	isolate(t)
	sink := &webhookSink{}
	srv := httptest.NewServer(sink)
	defer srv.Close()
	t.Setenv("DISCORD_WEBHOOK_URL", srv.URL)

	assert.Equal(t, "✓ Sent weekly\n", mustRun(t, "send", "weekly"))
	mustRun(t, "send", "voice", "evening_sats")

	sink.mu.Lock()
	require.Len(t, sink.contents, 2)
	assert.Contains(t, sink.contents[1], "🎧")
	sink.mu.Unlock()

	_, err := run(t, "send", "voice", "nap")
	assert.ErrorContains(t, err, "evening_sats")

	out := mustRun(t, "deliveries")
	assert.Contains(t, out, "voice")
	assert.Contains(t, out, "webhook")

	out = mustRun(t, "deliveries", "--kind", "weekly")
	assert.NotContains(t, out, "voice")
}

func TestSendWithoutChannel(t *testing.T) {
	isolate(t)
	_, err := run(t, "send", "weekly")
	assert.ErrorIs(t, err, scheduler.ErrNoChannel)

	out := mustRun(t, "deliveries")
	assert.Contains(t, out, "failed")
}

func TestRunAndChatNeedConfig(t *testing.T) {
	isolate(t)
	_, err := run(t, "run")
	assert.ErrorIs(t, err, errNothingToRun)

	_, err = run(t, "chat")
	assert.ErrorIs(t, err, errNoLLM)
}

func TestChatLoop(t *testing.T) {
	var seen [][]llm.Message
	echo := func(_ context.Context, history []llm.Message, msg string) (string, []llm.Message, error) {
		seen = append(seen, history)
		next := append(append([]llm.Message{}, history...), llm.Message{Role: "user", Content: msg})
		return "heard: " + msg, next, nil
	}
	chat := func(in string, interactive bool) string {
		cmd := &cobra.Command{}
		cmd.SetContext(context.Background())
		var out bytes.Buffer
		cmd.SetOut(&out)
		require.NoError(t, chatLoop(cmd, strings.NewReader(in), interactive, echo))
		return out.String()
	}

	out := chat("hello\nagain\n", false)
	assert.Equal(t, "heard: hello\n", out, "piped input gets one exchange")

	seen = nil
	out = chat("hello\n\nagain\nexit\nignored\n", true)
	assert.Contains(t, out, "heard: again")
	assert.NotContains(t, out, "ignored")
	require.Len(t, seen, 2)
	assert.Len(t, seen[1], 1, "history carries between turns")
}

func TestFirstLine(t *testing.T) {
	assert.Equal(t, "short", firstLine("short\nrest", 60))
	assert.Equal(t, "abcd...", firstLine("abcdefghij", 7))
}

package discord

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/chris/attune/internal/checkin"
	"github.com/chris/attune/internal/db"
	"github.com/chris/attune/internal/insight"
	"github.com/chris/attune/internal/llm"
	"github.com/chris/attune/internal/prompts"
	"github.com/chris/attune/internal/tracking"
)

const helpText = "Commands:\n" +
	"`!today` reflection for today\n" +
	"`!insight` rolling insight\n" +
	"`!week` weekly summary\n" +
	"`!stats` running stats\n" +
	"`!" + checkin.TrackUsage + "` record an answer"

// Agent answers free-form chat.
type Agent interface {
	Run(ctx context.Context, history []llm.Message, userMessage string) (string, []llm.Message, error)
}

// Handler turns incoming text and button presses into replies. It holds no
// Discord session so it can be driven directly.
type Handler struct {
	checkin   *checkin.Service
	db        *db.DB
	agent     Agent
	maxTokens int
	log       *zap.Logger

	// Per-channel conversation history.
	mu        sync.Mutex
	histories map[string][]llm.Message
}

// NewHandler wires a handler. ag may be nil, in which case free-form messages
// get the command help.
func NewHandler(svc *checkin.Service, database *db.DB, ag Agent, maxContextTokens int, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{
		checkin:   svc,
		db:        database,
		agent:     ag,
		maxTokens: maxContextTokens,
		log:       log,
		histories: make(map[string][]llm.Message),
	}
}

// HandleText answers a message. Commands start with "!"; otherwise the text
// answers the oldest outstanding form question, and failing that goes to
// the agent.
func (h *Handler) HandleText(ctx context.Context, channelID, userID, content string) string {
	content = strings.TrimSpace(content)
	if content == "" {
		return ""
	}
	if strings.HasPrefix(content, "!") {
		return h.command(ctx, content)
	}

	id, p, err := h.db.NextPending(userID)
	if err != nil {
		h.log.Error("reading pending answers", zap.Error(err))
	}
	if p != nil {
		return h.answer(ctx, id, *p, content)
	}

	if h.agent == nil {
		return helpText
	}
	return h.chat(ctx, channelID, content)
}

// HandleButton records a form button press. The ack is shown only to the
// presser; reflection is non-empty once the day's entry is complete.
func (h *Handler) HandleButton(ctx context.Context, customID string) (ack, reflection string) {
	token, date, _ := strings.Cut(customID, ":")
	field, value, ok := prompts.ParseCallback(token)
	if !ok {
		h.log.Warn("unknown button", zap.String("custom_id", customID))
		return "Unknown option.", ""
	}
	out, err := h.checkin.Track(ctx, checkin.TrackRequest{
		Date:   date,
		Field:  field.String(),
		Value:  value,
		Silent: true,
	})
	if err != nil {
		h.log.Warn("button answer rejected", zap.String("custom_id", customID), zap.Error(err))
		return failure(err), ""
	}
	return out.Message, out.Reflection
}

// answer records content against the pending question. The question stays
// queued until the answer is accepted so a bad reply can be retried.
func (h *Handler) answer(ctx context.Context, id int64, p db.Pending, content string) string {
	req := checkin.TrackRequest{Date: p.Date, Field: p.Field, Value: content, Silent: true}
	if tracking.ParseField(p.Field) == tracking.FieldGratitudes {
		req.Values = prompts.SplitGratitudes(content)
	}
	out, err := h.checkin.Track(ctx, req)
	if err != nil {
		h.log.Warn("pending answer rejected", zap.String("field", p.Field), zap.Error(err))
		return failure(err)
	}
	if err := h.db.DeletePending(id); err != nil {
		h.log.Error("clearing pending answer", zap.Error(err))
	}
	if out.Reflection != "" {
		return out.Message + "\n\n" + out.Reflection
	}
	return out.Message
}

func (h *Handler) command(ctx context.Context, content string) string {
	args := strings.Fields(content)
	var (
		reply string
		err   error
	)
	switch strings.ToLower(args[0]) {
	case "!today":
		reply, err = h.checkin.Consolidated(ctx, "")
	case "!insight":
		reply, err = h.checkin.Insight(ctx)
	case "!week":
		var r insight.Report
		r, err = h.checkin.Weekly(ctx)
		reply = r.Text()
	case "!stats":
		reply, err = h.checkin.Status(ctx)
	case "!track":
		reply, err = h.track(ctx, args[1:])
	default:
		return helpText
	}
	if err != nil {
		h.log.Warn("command failed", zap.String("command", args[0]), zap.Error(err))
		return failure(err)
	}
	return reply
}

func (h *Handler) track(ctx context.Context, args []string) (string, error) {
	req, err := checkin.ParseTrackArgs(args)
	if err != nil {
		return "", err
	}
	out, err := h.checkin.Track(ctx, req)
	if err != nil {
		return "", err
	}
	return out.Message, nil
}

func (h *Handler) chat(ctx context.Context, channelID, content string) string {
	h.mu.Lock()
	history := h.histories[channelID]
	h.mu.Unlock()

	reply, newHistory, err := h.agent.Run(ctx, history, content)
	if err != nil {
		h.log.Error("agent error", zap.Error(err))
		return "Something went wrong. Try again?"
	}

	// Cap stored history using the same budget as the agent's context window.
	newHistory = llm.TrimMessages(newHistory, h.maxTokens)

	h.mu.Lock()
	h.histories[channelID] = newHistory
	h.mu.Unlock()
	return reply
}

func failure(err error) string {
	switch {
	case errors.Is(err, tracking.ErrOutOfRange):
		return "Scores go from 1 to 10."
	case errors.Is(err, tracking.ErrFutureDate):
		return "That date is in the future."
	}
	return fmt.Sprintf("Couldn't do that: %v", err)
}

func stripMention(s, userID string) string {
	s = strings.ReplaceAll(s, "<@"+userID+">", "")
	s = strings.ReplaceAll(s, "<@!"+userID+">", "")
	return s
}

func splitMessage(s string, maxLen int) []string {
	if len(s) <= maxLen {
		return []string{s}
	}
	var chunks []string
	for len(s) > 0 {
		end := maxLen
		if end >= len(s) {
			end = len(s)
		} else {
			// Never cut a multi-byte rune in half
			for end > 1 && !utf8.RuneStart(s[end]) {
				end--
			}
		}
		// Try to split at a newline
		if idx := strings.LastIndex(s[:end], "\n"); idx > 0 {
			end = idx + 1
		}
		chunks = append(chunks, s[:end])
		s = s[end:]
	}
	return chunks
}

// Package checkin is the entry point used by every front end (CLI, Discord,
// agent tools) to record answers and ask for feedback.
package checkin

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/chris/attune/internal/insight"
	"github.com/chris/attune/internal/tracking"
)

const (
	NoEntryToday     = "No entry for today yet."
	IncompleteToday  = "Today's entry is not complete yet."
	ignoredFieldNote = "ignored unknown field %q"
)

type Service struct {
	store *tracking.Store
	name  string
	log   *zap.Logger
}

type Option func(*Service)

// WithName sets the name used to sign off the weekly summary.
func WithName(name string) Option {
	return func(s *Service) { s.name = name }
}

func WithLogger(l *zap.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.log = l
		}
	}
}

func New(store *tracking.Store, opts ...Option) *Service {
	s := &Service{store: store, log: zap.NewNop()}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Store exposes the underlying tracking store.
func (s *Service) Store() *tracking.Store {
	return s.store
}

// TrackRequest is one answer as it arrives from the outside: field and value
// are still strings.
type TrackRequest struct {
	Date   string
	Field  string
	Value  string
	Values []string
	Silent bool
}

// Outcome is the result of Track.
type Outcome struct {
	Field      tracking.Field
	Result     *tracking.Result
	Message    string
	Reflection string
}

// Track records one answer. Silent requests get a one-line acknowledgement;
// verbose ones include the running stats and, once the day is complete, the
// consolidated reflection.
func (s *Service) Track(ctx context.Context, req TrackRequest) (*Outcome, error) {
	field := tracking.ParseField(req.Field)
	res, err := s.store.Update(ctx, tracking.Update{
		Date:   req.Date,
		Field:  field,
		Value:  req.Value,
		Values: req.Values,
	})
	if err != nil {
		return nil, fmt.Errorf("tracking %s: %w", req.Field, err)
	}

	out := &Outcome{Field: field, Result: res}
	if res.Ignored {
		s.log.Warn("unknown field", zap.String("field", req.Field))
		out.Message = fmt.Sprintf(ignoredFieldNote, req.Field)
		return out, nil
	}
	if res.Complete {
		out.Reflection = insight.Consolidated(res.State, res.Entry)
	}

	if req.Silent {
		out.Message = "✓ " + field.String()
		return out, nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "✓ Tracked: %s = %s\n", field, displayValue(req))
	b.WriteString(StatsLine(res.State.Stats))
	if out.Reflection != "" {
		b.WriteString("\n\n")
		b.WriteString(out.Reflection)
	}
	out.Message = b.String()
	return out, nil
}

func displayValue(req TrackRequest) string {
	if len(req.Values) > 0 {
		return strings.Join(req.Values, "; ")
	}
	return req.Value
}

// StatsLine renders the running stats on one line.
func StatsLine(st tracking.Stats) string {
	return fmt.Sprintf("Streak %d · Emotion %s · Gratitude %s · Presence %s · Meditation %d%% · Days %d",
		st.Streak, st.AvgEmotion, st.AvgGratitude, st.AvgPresence, st.MeditationRate, st.TotalDays)
}

// State returns the current document with fresh stats.
func (s *Service) State(ctx context.Context) (*tracking.State, error) {
	state, err := s.store.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading tracking state: %w", err)
	}
	return state, nil
}

// Insight returns the rolling encouragement text.
func (s *Service) Insight(ctx context.Context) (string, error) {
	state, err := s.State(ctx)
	if err != nil {
		return "", err
	}
	return insight.Rolling(state), nil
}

// Consolidated returns the reflection for date (empty means today), or a
// short explanation when the entry is missing or incomplete.
func (s *Service) Consolidated(ctx context.Context, date string) (string, error) {
	state, err := s.State(ctx)
	if err != nil {
		return "", err
	}
	today := tracking.DateString(s.store.Today())
	if date == "" {
		date = today
	}
	e, ok := state.Entry(date)
	switch {
	case !ok && date == today:
		return NoEntryToday, nil
	case !ok:
		return fmt.Sprintf("No entry for %s.", date), nil
	case !e.Complete() && date == today:
		return IncompleteToday, nil
	case !e.Complete():
		return fmt.Sprintf("The entry for %s is not complete.", date), nil
	}
	if date != today {
		// The streak line reflects the run as of that day, not today's.
		day, err := time.Parse(tracking.DateLayout, date)
		if err != nil {
			return "", fmt.Errorf("%w: %q", tracking.ErrInvalidDate, date)
		}
		past := *state
		past.Stats.Streak = tracking.Streak(state.Days, day)
		state = &past
	}
	return insight.Consolidated(state, e), nil
}

// Weekly builds the report for the seven days ending today.
func (s *Service) Weekly(ctx context.Context) (insight.Report, error) {
	state, err := s.State(ctx)
	if err != nil {
		return insight.Report{}, err
	}
	return insight.Weekly(state, s.store.Today(), insight.WeeklyOptions{Name: s.name}), nil
}

// Summary returns the raw document as indented JSON.
func (s *Service) Summary(ctx context.Context) ([]byte, error) {
	state, err := s.State(ctx)
	if err != nil {
		return nil, err
	}
	b, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding summary: %w", err)
	}
	return b, nil
}

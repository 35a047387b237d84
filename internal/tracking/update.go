package tracking

import (
	"fmt"
	"strconv"
	"strings"
)

// Field names one answer slot of a daily entry.
type Field int

const (
	FieldUnknown Field = iota
	FieldPresence
	FieldEmotion
	FieldGratitude
	FieldMeditationTimes
	FieldMeditationDuration
	FieldGratitudes
	FieldBestPrompt
	FieldInsights
)

var fieldNames = map[Field]string{
	FieldPresence:           "presence",
	FieldEmotion:            "emotion",
	FieldGratitude:          "gratitude",
	FieldMeditationTimes:    "meditation_times",
	FieldMeditationDuration: "meditation_duration",
	FieldGratitudes:         "gratitudes",
	FieldBestPrompt:         "bestPrompt",
	FieldInsights:           "insights",
}

var fieldAliases = map[string]Field{
	"meditate":    FieldMeditationTimes,
	"duration":    FieldMeditationDuration,
	"best":        FieldBestPrompt,
	"best_prompt": FieldBestPrompt,
	"bestprompt":  FieldBestPrompt,
	"insight":     FieldInsights,
}

// Fields lists the known fields in form order.
func Fields() []Field {
	return []Field{
		FieldPresence, FieldEmotion, FieldGratitude,
		FieldMeditationTimes, FieldMeditationDuration,
		FieldGratitudes, FieldBestPrompt, FieldInsights,
	}
}

// ParseField maps a wire name to a Field. Unrecognised names map to
// FieldUnknown, which Update ignores.
func ParseField(name string) Field {
	n := strings.TrimSpace(name)
	for f, s := range fieldNames {
		if s == n {
			return f
		}
	}
	if f, ok := fieldAliases[strings.ToLower(n)]; ok {
		return f
	}
	return FieldUnknown
}

func (f Field) String() string {
	if s, ok := fieldNames[f]; ok {
		return s
	}
	return "unknown"
}

// Numeric reports whether the field holds a 1-10 score.
func (f Field) Numeric() bool {
	return f == FieldPresence || f == FieldEmotion || f == FieldGratitude
}

// Update is a single field change for one day. Values is only read for
// FieldGratitudes; when empty, Value is used as a single gratitude.
type Update struct {
	Date   string
	Field  Field
	Value  string
	Values []string
}

type applier func(e *DailyEntry, u Update) error

var appliers = map[Field]applier{
	FieldPresence:           scoreApplier(func(e *DailyEntry) **int { return &e.Presence }),
	FieldEmotion:            scoreApplier(func(e *DailyEntry) **int { return &e.Emotion }),
	FieldGratitude:          scoreApplier(func(e *DailyEntry) **int { return &e.Gratitude }),
	FieldMeditationTimes:    applyMeditationTimes,
	FieldMeditationDuration: applyMeditationDuration,
	FieldGratitudes:         applyGratitudes,
	FieldBestPrompt:         applyBestPrompt,
	FieldInsights:           applyInsights,
}

// Apply mutates e in place. It returns false without touching e when the
// field is unknown.
func Apply(e *DailyEntry, u Update) (bool, error) {
	fn, ok := appliers[u.Field]
	if !ok {
		return false, nil
	}
	if err := fn(e, u); err != nil {
		return false, fmt.Errorf("applying %s: %w", u.Field, err)
	}
	return true, nil
}

// ParseScore parses a 1-10 score.
func ParseScore(s string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not a number", ErrInvalidValue, s)
	}
	if n < 1 || n > 10 {
		return 0, fmt.Errorf("%w: %d", ErrOutOfRange, n)
	}
	return n, nil
}

func scoreApplier(slot func(*DailyEntry) **int) applier {
	return func(e *DailyEntry, u Update) error {
		n, err := ParseScore(u.Value)
		if err != nil {
			return err
		}
		*slot(e) = &n
		return nil
	}
}

func applyMeditationTimes(e *DailyEntry, u Update) error {
	v, err := ParseMeditationTimes(u.Value)
	if err != nil {
		return err
	}
	e.Meditation.Times = &v
	return nil
}

func applyMeditationDuration(e *DailyEntry, u Update) error {
	v, err := ParseMeditationDuration(u.Value)
	if err != nil {
		return err
	}
	e.Meditation.Duration = &v
	return nil
}

func applyGratitudes(e *DailyEntry, u Update) error {
	vals := u.Values
	if len(vals) == 0 {
		vals = []string{u.Value}
	}
	out := make([]string, 0, len(vals))
	for _, v := range vals {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	e.Gratitudes = out
	return nil
}

func applyBestPrompt(e *DailyEntry, u Update) error {
	v, err := ParsePromptCategory(u.Value)
	if err != nil {
		return err
	}
	e.BestPrompt = &v
	return nil
}

func applyInsights(e *DailyEntry, u Update) error {
	v := strings.TrimSpace(u.Value)
	if v == "" {
		e.Insights = nil
		return nil
	}
	e.Insights = &v
	return nil
}

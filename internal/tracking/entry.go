package tracking

import (
	"fmt"
	"strings"
)

// DateLayout is the key format for daily entries.
const DateLayout = "2006-01-02"

// MeditationTimes is how often the user meditated on a given day.
type MeditationTimes string

const (
	MeditationNone  MeditationTimes = "none"
	MeditationOnce  MeditationTimes = "1x"
	MeditationTwice MeditationTimes = "2x"
	MeditationMore  MeditationTimes = "3x+"
)

// ParseMeditationTimes accepts the canonical tokens plus the legacy ones the
// evening form used to send ("0x", "3x").
func ParseMeditationTimes(s string) (MeditationTimes, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "none", "0x", "0":
		return MeditationNone, nil
	case "1x", "1":
		return MeditationOnce, nil
	case "2x", "2":
		return MeditationTwice, nil
	case "3x+", "3x", "3", "3+":
		return MeditationMore, nil
	}
	return "", fmt.Errorf("%w: meditation times %q", ErrInvalidValue, s)
}

// Meditated reports whether the value counts as a meditating day.
func (m MeditationTimes) Meditated() bool {
	return m != "" && m != MeditationNone
}

func (m MeditationTimes) MarshalText() ([]byte, error) {
	return []byte(m), nil
}

// UnmarshalText keeps an unrecognised token as is so one bad value does not
// fail the whole document; the store drops it on load.
func (m *MeditationTimes) UnmarshalText(b []byte) error {
	v, err := ParseMeditationTimes(string(b))
	if err != nil {
		v = MeditationTimes(b)
	}
	*m = v
	return nil
}

func (m MeditationTimes) valid() bool {
	_, err := ParseMeditationTimes(string(m))
	return err == nil
}

// MeditationDuration is the total time meditated on a day, as a bucket.
type MeditationDuration string

const (
	Duration20     MeditationDuration = "20"
	Duration40     MeditationDuration = "40"
	Duration60     MeditationDuration = "60"
	DurationOver60 MeditationDuration = "60+"
)

func ParseMeditationDuration(s string) (MeditationDuration, error) {
	v := strings.ToLower(strings.TrimSpace(s))
	v = strings.TrimPrefix(v, "≤")
	v = strings.TrimPrefix(v, "<=")
	v = strings.TrimSuffix(v, "min")
	v = strings.TrimSpace(v)
	switch v {
	case "20":
		return Duration20, nil
	case "40":
		return Duration40, nil
	case "60":
		return Duration60, nil
	case "60+", "60plus", "1h+":
		return DurationOver60, nil
	}
	return "", fmt.Errorf("%w: meditation duration %q", ErrInvalidValue, s)
}

// Label is the human form shown in messages.
func (d MeditationDuration) Label() string {
	switch d {
	case DurationOver60:
		return "1h+"
	case "":
		return "unavailable"
	}
	return "≤" + string(d) + " min"
}

func (d MeditationDuration) MarshalText() ([]byte, error) {
	return []byte(d), nil
}

func (d *MeditationDuration) UnmarshalText(b []byte) error {
	v, err := ParseMeditationDuration(string(b))
	if err != nil {
		v = MeditationDuration(b)
	}
	*d = v
	return nil
}

func (d MeditationDuration) valid() bool {
	_, err := ParseMeditationDuration(string(d))
	return err == nil
}

// PromptCategory tags which daytime prompt landed best.
type PromptCategory string

const (
	PromptWealth    PromptCategory = "wealth"
	PromptFamily    PromptCategory = "family"
	PromptHome      PromptCategory = "home"
	PromptHealth    PromptCategory = "health"
	PromptJoy       PromptCategory = "joy"
	PromptGratitude PromptCategory = "gratitude"
)

var promptCategories = []PromptCategory{
	PromptWealth, PromptFamily, PromptHome, PromptHealth, PromptJoy, PromptGratitude,
}

// PromptCategories returns the closed set in display order.
func PromptCategories() []PromptCategory {
	out := make([]PromptCategory, len(promptCategories))
	copy(out, promptCategories)
	return out
}

func ParsePromptCategory(s string) (PromptCategory, error) {
	v := PromptCategory(strings.ToLower(strings.TrimSpace(s)))
	for _, c := range promptCategories {
		if c == v {
			return c, nil
		}
	}
	return "", fmt.Errorf("%w: prompt category %q", ErrInvalidValue, s)
}

func (c PromptCategory) MarshalText() ([]byte, error) {
	return []byte(c), nil
}

func (c *PromptCategory) UnmarshalText(b []byte) error {
	v, err := ParsePromptCategory(string(b))
	if err != nil {
		v = PromptCategory(b)
	}
	*c = v
	return nil
}

func (c PromptCategory) valid() bool {
	_, err := ParsePromptCategory(string(c))
	return err == nil
}

// Meditation groups the two meditation answers of a day.
type Meditation struct {
	Times    *MeditationTimes    `json:"times"`
	Duration *MeditationDuration `json:"duration"`
}

// DailyEntry is one calendar day of check-in answers. Every field stays nil
// until the user reports it.
type DailyEntry struct {
	Date       string          `json:"date"`
	Presence   *int            `json:"presence"`
	Emotion    *int            `json:"emotion"`
	Gratitude  *int            `json:"gratitude"`
	Meditation Meditation      `json:"meditation"`
	Gratitudes []string        `json:"gratitudes"`
	BestPrompt *PromptCategory `json:"bestPrompt"`
	Insights   *string         `json:"insights"`
}

// NewEntry returns an empty entry for date.
func NewEntry(date string) DailyEntry {
	return DailyEntry{Date: date, Gratitudes: []string{}}
}

// Complete reports whether the four required answers are in.
func (e DailyEntry) Complete() bool {
	return e.Presence != nil &&
		e.Emotion != nil &&
		e.Gratitude != nil &&
		e.Meditation.Times != nil
}

// Meditated reports whether the entry records at least one session.
func (e DailyEntry) Meditated() bool {
	return e.Meditation.Times != nil && e.Meditation.Times.Meditated()
}

// State is the whole persisted tracking document.
type State struct {
	Stats Stats        `json:"stats"`
	Days  []DailyEntry `json:"days"`
}

// NewState returns an empty document.
func NewState() *State {
	return &State{Days: []DailyEntry{}}
}

// Find returns the index of the entry for date, or -1.
func (s *State) Find(date string) int {
	for i := range s.Days {
		if s.Days[i].Date == date {
			return i
		}
	}
	return -1
}

// Entry returns a copy of the entry for date.
func (s *State) Entry(date string) (DailyEntry, bool) {
	i := s.Find(date)
	if i < 0 {
		return DailyEntry{}, false
	}
	return s.Days[i], true
}

// Package prompts holds the prompt library, the time slots it is drawn from
// and the evening reflection form.
package prompts

import (
	_ "embed"
	"fmt"
	"os"
	"sort"
	"time"

	"gopkg.in/yaml.v3"
)

//go:embed library.yaml
var defaultLibrary []byte

// Slot is a window of the day that prompts are drawn for.
type Slot string

const (
	SlotNone      Slot = ""
	SlotMorning   Slot = "morning"
	SlotMidday    Slot = "midday"
	SlotAfternoon Slot = "afternoon"
	SlotEvening   Slot = "evening"
)

// SlotFor maps an hour of the day to its slot. Hours outside 09:00-20:59 have
// no slot.
func SlotFor(hour int) Slot {
	switch {
	case hour >= 9 && hour <= 11:
		return SlotMorning
	case hour >= 12 && hour <= 14:
		return SlotMidday
	case hour >= 15 && hour <= 17:
		return SlotAfternoon
	case hour >= 18 && hour <= 20:
		return SlotEvening
	}
	return SlotNone
}

// Library is the parsed prompt library.
type Library struct {
	Morning      []string          `yaml:"morning"`
	Midday       []string          `yaml:"midday"`
	Afternoon    []string          `yaml:"afternoon"`
	Evening      []string          `yaml:"evening"`
	VoiceMoments map[string]string `yaml:"voice_moments"`
}

// Default returns the built-in library.
func Default() *Library {
	lib, err := Parse(defaultLibrary)
	if err != nil {
		panic(fmt.Sprintf("embedded prompt library: %v", err))
	}
	return lib
}

// Parse decodes a YAML library. Every slot needs at least one prompt.
func Parse(data []byte) (*Library, error) {
	var lib Library
	if err := yaml.Unmarshal(data, &lib); err != nil {
		return nil, fmt.Errorf("parsing prompt library: %w", err)
	}
	for _, s := range []Slot{SlotMorning, SlotMidday, SlotAfternoon, SlotEvening} {
		if len(lib.Prompts(s)) == 0 {
			return nil, fmt.Errorf("prompt library has no %s prompts", s)
		}
	}
	return &lib, nil
}

// LoadFile reads a library from disk. An empty path yields the default.
func LoadFile(path string) (*Library, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading prompt library: %w", err)
	}
	return Parse(data)
}

// Prompts returns the prompts of a slot.
func (l *Library) Prompts(s Slot) []string {
	switch s {
	case SlotMorning:
		return l.Morning
	case SlotMidday:
		return l.Midday
	case SlotAfternoon:
		return l.Afternoon
	case SlotEvening:
		return l.Evening
	}
	return nil
}

// Choice is a prompt chosen for a moment in time.
type Choice struct {
	Slot   Slot
	Index  int
	Total  int
	Prompt string
}

// Pick chooses the prompt for now. The choice is deterministic per day and
// hour so a rerun within the same hour sends the same prompt. ok is false
// outside active hours.
func (l *Library) Pick(now time.Time) (Choice, bool) {
	slot := SlotFor(now.Hour())
	prompts := l.Prompts(slot)
	if len(prompts) == 0 {
		return Choice{}, false
	}
	days := now.Unix() / 86400
	idx := int((days*100 + int64(now.Hour())) % int64(len(prompts)))
	return Choice{Slot: slot, Index: idx, Total: len(prompts), Prompt: prompts[idx]}, true
}

// VoiceMoment returns the titled text of a named voice moment.
func (l *Library) VoiceMoment(name string) (string, error) {
	text, ok := l.VoiceMoments[name]
	if !ok {
		return "", fmt.Errorf("unknown voice moment %q (have %v)", name, l.MomentNames())
	}
	return fmt.Sprintf("🎧 **%s**\n\n%s", momentTitle(name), text), nil
}

// MomentNames lists the voice moments in sorted order.
func (l *Library) MomentNames() []string {
	names := make([]string, 0, len(l.VoiceMoments))
	for n := range l.VoiceMoments {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func momentTitle(name string) string {
	switch name {
	case "morning_intention":
		return "Morning Intention"
	case "evening_sats":
		return "Evening SATS Practice"
	}
	return name
}

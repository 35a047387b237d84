package insight

import (
	"fmt"
	"strings"

	"github.com/chris/attune/internal/tracking"
)

const (
	// GettingStarted is returned until the rolling window holds three scored days.
	GettingStarted = "You're just getting started. Every check-in rewires your brain. Keep going. 💪"

	// KeepShowingUp is returned when no threshold fires.
	KeepShowingUp = "💜 Keep showing up. That's the whole game."

	rollingWindow = 7
	minScored     = 3
)

// Rolling looks at the last seven entries in insertion order (not the last
// seven calendar days) and composes a short encouragement.
func Rolling(state *tracking.State) string {
	if state == nil {
		return GettingStarted
	}
	recent := state.Days
	if len(recent) > rollingWindow {
		recent = recent[len(recent)-rollingWindow:]
	}

	var emotions, gratitudes []int
	meditated := 0
	for _, d := range recent {
		if d.Emotion != nil {
			emotions = append(emotions, *d.Emotion)
		}
		if d.Gratitude != nil {
			gratitudes = append(gratitudes, *d.Gratitude)
		}
		if d.Meditated() {
			meditated++
		}
	}
	if len(emotions) < minScored {
		return GettingStarted
	}

	avgEmotion := tracking.AverageOf(emotions)
	avgGratitude := tracking.AverageOf(gratitudes)

	var parts []string
	switch {
	case avgEmotion.AtLeast(elevated):
		parts = append(parts, "🌟 Your emotional state is elevated! This is where change happens.")
	case avgEmotion.Below(5):
		parts = append(parts, "🌱 Your emotions need attention. More meditation, more gratitude, more movement.")
	}
	switch {
	case avgGratitude.AtLeast(elevated):
		parts = append(parts, "🙏 You're in a state of receiving. Keep noticing what's good.")
	case avgGratitude.Below(5):
		parts = append(parts, "💡 Gratitude is the bridge to abundance. Practice feeling it, even if it's forced at first.")
	}
	switch {
	case meditated >= 5:
		parts = append(parts, "🧘 Your meditation consistency is building new neural pathways.")
	case meditated < 2:
		parts = append(parts, "⚡ More meditation means faster results. Make it non-negotiable.")
	}
	if state.Stats.Streak >= 7 {
		parts = append(parts, fmt.Sprintf("🔥 %d-day streak! This is momentum. Don't break it.", state.Stats.Streak))
	}

	if len(parts) == 0 {
		return KeepShowingUp
	}
	return strings.Join(parts, " ")
}

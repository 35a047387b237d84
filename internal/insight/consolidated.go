package insight

import (
	"fmt"
	"math"
	"strings"

	"github.com/chris/attune/internal/tracking"
)

// Tier lines for the overall score of a completed day.
const (
	TierElevated = "🌟 **Elevated state!** You're operating at an elevated level today. This is the zone where change happens."
	TierSolid    = "💪 **Solid baseline.** You're showing up. A few more elevated practices and you'll be in the zone."
	tierWork     = "🌱 **Needs work.** Your scores show where energy needs to go: %s. Focus there tomorrow."
)

// Consolidated builds the end-of-day reflection for a completed entry. It is
// safe to call on incomplete entries; missing scores render as unavailable.
func Consolidated(state *tracking.State, e tracking.DailyEntry) string {
	var stats tracking.Stats
	if state != nil {
		stats = state.Stats
	}

	var b strings.Builder
	b.WriteString("📊 **Today's Check-In Complete**\n\n")

	b.WriteString("**Your Scores:**\n")
	fmt.Fprintf(&b, "💜 Presence: %s\n", score(e.Presence))
	fmt.Fprintf(&b, "😊 Emotion: %s\n", score(e.Emotion))
	fmt.Fprintf(&b, "🙏 Gratitude: %s\n", score(e.Gratitude))
	fmt.Fprintf(&b, "🧘 Meditation: %s\n\n", meditationLabel(e.Meditation))

	b.WriteString(streakLine(stats.Streak))
	b.WriteString("\n\n")

	if line := tierLine(e); line != "" {
		b.WriteString(line)
		b.WriteString("\n\n")
	}

	if below(e.Emotion, dayLow) {
		b.WriteString("**Emotion boost:** Music, movement and visualization. Motion creates emotion.\n")
	}
	if below(e.Gratitude, dayLow) {
		b.WriteString("**Gratitude practice:** Feel it for things that haven't happened yet. Your brain doesn't know the difference.\n")
	}
	if below(e.Presence, dayLow) {
		b.WriteString("**Presence reminder:** When you're with the people you love, be fully there. They feel it.\n")
	}
	if e.Meditation.Times != nil && !e.Meditation.Times.Meditated() {
		b.WriteString("**Meditation:** Tomorrow, do at least one. That's where the rewiring happens.\n")
	}

	b.WriteString("\n💜 Keep going. You're building new pathways.")
	return b.String()
}

func streakLine(streak int) string {
	switch {
	case streak <= 0:
		return "**Start your streak tomorrow!**"
	case streak >= 7:
		return fmt.Sprintf("🔥 **%d-day streak!** This is serious momentum.", streak)
	default:
		return fmt.Sprintf("🔥 **%d-day streak!** Keep building on it.", streak)
	}
}

// tierLine grades the mean of the three scores: [8,10] elevated, [6,8) solid,
// below that the low dimensions are named.
func tierLine(e tracking.DailyEntry) string {
	var sum, n int
	for _, v := range []*int{e.Presence, e.Emotion, e.Gratitude} {
		if v != nil {
			sum += *v
			n++
		}
	}
	if n == 0 {
		return ""
	}
	avg := math.Round(float64(sum)/float64(n)*10) / 10

	switch {
	case avg >= elevated:
		return TierElevated
	case avg >= solid:
		return TierSolid
	}

	var low []string
	if below(e.Presence, dayLow) {
		low = append(low, "presence")
	}
	if below(e.Emotion, dayLow) {
		low = append(low, "emotion")
	}
	if below(e.Gratitude, dayLow) {
		low = append(low, "gratitude")
	}
	if len(low) == 0 {
		low = append(low, "all three")
	}
	return fmt.Sprintf(tierWork, joinNames(low))
}

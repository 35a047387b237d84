package checkin

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/chris/attune/internal/tracking"
)

// Status renders the running stats for people rather than for the log.
func (s *Service) Status(ctx context.Context) (string, error) {
	state, err := s.State(ctx)
	if err != nil {
		return "", err
	}
	return StatusText(state, s.store.Today()), nil
}

// StatusText is Status for an already loaded state.
func StatusText(state *tracking.State, now time.Time) string {
	st := state.Stats
	var b strings.Builder
	b.WriteString("📊 **Your stats**\n")
	fmt.Fprintf(&b, "• Streak: %s 🔥 (longest %s)\n",
		plural(st.Streak, "day"), plural(tracking.LongestStreak(state.Days), "day"))
	fmt.Fprintf(&b, "• Check-ins: %s\n", humanize.Comma(int64(st.TotalDays)))
	fmt.Fprintf(&b, "• Avg Emotional State: %s\n", st.AvgEmotion)
	fmt.Fprintf(&b, "• Avg Gratitude Ease: %s\n", st.AvgGratitude)
	fmt.Fprintf(&b, "• Avg Presence: %s\n", st.AvgPresence)
	fmt.Fprintf(&b, "• Meditation Rate: %d%%\n", st.MeditationRate)
	fmt.Fprintf(&b, "• Last entry: %s", lastEntry(st.LastEntry, now))
	return b.String()
}

func lastEntry(date string, now time.Time) string {
	if date == "" {
		return "never"
	}
	if date == tracking.DateString(now) {
		return date + " (today)"
	}
	t, err := time.ParseInLocation(tracking.DateLayout, date, now.Location())
	if err != nil {
		return date
	}
	return fmt.Sprintf("%s (%s)", date, humanize.RelTime(t, now, "ago", "from now"))
}

func plural(n int, unit string) string {
	if n == 1 {
		return "1 " + unit
	}
	return fmt.Sprintf("%d %ss", n, unit)
}

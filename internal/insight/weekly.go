package insight

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/chris/attune/internal/tracking"
)

// Trend compares the start and end of the week's emotion scores.
type Trend string

const (
	TrendRising    Trend = "rising"
	TrendDeclining Trend = "declining"
	TrendStable    Trend = "stable"
)

func (t Trend) Label() string {
	switch t {
	case TrendRising:
		return "📈 Rising"
	case TrendDeclining:
		return "📉 Declining"
	}
	return "➡️ Stable"
}

// NotEnoughData is the weekly text when the window has no entries.
const NotEnoughData = "Not enough data for a weekly summary yet."

const (
	weekDays      = 7
	trendSample   = 3
	displayLayout = "02/01/2006"
)

// WeeklyOptions personalise the report.
type WeeklyOptions struct {
	Name string
}

// Report is the weekly summary before rendering.
type Report struct {
	Start, End    time.Time
	CheckIns      int
	Streak        int
	LongestStreak int
	tracking.Aggregates
	Trend    Trend
	Insights []string
	Focus    []string
	Name     string
}

// Weekly summarises entries dated within the seven calendar days ending
// today, inclusive.
func Weekly(state *tracking.State, today time.Time, opts WeeklyOptions) Report {
	end := tracking.Day(today)
	start := end.AddDate(0, 0, -(weekDays - 1))
	r := Report{Start: start, End: end, Trend: TrendStable, Name: opts.Name}
	if state == nil {
		return r
	}

	var window []tracking.DailyEntry
	for _, d := range state.Days {
		t, err := time.Parse(tracking.DateLayout, d.Date)
		if err != nil || t.Before(start) || t.After(end) {
			continue
		}
		window = append(window, d)
	}
	sort.SliceStable(window, func(i, j int) bool { return window[i].Date < window[j].Date })

	r.CheckIns = len(window)
	r.Streak = tracking.Streak(state.Days, today)
	r.LongestStreak = tracking.LongestStreak(state.Days)
	r.Aggregates = tracking.Aggregate(window)

	var emotions []int
	for _, d := range window {
		if d.Emotion != nil {
			emotions = append(emotions, *d.Emotion)
		}
	}
	r.Trend = EmotionTrend(emotions)
	r.Insights = recentInsights(window, trendSample)
	r.Focus = focusAreas(r.Aggregates)
	return r
}

// EmotionTrend compares the mean of the first three scores with the mean of
// the last three. Fewer than three scores is stable.
func EmotionTrend(chronological []int) Trend {
	if len(chronological) < trendSample {
		return TrendStable
	}
	first := mean(chronological[:trendSample])
	last := mean(chronological[len(chronological)-trendSample:])
	switch {
	case last > first:
		return TrendRising
	case last < first:
		return TrendDeclining
	}
	return TrendStable
}

func mean(vals []int) float64 {
	sum := 0
	for _, v := range vals {
		sum += v
	}
	return float64(sum) / float64(len(vals))
}

func recentInsights(window []tracking.DailyEntry, n int) []string {
	var out []string
	for _, d := range window {
		if d.Insights == nil || strings.TrimSpace(*d.Insights) == "" {
			continue
		}
		out = append(out, truncate(*d.Insights, maxInsight))
	}
	if len(out) > n {
		out = out[len(out)-n:]
	}
	return out
}

func focusAreas(agg tracking.Aggregates) []string {
	var areas []string
	if agg.AvgEmotion.Below(weekLow) {
		areas = append(areas, "Elevate your emotional state through movement, music and visualization")
	}
	if agg.AvgGratitude.Below(weekLow) {
		areas = append(areas, "Practice feeling gratitude even when it feels forced. Neurons that fire together wire together")
	}
	if agg.AvgPresence.Below(weekLow) {
		areas = append(areas, "Be more present with the people you love. Quality time creates real shifts")
	}
	if agg.MeditationRate < medTarget {
		areas = append(areas, "Make meditation non-negotiable. This is where the rewiring happens")
	}
	return areas
}

// Empty reports whether the window had no entries at all.
func (r Report) Empty() bool {
	return r.CheckIns == 0
}

// MeditationNote grades the week's meditation rate.
func (r Report) MeditationNote() string {
	switch {
	case r.MeditationRate >= medTarget:
		return "✨ Excellent consistency!"
	case r.MeditationRate >= medGood:
		return "💪 Good progress!"
	}
	return "⚡ Room for improvement!"
}

// Text renders the report as a chat message.
func (r Report) Text() string {
	if r.Empty() {
		return NotEnoughData
	}

	var b strings.Builder
	b.WriteString("🌟 **WEEKLY SUMMARY**\n\n")
	fmt.Fprintf(&b, "📅 **Week of %s - %s**\n\n", r.Start.Format(displayLayout), r.End.Format(displayLayout))

	b.WriteString("**📊 METRICS**\n")
	fmt.Fprintf(&b, "• Check-ins: %d/%d days\n", r.CheckIns, weekDays)
	fmt.Fprintf(&b, "• Streak: %d days 🔥 (longest %d)\n", r.Streak, r.LongestStreak)
	fmt.Fprintf(&b, "• Avg Emotional State: %s/10 %s\n", r.AvgEmotion, r.Trend.Label())
	fmt.Fprintf(&b, "• Avg Gratitude Ease: %s/10\n", r.AvgGratitude)
	fmt.Fprintf(&b, "• Avg Presence: %s/10\n", r.AvgPresence)
	fmt.Fprintf(&b, "• Meditation Rate: %d%%\n\n", r.MeditationRate)

	b.WriteString("**🧘 MEDITATION**\n")
	fmt.Fprintf(&b, "Meditated %d out of %d days\n", r.Meditated, r.Cohort)
	b.WriteString(r.MeditationNote())
	b.WriteString("\n\n")

	if len(r.Insights) > 0 {
		b.WriteString("**💡 KEY INSIGHTS**\n")
		for _, in := range r.Insights {
			fmt.Fprintf(&b, "• %s\n", in)
		}
		b.WriteString("\n")
	}

	b.WriteString("**🎯 FOCUS FOR NEXT WEEK**\n")
	if len(r.Focus) == 0 {
		b.WriteString("✨ You're crushing it! Keep this momentum. Consider longer meditations next week.\n")
	} else {
		for _, f := range r.Focus {
			fmt.Fprintf(&b, "• %s\n", f)
		}
	}

	b.WriteString("\n\"Where you place your attention is where you place your energy.\"\n\n")
	if r.Name != "" {
		fmt.Fprintf(&b, "Keep going, %s. 💜", r.Name)
	} else {
		b.WriteString("Keep going. 💜")
	}
	return b.String()
}

// Package insight turns tracking data into short feedback messages. Every
// function here is pure: callers pass in the state and, where a calendar
// matters, today's date.
package insight

import (
	"strconv"
	"strings"

	"github.com/chris/attune/internal/tracking"
)

// Coaching thresholds. Per-day lines fire below dayLow; the weekly focus list
// uses the stricter weekLow.
const (
	dayLow     = 6
	weekLow    = 7
	elevated   = 8.0
	solid      = 6.0
	medTarget  = 70
	medGood    = 50
	maxInsight = 100
)

func score(v *int) string {
	if v == nil {
		return tracking.Unavailable
	}
	return strconv.Itoa(*v) + "/10"
}

func below(v *int, threshold int) bool {
	return v != nil && *v < threshold
}

func meditationLabel(m tracking.Meditation) string {
	if m.Times == nil {
		return tracking.Unavailable
	}
	s := string(*m.Times)
	if m.Duration != nil {
		s += " (" + m.Duration.Label() + ")"
	}
	return s
}

// truncate cuts s to n runes and marks the cut with "...".
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}

func joinNames(names []string) string {
	return strings.Join(names, ", ")
}

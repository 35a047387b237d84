package tracking

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"time"
)

// Unavailable is shown in place of an average with no data behind it.
const Unavailable = "unavailable"

// Average is a mean rounded to one decimal, or nothing at all.
type Average struct {
	Value float64
	Valid bool
}

// AverageOf rounds the arithmetic mean of vals. An empty slice yields an
// invalid Average rather than zero.
func AverageOf(vals []int) Average {
	if len(vals) == 0 {
		return Average{}
	}
	sum := 0
	for _, v := range vals {
		sum += v
	}
	return Average{Value: round1(float64(sum) / float64(len(vals))), Valid: true}
}

func round1(f float64) float64 {
	return math.Round(f*10) / 10
}

func (a Average) String() string {
	if !a.Valid {
		return Unavailable
	}
	return strconv.FormatFloat(a.Value, 'f', 1, 64)
}

// Below reports whether the average exists and is under threshold.
func (a Average) Below(threshold float64) bool {
	return a.Valid && a.Value < threshold
}

// AtLeast reports whether the average exists and is at or above threshold.
func (a Average) AtLeast(threshold float64) bool {
	return a.Valid && a.Value >= threshold
}

func (a Average) MarshalJSON() ([]byte, error) {
	if !a.Valid {
		return []byte("null"), nil
	}
	return []byte(strconv.FormatFloat(a.Value, 'f', 1, 64)), nil
}

// UnmarshalJSON accepts numbers, null, and the quoted decimals older tracking
// files were written with.
func (a *Average) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	*a = Average{}
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		return nil
	}
	raw := string(b)
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return fmt.Errorf("decoding average: %w", err)
		}
		raw = s
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		// "N/A", "unavailable" and friends all mean no data.
		return nil
	}
	*a = Average{Value: round1(f), Valid: true}
	return nil
}

// Stats is derived entirely from the list of days.
type Stats struct {
	Streak         int     `json:"streak"`
	AvgEmotion     Average `json:"avgEmotion"`
	AvgGratitude   Average `json:"avgGratitude"`
	AvgPresence    Average `json:"avgPresence"`
	MeditationRate int     `json:"meditationRate"`
	TotalDays      int     `json:"totalDays"`
	LastEntry      string  `json:"lastEntry,omitempty"`
}

// Aggregates are the cohort-wide numbers shared by the running stats and the
// weekly report.
type Aggregates struct {
	Cohort         int
	Meditated      int
	AvgEmotion     Average
	AvgGratitude   Average
	AvgPresence    Average
	MeditationRate int
}

// Cohort returns the entries that carry an emotion score, in input order.
func Cohort(days []DailyEntry) []DailyEntry {
	var out []DailyEntry
	for _, d := range days {
		if d.Emotion != nil {
			out = append(out, d)
		}
	}
	return out
}

// Aggregate computes averages and meditation rate over the cohort of days.
func Aggregate(days []DailyEntry) Aggregates {
	cohort := Cohort(days)
	agg := Aggregates{Cohort: len(cohort)}
	if len(cohort) == 0 {
		return agg
	}

	var emotions, gratitudes, presences []int
	for _, d := range cohort {
		emotions = append(emotions, *d.Emotion)
		if d.Gratitude != nil {
			gratitudes = append(gratitudes, *d.Gratitude)
		}
		if d.Presence != nil {
			presences = append(presences, *d.Presence)
		}
		if d.Meditated() {
			agg.Meditated++
		}
	}
	agg.AvgEmotion = AverageOf(emotions)
	agg.AvgGratitude = AverageOf(gratitudes)
	agg.AvgPresence = AverageOf(presences)
	agg.MeditationRate = Percent(agg.Meditated, len(cohort))
	return agg
}

// Percent returns part/whole as a rounded percentage; 0 when whole is 0.
func Percent(part, whole int) int {
	if whole == 0 {
		return 0
	}
	return int(math.Round(float64(part) / float64(whole) * 100))
}

// Recompute rebuilds the stats from scratch. lastEntry is carried through
// untouched; today anchors the streak.
func Recompute(days []DailyEntry, today time.Time, lastEntry string) Stats {
	agg := Aggregate(days)
	return Stats{
		Streak:         Streak(days, today),
		AvgEmotion:     agg.AvgEmotion,
		AvgGratitude:   agg.AvgGratitude,
		AvgPresence:    agg.AvgPresence,
		MeditationRate: agg.MeditationRate,
		TotalDays:      agg.Cohort,
		LastEntry:      lastEntry,
	}
}

// Streak counts consecutive days with an emotion score ending today. If today
// has no score yet, counting starts at yesterday so an unbroken run is still
// reported before the evening check-in.
func Streak(days []DailyEntry, today time.Time) int {
	dates := make(map[string]bool)
	for _, d := range Cohort(days) {
		dates[d.Date] = true
	}
	if len(dates) == 0 {
		return 0
	}

	check := Day(today)
	if !dates[check.Format(DateLayout)] {
		check = check.AddDate(0, 0, -1)
	}
	streak := 0
	for dates[check.Format(DateLayout)] {
		streak++
		check = check.AddDate(0, 0, -1)
	}
	return streak
}

// LongestStreak walks the sorted cohort dates and tracks the longest run of
// consecutive days.
func LongestStreak(days []DailyEntry) int {
	var dates []time.Time
	seen := make(map[string]bool)
	for _, d := range Cohort(days) {
		if seen[d.Date] {
			continue
		}
		t, err := time.Parse(DateLayout, d.Date)
		if err != nil {
			continue
		}
		seen[d.Date] = true
		dates = append(dates, t)
	}
	if len(dates) == 0 {
		return 0
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })

	longest, current := 1, 1
	for i := 1; i < len(dates); i++ {
		if dates[i-1].AddDate(0, 0, 1).Equal(dates[i]) {
			current++
		} else {
			current = 1
		}
		if current > longest {
			longest = current
		}
	}
	return longest
}

// Day truncates t to midnight in its own location and re-expresses it in UTC
// so that calendar arithmetic never crosses a DST boundary.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DateString formats t as a tracking date key in t's location.
func DateString(t time.Time) string {
	return Day(t).Format(DateLayout)
}

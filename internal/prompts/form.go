package prompts

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/chris/attune/internal/tracking"
)

// Button is one choice on a form question. Token is what comes back when the
// button is pressed.
type Button struct {
	Label string
	Token string
}

// Question is a single step of the evening form. Questions without buttons
// expect a free-text reply.
type Question struct {
	Field   tracking.Field
	Text    string
	Buttons [][]Button
}

// FreeText reports whether the answer arrives as a reply message.
func (q Question) FreeText() bool {
	return len(q.Buttons) == 0
}

var tokenPrefixes = map[string]tracking.Field{
	"presence":  tracking.FieldPresence,
	"emotion":   tracking.FieldEmotion,
	"gratitude": tracking.FieldGratitude,
	"meditate":  tracking.FieldMeditationTimes,
	"duration":  tracking.FieldMeditationDuration,
	"best":      tracking.FieldBestPrompt,
}

// ParseCallback splits a button token such as "presence_7" or
// "duration_60plus" into the field and raw value it carries.
func ParseCallback(token string) (tracking.Field, string, bool) {
	prefix, value, ok := strings.Cut(token, "_")
	if !ok || value == "" {
		return tracking.FieldUnknown, "", false
	}
	f, ok := tokenPrefixes[prefix]
	if !ok {
		return tracking.FieldUnknown, "", false
	}
	return f, value, true
}

func scoreButtons(prefix, low, high string) [][]Button {
	rows := make([][]Button, 2)
	for i := 1; i <= 10; i++ {
		label := strconv.Itoa(i)
		if i == 1 && low != "" {
			label += " " + low
		}
		if i == 10 && high != "" {
			label += " " + high
		}
		row := (i - 1) / 5
		rows[row] = append(rows[row], Button{Label: label, Token: fmt.Sprintf("%s_%d", prefix, i)})
	}
	return rows
}

// EveningForm returns the reflection questions in the order they are sent.
// name personalises the sign-off and may be empty.
func EveningForm(name string) []Question {
	signoff := "Sleep well. Tomorrow you create again. 💜"
	if name != "" {
		signoff = fmt.Sprintf("Sleep well, %s. Tomorrow you create again. 💜", name)
	}
	return []Question{
		{
			Field:   tracking.FieldPresence,
			Text:    "🌙 **Evening Reflection**\n\n**1. How present were you with the people you love today?**",
			Buttons: scoreButtons("presence", "", ""),
		},
		{
			Field:   tracking.FieldEmotion,
			Text:    "**2. Overall emotional state today?**",
			Buttons: scoreButtons("emotion", "", ""),
		},
		{
			Field:   tracking.FieldGratitude,
			Text:    "**3. How easily could you feel gratitude today?**",
			Buttons: scoreButtons("gratitude", "😓", "✨"),
		},
		{
			Field: tracking.FieldMeditationTimes,
			Text:  "**4. How many times did you meditate today?**\n\n(Ideal: 2x per day 🧘)",
			Buttons: [][]Button{{
				{Label: "❌ None", Token: "meditate_0x"},
				{Label: "1x", Token: "meditate_1x"},
				{Label: "✨ 2x", Token: "meditate_2x"},
				{Label: "3x+", Token: "meditate_3x"},
			}},
		},
		{
			Field: tracking.FieldMeditationDuration,
			Text:  "**4b. Total meditation time today?**",
			Buttons: [][]Button{
				{{Label: "≤20 min", Token: "duration_20"}, {Label: "≤40 min", Token: "duration_40"}},
				{{Label: "≤1 hour", Token: "duration_60"}, {Label: "1h+ 🔥", Token: "duration_60plus"}},
			},
		},
		{
			Field: tracking.FieldGratitudes,
			Text:  "**5. Reply with your 3 gratitudes** 🙏\n\n(Can be for things that haven't happened yet!)\n\nOne per line.",
		},
		{
			Field: tracking.FieldBestPrompt,
			Text:  "**6. Which prompt hit hardest today?**\n\n(optional)",
			Buttons: [][]Button{
				{
					{Label: "💰 Wealth", Token: "best_wealth"},
					{Label: "💜 Family", Token: "best_family"},
					{Label: "🏡 Home", Token: "best_home"},
				},
				{
					{Label: "💪 Health", Token: "best_health"},
					{Label: "☀️ Joy", Token: "best_joy"},
					{Label: "🙏 Gratitude", Token: "best_gratitude"},
				},
			},
		},
		{
			Field: tracking.FieldInsights,
			Text: "**7. Any wins, insights, or breakthroughs today?**\n\nReply with whatever comes to mind.\n\n" +
				"_Remember: Even when gratitude feels forced, it rewires your brain._ 🧠\n\n" + signoff,
		},
	}
}

var listMarker = regexp.MustCompile(`^\s*(?:[-*•]|\d+[.)])\s*`)

// SplitGratitudes turns a free-text reply into individual gratitudes, one per
// line, with list markers removed.
func SplitGratitudes(text string) []string {
	var out []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(listMarker.ReplaceAllString(line, ""))
		if line != "" {
			out = append(out, line)
		}
	}
	return out
}

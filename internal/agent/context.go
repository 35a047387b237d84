package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/chris/attune/internal/checkin"
	"github.com/chris/attune/internal/tracking"
)

// BuildContext describes where today's check-in stands so the model does not
// have to call a tool just to find out.
func BuildContext(ctx context.Context, svc *checkin.Service) string {
	now := svc.Store().Today()
	date := tracking.DateString(now)

	var b strings.Builder
	fmt.Fprintf(&b, "## Today\n%s (%s)\n", date, now.Weekday())

	state, err := svc.State(ctx)
	if err != nil {
		b.WriteString("Tracking data is unavailable right now.")
		return b.String()
	}

	b.WriteString("\n## Stats\n")
	b.WriteString(checkin.StatsLine(state.Stats))
	b.WriteString("\n\n## Today's check-in\n")

	e, ok := state.Entry(date)
	if !ok {
		b.WriteString("Nothing recorded yet.")
		return b.String()
	}
	var done, missing []string
	for _, f := range []tracking.Field{tracking.FieldPresence, tracking.FieldEmotion, tracking.FieldGratitude, tracking.FieldMeditationTimes} {
		if answered(e, f) {
			done = append(done, f.String())
		} else {
			missing = append(missing, f.String())
		}
	}
	if len(missing) == 0 {
		b.WriteString("Complete.")
		return b.String()
	}
	if len(done) > 0 {
		fmt.Fprintf(&b, "Answered: %s\n", strings.Join(done, ", "))
	}
	fmt.Fprintf(&b, "Still missing: %s", strings.Join(missing, ", "))
	return b.String()
}

func answered(e tracking.DailyEntry, f tracking.Field) bool {
	switch f {
	case tracking.FieldPresence:
		return e.Presence != nil
	case tracking.FieldEmotion:
		return e.Emotion != nil
	case tracking.FieldGratitude:
		return e.Gratitude != nil
	case tracking.FieldMeditationTimes:
		return e.Meditation.Times != nil
	}
	return false
}

package checkin

import (
	"errors"
	"strings"
	"time"

	"github.com/chris/attune/internal/tracking"
)

// TrackUsage is the argument shape accepted by ParseTrackArgs.
const TrackUsage = "track [YYYY-MM-DD] <field> <value>"

var errTrackUsage = errors.New("usage: " + TrackUsage)

// ParseTrackArgs reads "[date] field value..." as typed on the command line
// or in chat. The date is optional. Gratitudes may be separated by ";" and
// every remaining word joins into the value for the other fields.
func ParseTrackArgs(args []string) (TrackRequest, error) {
	var req TrackRequest
	if len(args) > 0 && looksLikeDate(args[0]) {
		req.Date = args[0]
		args = args[1:]
	}
	if len(args) < 2 {
		return req, errTrackUsage
	}
	req.Field = args[0]
	req.Value = strings.Join(args[1:], " ")
	if tracking.ParseField(req.Field) == tracking.FieldGratitudes {
		for _, g := range strings.Split(req.Value, ";") {
			if g = strings.TrimSpace(g); g != "" {
				req.Values = append(req.Values, g)
			}
		}
	}
	return req, nil
}

func looksLikeDate(s string) bool {
	_, err := time.Parse(tracking.DateLayout, s)
	return err == nil
}

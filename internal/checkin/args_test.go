package checkin

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTrackArgs(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want TrackRequest
	}{
		{
			name: "field and value",
			args: []string{"emotion", "8"},
			want: TrackRequest{Field: "emotion", Value: "8"},
		},
		{
			name: "with date",
			args: []string{"2026-03-09", "meditation_times", "2x"},
			want: TrackRequest{Date: "2026-03-09", Field: "meditation_times", Value: "2x"},
		},
		{
			name: "multi-word insight",
			args: []string{"insights", "slept", "well"},
			want: TrackRequest{Field: "insights", Value: "slept well"},
		},
		{
			name: "gratitudes split on semicolons",
			args: []string{"gratitudes", "health;", "the", "sea;", ""},
			want: TrackRequest{Field: "gratitudes", Value: "health; the sea; ", Values: []string{"health", "the sea"}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseTrackArgs(tt.args)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseTrackArgs_Usage(t *testing.T) {
	for _, args := range [][]string{nil, {"emotion"}, {"2026-03-09", "emotion"}} {
		_, err := ParseTrackArgs(args)
		assert.ErrorContains(t, err, "usage:", "%v", args)
	}
}

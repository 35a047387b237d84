package discord

import (
	"fmt"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chris/attune/internal/tracking"
)

func TestStripMention(t *testing.T) {
	cases := []struct {
		name, in, want string
	}{
		{"command after mention", "<@42> !today", " !today"},
		{"nickname mention", "<@!42> !track emotion 8", " !track emotion 8"},
		{"mentioned mid reply", "felt calm <@42> all day", "felt calm  all day"},
		{"other user kept", "<@7> thanks for the walk", "<@7> thanks for the walk"},
		{"plain answer", "- my health\n- the sea", "- my health\n- the sea"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, stripMention(tc.in, "42"))
		})
	}
}

func TestFailure(t *testing.T) {
	assert.Equal(t, "Scores go from 1 to 10.",
		failure(fmt.Errorf("%w: 11", tracking.ErrOutOfRange)))
	assert.Equal(t, "That date is in the future.",
		failure(fmt.Errorf("%w: 2026-03-11", tracking.ErrFutureDate)))
	assert.Equal(t, "Couldn't do that: invalid value: meditation times \"lots\"",
		failure(fmt.Errorf("%w: meditation times %q", tracking.ErrInvalidValue, "lots")))
}

func TestSplitMessage_ReflectionFitsOneMessage(t *testing.T) {
	reflection := "📊 **Today's Check-In Complete**\n\n💜 Presence: 9/10\n🔥 **3-day streak!** Keep building on it."
	assert.Equal(t, []string{reflection}, splitMessage(reflection, maxMessageLen))
	assert.Equal(t, []string{""}, splitMessage("", maxMessageLen))
}

func TestSplitMessage_LongReportBreaksOnLines(t *testing.T) {
	var b strings.Builder
	for i := 1; b.Len() < 3*maxMessageLen; i++ {
		fmt.Fprintf(&b, "🙏 Day %d: grateful for the morning light and a slow coffee\n", i)
	}
	report := b.String()

	chunks := splitMessage(report, maxMessageLen)
	require.Greater(t, len(chunks), 2)
	for i, c := range chunks {
		assert.LessOrEqual(t, len(c), maxMessageLen, "chunk %d", i)
		assert.True(t, utf8.ValidString(c), "chunk %d", i)
		if i < len(chunks)-1 {
			assert.True(t, strings.HasSuffix(c, "\n"), "chunk %d should end on a line break", i)
		}
	}
	assert.Equal(t, report, strings.Join(chunks, ""))
}

func TestSplitMessage_UnbrokenEmojiRun(t *testing.T) {
	s := strings.Repeat("🔥", 10)
	chunks := splitMessage(s, 10)

	assert.Equal(t, []string{"🔥🔥", "🔥🔥", "🔥🔥", "🔥🔥", "🔥🔥"}, chunks)
}

func TestSplitMessage_PrefersLastLineBreak(t *testing.T) {
	s := "💜 9\n😊 8\n🙏 7\n🧘 2x"
	chunks := splitMessage(s, 16)

	assert.Equal(t, "💜 9\n😊 8\n", chunks[0])
	assert.Equal(t, s, strings.Join(chunks, ""))
}

package render

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "icsreader/internal/errors"
	"icsreader/internal/model"
)

func dashes(header string) string {
	return strings.Repeat("-", len(header))
}

func addEvent(t *testing.T, c *model.Collection, date int, start, end, summary, location string) *model.Event {
	t.Helper()
	ev, err := c.Add()
	require.NoError(t, err)
	ev.Active = true
	ev.StartDate = date
	ev.EndDate = date
	ev.StartClock = start
	ev.EndClock = end
	ev.Summary = summary
	ev.Location = location
	return ev
}

func TestHeader(t *testing.T) {
	tests := []struct {
		date int
		want string
	}{
		{20220214, "February 14, 2022"},
		{20220205, "February 05, 2022"},
		{20221231, "December 31, 2022"},
		{20220336, "March 36, 2022"},
	}
	for _, tt := range tests {
		got, err := Header(tt.date)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}

	_, err := Header(20221302)
	assert.True(t, errors.Is(err, appErrors.ErrMalformedRecord))
}

func TestRenderGroupsByDate(t *testing.T) {
	c := model.NewCollection(4)
	addEvent(t, c, 20220214, " 9:00 AM", "10:00 AM", "Standup", "Room 1")
	addEvent(t, c, 20220214, " 1:00 PM", " 2:00 PM", "Review", "Room 2")
	hidden := addEvent(t, c, 20220215, " 1:00 PM", " 2:00 PM", "Filtered", "Nowhere")
	hidden.Active = false
	addEvent(t, c, 20220216, "12:00 PM", "12:30 PM", "Lunch", "Cafe")

	var b strings.Builder
	require.NoError(t, Render(&b, c, 3))

	h1, h2 := "February 14, 2022", "February 16, 2022"
	want := h1 + "\n" + dashes(h1) + "\n" +
		" 9:00 AM to 10:00 AM: Standup {{Room 1}}\n" +
		" 1:00 PM to  2:00 PM: Review {{Room 2}}\n" +
		"\n" +
		h2 + "\n" + dashes(h2) + "\n" +
		"12:00 PM to 12:30 PM: Lunch {{Cafe}}\n"
	assert.Equal(t, want, b.String())
}

func TestRenderRecurringUsesOccurrenceDates(t *testing.T) {
	c := model.NewCollection(1)
	ev := addEvent(t, c, 20220208, " 1:00 PM", " 2:00 PM", "Yoga", "Gym")
	ev.RepeatUntil = 20220301
	ev.AddOccurrence(20220215)
	ev.AddOccurrence(20220222)

	var b strings.Builder
	require.NoError(t, Render(&b, c, 2))

	out := b.String()
	assert.NotContains(t, out, "February 08, 2022")
	assert.Equal(t, 2, strings.Count(out, "Yoga {{Gym}}"))
	assert.Contains(t, out, "February 15, 2022\n")
	assert.Contains(t, out, "February 22, 2022\n")
	assert.Equal(t, 20220208, ev.StartDate)
}

func TestRenderLastLineTerminationFollowsCount(t *testing.T) {
	c := model.NewCollection(1)
	addEvent(t, c, 20220214, " 9:00 AM", "10:00 AM", "Solo", "Home")

	var b strings.Builder
	require.NoError(t, Render(&b, c, 0))
	assert.True(t, strings.HasSuffix(b.String(), "Solo {{Home}}"))
}

func TestRenderEmpty(t *testing.T) {
	var b strings.Builder
	require.NoError(t, Render(&b, model.NewCollection(0), 0))
	assert.Empty(t, b.String())
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("disk full") }

func TestRenderReportsWriteError(t *testing.T) {
	c := model.NewCollection(1)
	addEvent(t, c, 20220214, " 9:00 AM", "10:00 AM", "Solo", "Home")
	assert.EqualError(t, Render(failingWriter{}, c, 1), "disk full")
}

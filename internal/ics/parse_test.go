package ics

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "icsreader/internal/errors"
	"icsreader/internal/model"
)

func parseRecord(t *testing.T, body string) (model.Event, error) {
	t.Helper()
	s := NewScanner(strings.NewReader(body))
	var ev model.Event
	err := ParseEvent(s, &ev)
	return ev, err
}

func TestParseEventPlain(t *testing.T) {
	ev, err := parseRecord(t, strings.Join([]string{
		"DTSTART:20220214T093000",
		"DTEND:20220214T103000",
		"LOCATION:Room 101, ECS",
		"SUMMARY:Design review: round 2",
		"UID:abc@example.com",
		"END:VEVENT",
		"SUMMARY:after the record",
	}, "\n"))
	require.NoError(t, err)

	assert.True(t, ev.Active)
	assert.Equal(t, 20220214, ev.StartDate)
	assert.Equal(t, 20220214, ev.EndDate)
	assert.Equal(t, " 9:30 AM", ev.StartClock)
	assert.Equal(t, "10:30 AM", ev.EndClock)
	assert.Equal(t, "Room 101, ECS", ev.Location)
	assert.Equal(t, "Design review: round 2", ev.Summary)
	assert.Equal(t, 0, ev.RepeatUntil)
	assert.False(t, ev.Recurring())
}

func TestParseEventFieldOrderDoesNotMatter(t *testing.T) {
	lines := []string{
		"DTSTART:20220301T130000",
		"DTEND:20220301T140000",
		"RRULE:FREQ=WEEKLY;WKST=MO;UNTIL=20220401T235959;BYDAY=TU",
		"LOCATION:Gym",
		"SUMMARY:Yoga",
	}
	forward, err := parseRecord(t, strings.Join(lines, "\n")+"\nEND:VEVENT\n")
	require.NoError(t, err)

	reversed := make([]string, 0, len(lines))
	for i := len(lines) - 1; i >= 0; i-- {
		reversed = append(reversed, lines[i])
	}
	backward, err := parseRecord(t, strings.Join(reversed, "\n")+"\nEND:VEVENT\n")
	require.NoError(t, err)

	assert.Equal(t, forward, backward)
	assert.Equal(t, 20220401, forward.RepeatUntil)
}

func TestParseEventCRLF(t *testing.T) {
	ev, err := parseRecord(t, "DTSTART:20220214T120000\r\nSUMMARY:Lunch\r\nEND:VEVENT\r\n")
	require.NoError(t, err)
	assert.Equal(t, "Lunch", ev.Summary)
	assert.Equal(t, "12:00 PM", ev.StartClock)
}

func TestParseEventRRULE(t *testing.T) {
	tests := []struct {
		name  string
		rule  string
		until int
	}{
		{"weekly with flags", "FREQ=WEEKLY;WKST=MO;UNTIL=20220401T235959Z;BYDAY=TU", 20220401},
		{"until first", "UNTIL=20220315T000000;FREQ=WEEKLY", 20220315},
		{"date only until", "FREQ=WEEKLY;UNTIL=20220322", 20220322},
		{"daily ignored", "FREQ=DAILY;UNTIL=20220401T235959", 0},
		{"monthly ignored", "FREQ=MONTHLY;COUNT=3", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev, err := parseRecord(t, "DTSTART:20220301T090000\nRRULE:"+tt.rule+"\nEND:VEVENT\n")
			require.NoError(t, err)
			assert.Equal(t, tt.until, ev.RepeatUntil)
		})
	}
}

func TestParseEventWithoutStartStaysInactive(t *testing.T) {
	ev, err := parseRecord(t, "SUMMARY:No start\nLOCATION:Nowhere\nEND:VEVENT\n")
	require.NoError(t, err)
	assert.False(t, ev.Active)
	assert.Equal(t, "No start", ev.Summary)
}

func TestParseEventMalformed(t *testing.T) {
	tests := []struct {
		name string
		body string
		line int
	}{
		{"missing separator", "DTSTART:20220214T093000\nSUMMARY Design review\nEND:VEVENT\n", 2},
		{"blank line", "DTSTART:20220214T093000\n\nEND:VEVENT\n", 2},
		{"date without time", "DTSTART:20220214\nEND:VEVENT\n", 1},
		{"short time", "DTEND:20220214T9\nEND:VEVENT\n", 1},
		{"non numeric date", "DTSTART:TODAYT090000\nEND:VEVENT\n", 1},
		{"weekly without until", "DTSTART:20220214T093000\nRRULE:FREQ=WEEKLY;COUNT=4\nEND:VEVENT\n", 2},
		{"weekly bad until", "DTSTART:20220214T093000\nRRULE:FREQ=WEEKLY;UNTIL=soon\nEND:VEVENT\n", 2},
		{"weekly without start", "SUMMARY:x\nRRULE:FREQ=WEEKLY;UNTIL=20220401\nEND:VEVENT\n", 3},
		{"over-long until", "DTSTART:20220301T090000\nRRULE:FREQ=WEEKLY;UNTIL=9223372036854775807\nEND:VEVENT\n", 2},
		{"over-long start", "DTSTART:202203010T090000\nEND:VEVENT\n", 1},
		{"short end date", "DTEND:2022031T090000\nEND:VEVENT\n", 1},
		{"unterminated", "DTSTART:20220214T093000\nSUMMARY:x\n", 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseRecord(t, tt.body)
			require.Error(t, err)
			assert.True(t, errors.Is(err, appErrors.ErrMalformedRecord), err.Error())

			var e *appErrors.Error
			require.True(t, errors.As(err, &e))
			assert.Equal(t, tt.line, e.Line)
		})
	}
}

func TestReadEvents(t *testing.T) {
	input := strings.Join([]string{
		"BEGIN:VCALENDAR",
		"VERSION:2.0",
		"BEGIN:VEVENT",
		"DTSTART:20220214T093000",
		"DTEND:20220214T103000",
		"SUMMARY:First",
		"END:VEVENT",
		"BEGIN:VEVENT",
		"SUMMARY:No start",
		"END:VEVENT",
		"BEGIN:VEVENT",
		"DTSTART:20220215T130000",
		"DTEND:20220215T140000",
		"SUMMARY:Third",
		"END:VEVENT",
		"END:VCALENDAR",
	}, "\n")

	events, err := ReadEvents(strings.NewReader(input), 10)
	require.NoError(t, err)
	require.Equal(t, 3, events.Len())
	assert.Equal(t, "First", events.At(0).Summary)
	assert.False(t, events.At(1).Active)
	assert.Equal(t, "Third", events.At(2).Summary)
	assert.Equal(t, 20220215, events.At(2).StartDate)
}

func TestReadEventsIgnoresNonExactMarkers(t *testing.T) {
	input := "begin:vevent\nDTSTART:20220214T093000\nBEGIN:VEVENT \nEND:VEVENT\n"
	events, err := ReadEvents(strings.NewReader(input), 10)
	require.NoError(t, err)
	assert.Equal(t, 0, events.Len())
}

func TestReadEventsCapacity(t *testing.T) {
	record := "BEGIN:VEVENT\nDTSTART:20220214T093000\nEND:VEVENT\n"
	_, err := ReadEvents(strings.NewReader(strings.Repeat(record, 3)), 2)
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrCapacityExceeded))

	var e *appErrors.Error
	require.True(t, errors.As(err, &e))
	assert.Equal(t, 7, e.Line)

	events, err := ReadEvents(strings.NewReader(strings.Repeat(record, 2)), 2)
	require.NoError(t, err)
	assert.Equal(t, 2, events.Len())
}

func TestReadEventsMalformedAborts(t *testing.T) {
	input := "BEGIN:VEVENT\nDTSTART:20220214T093000\nEND:VEVENT\nBEGIN:VEVENT\nbroken line\nEND:VEVENT\n"
	events, err := ReadEvents(strings.NewReader(input), 10)
	require.Error(t, err)
	assert.Nil(t, events)
	assert.Equal(t, appErrors.KindMalformedRecord, appErrors.KindOf(err))
}

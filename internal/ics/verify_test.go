package ics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const verifySample = `BEGIN:VCALENDAR
VERSION:2.0
PRODID:-//icsreader//test//EN
BEGIN:VEVENT
UID:1@example.com
DTSTART:20220214T093000
DTEND:20220214T103000
SUMMARY:First
END:VEVENT
BEGIN:VEVENT
UID:2@example.com
SUMMARY:No start
END:VEVENT
END:VCALENDAR
`

func TestVerifyCountsEvents(t *testing.T) {
	n, err := Verify([]byte(verifySample), 2)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	// A mismatch is only logged.
	n, err = Verify([]byte(verifySample), 5)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestVerifyRejectsNonCalendar(t *testing.T) {
	_, err := Verify([]byte("SUMMARY:not a calendar\n"), 0)
	assert.Error(t, err)
}

func TestVerifyResult(t *testing.T) {
	n, err := Verify([]byte(verifySample), 2)
	assert.Equal(t, VerifyMatch, VerifyResult(n, 2, err))

	n, err = Verify([]byte(verifySample), 3)
	assert.Equal(t, VerifyMismatch, VerifyResult(n, 3, err))

	n, err = Verify([]byte("SUMMARY:not a calendar\n"), 0)
	assert.Equal(t, VerifyFailed, VerifyResult(n, 0, err))
}

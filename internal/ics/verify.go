package ics

import (
	"bytes"

	ical "github.com/arran4/golang-ical"

	appLog "icsreader/internal/log"
)

// Verify results, as reported to metrics.
const (
	VerifyMatch    = "match"
	VerifyMismatch = "mismatch"
	VerifyFailed   = "failed"
)

// VerifyResult names the outcome of a Verify call.
func VerifyResult(found, read int, err error) string {
	switch {
	case err != nil:
		return VerifyFailed
	case found != read:
		return VerifyMismatch
	default:
		return VerifyMatch
	}
}

// Verify parses body with a complete iCalendar parser and returns how many
// VEVENT components it found. The line reader only understands a constrained
// dialect, so a count differing from read usually means folded or
// parameterized lines it could not see; the mismatch is logged, not fatal.
func Verify(body []byte, read int) (int, error) {
	cal, err := ical.ParseCalendar(bytes.NewReader(body))
	if err != nil {
		appLog.Warn("ics verify: full parse failed", "err", err)
		return 0, err
	}

	n := 0
	withStart := 0
	for _, ev := range cal.Events() {
		n++
		if ev.GetProperty(ical.ComponentPropertyDtStart) != nil {
			withStart++
		}
	}

	if n != read {
		appLog.Warn("ics verify: event count mismatch",
			"line_reader", read,
			"ical", n,
			"ical_with_dtstart", withStart,
		)
	} else {
		appLog.Debug("ics verify ok", "event_count", n)
	}
	return n, nil
}

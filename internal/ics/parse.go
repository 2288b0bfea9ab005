package ics

import (
	"bufio"
	"errors"
	"io"
	"strings"

	appErrors "icsreader/internal/errors"
	"icsreader/internal/model"
)

// Record delimiters; lines must match exactly once the line terminator is
// stripped.
const (
	BeginEvent = "BEGIN:VEVENT"
	EndEvent   = "END:VEVENT"
)

const maxLineBytes = 1 << 20

// Scanner yields input lines without their "\n" or "\r\n" terminator and
// keeps track of the current 1-based line number.
type Scanner struct {
	sc   *bufio.Scanner
	line int
}

// NewScanner wraps r for sequential, forward-only line reading.
func NewScanner(r io.Reader) *Scanner {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 4096), maxLineBytes)
	return &Scanner{sc: sc}
}

// Next returns the next line, or false at end of input or on a read error.
func (s *Scanner) Next() (string, bool) {
	if !s.sc.Scan() {
		return "", false
	}
	s.line++
	return strings.TrimRight(s.sc.Text(), "\r"), true
}

// Line is the number of the line most recently returned by Next.
func (s *Scanner) Line() int { return s.line }

// Err reports a read error, wrapped as InputFileUnreadable.
func (s *Scanner) Err() error {
	if err := s.sc.Err(); err != nil {
		return appErrors.Wrap(err, appErrors.KindInputFileUnreadable, "read input").AtLine(s.line + 1)
	}
	return nil
}

// ParseEvent consumes the lines of one record, up to and including the
// END:VEVENT marker, and fills ev. The BEGIN:VEVENT line must already have
// been consumed.
//
// Recognized properties are DTSTART, DTEND, LOCATION, SUMMARY and RRULE
// (weekly rules only); everything else is skipped. A record without DTSTART
// is left inactive.
func ParseEvent(s *Scanner, ev *model.Event) error {
	begin := s.Line()
	hasStart := false

	for {
		line, ok := s.Next()
		if !ok {
			if err := s.Err(); err != nil {
				return err
			}
			return appErrors.New(appErrors.KindMalformedRecord,
				"record starting at line %d has no %s", begin, EndEvent).AtLine(s.Line())
		}
		if line == EndEvent {
			break
		}

		key, value, found := strings.Cut(line, ":")
		if !found {
			return appErrors.New(appErrors.KindMalformedRecord,
				"%q has no ':' separator", line).AtLine(s.Line())
		}

		if err := applyProperty(ev, key, value); err != nil {
			return atLine(err, s.Line())
		}
		if key == "DTSTART" {
			hasStart = true
		}
	}

	if ev.Recurring() && !hasStart {
		return appErrors.New(appErrors.KindMalformedRecord,
			"record starting at line %d repeats weekly but has no DTSTART", begin).AtLine(s.Line())
	}
	return nil
}

func applyProperty(ev *model.Event, key, value string) error {
	switch key {
	case "DTSTART":
		date, clock, err := splitDateTime(value)
		if err != nil {
			return err
		}
		ev.StartDate = date
		ev.StartClock = clock
		ev.Active = true

	case "DTEND":
		date, clock, err := splitDateTime(value)
		if err != nil {
			return err
		}
		ev.EndDate = date
		ev.EndClock = clock

	case "LOCATION":
		ev.Location = value

	case "SUMMARY":
		ev.Summary = value

	case "RRULE":
		until, weekly, err := weeklyUntil(value)
		if err != nil {
			return err
		}
		if weekly {
			ev.RepeatUntil = until
		}
	}
	return nil
}

// splitDateTime splits "20220214T093000" into its date integer and a
// formatted clock.
func splitDateTime(value string) (int, string, error) {
	datePart, timePart, found := strings.Cut(value, "T")
	if !found {
		return 0, "", appErrors.New(appErrors.KindMalformedRecord, "date-time %q has no 'T' separator", value)
	}
	date, ok := datePrefix(datePart)
	if !ok {
		return 0, "", appErrors.New(appErrors.KindMalformedRecord, "date-time %q: want an 8-digit YYYYMMDD date", value)
	}
	clock, err := FormatClock(timePart)
	if err != nil {
		return 0, "", err
	}
	return date, clock, nil
}

// weeklyUntil extracts the UNTIL date of a FREQ=WEEKLY rule. Other
// frequencies report weekly=false and are ignored by the caller.
func weeklyUntil(rule string) (until int, weekly bool, err error) {
	parts := strings.Split(rule, ";")
	for _, p := range parts {
		if strings.EqualFold(p, "FREQ=WEEKLY") {
			weekly = true
			break
		}
	}
	if !weekly {
		return 0, false, nil
	}

	for _, p := range parts {
		name, v, _ := strings.Cut(p, "=")
		if !strings.EqualFold(name, "UNTIL") {
			continue
		}
		v, _, _ = strings.Cut(v, "T")
		n, ok := datePrefix(v)
		if !ok {
			return 0, true, appErrors.New(appErrors.KindMalformedRecord, "RRULE %q: UNTIL must start with an 8-digit YYYYMMDD date", rule)
		}
		return n, true, nil
	}
	return 0, true, appErrors.New(appErrors.KindMalformedRecord, "RRULE %q: weekly rule without UNTIL", rule)
}

// atLine annotates a typed error with line unless it already carries one.
func atLine(err error, line int) error {
	var e *appErrors.Error
	if errors.As(err, &e) && e.Line == 0 {
		return e.AtLine(line)
	}
	return err
}

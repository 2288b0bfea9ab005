package ics

import (
	"fmt"

	appErrors "icsreader/internal/errors"
)

// FormatClock turns the time part of a DTSTART/DTEND value ("HHMMSS", any
// trailing flags ignored) into an 8-character 12-hour clock such as
// " 9:00 AM", "12:30 PM" or " 1:05 PM".
//
// Morning hours keep their digits with a leading zero blanked, so midnight
// renders as " 0:00 AM" rather than "12:00 AM".
func FormatClock(raw string) (string, error) {
	if len(raw) < 4 || !allDigits(raw[:4]) {
		return "", appErrors.New(appErrors.KindMalformedRecord, "time %q: want HHMMSS", raw)
	}

	hh := raw[0:2]
	mm := raw[2:4]
	hour := int(hh[0]-'0')*10 + int(hh[1]-'0')

	switch {
	case hour > 12:
		return fmt.Sprintf("%2d:%s PM", hour-12, mm), nil
	case hour == 12:
		return hh + ":" + mm + " PM", nil
	default:
		if hh[0] == '0' {
			hh = " " + hh[1:]
		}
		return hh + ":" + mm + " AM", nil
	}
}

package ics

import (
	"strconv"
	"strings"

	appErrors "icsreader/internal/errors"
)

// NormalizeDate rewrites a "/"-separated date with 1- or 2-digit month and
// day into its 8-digit form: "2022/2/5" -> "20220205". An already compact
// YYYYMMDD string is returned unchanged.
func NormalizeDate(s string) (string, error) {
	s = strings.TrimSpace(s)
	if len(s) == 8 && allDigits(s) {
		return s, nil
	}

	parts := strings.Split(s, "/")
	if len(parts) != 3 {
		return "", appErrors.New(appErrors.KindInvalidArgument, "date %q: want YYYY/M/D", s)
	}
	if len(parts[0]) != 4 || !allDigits(parts[0]) {
		return "", appErrors.New(appErrors.KindInvalidArgument, "date %q: year must be 4 digits", s)
	}

	var b strings.Builder
	b.Grow(8)
	b.WriteString(parts[0])
	for _, p := range parts[1:] {
		if len(p) < 1 || len(p) > 2 || !allDigits(p) {
			return "", appErrors.New(appErrors.KindInvalidArgument, "date %q: month and day must be 1 or 2 digits", s)
		}
		if len(p) == 1 {
			b.WriteByte('0')
		}
		b.WriteString(p)
	}
	return b.String(), nil
}

// ParseDate normalizes s and returns it as a YYYYMMDD integer.
func ParseDate(s string) (int, error) {
	norm, err := NormalizeDate(s)
	if err != nil {
		return 0, err
	}
	n, err := strconv.Atoi(norm)
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.KindInvalidArgument, "date %q", s)
	}
	return n, nil
}

// dateWidth is the digit count of a YYYYMMDD value.
const dateWidth = 8

// datePrefix reads the YYYYMMDD date at the start of a DTSTART, DTEND or
// UNTIL value ("20220301T090000Z" -> 20220301). Exactly eight digits are
// required; a shorter or longer run is rejected.
func datePrefix(s string) (int, bool) {
	end := 0
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end != dateWidth {
		return 0, false
	}
	n, err := strconv.Atoi(s[:end])
	if err != nil {
		return 0, false
	}
	return n, true
}

func allDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

package render

import (
	"fmt"
	"io"
	"strings"
	"time"

	appErrors "icsreader/internal/errors"
	"icsreader/internal/model"
)

// Header formats a YYYYMMDD date as "February 05, 2022". The day keeps its
// two digits and is not range-checked, so drifted weekly dates such as
// 20220336 print as "March 36, 2022".
func Header(date int) (string, error) {
	year := date / 10000
	month := (date / 100) % 100
	day := date % 100
	if month < 1 || month > 12 {
		return "", appErrors.New(appErrors.KindMalformedRecord, "date %d has no month %d", date, month)
	}
	return fmt.Sprintf("%s %02d, %d", time.Month(month), day, year), nil
}

// Render writes the itinerary for the active events of c in storage order.
//
// Each new date gets a header underlined with dashes, preceded by a blank
// line unless it is the first thing printed. visible is the occurrence count
// returned by the filter: an occurrence line is newline-terminated while the
// running count is still positive.
func Render(w io.Writer, c *model.Collection, visible int) error {
	ew := &errWriter{w: w}

	lastDate := 0
	first := true
	remaining := visible

	for _, occ := range c.Occurrences() {
		if occ.Date != lastDate {
			header, err := Header(occ.Date)
			if err != nil {
				return err
			}
			if !first {
				ew.write("\n")
			}
			first = false
			ew.write(header + "\n" + strings.Repeat("-", len(header)) + "\n")
		}

		ev := occ.Event
		ew.write(fmt.Sprintf("%s to %s: %s {{%s}}", ev.StartClock, ev.EndClock, ev.Summary, ev.Location))
		lastDate = occ.Date

		if remaining > 0 {
			ew.write("\n")
		}
		remaining--
	}
	return ew.err
}

// errWriter remembers the first write error and skips later writes.
type errWriter struct {
	w   io.Writer
	err error
}

func (e *errWriter) write(s string) {
	if e.err != nil {
		return
	}
	_, e.err = io.WriteString(e.w, s)
}

package ics

import (
	"time"

	"github.com/teambition/rrule-go"

	appErrors "icsreader/internal/errors"
	appLog "icsreader/internal/log"
	"icsreader/internal/model"
)

// FilterConfig controls how events are restricted to a window and how weekly
// rules are expanded.
type FilterConfig struct {
	// Start / End bound the window, inclusive, as YYYYMMDD integers.
	Start int
	End   int

	// CalendarWeeks steps weekly rules through real calendar weeks. When
	// false, 7 is added to the YYYYMMDD integer, which runs past month ends
	// (20220329 -> 20220336) exactly like the established output.
	CalendarWeeks bool

	// FailOnOverflow turns a recurring event with more in-window dates than
	// model.MaxOccurrences into a CapacityExceeded error instead of keeping
	// the first ones.
	FailOnOverflow bool
}

// FilterResult summarizes one Filter pass.
type FilterResult struct {
	// Visible is the number of occurrences that will be printed.
	Visible int
	// Truncated lists collection indexes of events that hit the recurrence
	// cap and lost in-window dates.
	Truncated []int
}

// Filter deactivates events with nothing to show in the window and
// materializes the in-window dates of weekly events. Events are mutated in
// place and never reordered. Running it again with the same window gives the
// same result.
func Filter(events *model.Collection, cfg FilterConfig) (FilterResult, error) {
	var result FilterResult

	if cfg.End < cfg.Start {
		return result, appErrors.New(appErrors.KindInvalidArgument,
			"window end %d is before start %d", cfg.End, cfg.Start)
	}

	for i := 0; i < events.Len(); i++ {
		ev := events.At(i)
		if !ev.Active {
			continue
		}

		if !ev.Recurring() {
			if cfg.Start <= ev.StartDate && ev.StartDate <= cfg.End {
				result.Visible++
			} else {
				ev.Active = false
			}
			continue
		}

		// One date past the cap is enough to tell that the cap was hit.
		dates, err := weeklyDates(ev, cfg, model.MaxOccurrences+1)
		if err != nil {
			appLog.Error("weekly expansion failed", err, "event_index", i, "summary", ev.Summary)
			return FilterResult{}, err
		}

		ev.ResetOccurrences()
		dropped := 0
		for _, d := range dates {
			if !ev.AddOccurrence(d) {
				dropped++
			}
		}
		if dropped > 0 {
			if cfg.FailOnOverflow {
				return FilterResult{}, appErrors.New(appErrors.KindCapacityExceeded,
					"event %d (%q) has more than %d dates in window",
					i, ev.Summary, model.MaxOccurrences)
			}
			result.Truncated = append(result.Truncated, i)
			appLog.Warn("recurring event truncated at occurrence cap",
				"event_index", i,
				"summary", ev.Summary,
				"cap", model.MaxOccurrences,
			)
		}

		result.Visible += ev.NumOccurrences
		ev.Active = ev.NumOccurrences > 0
	}

	appLog.Debug("filter completed",
		"start", cfg.Start,
		"end", cfg.End,
		"visible", result.Visible,
		"truncated", len(result.Truncated),
	)
	return result, nil
}

const secondsPerDay = 24 * 60 * 60

// maxDate is the largest value an 8-digit YYYYMMDD date can take.
const maxDate = 99999999

// weeklyDates lists the dates of ev's weekly rule that fall in the window,
// in order, stopping after limit of them.
func weeklyDates(ev *model.Event, cfg FilterConfig, limit int) ([]int, error) {
	if ev.StartDate < 0 || ev.StartDate > maxDate || ev.RepeatUntil < 0 || ev.RepeatUntil > maxDate {
		return nil, appErrors.New(appErrors.KindMalformedRecord,
			"weekly rule from %d until %d: dates must be 8-digit YYYYMMDD", ev.StartDate, ev.RepeatUntil)
	}
	if cfg.CalendarWeeks {
		return calendarWeeks(ev.StartDate, ev.RepeatUntil, cfg.Start, cfg.End, limit)
	}

	last := min(ev.RepeatUntil, cfg.End)
	if cfg.Start > last {
		return nil, nil
	}
	d := ev.StartDate
	if d < cfg.Start {
		// Skip whole steps up to the window; the step stays on the +7 grid.
		d += (cfg.Start - d + 6) / 7 * 7
	}

	out := make([]int, 0, limit)
	for ; d <= last && len(out) < limit; d += 7 {
		out = append(out, d)
	}
	return out, nil
}

// calendarWeeks expands FREQ=WEEKLY between start and until with
// calendar-correct arithmetic and keeps at most limit dates inside
// [from, to].
func calendarWeeks(start, until, from, to, limit int) ([]int, error) {
	dtstart, err := dateToTime(start)
	if err != nil {
		return nil, err
	}
	untilT, err := dateToTime(until)
	if err != nil {
		return nil, err
	}

	// Window bounds only need to be ordered instants; they may be drifted
	// integer dates, so let time.Date normalize them.
	fromT := looseDateToTime(from)
	toT := looseDateToTime(to)
	if toT.Before(untilT) {
		untilT = toT
	}

	// Begin at the first week on or after the window start so the rule
	// never walks weeks that are discarded anyway.
	first := dtstart
	if fromT.After(dtstart) {
		days := (fromT.Unix() - dtstart.Unix()) / secondsPerDay
		weeks := int((days + 6) / 7)
		first = dtstart.AddDate(0, 0, 7*weeks)
	}
	if first.After(untilT) {
		return nil, nil
	}

	r, err := rrule.NewRRule(rrule.ROption{
		Freq:    rrule.WEEKLY,
		Dtstart: first,
		Until:   untilT,
		Count:   limit,
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.KindMalformedRecord, "weekly rule from %d until %d", start, until)
	}

	times := r.All()
	out := make([]int, 0, len(times))
	for _, t := range times {
		out = append(out, timeToDate(t))
	}
	return out, nil
}

// dateToTime converts a YYYYMMDD integer into midnight UTC, rejecting values
// that are not real calendar dates.
func dateToTime(d int) (time.Time, error) {
	y, m, day := d/10000, (d/100)%100, d%100
	t := time.Date(y, time.Month(m), day, 0, 0, 0, 0, time.UTC)
	if t.Year() != y || int(t.Month()) != m || t.Day() != day {
		return time.Time{}, appErrors.New(appErrors.KindMalformedRecord, "%d is not a calendar date", d)
	}
	return t, nil
}

func looseDateToTime(d int) time.Time {
	return time.Date(d/10000, time.Month((d/100)%100), d%100, 0, 0, 0, 0, time.UTC)
}

func timeToDate(t time.Time) int {
	return t.Year()*10000 + int(t.Month())*100 + t.Day()
}

package model

import (
	appErrors "icsreader/internal/errors"
)

// MaxOccurrences is the recurrence cap: at most this many in-window dates are
// materialized for one recurring event.
const MaxOccurrences = 5

// Event is one VEVENT record. Dates are YYYYMMDD integers and are never
// checked against a real calendar.
type Event struct {
	// Active is false until DTSTART is seen, and is cleared again by the
	// filter when the event has nothing to show in the window.
	Active bool

	StartDate int
	EndDate   int

	// StartClock / EndClock are preformatted 12-hour times, e.g. " 2:30 PM".
	StartClock string
	EndClock   string

	Location string
	Summary  string

	// RepeatUntil is the UNTIL date of a weekly rule; 0 means not recurring.
	RepeatUntil int

	// Occurrences holds the in-window dates of a recurring event. Entries
	// past NumOccurrences are zero.
	Occurrences    [MaxOccurrences]int
	NumOccurrences int
}

// Recurring reports whether the event carries a weekly rule.
func (e *Event) Recurring() bool {
	return e.RepeatUntil != 0
}

// ResetOccurrences clears any previously materialized dates.
func (e *Event) ResetOccurrences() {
	e.Occurrences = [MaxOccurrences]int{}
	e.NumOccurrences = 0
}

// AddOccurrence records date and reports false when the cap is already
// reached; the date is not stored in that case.
func (e *Event) AddOccurrence(date int) bool {
	if e.NumOccurrences >= MaxOccurrences {
		return false
	}
	e.Occurrences[e.NumOccurrences] = date
	e.NumOccurrences++
	return true
}

// Dates returns the dates this event is shown on: its start date for a plain
// event, or the materialized occurrences for a recurring one.
func (e *Event) Dates() []int {
	if !e.Recurring() {
		return []int{e.StartDate}
	}
	return append([]int(nil), e.Occurrences[:e.NumOccurrences]...)
}

// Occurrence is one concrete appearance of an event on a date. Event points
// into the owning Collection and must be treated as read-only.
type Occurrence struct {
	Date  int
	Event *Event
}

// Collection is a bounded, append-only sequence of events in file order.
// Storage grows with the input; capacity is only the upper bound.
type Collection struct {
	events   []*Event
	capacity int
}

// NewCollection returns an empty collection holding at most capacity events.
func NewCollection(capacity int) *Collection {
	if capacity < 0 {
		capacity = 0
	}
	return &Collection{capacity: capacity}
}

// Add appends a zero-initialized event and returns a pointer to it for the
// parser to fill in. The pointer stays valid as more events are added.
func (c *Collection) Add() (*Event, error) {
	if len(c.events) >= c.capacity {
		return nil, appErrors.New(appErrors.KindCapacityExceeded,
			"more than %d events in input", c.capacity)
	}
	ev := &Event{}
	c.events = append(c.events, ev)
	return ev, nil
}

func (c *Collection) Len() int      { return len(c.events) }
func (c *Collection) Capacity() int { return c.capacity }

// At returns the i-th event.
func (c *Collection) At(i int) *Event {
	return c.events[i]
}

// Occurrences lists every occurrence of every active event in storage order.
func (c *Collection) Occurrences() []Occurrence {
	out := make([]Occurrence, 0, len(c.events))
	for _, ev := range c.events {
		if !ev.Active {
			continue
		}
		for _, d := range ev.Dates() {
			out = append(out, Occurrence{Date: d, Event: ev})
		}
	}
	return out
}

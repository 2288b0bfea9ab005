package ics

import (
	"io"

	appLog "icsreader/internal/log"
	"icsreader/internal/model"
)

// ReadEvents scans r for VEVENT records and parses each into a new slot of a
// collection holding at most maxEvents events. Lines outside records are
// skipped. Any error aborts the read; no partial collection is returned.
func ReadEvents(r io.Reader, maxEvents int) (*model.Collection, error) {
	events := model.NewCollection(maxEvents)
	s := NewScanner(r)

	for {
		line, ok := s.Next()
		if !ok {
			break
		}
		if line != BeginEvent {
			continue
		}

		ev, err := events.Add()
		if err != nil {
			return nil, atLine(err, s.Line())
		}
		if err := ParseEvent(s, ev); err != nil {
			return nil, err
		}
		if !ev.Active {
			appLog.Debug("record has no DTSTART; skipping", "line", s.Line(), "summary", ev.Summary)
		}
	}
	if err := s.Err(); err != nil {
		return nil, err
	}

	appLog.Debug("ics read completed", "event_count", events.Len(), "lines", s.Line())
	return events, nil
}

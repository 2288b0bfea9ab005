// Package itinerary runs the read → filter → render pipeline over one input.
// Every run owns its own event collection; nothing is shared between runs.
package itinerary

import (
	"bytes"
	"context"
	"io"

	"icsreader/internal/config"
	appErrors "icsreader/internal/errors"
	"icsreader/internal/ics"
	appLog "icsreader/internal/log"
	"icsreader/internal/metrics"
	"icsreader/internal/model"
	"icsreader/internal/render"
)

// Window is an inclusive date range of YYYYMMDD integers.
type Window struct {
	Start int
	End   int
}

// ParseWindow normalizes two "YYYY/M/D" arguments.
func ParseWindow(start, end string) (Window, error) {
	s, err := ics.ParseDate(start)
	if err != nil {
		return Window{}, err
	}
	e, err := ics.ParseDate(end)
	if err != nil {
		return Window{}, err
	}
	if e < s {
		return Window{}, appErrors.New(appErrors.KindInvalidArgument, "end %s is before start %s", end, start)
	}
	return Window{Start: s, End: e}, nil
}

// Itinerary is the filtered state of one run.
type Itinerary struct {
	Window    Window
	Events    *model.Collection
	Visible   int
	Truncated []int
	// Verified is the VEVENT count the full iCalendar parser found, or nil
	// when verification is off or the parser rejected the input.
	Verified *int
}

// Occurrences lists what Render prints, in order.
func (it *Itinerary) Occurrences() []model.Occurrence {
	return it.Events.Occurrences()
}

// Render writes the text itinerary.
func (it *Itinerary) Render(w io.Writer) error {
	return render.Render(w, it.Events, it.Visible)
}

// Pipeline binds configuration and the remote-input cache.
type Pipeline struct {
	cfg     *config.Config
	fetcher *ics.Fetcher
	metrics *metrics.Metrics
}

// New creates a Pipeline; a nil cfg means defaults.
func New(cfg *config.Config) *Pipeline {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	cfg.Normalize()
	return &Pipeline{
		cfg:     cfg,
		fetcher: ics.NewFetcher(cfg.CacheDir),
	}
}

// WithMetrics records every Build and remote fetch in m.
func (p *Pipeline) WithMetrics(m *metrics.Metrics) *Pipeline {
	p.metrics = m
	p.fetcher.OnResult(m.ObserveFetch)
	return p
}

// Build reads input and filters it to win.
func (p *Pipeline) Build(ctx context.Context, win Window, input string) (*Itinerary, error) {
	it, err := p.build(ctx, win, input)
	if err != nil {
		p.metrics.ObserveRun(outcome(err), 0, 0, 0)
		return nil, err
	}
	p.metrics.ObserveRun("ok", it.Events.Len(), it.Visible, len(it.Truncated))
	return it, nil
}

func outcome(err error) string {
	if kind := appErrors.KindOf(err); kind != "" {
		return string(kind)
	}
	return "error"
}

func (p *Pipeline) build(ctx context.Context, win Window, input string) (*Itinerary, error) {
	body, err := ics.ReadInput(ctx, input, p.fetcher)
	if err != nil {
		return nil, err
	}

	events, err := ics.ReadEvents(bytes.NewReader(body), p.cfg.MaxEvents)
	if err != nil {
		return nil, err
	}

	var verified *int
	if p.cfg.Verify {
		// Advisory only; a failed or mismatched check never fails the run.
		n, verr := ics.Verify(body, events.Len())
		p.metrics.ObserveVerify(ics.VerifyResult(n, events.Len(), verr))
		if verr == nil {
			verified = &n
		}
	}

	res, err := ics.Filter(events, ics.FilterConfig{
		Start:          win.Start,
		End:            win.End,
		CalendarWeeks:  p.cfg.WeeklyStep == config.StepCalendar,
		FailOnOverflow: p.cfg.OccurrenceOverflow == config.OverflowError,
	})
	if err != nil {
		return nil, err
	}

	appLog.Info("itinerary built",
		"input", input,
		"start", win.Start,
		"end", win.End,
		"events", events.Len(),
		"visible", res.Visible,
	)

	return &Itinerary{
		Window:    win,
		Events:    events,
		Visible:   res.Visible,
		Truncated: res.Truncated,
		Verified:  verified,
	}, nil
}

// Run builds the itinerary and writes it to w. Output is rendered into a
// buffer first, so nothing reaches w when any step fails.
func (p *Pipeline) Run(ctx context.Context, win Window, input string, w io.Writer) error {
	it, err := p.Build(ctx, win, input)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := it.Render(&buf); err != nil {
		return err
	}
	_, err = buf.WriteTo(w)
	return err
}

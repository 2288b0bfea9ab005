package web

import (
	"bytes"
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"icsreader/internal/config"
	appErrors "icsreader/internal/errors"
	"icsreader/internal/itinerary"
	appLog "icsreader/internal/log"
	"icsreader/internal/metrics"
	"icsreader/internal/render"
)

const requestIDHeader = "X-Request-ID"

// Server exposes the itinerary of one input over HTTP. Every request runs its
// own pipeline against the input, so edits to the file show up immediately.
type Server struct {
	cfg      *config.Config
	pipeline *itinerary.Pipeline
	metrics  *metrics.Metrics
	input    string
	router   *mux.Router
}

// NewServer constructs a new Server. m may be nil, in which case /metrics
// answers 503.
func NewServer(cfg *config.Config, pipeline *itinerary.Pipeline, m *metrics.Metrics, input string) *Server {
	s := &Server{
		cfg:      cfg,
		pipeline: pipeline,
		metrics:  m,
		input:    input,
		router:   mux.NewRouter(),
	}
	s.registerRoutes()
	return s
}

// Handler returns the underlying http.Handler for this server.
func (s *Server) Handler() http.Handler {
	h := http.Handler(s.router)
	if s.basicAuthEnabled() {
		appLog.Info("HTTP basic auth enabled", "listen", "http://"+s.cfg.Listen)
		h = s.basicAuthMiddleware(h)
	}
	return addRequestID(h)
}

// addRequestID propagates X-Request-ID, generating one when absent.
func addRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rid := r.Header.Get(requestIDHeader)
		if rid == "" {
			rid = uuid.New().String()
			r.Header.Set(requestIDHeader, rid)
		}
		w.Header().Set(requestIDHeader, rid)
		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (w *statusRecorder) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

// instrument logs and counts every routed request by its route template.
func (s *Server) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		route := r.URL.Path
		if cur := mux.CurrentRoute(r); cur != nil {
			if tpl, err := cur.GetPathTemplate(); err == nil {
				route = tpl
			}
		}

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		d := time.Since(start)
		s.metrics.ObserveHTTPRequest(r.Method, route, rec.status, d)
		appLog.Debug("HTTP request",
			"method", r.Method,
			"route", route,
			"status", rec.status,
			"duration", d.String(),
			"request", r.Header.Get(requestIDHeader),
		)
	})
}

func (s *Server) basicAuthEnabled() bool {
	if s.cfg == nil || s.cfg.BasicAuth == nil {
		return false
	}
	return s.cfg.BasicAuth.Username != "" && s.cfg.BasicAuth.Password != ""
}

// basicAuthMiddleware wraps all handlers except /health with HTTP Basic Auth.
func (s *Server) basicAuthMiddleware(next http.Handler) http.Handler {
	username := s.cfg.BasicAuth.Username
	password := s.cfg.BasicAuth.Password

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}

		u, p, ok := r.BasicAuth()
		if !ok || !secureCompare(u, username) || !secureCompare(p, password) {
			w.Header().Set("WWW-Authenticate", `Basic realm="icsreader", charset="UTF-8"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// secureCompare compares two strings in constant time.
func secureCompare(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

// ListenAndServe serves on cfg.Listen until ctx is canceled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Listen,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		appLog.Info("starting HTTP server", "listen", "http://"+s.cfg.Listen, "input", s.input)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

func (s *Server) registerRoutes() {
	s.router.Use(s.instrument)
	s.router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	s.router.Handle("/metrics", s.metrics.Handler()).Methods(http.MethodGet)
	s.router.HandleFunc("/api/itinerary", s.handleItinerary).Methods(http.MethodGet)
	s.router.HandleFunc("/api/events", s.handleEvents).Methods(http.MethodGet)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// handleItinerary renders the text itinerary.
//
// GET /api/itinerary?start=2022/2/1&end=2022/2/28
func (s *Server) handleItinerary(w http.ResponseWriter, r *http.Request) {
	it, ok := s.build(w, r)
	if !ok {
		return
	}

	var buf bytes.Buffer
	if err := it.Render(&buf); err != nil {
		s.writeRunError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

// eventsResponse is the JSON response shape for /api/events.
type eventsResponse struct {
	Start       int             `json:"start"`
	End         int             `json:"end"`
	Visible     int             `json:"visible"`
	Truncated   []int           `json:"truncated,omitempty"`
	Read        int             `json:"read"`
	Verified    *int            `json:"verified,omitempty"`
	Occurrences []occurrenceDTO `json:"occurrences"`
}

// occurrenceDTO is a JSON-friendly view of one printed line.
type occurrenceDTO struct {
	Date      int    `json:"date"`
	Header    string `json:"header"`
	Start     string `json:"start"`
	End       string `json:"end"`
	Summary   string `json:"summary"`
	Location  string `json:"location"`
	Recurring bool   `json:"recurring"`
}

// handleEvents returns the occurrences of the window as JSON.
//
// GET /api/events?start=2022/2/1&end=2022/2/28
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	it, ok := s.build(w, r)
	if !ok {
		return
	}

	occs := it.Occurrences()
	dtos := make([]occurrenceDTO, 0, len(occs))
	for _, occ := range occs {
		header, err := render.Header(occ.Date)
		if err != nil {
			s.writeRunError(w, r, err)
			return
		}
		dtos = append(dtos, occurrenceDTO{
			Date:      occ.Date,
			Header:    header,
			Start:     occ.Event.StartClock,
			End:       occ.Event.EndClock,
			Summary:   occ.Event.Summary,
			Location:  occ.Event.Location,
			Recurring: occ.Event.Recurring(),
		})
	}

	writeJSON(w, http.StatusOK, eventsResponse{
		Start:       it.Window.Start,
		End:         it.Window.End,
		Visible:     it.Visible,
		Truncated:   it.Truncated,
		Read:        it.Events.Len(),
		Verified:    it.Verified,
		Occurrences: dtos,
	})
}

// build runs the pipeline for the request's window; on failure it has
// already written the response.
func (s *Server) build(w http.ResponseWriter, r *http.Request) (*itinerary.Itinerary, bool) {
	q := r.URL.Query()
	start, end := q.Get("start"), q.Get("end")
	if start == "" || end == "" {
		writeError(w, http.StatusBadRequest, "start and end are required")
		return nil, false
	}

	win, err := itinerary.ParseWindow(start, end)
	if err != nil {
		s.writeRunError(w, r, err)
		return nil, false
	}

	it, err := s.pipeline.Build(r.Context(), win, s.input)
	if err != nil {
		s.writeRunError(w, r, err)
		return nil, false
	}
	return it, true
}

func (s *Server) writeRunError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		appLog.Error("api request failed", err, "input", s.input, "request", r.Header.Get(requestIDHeader))
	}
	writeError(w, status, err.Error())
}

func statusFor(err error) int {
	switch appErrors.KindOf(err) {
	case appErrors.KindInvalidArgument:
		return http.StatusBadRequest
	case appErrors.KindMalformedRecord, appErrors.KindCapacityExceeded:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		appLog.Error("failed to write JSON response", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	type errResp struct {
		Error string `json:"error"`
	}
	writeJSON(w, status, errResp{Error: msg})
}

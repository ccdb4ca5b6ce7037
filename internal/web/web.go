package web

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"sync"
	"time"

	"daybrief/internal/briefing"
	"daybrief/internal/config"
	appLog "daybrief/internal/log"
	"daybrief/internal/model"
	"daybrief/internal/profile"
)

// cacheTTL bounds how long a composed response is reused. Feeds are already
// disk cached; this only saves the fetch/parse/expand/compose round.
const cacheTTL = 30 * time.Second

// Briefer is the part of briefing.Service the API needs.
type Briefer interface {
	Build(ctx context.Context, includeTomorrow bool) briefing.Result
	Events(ctx context.Context, day time.Time) []model.CalendarEvent
	IncludeTomorrow() bool
	Now() time.Time
}

// RunHistory reports the last completed briefing run.
type RunHistory interface {
	LastRun(ctx context.Context) (profile.Run, bool, error)
}

// Server provides the read-only briefing API.
type Server struct {
	cfg     *config.Config
	briefer Briefer
	runs    RunHistory
	mux     *http.ServeMux
	now     func() time.Time

	cacheMu sync.RWMutex
	cache   map[string]cacheEntry
}

type cacheEntry struct {
	body      any
	updatedAt time.Time
}

// NewServer constructs a new Server. runs may be nil.
func NewServer(cfg *config.Config, briefer Briefer, runs RunHistory) *Server {
	s := &Server{
		cfg:     cfg,
		briefer: briefer,
		runs:    runs,
		mux:     http.NewServeMux(),
		now:     time.Now,
		cache:   make(map[string]cacheEntry),
	}
	s.registerRoutes()
	return s
}

// Handler returns the underlying http.Handler for this server.
func (s *Server) Handler() http.Handler {
	h := http.Handler(s.mux)
	if s.basicAuthEnabled() {
		appLog.Info("HTTP basic auth enabled", "listen", "http://"+s.cfg.Listen)
		return s.basicAuthMiddleware(h)
	}
	return h
}

// basicAuthEnabled reports whether HTTP Basic Auth is configured. An empty
// username or password counts as disabled.
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
			w.Header().Set("WWW-Authenticate", `Basic realm="daybrief", charset="UTF-8"`)
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

// StartServer serves the API on cfg.Listen until ctx is cancelled, then
// shuts down gracefully.
func StartServer(ctx context.Context, cfg *config.Config, briefer Briefer, runs RunHistory) error {
	srv := &http.Server{
		Addr:              cfg.Listen,
		Handler:           NewServer(cfg, briefer, runs).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		appLog.Info("starting HTTP server", "listen", "http://"+cfg.Listen)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("GET /api/briefing", s.handleBriefing)
	s.mux.HandleFunc("GET /api/events", s.handleEvents)
	s.mux.HandleFunc("GET /api/last-run", s.handleLastRun)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// handleBriefing composes a briefing.
//
// GET /api/briefing?tomorrow=0|1
//   - tomorrow: include tomorrow's events (default: config include_tomorrow)
func (s *Server) handleBriefing(w http.ResponseWriter, r *http.Request) {
	includeTomorrow := s.briefer.IncludeTomorrow()
	if v := r.URL.Query().Get("tomorrow"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "tomorrow must be 0 or 1")
			return
		}
		includeTomorrow = b
	}

	key := "briefing:" + strconv.FormatBool(includeTomorrow)
	if body, ok := s.cached(key); ok {
		writeJSON(w, http.StatusOK, body)
		return
	}

	res := s.briefer.Build(r.Context(), includeTomorrow)
	appLog.Info("api briefing request", "run_id", res.RunID, "tomorrow", includeTomorrow)
	s.store(key, res)
	writeJSON(w, http.StatusOK, res)
}

// eventsResponse is the JSON response shape for /api/events.
type eventsResponse struct {
	Day    string                `json:"day"`
	Date   string                `json:"date"`
	Events []model.CalendarEvent `json:"events"`
}

// handleEvents lists one day's events as the briefing sees them.
//
// GET /api/events?day=today|tomorrow
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	day := r.URL.Query().Get("day")
	if day == "" {
		day = "today"
	}

	date := s.briefer.Now()
	switch day {
	case "today":
	case "tomorrow":
		date = date.AddDate(0, 0, 1)
	default:
		writeError(w, http.StatusBadRequest, "day must be today or tomorrow")
		return
	}

	key := "events:" + day
	if body, ok := s.cached(key); ok {
		writeJSON(w, http.StatusOK, body)
		return
	}

	resp := eventsResponse{
		Day:    day,
		Date:   date.Format(time.DateOnly),
		Events: s.briefer.Events(r.Context(), date),
	}
	s.store(key, resp)
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleLastRun(w http.ResponseWriter, r *http.Request) {
	if s.runs == nil {
		writeError(w, http.StatusNotFound, "no runs recorded")
		return
	}
	run, ok, err := s.runs.LastRun(r.Context())
	if err != nil {
		appLog.Error("api last-run failed", err)
		writeError(w, http.StatusInternalServerError, "failed to load last run")
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, "no runs recorded")
		return
	}
	writeJSON(w, http.StatusOK, run)
}

func (s *Server) cached(key string) (any, bool) {
	s.cacheMu.RLock()
	defer s.cacheMu.RUnlock()
	e, ok := s.cache[key]
	if !ok || s.now().Sub(e.updatedAt) >= cacheTTL {
		return nil, false
	}
	return e.body, true
}

func (s *Server) store(key string, body any) {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	s.cache[key] = cacheEntry{body: body, updatedAt: s.now()}
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

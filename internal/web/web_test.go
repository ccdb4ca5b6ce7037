package web

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"daybrief/internal/briefing"
	"daybrief/internal/config"
	"daybrief/internal/model"
	"daybrief/internal/profile"
)

var monday = time.Date(2025, 3, 3, 8, 0, 0, 0, time.UTC)

type fakeBriefer struct {
	builds   atomic.Int32
	lastDay  atomic.Value
	tomorrow bool
}

func (f *fakeBriefer) Build(_ context.Context, includeTomorrow bool) briefing.Result {
	f.builds.Add(1)
	return briefing.Result{
		RunID:           "run-1",
		GeneratedAt:     monday,
		Greeting:        "Good morning",
		Text:            "Good morning Sam! You have a free day today.",
		Today:           []model.CalendarEvent{},
		Tomorrow:        []model.CalendarEvent{},
		IncludeTomorrow: includeTomorrow,
	}
}

func (f *fakeBriefer) Events(_ context.Context, day time.Time) []model.CalendarEvent {
	f.lastDay.Store(day)
	return []model.CalendarEvent{model.NewEvent("Standup", day, day.Add(15*time.Minute), "", "Alice")}
}

func (f *fakeBriefer) IncludeTomorrow() bool { return f.tomorrow }
func (f *fakeBriefer) Now() time.Time        { return monday }

type fakeRuns struct {
	run profile.Run
	ok  bool
	err error
}

func (f fakeRuns) LastRun(context.Context) (profile.Run, bool, error) { return f.run, f.ok, f.err }

func serve(t *testing.T, h http.Handler, target string, auth ...string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	if len(auth) == 2 {
		req.SetBasicAuth(auth[0], auth[1])
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestHealth(t *testing.T) {
	s := NewServer(config.DefaultConfig(), &fakeBriefer{}, nil)
	w := serve(t, s.Handler(), "/health")
	if w.Code != http.StatusOK || w.Body.String() != "OK" {
		t.Fatalf("got %d %q", w.Code, w.Body.String())
	}
}

func TestBriefingEndpoint(t *testing.T) {
	fb := &fakeBriefer{tomorrow: true}
	s := NewServer(config.DefaultConfig(), fb, nil)

	tests := []struct {
		name         string
		target       string
		wantStatus   int
		wantTomorrow bool
	}{
		{"config default", "/api/briefing", http.StatusOK, true},
		{"explicit off", "/api/briefing?tomorrow=0", http.StatusOK, false},
		{"explicit on", "/api/briefing?tomorrow=1", http.StatusOK, true},
		{"invalid", "/api/briefing?tomorrow=maybe", http.StatusBadRequest, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := serve(t, s.Handler(), tt.target)
			if w.Code != tt.wantStatus {
				t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
			}
			if tt.wantStatus != http.StatusOK {
				return
			}
			var body map[string]any
			if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
				t.Fatalf("decode: %v", err)
			}
			for _, k := range []string{"run_id", "generated_at", "greeting", "text", "today", "tomorrow"} {
				if _, ok := body[k]; !ok {
					t.Errorf("missing key %q in %v", k, body)
				}
			}
			if body["include_tomorrow"] != tt.wantTomorrow {
				t.Errorf("include_tomorrow = %v", body["include_tomorrow"])
			}
		})
	}

	// Two distinct keys were built; the repeat was cached.
	if got := fb.builds.Load(); got != 2 {
		t.Errorf("builds = %d, want 2", got)
	}
}

func TestBriefingCacheExpires(t *testing.T) {
	fb := &fakeBriefer{}
	s := NewServer(config.DefaultConfig(), fb, nil)
	clock := monday
	s.now = func() time.Time { return clock }

	serve(t, s.Handler(), "/api/briefing")
	serve(t, s.Handler(), "/api/briefing")
	clock = clock.Add(cacheTTL)
	serve(t, s.Handler(), "/api/briefing")

	if got := fb.builds.Load(); got != 2 {
		t.Errorf("builds = %d, want 2", got)
	}
}

func TestEventsEndpoint(t *testing.T) {
	fb := &fakeBriefer{}
	s := NewServer(config.DefaultConfig(), fb, nil)

	w := serve(t, s.Handler(), "/api/events?day=tomorrow")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var resp eventsResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Day != "tomorrow" || resp.Date != "2025-03-04" || len(resp.Events) != 1 || resp.Events[0].Subject != "Standup" {
		t.Errorf("resp = %+v", resp)
	}
	if day := fb.lastDay.Load().(time.Time); !day.Equal(monday.AddDate(0, 0, 1)) {
		t.Errorf("queried day = %v", day)
	}

	if w := serve(t, s.Handler(), "/api/events"); w.Code != http.StatusOK {
		t.Errorf("default day status = %d", w.Code)
	}
	if w := serve(t, s.Handler(), "/api/events?day=yesterday"); w.Code != http.StatusBadRequest {
		t.Errorf("invalid day status = %d", w.Code)
	}
}

func TestLastRunEndpoint(t *testing.T) {
	at := monday
	tests := []struct {
		name string
		runs RunHistory
		want int
	}{
		{"not configured", nil, http.StatusNotFound},
		{"none yet", fakeRuns{}, http.StatusNotFound},
		{"store error", fakeRuns{err: errors.New("locked")}, http.StatusInternalServerError},
		{"recorded", fakeRuns{run: profile.Run{ID: "r1", At: at, Events: 3}, ok: true}, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewServer(config.DefaultConfig(), &fakeBriefer{}, tt.runs)
			if w := serve(t, s.Handler(), "/api/last-run"); w.Code != tt.want {
				t.Errorf("status = %d, want %d", w.Code, tt.want)
			}
		})
	}
}

func TestBasicAuth(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.BasicAuth = &config.BasicAuthConfig{Username: "admin", Password: "pw"}
	h := NewServer(cfg, &fakeBriefer{}, nil).Handler()

	if w := serve(t, h, "/health"); w.Code != http.StatusOK {
		t.Errorf("/health should skip auth, got %d", w.Code)
	}
	w := serve(t, h, "/api/briefing")
	if w.Code != http.StatusUnauthorized || w.Header().Get("WWW-Authenticate") == "" {
		t.Errorf("missing credentials: %d", w.Code)
	}
	if w := serve(t, h, "/api/briefing", "admin", "wrong"); w.Code != http.StatusUnauthorized {
		t.Errorf("wrong password: %d", w.Code)
	}
	if w := serve(t, h, "/api/briefing", "admin", "pw"); w.Code != http.StatusOK {
		t.Errorf("valid credentials: %d", w.Code)
	}
}

func TestBasicAuthDisabledWithEmptyPassword(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.BasicAuth = &config.BasicAuthConfig{Username: "admin"}
	h := NewServer(cfg, &fakeBriefer{}, nil).Handler()
	if w := serve(t, h, "/api/briefing"); w.Code != http.StatusOK {
		t.Errorf("status = %d", w.Code)
	}
}

func TestStartServerShutsDown(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Listen = "127.0.0.1:0"
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- StartServer(ctx, cfg, &fakeBriefer{}, nil) }()
	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("StartServer: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}

// Package briefing runs one daily briefing end to end: fetch the calendar,
// compose the narrative, print the report and read it aloud.
package briefing

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"daybrief/internal/calendar"
	"daybrief/internal/display"
	appLog "daybrief/internal/log"
	"daybrief/internal/model"
	"daybrief/internal/narrative"
	"daybrief/internal/profile"
	"daybrief/internal/speech"
)

// Result is one composed briefing.
type Result struct {
	RunID           string                `json:"run_id"`
	GeneratedAt     time.Time             `json:"generated_at"`
	Greeting        string                `json:"greeting"`
	UserName        string                `json:"user_name"`
	Text            string                `json:"text"`
	Today           []model.CalendarEvent `json:"today"`
	Tomorrow        []model.CalendarEvent `json:"tomorrow"`
	IncludeTomorrow bool                  `json:"include_tomorrow"`
}

// RunRecorder remembers completed runs.
type RunRecorder interface {
	RecordRun(ctx context.Context, run profile.Run) error
}

// Options wires a Service.
type Options struct {
	Provider calendar.Provider
	Composer *narrative.Composer
	// Profile supplies the user name; nil means anonymous.
	Profile profile.Store
	// Runs, if set, is told about every completed Run.
	Runs     RunRecorder
	Location *time.Location
	// IncludeTomorrow is the default for Run.
	IncludeTomorrow bool
	Now             func() time.Time
}

// Service builds briefings. It is safe for concurrent use as long as its
// collaborators are.
type Service struct {
	opts Options
}

// New creates a Service, filling in a random-transition composer, local time
// and time.Now where Options leaves them empty.
func New(opts Options) *Service {
	if opts.Composer == nil {
		opts.Composer = narrative.NewComposer(nil)
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Service{opts: opts}
}

// IncludeTomorrow reports the configured default.
func (s *Service) IncludeTomorrow() bool { return s.opts.IncludeTomorrow }

// Now returns the current time in the briefing's timezone.
func (s *Service) Now() time.Time { return s.opts.Now().In(s.opts.Location) }

// Events returns the events of the day containing day. A provider failure is
// logged and yields an empty list.
func (s *Service) Events(ctx context.Context, day time.Time) []model.CalendarEvent {
	if s.opts.Provider == nil {
		return []model.CalendarEvent{}
	}
	events, err := s.opts.Provider.FetchEvents(ctx, day)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			appLog.Debug("calendar fetch cancelled", "day", day.Format(time.DateOnly))
		} else {
			appLog.Error("calendar unavailable, continuing without events", err, "day", day.Format(time.DateOnly))
		}
		return []model.CalendarEvent{}
	}
	if events == nil {
		events = []model.CalendarEvent{}
	}
	return events
}

// Build fetches and composes a briefing without printing or speaking it.
// It never fails: missing collaborators degrade to an anonymous free day.
func (s *Service) Build(ctx context.Context, includeTomorrow bool) Result {
	now := s.Now()
	res := Result{
		RunID:           uuid.NewString(),
		GeneratedAt:     now,
		Greeting:        narrative.GreetingAt(now),
		UserName:        s.userName(ctx),
		Tomorrow:        []model.CalendarEvent{},
		IncludeTomorrow: includeTomorrow,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		res.Today = s.Events(gctx, now)
		return nil
	})
	if includeTomorrow {
		g.Go(func() error {
			res.Tomorrow = s.Events(gctx, now.AddDate(0, 0, 1))
			return nil
		})
	}
	_ = g.Wait()

	res.Text = s.opts.Composer.Compose(narrative.Context{
		Greeting:        res.Greeting,
		UserName:        res.UserName,
		Today:           res.Today,
		Tomorrow:        res.Tomorrow,
		IncludeTomorrow: includeTomorrow,
	})
	appLog.Debug("briefing composed", "run_id", res.RunID, "today", len(res.Today), "tomorrow", len(res.Tomorrow))
	return res
}

// Run builds a briefing, prints it through r and speaks it through sink. When
// speaking fails the summary is printed again. A nil or Nop sink skips
// speech.
func (s *Service) Run(ctx context.Context, r *display.Renderer, sink speech.Sink) Result {
	if _, ok := sink.(speech.Nop); ok {
		sink = nil
	}

	res := s.Build(ctx, s.opts.IncludeTomorrow)
	appLog.Info("briefing ready", "run_id", res.RunID, "today", len(res.Today), "tomorrow", len(res.Tomorrow))

	if r != nil {
		if err := r.Render(display.Briefing{
			Date:            res.GeneratedAt,
			Today:           res.Today,
			Tomorrow:        res.Tomorrow,
			IncludeTomorrow: res.IncludeTomorrow,
			Summary:         res.Text,
		}); err != nil {
			appLog.Error("render briefing failed", err, "run_id", res.RunID)
		}
	}

	if sink != nil {
		if r != nil {
			r.Speaking()
		}
		if err := sink.Speak(ctx, res.Text); err != nil {
			appLog.Warn("speech failed", "run_id", res.RunID, "error", err)
			if r != nil {
				if err := r.Fallback(res.Text); err != nil {
					appLog.Error("print fallback failed", err, "run_id", res.RunID)
				}
			}
		}
	}

	if s.opts.Runs != nil {
		run := profile.Run{ID: res.RunID, At: res.GeneratedAt, Events: len(res.Today) + len(res.Tomorrow)}
		if err := s.opts.Runs.RecordRun(ctx, run); err != nil {
			appLog.Warn("could not record run", "run_id", res.RunID, "error", err)
		}
	}
	return res
}

func (s *Service) userName(ctx context.Context) string {
	if s.opts.Profile == nil {
		return ""
	}
	name, err := s.opts.Profile.UserName(ctx)
	if err != nil {
		appLog.Warn("could not read user name", "error", err)
		return ""
	}
	return name
}

// Package calendar turns subscribed iCalendar feeds into the ordered list of
// one day's events the briefing narrates.
package calendar

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"daybrief/internal/config"
	"daybrief/internal/ics"
	appLog "daybrief/internal/log"
	"daybrief/internal/model"
)

// Provider returns the events that start on the calendar day containing day.
type Provider interface {
	FetchEvents(ctx context.Context, day time.Time) ([]model.CalendarEvent, error)
}

// Options configures an ICSProvider.
type Options struct {
	Sources      []ics.Source
	Location     *time.Location
	SkipKeywords []string
}

// ICSProvider reads events from one or more ICS feeds.
type ICSProvider struct {
	fetcher *ics.Fetcher
	opts    Options
}

// NewICSProvider creates a provider over fetcher. A nil Location means
// time.Local.
func NewICSProvider(fetcher *ics.Fetcher, opts Options) *ICSProvider {
	if opts.Location == nil {
		opts.Location = time.Local
	}
	return &ICSProvider{fetcher: fetcher, opts: opts}
}

// NewICSProviderFromConfig wires the feeds, timezone and skip keywords of cfg.
func NewICSProviderFromConfig(cfg *config.Config) (*ICSProvider, error) {
	loc, err := cfg.Location()
	if err != nil {
		appLog.Warn("falling back to local timezone", "timezone", cfg.Timezone, "error", err)
	}

	sources := make([]ics.Source, 0, len(cfg.ICS))
	for _, c := range cfg.ICS {
		if strings.TrimSpace(c.URL) == "" {
			continue
		}
		sources = append(sources, ics.Source{ID: c.SourceID(), Name: c.Name, URL: c.URL})
	}
	if len(sources) == 0 {
		return nil, errors.New("no ICS sources configured")
	}

	fetcher := ics.NewFetcher(cfg.CacheDir, ics.WithTimeout(cfg.FetchTimeout()))
	return NewICSProvider(fetcher, Options{
		Sources:      sources,
		Location:     loc,
		SkipKeywords: cfg.SkipKeywords,
	}), nil
}

// FetchEvents fetches every feed, expands recurrences over the day and
// returns the timed events that start on it, ordered by start.
//
// A feed that fails is logged and skipped; an error is returned only when no
// feed produced a body.
func (p *ICSProvider) FetchEvents(ctx context.Context, day time.Time) ([]model.CalendarEvent, error) {
	dayStart, dayEnd := DayBounds(day, p.opts.Location)

	results, fetchErr := p.fetcher.FetchAll(ctx, p.opts.Sources)
	if fetchErr != nil {
		appLog.Warn("some ICS sources failed", "error", fetchErr)
		if len(results) == 0 {
			return nil, fmt.Errorf("fetch calendars: %w", fetchErr)
		}
	}

	var parsed []ics.ParsedEvent
	for _, res := range results {
		evs, err := ics.ParseICS(res.Source, res.Body)
		if err != nil {
			appLog.Warn("skipping unparsable ICS source", "source", res.Source.ID, "error", err)
			continue
		}
		parsed = append(parsed, evs...)
	}

	expanded, err := ics.ExpandOccurrences(parsed, ics.ExpandConfig{
		DisplayLocation: p.opts.Location,
		RangeStart:      dayStart,
		RangeEnd:        dayEnd,
	})
	if err != nil {
		return nil, fmt.Errorf("expand occurrences: %w", err)
	}
	if len(expanded.TruncatedEvents) > 0 {
		appLog.Warn("recurrence expansion truncated", "uids", strings.Join(expanded.TruncatedEvents, ","))
	}

	events := SelectDay(expanded.Occurrences, dayStart, dayEnd, p.opts.SkipKeywords)
	appLog.Debug("calendar events selected", "day", dayStart.Format(time.DateOnly), "count", len(events))
	return events, nil
}

// DayBounds returns [midnight, next midnight) of day in loc.
func DayBounds(day time.Time, loc *time.Location) (time.Time, time.Time) {
	if loc == nil {
		loc = time.Local
	}
	d := day.In(loc)
	start := time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, loc)
	return start, start.AddDate(0, 0, 1)
}

// SelectDay filters occurrences down to timed events starting in
// [dayStart, dayEnd) whose subject contains none of skip, and converts them
// in start order.
func SelectDay(occs []ics.Occurrence, dayStart, dayEnd time.Time, skip []string) []model.CalendarEvent {
	kept := make([]ics.Occurrence, 0, len(occs))
	for _, occ := range occs {
		if occ.AllDay {
			continue
		}
		if occ.Start.Before(dayStart) || !occ.Start.Before(dayEnd) {
			continue
		}
		if matchesKeyword(occ.Summary, skip) {
			appLog.Debug("skipping event by keyword", "uid", occ.UID)
			continue
		}
		kept = append(kept, occ)
	}

	slices.SortStableFunc(kept, func(a, b ics.Occurrence) int {
		return a.Start.Compare(b.Start)
	})

	out := make([]model.CalendarEvent, 0, len(kept))
	for _, occ := range kept {
		out = append(out, ToCalendarEvent(occ))
	}
	return out
}

// ToCalendarEvent converts an expanded occurrence.
func ToCalendarEvent(occ ics.Occurrence) model.CalendarEvent {
	ev := model.NewEvent(occ.Summary, occ.Start, occ.End, occ.Location, CleanOrganizer(occ.Organizer))
	ev.Recurring = occ.Recurring
	ev.AllDay = occ.AllDay
	ev.Categories = slices.Clone(occ.Categories)
	ev.Importance = ImportanceFromPriority(occ.Priority)
	ev.ReminderSet = occ.HasAlarm
	return ev
}

// ImportanceFromPriority maps iCalendar PRIORITY (RFC 5545 §3.8.1.9) onto the
// low/normal/high scale: 1-4 high, 5 or undefined normal, 6-9 low.
func ImportanceFromPriority(priority int) int {
	switch {
	case priority >= 1 && priority <= 4:
		return model.ImportanceHigh
	case priority >= 6 && priority <= 9:
		return model.ImportanceLow
	default:
		return model.ImportanceNormal
	}
}

const exchangeDNMarker = "/o=exchangelabs/"

var titleCaser = cases.Title(language.English)

// CleanOrganizer reduces an Exchange legacy DN such as
// "/o=ExchangeLabs/ou=.../cn=Recipients/cn=jane_doe-1a2b" to "Jane Doe".
// Any other value is returned trimmed.
func CleanOrganizer(organizer string) string {
	organizer = strings.TrimSpace(organizer)
	if !strings.Contains(strings.ToLower(organizer), exchangeDNMarker) {
		return organizer
	}
	idx := strings.LastIndex(strings.ToLower(organizer), "cn=")
	if idx < 0 {
		return organizer
	}
	name := organizer[idx+len("cn="):]
	name, _, _ = strings.Cut(name, "-")
	name = strings.TrimSpace(strings.ReplaceAll(name, "_", " "))
	if name == "" {
		return organizer
	}
	return titleCaser.String(name)
}

func matchesKeyword(subject string, keywords []string) bool {
	s := strings.ToLower(subject)
	for _, k := range keywords {
		k = strings.ToLower(strings.TrimSpace(k))
		if k != "" && strings.Contains(s, k) {
			return true
		}
	}
	return false
}

// StaticProvider serves fixed event lists keyed by calendar date
// (YYYY-MM-DD in the day's own location).
type StaticProvider struct {
	Days map[string][]model.CalendarEvent
	Err  error
}

// FetchEvents returns a copy of the list stored for day, or Err if set.
func (p *StaticProvider) FetchEvents(_ context.Context, day time.Time) ([]model.CalendarEvent, error) {
	if p.Err != nil {
		return nil, p.Err
	}
	return slices.Clone(p.Days[day.Format(time.DateOnly)]), nil
}

package model

import (
	"fmt"
	"strings"
	"time"
)

// ClockLayout is the 12-hour clock format used for CalendarEvent.Start/End.
const ClockLayout = "03:04 PM"

// Defaults substituted for missing event fields.
const (
	DefaultSubject    = "No Subject"
	DefaultImportance = ImportanceNormal
	UnknownDuration   = "Unknown"
)

// Importance levels, matching the common low/normal/high scale.
const (
	ImportanceLow    = 0
	ImportanceNormal = 1
	ImportanceHigh   = 2
)

// Meeting media.
const (
	MediumInPerson = "In-person"
	MediumTeams    = "Microsoft Teams"
	MediumZoom     = "Zoom"
	MediumWebEx    = "WebEx"
	MediumOnline   = "Online Meeting"
	MediumUnknown  = "Unknown"
)

// CalendarEvent is a single event of one calendar day, already filtered and
// ordered by the calendar provider. The narrative pipeline only reads it.
type CalendarEvent struct {
	Subject string `json:"subject"`

	// Start / End are 12-hour clock strings in ClockLayout form.
	Start string `json:"start"`
	End   string `json:"end"`

	// StartAt / EndAt are the source instants in the display timezone.
	StartAt time.Time `json:"start_at"`
	EndAt   time.Time `json:"end_at"`

	Location  string `json:"location"`
	Organizer string `json:"organizer"`

	Recurring   bool     `json:"recurring"`
	AllDay      bool     `json:"all_day"`
	Categories  []string `json:"categories,omitempty"`
	Importance  int      `json:"importance"`
	ReminderSet bool     `json:"reminder_set"`
	Duration    string   `json:"duration"`
	Medium      string   `json:"medium"`
	Online      bool     `json:"online"`
}

// NewEvent builds a CalendarEvent from instants, deriving clock strings,
// duration and meeting medium and applying the per-field defaults.
func NewEvent(subject string, start, end time.Time, location, organizer string) CalendarEvent {
	ev := CalendarEvent{
		Subject:    subject,
		Start:      start.Format(ClockLayout),
		End:        end.Format(ClockLayout),
		StartAt:    start,
		EndAt:      end,
		Location:   location,
		Organizer:  organizer,
		Importance: DefaultImportance,
		Duration:   FormatDuration(end.Sub(start)),
	}
	ev.Medium, ev.Online = DetectMedium(location)
	ev.ApplyDefaults()
	return ev
}

// ApplyDefaults fills empty fields with their documented defaults.
func (e *CalendarEvent) ApplyDefaults() {
	if strings.TrimSpace(e.Subject) == "" {
		e.Subject = DefaultSubject
	}
	if e.Duration == "" {
		e.Duration = UnknownDuration
	}
	if e.Medium == "" {
		e.Medium, e.Online = DetectMedium(e.Location)
	}
	if e.Importance < ImportanceLow || e.Importance > ImportanceHigh {
		e.Importance = DefaultImportance
	}
}

// HighPriority reports whether the event is marked important.
func (e CalendarEvent) HighPriority() bool {
	return e.Importance == ImportanceHigh
}

// DetectMedium guesses how a meeting is held from its location text.
func DetectMedium(location string) (medium string, online bool) {
	loc := strings.ToLower(location)
	switch {
	case strings.Contains(loc, "teams"):
		return MediumTeams, true
	case strings.Contains(loc, "zoom"):
		return MediumZoom, true
	case strings.Contains(loc, "webex"):
		return MediumWebEx, true
	case strings.Contains(loc, "http"):
		return MediumOnline, true
	default:
		return MediumInPerson, false
	}
}

// FormatDuration renders d as "1h 30m" or "45m".
func FormatDuration(d time.Duration) string {
	if d < 0 {
		return UnknownDuration
	}
	hours := int(d / time.Hour)
	minutes := int((d % time.Hour) / time.Minute)
	if hours > 0 {
		return fmt.Sprintf("%dh %dm", hours, minutes)
	}
	return fmt.Sprintf("%dm", minutes)
}

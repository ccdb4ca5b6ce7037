package narrative

import (
	"strings"

	"daybrief/internal/model"
)

// UnknownOrganizer stands in for an event without organizer.
const UnknownOrganizer = "Unknown organizer"

// BuildPhrase renders one event as "<subject> from <start> to <end>",
// followed by " with <organizer>" unless the user organizes the event
// themselves (their name appears in the organizer, ignoring case).
func BuildPhrase(ev model.CalendarEvent, userName string) string {
	subject := FixEmbeddedMilitaryTimes(Normalize(ev.Subject))
	if subject == "" {
		subject = model.DefaultSubject
	}

	var b strings.Builder
	b.WriteString(subject)
	b.WriteString(" from ")
	b.WriteString(HumanizeClockTime(ev.Start))
	b.WriteString(" to ")
	b.WriteString(HumanizeClockTime(ev.End))

	if organizedBy(ev.Organizer, userName) {
		return b.String()
	}

	organizer := Normalize(ev.Organizer)
	if organizer == "" {
		organizer = UnknownOrganizer
	}
	b.WriteString(" with ")
	b.WriteString(organizer)
	return b.String()
}

func organizedBy(organizer, userName string) bool {
	if organizer == "" || userName == "" {
		return false
	}
	return strings.Contains(strings.ToLower(organizer), strings.ToLower(userName))
}

// BuildPhrases renders events in order.
func BuildPhrases(events []model.CalendarEvent, userName string) []string {
	phrases := make([]string, 0, len(events))
	for _, ev := range events {
		phrases = append(phrases, BuildPhrase(ev, userName))
	}
	return phrases
}

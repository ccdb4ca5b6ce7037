package ics

import (
	"strings"
	"time"
)

// calendarBody joins VEVENT blocks into an ICS payload with CRLF endings.
func calendarBody(events ...string) []byte {
	lines := []string{
		"BEGIN:VCALENDAR",
		"VERSION:2.0",
		"PRODID:-//daybrief//test//EN",
	}
	for _, ev := range events {
		lines = append(lines, strings.Split(strings.TrimSpace(ev), "\n")...)
	}
	lines = append(lines, "END:VCALENDAR")
	for i := range lines {
		lines[i] = strings.TrimSpace(lines[i])
	}
	return []byte(strings.Join(lines, "\r\n") + "\r\n")
}

const standupEvent = `
BEGIN:VEVENT
UID:standup-1
DTSTAMP:20250301T000000Z
DTSTART:20250303T090000Z
DTEND:20250303T091500Z
SUMMARY:Standup
LOCATION:https://teams.microsoft.com/l/meetup
ORGANIZER;CN=Alice Example:mailto:alice@example.com
CATEGORIES:Work,Daily
PRIORITY:1
RRULE:FREQ=DAILY;COUNT=5
EXDATE:20250304T090000Z
BEGIN:VALARM
ACTION:DISPLAY
TRIGGER:-PT10M
DESCRIPTION:Reminder
END:VALARM
END:VEVENT`

const standupOverride = `
BEGIN:VEVENT
UID:standup-1
DTSTAMP:20250301T000000Z
RECURRENCE-ID:20250305T090000Z
DTSTART:20250305T100000Z
DTEND:20250305T101500Z
SUMMARY:Standup (moved)
END:VEVENT`

const holidayEvent = `
BEGIN:VEVENT
UID:holiday-1
DTSTAMP:20250301T000000Z
DTSTART;VALUE=DATE:20250303
DTEND;VALUE=DATE:20250304
SUMMARY:Public Holiday
END:VEVENT`

const reviewEvent = `
BEGIN:VEVENT
UID:review-1
DTSTAMP:20250301T000000Z
DTSTART:20250303T140000Z
DTEND:20250303T150000Z
SUMMARY:Review
ORGANIZER:mailto:bob@example.com
END:VEVENT`

func utc(y int, m time.Month, d, h, min int) time.Time {
	return time.Date(y, m, d, h, min, 0, 0, time.UTC)
}

package narrative

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// TimeRule rewrites time-like fragments inside free text. It is a heuristic:
// coincidental numbers that look like times are rewritten as well.
type TimeRule interface {
	Apply(text string) string
}

// MilitaryTimeRule speaks whole-word HHMM tokens (0000-2359) the way a
// person would read them: "1800" becomes "6", "0130" becomes "1 30".
type MilitaryTimeRule struct{}

var (
	// Go's \b only knows ASCII word characters, so words are cut out
	// explicitly and a word is rewritten only when it is exactly HHMM.
	wordRe         = regexp.MustCompile(`[\p{L}\p{M}\p{N}_]+`)
	militaryTimeRe = regexp.MustCompile(`^([01]\d|2[0-3])([0-5]\d)$`)
)

func (MilitaryTimeRule) Apply(text string) string {
	if text == "" {
		return text
	}
	return wordRe.ReplaceAllStringFunc(text, func(word string) string {
		m := militaryTimeRe.FindStringSubmatch(word)
		if m == nil {
			return word
		}
		hour, _ := strconv.Atoi(m[1])
		minute, _ := strconv.Atoi(m[2])
		return speakMilitary(hour, minute)
	})
}

func speakMilitary(hour, minute int) string {
	switch {
	case hour == 0 && minute == 0:
		return "midnight"
	case hour == 12 && minute == 0:
		return "noon"
	case hour > 12:
		hour -= 12
	}
	if minute == 0 {
		return strconv.Itoa(hour)
	}
	return fmt.Sprintf("%d %02d", hour, minute)
}

// DefaultTimeRule is applied to event subjects by BuildPhrase.
var DefaultTimeRule TimeRule = MilitaryTimeRule{}

// FixEmbeddedMilitaryTimes applies DefaultTimeRule to text.
func FixEmbeddedMilitaryTimes(text string) string {
	return DefaultTimeRule.Apply(text)
}

var clockRe = regexp.MustCompile(`^\s*(\d{1,2}):(\d{2})\s*([AaPp][Mm])`)

// HumanizeClockTime converts a 12-hour clock string such as "02:30 PM" into
// a speech-friendly phrase ("2 30"). The AM/PM marker is not spoken, so
// "1:00 AM" and "1:00 PM" both read as "1". Input that does not look like a
// clock time is returned unchanged.
func HumanizeClockTime(clock string) string {
	m := clockRe.FindStringSubmatch(clock)
	if m == nil {
		return clock
	}
	hour, err := strconv.Atoi(m[1])
	if err != nil || hour > 12 {
		return clock
	}
	minute, err := strconv.Atoi(m[2])
	if err != nil || minute > 59 {
		return clock
	}

	pm := strings.EqualFold(m[3], "PM")
	switch {
	case pm && hour != 12:
		hour += 12
	case !pm && hour == 12:
		hour = 0
	}

	if minute == 0 {
		switch {
		case hour == 0:
			return "midnight"
		case hour == 12:
			return "noon"
		}
	}
	return spokenHour(hour) + spokenMinute(minute)
}

func spokenHour(hour int) string {
	switch {
	case hour == 0:
		return "midnight"
	case hour > 12:
		return strconv.Itoa(hour - 12)
	default:
		return strconv.Itoa(hour)
	}
}

func spokenMinute(minute int) string {
	if minute == 0 {
		return ""
	}
	return fmt.Sprintf(" %02d", minute)
}

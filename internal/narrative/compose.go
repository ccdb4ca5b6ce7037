package narrative

import (
	"fmt"
	"strings"
	"time"

	"daybrief/internal/model"
)

// Greeting picks the salutation for the given hour of day (0-23).
func Greeting(hour int) string {
	switch {
	case hour >= 5 && hour < 12:
		return "Good morning"
	case hour >= 12 && hour < 17:
		return "Good afternoon"
	case hour >= 17 && hour < 21:
		return "Good evening"
	default:
		return "Good night"
	}
}

// GreetingAt is Greeting for the hour of t.
func GreetingAt(t time.Time) string {
	return Greeting(t.Hour())
}

// Context carries the inputs of a single briefing. Tomorrow is only
// rendered when IncludeTomorrow is set; an empty Tomorrow then reads as a
// free day instead of being left out.
type Context struct {
	Greeting        string
	UserName        string
	Today           []model.CalendarEvent
	Tomorrow        []model.CalendarEvent
	IncludeTomorrow bool
}

// Composer assembles briefings. The zero value picks transitions at random.
type Composer struct {
	Picker Picker
}

// NewComposer returns a Composer using picker, or random transitions when
// picker is nil.
func NewComposer(picker Picker) *Composer {
	return &Composer{Picker: picker}
}

// Compose renders the phrases for both days and assembles the briefing.
func (c *Composer) Compose(nc Context) (out string) {
	defer recoverComposition(&out)
	today := BuildPhrases(nc.Today, nc.UserName)
	tomorrow := BuildPhrases(nc.Tomorrow, nc.UserName)
	return c.ComposePhrases(nc.Greeting, nc.UserName, today, tomorrow, nc.IncludeTomorrow)
}

// ComposePhrases assembles the briefing from already built clauses. It
// always returns text: a failure while composing turns into an apology.
func (c *Composer) ComposePhrases(greeting, userName string, today, tomorrow []string, includeTomorrow bool) (out string) {
	defer recoverComposition(&out)

	if len(today) == 0 && (!includeTomorrow || len(tomorrow) == 0) {
		return fmt.Sprintf("%s %s! You have a free day with no scheduled meetings, perfect time to catch up on personal projects or take a well-deserved break!", greeting, userName)
	}

	picker := c.picker()

	var b strings.Builder
	fmt.Fprintf(&b, "%s %s! ", greeting, userName)

	if len(today) > 0 {
		b.WriteString("You start your day with ")
		b.WriteString(Assemble(today, picker))
	} else {
		b.WriteString("You have a free day today.")
	}

	if includeTomorrow {
		switch len(tomorrow) {
		case 0:
			b.WriteString(" Tomorrow is free with no scheduled meetings.")
		case 1:
			b.WriteString(" Tomorrow you have ")
			b.WriteString(Assemble(tomorrow, picker))
		default:
			b.WriteString(" Tomorrow you start with ")
			b.WriteString(Assemble(tomorrow, picker))
		}
	}

	return b.String()
}

func (c *Composer) picker() Picker {
	if c == nil || c.Picker == nil {
		return NewRandomPicker(nil)
	}
	return c.Picker
}

func recoverComposition(out *string) {
	if r := recover(); r != nil {
		*out = fmt.Sprintf("Sorry, I couldn't create your day summary due to an error: %v", r)
	}
}

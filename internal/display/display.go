// Package display prints the structured daily briefing to a terminal.
package display

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"

	"daybrief/internal/model"
)

const (
	defaultWidth = 70
	ruleWidth    = 50
)

// Briefing is everything one printed report shows.
type Briefing struct {
	Date            time.Time
	Today           []model.CalendarEvent
	Tomorrow        []model.CalendarEvent
	IncludeTomorrow bool
	Summary         string
}

// Renderer writes briefings to Out. Styling follows the color profile of
// Out, so non-terminal writers get plain text.
type Renderer struct {
	out   io.Writer
	width int

	title   lipgloss.Style
	heading lipgloss.Style
	subject lipgloss.Style
	urgent  lipgloss.Style
	muted   lipgloss.Style
}

// New creates a Renderer. A width <= 0 uses 70 columns.
func New(out io.Writer, width int) *Renderer {
	if width <= 0 {
		width = defaultWidth
	}
	r := lipgloss.NewRenderer(out)
	return &Renderer{
		out:     out,
		width:   width,
		title:   r.NewStyle().Bold(true).Foreground(lipgloss.Color("12")),
		heading: r.NewStyle().Bold(true),
		subject: r.NewStyle().Bold(true).Foreground(lipgloss.Color("14")),
		urgent:  r.NewStyle().Bold(true).Foreground(lipgloss.Color("9")),
		muted:   r.NewStyle().Faint(true),
	}
}

// Render writes the full report.
func (r *Renderer) Render(b Briefing) error {
	var sb strings.Builder
	bar := strings.Repeat("=", r.width)

	fmt.Fprintf(&sb, "\n%s\n", bar)
	fmt.Fprintf(&sb, "%s\n", r.title.Render("YOUR DAILY BRIEFING - "+b.Date.Format("Monday, January 02, 2006")))
	fmt.Fprintf(&sb, "%s\n", bar)

	if len(b.Today) > 0 {
		r.writeDay(&sb, fmt.Sprintf("TODAY'S EVENTS (%d total):", len(b.Today)), b.Today)
	} else {
		fmt.Fprintf(&sb, "\n%s\n", r.heading.Render("TODAY - Free day with no scheduled events!"))
	}

	if b.IncludeTomorrow {
		if len(b.Tomorrow) > 0 {
			tomorrow := b.Date.AddDate(0, 0, 1)
			r.writeDay(&sb, fmt.Sprintf("TOMORROW'S EVENTS (%d total) - %s:", len(b.Tomorrow), tomorrow.Format("Monday, January 02")), b.Tomorrow)
		} else {
			fmt.Fprintf(&sb, "\n%s\n", r.heading.Render("TOMORROW - Free day with no scheduled events!"))
		}
	}

	fmt.Fprintf(&sb, "\n%s\n", bar)
	fmt.Fprintf(&sb, "%s\n", r.heading.Render("DAY SUMMARY:"))
	fmt.Fprintf(&sb, "%s\n", bar)
	fmt.Fprintf(&sb, "%s\n", wordwrap.String(b.Summary, r.width))

	fmt.Fprintf(&sb, "\n%s\n", bar)
	fmt.Fprintf(&sb, "%s\n", r.title.Render("Have a great day!"))
	fmt.Fprintf(&sb, "%s\n", bar)

	_, err := io.WriteString(r.out, sb.String())
	return err
}

func (r *Renderer) writeDay(sb *strings.Builder, heading string, events []model.CalendarEvent) {
	fmt.Fprintf(sb, "\n%s\n", r.heading.Render(heading))
	fmt.Fprintf(sb, "%s\n", strings.Repeat("-", ruleWidth))
	for i, ev := range events {
		r.writeEvent(sb, i+1, ev)
	}
}

func (r *Renderer) writeEvent(sb *strings.Builder, n int, ev model.CalendarEvent) {
	fmt.Fprintf(sb, "\n%d. %s\n", n, r.subject.Render(ev.Subject))

	when := ev.Start + " - " + ev.End
	if ev.Duration != "" && ev.Duration != model.UnknownDuration {
		when += " (" + ev.Duration + ")"
	}
	if ev.Recurring {
		when += r.muted.Render(" recurring")
	}
	fmt.Fprintf(sb, "   Time: %s\n", when)

	if ev.Location != "" {
		if ev.Online {
			fmt.Fprintf(sb, "   Online (%s): %s\n", ev.Medium, ev.Location)
		} else {
			fmt.Fprintf(sb, "   Location: %s\n", ev.Location)
		}
	}
	if ev.HighPriority() {
		fmt.Fprintf(sb, "   %s\n", r.urgent.Render("HIGH PRIORITY"))
	}
	if ev.Organizer != "" {
		fmt.Fprintf(sb, "   Organizer: %s\n", ev.Organizer)
	}
	if len(ev.Categories) > 0 {
		fmt.Fprintf(sb, "   %s\n", r.muted.Render("Categories: "+strings.Join(ev.Categories, ", ")))
	}
}

// Fallback prints the narrative again when it could not be spoken.
func (r *Renderer) Fallback(summary string) error {
	_, err := fmt.Fprintf(r.out, "\nTTS not available, but here is your summary again:\n%s\n", wordwrap.String(summary, r.width))
	return err
}

// Speaking announces that the narrative is about to be read aloud.
func (r *Renderer) Speaking() {
	fmt.Fprintln(r.out, "\nReading your daily summary...")
}

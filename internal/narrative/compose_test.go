package narrative

import (
	"slices"
	"strings"
	"testing"

	"daybrief/internal/model"
)

func TestGreeting(t *testing.T) {
	tests := map[int]string{
		0: "Good night", 4: "Good night", 5: "Good morning", 11: "Good morning",
		12: "Good afternoon", 16: "Good afternoon", 17: "Good evening",
		20: "Good evening", 21: "Good night", 23: "Good night",
	}
	for hour, want := range tests {
		if got := Greeting(hour); got != want {
			t.Errorf("Greeting(%d) = %q, want %q", hour, got, want)
		}
	}
}

func TestComposeEndToEnd(t *testing.T) {
	c := NewComposer(nil)
	out := c.Compose(Context{
		Greeting: Greeting(8),
		UserName: "Sam",
		Today: []model.CalendarEvent{
			{Subject: "Standup", Start: "09:00 AM", End: "09:15 AM", Organizer: "Alice"},
			{Subject: "Review", Start: "02:00 PM", End: "03:00 PM", Organizer: "Bob"},
		},
	})

	prefix := "Good morning Sam! You start your day with Standup from 9 to 9 15 with Alice, "
	if !strings.HasPrefix(out, prefix) {
		t.Fatalf("unexpected prefix: %q", out)
	}
	rest := strings.TrimPrefix(out, prefix)
	suffix := " Review from 2 to 3 with Bob."
	if !strings.HasSuffix(rest, suffix) {
		t.Fatalf("unexpected suffix: %q", out)
	}
	if tr := strings.TrimSuffix(rest, suffix); !slices.Contains(Transitions, tr) {
		t.Fatalf("transition %q not in vocabulary", tr)
	}
	if strings.Contains(out, "Tomorrow") {
		t.Fatalf("tomorrow section should be absent: %q", out)
	}
}

func TestComposePhrases(t *testing.T) {
	tests := []struct {
		name            string
		today, tomorrow []string
		includeTomorrow bool
		want            string
	}{
		{
			name: "free day, tomorrow absent",
			want: "Good evening Sam! You have a free day with no scheduled meetings, perfect time to catch up on personal projects or take a well-deserved break!",
		},
		{
			name:            "free day, tomorrow empty",
			includeTomorrow: true,
			want:            "Good evening Sam! You have a free day with no scheduled meetings, perfect time to catch up on personal projects or take a well-deserved break!",
		},
		{
			name:            "today busy, tomorrow empty",
			today:           []string{"a"},
			includeTomorrow: true,
			want:            "Good evening Sam! You start your day with a. Tomorrow is free with no scheduled meetings.",
		},
		{
			name:            "today free, tomorrow single",
			tomorrow:        []string{"x"},
			includeTomorrow: true,
			want:            "Good evening Sam! You have a free day today. Tomorrow you have x.",
		},
		{
			name:            "tomorrow several",
			today:           []string{"a", "b", "c"},
			tomorrow:        []string{"x", "y"},
			includeTomorrow: true,
			want:            "Good evening Sam! You start your day with a, next b, and finally c. Tomorrow you start with x, then y.",
		},
		{
			name:     "tomorrow events ignored when not requested",
			today:    []string{"a"},
			tomorrow: []string{"x"},
			want:     "Good evening Sam! You start your day with a.",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewComposer(&SequencePicker{Words: []string{"next", "then"}})
			got := c.ComposePhrases("Good evening", "Sam", tt.today, tt.tomorrow, tt.includeTomorrow)
			if got != tt.want {
				t.Errorf("got  %q\nwant %q", got, tt.want)
			}
		})
	}
}

func TestComposeFreeDayMentionsGreetingAndNameOnce(t *testing.T) {
	out := NewComposer(nil).Compose(Context{Greeting: "Good morning", UserName: "Priya"})
	if n := strings.Count(out, "Good morning"); n != 1 {
		t.Errorf("greeting appears %d times in %q", n, out)
	}
	if n := strings.Count(out, "Priya"); n != 1 {
		t.Errorf("name appears %d times in %q", n, out)
	}
}

type panicPicker struct{}

func (panicPicker) Pick() string { panic("picker exploded") }

func TestComposeRecoversIntoApology(t *testing.T) {
	c := NewComposer(panicPicker{})
	out := c.ComposePhrases("Good morning", "Sam", []string{"a", "b"}, nil, false)
	want := "Sorry, I couldn't create your day summary due to an error: picker exploded"
	if out != want {
		t.Fatalf("got %q", out)
	}
}

func TestNilComposerUsesRandomTransitions(t *testing.T) {
	var c *Composer
	out := c.ComposePhrases("Good night", "Sam", []string{"a", "b"}, nil, false)
	if !strings.HasPrefix(out, "Good night Sam! You start your day with a, ") {
		t.Fatalf("got %q", out)
	}
}

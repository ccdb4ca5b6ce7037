package narrative

import (
	"testing"
	"unicode"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"", ""},
		{"Standup", "Standup"},
		{"Q3 planning - budget/review", "Q3 planning budget review"},
		{"team_sync|weekly\\notes", "team sync weekly notes"},
		{"  1:1 (Alex & Sam)!!  ", "11 Alex Sam"},
		{"Café déjà-vu", "Café déjà vu"},
		{"tabs\tand\nnewlines", "tabs and newlines"},
		{"!!!", ""},
		{"a\vb", "a b"},
		{"a\u0085b", "a b"},
		{"a\u2028b\u2029c", "a b c"},
		{"wide\u3000gap", "wide gap"},
		{"non breaking", "non breaking"},
	}
	for _, tt := range tests {
		if got := Normalize(tt.in); got != tt.want {
			t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNormalizeOutputAlphabetAndIdempotence(t *testing.T) {
	inputs := []string{
		"Sprint #42 -- retro @ 5pm?",
		"  a__b  //  c  ",
		"[WIP] <design> {review} $100 50% off",
		"émoji 🎉 party",
		"line1\r\nline2",
	}
	for _, in := range inputs {
		out := Normalize(in)
		prevSpace := true
		for _, r := range out {
			if r == ' ' {
				if prevSpace {
					t.Errorf("Normalize(%q) = %q has leading or doubled space", in, out)
				}
				prevSpace = true
				continue
			}
			prevSpace = false
			if !unicode.IsLetter(r) && !unicode.IsDigit(r) && !unicode.IsNumber(r) {
				t.Errorf("Normalize(%q) = %q contains %q", in, out, r)
			}
		}
		if len(out) > 0 && out[len(out)-1] == ' ' {
			t.Errorf("Normalize(%q) = %q has trailing space", in, out)
		}
		if again := Normalize(out); again != out {
			t.Errorf("Normalize not idempotent: %q -> %q -> %q", in, out, again)
		}
	}
}

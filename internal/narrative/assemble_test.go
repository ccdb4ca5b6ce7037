package narrative

import (
	"fmt"
	"math/rand/v2"
	"slices"
	"strings"
	"testing"
)

type countingPicker struct {
	calls int
}

func (p *countingPicker) Pick() string {
	p.calls++
	return "then"
}

func TestAssemble(t *testing.T) {
	tests := []struct {
		phrases []string
		want    string
		picks   int
	}{
		{nil, "", 0},
		{[]string{"a"}, "a.", 0},
		{[]string{"a", "b"}, "a, then b.", 1},
		{[]string{"a", "b", "c"}, "a, then b, and finally c.", 1},
		{[]string{"a", "b", "c", "d", "e"}, "a, then b, then c, then d, and finally e.", 3},
	}
	for _, tt := range tests {
		p := &countingPicker{}
		if got := Assemble(tt.phrases, p); got != tt.want {
			t.Errorf("Assemble(%v) = %q, want %q", tt.phrases, got, tt.want)
		}
		if p.calls != tt.picks {
			t.Errorf("Assemble(%v) picked %d transitions, want %d", tt.phrases, p.calls, tt.picks)
		}
	}
}

func TestAssembleConnectiveCount(t *testing.T) {
	picker := NewRandomPicker(rand.NewPCG(1, 2))
	for n := 0; n <= 8; n++ {
		phrases := make([]string, n)
		for i := range phrases {
			phrases[i] = fmt.Sprintf("event%d", i)
		}
		out := Assemble(phrases, picker)

		if got, want := strings.Count(out, ", "), max(n-1, 0); got != want {
			t.Errorf("n=%d: %d connectives in %q, want %d", n, got, out, want)
		}
		hasFinally := strings.Contains(out, ", "+FinalConnective+" ")
		if hasFinally != (n >= 3) {
			t.Errorf("n=%d: and finally present=%v in %q", n, hasFinally, out)
		}
		if n == 2 {
			mid := strings.TrimSuffix(strings.TrimPrefix(out, "event0, "), " event1.")
			if !slices.Contains(Transitions, mid) {
				t.Errorf("n=2: transition %q not in vocabulary", mid)
			}
		}
	}
}

func TestRandomPickerStaysInVocabulary(t *testing.T) {
	seen := map[string]bool{}
	p := NewRandomPicker(rand.NewPCG(42, 7))
	for range 300 {
		w := p.Pick()
		if !slices.Contains(Transitions, w) {
			t.Fatalf("unexpected transition %q", w)
		}
		seen[w] = true
	}
	if len(seen) != len(Transitions) {
		t.Fatalf("expected every transition to appear, saw %v", seen)
	}

	var global *RandomPicker
	if w := global.Pick(); !slices.Contains(Transitions, w) {
		t.Fatalf("nil picker returned %q", w)
	}
}

func TestSequencePickerCycles(t *testing.T) {
	p := &SequencePicker{Words: []string{"next", "then"}}
	got := []string{p.Pick(), p.Pick(), p.Pick()}
	if !slices.Equal(got, []string{"next", "then", "next"}) {
		t.Fatalf("got %v", got)
	}
	empty := &SequencePicker{}
	if w := empty.Pick(); w != Transitions[0] {
		t.Fatalf("empty sequence picked %q", w)
	}
}

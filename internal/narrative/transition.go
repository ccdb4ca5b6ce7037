package narrative

import (
	"math/rand/v2"
	"sync"
)

// Transitions is the connective vocabulary used between event clauses.
var Transitions = []string{"followed by", "then", "next"}

// Picker chooses the connective placed before the next clause.
type Picker interface {
	Pick() string
}

// RandomPicker draws uniformly from Transitions. Consecutive picks may
// repeat; no history is kept.
type RandomPicker struct {
	mu sync.Mutex
	r  *rand.Rand
}

// NewRandomPicker returns a picker backed by src. A nil src uses the
// process-wide generator.
func NewRandomPicker(src rand.Source) *RandomPicker {
	p := &RandomPicker{}
	if src != nil {
		p.r = rand.New(src)
	}
	return p
}

func (p *RandomPicker) Pick() string {
	if p == nil || p.r == nil {
		return Transitions[rand.IntN(len(Transitions))]
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return Transitions[p.r.IntN(len(Transitions))]
}

// SequencePicker returns Words in order, cycling when exhausted.
type SequencePicker struct {
	Words []string

	mu   sync.Mutex
	next int
}

func (p *SequencePicker) Pick() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.Words) == 0 {
		return Transitions[0]
	}
	w := p.Words[p.next%len(p.Words)]
	p.next++
	return w
}
